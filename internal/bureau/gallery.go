package bureau

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/peepybureau/bpi/internal/datastore"
)

// Gallery sort orders.
const (
	SortName   = "name"
	SortDate   = "date"
	SortThreat = "threat"
)

// GalleryFilter narrows the public specimen gallery. Empty fields match all.
type GalleryFilter struct {
	Status datastore.Status
	Threat datastore.ThreatLevel
	Sort   string
}

// threatRank orders the most dangerous first; unknown levels sort last.
func threatRank(t datastore.ThreatLevel) int {
	switch t {
	case datastore.ThreatCritical:
		return 0
	case datastore.ThreatHigh:
		return 1
	case datastore.ThreatMedium:
		return 2
	case datastore.ThreatLow:
		return 3
	default:
		return 4
	}
}

// Gallery lists specimens. Without a recognised sort the newest come first.
func (s *Service) Gallery(ctx context.Context, filter GalleryFilter) ([]datastore.Specimen, error) {
	specimens, err := s.store.ListSpecimens(ctx, datastore.OrderByCreatedDesc)
	if err != nil {
		return nil, err
	}

	specimens = slices.DeleteFunc(specimens, func(sp datastore.Specimen) bool {
		return (filter.Status != "" && sp.Status != filter.Status) ||
			(filter.Threat != "" && sp.ThreatLevel != filter.Threat)
	})

	switch filter.Sort {
	case SortName:
		slices.SortStableFunc(specimens, func(a, b datastore.Specimen) int { return compareFold(a.Name, b.Name) })
	case SortThreat:
		slices.SortStableFunc(specimens, func(a, b datastore.Specimen) int {
			return cmp.Compare(threatRank(a.ThreatLevel), threatRank(b.ThreatLevel))
		})
	default:
		slices.SortStableFunc(specimens, func(a, b datastore.Specimen) int { return b.CreatedAt.Compare(a.CreatedAt) })
	}
	return specimens, nil
}

// AdminSpecimens lists specimens by name for the dashboard sidebar.
func (s *Service) AdminSpecimens(ctx context.Context) ([]datastore.Specimen, error) {
	return s.store.ListSpecimens(ctx, datastore.OrderByName)
}

// compareFold orders case-insensitively, falling back to a byte compare so
// the order is total.
func compareFold(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
