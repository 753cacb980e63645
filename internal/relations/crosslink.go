package relations

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/logger"
)

// CrossLinkPlan lists the field notes that must gain or lose a reference to a
// specimen. Both lists are sorted.
type CrossLinkPlan struct {
	SpecimenID string   `json:"specimenId"`
	ToAdd      []string `json:"toAdd"`
	ToRemove   []string `json:"toRemove"`
}

// Empty reports whether the plan issues no writes.
func (p CrossLinkPlan) Empty() bool {
	return len(p.ToAdd) == 0 && len(p.ToRemove) == 0
}

// PlanCrossLinks diffs the notes currently referencing the specimen against
// the selection. Notes in both sets are untouched.
func PlanCrossLinks(specimenID string, previouslyLinked, selection []string) CrossLinkPlan {
	prev := toSet(previouslyLinked)
	next := toSet(selection)

	plan := CrossLinkPlan{SpecimenID: specimenID, ToAdd: []string{}, ToRemove: []string{}}
	for id := range next {
		if !prev[id] {
			plan.ToAdd = append(plan.ToAdd, id)
		}
	}
	for id := range prev {
		if !next[id] {
			plan.ToRemove = append(plan.ToRemove, id)
		}
	}
	slices.Sort(plan.ToAdd)
	slices.Sort(plan.ToRemove)
	return plan
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = true
		}
	}
	return set
}

// NoteStore is the part of the datastore the propagator writes through.
type NoteStore interface {
	GetFieldNote(ctx context.Context, id string) (*datastore.FieldNote, error)
	SaveFieldNote(ctx context.Context, n *datastore.FieldNote) error
}

// CrossLinkResult reports which notes were written. Failed holds the notes
// left unchanged.
type CrossLinkResult struct {
	Added   []string         `json:"added"`
	Removed []string         `json:"removed"`
	Failed  map[string]error `json:"-"`
}

// Err joins the per-note failures, or returns nil when every write landed.
func (r CrossLinkResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, fmt.Errorf("field note %s: %w", id, r.Failed[id]))
	}
	return errors.New(errors.Join(errs...)).
		Component("relations").
		Category(errors.CategoryDatabase).
		Context("failed_notes", len(ids)).
		Build()
}

// ApplyCrossLinks issues one write per affected note. Writes are independent:
// a failure is recorded and the remaining notes are still processed. Nothing
// is rolled back.
func ApplyCrossLinks(ctx context.Context, plan CrossLinkPlan, store NoteStore) CrossLinkResult {
	result := CrossLinkResult{Added: []string{}, Removed: []string{}, Failed: map[string]error{}}
	if plan.SpecimenID == "" || plan.Empty() {
		return result
	}

	for _, id := range plan.ToAdd {
		if err := updateNote(ctx, store, id, func(n *datastore.FieldNote) {
			if !n.RelatedSpecimens.Contains(plan.SpecimenID) {
				n.RelatedSpecimens = append(n.RelatedSpecimens, plan.SpecimenID)
			}
		}); err != nil {
			result.Failed[id] = err
			continue
		}
		result.Added = append(result.Added, id)
	}

	for _, id := range plan.ToRemove {
		if err := updateNote(ctx, store, id, func(n *datastore.FieldNote) {
			n.RelatedSpecimens = slices.DeleteFunc(slices.Clone(n.RelatedSpecimens), func(s string) bool {
				return s == plan.SpecimenID
			})
		}); err != nil {
			result.Failed[id] = err
			continue
		}
		result.Removed = append(result.Removed, id)
	}

	if len(result.Failed) > 0 {
		GetLogger().Warn("cross-link propagation partially failed",
			logger.String("specimen_id", plan.SpecimenID),
			logger.Int("added", len(result.Added)),
			logger.Int("removed", len(result.Removed)),
			logger.Int("failed", len(result.Failed)))
	}
	return result
}

func updateNote(ctx context.Context, store NoteStore, id string, mutate func(*datastore.FieldNote)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	note, err := store.GetFieldNote(ctx, id)
	if err != nil {
		return err
	}
	mutate(note)
	return store.SaveFieldNote(ctx, note)
}
