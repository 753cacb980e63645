// Package bureau is the dossier domain service. It validates and saves
// records, keeps field note cross-links in step with specimen saves and
// assembles the read models behind the public pages.
package bureau

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/observability/metrics"
)

const (
	// DefaultAssociateTTL bounds how stale the sibling snapshot may get when
	// no change feed is watching.
	DefaultAssociateTTL = 30 * time.Second

	siblingsCacheKey = "specimens"
)

// Actor identifies who performs a write.
type Actor struct {
	Email string
}

// Options tune a Service.
type Options struct {
	AssociateTTL time.Duration
	Metrics      *metrics.BureauMetrics
}

// Service implements the dossier operations on top of a datastore.
type Service struct {
	store       datastore.Interface
	siblings    *cache.Cache
	metrics     *metrics.BureauMetrics
	now         func() time.Time
	agentNumber func() string
}

// New returns a service backed by store.
func New(store datastore.Interface, opts Options) *Service {
	ttl := opts.AssociateTTL
	if ttl <= 0 {
		ttl = DefaultAssociateTTL
	}
	return &Service{
		store:       store,
		siblings:    cache.New(ttl, 2*ttl),
		metrics:     opts.Metrics,
		now:         time.Now,
		agentNumber: randomAgentNumber,
	}
}

// Store exposes the underlying datastore for read paths that need no domain
// logic.
func (s *Service) Store() datastore.Interface {
	return s.store
}

// Watch drops the sibling snapshot whenever a specimen changes, including
// writes made by other processes sharing the feed. It returns when ctx ends.
func (s *Service) Watch(ctx context.Context) {
	sub := s.store.Subscribe(ctx, datastore.CollectionSpecimens)
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			s.invalidateSiblings()
			GetLogger().Trace("sibling snapshot invalidated",
				logger.String("specimen_id", ev.ID),
				logger.String("op", string(ev.Op)))
		}
	}
}

func (s *Service) invalidateSiblings() {
	s.siblings.Delete(siblingsCacheKey)
}

// allSpecimens returns the full specimen scan, served from the snapshot
// cache when fresh.
func (s *Service) allSpecimens(ctx context.Context) ([]datastore.Specimen, error) {
	if cached, ok := s.siblings.Get(siblingsCacheKey); ok {
		s.metrics.RecordAssociateCache(true)
		return cached.([]datastore.Specimen), nil
	}
	s.metrics.RecordAssociateCache(false)

	all, err := s.store.AllSpecimens(ctx)
	if err != nil {
		return nil, err
	}
	s.siblings.SetDefault(siblingsCacheKey, all)
	return all, nil
}

// randomAgentNumber returns the six digit display id assigned on create.
func randomAgentNumber() string {
	return fmt.Sprintf("%06d", rand.IntN(1_000_000)) //nolint:gosec // display id, not a secret
}
