package relations

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peepybureau/bpi/internal/datastore"
)

// fakeNotes records every save it receives.
type fakeNotes struct {
	notes   map[string]*datastore.FieldNote
	failOn  map[string]bool
	written []string
}

func newFakeNotes(notes ...datastore.FieldNote) *fakeNotes {
	f := &fakeNotes{notes: map[string]*datastore.FieldNote{}, failOn: map[string]bool{}}
	for i := range notes {
		n := notes[i]
		f.notes[n.ID] = &n
	}
	return f
}

func (f *fakeNotes) GetFieldNote(_ context.Context, id string) (*datastore.FieldNote, error) {
	n, ok := f.notes[id]
	if !ok {
		return nil, fmt.Errorf("note %s not found", id)
	}
	cp := *n
	return &cp, nil
}

func (f *fakeNotes) SaveFieldNote(_ context.Context, n *datastore.FieldNote) error {
	if f.failOn[n.ID] {
		return fmt.Errorf("backend unavailable")
	}
	f.written = append(f.written, n.ID)
	cp := *n
	f.notes[n.ID] = &cp
	return nil
}

func TestPlanCrossLinks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		previous   []string
		selection  []string
		wantAdd    []string
		wantRemove []string
	}{
		{"swap one", []string{"N1", "N2"}, []string{"N2", "N3"}, []string{"N3"}, []string{"N1"}},
		{"unchanged", []string{"N1"}, []string{"N1"}, []string{}, []string{}},
		{"clear all", []string{"N2", "N1"}, nil, []string{}, []string{"N1", "N2"}},
		{"first links", nil, []string{"N3", "N1", "N3", " "}, []string{"N1", "N3"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan := PlanCrossLinks("S", tt.previous, tt.selection)
			assert.Equal(t, tt.wantAdd, plan.ToAdd)
			assert.Equal(t, tt.wantRemove, plan.ToRemove)
		})
	}
}

func TestApplyCrossLinksWritesOnlyChangedNotes(t *testing.T) {
	t.Parallel()

	store := newFakeNotes(
		datastore.FieldNote{ID: "N1", RelatedSpecimens: datastore.StringList{"S", "other"}},
		datastore.FieldNote{ID: "N2", RelatedSpecimens: datastore.StringList{"S"}},
		datastore.FieldNote{ID: "N3"},
	)

	plan := PlanCrossLinks("S", []string{"N1", "N2"}, []string{"N2", "N3"})
	result := ApplyCrossLinks(context.Background(), plan, store)

	require.NoError(t, result.Err())
	assert.Equal(t, []string{"N3", "N1"}, store.written, "one add to N3, one remove from N1, nothing for N2")
	assert.Equal(t, []string{"N3"}, result.Added)
	assert.Equal(t, []string{"N1"}, result.Removed)

	assert.Equal(t, datastore.StringList{"other"}, store.notes["N1"].RelatedSpecimens)
	assert.Equal(t, datastore.StringList{"S"}, store.notes["N2"].RelatedSpecimens)
	assert.Equal(t, datastore.StringList{"S"}, store.notes["N3"].RelatedSpecimens)
}

func TestApplyCrossLinksPartialFailure(t *testing.T) {
	t.Parallel()

	store := newFakeNotes(
		datastore.FieldNote{ID: "N1"},
		datastore.FieldNote{ID: "N2"},
	)
	store.failOn["N1"] = true

	plan := PlanCrossLinks("S", nil, []string{"N1", "N2", "missing"})
	result := ApplyCrossLinks(context.Background(), plan, store)

	assert.Equal(t, []string{"N2"}, result.Added)
	assert.Len(t, result.Failed, 2)
	assert.Contains(t, result.Failed, "N1")
	assert.Contains(t, result.Failed, "missing")

	err := result.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field note N1")
	assert.Contains(t, err.Error(), "field note missing")
}

func TestApplyCrossLinksStopsWritingAfterCancel(t *testing.T) {
	t.Parallel()

	store := newFakeNotes(datastore.FieldNote{ID: "N1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := ApplyCrossLinks(ctx, PlanCrossLinks("S", nil, []string{"N1"}), store)
	assert.Empty(t, store.written)
	assert.Contains(t, result.Failed, "N1")
}
