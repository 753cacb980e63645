package relations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peepybureau/bpi/internal/datastore"
)

func TestTagListAddIsIdempotent(t *testing.T) {
	t.Parallel()

	tags := NewStringTags("flight")
	assert.True(t, tags.Add("mimicry"))
	assert.False(t, tags.Add("mimicry"))
	assert.Equal(t, 2, tags.Len())
	assert.False(t, tags.Add(""), "blank entries are ignored")
	assert.Equal(t, []string{"flight", "mimicry"}, tags.Items())
}

func TestTagListSeedDropsDuplicates(t *testing.T) {
	t.Parallel()

	tags := NewStringTags(" a ", "b", "a", "")
	assert.Equal(t, []string{"a", "b"}, tags.Keys())

	assocs := NewAssociateTags(
		datastore.Associate{ID: "x", Relation: "rival"},
		datastore.Associate{ID: "x", Relation: "ignored"},
		datastore.Associate{ID: " y "},
	)
	assert.Equal(t, []datastore.Associate{{ID: "x", Relation: "rival"}, {ID: "y"}}, assocs.Items())
	assert.False(t, assocs.Add(datastore.Associate{ID: "y", Relation: "different label"}))
}

func TestTagListRemove(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		index   int
		changed bool
		want    []string
	}{
		{"first", 0, true, []string{"b", "c"}},
		{"middle", 1, true, []string{"a", "c"}},
		{"last", 2, true, []string{"a", "b"}},
		{"negative", -1, false, []string{"a", "b", "c"}},
		{"past end", 3, false, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tags := NewStringTags("a", "b", "c")
			assert.Equal(t, tt.changed, tags.Remove(tt.index))
			assert.Equal(t, tt.want, tags.Keys())
		})
	}
}

func TestTagListItemsIsACopy(t *testing.T) {
	t.Parallel()

	tags := NewStringTags("a")
	items := tags.Items()
	items[0] = "mutated"
	assert.Equal(t, []string{"a"}, tags.Keys())
}

func TestTagListLabelsFallBackToKey(t *testing.T) {
	t.Parallel()

	names := map[string]string{"s1": "SUNBEAM"}
	tags := NewAssociateTags(datastore.Associate{ID: "s1"}, datastore.Associate{ID: "gone"})

	labels := tags.Labels(func(id string) (string, bool) {
		name, ok := names[id]
		return name, ok
	})
	assert.Equal(t, []Tag{
		{Index: 0, Key: "s1", Label: "SUNBEAM", Resolved: true},
		{Index: 1, Key: "gone", Label: "gone"},
	}, labels)

	assert.Equal(t, "s1", tags.Labels(nil)[0].Label)
}
