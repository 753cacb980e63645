package datastore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssociatesUnmarshalLegacyShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  Associates
	}{
		{
			name:  "bare ids",
			input: `["a", "b"]`,
			want:  Associates{{ID: "a"}, {ID: "b"}},
		},
		{
			name:  "objects with relation",
			input: `[{"id":"a","relation":"nemesis"}]`,
			want:  Associates{{ID: "a", Relation: "nemesis"}},
		},
		{
			name:  "mixed shapes",
			input: `["a", {"id":"b","relation":" sibling "}]`,
			want:  Associates{{ID: "a"}, {ID: "b", Relation: "sibling"}},
		},
		{
			name:  "duplicates keep first",
			input: `[{"id":"a","relation":"first"}, "a", {"id":"a","relation":"third"}]`,
			want:  Associates{{ID: "a", Relation: "first"}},
		},
		{
			name:  "empty ids dropped",
			input: `["", {"id":"  "}, "c"]`,
			want:  Associates{{ID: "c"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got Associates
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssociatesUnmarshalSkipsUnreadableEntries(t *testing.T) {
	t.Parallel()

	var got Associates
	require.NoError(t, json.Unmarshal([]byte(`["a",42,{"id":"b","relation":"rival"},null,["c"],{"id":7}]`), &got))
	assert.Equal(t, Associates{{ID: "a"}, {ID: "b", Relation: "rival"}}, got)

	var scanned Associates
	require.NoError(t, scanned.Scan(`[true,"only"]`))
	assert.Equal(t, []string{"only"}, scanned.IDs())

	// a column that is not a list at all is still an error
	assert.Error(t, json.Unmarshal([]byte(`{"id":"a"}`), &got))
}

func TestAssociatesAlwaysEncodeObjects(t *testing.T) {
	t.Parallel()

	var a Associates
	require.NoError(t, json.Unmarshal([]byte(`["x"]`), &a))

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"x"}]`, string(out))

	out, err = json.Marshal(Associates(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
}

func TestAssociatesScanColumn(t *testing.T) {
	t.Parallel()

	var a Associates
	require.NoError(t, a.Scan([]byte(`["a",{"id":"b","relation":"rival"}]`)))
	assert.Equal(t, []string{"a", "b"}, a.IDs())

	rel, ok := a.Find("b")
	require.True(t, ok)
	assert.Equal(t, "rival", rel.Relation)

	_, ok = a.Find("zzz")
	assert.False(t, ok)

	require.NoError(t, a.Scan(nil))
	assert.Nil(t, a)

	require.NoError(t, a.Scan(""))
	assert.Nil(t, a)

	assert.Error(t, a.Scan(42))
}

func TestStringListDedupe(t *testing.T) {
	t.Parallel()

	got := StringList{" a ", "b", "a", "", "b", "c"}.Dedupe()
	assert.Equal(t, StringList{"a", "b", "c"}, got)

	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var l StringList
	require.NoError(t, l.Scan(`["x","y"]`))
	assert.True(t, l.Contains("y"))
	assert.Error(t, l.Scan(`{"not":"a list"}`))
}
