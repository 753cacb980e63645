package datastore

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/peepybureau/bpi/internal/logger"
)

// Associate is a directional link from one specimen to another with an
// optional free-text relation label.
type Associate struct {
	ID       string `json:"id"`
	Relation string `json:"relation,omitempty"`
}

// associateKind tags the stored shape of an associate entry.
type associateKind uint8

const (
	// kindLegacyID is a bare id string written by older clients
	kindLegacyID associateKind = iota + 1
	// kindLinked is the {id, relation} object shape
	kindLinked
)

// associateEntry is the decoded, not yet normalized form of one stored entry.
type associateEntry struct {
	kind     associateKind
	id       string
	relation string
}

func (e *associateEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty associate entry")
	}

	switch data[0] {
	case '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("invalid legacy associate entry: %w", err)
		}
		*e = associateEntry{kind: kindLegacyID, id: id}
	case '{':
		var obj struct {
			ID       string `json:"id"`
			Relation string `json:"relation"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("invalid associate entry: %w", err)
		}
		*e = associateEntry{kind: kindLinked, id: obj.ID, relation: obj.Relation}
	default:
		return fmt.Errorf("unsupported associate entry %s", data)
	}
	return nil
}

// upcast converts any stored shape to an Associate.
func (e associateEntry) upcast() Associate {
	switch e.kind {
	case kindLegacyID:
		return Associate{ID: strings.TrimSpace(e.id)}
	default:
		return Associate{ID: strings.TrimSpace(e.id), Relation: strings.TrimSpace(e.relation)}
	}
}

// Associates is an ordered associate list stored as a JSON column. Decoding
// accepts both legacy shapes; encoding always writes objects.
type Associates []Associate

// UnmarshalJSON decodes either stored shape and normalizes the result.
// Entries of any other shape are logged and dropped.
func (a *Associates) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Associates, 0, len(raw))
	for i, item := range raw {
		var e associateEntry
		if err := e.UnmarshalJSON(item); err != nil {
			// one malformed entry must not hide the rest of the dossier
			GetLogger().Warn("skipping unreadable associate entry",
				logger.Int("index", i),
				logger.Error(err))
			continue
		}
		out = append(out, e.upcast())
	}
	*a = out.Normalize()
	return nil
}

// MarshalJSON writes the object shape; a nil list encodes as [].
func (a Associates) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Associate(a))
}

// Normalize drops empty ids and keeps the first entry for each id.
func (a Associates) Normalize() Associates {
	out := make(Associates, 0, len(a))
	for _, assoc := range a {
		if assoc.ID == "" || out.Contains(assoc.ID) {
			continue
		}
		out = append(out, assoc)
	}
	return out
}

// Contains reports whether id is linked.
func (a Associates) Contains(id string) bool {
	return slices.ContainsFunc(a, func(assoc Associate) bool { return assoc.ID == id })
}

// Find returns the entry for id.
func (a Associates) Find(id string) (Associate, bool) {
	i := slices.IndexFunc(a, func(assoc Associate) bool { return assoc.ID == id })
	if i < 0 {
		return Associate{}, false
	}
	return a[i], true
}

// IDs returns the linked ids in order.
func (a Associates) IDs() []string {
	ids := make([]string, len(a))
	for i, assoc := range a {
		ids[i] = assoc.ID
	}
	return ids
}

// Value implements driver.Valuer.
func (a Associates) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Associate(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *Associates) Scan(value any) error {
	data, err := columnBytes(value)
	if err != nil || data == nil {
		*a = nil
		return err
	}
	return a.UnmarshalJSON(data)
}

// StringList is an ordered string list stored as a JSON column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// MarshalJSON encodes a nil list as [].
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value any) error {
	data, err := columnBytes(value)
	if err != nil || data == nil {
		*l = nil
		return err
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("invalid string list column: %w", err)
	}
	*l = out
	return nil
}

// Contains reports whether s is present.
func (l StringList) Contains(s string) bool {
	return slices.Contains(l, s)
}

// Dedupe returns the list with blanks removed and duplicates collapsed, keeping
// first occurrences.
func (l StringList) Dedupe() StringList {
	out := make(StringList, 0, len(l))
	for _, s := range l {
		s = strings.TrimSpace(s)
		if s == "" || out.Contains(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// columnBytes extracts raw bytes from a driver value. Empty columns yield nil.
func columnBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(bytes.TrimSpace(v)) == 0 {
			return nil, nil
		}
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", value)
	}
}
