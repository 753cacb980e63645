// Package relations holds the relationship bookkeeping shared by the admin
// workspace and the domain service: ordered tag lists, the bidirectional
// associate merge and the field note cross-link planner.
package relations

import (
	"slices"
	"strings"

	"github.com/peepybureau/bpi/internal/datastore"
)

// TagList is an ordered list of entries unique by key.
type TagList[T any] struct {
	items []T
	key   func(T) string
}

// Tag is one rendered entry of a TagList.
type Tag struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	Label string `json:"label"`
	// Resolved is false when the label fell back to the raw key.
	Resolved bool `json:"resolved"`
}

// NewTagList returns a list keyed by key, seeded with initial. Entries with an
// empty or repeated key are dropped.
func NewTagList[T any](key func(T) string, initial ...T) *TagList[T] {
	l := &TagList[T]{key: key, items: make([]T, 0, len(initial))}
	for _, item := range initial {
		l.Add(item)
	}
	return l
}

// NewStringTags returns a list of trimmed strings.
func NewStringTags(initial ...string) *TagList[string] {
	trimmed := make([]string, len(initial))
	for i, s := range initial {
		trimmed[i] = strings.TrimSpace(s)
	}
	return NewTagList(func(s string) string { return s }, trimmed...)
}

// NewAssociateTags returns an associate list keyed by target id.
func NewAssociateTags(initial ...datastore.Associate) *TagList[datastore.Associate] {
	clean := make([]datastore.Associate, len(initial))
	for i, a := range initial {
		clean[i] = datastore.Associate{ID: strings.TrimSpace(a.ID), Relation: strings.TrimSpace(a.Relation)}
	}
	return NewTagList(func(a datastore.Associate) string { return a.ID }, clean...)
}

// Add appends item unless an entry with the same key exists. It reports
// whether the list changed.
func (l *TagList[T]) Add(item T) bool {
	k := l.key(item)
	if k == "" || l.Contains(k) {
		return false
	}
	l.items = append(l.items, item)
	return true
}

// Remove deletes the entry at index i. Out of range indexes are ignored.
func (l *TagList[T]) Remove(i int) bool {
	if i < 0 || i >= len(l.items) {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	return true
}

// Contains reports whether an entry with key k exists.
func (l *TagList[T]) Contains(k string) bool {
	return slices.ContainsFunc(l.items, func(item T) bool { return l.key(item) == k })
}

// Items returns a copy of the entries in order.
func (l *TagList[T]) Items() []T {
	return slices.Clone(l.items)
}

// Keys returns the entry keys in order.
func (l *TagList[T]) Keys() []string {
	keys := make([]string, len(l.items))
	for i, item := range l.items {
		keys[i] = l.key(item)
	}
	return keys
}

func (l *TagList[T]) Len() int {
	return len(l.items)
}

// Labels renders every entry, resolving keys through resolve and falling back
// to the raw key when resolve is nil or does not know it.
func (l *TagList[T]) Labels(resolve func(key string) (string, bool)) []Tag {
	tags := make([]Tag, len(l.items))
	for i, item := range l.items {
		k := l.key(item)
		tag := Tag{Index: i, Key: k, Label: k}
		if resolve != nil {
			if label, ok := resolve(k); ok && label != "" {
				tag.Label = label
				tag.Resolved = true
			}
		}
		tags[i] = tag
	}
	return tags
}
