package bureau

import (
	"context"
	"slices"
	"strings"

	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/relations"
)

// FieldNoteInput is the editable part of a field note.
type FieldNoteInput struct {
	ID               string                 `json:"id,omitempty"`
	Title            string                 `json:"title"`
	Category         datastore.NoteCategory `json:"category"`
	Content          string                 `json:"content"`
	Image            string                 `json:"image"`
	RelatedSpecimens []string               `json:"relatedSpecimens"`
}

// SaveFieldNote validates and stores a field note.
func (s *Service) SaveFieldNote(ctx context.Context, actor Actor, in FieldNoteInput) (note *datastore.FieldNote, err error) {
	defer func() { s.metrics.RecordSave(string(datastore.CollectionFieldNotes), err) }()

	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, invalid("title", MsgTitleRequired)
	}
	if in.Category == "" {
		in.Category = datastore.CategoryOther
	}
	if !in.Category.Valid() {
		return nil, invalidValue("category", in.Category, datastore.NoteCategories)
	}

	if in.ID == "" {
		note = &datastore.FieldNote{CreatedBy: actorName(actor)}
	} else if note, err = s.store.GetFieldNote(ctx, in.ID); err != nil {
		return nil, err
	}

	note.Title = in.Title
	note.Category = in.Category
	note.Content = strings.TrimSpace(in.Content)
	note.Image = strings.TrimSpace(in.Image)
	note.RelatedSpecimens = relations.NewStringTags(in.RelatedSpecimens...).Items()

	if err := s.store.SaveFieldNote(ctx, note); err != nil {
		return nil, err
	}
	GetLogger().Info("field note saved",
		logger.String("note_id", note.ID),
		logger.String("actor", actor.Email))
	return note, nil
}

// DeleteFieldNote removes a field note.
func (s *Service) DeleteFieldNote(ctx context.Context, id string) error {
	if err := s.store.DeleteFieldNote(ctx, id); err != nil {
		return err
	}
	GetLogger().Info("field note deleted", logger.String("note_id", id))
	return nil
}

// GetFieldNote returns one field note.
func (s *Service) GetFieldNote(ctx context.Context, id string) (*datastore.FieldNote, error) {
	return s.store.GetFieldNote(ctx, id)
}

// Field note sort orders.
const (
	NoteSortDate     = "date"
	NoteSortTitle    = "title"
	NoteSortCategory = "category"
)

// NoteFilter narrows the public field note list.
type NoteFilter struct {
	Category datastore.NoteCategory
	Sort     string
}

// FieldNotes lists field notes, newest first unless another order is asked
// for.
func (s *Service) FieldNotes(ctx context.Context, filter NoteFilter) ([]datastore.FieldNote, error) {
	notes, err := s.store.ListFieldNotes(ctx, datastore.OrderByCreatedDesc)
	if err != nil {
		return nil, err
	}
	if filter.Category != "" {
		notes = slices.DeleteFunc(notes, func(n datastore.FieldNote) bool { return n.Category != filter.Category })
	}

	switch filter.Sort {
	case NoteSortTitle:
		slices.SortStableFunc(notes, func(a, b datastore.FieldNote) int { return compareFold(a.Title, b.Title) })
	case NoteSortCategory:
		slices.SortStableFunc(notes, func(a, b datastore.FieldNote) int {
			return strings.Compare(string(a.Category), string(b.Category))
		})
	default:
		slices.SortStableFunc(notes, func(a, b datastore.FieldNote) int { return b.CreatedAt.Compare(a.CreatedAt) })
	}
	return notes, nil
}
