package workspace

import (
	"context"
	"slices"
	"strings"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/relations"
)

// TagEntry is a value offered to a tag field. Relation is only used by the
// associates field.
type TagEntry struct {
	Value    string `json:"value"`
	Relation string `json:"relation,omitempty"`
}

func tagError(field Field, msg string) error {
	return errors.Newf("%s", msg).
		Component("workspace").
		Category(errors.CategoryValidation).
		Context("field", string(field)).
		Build()
}

// ParseField returns the field named s.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if !slices.Contains(Fields, f) {
		return "", tagError(f, "unknown tag field")
	}
	return f, nil
}

// AddTag appends entry to field. Duplicates and blanks are ignored and
// reported as unchanged. Reference fields only accept ids present in the
// snapshots.
func (w *Workspace) AddTag(field Field, entry TagEntry) (bool, error) {
	value := strings.TrimSpace(entry.Value)

	w.mu.Lock()
	defer w.mu.Unlock()

	d := w.draft
	if tabOf(field) != d.Tab {
		return false, tagError(field, "field is not part of the current form")
	}
	if value == "" {
		return false, nil
	}

	switch field {
	case FieldAssociates:
		if value == d.EditID {
			return false, tagError(field, "a specimen cannot be its own associate")
		}
		if w.specimenLocked(value) == nil {
			return false, errors.NotFound(string(datastore.CollectionSpecimens), value)
		}
		return d.touch(d.associates.Add(datastore.Associate{ID: value, Relation: strings.TrimSpace(entry.Relation)})), nil
	case FieldLinkedNotes:
		if !slices.ContainsFunc(w.fieldNotes, func(n datastore.FieldNote) bool { return n.ID == value }) {
			return false, errors.NotFound(string(datastore.CollectionFieldNotes), value)
		}
	case FieldNoteSpecimens, FieldTranscriptSpecimens:
		if w.specimenLocked(value) == nil {
			return false, errors.NotFound(string(datastore.CollectionSpecimens), value)
		}
	}

	tags := d.stringTags(field)
	if tags == nil {
		return false, tagError(field, "unknown tag field")
	}
	return d.touch(tags.Add(value)), nil
}

// RemoveTag deletes the entry at index from field.
func (w *Workspace) RemoveTag(field Field, index int) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	d := w.draft
	if tabOf(field) != d.Tab {
		return false, tagError(field, "field is not part of the current form")
	}
	if field == FieldAssociates {
		return d.touch(d.associates.Remove(index)), nil
	}
	tags := d.stringTags(field)
	if tags == nil {
		return false, tagError(field, "unknown tag field")
	}
	return d.touch(tags.Remove(index)), nil
}

// TagView renders field with labels resolved against the snapshots.
func (w *Workspace) TagView(field Field) ([]relations.Tag, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tagViewLocked(field)
}

func (w *Workspace) tagViewLocked(field Field) ([]relations.Tag, error) {
	d := w.draft
	specimenLabel := func(id string) (string, bool) {
		s := w.specimenLocked(id)
		return bureau.EditorLabel(s), s != nil
	}

	switch field {
	case FieldAssociates:
		return d.associates.Labels(specimenLabel), nil
	case FieldNoteSpecimens:
		return d.noteSpecimens.Labels(specimenLabel), nil
	case FieldTranscriptSpecimens:
		return d.transcriptSpecimens.Labels(specimenLabel), nil
	case FieldLinkedNotes:
		return d.linkedNotes.Labels(func(id string) (string, bool) {
			i := slices.IndexFunc(w.fieldNotes, func(n datastore.FieldNote) bool { return n.ID == id })
			if i < 0 {
				return "", false
			}
			return w.fieldNotes[i].Title, true
		}), nil
	case FieldAbilities:
		return d.abilities.Labels(nil), nil
	case FieldPhotos:
		return d.photos.Labels(nil), nil
	default:
		return nil, tagError(field, "unknown tag field")
	}
}

// DraftView is the serializable state of the draft.
type DraftView struct {
	Tab    Tab                      `json:"tab"`
	EditID string                   `json:"editId,omitempty"`
	Form   Form                     `json:"form"`
	Tags   map[Field][]relations.Tag `json:"tags"`
}

// View is the serializable state of the workspace.
type View struct {
	Loaded      bool                   `json:"loaded"`
	Specimens   []datastore.Specimen   `json:"specimens"`
	FieldNotes  []datastore.FieldNote  `json:"fieldNotes"`
	Transcripts []datastore.Transcript `json:"transcripts"`
	Draft       DraftView              `json:"draft"`
}

// Draft returns the current draft state.
func (w *Workspace) Draft() DraftView {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.draftViewLocked()
}

func (w *Workspace) draftViewLocked() DraftView {
	v := DraftView{
		Tab:    w.draft.Tab,
		EditID: w.draft.EditID,
		Form:   w.draft.Form,
		Tags:   make(map[Field][]relations.Tag, len(Fields)),
	}
	for _, f := range Fields {
		if tabOf(f) != v.Tab {
			continue
		}
		tags, _ := w.tagViewLocked(f)
		v.Tags[f] = tags
	}
	return v
}

// View returns a consistent copy of the snapshots and the draft.
func (w *Workspace) View() View {
	w.mu.RLock()
	defer w.mu.RUnlock()

	loaded := true
	for _, c := range watched {
		loaded = loaded && w.loaded[c]
	}
	return View{
		Loaded:      loaded,
		Specimens:   slices.Clone(w.specimens),
		FieldNotes:  slices.Clone(w.fieldNotes),
		Transcripts: slices.Clone(w.transcripts),
		Draft:       w.draftViewLocked(),
	}
}

// SubmitResult reports a saved draft.
type SubmitResult struct {
	Tab     Tab    `json:"tab"`
	ID      string `json:"id"`
	Created bool   `json:"created"`
	Warning string `json:"warning,omitempty"`
}

// Submit saves the draft through the bureau service. On success the draft is
// reset; on failure it is kept so the form can be corrected.
func (w *Workspace) Submit(ctx context.Context, actor bureau.Actor) (*SubmitResult, error) {
	w.mu.RLock()
	d := w.draft
	tab, revision := d.Tab, d.revision
	specimen, linked := d.specimenInput()
	note := d.fieldNoteInput()
	transcript := d.transcriptInput()
	w.mu.RUnlock()

	res := &SubmitResult{Tab: tab}
	switch tab {
	case TabSpecimens:
		saved, err := w.svc.SaveSpecimen(ctx, actor, specimen, linked)
		if err != nil {
			return nil, err
		}
		res.ID, res.Created, res.Warning = saved.Specimen.ID, saved.Created, saved.Warning
	case TabFieldNotes:
		saved, err := w.svc.SaveFieldNote(ctx, actor, note)
		if err != nil {
			return nil, err
		}
		res.ID, res.Created = saved.ID, note.ID == ""
	case TabTranscripts:
		saved, err := w.svc.SaveTranscript(ctx, actor, transcript)
		if err != nil {
			return nil, err
		}
		res.ID, res.Created = saved.ID, transcript.ID == ""
	}

	w.mu.Lock()
	// edits made while saving are kept for the next submit
	switch {
	case w.draft != d:
	case d.revision == revision:
		w.draft = newDraft(tab)
	case d.EditID == "":
		// the record exists now; the next submit must update it
		d.EditID = res.ID
	}
	w.mu.Unlock()
	return res, nil
}
