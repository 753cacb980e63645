// Package workspace holds the per-session admin dashboard state: live
// snapshots of the collections and the draft being edited.
package workspace

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/relations"
)

// loadPollInterval is how often OpenFromQuery checks the loaded flag.
const loadPollInterval = 25 * time.Millisecond

var watched = []datastore.Collection{
	datastore.CollectionSpecimens,
	datastore.CollectionFieldNotes,
	datastore.CollectionTranscripts,
}

// Workspace is one admin session's dashboard. It is safe for concurrent use.
type Workspace struct {
	id  string
	svc *bureau.Service

	mu          sync.RWMutex
	specimens   []datastore.Specimen
	fieldNotes  []datastore.FieldNote
	transcripts []datastore.Transcript
	loaded      map[datastore.Collection]bool
	draft       *Draft

	cancel context.CancelFunc
	subs   []*datastore.Subscription
	wg     sync.WaitGroup
	once   sync.Once
}

// Open starts a workspace. Each collection gets its own change subscription;
// the initial load runs in the background and Loaded reports when it is done.
func Open(ctx context.Context, id string, svc *bureau.Service) *Workspace {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &Workspace{
		id:     id,
		svc:    svc,
		loaded: make(map[datastore.Collection]bool, len(watched)),
		draft:  newDraft(TabSpecimens),
		cancel: cancel,
	}

	for _, c := range watched {
		sub := svc.Store().Subscribe(ctx, c)
		w.subs = append(w.subs, sub)
		w.wg.Add(1)
		go w.follow(ctx, c, sub)
	}
	return w
}

// follow loads collection c once and reloads it on every change event.
// Events are coalesced: a reload always reads the whole collection.
func (w *Workspace) follow(ctx context.Context, c datastore.Collection, sub *datastore.Subscription) {
	defer w.wg.Done()

	w.reload(ctx, c)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
			drain(sub)
			w.reload(ctx, c)
		}
	}
}

// drain discards events already queued behind the one being handled.
func drain(sub *datastore.Subscription) {
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (w *Workspace) reload(ctx context.Context, c datastore.Collection) {
	store := w.svc.Store()
	var err error

	switch c {
	case datastore.CollectionSpecimens:
		var list []datastore.Specimen
		if list, err = store.ListSpecimens(ctx, datastore.OrderByName); err == nil {
			w.mu.Lock()
			w.specimens = list
		}
	case datastore.CollectionFieldNotes:
		var list []datastore.FieldNote
		if list, err = store.ListFieldNotes(ctx, datastore.OrderByCreatedDesc); err == nil {
			w.mu.Lock()
			w.fieldNotes = list
		}
	case datastore.CollectionTranscripts:
		var list []datastore.Transcript
		if list, err = store.ListTranscripts(ctx, datastore.OrderByCreatedDesc); err == nil {
			w.mu.Lock()
			w.transcripts = list
		}
	default:
		return
	}

	if err != nil {
		if ctx.Err() == nil {
			GetLogger().Warn("workspace snapshot refresh failed",
				logger.String("workspace", w.id),
				logger.String("collection", string(c)),
				logger.Error(err))
		}
		return
	}
	w.loaded[c] = true
	w.mu.Unlock()
}

// ID returns the session id the workspace belongs to.
func (w *Workspace) ID() string { return w.id }

// Loaded reports whether every collection has been read at least once.
func (w *Workspace) Loaded() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, c := range watched {
		if !w.loaded[c] {
			return false
		}
	}
	return true
}

// WaitLoaded polls the loaded flag until it is set or ctx ends.
func (w *Workspace) WaitLoaded(ctx context.Context) error {
	if w.Loaded() {
		return nil
	}
	ticker := time.NewTicker(loadPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return errors.New(ctx.Err()).
				Component("workspace").
				Category(errors.CategoryGeneric).
				Context("workspace", w.id).
				Build()
		case <-ticker.C:
			if w.Loaded() {
				return nil
			}
		}
	}
}

// Close cancels the subscriptions and waits for the refresh loops to exit.
func (w *Workspace) Close() {
	w.once.Do(func() {
		w.cancel()
		for _, sub := range w.subs {
			sub.Cancel()
		}
		w.wg.Wait()
	})
}

// Specimens returns the specimen snapshot ordered by name.
func (w *Workspace) Specimens() []datastore.Specimen {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.specimens)
}

// FieldNotes returns the field note snapshot, newest first.
func (w *Workspace) FieldNotes() []datastore.FieldNote {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.fieldNotes)
}

// Transcripts returns the transcript snapshot, newest first.
func (w *Workspace) Transcripts() []datastore.Transcript {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.transcripts)
}

func (w *Workspace) specimenLocked(id string) *datastore.Specimen {
	i := slices.IndexFunc(w.specimens, func(s datastore.Specimen) bool { return s.ID == id })
	if i < 0 {
		return nil
	}
	return &w.specimens[i]
}

// OpenFromQuery applies a dashboard deep link once the snapshots are loaded.
// It reports the tab that was opened; ok is false when the query names no
// deep link.
func (w *Workspace) OpenFromQuery(ctx context.Context, q url.Values) (tab Tab, ok bool, err error) {
	links := []struct {
		param string
		open  func(string) error
		tab   Tab
	}{
		{"edit", w.EditSpecimen, TabSpecimens},
		{"editNote", w.EditFieldNote, TabFieldNotes},
		{"editTranscript", w.EditTranscript, TabTranscripts},
		{"newTranscriptFor", w.NewTranscript, TabTranscripts},
	}

	for _, link := range links {
		id := strings.TrimSpace(q.Get(link.param))
		if id == "" {
			continue
		}
		if err := w.WaitLoaded(ctx); err != nil {
			return "", false, err
		}
		if err := link.open(id); err != nil {
			return "", false, err
		}
		return link.tab, true, nil
	}
	return "", false, nil
}

// SwitchTab shows tab with a fresh draft.
func (w *Workspace) SwitchTab(tab Tab) error {
	switch tab {
	case TabSpecimens, TabFieldNotes, TabTranscripts:
	default:
		return errors.Newf("unknown tab %q", tab).
			Component("workspace").
			Category(errors.CategoryValidation).
			Build()
	}
	w.mu.Lock()
	w.draft = newDraft(tab)
	w.mu.Unlock()
	return nil
}

// EditSpecimen loads specimen id into the draft, including the ids of the
// field notes that currently reference it.
func (w *Workspace) EditSpecimen(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.specimenLocked(id)
	if s == nil {
		return errors.NotFound(string(datastore.CollectionSpecimens), id)
	}

	d := newDraft(TabSpecimens)
	d.EditID = s.ID
	d.Form.Specimen = bureau.SpecimenInput{
		ID:              s.ID,
		Name:            s.Name,
		Codename:        s.Codename,
		Species:         s.Species,
		Status:          s.Status,
		ThreatLevel:     s.ThreatLevel,
		AcquisitionDate: s.AcquisitionDate,
		Location:        s.Location,
		Lore:            s.Lore,
		Notes:           s.Notes,
		Mugshot:         s.Mugshot,
	}
	d.abilities = relations.NewStringTags(s.SpecialAbilities...)
	d.photos = relations.NewStringTags(s.AdditionalPhotos...)
	d.associates = relations.NewAssociateTags(s.KnownAssociates...)

	var linked []string
	for i := range w.fieldNotes {
		if w.fieldNotes[i].RelatedSpecimens.Contains(s.ID) {
			linked = append(linked, w.fieldNotes[i].ID)
		}
	}
	d.linkedNotes = relations.NewStringTags(linked...)

	w.draft = d
	return nil
}

// EditFieldNote loads field note id into the draft.
func (w *Workspace) EditFieldNote(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := slices.IndexFunc(w.fieldNotes, func(n datastore.FieldNote) bool { return n.ID == id })
	if i < 0 {
		return errors.NotFound(string(datastore.CollectionFieldNotes), id)
	}
	n := w.fieldNotes[i]

	d := newDraft(TabFieldNotes)
	d.EditID = n.ID
	d.Form.FieldNote = bureau.FieldNoteInput{
		ID:       n.ID,
		Title:    n.Title,
		Category: n.Category,
		Content:  n.Content,
		Image:    n.Image,
	}
	d.noteSpecimens = relations.NewStringTags(n.RelatedSpecimens...)
	w.draft = d
	return nil
}

// EditTranscript loads transcript id into the draft.
func (w *Workspace) EditTranscript(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := slices.IndexFunc(w.transcripts, func(t datastore.Transcript) bool { return t.ID == id })
	if i < 0 {
		return errors.NotFound(string(datastore.CollectionTranscripts), id)
	}
	tr := w.transcripts[i]

	d := newDraft(TabTranscripts)
	d.EditID = tr.ID
	d.Form.Transcript = bureau.TranscriptInput{
		ID:      tr.ID,
		Title:   tr.Title,
		Date:    tr.Date,
		Content: tr.Content,
	}
	d.transcriptSpecimens = relations.NewStringTags(tr.RelatedSpecimens...)
	w.draft = d
	return nil
}

// NewTranscript starts a new transcript draft with specimenID preselected.
func (w *Workspace) NewTranscript(specimenID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.specimenLocked(specimenID) == nil {
		return errors.NotFound(string(datastore.CollectionSpecimens), specimenID)
	}
	d := newDraft(TabTranscripts)
	d.transcriptSpecimens.Add(specimenID)
	w.draft = d
	return nil
}

// CancelEdit discards the draft and keeps the current tab.
func (w *Workspace) CancelEdit() {
	w.mu.Lock()
	w.draft = newDraft(w.draft.Tab)
	w.mu.Unlock()
}

// SetForm replaces the scalar form fields of the draft.
func (w *Workspace) SetForm(form Form) {
	w.mu.Lock()
	w.draft.Form = form
	w.draft.touch(true)
	w.mu.Unlock()
}
