package bureau

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/relations"
)

// AssociateView is a merged associate resolved against its specimen.
type AssociateView struct {
	relations.MergedAssociate
	Name    string `json:"name"`
	Mugshot string `json:"mugshot,omitempty"`
}

// Dossier is everything the detail page shows for one specimen.
type Dossier struct {
	Specimen    *datastore.Specimen    `json:"specimen"`
	Associates  []AssociateView        `json:"associates"`
	FieldNotes  []datastore.FieldNote  `json:"fieldNotes"`
	Transcripts []datastore.Transcript `json:"transcripts"`
}

// Dossier loads a specimen with its merged associates, linked field notes and
// transcripts. The three lookups run concurrently once the specimen is known.
func (s *Service) Dossier(ctx context.Context, id string) (*Dossier, error) {
	specimen, err := s.store.GetSpecimen(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Dossier{Specimen: specimen}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		all, err := s.allSpecimens(gctx)
		if err != nil {
			return err
		}
		d.Associates = resolveAssociates(specimen, all)
		return nil
	})
	g.Go(func() error {
		notes, err := s.store.FieldNotesReferencing(gctx, specimen.ID)
		d.FieldNotes = notes
		return err
	})
	g.Go(func() error {
		transcripts, err := s.store.TranscriptsReferencing(gctx, specimen.ID)
		d.Transcripts = transcripts
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if d.FieldNotes == nil {
		d.FieldNotes = []datastore.FieldNote{}
	}
	if d.Transcripts == nil {
		d.Transcripts = []datastore.Transcript{}
	}
	return d, nil
}

// resolveAssociates merges both link directions and attaches display data.
func resolveAssociates(target *datastore.Specimen, all []datastore.Specimen) []AssociateView {
	byID := make(map[string]*datastore.Specimen, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
	}

	merged := relations.MergeAssociates(target.ID, target.KnownAssociates, relations.SiblingsOf(all))
	views := make([]AssociateView, 0, len(merged))
	for _, m := range merged {
		view := AssociateView{MergedAssociate: m, Name: UnknownAssociate}
		if sib, ok := byID[m.ID]; ok {
			view.Name = AssociateName(sib)
			view.Mugshot = sib.Mugshot
		}
		views = append(views, view)
	}
	return views
}

// LinkedNoteIDs returns the ids of the field notes referencing a specimen,
// the selection shown in the specimen editor.
func (s *Service) LinkedNoteIDs(ctx context.Context, specimenID string) ([]string, error) {
	notes, err := s.store.FieldNotesReferencing(ctx, specimenID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(notes))
	for i := range notes {
		ids[i] = notes[i].ID
	}
	return ids, nil
}
