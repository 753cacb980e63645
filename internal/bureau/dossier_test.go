package bureau

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/relations"
)

func TestDossierMergesAssociatesAndLinks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	a := mustSpecimen(t, svc, SpecimenInput{Name: "Alpha", Codename: "SUNBEAM"})
	b := mustSpecimen(t, svc, SpecimenInput{Name: "Bravo"})
	c := mustSpecimen(t, svc, SpecimenInput{Name: "Charlie", Codename: "GLOOM"})

	_, err := svc.SaveSpecimen(ctx, agent, SpecimenInput{
		ID: a.ID, Name: "Alpha", Codename: "SUNBEAM",
		KnownAssociates: datastore.Associates{{ID: b.ID, Relation: "mentor"}, {ID: "ghost"}},
	}, nil)
	require.NoError(t, err)
	_, err = svc.SaveSpecimen(ctx, agent, SpecimenInput{
		ID: b.ID, Name: "Bravo", Mugshot: b.Mugshot,
		KnownAssociates: datastore.Associates{{ID: a.ID, Relation: "apprentice"}},
	}, nil)
	require.NoError(t, err)
	_, err = svc.SaveSpecimen(ctx, agent, SpecimenInput{
		ID: c.ID, Name: "Charlie", Codename: "GLOOM",
		KnownAssociates: datastore.Associates{{ID: a.ID, Relation: "nemesis"}},
	}, nil)
	require.NoError(t, err)

	note, err := svc.SaveFieldNote(ctx, agent, FieldNoteInput{Title: "Sighting", RelatedSpecimens: []string{a.ID}})
	require.NoError(t, err)
	tr, err := svc.SaveTranscript(ctx, agent, TranscriptInput{Title: "Interview", RelatedSpecimens: []string{a.ID, b.ID}})
	require.NoError(t, err)

	d, err := svc.Dossier(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "SUNBEAM", d.Specimen.Codename)

	require.Len(t, d.Associates, 2)
	assert.Equal(t, AssociateView{
		MergedAssociate: relations.MergedAssociate{
			ID: b.ID, Direction: relations.DirectionOutgoing,
			Relation: "mentor", IncomingRelation: "apprentice", Mutual: true,
		},
		Name:    "Bravo",
		Mugshot: "https://img.example/Bravo.png",
	}, d.Associates[0])
	assert.Equal(t, relations.DirectionIncoming, d.Associates[1].Direction)
	assert.Equal(t, "GLOOM", d.Associates[1].Name)
	assert.Equal(t, "nemesis", d.Associates[1].IncomingRelation)

	require.Len(t, d.FieldNotes, 1)
	assert.Equal(t, note.ID, d.FieldNotes[0].ID)
	require.Len(t, d.Transcripts, 1)
	assert.Equal(t, tr.ID, d.Transcripts[0].ID)
}

func TestDossierSeesFreshSiblingsAfterSave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	a := mustSpecimen(t, svc, SpecimenInput{Name: "Alpha"})
	d, err := svc.Dossier(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, d.Associates)

	mustSpecimen(t, svc, SpecimenInput{Name: "Late", KnownAssociates: datastore.Associates{{ID: a.ID}}})

	d, err = svc.Dossier(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, d.Associates, 1)
	assert.Equal(t, "Late", d.Associates[0].Name)
}

func TestDossierNotFound(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.Dossier(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestGalleryFiltersAndSorts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	mustSpecimen(t, svc, SpecimenInput{Name: "bravo", ThreatLevel: datastore.ThreatLow})
	mustSpecimen(t, svc, SpecimenInput{Name: "Alpha", ThreatLevel: datastore.ThreatCritical, Status: datastore.StatusMissing})
	mustSpecimen(t, svc, SpecimenInput{Name: "Charlie", ThreatLevel: datastore.ThreatMedium})

	names := func(list []datastore.Specimen) []string {
		out := make([]string, len(list))
		for i := range list {
			out[i] = list[i].Name
		}
		return out
	}

	byName, err := svc.Gallery(ctx, GalleryFilter{Sort: SortName})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "bravo", "Charlie"}, names(byName))

	byThreat, err := svc.Gallery(ctx, GalleryFilter{Sort: SortThreat})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Charlie", "bravo"}, names(byThreat))

	missing, err := svc.Gallery(ctx, GalleryFilter{Status: datastore.StatusMissing})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha"}, names(missing))

	none, err := svc.Gallery(ctx, GalleryFilter{Status: datastore.StatusMissing, Threat: datastore.ThreatLow})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestThreatRankPutsUnknownLast(t *testing.T) {
	t.Parallel()

	assert.Less(t, threatRank(datastore.ThreatCritical), threatRank(datastore.ThreatHigh))
	assert.Less(t, threatRank(datastore.ThreatLow), threatRank("UNKNOWN"))
}

func TestFieldNotesFilterAndSort(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	for _, in := range []FieldNoteInput{
		{Title: "zeta", Category: datastore.CategorySpecies},
		{Title: "Alpha", Category: datastore.CategoryLocation},
		{Title: "mid", Category: datastore.CategorySpecies},
	} {
		_, err := svc.SaveFieldNote(ctx, agent, in)
		require.NoError(t, err)
	}

	byTitle, err := svc.FieldNotes(ctx, NoteFilter{Sort: NoteSortTitle})
	require.NoError(t, err)
	require.Len(t, byTitle, 3)
	assert.Equal(t, "Alpha", byTitle[0].Title)
	assert.Equal(t, "zeta", byTitle[2].Title)

	byCategory, err := svc.FieldNotes(ctx, NoteFilter{Sort: NoteSortCategory})
	require.NoError(t, err)
	assert.Equal(t, datastore.CategoryLocation, byCategory[0].Category)

	species, err := svc.FieldNotes(ctx, NoteFilter{Category: datastore.CategorySpecies})
	require.NoError(t, err)
	assert.Len(t, species, 2)
}
