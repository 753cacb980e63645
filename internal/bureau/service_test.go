package bureau

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/relations"
)

var agent = Actor{Email: "handler@bureau.example"}

func newTestService(t *testing.T) (*Service, datastore.Interface) {
	t.Helper()

	settings := &conf.Settings{}
	settings.Database.Driver = conf.DriverSQLite
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "bureau.db")

	store, err := datastore.New(settings, nil)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	return New(store, Options{}), store
}

func mustSpecimen(t *testing.T, svc *Service, in SpecimenInput) *datastore.Specimen {
	t.Helper()
	if in.Mugshot == "" && in.ID == "" {
		in.Mugshot = "https://img.example/" + in.Name + ".png"
	}
	res, err := svc.SaveSpecimen(context.Background(), agent, in, nil)
	require.NoError(t, err)
	return res.Specimen
}

func TestSaveSpecimenRejectsBeforeWriting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)

	tests := []struct {
		name    string
		in      SpecimenInput
		wantMsg string
	}{
		{"missing mugshot", SpecimenInput{Name: "Peepy"}, MsgMugshotRequired},
		{"missing name", SpecimenInput{Mugshot: "https://img.example/p.png"}, MsgNameRequired},
		{"bad status", SpecimenInput{Name: "P", Mugshot: "m", Status: "ASLEEP"}, "invalid status"},
		{"bad threat", SpecimenInput{Name: "P", Mugshot: "m", ThreatLevel: "APOCALYPTIC"}, "invalid threatLevel"},
	}
	for _, tt := range tests {
		_, err := svc.SaveSpecimen(ctx, agent, tt.in, nil)
		require.Error(t, err, tt.name)
		assert.True(t, errors.IsValidation(err), tt.name)
		assert.Contains(t, err.Error(), tt.wantMsg, tt.name)
	}

	all, err := store.AllSpecimens(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSaveSpecimenCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	res, err := svc.SaveSpecimen(ctx, agent, SpecimenInput{
		Name:             "  Peepy ",
		Mugshot:          "https://img.example/peepy.png",
		SpecialAbilities: []string{"flight", "flight", " mimicry "},
		AdditionalPhotos: []string{"a.png", "", "a.png"},
	}, nil)
	require.NoError(t, err)

	sp := res.Specimen
	assert.True(t, res.Created)
	assert.NotEmpty(t, sp.ID)
	assert.Equal(t, "Peepy", sp.Name)
	assert.Equal(t, datastore.StatusActive, sp.Status)
	assert.Equal(t, datastore.ThreatLow, sp.ThreatLevel)
	assert.Equal(t, agent.Email, sp.CreatedBy)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), sp.AgentNumber)
	assert.Equal(t, datastore.StringList{"flight", "mimicry"}, sp.SpecialAbilities)
	assert.Equal(t, datastore.StringList{"a.png"}, sp.AdditionalPhotos)
	assert.Empty(t, res.Warning)
}

func TestSaveSpecimenUpdateKeepsIdentity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)
	svc.agentNumber = func() string { return "000042" }

	created := mustSpecimen(t, svc, SpecimenInput{Name: "Peepy"})
	other := mustSpecimen(t, svc, SpecimenInput{Name: "Sparrow"})

	res, err := svc.SaveSpecimen(ctx, Actor{Email: "someone-else@bureau.example"}, SpecimenInput{
		ID:          created.ID,
		Name:        "Peepy",
		Status:      datastore.StatusMissing,
		ThreatLevel: datastore.ThreatHigh,
		KnownAssociates: datastore.Associates{
			{ID: created.ID, Relation: "self"},
			{ID: other.ID, Relation: "rival"},
			{ID: other.ID, Relation: "dup"},
		},
	}, nil)
	require.NoError(t, err, "mugshot is only required on create")

	sp := res.Specimen
	assert.False(t, res.Created)
	assert.Equal(t, created.ID, sp.ID)
	assert.Equal(t, agent.Email, sp.CreatedBy)
	assert.Equal(t, "000042", sp.AgentNumber)
	assert.WithinDuration(t, created.CreatedAt, sp.CreatedAt, time.Millisecond)
	assert.Equal(t, datastore.Associates{{ID: other.ID, Relation: "rival"}}, sp.KnownAssociates)
}

func TestSaveSpecimenUnknownIDIsNotFound(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.SaveSpecimen(context.Background(), agent, SpecimenInput{ID: "nope", Name: "x"}, nil)
	assert.True(t, errors.IsNotFound(err))
}

func TestSaveSpecimenPropagatesNoteLinks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)

	sp := mustSpecimen(t, svc, SpecimenInput{Name: "Peepy"})

	var ids []string
	for _, title := range []string{"N1", "N2", "N3"} {
		n, err := svc.SaveFieldNote(ctx, agent, FieldNoteInput{Title: title})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	n1, n2, n3 := ids[0], ids[1], ids[2]

	_, err := svc.SaveSpecimen(ctx, agent, SpecimenInput{ID: sp.ID, Name: "Peepy"}, []string{n1, n2})
	require.NoError(t, err)

	res, err := svc.SaveSpecimen(ctx, agent, SpecimenInput{ID: sp.ID, Name: "Peepy"}, []string{n2, n3})
	require.NoError(t, err)
	assert.Equal(t, []string{n3}, res.CrossLink.Added)
	assert.Equal(t, []string{n1}, res.CrossLink.Removed)
	assert.Empty(t, res.CrossLink.Failed)

	linked, err := svc.LinkedNoteIDs(ctx, sp.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{n2, n3}, linked)

	got, err := store.GetFieldNote(ctx, n1)
	require.NoError(t, err)
	assert.NotContains(t, got.RelatedSpecimens, sp.ID)

	// nil selection leaves links alone
	res, err = svc.SaveSpecimen(ctx, agent, SpecimenInput{ID: sp.ID, Name: "Peepy"}, nil)
	require.NoError(t, err)
	assert.Equal(t, relations.CrossLinkResult{Added: []string{}, Removed: []string{}}, res.CrossLink)
	linked, err = svc.LinkedNoteIDs(ctx, sp.ID)
	require.NoError(t, err)
	assert.Len(t, linked, 2)
}

func TestSaveSpecimenReportsPartialCrossLinkFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	sp := mustSpecimen(t, svc, SpecimenInput{Name: "Peepy"})
	note, err := svc.SaveFieldNote(ctx, agent, FieldNoteInput{Title: "real"})
	require.NoError(t, err)

	res, err := svc.SaveSpecimen(ctx, agent, SpecimenInput{ID: sp.ID, Name: "Peepy"}, []string{note.ID, "deleted-note"})
	require.NoError(t, err, "the specimen itself is saved")
	assert.Equal(t, []string{note.ID}, res.CrossLink.Added)
	assert.Contains(t, res.CrossLink.Failed, "deleted-note")
	assert.Contains(t, res.Warning, "could not be updated")
}

// failingLookupStore fails the note lookup that runs after the specimen write.
type failingLookupStore struct {
	datastore.Interface
}

func (failingLookupStore) FieldNotesReferencing(context.Context, string) ([]datastore.FieldNote, error) {
	return nil, errors.NewStd("lookup unavailable")
}

func TestSaveSpecimenSurvivesNoteLookupFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, store := newTestService(t)
	svc := New(failingLookupStore{Interface: store}, Options{})

	in := SpecimenInput{Name: "Peepy", Mugshot: "https://img.example/peepy.png"}
	res, err := svc.SaveSpecimen(ctx, agent, in, []string{"note-1"})
	require.NoError(t, err, "the specimen write already succeeded")
	require.NotNil(t, res)
	assert.True(t, res.Created)
	assert.NotEmpty(t, res.Specimen.ID)
	assert.Contains(t, res.Warning, "lookup unavailable")
	assert.Empty(t, res.CrossLink.Added)

	// a client that got an id back updates instead of creating again
	in.ID = res.Specimen.ID
	_, err = svc.SaveSpecimen(ctx, agent, in, []string{"note-1"})
	require.NoError(t, err)

	all, err := store.ListSpecimens(ctx, datastore.OrderByName)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteSpecimenRequiresConfirmation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	sp := mustSpecimen(t, svc, SpecimenInput{Name: "Peepy"})

	err := svc.DeleteSpecimen(ctx, sp.ID, "")
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), MsgConfirmationMissing)

	err = svc.DeleteSpecimen(ctx, sp.ID, "Sparrow")
	assert.Contains(t, err.Error(), MsgConfirmationWrong)

	require.NoError(t, svc.DeleteSpecimen(ctx, sp.ID, "peepy"))
	_, err = svc.GetSpecimen(ctx, sp.ID)
	assert.True(t, errors.IsNotFound(err))

	assert.True(t, errors.IsNotFound(svc.DeleteSpecimen(ctx, sp.ID, sp.ID)))
}

func TestSaveTranscriptRequiresSpecimen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, store := newTestService(t)

	_, err := svc.SaveTranscript(ctx, agent, TranscriptInput{Title: "Interview", RelatedSpecimens: []string{" ", ""}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), MsgSpecimenRequired)

	all, err := store.ListTranscripts(ctx, datastore.OrderByCreatedDesc)
	require.NoError(t, err)
	assert.Empty(t, all)

	tr, err := svc.SaveTranscript(ctx, agent, TranscriptInput{Title: "Interview", RelatedSpecimens: []string{"s1", "s1", "s2"}})
	require.NoError(t, err)
	assert.Equal(t, datastore.StringList{"s1", "s2"}, tr.RelatedSpecimens)

	tr, err = svc.SaveTranscript(ctx, agent, TranscriptInput{ID: tr.ID, Title: "Interview II", RelatedSpecimens: []string{"s2"}})
	require.NoError(t, err)
	assert.Equal(t, "Interview II", tr.Title)

	require.NoError(t, svc.DeleteTranscript(ctx, tr.ID))
	assert.True(t, errors.IsNotFound(svc.DeleteTranscript(ctx, tr.ID)))
}

func TestSaveFieldNoteValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.SaveFieldNote(ctx, agent, FieldNoteInput{Title: " "})
	assert.True(t, errors.IsValidation(err))

	_, err = svc.SaveFieldNote(ctx, agent, FieldNoteInput{Title: "x", Category: "GOSSIP"})
	assert.True(t, errors.IsValidation(err))

	n, err := svc.SaveFieldNote(ctx, agent, FieldNoteInput{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, datastore.CategoryOther, n.Category)
	assert.Equal(t, agent.Email, n.CreatedBy)

	require.NoError(t, svc.DeleteFieldNote(ctx, n.ID))
}
