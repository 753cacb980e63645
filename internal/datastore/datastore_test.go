package datastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/observability/metrics"
)

// newTestStore opens a file-backed SQLite store in a temp dir.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Database.Driver = conf.DriverSQLite
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "nested", "bpi.db")

	ds, err := New(settings, nil)
	require.NoError(t, err)
	require.NoError(t, ds.Open())
	t.Cleanup(func() { _ = ds.Close() })

	store, ok := ds.(*SQLiteStore)
	require.True(t, ok, "sqlite driver must yield *SQLiteStore")
	return store
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Database.Driver = "oracle"
	_, err := New(settings, nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestSpecimenCRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	s := &Specimen{Name: "Peepy", Codename: "SUNBEAM", Status: StatusActive, ThreatLevel: ThreatLow}
	require.NoError(t, store.SaveSpecimen(ctx, s))
	require.NotEmpty(t, s.ID, "save must assign an id")

	got, err := store.GetSpecimen(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "SUNBEAM", got.Codename)
	assert.False(t, got.CreatedAt.IsZero())
	assert.NotNil(t, got.KnownAssociates)

	got.Status = StatusRetired
	require.NoError(t, store.SaveSpecimen(ctx, got))

	again, err := store.GetSpecimen(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRetired, again.Status)

	require.NoError(t, store.DeleteSpecimen(ctx, s.ID))

	_, err = store.GetSpecimen(ctx, s.ID)
	assert.True(t, errors.IsNotFound(err))

	err = store.DeleteSpecimen(ctx, s.ID)
	assert.True(t, errors.IsNotFound(err), "deleting twice reports not found")
}

func TestSaveWithUnknownIDInserts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	n := &FieldNote{ID: "fixed-id", Title: "Seed Vault", Category: CategoryLocation}
	require.NoError(t, store.SaveFieldNote(ctx, n))

	got, err := store.GetFieldNote(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, "Seed Vault", got.Title)
}

func TestGetBlankIDIsNotFound(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, err := store.GetTranscript(context.Background(), "  ")
	assert.True(t, errors.IsNotFound(err))
}

func TestListOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	for _, name := range []string{"Zed", "alpha", "Mango"} {
		require.NoError(t, store.SaveSpecimen(ctx, &Specimen{Name: name}))
	}
	for _, title := range []string{"b-note", "a-note"} {
		require.NoError(t, store.SaveFieldNote(ctx, &FieldNote{Title: title}))
	}

	specimens, err := store.ListSpecimens(ctx, OrderByName)
	require.NoError(t, err)
	require.Len(t, specimens, 3)
	// binary collation sorts uppercase first
	assert.Equal(t, []string{"Mango", "Zed", "alpha"},
		[]string{specimens[0].Name, specimens[1].Name, specimens[2].Name})

	notes, err := store.ListFieldNotes(ctx, OrderByTitle)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "a-note", notes[0].Title)

	all, err := store.AllSpecimens(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReferencingQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	target := &Specimen{ID: "tar_get", Name: "Target"}
	lookalike := &Specimen{ID: "tarXget", Name: "Lookalike"}
	require.NoError(t, store.SaveSpecimen(ctx, target))
	require.NoError(t, store.SaveSpecimen(ctx, lookalike))

	friend := &Specimen{Name: "Friend", KnownAssociates: Associates{{ID: "tar_get", Relation: "ally"}}}
	other := &Specimen{Name: "Other", KnownAssociates: Associates{{ID: "tarXget"}}}
	require.NoError(t, store.SaveSpecimen(ctx, friend))
	require.NoError(t, store.SaveSpecimen(ctx, other))

	refs, err := store.SpecimensReferencing(ctx, "tar_get")
	require.NoError(t, err)
	require.Len(t, refs, 1, "underscore must not act as a wildcard")
	assert.Equal(t, friend.ID, refs[0].ID)

	note := &FieldNote{Title: "Sighting", RelatedSpecimens: StringList{"tar_get", "tar_get"}}
	require.NoError(t, store.SaveFieldNote(ctx, note))
	assert.Equal(t, StringList{"tar_get"}, note.RelatedSpecimens)

	tr := &Transcript{Title: "Interview", RelatedSpecimens: StringList{"tarXget"}}
	require.NoError(t, store.SaveTranscript(ctx, tr))

	notes, err := store.FieldNotesReferencing(ctx, "tar_get")
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	transcripts, err := store.TranscriptsReferencing(ctx, "tar_get")
	require.NoError(t, err)
	assert.Empty(t, transcripts)

	transcripts, err = store.TranscriptsReferencing(ctx, "tarXget")
	require.NoError(t, err)
	assert.Len(t, transcripts, 1)

	none, err := store.SpecimensReferencing(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLegacyAssociatesReadBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.DB.Exec(
		`INSERT INTO specimens (id, name, known_associates, additional_photos, special_abilities, created_at, updated_at)
		 VALUES (?, ?, ?, '[]', '[]', ?, ?)`,
		"legacy", "Old Record", `["a", {"id":"b","relation":"cousin"}, "a"]`, time.Now(), time.Now()).Error)

	got, err := store.GetSpecimen(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, Associates{{ID: "a"}, {ID: "b", Relation: "cousin"}}, got.KnownAssociates)
}

func TestEnsureSettingsCreatesOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetSettings(ctx)
	assert.True(t, errors.IsNotFound(err))

	first, created, err := store.EnsureSettings(ctx, &SiteSettings{
		AllowedAdmins:  StringList{"first@bureau.example"},
		MarqueeMessage: "hello",
		SiteStatus:     SiteOperational,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, StringList{"first@bureau.example"}, first.AllowedAdmins)

	second, created, err := store.EnsureSettings(ctx, &SiteSettings{AllowedAdmins: StringList{"late@bureau.example"}})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, StringList{"first@bureau.example"}, second.AllowedAdmins)

	second.SiteStatus = SiteLockdown
	require.NoError(t, store.SaveSettings(ctx, second))

	got, err := store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, SiteLockdown, got.SiteStatus)
}

func TestWritesPublishChangeEvents(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := newTestStore(t)

	sub := store.Subscribe(ctx, CollectionSpecimens)

	s := &Specimen{Name: "Watched"}
	require.NoError(t, store.SaveSpecimen(ctx, s))
	require.NoError(t, store.SaveSpecimen(ctx, s))
	require.NoError(t, store.DeleteSpecimen(ctx, s.ID))
	require.NoError(t, store.SaveFieldNote(ctx, &FieldNote{Title: "ignored"}))

	var ops []Op
	for range 3 {
		ev := receive(t, sub)
		assert.Equal(t, s.ID, ev.ID)
		ops = append(ops, ev.Op)
	}
	assert.Equal(t, []Op{OpCreate, OpUpdate, OpDelete}, ops)
	assert.Empty(t, sub.Events())
}

func TestOperationsRecordMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := metrics.NewDatastoreMetrics(registry)
	require.NoError(t, err)

	settings := &conf.Settings{}
	settings.Database.Driver = conf.DriverSQLite
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "metrics.db")
	ds, err := New(settings, m)
	require.NoError(t, err)
	require.NoError(t, ds.Open())
	defer ds.Close()

	ctx := context.Background()
	require.NoError(t, ds.SaveTranscript(ctx, &Transcript{Title: "t"}))
	_, err = ds.GetTranscript(ctx, "missing")
	require.Error(t, err)

	count, err := testutil.GatherAndCount(registry, "bpi_datastore_operation_duration_seconds")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 2)
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `a!_b!%c!!d`, escapeLike(`a_b%c!d`))
}

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	dsn := mysqlDSN(conf.MySQLSettings{
		Host: "db.internal", Port: 3306, Username: "agent", Password: "p@ss:word", Database: "bpi",
	})
	assert.Contains(t, dsn, "agent:p@ss:word@tcp(db.internal:3306)/bpi")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")

	settings := &conf.Settings{}
	settings.Database.MySQL = conf.MySQLSettings{Host: "db", Database: "bpi", Port: 0}
	assert.Error(t, validateMySQLConfig(settings))
}
