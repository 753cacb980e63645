// interfaces.go: the datastore interface and its gorm implementation
package datastore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/observability/metrics"
)

// Order selects the listing order.
type Order string

const (
	OrderByName        Order = "name"
	OrderByCreatedDesc Order = "created_desc"
	OrderByTitle       Order = "title"
)

// orderClause maps an Order to a fixed SQL clause. Unknown orders fall back to
// newest first.
func orderClause(o Order) string {
	switch o {
	case OrderByName:
		return "name ASC, id ASC"
	case OrderByTitle:
		return "title ASC, id ASC"
	default:
		return "created_at DESC, id ASC"
	}
}

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error

	SaveSpecimen(ctx context.Context, s *Specimen) error
	GetSpecimen(ctx context.Context, id string) (*Specimen, error)
	ListSpecimens(ctx context.Context, order Order) ([]Specimen, error)
	DeleteSpecimen(ctx context.Context, id string) error
	// SpecimensReferencing returns specimens whose known associates include id.
	SpecimensReferencing(ctx context.Context, id string) ([]Specimen, error)
	// AllSpecimens is an unordered full collection scan.
	AllSpecimens(ctx context.Context) ([]Specimen, error)

	SaveFieldNote(ctx context.Context, n *FieldNote) error
	GetFieldNote(ctx context.Context, id string) (*FieldNote, error)
	ListFieldNotes(ctx context.Context, order Order) ([]FieldNote, error)
	DeleteFieldNote(ctx context.Context, id string) error
	FieldNotesReferencing(ctx context.Context, specimenID string) ([]FieldNote, error)

	SaveTranscript(ctx context.Context, t *Transcript) error
	GetTranscript(ctx context.Context, id string) (*Transcript, error)
	ListTranscripts(ctx context.Context, order Order) ([]Transcript, error)
	DeleteTranscript(ctx context.Context, id string) error
	TranscriptsReferencing(ctx context.Context, specimenID string) ([]Transcript, error)

	GetSettings(ctx context.Context) (*SiteSettings, error)
	SaveSettings(ctx context.Context, s *SiteSettings) error
	// EnsureSettings creates the settings row from defaults when none exists
	// and returns the stored row.
	EnsureSettings(ctx context.Context, defaults *SiteSettings) (current *SiteSettings, created bool, err error)

	// Subscribe returns a handle receiving change events for the collections.
	Subscribe(ctx context.Context, collections ...Collection) *Subscription
}

// DataStore implements Interface on a gorm database.
type DataStore struct {
	DB      *gorm.DB
	feed    *Feed
	metrics *metrics.DatastoreMetrics
}

// New returns a store for the configured driver. Call Open before use.
func New(settings *conf.Settings, m *metrics.DatastoreMetrics) (Interface, error) {
	base := DataStore{feed: NewFeed(m), metrics: m}
	switch settings.Database.Driver {
	case conf.DriverSQLite:
		return &SQLiteStore{DataStore: base, Settings: settings}, nil
	case conf.DriverMySQL:
		return &MySQLStore{DataStore: base, Settings: settings}, nil
	default:
		return nil, validationError("unsupported database driver", "database.driver", settings.Database.Driver)
	}
}

// NewWithDB wraps an already opened gorm database and migrates it.
func NewWithDB(db *gorm.DB, m *metrics.DatastoreMetrics) (*DataStore, error) {
	ds := &DataStore{DB: db, feed: NewFeed(m), metrics: m}
	if err := performAutoMigration(db, "custom"); err != nil {
		return nil, err
	}
	return ds, nil
}

// Open is a no-op for stores built with NewWithDB.
func (ds *DataStore) Open() error {
	if ds.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	return nil
}

// Close stops the change feed and closes the connection pool.
func (ds *DataStore) Close() error {
	ds.feed.Close()
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic DB object: %w", err)
	}
	return sqlDB.Close()
}

// Subscribe implements Interface.
func (ds *DataStore) Subscribe(ctx context.Context, collections ...Collection) *Subscription {
	return ds.feed.Subscribe(ctx, DefaultSubscriptionBuffer, collections...)
}

func performAutoMigration(db *gorm.DB, dbType string) error {
	start := time.Now()
	if err := db.AutoMigrate(&Specimen{}, &FieldNote{}, &Transcript{}, &SiteSettings{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}
	GetLogger().Debug("database migration complete",
		logger.String("db_type", dbType),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func (ds *DataStore) observe(operation string, collection Collection, start time.Time, err error) {
	ds.metrics.ObserveOperation(operation, string(collection), time.Since(start), err)
}

func (ds *DataStore) publish(collection Collection, op Op, id string) {
	ds.feed.Publish(ChangeEvent{Collection: collection, Op: op, ID: id, At: time.Now()})
}

// save inserts rows without an id (assigning one) and upserts the rest.
func save[T any](ctx context.Context, ds *DataStore, collection Collection, id *string, record *T) (err error) {
	start := time.Now()
	defer func() { ds.observe(metrics.OpSave, collection, start, err) }()

	op := OpUpdate
	db := ds.DB.WithContext(ctx)
	if *id == "" {
		*id = uuid.NewString()
		op = OpCreate
		err = db.Create(record).Error
	} else {
		err = db.Save(record).Error
	}
	if err != nil {
		return dbError(err, "save", collection, "id", *id)
	}

	ds.publish(collection, op, *id)
	return nil
}

func get[T any](ctx context.Context, ds *DataStore, collection Collection, id string) (_ *T, err error) {
	start := time.Now()
	defer func() { ds.observe(metrics.OpGet, collection, start, err) }()

	if strings.TrimSpace(id) == "" {
		return nil, notFoundError(collection, id)
	}
	var record T
	if err = ds.DB.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, lookupError(err, "get", collection, id)
	}
	return &record, nil
}

func list[T any](ctx context.Context, ds *DataStore, collection Collection, order string) (_ []T, err error) {
	start := time.Now()
	defer func() { ds.observe(metrics.OpList, collection, start, err) }()

	var records []T
	q := ds.DB.WithContext(ctx)
	if order != "" {
		q = q.Order(order)
	}
	if err = q.Find(&records).Error; err != nil {
		return nil, dbError(err, "list", collection)
	}
	return records, nil
}

func remove[T any](ctx context.Context, ds *DataStore, collection Collection, id string) (err error) {
	start := time.Now()
	defer func() { ds.observe(metrics.OpDelete, collection, start, err) }()

	var record T
	result := ds.DB.WithContext(ctx).Where("id = ?", id).Delete(&record)
	if result.Error != nil {
		return dbError(result.Error, "delete", collection, "id", id)
	}
	if result.RowsAffected == 0 {
		return notFoundError(collection, id)
	}

	ds.publish(collection, OpDelete, id)
	return nil
}

// referencing returns rows whose JSON list column mentions id. The LIKE filter
// is a portable prefilter; match decides membership exactly.
func referencing[T any](ctx context.Context, ds *DataStore, collection Collection, column, id string, match func(*T) bool) (_ []T, err error) {
	start := time.Now()
	defer func() { ds.observe(metrics.OpQuery, collection, start, err) }()

	if strings.TrimSpace(id) == "" {
		return nil, nil
	}

	var candidates []T
	pattern := "%" + escapeLike(`"`+id+`"`) + "%"
	err = ds.DB.WithContext(ctx).
		Where(column+" LIKE ? ESCAPE '!'", pattern).
		Order("created_at DESC, id ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, dbError(err, "referencing", collection, "id", id)
	}

	out := candidates[:0]
	for i := range candidates {
		if match(&candidates[i]) {
			out = append(out, candidates[i])
		}
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Specimens

func (ds *DataStore) SaveSpecimen(ctx context.Context, s *Specimen) error {
	s.KnownAssociates = s.KnownAssociates.Normalize()
	return save(ctx, ds, CollectionSpecimens, &s.ID, s)
}

func (ds *DataStore) GetSpecimen(ctx context.Context, id string) (*Specimen, error) {
	return get[Specimen](ctx, ds, CollectionSpecimens, id)
}

func (ds *DataStore) ListSpecimens(ctx context.Context, order Order) ([]Specimen, error) {
	if order == OrderByTitle {
		order = OrderByName
	}
	return list[Specimen](ctx, ds, CollectionSpecimens, orderClause(order))
}

func (ds *DataStore) DeleteSpecimen(ctx context.Context, id string) error {
	return remove[Specimen](ctx, ds, CollectionSpecimens, id)
}

func (ds *DataStore) SpecimensReferencing(ctx context.Context, id string) ([]Specimen, error) {
	return referencing(ctx, ds, CollectionSpecimens, "known_associates", id, func(s *Specimen) bool {
		return s.ID != id && s.KnownAssociates.Contains(id)
	})
}

func (ds *DataStore) AllSpecimens(ctx context.Context) (_ []Specimen, err error) {
	start := time.Now()
	defer func() { ds.observe(metrics.OpScan, CollectionSpecimens, start, err) }()

	var records []Specimen
	if err = ds.DB.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, dbError(err, "scan", CollectionSpecimens)
	}
	return records, nil
}

// Field notes

func (ds *DataStore) SaveFieldNote(ctx context.Context, n *FieldNote) error {
	n.RelatedSpecimens = n.RelatedSpecimens.Dedupe()
	return save(ctx, ds, CollectionFieldNotes, &n.ID, n)
}

func (ds *DataStore) GetFieldNote(ctx context.Context, id string) (*FieldNote, error) {
	return get[FieldNote](ctx, ds, CollectionFieldNotes, id)
}

func (ds *DataStore) ListFieldNotes(ctx context.Context, order Order) ([]FieldNote, error) {
	if order == OrderByName {
		order = OrderByTitle
	}
	return list[FieldNote](ctx, ds, CollectionFieldNotes, orderClause(order))
}

func (ds *DataStore) DeleteFieldNote(ctx context.Context, id string) error {
	return remove[FieldNote](ctx, ds, CollectionFieldNotes, id)
}

func (ds *DataStore) FieldNotesReferencing(ctx context.Context, specimenID string) ([]FieldNote, error) {
	return referencing(ctx, ds, CollectionFieldNotes, "related_specimens", specimenID, func(n *FieldNote) bool {
		return n.RelatedSpecimens.Contains(specimenID)
	})
}

// Transcripts

func (ds *DataStore) SaveTranscript(ctx context.Context, t *Transcript) error {
	t.RelatedSpecimens = t.RelatedSpecimens.Dedupe()
	return save(ctx, ds, CollectionTranscripts, &t.ID, t)
}

func (ds *DataStore) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	return get[Transcript](ctx, ds, CollectionTranscripts, id)
}

func (ds *DataStore) ListTranscripts(ctx context.Context, order Order) ([]Transcript, error) {
	if order == OrderByName {
		order = OrderByTitle
	}
	return list[Transcript](ctx, ds, CollectionTranscripts, orderClause(order))
}

func (ds *DataStore) DeleteTranscript(ctx context.Context, id string) error {
	return remove[Transcript](ctx, ds, CollectionTranscripts, id)
}

func (ds *DataStore) TranscriptsReferencing(ctx context.Context, specimenID string) ([]Transcript, error) {
	return referencing(ctx, ds, CollectionTranscripts, "related_specimens", specimenID, func(t *Transcript) bool {
		return t.RelatedSpecimens.Contains(specimenID)
	})
}

// Settings

func (ds *DataStore) GetSettings(ctx context.Context) (*SiteSettings, error) {
	return get[SiteSettings](ctx, ds, CollectionSettings, SettingsID)
}

func (ds *DataStore) SaveSettings(ctx context.Context, s *SiteSettings) (err error) {
	start := time.Now()
	defer func() { ds.observe(metrics.OpSave, CollectionSettings, start, err) }()

	s.ID = SettingsID
	s.AllowedAdmins = s.AllowedAdmins.Dedupe()
	if err = ds.DB.WithContext(ctx).Save(s).Error; err != nil {
		return dbError(err, "save", CollectionSettings)
	}
	ds.publish(CollectionSettings, OpUpdate, SettingsID)
	return nil
}

func (ds *DataStore) EnsureSettings(ctx context.Context, defaults *SiteSettings) (_ *SiteSettings, created bool, err error) {
	start := time.Now()
	defer func() { ds.observe(metrics.OpSave, CollectionSettings, start, err) }()

	row := *defaults
	row.ID = SettingsID
	row.AllowedAdmins = row.AllowedAdmins.Dedupe()

	var current SiteSettings
	result := ds.DB.WithContext(ctx).
		Where(SiteSettings{ID: SettingsID}).
		Attrs(row).
		FirstOrCreate(&current)
	if result.Error != nil {
		return nil, false, dbError(result.Error, "ensure", CollectionSettings)
	}

	created = result.RowsAffected > 0
	if created {
		ds.publish(CollectionSettings, OpCreate, SettingsID)
	}
	return &current, created, nil
}
