// model.go defines the records stored by the dossier service
package datastore

import (
	"slices"
	"time"
)

// Collection names a record collection. The names double as change feed topics.
type Collection string

const (
	CollectionSpecimens   Collection = "specimens"
	CollectionFieldNotes  Collection = "fieldNotes"
	CollectionTranscripts Collection = "transcripts"
	CollectionSettings    Collection = "settings"
)

// AllCollections lists every collection in display order.
var AllCollections = []Collection{CollectionSpecimens, CollectionFieldNotes, CollectionTranscripts, CollectionSettings}

// ParseCollection returns the collection named s.
func ParseCollection(s string) (Collection, bool) {
	c := Collection(s)
	return c, slices.Contains(AllCollections, c)
}

// Status of a specimen.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusMissing    Status = "MISSING"
	StatusClassified Status = "CLASSIFIED"
	StatusRetired    Status = "RETIRED"
)

// Statuses lists the valid specimen statuses.
var Statuses = []Status{StatusActive, StatusMissing, StatusClassified, StatusRetired}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return slices.Contains(Statuses, s) }

// ThreatLevel of a specimen.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "LOW"
	ThreatMedium   ThreatLevel = "MEDIUM"
	ThreatHigh     ThreatLevel = "HIGH"
	ThreatCritical ThreatLevel = "CRITICAL"
)

// ThreatLevels lists the valid threat levels from least to most severe.
var ThreatLevels = []ThreatLevel{ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical}

// Valid reports whether t is a known threat level.
func (t ThreatLevel) Valid() bool { return slices.Contains(ThreatLevels, t) }

// NoteCategory classifies a field note.
type NoteCategory string

const (
	CategoryOrganization NoteCategory = "ORGANIZATION"
	CategoryLocation     NoteCategory = "LOCATION"
	CategorySpecies      NoteCategory = "SPECIES"
	CategoryOther        NoteCategory = "OTHER"
)

// NoteCategories lists the valid field note categories.
var NoteCategories = []NoteCategory{CategoryOrganization, CategoryLocation, CategorySpecies, CategoryOther}

// Valid reports whether c is a known category.
func (c NoteCategory) Valid() bool { return slices.Contains(NoteCategories, c) }

// SiteStatus drives the public banner.
type SiteStatus string

const (
	SiteOperational SiteStatus = "OPERATIONAL"
	SiteMaintenance SiteStatus = "MAINTENANCE"
	SiteLockdown    SiteStatus = "LOCKDOWN"
)

// SiteStatuses lists the valid site statuses.
var SiteStatuses = []SiteStatus{SiteOperational, SiteMaintenance, SiteLockdown}

// Valid reports whether s is a known site status.
func (s SiteStatus) Valid() bool { return slices.Contains(SiteStatuses, s) }

// Specimen is a cataloged subject, the primary record type.
type Specimen struct {
	ID               string      `gorm:"primaryKey;size:36" json:"id"`
	Name             string      `gorm:"size:191;index:idx_specimens_name" json:"name"`
	Codename         string      `gorm:"size:191" json:"codename"`
	Species          string      `gorm:"size:191" json:"species"`
	Status           Status      `gorm:"size:20;index:idx_specimens_status" json:"status"`
	ThreatLevel      ThreatLevel `gorm:"size:20;index:idx_specimens_threat" json:"threatLevel"`
	AcquisitionDate  string      `gorm:"size:32" json:"acquisitionDate,omitempty"`
	Location         string      `gorm:"size:191" json:"location,omitempty"`
	AgentNumber      string      `gorm:"size:16" json:"agentNumber"`
	Lore             string      `gorm:"type:text" json:"lore"`
	Notes            string      `gorm:"type:text" json:"notes"`
	Mugshot          string      `gorm:"type:text" json:"mugshot"`
	AdditionalPhotos StringList  `gorm:"type:text" json:"additionalPhotos"`
	SpecialAbilities StringList  `gorm:"type:text" json:"specialAbilities"`
	KnownAssociates  Associates  `gorm:"type:text" json:"knownAssociates"`
	CreatedAt        time.Time   `gorm:"index:idx_specimens_created" json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
	CreatedBy        string      `gorm:"size:191" json:"createdBy"`
}

// DisplayName prefers the codename, then the name. Empty when neither is set.
func (s *Specimen) DisplayName() string {
	if s.Codename != "" {
		return s.Codename
	}
	return s.Name
}

// FieldNote is a topical note, optionally cross-referenced to specimens.
type FieldNote struct {
	ID               string       `gorm:"primaryKey;size:36" json:"id"`
	Title            string       `gorm:"size:191;index:idx_field_notes_title" json:"title"`
	Category         NoteCategory `gorm:"size:20;index:idx_field_notes_category" json:"category"`
	Content          string       `gorm:"type:text" json:"content"`
	Image            string       `gorm:"type:text" json:"image,omitempty"`
	RelatedSpecimens StringList   `gorm:"type:text" json:"relatedSpecimens"`
	CreatedAt        time.Time    `gorm:"index:idx_field_notes_created" json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
	CreatedBy        string       `gorm:"size:191" json:"createdBy"`
}

// Transcript is an interview record attached to one or more specimens.
type Transcript struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	Title            string     `gorm:"size:191;index:idx_transcripts_title" json:"title"`
	Date             string     `gorm:"size:32" json:"date,omitempty"`
	Content          string     `gorm:"type:text" json:"content"`
	RelatedSpecimens StringList `gorm:"type:text" json:"relatedSpecimens"`
	CreatedAt        time.Time  `gorm:"index:idx_transcripts_created" json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	CreatedBy        string     `gorm:"size:191" json:"createdBy"`
}

// SettingsID is the key of the singleton settings row.
const SettingsID = "config"

// SiteSettings is the singleton site configuration edited from the dashboard.
type SiteSettings struct {
	ID             string     `gorm:"primaryKey;size:32" json:"-"`
	AllowedAdmins  StringList `gorm:"type:text" json:"allowedAdmins"`
	MarqueeMessage string     `gorm:"type:text" json:"marqueeMessage"`
	SiteStatus     SiteStatus `gorm:"size:20" json:"siteStatus"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
