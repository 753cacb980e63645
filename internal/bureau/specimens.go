package bureau

import (
	"context"
	"slices"
	"strings"

	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/observability/metrics"
	"github.com/peepybureau/bpi/internal/relations"
)

// SpecimenInput is the editable part of a specimen. An empty ID creates a
// new record.
type SpecimenInput struct {
	ID               string                `json:"id,omitempty"`
	Name             string                `json:"name"`
	Codename         string                `json:"codename"`
	Species          string                `json:"species"`
	Status           datastore.Status      `json:"status"`
	ThreatLevel      datastore.ThreatLevel `json:"threatLevel"`
	AcquisitionDate  string                `json:"acquisitionDate"`
	Location         string                `json:"location"`
	Lore             string                `json:"lore"`
	Notes            string                `json:"notes"`
	Mugshot          string                `json:"mugshot"`
	AdditionalPhotos []string              `json:"additionalPhotos"`
	SpecialAbilities []string              `json:"specialAbilities"`
	KnownAssociates  datastore.Associates  `json:"knownAssociates"`
}

// SaveResult reports a specimen save and the cross-link writes that followed.
// The specimen is saved even when some cross-link writes failed.
type SaveResult struct {
	Specimen  *datastore.Specimen       `json:"specimen"`
	Created   bool                      `json:"created"`
	CrossLink relations.CrossLinkResult `json:"crossLinks"`
	// Warning is set when cross-link propagation partially failed.
	Warning string `json:"warning,omitempty"`
}

// SaveSpecimen validates and stores a specimen, then reconciles the field
// notes that reference it against linkedNotes. A nil linkedNotes leaves the
// existing links untouched.
func (s *Service) SaveSpecimen(ctx context.Context, actor Actor, in SpecimenInput, linkedNotes []string) (result *SaveResult, err error) {
	defer func() { s.metrics.RecordSave(string(datastore.CollectionSpecimens), err) }()

	in.ID = strings.TrimSpace(in.ID)
	creating := in.ID == ""

	if err := validateSpecimen(&in, creating); err != nil {
		return nil, err
	}

	var record *datastore.Specimen
	if creating {
		record = &datastore.Specimen{
			CreatedBy:   actorName(actor),
			AgentNumber: s.agentNumber(),
		}
	} else {
		existing, err := s.store.GetSpecimen(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		record = existing
	}
	applySpecimenInput(record, &in)

	if err := s.store.SaveSpecimen(ctx, record); err != nil {
		return nil, err
	}
	s.invalidateSiblings()

	result = &SaveResult{Specimen: record, Created: creating}
	GetLogger().Info("specimen saved",
		logger.String("specimen_id", record.ID),
		logger.Bool("created", creating),
		logger.String("actor", actor.Email))

	if linkedNotes == nil {
		result.CrossLink = relations.CrossLinkResult{Added: []string{}, Removed: []string{}}
		return result, nil
	}

	crossLink, linkErr := s.propagateNoteLinks(ctx, record.ID, linkedNotes)
	if linkErr != nil {
		// the specimen is stored; failing here would make a retry create a duplicate
		GetLogger().Warn("field note links not reconciled",
			logger.String("specimen_id", record.ID),
			logger.Error(linkErr))
		result.CrossLink = relations.CrossLinkResult{Added: []string{}, Removed: []string{}}
		result.Warning = "Specimen saved, but linked field notes could not be loaded: " + linkErr.Error()
		return result, nil
	}
	result.CrossLink = crossLink
	if failErr := result.CrossLink.Err(); failErr != nil {
		result.Warning = "Specimen saved, but some field note links could not be updated: " + failErr.Error()
	}
	return result, nil
}

// propagateNoteLinks diffs the notes currently referencing the specimen with
// the selection and writes each changed note once.
func (s *Service) propagateNoteLinks(ctx context.Context, specimenID string, selection []string) (relations.CrossLinkResult, error) {
	current, err := s.store.FieldNotesReferencing(ctx, specimenID)
	if err != nil {
		return relations.CrossLinkResult{}, err
	}
	previous := make([]string, len(current))
	for i := range current {
		previous[i] = current[i].ID
	}

	plan := relations.PlanCrossLinks(specimenID, previous, selection)
	res := relations.ApplyCrossLinks(ctx, plan, s.store)

	for range res.Added {
		s.metrics.RecordCrossLink(metrics.DirectionAdd, nil)
	}
	for range res.Removed {
		s.metrics.RecordCrossLink(metrics.DirectionRemove, nil)
	}
	for id, ferr := range res.Failed {
		direction := metrics.DirectionRemove
		if slices.Contains(plan.ToAdd, id) {
			direction = metrics.DirectionAdd
		}
		s.metrics.RecordCrossLink(direction, ferr)
	}
	return res, nil
}

func validateSpecimen(in *SpecimenInput, creating bool) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Codename = strings.TrimSpace(in.Codename)
	in.Species = strings.TrimSpace(in.Species)
	in.Location = strings.TrimSpace(in.Location)
	in.Lore = strings.TrimSpace(in.Lore)
	in.Notes = strings.TrimSpace(in.Notes)
	in.Mugshot = strings.TrimSpace(in.Mugshot)

	if in.Name == "" {
		return invalid("name", MsgNameRequired)
	}
	if creating && in.Mugshot == "" {
		return invalid("mugshot", MsgMugshotRequired)
	}
	if in.Status == "" {
		in.Status = datastore.StatusActive
	}
	if !in.Status.Valid() {
		return invalidValue("status", in.Status, datastore.Statuses)
	}
	if in.ThreatLevel == "" {
		in.ThreatLevel = datastore.ThreatLow
	}
	if !in.ThreatLevel.Valid() {
		return invalidValue("threatLevel", in.ThreatLevel, datastore.ThreatLevels)
	}
	return nil
}

// applySpecimenInput copies the editable fields. Lists pass through tag lists
// so duplicates and self links never reach storage.
func applySpecimenInput(record *datastore.Specimen, in *SpecimenInput) {
	record.Name = in.Name
	record.Codename = in.Codename
	record.Species = in.Species
	record.Status = in.Status
	record.ThreatLevel = in.ThreatLevel
	record.AcquisitionDate = strings.TrimSpace(in.AcquisitionDate)
	record.Location = in.Location
	record.Lore = in.Lore
	record.Notes = in.Notes
	record.Mugshot = in.Mugshot
	record.AdditionalPhotos = relations.NewStringTags(in.AdditionalPhotos...).Items()
	record.SpecialAbilities = relations.NewStringTags(in.SpecialAbilities...).Items()

	associates := relations.NewAssociateTags(in.KnownAssociates...)
	if record.ID != "" {
		if i := slices.Index(associates.Keys(), record.ID); i >= 0 {
			associates.Remove(i)
		}
	}
	record.KnownAssociates = associates.Items()
}

// DeleteSpecimen removes a specimen once confirm matches its name or id.
// References held by other records are left in place and resolve as missing.
func (s *Service) DeleteSpecimen(ctx context.Context, id, confirm string) error {
	confirm = strings.TrimSpace(confirm)
	if confirm == "" {
		return invalid("confirm", MsgConfirmationMissing)
	}

	specimen, err := s.store.GetSpecimen(ctx, id)
	if err != nil {
		return err
	}
	if confirm != specimen.ID && !strings.EqualFold(confirm, specimen.Name) {
		return invalid("confirm", MsgConfirmationWrong)
	}

	if err := s.store.DeleteSpecimen(ctx, id); err != nil {
		return err
	}
	s.invalidateSiblings()
	GetLogger().Info("specimen deleted", logger.String("specimen_id", id))
	return nil
}

// GetSpecimen returns one specimen.
func (s *Service) GetSpecimen(ctx context.Context, id string) (*datastore.Specimen, error) {
	return s.store.GetSpecimen(ctx, id)
}

func actorName(a Actor) string {
	if a.Email == "" {
		return "Unknown"
	}
	return a.Email
}
