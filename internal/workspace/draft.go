package workspace

import (
	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/relations"
)

// Tab is a dashboard tab.
type Tab string

const (
	TabSpecimens   Tab = "specimens"
	TabFieldNotes  Tab = "fieldNotes"
	TabTranscripts Tab = "transcripts"
)

// Field names a tag list of the draft.
type Field string

const (
	FieldAbilities           Field = "abilities"
	FieldAssociates          Field = "associates"
	FieldLinkedNotes         Field = "linkedNotes"
	FieldPhotos              Field = "photos"
	FieldNoteSpecimens       Field = "noteSpecimens"
	FieldTranscriptSpecimens Field = "transcriptSpecimens"
)

// Fields lists every tag field.
var Fields = []Field{
	FieldAbilities, FieldAssociates, FieldLinkedNotes, FieldPhotos,
	FieldNoteSpecimens, FieldTranscriptSpecimens,
}

// tabOf reports which tab owns a field.
func tabOf(f Field) Tab {
	switch f {
	case FieldNoteSpecimens:
		return TabFieldNotes
	case FieldTranscriptSpecimens:
		return TabTranscripts
	default:
		return TabSpecimens
	}
}

// Form carries the scalar form fields. List fields are ignored: the draft tag
// lists are authoritative.
type Form struct {
	Specimen   bureau.SpecimenInput   `json:"specimen"`
	FieldNote  bureau.FieldNoteInput  `json:"fieldNote"`
	Transcript bureau.TranscriptInput `json:"transcript"`
}

// Draft is the record being edited. Nothing in it is persisted until Submit.
type Draft struct {
	Tab    Tab
	EditID string
	Form   Form

	abilities           *relations.TagList[string]
	associates          *relations.TagList[datastore.Associate]
	linkedNotes         *relations.TagList[string]
	photos              *relations.TagList[string]
	noteSpecimens       *relations.TagList[string]
	transcriptSpecimens *relations.TagList[string]

	// revision counts edits so Submit can tell whether the draft changed
	// while it was being saved
	revision uint64
}

func newDraft(tab Tab) *Draft {
	return &Draft{
		Tab:                 tab,
		abilities:           relations.NewStringTags(),
		associates:          relations.NewAssociateTags(),
		linkedNotes:         relations.NewStringTags(),
		photos:              relations.NewStringTags(),
		noteSpecimens:       relations.NewStringTags(),
		transcriptSpecimens: relations.NewStringTags(),
	}
}

// touch records an edit when changed is true and passes changed through.
func (d *Draft) touch(changed bool) bool {
	if changed {
		d.revision++
	}
	return changed
}

// stringTags returns the string tag list for f, or nil for associates.
func (d *Draft) stringTags(f Field) *relations.TagList[string] {
	switch f {
	case FieldAbilities:
		return d.abilities
	case FieldLinkedNotes:
		return d.linkedNotes
	case FieldPhotos:
		return d.photos
	case FieldNoteSpecimens:
		return d.noteSpecimens
	case FieldTranscriptSpecimens:
		return d.transcriptSpecimens
	default:
		return nil
	}
}

// specimenInput serializes the specimen form and its tag lists.
func (d *Draft) specimenInput() (bureau.SpecimenInput, []string) {
	in := d.Form.Specimen
	in.ID = d.EditID
	in.SpecialAbilities = d.abilities.Items()
	in.AdditionalPhotos = d.photos.Items()
	in.KnownAssociates = d.associates.Items()
	return in, d.linkedNotes.Items()
}

func (d *Draft) fieldNoteInput() bureau.FieldNoteInput {
	in := d.Form.FieldNote
	in.ID = d.EditID
	in.RelatedSpecimens = d.noteSpecimens.Items()
	return in
}

func (d *Draft) transcriptInput() bureau.TranscriptInput {
	in := d.Form.Transcript
	in.ID = d.EditID
	in.RelatedSpecimens = d.transcriptSpecimens.Items()
	return in
}
