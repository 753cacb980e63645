package bureau

import (
	"context"
	"strings"

	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/relations"
)

// TranscriptInput is the editable part of a transcript.
type TranscriptInput struct {
	ID               string   `json:"id,omitempty"`
	Title            string   `json:"title"`
	Date             string   `json:"date"`
	Content          string   `json:"content"`
	RelatedSpecimens []string `json:"relatedSpecimens"`
}

// SaveTranscript validates and stores a transcript. A transcript must
// reference at least one specimen.
func (s *Service) SaveTranscript(ctx context.Context, actor Actor, in TranscriptInput) (tr *datastore.Transcript, err error) {
	defer func() { s.metrics.RecordSave(string(datastore.CollectionTranscripts), err) }()

	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	related := relations.NewStringTags(in.RelatedSpecimens...)

	if in.Title == "" {
		return nil, invalid("title", MsgTitleRequired)
	}
	if related.Len() == 0 {
		return nil, invalid("relatedSpecimens", MsgSpecimenRequired)
	}

	if in.ID == "" {
		tr = &datastore.Transcript{CreatedBy: actorName(actor)}
	} else if tr, err = s.store.GetTranscript(ctx, in.ID); err != nil {
		return nil, err
	}

	tr.Title = in.Title
	tr.Date = strings.TrimSpace(in.Date)
	tr.Content = strings.TrimSpace(in.Content)
	tr.RelatedSpecimens = related.Items()

	if err := s.store.SaveTranscript(ctx, tr); err != nil {
		return nil, err
	}
	GetLogger().Info("transcript saved",
		logger.String("transcript_id", tr.ID),
		logger.String("actor", actor.Email))
	return tr, nil
}

// DeleteTranscript removes a transcript.
func (s *Service) DeleteTranscript(ctx context.Context, id string) error {
	if err := s.store.DeleteTranscript(ctx, id); err != nil {
		return err
	}
	GetLogger().Info("transcript deleted", logger.String("transcript_id", id))
	return nil
}

// GetTranscript returns one transcript.
func (s *Service) GetTranscript(ctx context.Context, id string) (*datastore.Transcript, error) {
	return s.store.GetTranscript(ctx, id)
}

// Transcripts lists every transcript, newest first.
func (s *Service) Transcripts(ctx context.Context) ([]datastore.Transcript, error) {
	return s.store.ListTranscripts(ctx, datastore.OrderByCreatedDesc)
}
