package services

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/aiaccountant/internal/common"
	"github.com/dmitrijs2005/aiaccountant/internal/transcript"
)

// TranscriptStore is the object storage used for exports.
type TranscriptStore interface {
	Put(ctx context.Context, userID, sessionID, ext, contentType string, body io.ReadSeeker) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// ExportResult locates an exported transcript.
type ExportResult struct {
	Key string
	URL string
}

// ExportService renders transcripts and, when object storage is configured,
// archives them.
type ExportService struct {
	history *HistoryService
	store   TranscriptStore
}

// NewExportService builds the service; store may be nil when exports are
// disabled, in which case Export returns common.ErrExportDisabled.
func NewExportService(history *HistoryService, store TranscriptStore) *ExportService {
	return &ExportService{history: history, store: store}
}

// Render writes the transcript of a session owned by caller in format and
// returns the exporter used.
func (s *ExportService) Render(ctx context.Context, caller, sessionID, format string, w io.Writer) (transcript.Exporter, error) {
	exp, err := transcript.NewExporter(format)
	if err != nil {
		return nil, err
	}
	t, err := s.history.Transcript(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	if err := exp.Export(t, w); err != nil {
		return nil, fmt.Errorf("render transcript: %w", err)
	}
	return exp, nil
}

// Export renders the transcript, uploads it and returns its key with a
// presigned download URL.
func (s *ExportService) Export(ctx context.Context, caller, sessionID, format string) (*ExportResult, error) {
	if s.store == nil {
		return nil, common.ErrExportDisabled
	}

	var buf bytes.Buffer
	exp, err := s.Render(ctx, caller, sessionID, format, &buf)
	if err != nil {
		return nil, err
	}

	key, err := s.store.Put(ctx, caller, sessionID, exp.Extension(), exp.ContentType(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, err
	}
	url, err := s.store.PresignGet(ctx, key)
	if err != nil {
		return nil, err
	}
	return &ExportResult{Key: key, URL: url}, nil
}
