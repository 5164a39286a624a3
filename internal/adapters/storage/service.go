// Package storage archives notified conversations to S3-compatible object
// storage so owners keep a copy outside the database.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"funnel_backend/internal/transcript"

	"github.com/google/uuid"
)

const (
	transcriptPrefix   = "transcripts"
	transcriptMimeType = "application/json"

	// MaxArchiveBytes caps a single archived transcript.
	MaxArchiveBytes = 4 << 20
)

// ObjectStore is the subset of object storage the archive needs.
type ObjectStore interface {
	EnsureBucketExists(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// ArchivedTranscript is the JSON document written per lead.
type ArchivedTranscript struct {
	TaskID     uuid.UUID             `json:"taskId"`
	LeadID     uuid.UUID             `json:"leadId"`
	ArchivedAt time.Time             `json:"archivedAt"`
	Transcript transcript.Transcript `json:"transcript"`
}

// TranscriptArchive writes one object per lead. Re-archiving a lead
// overwrites its object.
type TranscriptArchive struct {
	store  ObjectStore
	bucket string
	now    func() time.Time
}

func NewTranscriptArchive(store ObjectStore, bucket string) *TranscriptArchive {
	return &TranscriptArchive{store: store, bucket: bucket, now: time.Now}
}

// TranscriptKey is the object key for a lead's transcript.
func TranscriptKey(taskID, leadID uuid.UUID) string {
	return path.Join(transcriptPrefix, taskID.String(), leadID.String()+".json")
}

func (a *TranscriptArchive) ArchiveTranscript(ctx context.Context, taskID, leadID uuid.UUID, tr transcript.Transcript) error {
	if tr == nil {
		tr = transcript.Transcript{}
	}
	data, err := json.Marshal(ArchivedTranscript{
		TaskID:     taskID,
		LeadID:     leadID,
		ArchivedAt: a.now().UTC(),
		Transcript: tr,
	})
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if len(data) > MaxArchiveBytes {
		return fmt.Errorf("transcript of %d bytes exceeds archive limit of %d", len(data), MaxArchiveBytes)
	}
	return a.store.PutObject(ctx, a.bucket, TranscriptKey(taskID, leadID), transcriptMimeType, data)
}

// ReadTranscript loads an archived transcript.
func (a *TranscriptArchive) ReadTranscript(ctx context.Context, taskID, leadID uuid.UUID) (ArchivedTranscript, error) {
	data, err := a.store.GetObject(ctx, a.bucket, TranscriptKey(taskID, leadID))
	if err != nil {
		return ArchivedTranscript{}, err
	}
	var doc ArchivedTranscript
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return ArchivedTranscript{}, fmt.Errorf("decode archived transcript: %w", err)
	}
	return doc, nil
}
