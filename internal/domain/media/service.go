package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxUploadBytes = 50 * 1024 * 1024 // 50 MB

// allowedMimeTypes maps accepted MIME types to the kind they belong to.
// An upload whose sniffed type is absent here is rejected before any storage
// effort; one whose type belongs to a different kind than declared is rejected
// as a kind mismatch.
var allowedMimeTypes = map[string]Kind{
	"image/jpeg":      KindImage,
	"image/png":       KindImage,
	"image/gif":       KindImage,
	"image/webp":      KindImage,
	"image/svg+xml":   KindImage,
	"video/mp4":       KindVideo,
	"video/webm":      KindVideo,
	"video/quicktime": KindVideo,
	"audio/mpeg":      KindAudio,
	"audio/mp4":       KindAudio,
	"audio/wav":       KindAudio,
	"audio/ogg":       KindAudio,
	"application/pdf": KindDocument,
}

// LinkCounter reports how many current links reference an asset. Implemented
// by the link store; used to refuse deleting an asset that is still in use.
type LinkCounter interface {
	CountForAsset(ctx context.Context, mediaID string) (int64, error)
}

// SubmitInput carries one upload: declared identity plus the raw bytes.
type SubmitInput struct {
	FileName string
	Kind     Kind
	Size     int64
	Content  io.Reader
}

// Outcome is the external processor's completion report for one asset.
type Outcome struct {
	Status        Status
	Error         string
	ThumbnailPath string
	Metadata      *Metadata
}

// Service drives an upload from accepted bytes to a terminal processing state.
// Submit is fire-and-continue: it returns as soon as the bytes are durable and
// the asset is handed to the external processor. ReportOutcome, invoked by the
// processing webhook, is the only writer of terminal status.
type Service struct {
	repo           Repository
	blobs          BlobStore
	links          LinkCounter
	maxUploadBytes int64
}

func NewService(repo Repository, blobs BlobStore, links LinkCounter, maxUploadBytes int64) *Service {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Service{repo: repo, blobs: blobs, links: links, maxUploadBytes: maxUploadBytes}
}

// Submit validates the upload, persists the bytes, and leaves the asset in
// "processing" for the external processor. A storage failure marks the asset
// failed rather than leaving it stuck; the returned ErrStorage is retriable
// with a fresh submit.
func (s *Service) Submit(ctx context.Context, propertyID int64, in SubmitInput) (*Asset, error) {
	if in.Size == 0 {
		return nil, ErrEmptyFile
	}
	if in.Size > s.maxUploadBytes {
		return nil, ErrFileTooLarge
	}
	if !in.Kind.Valid() {
		return nil, ErrInvalidKind
	}

	// Detect MIME type from the first 512 bytes, then rewind.
	buf := make([]byte, 512)
	n, _ := io.ReadFull(in.Content, buf)
	mimeType := strings.Split(http.DetectContentType(buf[:n]), ";")[0]

	kind, ok := allowedMimeTypes[mimeType]
	if !ok {
		// Sniffing cannot distinguish some container formats; fall back to the
		// extension-implied type before rejecting.
		if byExt, extOK := mimeByExtension(in.FileName); extOK {
			mimeType = byExt
			kind = allowedMimeTypes[byExt]
		} else {
			return nil, ErrInvalidMimeType
		}
	}
	if kind != in.Kind {
		return nil, ErrKindMismatch
	}

	content := in.Content
	if seeker, seekable := in.Content.(io.Seeker); seekable {
		_, _ = seeker.Seek(0, io.SeekStart)
	} else {
		content = io.MultiReader(strings.NewReader(string(buf[:n])), in.Content)
	}

	now := time.Now()
	id := uuid.New().String()
	path := fmt.Sprintf("p%d/%s/%d-%s%s",
		propertyID, in.Kind, now.Unix(), sanitizeName(in.FileName), filepath.Ext(in.FileName))

	asset := &Asset{
		ID:           id,
		PropertyID:   propertyID,
		OriginalName: in.FileName,
		Kind:         in.Kind,
		MimeType:     mimeType,
		SizeBytes:    in.Size,
		StoragePath:  path,
		Status:       StatusUploading,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("create asset record: %w", err)
	}

	url, err := s.blobs.Save(ctx, path, content)
	if err != nil {
		reason := fmt.Sprintf("storage write failed: %v", err)
		_ = s.repo.UpdateStatus(ctx, id, map[string]interface{}{
			"status":           StatusFailed,
			"processing_error": reason,
		})
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := s.repo.UpdateStatus(ctx, id, map[string]interface{}{
		"status":   StatusProcessing,
		"file_url": url,
	}); err != nil {
		return nil, fmt.Errorf("mark asset processing: %w", err)
	}
	asset.Status = StatusProcessing
	asset.FileURL = url
	return asset, nil
}

// ReportOutcome records the processor's terminal verdict. Legal predecessors
// are uploading and processing; a duplicate identical terminal report is
// accepted without a write, a conflicting one is rejected.
func (s *Service) ReportOutcome(ctx context.Context, id string, out Outcome) (*Asset, error) {
	if out.Status != StatusReady && out.Status != StatusFailed {
		return nil, fmt.Errorf("%w: status %q is not terminal", ErrInvalidOutcome, out.Status)
	}
	if out.Status == StatusFailed && strings.TrimSpace(out.Error) == "" {
		return nil, fmt.Errorf("%w: failed outcome requires an error", ErrInvalidOutcome)
	}

	return s.repo.ApplyOutcome(ctx, id, func(current *Asset) (map[string]interface{}, error) {
		if current.Status.Terminal() {
			if current.Status == out.Status && sameFailure(current, out) {
				return nil, nil // duplicate delivery, already recorded
			}
			return nil, ErrConflictingOutcome
		}

		now := time.Now()
		if out.Status == StatusFailed {
			return map[string]interface{}{
				"status":           StatusFailed,
				"processing_error": out.Error,
				"processed_at":     now,
			}, nil
		}

		fields := map[string]interface{}{
			"status":           StatusReady,
			"processing_error": nil,
			"processed_at":     now,
		}
		if out.ThumbnailPath != "" {
			fields["thumbnail_path"] = out.ThumbnailPath
		}
		if out.Metadata != nil {
			if err := out.Metadata.Validate(current.Kind); err != nil {
				return nil, err
			}
			raw, err := out.Metadata.MarshalColumn(current.Kind)
			if err != nil {
				return nil, err
			}
			fields["metadata"] = raw
			if d := out.Metadata.Duration(); d != nil {
				fields["duration_seconds"] = *d
			}
		}
		return fields, nil
	})
}

// GetStatus is the pure read the poller and status endpoint use.
func (s *Service) GetStatus(ctx context.Context, id string) (*Asset, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (*Asset, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByProperty(ctx context.Context, propertyID int64) ([]*Asset, error) {
	return s.repo.ListByProperty(ctx, propertyID)
}

// UpdateTags replaces the asset's tag set.
func (s *Service) UpdateTags(ctx context.Context, id string, tags []string) (*Asset, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.SetTags(tags)
	if err := s.repo.UpdateTags(ctx, id, a.Tags); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes an unreferenced asset and its blob. Assets still referenced
// by links are refused; detach them first.
func (s *Service) Delete(ctx context.Context, id string) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.links != nil {
		count, err := s.links.CountForAsset(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrAssetLinked
		}
	}
	_ = s.blobs.Remove(ctx, a.StoragePath) // file may already be gone
	return s.repo.Delete(ctx, id)
}

func sameFailure(current *Asset, out Outcome) bool {
	if out.Status != StatusFailed {
		return true
	}
	if current.ProcessingError == nil {
		return out.Error == ""
	}
	return *current.ProcessingError == out.Error
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	if name == "" {
		return "file"
	}
	return name
}

func mimeByExtension(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return "audio/mpeg", true
	case ".m4a":
		return "audio/mp4", true
	case ".mp4":
		return "video/mp4", true
	case ".mov":
		return "video/quicktime", true
	case ".webm":
		return "video/webm", true
	case ".svg":
		return "image/svg+xml", true
	}
	return "", false
}
