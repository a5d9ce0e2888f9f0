package media

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

type fakeBlobStore struct {
	failSave bool
	saved    map[string]int
	removed  []string
}

func (f *fakeBlobStore) Save(ctx context.Context, path string, r io.Reader) (string, error) {
	if f.failSave {
		return "", errors.New("disk full")
	}
	n, _ := io.Copy(io.Discard, r)
	if f.saved == nil {
		f.saved = map[string]int{}
	}
	f.saved[path] = int(n)
	return "/static/uploads/" + path, nil
}

func (f *fakeBlobStore) Remove(ctx context.Context, path string) error {
	f.removed = append(f.removed, path)
	return nil
}

type fakeLinkCounter struct{ count int64 }

func (f *fakeLinkCounter) CountForAsset(ctx context.Context, mediaID string) (int64, error) {
	return f.count, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping sqlite test on windows because CGO is disabled")
	}
	db, err := gorm.Open(gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: ":memory:"}), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Asset{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// pngBytes is a minimal valid PNG header so MIME sniffing sees image/png.
func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
}

func newTestService(t *testing.T, blobs *fakeBlobStore, links LinkCounter) (*Service, Repository) {
	t.Helper()
	repo := NewRepository(openTestDB(t))
	return NewService(repo, blobs, links, 1024), repo
}

func submitPNG(t *testing.T, svc *Service) *Asset {
	t.Helper()
	content := pngBytes()
	asset, err := svc.Submit(context.Background(), 7, SubmitInput{
		FileName: "ballroom photo.png",
		Kind:     KindImage,
		Size:     int64(len(content)),
		Content:  strings.NewReader(string(content)),
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return asset
}

func TestService_Submit_Success(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc, _ := newTestService(t, blobs, nil)

	asset := submitPNG(t, svc)

	assert.NotEmpty(t, asset.ID)
	assert.Equal(t, StatusProcessing, asset.Status)
	assert.Equal(t, "image/png", asset.MimeType)
	assert.Equal(t, int64(7), asset.PropertyID)
	assert.Contains(t, asset.FileURL, "/static/uploads/p7/image/")
	assert.Contains(t, asset.StoragePath, "ballroom_photo")
	assert.Len(t, blobs.saved, 1)

	// No premature completion: status stays processing until an outcome is
	// reported.
	got, err := svc.GetStatus(context.Background(), asset.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Nil(t, got.ProcessedAt)
}

func TestService_Submit_Validation(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, 7, SubmitInput{FileName: "a.png", Kind: KindImage, Size: 0, Content: strings.NewReader("")})
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = svc.Submit(ctx, 7, SubmitInput{FileName: "a.png", Kind: KindImage, Size: 4096, Content: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = svc.Submit(ctx, 7, SubmitInput{FileName: "a.xyz", Kind: Kind("weird"), Size: 10, Content: strings.NewReader("xxxxxxxxxx")})
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = svc.Submit(ctx, 7, SubmitInput{FileName: "a.exe", Kind: KindDocument, Size: 10, Content: strings.NewReader("\x00\x01\x02\x03\x04\x05\x06\x07\x08\x09")})
	assert.ErrorIs(t, err, ErrInvalidMimeType)

	// Valid PNG declared as a document.
	content := pngBytes()
	_, err = svc.Submit(ctx, 7, SubmitInput{FileName: "a.png", Kind: KindDocument, Size: int64(len(content)), Content: strings.NewReader(string(content))})
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestService_Submit_StorageFailure(t *testing.T) {
	svc, repo := newTestService(t, &fakeBlobStore{failSave: true}, nil)
	content := pngBytes()

	_, err := svc.Submit(context.Background(), 7, SubmitInput{
		FileName: "a.png",
		Kind:     KindImage,
		Size:     int64(len(content)),
		Content:  strings.NewReader(string(content)),
	})
	assert.ErrorIs(t, err, ErrStorage)

	// The asset must not be left pending/uploading forever.
	assets, err := repo.ListByProperty(context.Background(), 7)
	assert.NoError(t, err)
	if assert.Len(t, assets, 1) {
		assert.Equal(t, StatusFailed, assets[0].Status)
		assert.NotNil(t, assets[0].ProcessingError)
	}
}

func TestService_ReportOutcome_Ready(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	asset := submitPNG(t, svc)

	got, err := svc.ReportOutcome(context.Background(), asset.ID, Outcome{
		Status:        StatusReady,
		ThumbnailPath: "thumbs/a.png",
		Metadata:      &Metadata{Image: &ImageMetadata{Width: 1920, Height: 1080}},
	})
	assert.NoError(t, err)
	assert.Equal(t, StatusReady, got.Status)
	assert.NotNil(t, got.ProcessedAt)
	assert.Equal(t, "thumbs/a.png", *got.ThumbnailPath)

	meta, err := DecodeMetadata(got.Metadata)
	assert.NoError(t, err)
	assert.Equal(t, 1920, meta.Image.Width)
}

func TestService_ReportOutcome_Failed(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	asset := submitPNG(t, svc)

	got, err := svc.ReportOutcome(context.Background(), asset.ID, Outcome{
		Status: StatusFailed,
		Error:  "corrupt file",
	})
	assert.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "corrupt file", *got.ProcessingError)

	status, err := svc.GetStatus(context.Background(), asset.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusFailed, status.Status)
	assert.Equal(t, "corrupt file", *status.ProcessingError)
}

func TestService_ReportOutcome_Idempotent(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	asset := submitPNG(t, svc)

	first, err := svc.ReportOutcome(context.Background(), asset.ID, Outcome{Status: StatusFailed, Error: "corrupt file"})
	assert.NoError(t, err)

	// Duplicate identical delivery succeeds and changes nothing.
	second, err := svc.ReportOutcome(context.Background(), asset.ID, Outcome{Status: StatusFailed, Error: "corrupt file"})
	assert.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, *first.ProcessingError, *second.ProcessingError)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestService_ReportOutcome_Conflicting(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	asset := submitPNG(t, svc)

	_, err := svc.ReportOutcome(context.Background(), asset.ID, Outcome{Status: StatusFailed, Error: "corrupt file"})
	assert.NoError(t, err)

	_, err = svc.ReportOutcome(context.Background(), asset.ID, Outcome{Status: StatusReady})
	assert.ErrorIs(t, err, ErrConflictingOutcome)

	_, err = svc.ReportOutcome(context.Background(), asset.ID, Outcome{Status: StatusFailed, Error: "another reason"})
	assert.ErrorIs(t, err, ErrConflictingOutcome)

	// The recorded outcome is untouched.
	got, _ := svc.GetStatus(context.Background(), asset.ID)
	assert.Equal(t, "corrupt file", *got.ProcessingError)
}

func TestService_ReportOutcome_Validation(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	asset := submitPNG(t, svc)
	ctx := context.Background()

	_, err := svc.ReportOutcome(ctx, asset.ID, Outcome{Status: StatusProcessing})
	assert.ErrorIs(t, err, ErrInvalidOutcome)

	_, err = svc.ReportOutcome(ctx, asset.ID, Outcome{Status: StatusFailed})
	assert.ErrorIs(t, err, ErrInvalidOutcome)

	_, err = svc.ReportOutcome(ctx, "no-such-id", Outcome{Status: StatusReady})
	assert.ErrorIs(t, err, ErrAssetNotFound)

	// Cross-kind metadata is rejected and the asset stays processing.
	_, err = svc.ReportOutcome(ctx, asset.ID, Outcome{
		Status:   StatusReady,
		Metadata: &Metadata{Document: &DocumentMetadata{}},
	})
	assert.ErrorIs(t, err, ErrInvalidOutcome)
	got, _ := svc.GetStatus(ctx, asset.ID)
	assert.Equal(t, StatusProcessing, got.Status)
}

func TestService_ReportOutcome_AVDuration(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	content := append([]byte("\x00\x00\x00\x18ftypmp42"), make([]byte, 64)...)
	asset, err := svc.Submit(context.Background(), 7, SubmitInput{
		FileName: "walkthrough.mp4",
		Kind:     KindVideo,
		Size:     int64(len(content)),
		Content:  strings.NewReader(string(content)),
	})
	assert.NoError(t, err)

	got, err := svc.ReportOutcome(context.Background(), asset.ID, Outcome{
		Status:   StatusReady,
		Metadata: &Metadata{AV: &AVMetadata{DurationSeconds: 42.5}},
	})
	assert.NoError(t, err)
	if assert.NotNil(t, got.DurationSeconds) {
		assert.Equal(t, 42.5, *got.DurationSeconds)
	}
}

func TestService_Delete_RefusedWhileLinked(t *testing.T) {
	blobs := &fakeBlobStore{}
	links := &fakeLinkCounter{count: 2}
	db := openTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, blobs, links, 1024)

	asset := submitPNG(t, svc)

	err := svc.Delete(context.Background(), asset.ID)
	assert.ErrorIs(t, err, ErrAssetLinked)

	links.count = 0
	err = svc.Delete(context.Background(), asset.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{asset.StoragePath}, blobs.removed)

	_, err = svc.Get(context.Background(), asset.ID)
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestService_UpdateTags(t *testing.T) {
	svc, _ := newTestService(t, &fakeBlobStore{}, nil)
	asset := submitPNG(t, svc)

	got, err := svc.UpdateTags(context.Background(), asset.ID, []string{"Ballroom", " ballroom ", "", "AV"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"ballroom", "av"}, got.TagList())

	// A comma inside a tag must not split it into two stored tags.
	got, err = svc.UpdateTags(context.Background(), asset.ID, []string{"stage,lighting", ","})
	assert.NoError(t, err)
	assert.Equal(t, []string{"stage lighting"}, got.TagList())
}
