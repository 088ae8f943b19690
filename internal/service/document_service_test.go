package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-api/internal/models"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
	"github.com/noah-isme/admission-api/pkg/storage"
)

var uploadTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type failingBlobStorage struct{}

func (failingBlobStorage) SaveStream(filename string, r io.Reader) (string, error) {
	return "", errors.New("bucket unavailable")
}

func (failingBlobStorage) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (failingBlobStorage) Delete(filename string) error { return nil }

type fallbackRecorderStub struct {
	kinds []string
}

func (r *fallbackRecorderStub) RecordUploadFallback(kind string) {
	r.kinds = append(r.kinds, kind)
}

func newDocumentFixture(t *testing.T, cfg DocumentServiceConfig) (*DocumentService, *storage.LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	blobs, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	cfg.Clock = func() time.Time { return uploadTime }
	svc := NewDocumentService(blobs, storage.NewSignedURLSigner("secret", time.Hour), nil, nil, cfg)
	return svc, blobs, dir
}

func pdfUpload(size int) DocumentUpload {
	content := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), size)...)
	return DocumentUpload{
		Filename: "marksheet.PDF",
		Size:     int64(len(content)),
		MimeType: "application/pdf",
		Content:  bytes.NewReader(content),
	}
}

func TestDocumentUploadStoresBlob(t *testing.T) {
	svc, _, dir := newDocumentFixture(t, DocumentServiceConfig{})
	store := &applicationStoreStub{}
	manager := newTestManager(store)

	result, err := svc.Upload(context.Background(), manager, models.DocumentClassXMarksheet, pdfUpload(64))
	require.NoError(t, err)

	assert.False(t, result.Degraded)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/documents/blob?token="))
	assert.True(t, result.Application.HasDocument(models.DocumentClassXMarksheet))
	assert.Equal(t, result.URL, *result.Application.Documents[models.DocumentClassXMarksheet])
	assert.Equal(t, models.ApplicationStatusDraft, result.Application.Status)
	assert.Equal(t, 1, store.upsertCount())

	want := fmt.Sprintf("owner-1/classXMarksheet_%d.pdf", uploadTime.UnixMilli())
	_, err = os.Stat(filepath.Join(dir, want))
	require.NoError(t, err)

	token := strings.TrimPrefix(result.URL, "/api/v1/documents/blob?token=")
	blob, err := svc.OpenBlob(token)
	require.NoError(t, err)
	defer blob.File.Close() //nolint:errcheck
	assert.Equal(t, "application/pdf", blob.MimeType)
	assert.Equal(t, filepath.Base(want), blob.Filename)
	assert.Equal(t, int64(73), blob.SizeBytes)
}

func TestDocumentUploadRejectsBeforeStoring(t *testing.T) {
	cases := []struct {
		name   string
		kind   models.DocumentKind
		upload DocumentUpload
	}{
		{name: "unknown kind", kind: "passportPhoto", upload: pdfUpload(10)},
		{name: "too large", kind: models.DocumentClassXMarksheet, upload: pdfUpload(5 * 1024 * 1024)},
		{name: "empty", kind: models.DocumentClassXMarksheet, upload: DocumentUpload{Filename: "a.pdf", MimeType: "application/pdf"}},
		{name: "wrong type", kind: models.DocumentClassXIIMarksheet, upload: DocumentUpload{
			Filename: "notes.txt",
			Size:     5,
			MimeType: "text/plain",
			Content:  strings.NewReader("hello"),
		}},
		{name: "sniffed wrong type", kind: models.DocumentClassXIIMarksheet, upload: DocumentUpload{
			Filename: "notes",
			Size:     11,
			Content:  strings.NewReader("plain words"),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, dir := newDocumentFixture(t, DocumentServiceConfig{InlineFallback: true})
			store := &applicationStoreStub{}
			manager := newTestManager(store)

			_, err := svc.Upload(context.Background(), manager, tc.kind, tc.upload)
			assert.ErrorIs(t, err, appErrors.ErrInvalidUpload)
			assert.Zero(t, store.upsertCount())
			entries, readErr := os.ReadDir(dir)
			require.NoError(t, readErr)
			assert.Empty(t, entries)
		})
	}
}

func TestDocumentUploadSniffsMissingType(t *testing.T) {
	svc, _, _ := newDocumentFixture(t, DocumentServiceConfig{})
	upload := pdfUpload(16)
	upload.MimeType = "application/octet-stream"
	upload.Filename = "scan"

	result, err := svc.Upload(context.Background(), newTestManager(&applicationStoreStub{}), models.DocumentClassXIIMarksheet, upload)
	require.NoError(t, err)
	assert.True(t, result.Application.HasDocument(models.DocumentClassXIIMarksheet))
}

func TestDocumentUploadLockedAfterSubmit(t *testing.T) {
	svc, _, _ := newDocumentFixture(t, DocumentServiceConfig{})
	store := &applicationStoreStub{record: &models.ApplicationRecord{
		ID: "row-1", ApplicationID: "APP-1", OwnerID: "owner-1", Status: models.ApplicationStatusSubmitted,
	}}
	manager := newTestManager(store)
	_, err := manager.Load(context.Background())
	require.NoError(t, err)

	_, err = svc.Upload(context.Background(), manager, models.DocumentClassXMarksheet, pdfUpload(10))
	assert.ErrorIs(t, err, appErrors.ErrApplicationLocked)
	assert.Zero(t, store.upsertCount())
}

func TestDocumentUploadInlineFallback(t *testing.T) {
	recorder := &fallbackRecorderStub{}
	svc := NewDocumentService(failingBlobStorage{}, storage.NewSignedURLSigner("secret", time.Hour), recorder, nil, DocumentServiceConfig{InlineFallback: true})
	manager := newTestManager(&applicationStoreStub{})

	result, err := svc.Upload(context.Background(), manager, models.DocumentClassXMarksheet, DocumentUpload{
		Filename: "photo.png",
		Size:     3,
		MimeType: "image/png",
		Content:  bytes.NewReader([]byte("png")),
	})
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Equal(t, "data:image/png;base64,cG5n", result.URL)
	assert.Equal(t, []string{"classXMarksheet"}, recorder.kinds)
}

func TestDocumentUploadFailsWithoutFallback(t *testing.T) {
	svc := NewDocumentService(failingBlobStorage{}, storage.NewSignedURLSigner("secret", time.Hour), nil, nil, DocumentServiceConfig{})
	store := &applicationStoreStub{}

	_, err := svc.Upload(context.Background(), newTestManager(store), models.DocumentClassXMarksheet, pdfUpload(10))
	assert.ErrorIs(t, err, appErrors.ErrPersistenceFailed)
	assert.Zero(t, store.upsertCount())
}

func TestDocumentUploadRemovesBlobWhenRecordFails(t *testing.T) {
	svc, _, dir := newDocumentFixture(t, DocumentServiceConfig{})
	store := &applicationStoreStub{upsertErr: errors.New("db down")}

	_, err := svc.Upload(context.Background(), newTestManager(store), models.DocumentClassXMarksheet, pdfUpload(10))
	assert.ErrorIs(t, err, appErrors.ErrPersistenceFailed)
	entries, readErr := os.ReadDir(filepath.Join(dir, "owner-1"))
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestOpenBlobRejectsForeignPaths(t *testing.T) {
	svc, _, _ := newDocumentFixture(t, DocumentServiceConfig{})
	signer := storage.NewSignedURLSigner("secret", time.Hour)

	token, _, err := signer.Generate("owner-2", "owner-1/classXMarksheet_1.pdf")
	require.NoError(t, err)
	_, err = svc.OpenBlob(token)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.OpenBlob("garbage")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	token, _, err = signer.Generate("owner-1", "owner-1/missing.pdf")
	require.NoError(t, err)
	_, err = svc.OpenBlob(token)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestBlobPath(t *testing.T) {
	at := time.UnixMilli(1714557600123)
	assert.Equal(t, "owner-1/classXMarksheet_1714557600123.pdf", BlobPath("owner-1", models.DocumentClassXMarksheet, at, "Scan.PDF", "application/pdf"))
	assert.Equal(t, "owner-1/classXIIMarksheet_1714557600123.jpg", BlobPath("owner-1", models.DocumentClassXIIMarksheet, at, "", "image/jpeg"))
}
