package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admission-api/internal/dto"
	"github.com/noah-isme/admission-api/internal/models"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
)

// DocumentSession is the part of a lifecycle manager uploads need.
type DocumentSession interface {
	Identity() models.Identity
	Current() *models.ApplicationRecord
	UpdateDocument(ctx context.Context, kind models.DocumentKind, url string) (*models.ApplicationRecord, error)
}

type blobStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type blobSigner interface {
	Generate(id, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (id, relPath string, expiresAt time.Time, err error)
}

type fallbackRecorder interface {
	RecordUploadFallback(kind string)
}

// DocumentUpload carries upload metadata and the content stream.
type DocumentUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// DocumentBlob is an opened blob ready for streaming.
type DocumentBlob struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
}

// DocumentServiceConfig holds upload limits and URL settings.
type DocumentServiceConfig struct {
	MaxFileSize    int64
	AllowedMIMEs   []string
	InlineFallback bool
	APIPrefix      string
	Clock          func() time.Time
}

// DocumentService stores supporting documents and records their URLs on the
// owner's application.
type DocumentService struct {
	storage blobStorage
	signer  blobSigner
	metrics fallbackRecorder
	logger  *zap.Logger
	cfg     DocumentServiceConfig
	mimeSet map[string]struct{}
}

var extensionByMIME = map[string]string{
	"application/pdf": "pdf",
	"image/jpeg":      "jpg",
	"image/jpg":       "jpg",
	"image/png":       "png",
}

var mimeByExtension = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// NewDocumentService constructs the service with defaults.
func NewDocumentService(storage blobStorage, signer blobSigner, metrics fallbackRecorder, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/jpg", "image/png"}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(strings.TrimSpace(mt))] = struct{}{}
	}
	return &DocumentService{
		storage: storage,
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		mimeSet: mimeSet,
	}
}

// Upload validates the file, stores it and records its URL under kind. Every
// constraint is checked before the blob store is touched.
func (s *DocumentService) Upload(ctx context.Context, session DocumentSession, kind models.DocumentKind, upload DocumentUpload) (*dto.DocumentUploadResponse, error) {
	identity := session.Identity()
	if !identity.Authenticated() {
		return nil, appErrors.ErrNotAuthenticated
	}
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidUpload, fmt.Sprintf("unknown document kind %q", kind))
	}
	if session.Current().IsSubmitted() {
		return nil, appErrors.ErrApplicationLocked
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidUpload, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrInvalidUpload, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := s.detectMime(upload)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[mimeType]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrInvalidUpload, "only PDF, JPEG and PNG files are accepted")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidUpload.Code, appErrors.ErrInvalidUpload.Status, "failed to read upload")
	}

	now := s.cfg.Clock().UTC()
	blobPath := BlobPath(identity.OwnerID, kind, now, upload.Filename, mimeType)
	url, degraded, err := s.put(blobPath, mimeType, upload.Content)
	if err != nil {
		return nil, err
	}
	if degraded {
		s.logger.Warn("document stored inline after blob upload failure",
			zap.String("owner_id", identity.OwnerID),
			zap.String("kind", string(kind)),
			zap.Int64("size", upload.Size))
		if s.metrics != nil {
			s.metrics.RecordUploadFallback(string(kind))
		}
	}

	record, err := session.UpdateDocument(ctx, kind, url)
	if err != nil {
		if !degraded {
			if delErr := s.storage.Delete(blobPath); delErr != nil {
				s.logger.Warn("orphaned document blob", zap.String("path", blobPath), zap.Error(delErr))
			}
		}
		return nil, err
	}
	return &dto.DocumentUploadResponse{
		Application: record,
		Kind:        kind,
		URL:         url,
		Degraded:    degraded,
		UploadedAt:  now,
	}, nil
}

// OpenBlob resolves a signed blob URL token into an open file.
func (s *DocumentService) OpenBlob(token string) (*DocumentBlob, error) {
	if s.signer == nil || s.storage == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "blob store unavailable")
	}
	ownerID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	if ownerID == "" || !strings.HasPrefix(relPath, ownerID+"/") || strings.Contains(relPath, "..") {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read document metadata")
	}
	mimeType, ok := mimeByExtension[strings.TrimPrefix(filepath.Ext(relPath), ".")]
	if !ok {
		mimeType = "application/octet-stream"
	}
	return &DocumentBlob{
		File:      file,
		Filename:  filepath.Base(relPath),
		MimeType:  mimeType,
		SizeBytes: info.Size(),
	}, nil
}

// BlobPath names a stored document: {owner}/{kind}_{unixMillis}.{ext}.
func BlobPath(ownerID string, kind models.DocumentKind, at time.Time, filename, mimeType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		ext = extensionByMIME[mimeType]
	}
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%s_%d.%s", ownerID, kind, at.UnixMilli(), ext)
}

func (s *DocumentService) put(blobPath, mimeType string, content io.ReadSeeker) (string, bool, error) {
	storeErr := fmt.Errorf("blob store not configured")
	if s.storage != nil && s.signer != nil {
		path, err := s.storage.SaveStream(blobPath, content)
		if err == nil {
			token, _, signErr := s.signer.Generate(ownerFromPath(path), path)
			if signErr == nil {
				return fmt.Sprintf("%s/documents/blob?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token), false, nil
			}
			_ = s.storage.Delete(path)
			err = signErr
		}
		storeErr = err
	}
	if !s.cfg.InlineFallback {
		return "", false, appErrors.Wrap(storeErr, appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, "failed to store document")
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return "", false, appErrors.Wrap(err, appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, "failed to store document")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(content, s.cfg.MaxFileSize)); err != nil {
		return "", false, appErrors.Wrap(err, appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, "failed to store document")
	}
	s.logger.Debug("blob store failed, using inline data url", zap.Error(storeErr))
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(buf.Bytes())), true, nil
}

func (s *DocumentService) detectMime(upload DocumentUpload) (string, error) {
	declared := strings.ToLower(strings.TrimSpace(upload.MimeType))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}
	buf := make([]byte, 512)
	n, err := upload.Content.Read(buf)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInvalidUpload.Code, appErrors.ErrInvalidUpload.Status, "failed to read upload")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInvalidUpload.Code, appErrors.ErrInvalidUpload.Status, "failed to read upload")
	}
	sniffed := http.DetectContentType(buf[:n])
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	return strings.ToLower(sniffed), nil
}

func ownerFromPath(relPath string) string {
	if i := strings.Index(relPath, "/"); i > 0 {
		return relPath[:i]
	}
	return relPath
}
