package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-api/internal/models"
	"github.com/noah-isme/admission-api/internal/repository"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
)

// ManagerStatus is the externally visible session flag.
type ManagerStatus string

const (
	ManagerStatusLoading ManagerStatus = "loading"
	ManagerStatusReady   ManagerStatus = "ready"
)

// Write streams. Revisions are compared within a stream only.
const (
	streamPersonal = "personal"
	streamAcademic = "academic"
	streamDraft    = "draft"
	streamStatus   = "status"
)

func documentStream(kind models.DocumentKind) string {
	return "documents." + string(kind)
}

// ApplicationStore is the persistent store the manager reconciles with.
type ApplicationStore interface {
	FetchByOwner(ctx context.Context, ownerID string) (*models.ApplicationRecord, error)
	UpsertByOwner(ctx context.Context, record *models.ApplicationRecord) (*models.ApplicationRecord, error)
}

type persistenceRecorder interface {
	ObservePersist(stream, outcome string, duration time.Duration)
}

// ManagerConfig tunes a lifecycle manager.
type ManagerConfig struct {
	StoreTimeout time.Duration
	Clock        func() time.Time
	NewID        func() string
}

var errAlreadySubmitted = errors.New("already submitted")

type writeOp struct {
	stream string
	create bool
	apply  func(*models.ApplicationRecord) (*models.ApplicationRecord, error)
}

// ApplicationManager owns one owner's in-memory record and reconciles every
// change with the store. Writes are applied one at a time in arrival order;
// within a stream a write older than the last committed one is dropped.
type ApplicationManager struct {
	identity models.Identity
	store    ApplicationStore
	metrics  persistenceRecorder
	logger   *zap.Logger
	cfg      ManagerConfig

	slot chan struct{}

	mu        sync.RWMutex
	current   *models.ApplicationRecord
	loaded    bool
	issued    map[string]uint64
	committed map[string]uint64

	lastActive atomic.Int64
}

// NewApplicationManager builds a manager for identity. Nothing is fetched
// until Load or the first write.
func NewApplicationManager(identity models.Identity, store ApplicationStore, metrics persistenceRecorder, logger *zap.Logger, cfg ManagerConfig) *ApplicationManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	if cfg.NewID == nil {
		cfg.NewID = NewApplicationID
	}
	m := &ApplicationManager{
		identity:  identity,
		store:     store,
		metrics:   metrics,
		logger:    logger.With(zap.String("owner_id", identity.OwnerID)),
		cfg:       cfg,
		slot:      make(chan struct{}, 1),
		issued:    make(map[string]uint64),
		committed: make(map[string]uint64),
	}
	m.touch()
	return m
}

// NewApplicationID mints a time-ordered application identifier.
func NewApplicationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "APP-" + uuid.NewString()
	}
	return "APP-" + id.String()
}

// Identity returns the session identity.
func (m *ApplicationManager) Identity() models.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

func (m *ApplicationManager) authenticated() bool {
	identity := m.Identity()
	return identity.Authenticated()
}

// refreshIdentity adopts the latest email and display name for the same owner.
func (m *ApplicationManager) refreshIdentity(identity models.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identity.OwnerID != m.identity.OwnerID {
		return
	}
	m.identity = identity
}

// Current returns a copy of the in-memory record, or nil.
func (m *ApplicationManager) Current() *models.ApplicationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

// Status reports loading until the first successful load.
func (m *ApplicationManager) Status() ManagerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loaded {
		return ManagerStatusReady
	}
	return ManagerStatusLoading
}

// OnboardingState derives the onboarding gate from the persisted record.
func (m *ApplicationManager) OnboardingState() models.OnboardingState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.DeriveOnboardingState(m.current)
}

// NeedsOnboarding reports whether the onboarding capture must be shown.
func (m *ApplicationManager) NeedsOnboarding() bool {
	return m.OnboardingState() != models.OnboardingComplete
}

// LastActive returns when the manager was last used.
func (m *ApplicationManager) LastActive() time.Time {
	return time.Unix(0, m.lastActive.Load())
}

// Load fetches the owner's record and replaces in-memory state. A missing
// record is not an error.
func (m *ApplicationManager) Load(ctx context.Context) (*models.ApplicationRecord, error) {
	if !m.authenticated() {
		return nil, appErrors.ErrNotAuthenticated
	}
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()
	return m.loadLocked(ctx)
}

// Refresh re-reads the record from the store.
func (m *ApplicationManager) Refresh(ctx context.Context) (*models.ApplicationRecord, error) {
	return m.Load(ctx)
}

// EnsureLoaded loads the record once.
func (m *ApplicationManager) EnsureLoaded(ctx context.Context) error {
	if !m.authenticated() {
		return appErrors.ErrNotAuthenticated
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()
	if m.Status() == ManagerStatusReady {
		return nil
	}
	_, err := m.loadLocked(ctx)
	return err
}

// UpdatePersonalDetails replaces the personal section and persists.
func (m *ApplicationManager) UpdatePersonalDetails(ctx context.Context, details models.PersonalDetails) (*models.ApplicationRecord, error) {
	return m.write(ctx, writeOp{
		stream: streamPersonal,
		create: true,
		apply: func(r *models.ApplicationRecord) (*models.ApplicationRecord, error) {
			return r.WithPersonalDetails(details)
		},
	})
}

// UpdateAcademicDetails replaces the academic section and persists.
func (m *ApplicationManager) UpdateAcademicDetails(ctx context.Context, details models.AcademicDetails) (*models.ApplicationRecord, error) {
	return m.write(ctx, writeOp{
		stream: streamAcademic,
		create: true,
		apply: func(r *models.ApplicationRecord) (*models.ApplicationRecord, error) {
			return r.WithAcademicDetails(details)
		},
	})
}

// UpdateDocument stores url for kind and persists. An empty url clears it.
func (m *ApplicationManager) UpdateDocument(ctx context.Context, kind models.DocumentKind, url string) (*models.ApplicationRecord, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidUpload, fmt.Sprintf("unknown document kind %q", kind))
	}
	return m.write(ctx, writeOp{
		stream: documentStream(kind),
		create: true,
		apply: func(r *models.ApplicationRecord) (*models.ApplicationRecord, error) {
			return r.WithDocument(kind, url)
		},
	})
}

// SaveDraft re-persists the current record unchanged apart from UpdatedAt.
func (m *ApplicationManager) SaveDraft(ctx context.Context) (*models.ApplicationRecord, error) {
	return m.write(ctx, writeOp{
		stream: streamDraft,
		apply: func(r *models.ApplicationRecord) (*models.ApplicationRecord, error) {
			return r.Clone(), nil
		},
	})
}

// Submit moves the record to submitted. Submitting twice succeeds without a
// second store call and reports alreadySubmitted.
func (m *ApplicationManager) Submit(ctx context.Context) (*models.ApplicationRecord, bool, error) {
	if !m.authenticated() {
		return nil, false, appErrors.ErrNotAuthenticated
	}
	return m.submit(ctx, m.issue(streamStatus))
}

// submit reports already when this call did not perform the transition,
// including when a newer submission committed first and this one was dropped.
func (m *ApplicationManager) submit(ctx context.Context, rev uint64) (*models.ApplicationRecord, bool, error) {
	applied := false
	record, err := m.commit(ctx, rev, writeOp{
		stream: streamStatus,
		apply: func(r *models.ApplicationRecord) (*models.ApplicationRecord, error) {
			if r.IsSubmitted() {
				return nil, errAlreadySubmitted
			}
			applied = true
			return r.AsSubmitted()
		},
	})
	if errors.Is(err, errAlreadySubmitted) {
		return m.Current(), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return record, !applied, nil
}

func (m *ApplicationManager) write(ctx context.Context, op writeOp) (*models.ApplicationRecord, error) {
	if !m.authenticated() {
		return nil, appErrors.ErrNotAuthenticated
	}
	rev := m.issue(op.stream)
	return m.commit(ctx, rev, op)
}

// issue reserves the next revision for stream at call time.
func (m *ApplicationManager) issue(stream string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued[stream]++
	return m.issued[stream]
}

func (m *ApplicationManager) commit(ctx context.Context, rev uint64, op writeOp) (*models.ApplicationRecord, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()

	if m.Status() != ManagerStatusReady {
		if _, err := m.loadLocked(ctx); err != nil {
			return nil, err
		}
	}

	m.mu.RLock()
	superseded := m.committed[op.stream] >= rev
	base := m.current.Clone()
	m.mu.RUnlock()

	if superseded {
		m.logger.Debug("stale application write dropped", zap.String("stream", op.stream), zap.Uint64("revision", rev))
		return base, nil
	}

	if base == nil {
		if !op.create {
			return nil, appErrors.ErrNoRecord
		}
		base = m.ensureRecord()
	}

	next, err := op.apply(base)
	if err != nil {
		if errors.Is(err, models.ErrRecordSubmitted) {
			return nil, appErrors.ErrApplicationLocked
		}
		return nil, err
	}
	next.UpdatedAt = m.cfg.Clock()

	persisted, err := m.persist(ctx, op.stream, next)
	if err != nil {
		m.logger.Warn("application persist failed", zap.String("stream", op.stream), zap.Uint64("revision", rev), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, appErrors.ErrPersistenceFailed.Message)
	}

	m.mu.Lock()
	m.current = persisted
	if rev > m.committed[op.stream] {
		m.committed[op.stream] = rev
	}
	m.mu.Unlock()

	m.logger.Debug("application persisted",
		zap.String("stream", op.stream),
		zap.Uint64("revision", rev),
		zap.String("application_id", persisted.ApplicationID),
	)
	return persisted.Clone(), nil
}

// ensureRecord is the only place a brand new draft is minted.
func (m *ApplicationManager) ensureRecord() *models.ApplicationRecord {
	return models.NewDraft(m.Identity().OwnerID, m.cfg.NewID(), m.cfg.Clock())
}

// persist runs the upsert detached from caller cancellation so an in-flight
// write always completes or fails on its own timeout.
func (m *ApplicationManager) persist(ctx context.Context, stream string, record *models.ApplicationRecord) (*models.ApplicationRecord, error) {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.StoreTimeout)
	defer cancel()

	start := time.Now()
	persisted, err := m.store.UpsertByOwner(storeCtx, record)
	outcome := "success"
	if err == nil && persisted == nil {
		err = fmt.Errorf("store returned no record")
	}
	if err != nil {
		outcome = "failure"
	}
	if m.metrics != nil {
		m.metrics.ObservePersist(stream, outcome, time.Since(start))
	}
	return persisted, err
}

func (m *ApplicationManager) loadLocked(ctx context.Context) (*models.ApplicationRecord, error) {
	storeCtx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()

	record, err := m.store.FetchByOwner(storeCtx, m.Identity().OwnerID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		m.logger.Warn("application load failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	if err != nil {
		record = nil
	}

	m.mu.Lock()
	m.current = record.Clone()
	m.loaded = true
	m.mu.Unlock()
	return record.Clone(), nil
}

func (m *ApplicationManager) acquire(ctx context.Context) error {
	m.touch()
	if err := ctx.Err(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, "request cancelled before the application could be saved")
	}
	select {
	case m.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return appErrors.Wrap(ctx.Err(), appErrors.ErrPersistenceFailed.Code, appErrors.ErrPersistenceFailed.Status, "request cancelled before the application could be saved")
	}
}

func (m *ApplicationManager) release() {
	m.touch()
	<-m.slot
}

// busy reports whether a write currently holds the slot.
func (m *ApplicationManager) busy() bool {
	return len(m.slot) > 0
}

func (m *ApplicationManager) touch() {
	m.lastActive.Store(time.Now().UnixNano())
}
