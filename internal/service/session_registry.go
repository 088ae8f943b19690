package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/admission-api/internal/models"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
)

type sessionGauge interface {
	SetActiveSessions(n int)
}

// SessionRegistryConfig tunes session lifetime.
type SessionRegistryConfig struct {
	IdleTTL time.Duration
	Manager ManagerConfig
}

// SessionRegistry hands out exactly one lifecycle manager per owner so every
// request for that owner sees the same in-memory record.
type SessionRegistry struct {
	store   ApplicationStore
	metrics persistenceRecorder
	gauge   sessionGauge
	logger  *zap.Logger
	cfg     SessionRegistryConfig

	mu       sync.Mutex
	sessions map[string]*ApplicationManager
}

// NewSessionRegistry constructs an empty registry.
func NewSessionRegistry(store ApplicationStore, metrics *MetricsService, logger *zap.Logger, cfg SessionRegistryConfig) *SessionRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	r := &SessionRegistry{
		store:    store,
		logger:   logger,
		cfg:      cfg,
		sessions: make(map[string]*ApplicationManager),
	}
	if metrics != nil {
		r.metrics = metrics
		r.gauge = metrics
	}
	return r
}

// Acquire returns the owner's manager, loading the record on first use.
func (r *SessionRegistry) Acquire(ctx context.Context, identity *models.Identity) (*ApplicationManager, error) {
	if !identity.Authenticated() {
		return nil, appErrors.ErrNotAuthenticated
	}
	r.mu.Lock()
	manager, ok := r.sessions[identity.OwnerID]
	if !ok {
		manager = NewApplicationManager(*identity, r.store, r.metrics, r.logger, r.cfg.Manager)
		r.sessions[identity.OwnerID] = manager
		r.logger.Debug("application session opened", zap.String("owner_id", identity.OwnerID))
	} else {
		manager.refreshIdentity(*identity)
	}
	size := len(r.sessions)
	r.mu.Unlock()
	r.report(size)

	if err := manager.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	return manager, nil
}

// Sweep evicts managers idle longer than the configured TTL and returns how
// many were removed. A manager with a write in flight is never evicted.
func (r *SessionRegistry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.cfg.IdleTTL)
	r.mu.Lock()
	removed := 0
	for owner, manager := range r.sessions {
		if manager.busy() {
			continue
		}
		if manager.LastActive().Before(cutoff) {
			delete(r.sessions, owner)
			removed++
		}
	}
	size := len(r.sessions)
	r.mu.Unlock()
	r.report(size)
	if removed > 0 {
		r.logger.Info("application sessions evicted", zap.Int("count", removed), zap.Int("remaining", size))
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *SessionRegistry) report(size int) {
	if r.gauge != nil {
		r.gauge.SetActiveSessions(size)
	}
}
