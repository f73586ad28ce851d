package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kingshoppers/storefront/pkg/enums"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/logger"
	"github.com/kingshoppers/storefront/pkg/metrics"
)

// ServiceParams wires the cart service.
type ServiceParams struct {
	Store     Persister
	Metrics   *metrics.CartMetrics
	Formatter *Formatter
	TaxMode   enums.TaxMode
	Logger    *logger.Logger
	Clock     func() time.Time
}

// Service hands out session engines. Calls for one session are serialized
// so concurrent requests behave as a single mutator.
type Service struct {
	store     Persister
	metrics   *metrics.CartMetrics
	formatter *Formatter
	taxMode   enums.TaxMode
	logg      *logger.Logger
	clock     func() time.Time

	mirrorMu sync.RWMutex
	mirror   Mirror

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

// sessionLock is held by one session at a time. refs counts holders and
// waiters so the entry can be dropped once nobody needs it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewService builds a cart service.
func NewService(p ServiceParams) (*Service, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if p.Formatter == nil {
		return nil, fmt.Errorf("formatter required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !p.TaxMode.IsValid() {
		return nil, fmt.Errorf("invalid tax mode %q", p.TaxMode)
	}
	return &Service{
		store:     p.Store,
		metrics:   p.Metrics,
		formatter: p.Formatter,
		taxMode:   p.TaxMode,
		logg:      p.Logger,
		clock:     p.Clock,
		locks:     map[string]*sessionLock{},
	}, nil
}

// AttachMirror routes committed snapshots to m. Pass nil to detach.
func (s *Service) AttachMirror(m Mirror) {
	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()
	s.mirror = m
}

// WithCart loads the session cart and runs fn while holding the session lock.
func (s *Service) WithCart(ctx context.Context, sessionID string, fn func(*Engine) error) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	unlock := s.lockSession(sessionID)
	defer unlock()

	engine, err := s.load(ctx, sessionID, s.store, s.currentMirror())
	if err != nil {
		return err
	}
	return fn(engine)
}

// Peek returns a read-only engine for the session. Mutations on it fail.
func (s *Service) Peek(ctx context.Context, sessionID string) (*Engine, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	return s.load(ctx, sessionID, readOnlyStore{}, nil)
}

// MarkSynced records that the mirror accepted version of the session cart.
func (s *Service) MarkSynced(ctx context.Context, sessionID string, version int64) error {
	unlock := s.lockSession(strings.TrimSpace(sessionID))
	defer unlock()
	return s.store.MarkSynced(ctx, sessionID, version)
}

func (s *Service) load(ctx context.Context, sessionID string, store Persister, mirror Mirror) (*Engine, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if state == nil {
		s.logg.Debug(s.logg.WithSessionID(ctx, sessionID), "starting empty cart")
	}
	return NewEngine(EngineParams{
		SessionID: sessionID,
		Initial:   state,
		Store:     store,
		Mirror:    mirror,
		Metrics:   s.metrics,
		Formatter: s.formatter,
		TaxMode:   s.taxMode,
		Clock:     s.clock,
	})
}

func (s *Service) currentMirror() Mirror {
	s.mirrorMu.RLock()
	defer s.mirrorMu.RUnlock()
	return s.mirror
}

func (s *Service) lockSession(sessionID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.locksMu.Unlock()
	}
}

type readOnlyStore struct{}

func (readOnlyStore) Load(context.Context, string) (*State, error) { return nil, nil }

func (readOnlyStore) Save(context.Context, State) error {
	return fmt.Errorf("cart opened read-only")
}

func (readOnlyStore) MarkSynced(context.Context, string, int64) error {
	return fmt.Errorf("cart opened read-only")
}
