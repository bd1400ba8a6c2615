// Package cashflow is the cash session and treasury settlement engine:
// session lifecycle, ledger, count reconciliation, treasury handover and the
// daily consolidation report.
//
// Every mutation runs in one store transaction with the session row locked,
// so each check sees the same state the write commits against. Cache
// invalidation, audit rows, metrics and logs happen after commit and never
// change an operation's outcome.
package cashflow

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"restoran-kasa/internal/apperr"
	"restoran-kasa/internal/audit"
	"restoran-kasa/internal/cache"
	"restoran-kasa/internal/logger"
	"restoran-kasa/internal/metrics"
	"restoran-kasa/internal/store"
)

// Actor is the authenticated user a call is made on behalf of.
type Actor struct {
	ID   uint
	Name string
}

type Service struct {
	repo    store.Repository
	log     *logrus.Entry
	cache   cache.Cache
	metrics *metrics.Metrics
	now     func() time.Time
	policy  Policy
	loc     *time.Location
}

type Option func(*Service)

func WithLogger(l *logrus.Entry) Option { return func(s *Service) { s.log = l } }

func WithCache(c cache.Cache) Option { return func(s *Service) { s.cache = c } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithPolicy(p Policy) Option { return func(s *Service) { s.policy = p } }

// WithLocation sets the zone that defines calendar days for reports.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

func NewService(repo store.Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		log:    logger.Discard(),
		cache:  cache.Noop{},
		now:    time.Now,
		policy: DefaultPolicy(),
		loc:    time.UTC,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.WithField("component", "cashflow")
	return s
}

func (s *Service) Policy() Policy { return s.policy }

func (s *Service) Location() *time.Location { return s.loc }

// Now is the service clock, in the business time zone.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

// SyncActiveSessions sets the active session gauge from the store. main calls
// it once at startup so the gauge does not start at zero after a restart.
func (s *Service) SyncActiveSessions(ctx context.Context) (int64, error) {
	n, err := s.repo.CountActiveSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("aktif oturumlar sayılamadı: %w", err)
	}
	s.metrics.SetActiveSessions(n)
	return n, nil
}

func (s *Service) refreshActiveSessions(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if _, err := s.SyncActiveSessions(ctx); err != nil {
		s.log.WithError(err).Warn("active_sessions güncellenemedi")
	}
}

func (s *Service) observe(op string, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = string(apperr.KindOf(*err))
	}
	s.metrics.Observe(op, outcome)
}

func (s *Service) audit(ctx context.Context, opts audit.LogOptions) {
	if err := audit.WriteLog(ctx, s.repo, opts); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"entity_type": opts.EntityType,
			"entity_id":   opts.EntityID,
		}).Warn("Audit log yazılamadı")
	}
}
