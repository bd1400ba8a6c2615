// Package memory is an in-memory implementation of store.Repository. It is
// safe for concurrent use and is intended for tests and local experiments.
//
// Transactions are serialized: a transaction holds the store-wide write lock
// from start to commit, which gives the same guarantees as the row locks the
// Postgres implementation takes.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store"
)

type state struct {
	nextID       map[string]uint
	registers    map[uint]models.CashRegister
	sessions     map[uint]models.CashSession
	transactions map[uint]models.CashTransaction
	counts       []models.CashCount
	transfers    map[uint]models.CashTransfer
	auditLogs    []models.AuditLog
}

func newState() *state {
	return &state{
		nextID:       make(map[string]uint),
		registers:    make(map[uint]models.CashRegister),
		sessions:     make(map[uint]models.CashSession),
		transactions: make(map[uint]models.CashTransaction),
		transfers:    make(map[uint]models.CashTransfer),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.nextID {
		c.nextID[k] = v
	}
	for k, v := range st.registers {
		c.registers[k] = v
	}
	for k, v := range st.sessions {
		c.sessions[k] = v
	}
	for k, v := range st.transactions {
		c.transactions[k] = v
	}
	for k, v := range st.transfers {
		c.transfers[k] = v
	}
	c.counts = append([]models.CashCount(nil), st.counts...)
	c.auditLogs = append([]models.AuditLog(nil), st.auditLogs...)
	return c
}

func (st *state) id(table string) uint {
	st.nextID[table]++
	return st.nextID[table]
}

type core struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

type Store struct {
	root *core
	inTx bool
}

var _ store.Repository = (*Store)(nil)

func New() *Store {
	return &Store{root: &core{st: newState()}}
}

func (s *Store) write(fn func(st *state) error) error {
	if !s.inTx {
		s.root.txMu.Lock()
		defer s.root.txMu.Unlock()
	}
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	return fn(s.root.st)
}

func (s *Store) read(fn func(st *state) error) error {
	s.root.mu.RLock()
	defer s.root.mu.RUnlock()
	return fn(s.root.st)
}

func (s *Store) Transaction(ctx context.Context, fn func(tx store.Repository) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.root.txMu.Lock()
	defer s.root.txMu.Unlock()

	s.root.mu.Lock()
	snapshot := s.root.st.clone()
	s.root.mu.Unlock()

	rollback := func() {
		s.root.mu.Lock()
		s.root.st = snapshot
		s.root.mu.Unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	if err = fn(&Store{root: s.root, inTx: true}); err != nil {
		rollback()
	}
	return err
}

// AddCashRegister seeds a register; registers are managed through GORM in production.
func (s *Store) AddCashRegister(r models.CashRegister) models.CashRegister {
	_ = s.write(func(st *state) error {
		if r.ID == 0 {
			r.ID = st.id("registers")
		} else if r.ID > st.nextID["registers"] {
			st.nextID["registers"] = r.ID
		}
		now := time.Now()
		r.CreatedAt, r.UpdatedAt = now, now
		st.registers[r.ID] = r
		return nil
	})
	return r
}

// AuditLogs returns a copy of every audit row written so far.
func (s *Store) AuditLogs() []models.AuditLog {
	var out []models.AuditLog
	_ = s.read(func(st *state) error {
		out = append(out, st.auditLogs...)
		return nil
	})
	return out
}

func (s *Store) GetCashRegister(_ context.Context, id uint) (*models.CashRegister, error) {
	var out *models.CashRegister
	err := s.read(func(st *state) error {
		r, ok := st.registers[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &r
		return nil
	})
	return out, err
}

// sessions -------------------------------------------------------------------

func activeConflict(st *state, sess *models.CashSession) bool {
	if !sess.Status.Active() {
		return false
	}
	for id, other := range st.sessions {
		if id != sess.ID && other.OperatorID == sess.OperatorID && other.Status.Active() {
			return true
		}
	}
	return false
}

func (s *Store) CreateSession(_ context.Context, sess *models.CashSession) error {
	return s.write(func(st *state) error {
		if activeConflict(st, sess) {
			return store.ErrActiveSessionExists
		}
		sess.ID = st.id("sessions")
		now := time.Now()
		sess.CreatedAt, sess.UpdatedAt = now, now
		st.sessions[sess.ID] = *sess
		return nil
	})
}

func (s *Store) UpdateSession(_ context.Context, sess *models.CashSession) error {
	return s.write(func(st *state) error {
		if _, ok := st.sessions[sess.ID]; !ok {
			return store.ErrNotFound
		}
		if activeConflict(st, sess) {
			return store.ErrActiveSessionExists
		}
		sess.UpdatedAt = time.Now()
		st.sessions[sess.ID] = *sess
		return nil
	})
}

func (s *Store) GetSession(_ context.Context, id uint) (*models.CashSession, error) {
	var out *models.CashSession
	err := s.read(func(st *state) error {
		sess, ok := st.sessions[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &sess
		return nil
	})
	return out, err
}

func (s *Store) GetSessionForUpdate(ctx context.Context, id uint) (*models.CashSession, error) {
	return s.GetSession(ctx, id)
}

func (s *Store) FindActiveSessionByOperator(_ context.Context, operatorID uint) (*models.CashSession, error) {
	var out *models.CashSession
	err := s.read(func(st *state) error {
		for _, sess := range st.sessions {
			if sess.OperatorID == operatorID && sess.Status.Active() {
				sess := sess
				out = &sess
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (s *Store) LockOperator(context.Context, uint) error {
	return nil
}

func (s *Store) CountActiveSessions(context.Context) (int64, error) {
	var n int64
	err := s.read(func(st *state) error {
		for _, sess := range st.sessions {
			if sess.Status.Active() {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) ListSessions(_ context.Context, f store.SessionFilter) ([]models.CashSession, error) {
	var out []models.CashSession
	err := s.read(func(st *state) error {
		for _, sess := range st.sessions {
			if f.Status != nil && sess.Status != *f.Status {
				continue
			}
			if f.OperatorID != nil && sess.OperatorID != *f.OperatorID {
				continue
			}
			if f.CashRegisterID != nil && sess.CashRegisterID != *f.CashRegisterID {
				continue
			}
			if f.OpenedFrom != nil && sess.OpenedAt.Before(*f.OpenedFrom) {
				continue
			}
			if f.OpenedTo != nil && !sess.OpenedAt.Before(*f.OpenedTo) {
				continue
			}
			out = append(out, sess)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.After(out[j].OpenedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, f.Offset, f.Limit), nil
}

// transactions ---------------------------------------------------------------

func (s *Store) CreateTransaction(_ context.Context, t *models.CashTransaction) error {
	return s.write(func(st *state) error {
		t.ID = st.id("transactions")
		t.CreatedAt = time.Now()
		st.transactions[t.ID] = *t
		return nil
	})
}

func (s *Store) UpdateTransactionMetadata(_ context.Context, t *models.CashTransaction) error {
	return s.write(func(st *state) error {
		cur, ok := st.transactions[t.ID]
		if !ok {
			return store.ErrNotFound
		}
		cur.Metadata = t.Metadata
		st.transactions[t.ID] = cur
		return nil
	})
}

func (s *Store) GetTransactionForUpdate(_ context.Context, id uint) (*models.CashTransaction, error) {
	var out *models.CashTransaction
	err := s.read(func(st *state) error {
		t, ok := st.transactions[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (s *Store) ListTransactions(ctx context.Context, sessionID uint) ([]models.CashTransaction, error) {
	return s.ListTransactionsBySessions(ctx, []uint{sessionID})
}

func (s *Store) ListTransactionsBySessions(_ context.Context, sessionIDs []uint) ([]models.CashTransaction, error) {
	want := make(map[uint]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		want[id] = true
	}

	var out []models.CashTransaction
	err := s.read(func(st *state) error {
		for _, t := range st.transactions {
			if want[t.CashSessionID] {
				out = append(out, t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

// counts ---------------------------------------------------------------------

func (s *Store) CreateCounts(_ context.Context, counts []models.CashCount) error {
	return s.write(func(st *state) error {
		now := time.Now()
		for i := range counts {
			counts[i].ID = st.id("counts")
			counts[i].CreatedAt = now
			st.counts = append(st.counts, counts[i])
		}
		return nil
	})
}

func (s *Store) ListCounts(_ context.Context, sessionID uint) ([]models.CashCount, error) {
	var out []models.CashCount
	err := s.read(func(st *state) error {
		for _, c := range st.counts {
			if c.CashSessionID == sessionID {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

// transfers ------------------------------------------------------------------

func (s *Store) CreateTransfer(_ context.Context, t *models.CashTransfer) error {
	return s.write(func(st *state) error {
		for _, other := range st.transfers {
			if other.CashSessionID == t.CashSessionID {
				return store.ErrDuplicate
			}
		}
		t.ID = st.id("transfers")
		now := time.Now()
		t.CreatedAt, t.UpdatedAt = now, now
		st.transfers[t.ID] = *t
		return nil
	})
}

func (s *Store) UpdateTransfer(_ context.Context, t *models.CashTransfer) error {
	return s.write(func(st *state) error {
		if _, ok := st.transfers[t.ID]; !ok {
			return store.ErrNotFound
		}
		t.UpdatedAt = time.Now()
		st.transfers[t.ID] = *t
		return nil
	})
}

func (s *Store) GetTransfer(_ context.Context, id uint) (*models.CashTransfer, error) {
	var out *models.CashTransfer
	err := s.read(func(st *state) error {
		t, ok := st.transfers[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (s *Store) GetTransferForUpdate(ctx context.Context, id uint) (*models.CashTransfer, error) {
	return s.GetTransfer(ctx, id)
}

func (s *Store) GetTransferBySession(_ context.Context, sessionID uint) (*models.CashTransfer, error) {
	var out *models.CashTransfer
	err := s.read(func(st *state) error {
		for _, t := range st.transfers {
			if t.CashSessionID == sessionID {
				t := t
				out = &t
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (s *Store) ListTransfers(_ context.Context, f store.TransferFilter) ([]models.CashTransfer, error) {
	var out []models.CashTransfer
	err := s.read(func(st *state) error {
		for _, t := range st.transfers {
			if f.PendingOnly {
				sess := st.sessions[t.CashSessionID]
				if t.ReceivedAt != nil || sess.Status != models.SessionTransferred {
					continue
				}
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransferredAt.Equal(out[j].TransferredAt) {
			return out[i].TransferredAt.Before(out[j].TransferredAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, f.Offset, f.Limit), nil
}

// audit ----------------------------------------------------------------------

func (s *Store) CreateAuditLog(_ context.Context, l *models.AuditLog) error {
	return s.write(func(st *state) error {
		l.ID = st.id("audit_logs")
		l.CreatedAt = time.Now()
		st.auditLogs = append(st.auditLogs, *l)
		return nil
	})
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
