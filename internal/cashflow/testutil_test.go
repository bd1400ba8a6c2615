package cashflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store/memory"
)

var (
	operator   = Actor{ID: 10, Name: "Ayşe"}
	operator2  = Actor{ID: 11, Name: "Mehmet"}
	supervisor = Actor{ID: 20, Name: "Şef"}
	treasurer  = Actor{ID: 30, Name: "Hazine"}
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type env struct {
	svc      *Service
	store    *memory.Store
	clock    *fakeClock
	register models.CashRegister
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	st := memory.New()
	reg := st.AddCashRegister(models.CashRegister{Name: "Kasa 1", IsActive: true})
	clk := &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clk.Now)}, opts...)
	return &env{
		svc:      NewService(st, opts...),
		store:    st,
		clock:    clk,
		register: reg,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T { return &v }

// countFor is a single-row count adding up to amount.
func countFor(amount string) []CountLine {
	d := dec(amount)
	if d.IsZero() {
		return []CountLine{{Denomination: dec("1"), Quantity: 0}}
	}
	return []CountLine{{Denomination: d, Quantity: 1}}
}

func (e *env) open(t *testing.T, op Actor, amount string) *models.CashSession {
	t.Helper()
	sess, err := e.svc.OpenSession(context.Background(), OpenSessionInput{
		CashRegisterID: e.register.ID,
		OpeningAmount:  dec(amount),
		Operator:       op,
	})
	require.NoError(t, err)
	return sess
}

func (e *env) sale(t *testing.T, sessionID uint, amount string, method models.PaymentMethod) *models.CashTransaction {
	t.Helper()
	tx, err := e.svc.RecordSale(context.Background(), SaleInput{
		SessionID:     sessionID,
		Amount:        dec(amount),
		PaymentMethod: method,
		User:          operator,
	})
	require.NoError(t, err)
	return tx
}

func (e *env) closeWith(t *testing.T, sessionID uint, counted, notes string) *CloseResult {
	t.Helper()
	res, err := e.svc.CloseSession(context.Background(), CloseSessionInput{
		SessionID:     sessionID,
		CountedAmount: dec(counted),
		Counts:        countFor(counted),
		Notes:         notes,
		ClosedBy:      operator,
	})
	require.NoError(t, err)
	return res
}

func (e *env) balance(t *testing.T, sessionID uint) *Balance {
	t.Helper()
	b, err := e.svc.GetSessionBalance(context.Background(), sessionID)
	require.NoError(t, err)
	return b
}
