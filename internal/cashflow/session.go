package cashflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"restoran-kasa/internal/apperr"
	"restoran-kasa/internal/audit"
	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store"
)

const sessionsCachePrefix = "sessions:"

type OpenSessionInput struct {
	CashRegisterID uint
	OpeningAmount  decimal.Decimal
	Operator       Actor
	Notes          string
}

type CloseSessionInput struct {
	SessionID     uint
	CountedAmount decimal.Decimal
	Counts        []CountLine
	Notes         string
	ClosedBy      Actor
}

type ReopenSessionInput struct {
	SessionID  uint
	Reason     string
	Supervisor Actor
}

type CloseResult struct {
	Session        *models.CashSession `json:"session"`
	Balance        Balance             `json:"balance"`
	Reconciliation Reconciliation      `json:"reconciliation"`
	Counts         []models.CashCount  `json:"counts"`
}

type SessionDetails struct {
	Session      *models.CashSession      `json:"session"`
	Balance      Balance                  `json:"balance"`
	Transactions []models.CashTransaction `json:"transactions"`
	Counts       []models.CashCount       `json:"counts"`
	Transfer     *models.CashTransfer     `json:"transfer,omitempty"`
}

func (s *Service) OpenSession(ctx context.Context, in OpenSessionInput) (out *models.CashSession, err error) {
	defer s.observe("open_session", &err)

	p := s.policy
	if in.OpeningAmount.LessThan(p.MinOpeningAmount) || in.OpeningAmount.GreaterThan(p.MaxOpeningAmount) {
		return nil, apperr.Validation("Açılış tutarı %s ile %s arasında olmalı",
			p.MinOpeningAmount.StringFixed(2), p.MaxOpeningAmount.StringFixed(2)).
			WithField("opening_amount", fmt.Sprintf("%s - %s", p.MinOpeningAmount.StringFixed(2), p.MaxOpeningAmount.StringFixed(2)))
	}
	if !twoPlaces(in.OpeningAmount) {
		return nil, apperr.Validation("Açılış tutarı en fazla 2 ondalık içerebilir").WithField("opening_amount", "en fazla 2 ondalık")
	}
	if in.CashRegisterID == 0 {
		return nil, apperr.Validation("Kasa seçilmedi").WithField("cash_register_id", "zorunlu")
	}
	if err := requireActor("operator_id", in.Operator); err != nil {
		return nil, err
	}

	var sess *models.CashSession
	err = s.repo.Transaction(ctx, func(tx store.Repository) error {
		reg, err := tx.GetCashRegister(ctx, in.CashRegisterID)
		if err != nil {
			return mapNotFound(err, "Kasa bulunamadı: %d", in.CashRegisterID)
		}
		if !reg.IsActive {
			return apperr.Business("Kasa %q pasif, oturum açılamaz", reg.Name)
		}

		if err := tx.LockOperator(ctx, in.Operator.ID); err != nil {
			return fmt.Errorf("operatör kilidi alınamadı: %w", err)
		}
		active, err := tx.FindActiveSessionByOperator(ctx, in.Operator.ID)
		switch {
		case err == nil:
			return apperr.Conflict("Operatörün zaten aktif bir kasa oturumu var (oturum %d, durum %s)", active.ID, active.Status)
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("aktif oturum kontrolü: %w", err)
		}

		now := s.now()
		sess = &models.CashSession{
			CashRegisterID: reg.ID,
			OperatorID:     in.Operator.ID,
			Status:         models.SessionOpen,
			OpeningAmount:  in.OpeningAmount,
			OpenedAt:       now,
			Notes:          strings.TrimSpace(in.Notes),
		}
		if err := tx.CreateSession(ctx, sess); err != nil {
			if errors.Is(err, store.ErrActiveSessionExists) {
				return apperr.Conflict("Operatörün zaten aktif bir kasa oturumu var")
			}
			return fmt.Errorf("oturum oluşturulamadı: %w", err)
		}

		return tx.CreateTransaction(ctx, &models.CashTransaction{
			CashSessionID: sess.ID,
			Type:          models.TxOpening,
			Amount:        signedAmount(models.TxOpening, in.OpeningAmount),
			Description:   "Kasa açılışı",
			UserID:        in.Operator.ID,
			Timestamp:     now,
			Metadata:      models.TransactionMetadata{},
		})
	})
	if err != nil {
		return nil, err
	}

	s.refreshActiveSessions(ctx)
	s.metrics.Ledger(string(models.TxOpening), in.OpeningAmount.InexactFloat64())
	s.log.WithFields(logrus.Fields{
		"session_id":       sess.ID,
		"cash_register_id": sess.CashRegisterID,
		"operator_id":      sess.OperatorID,
		"opening_amount":   sess.OpeningAmount.StringFixed(2),
	}).Info("Kasa oturumu açıldı")
	s.afterSessionWrite(ctx, sess, in.Operator, models.AuditActionOpen,
		fmt.Sprintf("Kasa açıldı, açılış tutarı %s", sess.OpeningAmount.StringFixed(2)), nil)
	return sess, nil
}

// CloseSession settles an OPEN or REOPENED session against a physical count.
func (s *Service) CloseSession(ctx context.Context, in CloseSessionInput) (out *CloseResult, err error) {
	defer s.observe("close_session", &err)

	if in.CountedAmount.IsNegative() || !twoPlaces(in.CountedAmount) {
		return nil, apperr.Validation("Sayılan tutar geçersiz").WithField("counted_amount", "negatif olmayan, en fazla 2 ondalık")
	}
	counts, err := VerifyCounts(in.Counts, in.CountedAmount)
	if err != nil {
		return nil, err
	}
	if err := requireActor("closed_by", in.ClosedBy); err != nil {
		return nil, err
	}
	notes := strings.TrimSpace(in.Notes)

	var (
		sess   *models.CashSession
		before models.CashSession
		bal    Balance
		rec    Reconciliation
	)
	err = s.repo.Transaction(ctx, func(tx store.Repository) error {
		var err error
		sess, err = tx.GetSessionForUpdate(ctx, in.SessionID)
		if err != nil {
			return mapNotFound(err, "Kasa oturumu bulunamadı: %d", in.SessionID)
		}
		switch sess.Status {
		case models.SessionOpen, models.SessionReopened:
		default:
			return apperr.Business("Sadece açık oturum kapatılabilir (oturum %d, durum: %s)", sess.ID, sess.Status)
		}
		before = *sess

		txs, err := tx.ListTransactions(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("işlemler okunamadı: %w", err)
		}
		bal = ComputeBalance(sess.OpeningAmount, txs)
		bal.SessionID = sess.ID
		rec = s.policy.Reconcile(bal.ExpectedCash, in.CountedAmount)

		if rec.RequiresJustification && notes == "" {
			return apperr.Validation("Kasa farkı %%%s, %%%s üzerindeki farklar için açıklama zorunlu",
				rec.DifferencePercent.StringFixed(2), s.policy.BreakJustifyPercent.String()).
				WithField("notes", "açıklama zorunlu")
		}

		round := sess.CloseRound + 1
		now := s.now()
		for i := range counts {
			counts[i].CashSessionID = sess.ID
			counts[i].Round = round
			counts[i].CreatedAt = now
		}
		if err := tx.CreateCounts(ctx, counts); err != nil {
			return fmt.Errorf("sayım kaydedilemedi: %w", err)
		}

		closedBy := in.ClosedBy.ID
		sess.Status = models.SessionClosed
		sess.ClosedAt = &now
		sess.ClosedBy = &closedBy
		sess.ExpectedAmount = decimal.NullDecimal{Decimal: rec.ExpectedAmount, Valid: true}
		sess.CountedAmount = decimal.NullDecimal{Decimal: rec.CountedAmount, Valid: true}
		sess.Difference = decimal.NullDecimal{Decimal: rec.Difference, Valid: true}
		sess.CloseRound = round
		if notes != "" {
			sess.Notes = notes
		}
		return tx.UpdateSession(ctx, sess)
	})
	if err != nil {
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{
		"session_id":         sess.ID,
		"cash_register_id":   sess.CashRegisterID,
		"operator_id":        sess.OperatorID,
		"expected_amount":    rec.ExpectedAmount.StringFixed(2),
		"counted_amount":     rec.CountedAmount.StringFixed(2),
		"difference":         rec.Difference.StringFixed(2),
		"difference_percent": rec.DifferencePercent.StringFixed(2),
		"close_round":        sess.CloseRound,
	})
	if rec.SignificantBreak {
		pct, _ := rec.DifferencePercent.Float64()
		s.metrics.CashBreak(rec.Severity(), pct)
		entry.Warn("Önemli kasa farkı")
	}
	entry.Info("Kasa oturumu kapatıldı")

	s.refreshActiveSessions(ctx)
	s.afterSessionWrite(ctx, sess, in.ClosedBy, models.AuditActionClose,
		fmt.Sprintf("Kasa kapatıldı, sayılan %s, fark %s", rec.CountedAmount.StringFixed(2), rec.Difference.StringFixed(2)), before)

	return &CloseResult{Session: sess, Balance: bal, Reconciliation: rec, Counts: counts}, nil
}

// ReopenSession puts a CLOSED session back into service within the reopen
// window. Prior counts and transactions stay untouched.
func (s *Service) ReopenSession(ctx context.Context, in ReopenSessionInput) (out *models.CashSession, err error) {
	defer s.observe("reopen_session", &err)

	reason := strings.TrimSpace(in.Reason)
	if utf8.RuneCountInString(reason) < s.policy.ReopenReasonMin {
		return nil, apperr.Validation("Yeniden açma nedeni en az %d karakter olmalı", s.policy.ReopenReasonMin).
			WithField("reason", fmt.Sprintf("en az %d karakter", s.policy.ReopenReasonMin))
	}
	if err := requireActor("supervisor_id", in.Supervisor); err != nil {
		return nil, err
	}

	var sess *models.CashSession
	var before models.CashSession
	err = s.repo.Transaction(ctx, func(tx store.Repository) error {
		var err error
		sess, err = tx.GetSessionForUpdate(ctx, in.SessionID)
		if err != nil {
			return mapNotFound(err, "Kasa oturumu bulunamadı: %d", in.SessionID)
		}
		switch sess.Status {
		case models.SessionClosed:
		default:
			return apperr.Business("Sadece kapalı oturum yeniden açılabilir (oturum %d, durum: %s)", sess.ID, sess.Status)
		}
		if sess.ReopenCount >= s.policy.MaxReopens {
			return apperr.Business("Oturum %d daha önce yeniden açılmış", sess.ID)
		}
		if sess.ClosedAt == nil {
			return fmt.Errorf("kapalı oturum %d için kapanış zamanı yok", sess.ID)
		}

		now := s.now()
		if elapsed := now.Sub(*sess.ClosedAt); elapsed > s.policy.ReopenWindow {
			return apperr.Business("Yeniden açma süresi doldu: kapanıştan bu yana %s geçti (sınır %s)",
				elapsed.Truncate(time.Second), s.policy.ReopenWindow)
		}

		if err := tx.LockOperator(ctx, sess.OperatorID); err != nil {
			return fmt.Errorf("operatör kilidi alınamadı: %w", err)
		}
		active, err := tx.FindActiveSessionByOperator(ctx, sess.OperatorID)
		switch {
		case err == nil:
			return apperr.Conflict("Operatörün başka bir aktif oturumu var (oturum %d)", active.ID)
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("aktif oturum kontrolü: %w", err)
		}

		before = *sess
		supervisor := in.Supervisor.ID
		sess.Status = models.SessionReopened
		sess.ReopenReason = reason
		sess.ReopenedAt = &now
		sess.ReopenedBy = &supervisor
		sess.ReopenCount++
		if err := tx.UpdateSession(ctx, sess); err != nil {
			if errors.Is(err, store.ErrActiveSessionExists) {
				return apperr.Conflict("Operatörün başka bir aktif oturumu var")
			}
			return fmt.Errorf("oturum güncellenemedi: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshActiveSessions(ctx)
	s.log.WithFields(logrus.Fields{
		"session_id":    sess.ID,
		"operator_id":   sess.OperatorID,
		"supervisor_id": in.Supervisor.ID,
		"reason":        reason,
	}).Warn("Kasa oturumu yeniden açıldı")
	s.afterSessionWrite(ctx, sess, in.Supervisor, models.AuditActionReopen,
		"Kasa yeniden açıldı: "+reason, before)
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, id uint) (*SessionDetails, error) {
	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "Kasa oturumu bulunamadı: %d", id)
	}
	return s.details(ctx, sess)
}

// GetActiveSession returns the operator's OPEN or REOPENED session.
func (s *Service) GetActiveSession(ctx context.Context, operatorID uint) (*SessionDetails, error) {
	sess, err := s.repo.FindActiveSessionByOperator(ctx, operatorID)
	if err != nil {
		return nil, mapNotFound(err, "Aktif kasa oturumu yok")
	}
	return s.details(ctx, sess)
}

func (s *Service) details(ctx context.Context, sess *models.CashSession) (*SessionDetails, error) {
	txs, err := s.repo.ListTransactions(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("işlemler okunamadı: %w", err)
	}
	counts, err := s.repo.ListCounts(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("sayımlar okunamadı: %w", err)
	}

	d := &SessionDetails{
		Session:      sess,
		Balance:      ComputeBalance(sess.OpeningAmount, txs),
		Transactions: txs,
		Counts:       counts,
	}
	d.Balance.SessionID = sess.ID

	t, err := s.repo.GetTransferBySession(ctx, sess.ID)
	switch {
	case err == nil:
		d.Transfer = t
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("devir okunamadı: %w", err)
	}
	return d, nil
}

// ListSessions reads through the cache when one is configured.
func (s *Service) ListSessions(ctx context.Context, f store.SessionFilter) ([]models.CashSession, error) {
	key := sessionsCacheKey(f)

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.WithError(err).Debug("Cache okunamadı")
	} else if ok {
		var cached []models.CashSession
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	out, err := s.repo.ListSessions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("oturumlar listelenemedi: %w", err)
	}

	if raw, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, key, raw); err != nil {
			s.log.WithError(err).Debug("Cache yazılamadı")
		}
	}
	return out, nil
}

func sessionsCacheKey(f store.SessionFilter) string {
	var b strings.Builder
	b.WriteString(sessionsCachePrefix)
	if f.Status != nil {
		fmt.Fprintf(&b, "s=%s;", *f.Status)
	}
	if f.OperatorID != nil {
		fmt.Fprintf(&b, "o=%d;", *f.OperatorID)
	}
	if f.CashRegisterID != nil {
		fmt.Fprintf(&b, "r=%d;", *f.CashRegisterID)
	}
	if f.OpenedFrom != nil {
		fmt.Fprintf(&b, "from=%d;", f.OpenedFrom.Unix())
	}
	if f.OpenedTo != nil {
		fmt.Fprintf(&b, "to=%d;", f.OpenedTo.Unix())
	}
	fmt.Fprintf(&b, "l=%d;off=%d", f.Limit, f.Offset)
	return b.String()
}

// invalidate drops cached session lists; failures are logged only.
func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, sessionsCachePrefix); err != nil {
		s.log.WithError(err).Warn("Oturum listesi cache'i temizlenemedi")
	}
}

func (s *Service) afterSessionWrite(ctx context.Context, sess *models.CashSession, by Actor, action models.AuditAction, desc string, before any) {
	s.invalidate(ctx)
	s.audit(ctx, audit.LogOptions{
		CashRegisterID: &sess.CashRegisterID,
		UserID:         by.ID,
		UserName:       by.Name,
		EntityType:     "cash_session",
		EntityID:       sess.ID,
		Action:         action,
		Description:    desc,
		Before:         before,
		After:          sess,
	})
}
