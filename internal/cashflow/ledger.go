package cashflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"restoran-kasa/internal/apperr"
	"restoran-kasa/internal/audit"
	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store"
)

// Balance is the fold of a session's ledger. Cancelled rows are skipped and
// the OPENING row is represented by OpeningAmount.
type Balance struct {
	SessionID      uint            `json:"session_id"`
	OpeningAmount  decimal.Decimal `json:"opening_amount"`
	CashSales      decimal.Decimal `json:"cash_sales"`
	CardSales      decimal.Decimal `json:"card_sales"`
	PixSales       decimal.Decimal `json:"pix_sales"`
	TotalSales     decimal.Decimal `json:"total_sales"`
	Withdrawals    decimal.Decimal `json:"withdrawals"`
	Supplies       decimal.Decimal `json:"supplies"`
	ExpectedCash   decimal.Decimal `json:"expected_cash"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Transactions   int             `json:"transactions"`
	Cancelled      int             `json:"cancelled"`
}

// ComputeBalance is order independent: every figure is a plain sum.
func ComputeBalance(opening decimal.Decimal, txs []models.CashTransaction) Balance {
	b := Balance{
		OpeningAmount: opening,
		CashSales:     decimal.Zero,
		CardSales:     decimal.Zero,
		PixSales:      decimal.Zero,
		Withdrawals:   decimal.Zero,
		Supplies:      decimal.Zero,
	}

	for _, t := range txs {
		if t.Cancelled() {
			b.Cancelled++
			continue
		}
		b.Transactions++

		switch t.Type {
		case models.TxSale:
			if t.PaymentMethod == nil {
				continue
			}
			switch *t.PaymentMethod {
			case models.PaymentCash:
				b.CashSales = b.CashSales.Add(t.Amount)
			case models.PaymentDebit, models.PaymentCredit:
				b.CardSales = b.CardSales.Add(t.Amount)
			case models.PaymentPix:
				b.PixSales = b.PixSales.Add(t.Amount)
			}
		case models.TxWithdrawal:
			b.Withdrawals = b.Withdrawals.Add(t.Amount.Abs())
		case models.TxSupply:
			b.Supplies = b.Supplies.Add(t.Amount)
		}
	}

	b.TotalSales = b.CashSales.Add(b.CardSales).Add(b.PixSales)
	b.ExpectedCash = opening.Add(b.CashSales).Sub(b.Withdrawals).Add(b.Supplies)
	b.CurrentBalance = opening.Add(b.TotalSales).Sub(b.Withdrawals).Add(b.Supplies)
	return b
}

// signedAmount applies the ledger sign convention: callers pass magnitudes,
// withdrawals are stored negative.
func signedAmount(t models.CashTransactionType, magnitude decimal.Decimal) decimal.Decimal {
	if t == models.TxWithdrawal {
		return magnitude.Abs().Neg()
	}
	return magnitude.Abs()
}

type SaleInput struct {
	SessionID     uint
	Amount        decimal.Decimal
	PaymentMethod models.PaymentMethod
	SaleID        string
	ChangeGiven   *decimal.Decimal
	Description   string
	User          Actor
}

type WithdrawalInput struct {
	SessionID    uint
	Amount       decimal.Decimal
	Reason       string
	AuthorizedBy *uint
	User         Actor
}

type SupplyInput struct {
	SessionID    uint
	Amount       decimal.Decimal
	Reason       string
	AuthorizedBy *uint
	User         Actor
}

type CancelInput struct {
	TransactionID uint
	Reason        string
	Supervisor    Actor
}

func (s *Service) RecordSale(ctx context.Context, in SaleInput) (out *models.CashTransaction, err error) {
	defer s.observe("record_sale", &err)

	if err := requireAmount("amount", in.Amount); err != nil {
		return nil, err
	}
	if !in.PaymentMethod.Valid() {
		return nil, apperr.Validation("Geçersiz ödeme yöntemi: %q", in.PaymentMethod).
			WithField("payment_method", "CASH, DEBIT, CREDIT veya PIX olmalı")
	}
	if in.ChangeGiven != nil {
		if in.PaymentMethod != models.PaymentCash {
			return nil, apperr.Validation("Para üstü sadece nakit satışta verilebilir").
				WithField("change_given", "sadece CASH")
		}
		if in.ChangeGiven.IsNegative() || !twoPlaces(*in.ChangeGiven) {
			return nil, apperr.Validation("Para üstü geçersiz").WithField("change_given", "negatif olmayan, en fazla 2 ondalık")
		}
	}
	if err := requireActor("user_id", in.User); err != nil {
		return nil, err
	}

	method := in.PaymentMethod
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = "Satış"
	}

	var created *models.CashTransaction
	var sess *models.CashSession
	err = s.repo.Transaction(ctx, func(tx store.Repository) error {
		var err error
		sess, err = lockWritableSession(ctx, tx, in.SessionID)
		if err != nil {
			return err
		}

		created = &models.CashTransaction{
			CashSessionID: sess.ID,
			Type:          models.TxSale,
			PaymentMethod: &method,
			Amount:        signedAmount(models.TxSale, in.Amount),
			Description:   desc,
			UserID:        in.User.ID,
			Timestamp:     s.now(),
			Metadata: models.TransactionMetadata{
				SaleID:      strings.TrimSpace(in.SaleID),
				ChangeGiven: in.ChangeGiven,
			},
		}
		return tx.CreateTransaction(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Ledger(string(models.TxSale), created.Amount.InexactFloat64())
	s.afterLedgerWrite(ctx, sess, created, in.User, models.AuditActionCreate,
		fmt.Sprintf("Satış: %s %s", created.Amount.StringFixed(2), method), nil)
	return created, nil
}

func (s *Service) RecordWithdrawal(ctx context.Context, in WithdrawalInput) (out *models.CashTransaction, err error) {
	defer s.observe("record_withdrawal", &err)

	if err := requireAmount("amount", in.Amount); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	if utf8.RuneCountInString(reason) < s.policy.WithdrawalReasonMin {
		return nil, apperr.Validation("Çekim nedeni en az %d karakter olmalı", s.policy.WithdrawalReasonMin).
			WithField("reason", fmt.Sprintf("en az %d karakter", s.policy.WithdrawalReasonMin))
	}
	if in.Amount.GreaterThan(s.policy.WithdrawalAuthLimit) && (in.AuthorizedBy == nil || *in.AuthorizedBy == 0) {
		return nil, apperr.Validation("%s üzerindeki çekimler için yetkili onayı gerekli", s.policy.WithdrawalAuthLimit.StringFixed(2)).
			WithField("authorized_by", "zorunlu")
	}
	if err := requireActor("user_id", in.User); err != nil {
		return nil, err
	}

	var created *models.CashTransaction
	var sess *models.CashSession
	err = s.repo.Transaction(ctx, func(tx store.Repository) error {
		var err error
		sess, err = lockWritableSession(ctx, tx, in.SessionID)
		if err != nil {
			return err
		}

		// Bakiye kilitli oturum üzerinden, cache'e bakmadan hesaplanır
		txs, err := tx.ListTransactions(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("işlemler okunamadı: %w", err)
		}
		bal := ComputeBalance(sess.OpeningAmount, txs)
		if after := bal.ExpectedCash.Sub(in.Amount); after.LessThan(sess.OpeningAmount) {
			return apperr.Business(
				"Çekim sonrası kasa %s olur, açılış tutarı %s altına düşemez (beklenen nakit: %s)",
				after.StringFixed(2), sess.OpeningAmount.StringFixed(2), bal.ExpectedCash.StringFixed(2),
			)
		}

		created = &models.CashTransaction{
			CashSessionID: sess.ID,
			Type:          models.TxWithdrawal,
			Amount:        signedAmount(models.TxWithdrawal, in.Amount),
			Description:   reason,
			UserID:        in.User.ID,
			Timestamp:     s.now(),
			Metadata: models.TransactionMetadata{
				Reason:       reason,
				AuthorizedBy: in.AuthorizedBy,
			},
		}
		return tx.CreateTransaction(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Ledger(string(models.TxWithdrawal), created.Amount.InexactFloat64())
	s.afterLedgerWrite(ctx, sess, created, in.User, models.AuditActionCreate,
		fmt.Sprintf("Kasadan çekim: %s (%s)", in.Amount.StringFixed(2), reason), nil)
	return created, nil
}

func (s *Service) RecordSupply(ctx context.Context, in SupplyInput) (out *models.CashTransaction, err error) {
	defer s.observe("record_supply", &err)

	if err := requireAmount("amount", in.Amount); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	if utf8.RuneCountInString(reason) < s.policy.SupplyReasonMin {
		return nil, apperr.Validation("Takviye nedeni en az %d karakter olmalı", s.policy.SupplyReasonMin).
			WithField("reason", fmt.Sprintf("en az %d karakter", s.policy.SupplyReasonMin))
	}
	if err := requireActor("user_id", in.User); err != nil {
		return nil, err
	}

	desc := reason
	if desc == "" {
		desc = "Kasa takviyesi"
	}

	var created *models.CashTransaction
	var sess *models.CashSession
	err = s.repo.Transaction(ctx, func(tx store.Repository) error {
		var err error
		sess, err = lockWritableSession(ctx, tx, in.SessionID)
		if err != nil {
			return err
		}

		created = &models.CashTransaction{
			CashSessionID: sess.ID,
			Type:          models.TxSupply,
			Amount:        signedAmount(models.TxSupply, in.Amount),
			Description:   desc,
			UserID:        in.User.ID,
			Timestamp:     s.now(),
			Metadata: models.TransactionMetadata{
				Reason:       reason,
				AuthorizedBy: in.AuthorizedBy,
			},
		}
		return tx.CreateTransaction(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Ledger(string(models.TxSupply), created.Amount.InexactFloat64())
	s.afterLedgerWrite(ctx, sess, created, in.User, models.AuditActionCreate,
		fmt.Sprintf("Kasa takviyesi: %s", in.Amount.StringFixed(2)), nil)
	return created, nil
}

// CancelTransaction flags a ledger row as cancelled. The row stays in place
// and every balance skips it from then on.
func (s *Service) CancelTransaction(ctx context.Context, in CancelInput) (out *models.CashTransaction, err error) {
	defer s.observe("cancel_transaction", &err)

	reason := strings.TrimSpace(in.Reason)
	if utf8.RuneCountInString(reason) < s.policy.CancelReasonMin {
		return nil, apperr.Validation("İptal nedeni en az %d karakter olmalı", s.policy.CancelReasonMin).
			WithField("reason", fmt.Sprintf("en az %d karakter", s.policy.CancelReasonMin))
	}
	if err := requireActor("supervisor_id", in.Supervisor); err != nil {
		return nil, err
	}

	var target, before *models.CashTransaction
	var sess *models.CashSession
	err = s.repo.Transaction(ctx, func(tx store.Repository) error {
		var err error
		target, err = tx.GetTransactionForUpdate(ctx, in.TransactionID)
		if err != nil {
			return mapNotFound(err, "İşlem bulunamadı: %d", in.TransactionID)
		}
		sess, err = lockWritableSession(ctx, tx, target.CashSessionID)
		if err != nil {
			return err
		}

		if target.Type == models.TxOpening {
			return apperr.Business("Açılış işlemi iptal edilemez")
		}
		if target.Cancelled() {
			return apperr.Business("İşlem %d zaten iptal edilmiş", target.ID)
		}

		txs, err := tx.ListTransactions(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("işlemler okunamadı: %w", err)
		}
		remaining := make([]models.CashTransaction, 0, len(txs))
		for _, t := range txs {
			if t.ID != target.ID {
				remaining = append(remaining, t)
			}
		}
		if bal := ComputeBalance(sess.OpeningAmount, remaining); bal.ExpectedCash.LessThan(sess.OpeningAmount) {
			return apperr.Business(
				"İptal sonrası beklenen nakit %s olur, açılış tutarı %s altına düşemez",
				bal.ExpectedCash.StringFixed(2), sess.OpeningAmount.StringFixed(2),
			)
		}

		snapshot := *target
		before = &snapshot

		now := s.now()
		supervisor := in.Supervisor.ID
		target.Metadata.Cancelled = true
		target.Metadata.CancelledAt = &now
		target.Metadata.CancelledBy = &supervisor
		target.Metadata.CancelReason = reason
		return tx.UpdateTransactionMetadata(ctx, target)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"transaction_id": target.ID,
		"session_id":     sess.ID,
		"type":           target.Type,
		"amount":         target.Amount.StringFixed(2),
		"cancelled_by":   in.Supervisor.ID,
		"reason":         reason,
	}).Warn("Kasa işlemi iptal edildi")

	s.afterLedgerWrite(ctx, sess, target, in.Supervisor, models.AuditActionCancel,
		fmt.Sprintf("İşlem iptal edildi: %s %s (%s)", target.Type, target.Amount.StringFixed(2), reason), before)
	return target, nil
}

func (s *Service) GetSessionBalance(ctx context.Context, sessionID uint) (*Balance, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, mapNotFound(err, "Kasa oturumu bulunamadı: %d", sessionID)
	}
	txs, err := s.repo.ListTransactions(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("işlemler okunamadı: %w", err)
	}
	bal := ComputeBalance(sess.OpeningAmount, txs)
	bal.SessionID = sess.ID
	return &bal, nil
}

func (s *Service) ListTransactions(ctx context.Context, sessionID uint) ([]models.CashTransaction, error) {
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return nil, mapNotFound(err, "Kasa oturumu bulunamadı: %d", sessionID)
	}
	return s.repo.ListTransactions(ctx, sessionID)
}

// lockWritableSession row-locks the session and accepts only OPEN and REOPENED.
func lockWritableSession(ctx context.Context, tx store.Repository, id uint) (*models.CashSession, error) {
	sess, err := tx.GetSessionForUpdate(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "Kasa oturumu bulunamadı: %d", id)
	}
	switch sess.Status {
	case models.SessionOpen, models.SessionReopened:
		return sess, nil
	default:
		return nil, apperr.Business("Oturum %d işleme kapalı (durum: %s)", sess.ID, sess.Status)
	}
}

func (s *Service) afterLedgerWrite(ctx context.Context, sess *models.CashSession, t *models.CashTransaction, by Actor, action models.AuditAction, desc string, before any) {
	s.invalidate(ctx)
	s.audit(ctx, audit.LogOptions{
		CashRegisterID: &sess.CashRegisterID,
		UserID:         by.ID,
		UserName:       by.Name,
		EntityType:     "cash_transaction",
		EntityID:       t.ID,
		Action:         action,
		Description:    desc,
		Before:         before,
		After:          t,
	})
}

func requireAmount(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return apperr.Validation("Tutar sıfırdan büyük olmalı").WithField(field, "pozitif olmalı")
	}
	if !twoPlaces(d) {
		return apperr.Validation("Tutar en fazla 2 ondalık basamak içerebilir").WithField(field, "en fazla 2 ondalık")
	}
	return nil
}

func requireActor(field string, a Actor) error {
	if a.ID == 0 {
		return apperr.Validation("Kullanıcı bilgisi eksik").WithField(field, "zorunlu")
	}
	return nil
}

func twoPlaces(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

func mapNotFound(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}
