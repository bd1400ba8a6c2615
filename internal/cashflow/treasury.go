package cashflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"restoran-kasa/internal/apperr"
	"restoran-kasa/internal/audit"
	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store"
)

type TransferInput struct {
	SessionID uint
	Notes     string
	By        Actor
}

type ReceiptInput struct {
	TransferID     uint
	ReceivedAmount decimal.Decimal
	Notes          string
	ReceivedBy     Actor
}

// transferAmount is what leaves the register for treasury. The opening float
// stays in the drawer. The daily report uses the same figure.
func transferAmount(sess *models.CashSession) decimal.Decimal {
	return sess.CountedAmount.Decimal.Sub(sess.OpeningAmount)
}

func newTransferReference() string {
	return "TRF-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func (s *Service) TransferToTreasury(ctx context.Context, in TransferInput) (out *models.CashTransfer, err error) {
	defer s.observe("transfer_to_treasury", &err)

	if err := requireActor("transferred_by", in.By); err != nil {
		return nil, err
	}

	var (
		sess     *models.CashSession
		before   models.CashSession
		transfer *models.CashTransfer
	)
	err = s.repo.Transaction(ctx, func(tx store.Repository) error {
		var err error
		sess, err = tx.GetSessionForUpdate(ctx, in.SessionID)
		if err != nil {
			return mapNotFound(err, "Kasa oturumu bulunamadı: %d", in.SessionID)
		}
		switch sess.Status {
		case models.SessionClosed:
		default:
			return apperr.Business("Sadece kapalı oturum hazineye devredilebilir (oturum %d, durum: %s)", sess.ID, sess.Status)
		}
		if !sess.CountedAmount.Valid {
			return fmt.Errorf("kapalı oturum %d için sayılan tutar yok", sess.ID)
		}

		if existing, err := tx.GetTransferBySession(ctx, sess.ID); err == nil {
			return apperr.Business("Oturum %d zaten devredilmiş (%s)", sess.ID, existing.Reference)
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("devir kontrolü: %w", err)
		}

		before = *sess
		now := s.now()
		transfer = &models.CashTransfer{
			Reference:      newTransferReference(),
			CashSessionID:  sess.ID,
			TransferredBy:  in.By.ID,
			ExpectedAmount: transferAmount(sess),
			TransferredAt:  now,
			Notes:          strings.TrimSpace(in.Notes),
		}
		if err := tx.CreateTransfer(ctx, transfer); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Business("Oturum %d zaten devredilmiş", sess.ID)
			}
			return fmt.Errorf("devir oluşturulamadı: %w", err)
		}

		sess.Status = models.SessionTransferred
		sess.TransferredAt = &now
		return tx.UpdateSession(ctx, sess)
	})
	if err != nil {
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{
		"transfer_id":     transfer.ID,
		"reference":       transfer.Reference,
		"session_id":      sess.ID,
		"expected_amount": transfer.ExpectedAmount.StringFixed(2),
	})
	if transfer.ExpectedAmount.IsNegative() {
		entry.Warn("Devir tutarı negatif, kasa açılış tutarının altında sayıldı")
	}
	entry.Info("Hazine devri oluşturuldu")

	s.afterSessionWrite(ctx, sess, in.By, models.AuditActionTransfer,
		fmt.Sprintf("Hazineye devredildi: %s (%s)", transfer.ExpectedAmount.StringFixed(2), transfer.Reference), before)
	s.audit(ctx, audit.LogOptions{
		CashRegisterID: &sess.CashRegisterID,
		UserID:         in.By.ID,
		UserName:       in.By.Name,
		EntityType:     "cash_transfer",
		EntityID:       transfer.ID,
		Action:         models.AuditActionCreate,
		Description:    "Devir oluşturuldu: " + transfer.Reference,
		After:          transfer,
	})
	return transfer, nil
}

// ListPendingTransfers returns transfers awaiting receipt, oldest first.
func (s *Service) ListPendingTransfers(ctx context.Context) ([]models.CashTransfer, error) {
	out, err := s.repo.ListTransfers(ctx, store.TransferFilter{PendingOnly: true})
	if err != nil {
		return nil, fmt.Errorf("bekleyen devirler listelenemedi: %w", err)
	}
	if err := s.attachSessions(ctx, out); err != nil {
		return nil, err
	}
	s.metrics.PendingTransfers(len(out))
	return out, nil
}

func (s *Service) ListTransfers(ctx context.Context, f store.TransferFilter) ([]models.CashTransfer, error) {
	out, err := s.repo.ListTransfers(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("devirler listelenemedi: %w", err)
	}
	if err := s.attachSessions(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetTransfer(ctx context.Context, id uint) (*models.CashTransfer, error) {
	t, err := s.repo.GetTransfer(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "Devir bulunamadı: %d", id)
	}
	one := []models.CashTransfer{*t}
	if err := s.attachSessions(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

func (s *Service) attachSessions(ctx context.Context, transfers []models.CashTransfer) error {
	for i := range transfers {
		sess, err := s.repo.GetSession(ctx, transfers[i].CashSessionID)
		if err != nil {
			return fmt.Errorf("devir %d oturumu okunamadı: %w", transfers[i].ID, err)
		}
		transfers[i].CashSession = sess
	}
	return nil
}

// ConfirmReceipt settles a transfer. It succeeds once per transfer.
func (s *Service) ConfirmReceipt(ctx context.Context, in ReceiptInput) (out *models.CashTransfer, err error) {
	defer s.observe("confirm_receipt", &err)

	if in.ReceivedAmount.IsNegative() || !twoPlaces(in.ReceivedAmount) {
		return nil, apperr.Validation("Teslim alınan tutar geçersiz").
			WithField("received_amount", "negatif olmayan, en fazla 2 ondalık")
	}
	if err := requireActor("received_by", in.ReceivedBy); err != nil {
		return nil, err
	}

	var (
		transfer       *models.CashTransfer
		beforeTransfer models.CashTransfer
		sess           *models.CashSession
		beforeSession  models.CashSession
	)
	err = s.repo.Transaction(ctx, func(tx store.Repository) error {
		var err error
		transfer, err = tx.GetTransferForUpdate(ctx, in.TransferID)
		if err != nil {
			return mapNotFound(err, "Devir bulunamadı: %d", in.TransferID)
		}
		if transfer.ReceivedAt != nil {
			return apperr.Business("Devir %s zaten teslim alınmış", transfer.Reference)
		}

		sess, err = tx.GetSessionForUpdate(ctx, transfer.CashSessionID)
		if err != nil {
			return fmt.Errorf("devir oturumu okunamadı: %w", err)
		}
		switch sess.Status {
		case models.SessionTransferred:
		default:
			return apperr.Business("Oturum %d teslim alınamaz (durum: %s)", sess.ID, sess.Status)
		}

		beforeTransfer = *transfer
		beforeSession = *sess

		now := s.now()
		receiver := in.ReceivedBy.ID
		transfer.ReceivedBy = &receiver
		transfer.ReceivedAmount = decimal.NullDecimal{Decimal: in.ReceivedAmount, Valid: true}
		transfer.Difference = decimal.NullDecimal{Decimal: in.ReceivedAmount.Sub(transfer.ExpectedAmount), Valid: true}
		transfer.ReceivedAt = &now
		transfer.ReceiptNotes = strings.TrimSpace(in.Notes)
		if err := tx.UpdateTransfer(ctx, transfer); err != nil {
			return fmt.Errorf("devir güncellenemedi: %w", err)
		}

		sess.Status = models.SessionReceived
		sess.ReceivedAt = &now
		sess.TreasurerUserID = &receiver
		return tx.UpdateSession(ctx, sess)
	})
	if err != nil {
		return nil, err
	}

	entry := s.log.WithFields(logrus.Fields{
		"transfer_id":     transfer.ID,
		"reference":       transfer.Reference,
		"session_id":      sess.ID,
		"expected_amount": transfer.ExpectedAmount.StringFixed(2),
		"received_amount": in.ReceivedAmount.StringFixed(2),
		"difference":      transfer.Difference.Decimal.StringFixed(2),
	})
	if !transfer.Difference.Decimal.IsZero() {
		entry.Warn("Hazine teslim farkı")
	}
	entry.Info("Devir teslim alındı")

	transfer.CashSession = sess
	s.afterSessionWrite(ctx, sess, in.ReceivedBy, models.AuditActionReceive,
		"Hazine teslim aldı: "+transfer.Reference, beforeSession)
	s.audit(ctx, audit.LogOptions{
		CashRegisterID: &sess.CashRegisterID,
		UserID:         in.ReceivedBy.ID,
		UserName:       in.ReceivedBy.Name,
		EntityType:     "cash_transfer",
		EntityID:       transfer.ID,
		Action:         models.AuditActionReceive,
		Description:    fmt.Sprintf("Teslim alındı: %s, fark %s", in.ReceivedAmount.StringFixed(2), transfer.Difference.Decimal.StringFixed(2)),
		Before:         beforeTransfer,
		After:          transfer,
	})
	return transfer, nil
}
