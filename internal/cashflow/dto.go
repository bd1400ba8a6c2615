package cashflow

import (
	"time"

	"github.com/shopspring/decimal"

	"restoran-kasa/internal/models"
)

const timeLayout = time.RFC3339

// ----------------------------------------
// İSTEKLER
// ----------------------------------------

type OpenSessionRequest struct {
	CashRegisterID uint            `json:"cash_register_id" validate:"required"`
	OpeningAmount  decimal.Decimal `json:"opening_amount"`
	Notes          string          `json:"notes" validate:"max=1000"`
}

type CountRequest struct {
	Denomination decimal.Decimal  `json:"denomination"`
	Quantity     int              `json:"quantity" validate:"gte=0"`
	Total        *decimal.Decimal `json:"total"`
}

type CloseSessionRequest struct {
	CountedAmount *decimal.Decimal `json:"counted_amount" validate:"required"`
	Counts        []CountRequest   `json:"counts" validate:"required,min=1,dive"`
	Notes         string           `json:"notes" validate:"max=1000"`
}

type ReopenSessionRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type SaleRequest struct {
	Amount        decimal.Decimal      `json:"amount"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,oneof=CASH DEBIT CREDIT PIX"`
	SaleID        string               `json:"sale_id" validate:"max=64"`
	ChangeGiven   *decimal.Decimal     `json:"change_given"`
	Description   string               `json:"description" validate:"max=255"`
}

// WithdrawalRequest and SupplyRequest carry unsigned amounts.
type WithdrawalRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason" validate:"required,max=255"`
	AuthorizedBy *uint           `json:"authorized_by"`
}

type SupplyRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason" validate:"max=255"`
	AuthorizedBy *uint           `json:"authorized_by"`
}

type CancelTransactionRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

type TransferRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

type ReceiptRequest struct {
	ReceivedAmount *decimal.Decimal `json:"received_amount" validate:"required"`
	Notes          string           `json:"notes" validate:"max=1000"`
}

// ----------------------------------------
// CEVAPLAR
// ----------------------------------------

type SessionResponse struct {
	ID             uint                     `json:"id"`
	CashRegisterID uint                     `json:"cash_register_id"`
	OperatorID     uint                     `json:"operator_id"`
	Status         models.CashSessionStatus `json:"status"`
	OpeningAmount  string                   `json:"opening_amount"`
	ExpectedAmount *string                  `json:"expected_amount"`
	CountedAmount  *string                  `json:"counted_amount"`
	Difference     *string                  `json:"difference"`
	OpenedAt       string                   `json:"opened_at"`
	ClosedAt       *string                  `json:"closed_at"`
	ClosedBy       *uint                    `json:"closed_by"`
	TransferredAt  *string                  `json:"transferred_at"`
	ReceivedAt     *string                  `json:"received_at"`
	TreasurerID    *uint                    `json:"treasurer_user_id"`
	ReopenReason   string                   `json:"reopen_reason,omitempty"`
	ReopenedAt     *string                  `json:"reopened_at"`
	ReopenedBy     *uint                    `json:"reopened_by"`
	ReopenCount    int                      `json:"reopen_count"`
	Notes          string                   `json:"notes,omitempty"`
}

type TransactionResponse struct {
	ID            uint                       `json:"id"`
	CashSessionID uint                       `json:"cash_session_id"`
	Type          models.CashTransactionType `json:"type"`
	PaymentMethod *models.PaymentMethod      `json:"payment_method"`
	Amount        string                     `json:"amount"`
	Description   string                     `json:"description"`
	UserID        uint                       `json:"user_id"`
	Timestamp     string                     `json:"timestamp"`
	Metadata      models.TransactionMetadata `json:"metadata"`
}

type CountResponse struct {
	Round        int    `json:"round"`
	Denomination string `json:"denomination"`
	Quantity     int    `json:"quantity"`
	Total        string `json:"total"`
}

type TransferResponse struct {
	ID             uint             `json:"id"`
	Reference      string           `json:"reference"`
	CashSessionID  uint             `json:"cash_session_id"`
	TransferredBy  uint             `json:"transferred_by"`
	ExpectedAmount string           `json:"expected_amount"`
	ReceivedBy     *uint            `json:"received_by"`
	ReceivedAmount *string          `json:"received_amount"`
	Difference     *string          `json:"difference"`
	TransferredAt  string           `json:"transferred_at"`
	ReceivedAt     *string          `json:"received_at"`
	Notes          string           `json:"notes,omitempty"`
	ReceiptNotes   string           `json:"receipt_notes,omitempty"`
	Session        *SessionResponse `json:"session,omitempty"`
}

type BalanceResponse struct {
	SessionID      uint   `json:"session_id"`
	OpeningAmount  string `json:"opening_amount"`
	CashSales      string `json:"cash_sales"`
	CardSales      string `json:"card_sales"`
	PixSales       string `json:"pix_sales"`
	TotalSales     string `json:"total_sales"`
	Withdrawals    string `json:"withdrawals"`
	Supplies       string `json:"supplies"`
	ExpectedCash   string `json:"expected_cash"`
	CurrentBalance string `json:"current_balance"`
	Transactions   int    `json:"transactions"`
	Cancelled      int    `json:"cancelled"`
}

type ReconciliationResponse struct {
	ExpectedAmount        string `json:"expected_amount"`
	CountedAmount         string `json:"counted_amount"`
	Difference            string `json:"difference"`
	DifferencePercent     string `json:"difference_percent"`
	SignificantBreak      bool   `json:"significant_break"`
	RequiresJustification bool   `json:"requires_justification"`
}

type SessionDetailsResponse struct {
	Session      SessionResponse       `json:"session"`
	Balance      BalanceResponse       `json:"balance"`
	Transactions []TransactionResponse `json:"transactions"`
	Counts       []CountResponse       `json:"counts"`
	Transfer     *TransferResponse     `json:"transfer,omitempty"`
}

type CloseSessionResponse struct {
	Session        SessionResponse        `json:"session"`
	Balance        BalanceResponse        `json:"balance"`
	Reconciliation ReconciliationResponse `json:"reconciliation"`
	Counts         []CountResponse        `json:"counts"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := money(d.Decimal)
	return &s
}

func fmtTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeLayout)
	return &s
}

func toSessionResponse(s *models.CashSession) SessionResponse {
	return SessionResponse{
		ID:             s.ID,
		CashRegisterID: s.CashRegisterID,
		OperatorID:     s.OperatorID,
		Status:         s.Status,
		OpeningAmount:  money(s.OpeningAmount),
		ExpectedAmount: nullMoney(s.ExpectedAmount),
		CountedAmount:  nullMoney(s.CountedAmount),
		Difference:     nullMoney(s.Difference),
		OpenedAt:       s.OpenedAt.Format(timeLayout),
		ClosedAt:       fmtTime(s.ClosedAt),
		ClosedBy:       s.ClosedBy,
		TransferredAt:  fmtTime(s.TransferredAt),
		ReceivedAt:     fmtTime(s.ReceivedAt),
		TreasurerID:    s.TreasurerUserID,
		ReopenReason:   s.ReopenReason,
		ReopenedAt:     fmtTime(s.ReopenedAt),
		ReopenedBy:     s.ReopenedBy,
		ReopenCount:    s.ReopenCount,
		Notes:          s.Notes,
	}
}

func toSessionResponses(list []models.CashSession) []SessionResponse {
	out := make([]SessionResponse, 0, len(list))
	for i := range list {
		out = append(out, toSessionResponse(&list[i]))
	}
	return out
}

func toTransactionResponse(t *models.CashTransaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID,
		CashSessionID: t.CashSessionID,
		Type:          t.Type,
		PaymentMethod: t.PaymentMethod,
		Amount:        money(t.Amount),
		Description:   t.Description,
		UserID:        t.UserID,
		Timestamp:     t.Timestamp.Format(timeLayout),
		Metadata:      t.Metadata,
	}
}

func toTransactionResponses(list []models.CashTransaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(list))
	for i := range list {
		out = append(out, toTransactionResponse(&list[i]))
	}
	return out
}

func toCountResponses(list []models.CashCount) []CountResponse {
	out := make([]CountResponse, 0, len(list))
	for _, c := range list {
		out = append(out, CountResponse{
			Round:        c.Round,
			Denomination: money(c.Denomination),
			Quantity:     c.Quantity,
			Total:        money(c.Total),
		})
	}
	return out
}

func toTransferResponse(t *models.CashTransfer) TransferResponse {
	r := TransferResponse{
		ID:             t.ID,
		Reference:      t.Reference,
		CashSessionID:  t.CashSessionID,
		TransferredBy:  t.TransferredBy,
		ExpectedAmount: money(t.ExpectedAmount),
		ReceivedBy:     t.ReceivedBy,
		ReceivedAmount: nullMoney(t.ReceivedAmount),
		Difference:     nullMoney(t.Difference),
		TransferredAt:  t.TransferredAt.Format(timeLayout),
		ReceivedAt:     fmtTime(t.ReceivedAt),
		Notes:          t.Notes,
		ReceiptNotes:   t.ReceiptNotes,
	}
	if t.CashSession != nil {
		s := toSessionResponse(t.CashSession)
		r.Session = &s
	}
	return r
}

func toTransferResponses(list []models.CashTransfer) []TransferResponse {
	out := make([]TransferResponse, 0, len(list))
	for i := range list {
		out = append(out, toTransferResponse(&list[i]))
	}
	return out
}

func toBalanceResponse(b Balance) BalanceResponse {
	return BalanceResponse{
		SessionID:      b.SessionID,
		OpeningAmount:  money(b.OpeningAmount),
		CashSales:      money(b.CashSales),
		CardSales:      money(b.CardSales),
		PixSales:       money(b.PixSales),
		TotalSales:     money(b.TotalSales),
		Withdrawals:    money(b.Withdrawals),
		Supplies:       money(b.Supplies),
		ExpectedCash:   money(b.ExpectedCash),
		CurrentBalance: money(b.CurrentBalance),
		Transactions:   b.Transactions,
		Cancelled:      b.Cancelled,
	}
}

func toReconciliationResponse(r Reconciliation) ReconciliationResponse {
	return ReconciliationResponse{
		ExpectedAmount:        money(r.ExpectedAmount),
		CountedAmount:         money(r.CountedAmount),
		Difference:            money(r.Difference),
		DifferencePercent:     r.DifferencePercent.StringFixed(2),
		SignificantBreak:      r.SignificantBreak,
		RequiresJustification: r.RequiresJustification,
	}
}

func toDetailsResponse(d *SessionDetails) SessionDetailsResponse {
	r := SessionDetailsResponse{
		Session:      toSessionResponse(d.Session),
		Balance:      toBalanceResponse(d.Balance),
		Transactions: toTransactionResponses(d.Transactions),
		Counts:       toCountResponses(d.Counts),
	}
	if d.Transfer != nil {
		t := toTransferResponse(d.Transfer)
		r.Transfer = &t
	}
	return r
}

func toCountLines(in []CountRequest) []CountLine {
	out := make([]CountLine, 0, len(in))
	for _, c := range in {
		out = append(out, CountLine{Denomination: c.Denomination, Quantity: c.Quantity, Total: c.Total})
	}
	return out
}

type SessionSummaryResponse struct {
	SessionID      uint                     `json:"session_id"`
	CashRegisterID uint                     `json:"cash_register_id"`
	OperatorID     uint                     `json:"operator_id"`
	Status         models.CashSessionStatus `json:"status"`
	OpenedAt       string                   `json:"opened_at"`
	ClosedAt       *string                  `json:"closed_at"`
	OpeningAmount  string                   `json:"opening_amount"`
	TotalSales     string                   `json:"total_sales"`
	CashSales      string                   `json:"cash_sales"`
	CardSales      string                   `json:"card_sales"`
	PixSales       string                   `json:"pix_sales"`
	Withdrawals    string                   `json:"withdrawals"`
	Supplies       string                   `json:"supplies"`
	ExpectedAmount string                   `json:"expected_amount"`
	CountedAmount  string                   `json:"counted_amount"`
	Difference     string                   `json:"difference"`
	Transferred    string                   `json:"transferred"`
}

type ConsolidationResponse struct {
	Date             string                   `json:"date"`
	SessionCount     int                      `json:"session_count"`
	OpenSessions     int                      `json:"open_sessions"`
	TotalSales       string                   `json:"total_sales"`
	TotalCash        string                   `json:"total_cash"`
	TotalCard        string                   `json:"total_card"`
	TotalPix         string                   `json:"total_pix"`
	TotalWithdrawals string                   `json:"total_withdrawals"`
	TotalSupplies    string                   `json:"total_supplies"`
	TotalTransferred string                   `json:"total_transferred"`
	TotalBreaks      string                   `json:"total_breaks"`
	Sessions         []SessionSummaryResponse `json:"sessions"`
}

func toConsolidationResponse(r *DailyConsolidation) ConsolidationResponse {
	out := ConsolidationResponse{
		Date:             r.Date,
		SessionCount:     r.SessionCount,
		OpenSessions:     r.OpenSessions,
		TotalSales:       money(r.TotalSales),
		TotalCash:        money(r.TotalCash),
		TotalCard:        money(r.TotalCard),
		TotalPix:         money(r.TotalPix),
		TotalWithdrawals: money(r.TotalWithdrawals),
		TotalSupplies:    money(r.TotalSupplies),
		TotalTransferred: money(r.TotalTransferred),
		TotalBreaks:      money(r.TotalBreaks),
		Sessions:         make([]SessionSummaryResponse, 0, len(r.Sessions)),
	}
	for _, s := range r.Sessions {
		out.Sessions = append(out.Sessions, SessionSummaryResponse{
			SessionID:      s.SessionID,
			CashRegisterID: s.CashRegisterID,
			OperatorID:     s.OperatorID,
			Status:         s.Status,
			OpenedAt:       s.OpenedAt.Format(timeLayout),
			ClosedAt:       fmtTime(s.ClosedAt),
			OpeningAmount:  money(s.OpeningAmount),
			TotalSales:     money(s.TotalSales),
			CashSales:      money(s.CashSales),
			CardSales:      money(s.CardSales),
			PixSales:       money(s.PixSales),
			Withdrawals:    money(s.Withdrawals),
			Supplies:       money(s.Supplies),
			ExpectedAmount: money(s.ExpectedAmount),
			CountedAmount:  money(s.CountedAmount),
			Difference:     money(s.Difference),
			Transferred:    money(s.Transferred),
		})
	}
	return out
}
