package cashflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store"
)

type SessionSummary struct {
	SessionID      uint                     `json:"session_id"`
	CashRegisterID uint                     `json:"cash_register_id"`
	OperatorID     uint                     `json:"operator_id"`
	Status         models.CashSessionStatus `json:"status"`
	OpenedAt       time.Time                `json:"opened_at"`
	ClosedAt       *time.Time               `json:"closed_at,omitempty"`

	OpeningAmount  decimal.Decimal `json:"opening_amount"`
	TotalSales     decimal.Decimal `json:"total_sales"`
	CashSales      decimal.Decimal `json:"cash_sales"`
	CardSales      decimal.Decimal `json:"card_sales"`
	PixSales       decimal.Decimal `json:"pix_sales"`
	Withdrawals    decimal.Decimal `json:"withdrawals"`
	Supplies       decimal.Decimal `json:"supplies"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	CountedAmount  decimal.Decimal `json:"counted_amount"`
	Difference     decimal.Decimal `json:"difference"`
	Transferred    decimal.Decimal `json:"transferred"`
}

type DailyConsolidation struct {
	Date         string `json:"date"`
	SessionCount int    `json:"session_count"`
	OpenSessions int    `json:"open_sessions"`

	TotalSales       decimal.Decimal `json:"total_sales"`
	TotalCash        decimal.Decimal `json:"total_cash"`
	TotalCard        decimal.Decimal `json:"total_card"`
	TotalPix         decimal.Decimal `json:"total_pix"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	TotalSupplies    decimal.Decimal `json:"total_supplies"`
	TotalTransferred decimal.Decimal `json:"total_transferred"`
	TotalBreaks      decimal.Decimal `json:"total_breaks"`

	Sessions []SessionSummary `json:"sessions"`
}

// DayBounds returns [00:00, next 00:00) of date's calendar day in loc.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := date.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// GetDailyConsolidation aggregates every session opened on date. It is read only.
func (s *Service) GetDailyConsolidation(ctx context.Context, date time.Time) (*DailyConsolidation, error) {
	start, end := DayBounds(date, s.loc)

	sessions, err := s.repo.ListSessions(ctx, store.SessionFilter{OpenedFrom: &start, OpenedTo: &end})
	if err != nil {
		return nil, fmt.Errorf("oturumlar listelenemedi: %w", err)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })

	ids := make([]uint, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	txs, err := s.repo.ListTransactionsBySessions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("işlemler okunamadı: %w", err)
	}
	bySession := make(map[uint][]models.CashTransaction, len(sessions))
	for _, t := range txs {
		bySession[t.CashSessionID] = append(bySession[t.CashSessionID], t)
	}

	rep := &DailyConsolidation{
		Date:             start.Format("2006-01-02"),
		SessionCount:     len(sessions),
		TotalSales:       decimal.Zero,
		TotalCash:        decimal.Zero,
		TotalCard:        decimal.Zero,
		TotalPix:         decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		TotalSupplies:    decimal.Zero,
		TotalTransferred: decimal.Zero,
		TotalBreaks:      decimal.Zero,
		Sessions:         make([]SessionSummary, 0, len(sessions)),
	}

	for i := range sessions {
		sess := &sessions[i]
		bal := ComputeBalance(sess.OpeningAmount, bySession[sess.ID])

		sum := SessionSummary{
			SessionID:      sess.ID,
			CashRegisterID: sess.CashRegisterID,
			OperatorID:     sess.OperatorID,
			Status:         sess.Status,
			OpenedAt:       sess.OpenedAt,
			ClosedAt:       sess.ClosedAt,
			OpeningAmount:  sess.OpeningAmount,
			TotalSales:     bal.TotalSales,
			CashSales:      bal.CashSales,
			CardSales:      bal.CardSales,
			PixSales:       bal.PixSales,
			Withdrawals:    bal.Withdrawals,
			Supplies:       bal.Supplies,
			ExpectedAmount: decimal.Zero,
			CountedAmount:  decimal.Zero,
			Difference:     decimal.Zero,
			Transferred:    decimal.Zero,
		}

		switch sess.Status {
		case models.SessionOpen, models.SessionReopened:
			// Henüz kapanmamış oturumun sayım ve farkı yok sayılır
			rep.OpenSessions++
		default:
			sum.ExpectedAmount = sess.ExpectedAmount.Decimal
			sum.CountedAmount = sess.CountedAmount.Decimal
			sum.Difference = sess.Difference.Decimal
			if sess.Difference.Valid {
				rep.TotalBreaks = rep.TotalBreaks.Add(sess.Difference.Decimal.Abs())
			}
		}

		switch sess.Status {
		case models.SessionTransferred, models.SessionReceived:
			sum.Transferred = transferAmount(sess)
			rep.TotalTransferred = rep.TotalTransferred.Add(sum.Transferred)
		}

		rep.TotalSales = rep.TotalSales.Add(bal.TotalSales)
		rep.TotalCash = rep.TotalCash.Add(bal.CashSales)
		rep.TotalCard = rep.TotalCard.Add(bal.CardSales)
		rep.TotalPix = rep.TotalPix.Add(bal.PixSales)
		rep.TotalWithdrawals = rep.TotalWithdrawals.Add(bal.Withdrawals)
		rep.TotalSupplies = rep.TotalSupplies.Add(bal.Supplies)
		rep.Sessions = append(rep.Sessions, sum)
	}

	return rep, nil
}
