package cashflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"restoran-kasa/internal/apperr"
	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store"
)

type ChartPeriod string

const (
	ChartDaily   ChartPeriod = "daily"
	ChartWeekly  ChartPeriod = "weekly"
	ChartMonthly ChartPeriod = "monthly"
)

// varsayılan ve azami nokta sayıları
var chartCounts = map[ChartPeriod]struct{ def, max int }{
	ChartDaily:   {7, 92},
	ChartWeekly:  {8, 52},
	ChartMonthly: {12, 24},
}

type CashChartQuery struct {
	Period         ChartPeriod
	Count          int // 0 => periyodun varsayılanı
	CashRegisterID *uint
}

type ChartPoint struct {
	Label    string
	Start    time.Time
	Sessions int
	Cash     decimal.Decimal
	Card     decimal.Decimal
	Pix      decimal.Decimal
	Total    decimal.Decimal
}

type CashChart struct {
	Period ChartPeriod
	From   time.Time
	To     time.Time // hariç
	Points []ChartPoint

	Cash  decimal.Decimal
	Card  decimal.Decimal
	Pix   decimal.Decimal
	Total decimal.Decimal
}

// chartBuckets returns count ascending bucket starts ending with the bucket
// that contains now, plus the exclusive end of the last bucket.
func chartBuckets(period ChartPeriod, count int, now time.Time, loc *time.Location) ([]time.Time, time.Time) {
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	var last time.Time
	var step func(time.Time, int) time.Time
	switch period {
	case ChartWeekly:
		// Pazartesi başlangıçlı hafta
		last = today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
		step = func(t time.Time, n int) time.Time { return t.AddDate(0, 0, 7*n) }
	case ChartMonthly:
		last = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		step = func(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) }
	default:
		last = today
		step = func(t time.Time, n int) time.Time { return t.AddDate(0, 0, n) }
	}

	starts := make([]time.Time, count)
	for i := 0; i < count; i++ {
		starts[i] = step(last, i-(count-1))
	}
	return starts, step(last, 1)
}

func chartLabel(period ChartPeriod, t time.Time) string {
	if period == ChartMonthly {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

// GetCashChart buckets sales of sessions opened in the last Count periods.
func (s *Service) GetCashChart(ctx context.Context, q CashChartQuery) (*CashChart, error) {
	if q.Period == "" {
		q.Period = ChartDaily
	}
	limits, ok := chartCounts[q.Period]
	if !ok {
		return nil, apperr.Validation("Geçersiz periyot").WithField("period", "daily, weekly veya monthly olmalı")
	}
	if q.Count == 0 {
		q.Count = limits.def
	}
	if q.Count < 0 || q.Count > limits.max {
		return nil, apperr.Validation("count 1 ile %d arasında olmalı", limits.max).
			WithField("count", fmt.Sprintf("1 - %d", limits.max))
	}

	starts, end := chartBuckets(q.Period, q.Count, s.now(), s.loc)
	from := starts[0]

	sessions, err := s.repo.ListSessions(ctx, store.SessionFilter{
		CashRegisterID: q.CashRegisterID,
		OpenedFrom:     &from,
		OpenedTo:       &end,
	})
	if err != nil {
		return nil, fmt.Errorf("oturumlar listelenemedi: %w", err)
	}

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

	chart := &CashChart{
		Period: q.Period,
		From:   from,
		To:     end,
		Points: make([]ChartPoint, len(starts)),
		Cash:   decimal.Zero,
		Card:   decimal.Zero,
		Pix:    decimal.Zero,
		Total:  decimal.Zero,
	}
	for i, st := range starts {
		chart.Points[i] = ChartPoint{
			Label: chartLabel(q.Period, st),
			Start: st,
			Cash:  decimal.Zero,
			Card:  decimal.Zero,
			Pix:   decimal.Zero,
			Total: decimal.Zero,
		}
	}

	for i := range sessions {
		sess := &sessions[i]
		// ilk start'ı opened_at'ten büyük olan bucket'ın bir öncesi
		idx := sort.Search(len(starts), func(j int) bool { return starts[j].After(sess.OpenedAt) }) - 1
		if idx < 0 {
			continue
		}
		bal := ComputeBalance(sess.OpeningAmount, bySession[sess.ID])

		p := &chart.Points[idx]
		p.Sessions++
		p.Cash = p.Cash.Add(bal.CashSales)
		p.Card = p.Card.Add(bal.CardSales)
		p.Pix = p.Pix.Add(bal.PixSales)
		p.Total = p.Total.Add(bal.TotalSales)

		chart.Cash = chart.Cash.Add(bal.CashSales)
		chart.Card = chart.Card.Add(bal.CardSales)
		chart.Pix = chart.Pix.Add(bal.PixSales)
		chart.Total = chart.Total.Add(bal.TotalSales)
	}

	return chart, nil
}
