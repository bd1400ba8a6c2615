package dashboard

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"restoran-kasa/internal/api"
	"restoran-kasa/internal/cashflow"
)

type CashChartPoint struct {
	Label    string `json:"label"` // tarih / hafta başlangıcı / ay
	Sessions int    `json:"sessions"`
	Cash     string `json:"cash"`
	Card     string `json:"card"`
	Pix      string `json:"pix"`
	Total    string `json:"total"`
}

type CashChartGrandTotals struct {
	Cash  string `json:"cash"`
	Card  string `json:"card"`
	Pix   string `json:"pix"`
	Total string `json:"total"`
}

type CashChartResponse struct {
	CashRegisterID *uint                `json:"cash_register_id,omitempty"`
	Period         string               `json:"period"` // daily | weekly | monthly
	From           string               `json:"from"`
	To             string               `json:"to"` // dahil son gün
	Points         []CashChartPoint     `json:"points"`
	GrandTotals    CashChartGrandTotals `json:"grand_totals"`
}

// GET /api/dashboard/cash-chart?period=daily&count=7&cash_register_id=1
func CashChartHandler(svc *cashflow.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		registerID, err := api.QueryUint(c, "cash_register_id")
		if err != nil {
			return err
		}
		count, err := api.QueryInt(c, "count", 0, 0)
		if err != nil {
			return err
		}

		chart, err := svc.GetCashChart(c.UserContext(), cashflow.CashChartQuery{
			Period:         cashflow.ChartPeriod(c.Query("period", string(cashflow.ChartDaily))),
			Count:          count,
			CashRegisterID: registerID,
		})
		if err != nil {
			return err
		}

		return api.OK(c, toCashChartResponse(chart, registerID), "")
	}
}

func toCashChartResponse(chart *cashflow.CashChart, registerID *uint) CashChartResponse {
	points := make([]CashChartPoint, 0, len(chart.Points))
	for _, p := range chart.Points {
		points = append(points, CashChartPoint{
			Label:    p.Label,
			Sessions: p.Sessions,
			Cash:     p.Cash.StringFixed(2),
			Card:     p.Card.StringFixed(2),
			Pix:      p.Pix.StringFixed(2),
			Total:    p.Total.StringFixed(2),
		})
	}

	return CashChartResponse{
		CashRegisterID: registerID,
		Period:         string(chart.Period),
		From:           chart.From.Format("2006-01-02"),
		To:             chart.To.Add(-time.Nanosecond).Format("2006-01-02"),
		Points:         points,
		GrandTotals: CashChartGrandTotals{
			Cash:  chart.Cash.StringFixed(2),
			Card:  chart.Card.StringFixed(2),
			Pix:   chart.Pix.StringFixed(2),
			Total: chart.Total.StringFixed(2),
		},
	}
}
