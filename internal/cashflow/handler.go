package cashflow

import (
	"github.com/gofiber/fiber/v2"

	"restoran-kasa/internal/api"
	"restoran-kasa/internal/auth"
	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store"
)

func currentActor(c *fiber.Ctx) (Actor, auth.Principal, error) {
	p, err := auth.Current(c)
	if err != nil {
		return Actor{}, p, err
	}
	return Actor{ID: p.UserID, Name: p.Name}, p, nil
}

// -------------------------------------------------
// POST /api/cash-sessions
// -------------------------------------------------
func OpenSessionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, _, err := currentActor(c)
		if err != nil {
			return err
		}

		var body OpenSessionRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}

		sess, err := svc.OpenSession(c.UserContext(), OpenSessionInput{
			CashRegisterID: body.CashRegisterID,
			OpeningAmount:  body.OpeningAmount,
			Operator:       actor,
			Notes:          body.Notes,
		})
		if err != nil {
			return err
		}
		return api.Created(c, toSessionResponse(sess), "Kasa açıldı")
	}
}

// -------------------------------------------------
// GET /api/cash-sessions?status=&operator_id=&cash_register_id=&date=&limit=&offset=
// -------------------------------------------------
func ListSessionsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, p, err := currentActor(c)
		if err != nil {
			return err
		}

		var f store.SessionFilter
		if st := models.CashSessionStatus(c.Query("status")); st != "" {
			if !st.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz durum")
			}
			f.Status = &st
		}
		if f.OperatorID, err = api.QueryUint(c, "operator_id"); err != nil {
			return err
		}
		if f.CashRegisterID, err = api.QueryUint(c, "cash_register_id"); err != nil {
			return err
		}
		day, err := api.QueryDate(c, "date", svc.Location())
		if err != nil {
			return err
		}
		if day != nil {
			from, to := DayBounds(*day, svc.Location())
			f.OpenedFrom, f.OpenedTo = &from, &to
		}
		if f.Limit, err = api.QueryInt(c, "limit", 50, 200); err != nil {
			return err
		}
		if f.Offset, err = api.QueryInt(c, "offset", 0, 0); err != nil {
			return err
		}

		// Operatör sadece kendi oturumlarını görür
		if p.Role == models.RoleOperator {
			self := p.UserID
			f.OperatorID = &self
		}

		list, err := svc.ListSessions(c.UserContext(), f)
		if err != nil {
			return err
		}
		return api.OK(c, toSessionResponses(list), "")
	}
}

// -------------------------------------------------
// GET /api/cash-sessions/current
// -------------------------------------------------
func CurrentSessionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, _, err := currentActor(c)
		if err != nil {
			return err
		}
		d, err := svc.GetActiveSession(c.UserContext(), actor.ID)
		if err != nil {
			return err
		}
		return api.OK(c, toDetailsResponse(d), "")
	}
}

// -------------------------------------------------
// GET /api/cash-sessions/:id
// -------------------------------------------------
func GetSessionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		d, err := svc.GetSession(c.UserContext(), id)
		if err != nil {
			return err
		}
		return api.OK(c, toDetailsResponse(d), "")
	}
}

// -------------------------------------------------
// GET /api/cash-sessions/:id/balance
// -------------------------------------------------
func SessionBalanceHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		b, err := svc.GetSessionBalance(c.UserContext(), id)
		if err != nil {
			return err
		}
		return api.OK(c, toBalanceResponse(*b), "")
	}
}

// -------------------------------------------------
// GET /api/cash-sessions/:id/transactions
// -------------------------------------------------
func ListTransactionsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		list, err := svc.ListTransactions(c.UserContext(), id)
		if err != nil {
			return err
		}
		return api.OK(c, toTransactionResponses(list), "")
	}
}

// -------------------------------------------------
// POST /api/cash-sessions/:id/close
// -------------------------------------------------
func CloseSessionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, _, err := currentActor(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body CloseSessionRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}

		res, err := svc.CloseSession(c.UserContext(), CloseSessionInput{
			SessionID:     id,
			CountedAmount: *body.CountedAmount,
			Counts:        toCountLines(body.Counts),
			Notes:         body.Notes,
			ClosedBy:      actor,
		})
		if err != nil {
			return err
		}

		msg := "Kasa kapatıldı"
		if res.Reconciliation.SignificantBreak {
			msg = "Kasa kapatıldı, önemli kasa farkı bildirildi"
		}
		return api.OK(c, CloseSessionResponse{
			Session:        toSessionResponse(res.Session),
			Balance:        toBalanceResponse(res.Balance),
			Reconciliation: toReconciliationResponse(res.Reconciliation),
			Counts:         toCountResponses(res.Counts),
		}, msg)
	}
}

// -------------------------------------------------
// POST /api/cash-sessions/:id/reopen
// -------------------------------------------------
func ReopenSessionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, _, err := currentActor(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body ReopenSessionRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}

		sess, err := svc.ReopenSession(c.UserContext(), ReopenSessionInput{
			SessionID:  id,
			Reason:     body.Reason,
			Supervisor: actor,
		})
		if err != nil {
			return err
		}
		return api.OK(c, toSessionResponse(sess), "Kasa yeniden açıldı")
	}
}

// -------------------------------------------------
// POST /api/cash-sessions/:id/sales
// -------------------------------------------------
func RecordSaleHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, _, err := currentActor(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body SaleRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}

		t, err := svc.RecordSale(c.UserContext(), SaleInput{
			SessionID:     id,
			Amount:        body.Amount,
			PaymentMethod: body.PaymentMethod,
			SaleID:        body.SaleID,
			ChangeGiven:   body.ChangeGiven,
			Description:   body.Description,
			User:          actor,
		})
		if err != nil {
			return err
		}
		return api.Created(c, toTransactionResponse(t), "Satış kaydedildi")
	}
}

// -------------------------------------------------
// POST /api/cash-sessions/:id/withdrawals
// -------------------------------------------------
func RecordWithdrawalHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, _, err := currentActor(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body WithdrawalRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}

		t, err := svc.RecordWithdrawal(c.UserContext(), WithdrawalInput{
			SessionID:    id,
			Amount:       body.Amount,
			Reason:       body.Reason,
			AuthorizedBy: body.AuthorizedBy,
			User:         actor,
		})
		if err != nil {
			return err
		}
		return api.Created(c, toTransactionResponse(t), "Çekim kaydedildi")
	}
}

// -------------------------------------------------
// POST /api/cash-sessions/:id/supplies
// -------------------------------------------------
func RecordSupplyHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, _, err := currentActor(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body SupplyRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}

		t, err := svc.RecordSupply(c.UserContext(), SupplyInput{
			SessionID:    id,
			Amount:       body.Amount,
			Reason:       body.Reason,
			AuthorizedBy: body.AuthorizedBy,
			User:         actor,
		})
		if err != nil {
			return err
		}
		return api.Created(c, toTransactionResponse(t), "Takviye kaydedildi")
	}
}

// -------------------------------------------------
// POST /api/cash-transactions/:id/cancel
// -------------------------------------------------
func CancelTransactionHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, _, err := currentActor(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body CancelTransactionRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}

		t, err := svc.CancelTransaction(c.UserContext(), CancelInput{
			TransactionID: id,
			Reason:        body.Reason,
			Supervisor:    actor,
		})
		if err != nil {
			return err
		}
		return api.OK(c, toTransactionResponse(t), "İşlem iptal edildi")
	}
}

// -------------------------------------------------
// POST /api/cash-sessions/:id/transfer
// -------------------------------------------------
func TransferToTreasuryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, _, err := currentActor(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body TransferRequest
		if err := api.ParseOptionalBody(c, &body); err != nil {
			return err
		}

		t, err := svc.TransferToTreasury(c.UserContext(), TransferInput{
			SessionID: id,
			Notes:     body.Notes,
			By:        actor,
		})
		if err != nil {
			return err
		}
		return api.Created(c, toTransferResponse(t), "Hazineye devredildi")
	}
}

// -------------------------------------------------
// GET /api/treasury/transfers/pending
// -------------------------------------------------
func ListPendingTransfersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.ListPendingTransfers(c.UserContext())
		if err != nil {
			return err
		}
		return api.OK(c, toTransferResponses(list), "")
	}
}

// -------------------------------------------------
// GET /api/treasury/transfers?limit=&offset=
// -------------------------------------------------
func ListTransfersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := api.QueryInt(c, "limit", 50, 200)
		if err != nil {
			return err
		}
		offset, err := api.QueryInt(c, "offset", 0, 0)
		if err != nil {
			return err
		}
		list, err := svc.ListTransfers(c.UserContext(), store.TransferFilter{Limit: limit, Offset: offset})
		if err != nil {
			return err
		}
		return api.OK(c, toTransferResponses(list), "")
	}
}

// -------------------------------------------------
// GET /api/treasury/transfers/:id
// -------------------------------------------------
func GetTransferHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}
		t, err := svc.GetTransfer(c.UserContext(), id)
		if err != nil {
			return err
		}
		return api.OK(c, toTransferResponse(t), "")
	}
}

// -------------------------------------------------
// POST /api/treasury/transfers/:id/receive
// -------------------------------------------------
func ConfirmReceiptHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, _, err := currentActor(c)
		if err != nil {
			return err
		}
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body ReceiptRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}

		t, err := svc.ConfirmReceipt(c.UserContext(), ReceiptInput{
			TransferID:     id,
			ReceivedAmount: *body.ReceivedAmount,
			Notes:          body.Notes,
			ReceivedBy:     actor,
		})
		if err != nil {
			return err
		}
		return api.OK(c, toTransferResponse(t), "Devir teslim alındı")
	}
}

// -------------------------------------------------
// GET /api/reports/daily-consolidation?date=2025-12-09
// -------------------------------------------------
func DailyConsolidationHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day, err := api.QueryDate(c, "date", svc.Location())
		if err != nil {
			return err
		}
		date := svc.Now()
		if day != nil {
			date = *day
		}

		rep, err := svc.GetDailyConsolidation(c.UserContext(), date)
		if err != nil {
			return err
		}
		return api.OK(c, toConsolidationResponse(rep), "")
	}
}
