package cashflow

import (
	"github.com/gofiber/fiber/v2"

	"restoran-kasa/internal/auth"
	"restoran-kasa/internal/models"
)

// RegisterRoutes mounts the cash API on r. r must already run JWTMiddleware.
func RegisterRoutes(r fiber.Router, svc *Service) {
	supervisors := auth.RequireRole(models.RoleSupervisor, models.RoleAdmin)
	treasury := auth.RequireRole(models.RoleTreasurer, models.RoleAdmin)
	handover := auth.RequireRole(models.RoleTreasurer, models.RoleSupervisor, models.RoleAdmin)
	reports := auth.RequireRole(models.RoleSupervisor, models.RoleTreasurer, models.RoleAdmin)

	sessions := r.Group("/cash-sessions")
	sessions.Post("/", OpenSessionHandler(svc))
	sessions.Get("/", ListSessionsHandler(svc))
	sessions.Get("/current", CurrentSessionHandler(svc))
	sessions.Get("/:id", GetSessionHandler(svc))
	sessions.Get("/:id/balance", SessionBalanceHandler(svc))
	sessions.Get("/:id/transactions", ListTransactionsHandler(svc))
	sessions.Post("/:id/close", CloseSessionHandler(svc))
	sessions.Post("/:id/reopen", supervisors, ReopenSessionHandler(svc))
	sessions.Post("/:id/sales", RecordSaleHandler(svc))
	sessions.Post("/:id/withdrawals", RecordWithdrawalHandler(svc))
	sessions.Post("/:id/supplies", RecordSupplyHandler(svc))
	sessions.Post("/:id/transfer", handover, TransferToTreasuryHandler(svc))

	r.Post("/cash-transactions/:id/cancel", supervisors, CancelTransactionHandler(svc))

	treasuryGroup := r.Group("/treasury", treasury)
	treasuryGroup.Get("/transfers/pending", ListPendingTransfersHandler(svc))
	treasuryGroup.Get("/transfers", ListTransfersHandler(svc))
	treasuryGroup.Get("/transfers/:id", GetTransferHandler(svc))
	treasuryGroup.Post("/transfers/:id/receive", ConfirmReceiptHandler(svc))

	r.Get("/reports/daily-consolidation", reports, DailyConsolidationHandler(svc))
}
