package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/convexa-app/backoffice-backend/api/controllers"
	"github.com/convexa-app/backoffice-backend/api/middleware"
	"github.com/convexa-app/backoffice-backend/pkg/config"
	"github.com/convexa-app/backoffice-backend/pkg/logger"
	pkgredis "github.com/convexa-app/backoffice-backend/pkg/redis"
)

// Services bundles the domain services the router wires into handlers.
type Services struct {
	Catalog    controllers.CatalogService
	Affiliates controllers.AffiliateService
	Proposals  controllers.ProposalService
	Invoices   controllers.InvoiceService
	Finance    controllers.FinanceService
}

// Dependencies carries the infrastructure the router needs beyond services.
type Dependencies struct {
	DB    controllers.Pinger
	Redis controllers.Pinger
	Store pkgredis.IdempotencyStore
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies, svcs Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Store, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1", func(r chi.Router) {
			// Catalog reads are open to any authenticated operator.
			r.Get("/plans", controllers.ListPlans(svcs.Catalog, logg))
			r.Get("/plans/{planId}", controllers.GetPlan(svcs.Catalog, logg))
			r.Get("/addons", controllers.ListAddons(svcs.Catalog, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCatalogManager(logg))
				r.Post("/plans", controllers.CreatePlan(svcs.Catalog, logg))
				r.Patch("/plans/{planId}", controllers.UpdatePlan(svcs.Catalog, logg))
				r.Post("/addons", controllers.CreateAddon(svcs.Catalog, logg))
				r.Patch("/addons/{addonId}/active", controllers.SetAddonActive(svcs.Catalog, logg))
			})

			r.Get("/coupons/{code}", controllers.ValidateCoupon(svcs.Affiliates, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAffiliateManager(logg))
				r.Post("/affiliates", controllers.CreateAffiliate(svcs.Affiliates, logg))
				r.Get("/affiliates", controllers.ListAffiliates(svcs.Affiliates, logg))
				r.Get("/affiliates/{affiliateId}", controllers.GetAffiliate(svcs.Affiliates, logg))
				r.Patch("/affiliates/{affiliateId}/active", controllers.SetAffiliateActive(svcs.Affiliates, logg))
			})

			r.Route("/proposals", func(r chi.Router) {
				r.Post("/", controllers.CreateProposal(svcs.Proposals, logg))
				r.Get("/", controllers.ListProposals(svcs.Proposals, logg))
				r.Get("/{proposalId}", controllers.GetProposal(svcs.Proposals, logg))
				r.Post("/{proposalId}/accept", controllers.AcceptProposal(svcs.Proposals, logg))
				r.Post("/{proposalId}/reject", controllers.RejectProposal(svcs.Proposals, logg))
				r.Delete("/{proposalId}", controllers.DeleteProposal(svcs.Proposals, logg))
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", controllers.ListInvoices(svcs.Invoices, logg))
				r.Get("/{invoiceId}", controllers.GetInvoice(svcs.Invoices, logg))
				r.Post("/{invoiceId}/payments", controllers.RecordInvoicePayment(svcs.Invoices, logg))
			})

			r.With(middleware.RequireFinanceViewer(logg)).
				Get("/finance/summary", controllers.FinanceSummary(svcs.Finance, logg))
		})
	})

	return r
}
