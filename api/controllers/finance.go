package controllers

import (
	"context"
	"net/http"

	"github.com/convexa-app/backoffice-backend/api/responses"
	"github.com/convexa-app/backoffice-backend/internal/finance"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
	"github.com/convexa-app/backoffice-backend/pkg/logger"
)

// FinanceService produces the aggregated financial summary.
type FinanceService interface {
	Summary(ctx context.Context) (*finance.Summary, error)
}

// FinanceSummary returns receivables, default rate and the monthly series.
func FinanceSummary(svc FinanceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "finance service unavailable"))
			return
		}

		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
