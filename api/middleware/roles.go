package middleware

import (
	"net/http"

	"github.com/convexa-app/backoffice-backend/api/responses"
	"github.com/convexa-app/backoffice-backend/pkg/enums"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
	"github.com/convexa-app/backoffice-backend/pkg/logger"
)

// RequireRole admits only requests whose authenticated role passes the check.
// Permissions are always derived from the role enum, never stored separately.
func RequireRole(check func(enums.Role) bool, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if !role.IsValid() || !check(role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCatalogManager guards plan and addon mutation endpoints.
func RequireCatalogManager(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRole(enums.Role.CanManageCatalog, logg)
}

// RequireAffiliateManager guards affiliate management endpoints.
func RequireAffiliateManager(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRole(enums.Role.CanManageAffiliates, logg)
}

// RequireFinanceViewer guards the financial summary endpoint.
func RequireFinanceViewer(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRole(enums.Role.CanViewFinance, logg)
}
