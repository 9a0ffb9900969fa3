package controllers

import (
	"net/http"

	"github.com/convexa-app/backoffice-backend/api/middleware"
	"github.com/convexa-app/backoffice-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
			payload["user_id"] = userID
		}
		if role := middleware.RoleFromContext(r.Context()); role.IsValid() {
			payload["role"] = role.String()
		}
		responses.WriteSuccess(w, payload)
	}
}
