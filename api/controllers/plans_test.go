package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/convexa-app/backoffice-backend/internal/catalog"
	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
)

type stubCatalogService struct {
	plans  []models.Plan
	plan   *models.Plan
	addons []models.Addon
	addon  *models.Addon
	err    error

	createdPlan  *catalog.CreatePlanInput
	updatedPlan  *catalog.UpdatePlanInput
	createdAddon *catalog.CreateAddonInput
}

func (s *stubCatalogService) GetActivePlans(context.Context) ([]models.Plan, error) {
	return s.plans, s.err
}

func (s *stubCatalogService) GetActivePlan(context.Context, uuid.UUID) (*models.Plan, error) {
	return s.plan, s.err
}

func (s *stubCatalogService) CreatePlan(_ context.Context, input catalog.CreatePlanInput) (*models.Plan, error) {
	s.createdPlan = &input
	return s.plan, s.err
}

func (s *stubCatalogService) UpdatePlan(_ context.Context, _ uuid.UUID, input catalog.UpdatePlanInput) (*models.Plan, error) {
	s.updatedPlan = &input
	return s.plan, s.err
}

func (s *stubCatalogService) GetActiveAddons(context.Context) ([]models.Addon, error) {
	return s.addons, s.err
}

func (s *stubCatalogService) CreateAddon(_ context.Context, input catalog.CreateAddonInput) (*models.Addon, error) {
	s.createdAddon = &input
	return s.addon, s.err
}

func (s *stubCatalogService) SetAddonActive(_ context.Context, _ uuid.UUID, active bool) (*models.Addon, error) {
	return s.addon, s.err
}

func TestListPlansSuccess(t *testing.T) {
	svc := &stubCatalogService{plans: []models.Plan{
		{ID: uuid.New(), Name: "Starter", BasePrice: decimal.RequireFromString("199.00")},
		{ID: uuid.New(), Name: "Growth", BasePrice: decimal.RequireFromString("499.00")},
	}}
	handler := ListPlans(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data struct {
			Plans []models.Plan `json:"plans"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Plans) != 2 {
		t.Fatalf("expected 2 plans got %d", len(envelope.Data.Plans))
	}
	if envelope.Data.Plans[0].Name != "Starter" {
		t.Fatalf("expected Starter first got %s", envelope.Data.Plans[0].Name)
	}
}

func TestGetPlanInvalidID(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/api/v1/plans/{planId}", GetPlan(&stubCatalogService{}, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans/not-a-uuid", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetPlanNotFound(t *testing.T) {
	svc := &stubCatalogService{err: pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")}
	router := chi.NewRouter()
	router.Get("/api/v1/plans/{planId}", GetPlan(svc, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans/"+uuid.NewString(), nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestCreatePlanSuccess(t *testing.T) {
	created := &models.Plan{ID: uuid.New(), Name: "Scale"}
	svc := &stubCatalogService{plan: created}
	handler := CreatePlan(svc, nil)

	payload := []byte(`{
		"name": "Scale",
		"base_price": "999.00",
		"included_inboxes": 10,
		"included_agents": 20,
		"included_automations": 15,
		"inbox_overage_price": "49.00",
		"agent_overage_price": "29.00",
		"automation_overage_price": "19.00",
		"has_kanban": true,
		"has_official_channel": true,
		"has_human_support": true
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plans", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if svc.createdPlan == nil {
		t.Fatal("expected service call")
	}
	if svc.createdPlan.IncludedAgents != 20 {
		t.Fatalf("expected 20 included agents got %d", svc.createdPlan.IncludedAgents)
	}
	if !svc.createdPlan.BasePrice.Equal(decimal.RequireFromString("999.00")) {
		t.Fatalf("unexpected base price %s", svc.createdPlan.BasePrice)
	}
}

func TestCreatePlanRejectsUnknownFields(t *testing.T) {
	handler := CreatePlan(&stubCatalogService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plans", bytes.NewReader([]byte(`{"bogus": true}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUpdatePlanPartialBody(t *testing.T) {
	svc := &stubCatalogService{plan: &models.Plan{ID: uuid.New(), Name: "Starter"}}
	router := chi.NewRouter()
	router.Patch("/api/v1/plans/{planId}", UpdatePlan(svc, nil))

	payload := []byte(`{"base_price": "249.00"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/plans/"+uuid.NewString(), bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.updatedPlan == nil {
		t.Fatal("expected service call")
	}
	if svc.updatedPlan.Name != nil {
		t.Fatal("name must stay untouched")
	}
	if svc.updatedPlan.BasePrice == nil || !svc.updatedPlan.BasePrice.Equal(decimal.RequireFromString("249.00")) {
		t.Fatal("expected base price mutation")
	}
}

func TestListPlansServiceUnavailable(t *testing.T) {
	handler := ListPlans(nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}
