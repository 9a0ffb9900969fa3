package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/convexa-app/backoffice-backend/pkg/db"
	"github.com/convexa-app/backoffice-backend/pkg/db/models"
	pkgerrors "github.com/convexa-app/backoffice-backend/pkg/errors"
)

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo  Repository
	Retry db.RetryPolicy
}

// Service exposes the plan and addon catalog.
type Service struct {
	repo  Repository
	retry db.RetryPolicy
}

// NewService builds a catalog service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{
		repo:  params.Repo,
		retry: db.EnsureRetryPolicy(params.Retry),
	}, nil
}

// CreatePlanInput carries the fields a new plan needs.
type CreatePlanInput struct {
	Name                string          `json:"name"`
	BasePrice           decimal.Decimal `json:"base_price"`
	IncludedInboxes     int             `json:"included_inboxes"`
	IncludedAgents      int             `json:"included_agents"`
	IncludedAutomations int             `json:"included_automations"`
	InboxOveragePrice   decimal.Decimal `json:"inbox_overage_price"`
	AgentOveragePrice   decimal.Decimal `json:"agent_overage_price"`
	AutomationOverage   decimal.Decimal `json:"automation_overage_price"`
	HasKanban           bool            `json:"has_kanban"`
	HasOfficialChannel  bool            `json:"has_official_channel"`
	HasHumanSupport     bool            `json:"has_human_support"`
}

// UpdatePlanInput carries optional plan mutations. Nil fields are untouched.
type UpdatePlanInput struct {
	Name               *string          `json:"name"`
	BasePrice          *decimal.Decimal `json:"base_price"`
	HasKanban          *bool            `json:"has_kanban"`
	HasOfficialChannel *bool            `json:"has_official_channel"`
	HasHumanSupport    *bool            `json:"has_human_support"`
	Active             *bool            `json:"active"`
}

// CreateAddonInput carries the fields a new addon needs.
type CreateAddonInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// GetActivePlans returns the sellable plans, cheapest first.
func (s *Service) GetActivePlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	err := s.retry.Do(ctx, "catalog.list_plans", func(ctx context.Context) error {
		var opErr error
		plans, opErr = s.repo.ListActivePlans(ctx)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// GetActiveAddons returns the sellable addons, cheapest first.
func (s *Service) GetActiveAddons(ctx context.Context) ([]models.Addon, error) {
	var addons []models.Addon
	err := s.retry.Do(ctx, "catalog.list_addons", func(ctx context.Context) error {
		var opErr error
		addons, opErr = s.repo.ListActiveAddons(ctx)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return addons, nil
}

// GetActivePlan loads a plan that can still be sold. Missing or retired plans
// surface as not found.
func (s *Service) GetActivePlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan *models.Plan
	err := s.retry.Do(ctx, "catalog.find_plan", func(ctx context.Context) error {
		var opErr error
		plan, opErr = s.repo.FindPlanByID(ctx, id)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found").
			WithDetails(map[string]any{"plan_id": id})
	}
	return plan, nil
}

// ResolveAddons loads the addons for a selection, in the order requested.
// Duplicate ids are rejected; unknown or retired addons fail as an invalid
// addon selection listing every offending id.
func (s *Service) ResolveAddons(ctx context.Context, ids []uuid.UUID) ([]models.Addon, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate addon in selection").
				WithDetails(map[string]any{"addon_id": id})
		}
		seen[id] = struct{}{}
	}

	var found []models.Addon
	err := s.retry.Do(ctx, "catalog.find_addons", func(ctx context.Context) error {
		var opErr error
		found, opErr = s.repo.FindAddonsByIDs(ctx, ids)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Addon, len(found))
	for _, addon := range found {
		if addon.Active {
			byID[addon.ID] = addon
		}
	}

	var missing []string
	resolved := make([]models.Addon, 0, len(ids))
	for _, id := range ids {
		addon, ok := byID[id]
		if !ok {
			missing = append(missing, id.String())
			continue
		}
		resolved = append(resolved, addon)
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAddon, "unknown or inactive addons in selection").
			WithDetails(map[string]any{"addon_ids": missing})
	}
	return resolved, nil
}

// CreatePlan registers a new sellable plan.
func (s *Service) CreatePlan(ctx context.Context, input CreatePlanInput) (*models.Plan, error) {
	if err := validatePlanInput(input); err != nil {
		return nil, err
	}

	plan := &models.Plan{
		Name:                   input.Name,
		BasePrice:              input.BasePrice.Round(2),
		IncludedInboxes:        input.IncludedInboxes,
		IncludedAgents:         input.IncludedAgents,
		IncludedAutomations:    input.IncludedAutomations,
		InboxOveragePrice:      input.InboxOveragePrice.Round(2),
		AgentOveragePrice:      input.AgentOveragePrice.Round(2),
		AutomationOveragePrice: input.AutomationOverage.Round(2),
		HasKanban:              input.HasKanban,
		HasOfficialChannel:     input.HasOfficialChannel,
		HasHumanSupport:        input.HasHumanSupport,
		Active:                 true,
	}
	err := s.retry.Do(ctx, "catalog.create_plan", func(ctx context.Context) error {
		return s.repo.CreatePlan(ctx, plan)
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// UpdatePlan applies a partial mutation to an existing plan. Retiring a plan
// never touches proposals already priced against it.
func (s *Service) UpdatePlan(ctx context.Context, id uuid.UUID, input UpdatePlanInput) (*models.Plan, error) {
	var plan *models.Plan
	err := s.retry.Do(ctx, "catalog.find_plan", func(ctx context.Context) error {
		var opErr error
		plan, opErr = s.repo.FindPlanByID(ctx, id)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found").
			WithDetails(map[string]any{"plan_id": id})
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan name cannot be empty")
		}
		plan.Name = *input.Name
	}
	if input.BasePrice != nil {
		if input.BasePrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
		}
		plan.BasePrice = input.BasePrice.Round(2)
	}
	if input.HasKanban != nil {
		plan.HasKanban = *input.HasKanban
	}
	if input.HasOfficialChannel != nil {
		plan.HasOfficialChannel = *input.HasOfficialChannel
	}
	if input.HasHumanSupport != nil {
		plan.HasHumanSupport = *input.HasHumanSupport
	}
	if input.Active != nil {
		plan.Active = *input.Active
	}

	err = s.retry.Do(ctx, "catalog.update_plan", func(ctx context.Context) error {
		return s.repo.UpdatePlan(ctx, plan)
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// CreateAddon registers a new sellable addon.
func (s *Service) CreateAddon(ctx context.Context, input CreateAddonInput) (*models.Addon, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "addon name is required")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	addon := &models.Addon{
		Name:        input.Name,
		Description: input.Description,
		UnitPrice:   input.UnitPrice.Round(2),
		Active:      true,
	}
	err := s.retry.Do(ctx, "catalog.create_addon", func(ctx context.Context) error {
		return s.repo.CreateAddon(ctx, addon)
	})
	if err != nil {
		return nil, err
	}
	return addon, nil
}

// SetAddonActive flips an addon's availability for new proposals.
func (s *Service) SetAddonActive(ctx context.Context, id uuid.UUID, active bool) (*models.Addon, error) {
	var addons []models.Addon
	err := s.retry.Do(ctx, "catalog.find_addons", func(ctx context.Context) error {
		var opErr error
		addons, opErr = s.repo.FindAddonsByIDs(ctx, []uuid.UUID{id})
		return opErr
	})
	if err != nil {
		return nil, err
	}
	if len(addons) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "addon not found").
			WithDetails(map[string]any{"addon_id": id})
	}

	addon := addons[0]
	addon.Active = active
	err = s.retry.Do(ctx, "catalog.update_addon", func(ctx context.Context) error {
		return s.repo.UpdateAddon(ctx, &addon)
	})
	if err != nil {
		return nil, err
	}
	return &addon, nil
}

func validatePlanInput(input CreatePlanInput) error {
	if input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan name is required")
	}
	if input.BasePrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
	}
	included := []struct {
		field string
		value int
	}{
		{"included_inboxes", input.IncludedInboxes},
		{"included_agents", input.IncludedAgents},
		{"included_automations", input.IncludedAutomations},
	}
	for _, item := range included {
		if item.value < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be at least 1", item.field))
		}
	}
	overages := []struct {
		field string
		price decimal.Decimal
	}{
		{"inbox_overage_price", input.InboxOveragePrice},
		{"agent_overage_price", input.AgentOveragePrice},
		{"automation_overage_price", input.AutomationOverage},
	}
	for _, item := range overages {
		if item.price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s cannot be negative", item.field))
		}
	}
	return nil
}
