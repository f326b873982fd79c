package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rk-sharma/detailbook/internal/core"
	"github.com/rk-sharma/detailbook/internal/identity"
)

type TenantStore interface {
	Create(ctx context.Context, name, slug, timezone string) (core.Tenant, error)
}

type ServiceStore interface {
	ListActive(ctx context.Context, tenantID string) ([]core.ServiceOffering, error)
	Create(ctx context.Context, s core.ServiceOffering) (string, error)
}

type TenantLookup interface {
	ResolveTenant(ctx context.Context, tenantRef string) (core.Tenant, error)
}

// ProvisioningHandler covers tenant signup and the service catalog: the
// records everything else assumes already exist.
type ProvisioningHandler struct {
	tenants  TenantStore
	services ServiceStore
	ids      TenantLookup
	logger   *slog.Logger
}

func NewProvisioningHandler(tenants TenantStore, services ServiceStore, ids TenantLookup, logger *slog.Logger) *ProvisioningHandler {
	return &ProvisioningHandler{
		tenants:  tenants,
		services: services,
		ids:      ids,
		logger:   logger,
	}
}

type createTenantRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// CreateTenant handles POST /api/v1/tenants. The slug defaults to a
// slugified name; collisions get a numeric suffix in storage.
func (h *ProvisioningHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, core.Validationf("invalid JSON body"))
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, h.logger, core.Validationf("tenant name is required"))
		return
	}
	tz := strings.TrimSpace(req.Timezone)
	if tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			writeError(w, h.logger, core.Validationf("unknown timezone %q", tz))
			return
		}
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = identity.Slugify(name)
	} else {
		slug = identity.Slugify(slug)
	}

	tenant, err := h.tenants.Create(r.Context(), name, slug, tz)
	if err != nil {
		writeError(w, h.logger, core.StorageFailure("create tenant", err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"tenant_id": tenant.ID,
		"slug":      tenant.Slug,
		"name":      tenant.Name,
		"timezone":  tenant.Timezone,
	})
}

// ListServices handles GET /api/v1/public/{tenantRef}/services, the catalog
// a booking page renders.
func (h *ProvisioningHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.ids.ResolveTenant(r.Context(), r.PathValue("tenantRef"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	services, err := h.services.ListActive(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, h.logger, core.StorageFailure("list services", err))
		return
	}
	items := make([]map[string]any, 0, len(services))
	for _, s := range services {
		items = append(items, map[string]any{
			"service_id":       s.ID,
			"name":             s.Name,
			"price":            s.Price,
			"duration_minutes": s.DurationMinutes,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tenant":   tenant.Slug,
		"services": items,
	})
}

type createServiceRequest struct {
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration_minutes"`
}

// CreateService handles POST /api/v1/services for the operator's catalog.
func (h *ProvisioningHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	tenantID := tenantIDFromHeader(r)
	if !identity.IsInternalID(tenantID) {
		writeError(w, h.logger, core.Validationf("X-Tenant-Id must be the internal tenant id"))
		return
	}

	var req createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, core.Validationf("invalid JSON body"))
		return
	}
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		writeError(w, h.logger, core.Validationf("service name is required"))
		return
	case req.Price < 0:
		writeError(w, h.logger, core.Validationf("price cannot be negative"))
		return
	case req.DurationMinutes <= 0:
		writeError(w, h.logger, core.Validationf("duration_minutes must be positive"))
		return
	}

	id, err := h.services.Create(r.Context(), core.ServiceOffering{
		TenantID:        tenantID,
		Name:            name,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		Active:          true,
	})
	if err != nil {
		writeError(w, h.logger, core.StorageFailure("create service", err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"service_id": id,
		"name":       name,
	})
}
