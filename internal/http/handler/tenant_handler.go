package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/lettingworks/tenancy-admin/internal/service"
)

// TenantHandler serves the staff tenant-management endpoints.
type TenantHandler struct {
	Tenants *service.TenantService
}

// NewTenantHandler creates the handler set.
func NewTenantHandler(tenants *service.TenantService) *TenantHandler {
	return &TenantHandler{Tenants: tenants}
}

type createTenantPayload struct {
	Email                  string  `json:"email"`
	FirstName              *string `json:"first_name"`
	LastName               *string `json:"last_name"`
	Phone                  *string `json:"phone"`
	LeadTenant             bool    `json:"lead_tenant"`
	PermittedOccupier      bool    `json:"permitted_occupier"`
	SkipFinancialReference bool    `json:"skip_financial_reference"`
	SkipLandlordReference  bool    `json:"skip_landlord_reference"`
}

type updateTenantPayload struct {
	Email                  *string `json:"email"`
	FirstName              *string `json:"first_name"`
	LastName               *string `json:"last_name"`
	Phone                  *string `json:"phone"`
	LeadTenant             *bool   `json:"lead_tenant"`
	PermittedOccupier      *bool   `json:"permitted_occupier"`
	SkipFinancialReference *bool   `json:"skip_financial_reference"`
	SkipLandlordReference  *bool   `json:"skip_landlord_reference"`
}

// Create attaches a person to the tenancy in the path.
func (h *TenantHandler) Create(c *gin.Context) {
	tenancyID, ok := pathID(c, "tenancy_id")
	if !ok {
		return
	}

	var payload createTenantPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": "Invalid payload."})
		return
	}

	result, err := h.Tenants.Create(c.Request.Context(), service.CreateTenantRequest{
		TenancyID:              tenancyID,
		Email:                  payload.Email,
		FirstName:              payload.FirstName,
		LastName:               payload.LastName,
		Phone:                  payload.Phone,
		LeadTenant:             payload.LeadTenant,
		PermittedOccupier:      payload.PermittedOccupier,
		SkipFinancialReference: payload.SkipFinancialReference,
		SkipLandlordReference:  payload.SkipLandlordReference,
	})
	if err != nil {
		respondMutationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"redirect_path": result.RedirectPath,
		"message":       result.Message,
	})
}

// Update modifies the tenant in the path and its linked user.
func (h *TenantHandler) Update(c *gin.Context) {
	tenantID, ok := pathID(c, "tenant_id")
	if !ok {
		return
	}

	var payload updateTenantPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": "Invalid payload."})
		return
	}

	result, err := h.Tenants.Update(c.Request.Context(), service.UpdateTenantRequest{
		TenantID:               tenantID,
		Email:                  payload.Email,
		FirstName:              payload.FirstName,
		LastName:               payload.LastName,
		Phone:                  payload.Phone,
		LeadTenant:             payload.LeadTenant,
		PermittedOccupier:      payload.PermittedOccupier,
		SkipFinancialReference: payload.SkipFinancialReference,
		SkipLandlordReference:  payload.SkipLandlordReference,
	})
	if err != nil {
		respondMutationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"redirect_path": result.RedirectPath,
		"message":       result.Message,
	})
}

// Destroy removes the tenant in the path when policy allows.
func (h *TenantHandler) Destroy(c *gin.Context) {
	tenantID, ok := pathID(c, "tenant_id")
	if !ok {
		return
	}

	result, err := h.Tenants.Remove(c.Request.Context(), tenantID)
	if err != nil {
		respondMutationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"redirect_path": result.RedirectPath,
		"message":       result.Message,
	})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"errors": "Not found."})
		return 0, false
	}
	return id, true
}

// respondMutationError maps service failures onto the legacy error shapes:
// a field-to-messages map for validation, a bare string for denied removals.
func respondMutationError(c *gin.Context, err error) {
	var mutErr *service.MutationError
	if errors.As(err, &mutErr) {
		if mutErr.Kind == service.KindValidation {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": mutErr.Fields})
		} else {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": mutErr.Message})
		}
		return
	}
	if errors.Is(err, pgx.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"errors": "Not found."})
		return
	}
	zap.L().Error("tenant mutation failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"errors": "Something went wrong."})
}
