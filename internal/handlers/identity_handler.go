package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"github.com/harentsoaR/vetclinic-api/internal/services"
)

// --- STAFF REGISTRATION (admin) ---
func (h *Handler) RegisterStaff(c *gin.Context) {
	var req services.RegisterStaffInput
	if !bindJSON(c, &req) {
		return
	}
	staff, err := h.svc.Staff.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, staff)
}

func (h *Handler) ConfirmStaff(c *gin.Context) {
	if err := h.svc.Staff.Confirm(c.Request.Context(), c.Param("token")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account confirmed successfully"})
}

// StaffProfile returns the identity resolved from the session.
func (h *Handler) StaffProfile(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, staff)
}

func (h *Handler) UpdateStaffProfile(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateStaffInput
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.svc.Staff.UpdateProfile(c.Request.Context(), staff, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ListStaff supports ?role= and ?active= filters.
func (h *Handler) ListStaff(c *gin.Context) {
	active, err := queryBool(c, "active")
	if err != nil {
		respondError(c, err)
		return
	}
	filter := repository.StaffFilter{Role: models.Role(c.Query("role")), Active: active}
	staff, err := h.svc.Staff.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

func (h *Handler) ListActiveVeterinarians(c *gin.Context) {
	vets, err := h.svc.Staff.ListVeterinarians(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vets)
}

func (h *Handler) GetStaff(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	staff, err := h.svc.Staff.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

func (h *Handler) DeactivateStaff(c *gin.Context) {
	h.setStaffActive(c, false)
}

func (h *Handler) ActivateStaff(c *gin.Context) {
	h.setStaffActive(c, true)
}

func (h *Handler) setStaffActive(c *gin.Context, active bool) {
	actor, ok := currentStaff(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	staff, err := h.svc.Staff.SetActive(c.Request.Context(), actor, id, active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}
