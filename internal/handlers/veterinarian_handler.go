package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/vetclinic-api/internal/services"
)

func (h *Handler) ListVeterinarians(c *gin.Context) {
	vets, err := h.svc.Veterinarians.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vets)
}

func (h *Handler) GetVeterinarian(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	vet, err := h.svc.Veterinarians.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vet)
}

// UpdateVeterinarian is open to admins and to the veterinarian themself.
func (h *Handler) UpdateVeterinarian(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateVeterinarianInput
	if !bindJSON(c, &req) {
		return
	}
	vet, err := h.svc.Veterinarians.Update(c.Request.Context(), staff, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vet)
}
