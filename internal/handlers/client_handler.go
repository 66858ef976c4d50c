package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"github.com/harentsoaR/vetclinic-api/internal/services"
)

type PortalAccessRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

// RegisterClient creates the client and any patients sent along with it.
func (h *Handler) RegisterClient(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	var req services.RegisterClientInput
	if !bindJSON(c, &req) {
		return
	}
	reg, err := h.svc.Clients.Register(c.Request.Context(), staff, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reg)
}

// ListClients supports ?active= and ?q= (name, surname, email or national id).
func (h *Handler) ListClients(c *gin.Context) {
	active, err := queryBool(c, "active")
	if err != nil {
		respondError(c, err)
		return
	}
	filter := repository.ClientFilter{Active: active, Query: strings.TrimSpace(c.Query("q"))}
	clients, err := h.svc.Clients.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (h *Handler) GetClientByNationalID(c *gin.Context) {
	client, err := h.svc.Clients.GetByNationalID(c.Request.Context(), c.Param("nationalId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *Handler) GetClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	client, err := h.svc.Clients.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *Handler) UpdateClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateClientInput
	if !bindJSON(c, &req) {
		return
	}
	client, err := h.svc.Clients.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *Handler) DeactivateClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Clients.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Client deactivated successfully"})
}

// EnablePortalAccess sets a portal password and sends a new verification link.
func (h *Handler) EnablePortalAccess(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req PortalAccessRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Clients.EnablePortal(c.Request.Context(), id, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Portal access enabled, a verification email was sent"})
}

// --- PORTAL ---

// ConfirmClientEmail verifies the email and hands back the token for the
// password setup step.
func (h *Handler) ConfirmClientEmail(c *gin.Context) {
	token, err := h.svc.Clients.ConfirmEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified successfully",
		"token":   token,
	})
}

func (h *Handler) ClientProfile(c *gin.Context) {
	client, ok := currentClient(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, client)
}
