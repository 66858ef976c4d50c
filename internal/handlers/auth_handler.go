package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/services"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// The credential flows are the same for staff and clients; these build the
// handler for one kind from its Authenticator.

func loginHandler[T models.Identity](auth *services.Authenticator[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if !bindJSON(c, &req) {
			return
		}
		session, err := auth.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

func forgotPasswordHandler[T models.Identity](auth *services.Authenticator[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "If the account exists, we sent an email with the instructions"})
	}
}

func checkTokenHandler[T models.Identity](auth *services.Authenticator[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.CheckToken(c.Request.Context(), c.Param("token")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Valid token"})
	}
}

func resetPasswordHandler[T models.Identity](auth *services.Authenticator[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := auth.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
	}
}

// ChangePassword changes the caller's own password given the current one.
func (h *Handler) ChangePassword(c *gin.Context) {
	staff, ok := currentStaff(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.StaffAuth.ChangePassword(c.Request.Context(), staff.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
