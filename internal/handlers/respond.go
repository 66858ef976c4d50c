package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/harentsoaR/vetclinic-api/internal/middleware"
	"github.com/harentsoaR/vetclinic-api/internal/models"
	"github.com/harentsoaR/vetclinic-api/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func respondError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// bindJSON decodes and validates the body into dst, answering 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Invalid("invalid request body")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperr.Invalid(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "objectid":
		return field + " must be a valid id"
	case "nationalid":
		return field + " must be a valid national id"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}

// idParam parses the path parameter name as an ObjectID.
func idParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := services.ParseID(c.Param(name), name)
	if err != nil {
		respondError(c, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

// queryID parses an optional ObjectID query parameter.
func queryID(c *gin.Context, name string) (*primitive.ObjectID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := services.ParseID(raw, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Invalidf("invalid %s", name)
	}
	return &v, nil
}

func currentStaff(c *gin.Context) (*models.StaffIdentity, bool) {
	staff, ok := middleware.StaffFrom(c)
	if !ok || staff == nil {
		respondError(c, apperr.Unauthorized("authentication required"))
		return nil, false
	}
	return staff, true
}

func currentClient(c *gin.Context) (*models.ClientIdentity, bool) {
	client, ok := middleware.ClientFrom(c)
	if !ok || client == nil {
		respondError(c, apperr.Unauthorized("authentication required"))
		return nil, false
	}
	return client, true
}
