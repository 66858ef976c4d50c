package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/vetclinic-api/internal/apperr"
	"github.com/rs/zerolog"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AbortWithError writes err as the error envelope and stops the chain.
// Internal errors are logged with their cause; the caller only sees the message.
func AbortWithError(c *gin.Context, err error) {
	e := apperr.From(err)
	if e.Kind == apperr.KindInternal {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(e.Kind.HTTPStatus(), ErrorResponse{Error: e.Message, Code: e.Kind.String()})
}
