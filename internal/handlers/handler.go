package handlers

import (
	"github.com/harentsoaR/vetclinic-api/internal/metrics"
	"github.com/harentsoaR/vetclinic-api/internal/services"
)

// Handler holds what the route handlers need. Handlers are methods on it and
// live in one file per resource.
type Handler struct {
	svc     *services.Services
	metrics *metrics.Metrics
}

func NewHandler(svc *services.Services, m *metrics.Metrics) *Handler {
	return &Handler{
		svc:     svc,
		metrics: m,
	}
}
