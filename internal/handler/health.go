package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/autovideo/api/internal/model"
	"github.com/autovideo/api/pkg/response"
)

// HealthCheck reports whether one dependency is configured or reachable
type HealthCheck func(ctx context.Context) bool

type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Check handles GET /api/health
// @Summary      Health check
// @Description  Reports liveness and which vendors are configured
// @Tags         Health
// @Produce      json
// @Success      200 {object} model.HealthResponse
// @Router       /api/health [get]
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	services := make(map[string]bool, len(h.checks))
	for name, check := range h.checks {
		services[name] = check(ctx)
	}
	return response.OK(c, model.HealthResponse{OK: true, Services: services})
}
