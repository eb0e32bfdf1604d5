package server

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/autovideo/api/internal/config"
	"github.com/autovideo/api/internal/handler"
	"github.com/autovideo/api/internal/middleware"
	"github.com/autovideo/api/internal/pipeline"
	"github.com/autovideo/api/internal/service"
	ws "github.com/autovideo/api/internal/websocket"
	"github.com/autovideo/api/pkg/response"
)

// Deps are the components the HTTP layer serves
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Hub          *ws.Hub
	Faces        *service.FaceService
	RateLimiter  *middleware.RateLimiter
	Validator    *validator.Validate
	Health       map[string]handler.HealthCheck

	// UploadDir is served at /uploads when faces are stored locally.
	UploadDir string
}

// NewApp builds the Fiber app with every route registered.
func NewApp(cfg *config.Config, deps Deps) *fiber.App {
	validate := deps.Validator
	if validate == nil {
		validate = validator.New()
	}
	maxFaceBytes := int64(cfg.Faces.MaxUploadMB) * 1024 * 1024

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		BodyLimit:    int(maxFaceBytes) + 1024*1024,
	})

	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	if deps.UploadDir != "" {
		app.Static("/uploads", deps.UploadDir)
	}

	healthHandler := handler.NewHealthHandler(deps.Health)
	jobsHandler := handler.NewJobsHandler(deps.Orchestrator, deps.Hub, validate)

	app.Get("/api/health", healthHandler.Check)

	api := app.Group("/api", middleware.NewAuthMiddleware(cfg.Auth).Authenticate())

	jobs := api.Group("/jobs")
	jobs.Get("/", jobsHandler.List)
	jobs.Post("/", deps.RateLimiter.JobsLimit(cfg.RateLimit.JobsPerHour), jobsHandler.Create)
	jobs.Get("/:id", jobsHandler.Get)
	jobs.Post("/:id/publish", jobsHandler.Publish)

	if deps.Faces != nil {
		facesHandler := handler.NewFacesHandler(deps.Faces, validate, maxFaceBytes)
		faces := api.Group("/faces")
		faces.Get("/", facesHandler.List)
		faces.Post("/", deps.RateLimiter.FacesLimit(cfg.RateLimit.FacesPerHour), facesHandler.Create)
		faces.Get("/:id", facesHandler.Get)
		faces.Put("/:id", facesHandler.Update)
		faces.Delete("/:id", facesHandler.Delete)
	}

	app.Get("/ws/jobs/:jobId", jobsHandler.Upgrade, jobsHandler.Stream())

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	errCode := response.CodeServiceError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
		switch code {
		case fiber.StatusNotFound:
			errCode = response.CodeNotFound
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
			errCode = response.CodeValidationError
		}
	}

	return response.Error(c, code, errCode, message)
}
