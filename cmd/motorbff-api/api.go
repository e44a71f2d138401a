// Package main provides the Motor BFF API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/google/uuid"

	"github.com/veergo/motorbff/pkg/dashboard"
	"github.com/veergo/motorbff/pkg/services"
	"github.com/veergo/motorbff/pkg/web"
)

const requestIDHeader = "X-Request-ID"

type API struct {
	logger           *slog.Logger
	journeyService   *services.Journey
	dashboardService *dashboard.Service
	validate         *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	journeyService *services.Journey,
	dashboardService *dashboard.Service,
) *API {
	return &API{
		logger:           logger,
		journeyService:   journeyService,
		dashboardService: dashboardService,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.journeyService, a.dashboardService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))
	app.Use(requestID())

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Motor BFF API")
	})

	j := app.Group("/journey/api/v1")
	j.Post("/next-node", handlers.NextNode)
	j.Post("/segment", handlers.SegmentData)
	j.Get("/proposals/registration/:registrationNumber", handlers.ProposalsByRegistrationNumber)
	j.Get("/proposals/payment/:paymentId", handlers.ProposalByPaymentID)
	j.Get("/proposals/:proposalEkey", handlers.ProposalByEkey)

	d := app.Group("/dashboard/api/v1")
	d.Get("/tabs", handlers.TabNames)
	d.Get("/tab-info", handlers.TabInfo)
	d.Get("/tabs/data", handlers.AllTabData)
	d.Get("/tabs/:name/data", handlers.TabData)
	d.Post("/tabs", handlers.ConfigureTab)
	d.Put("/tabs/:name/format", handlers.SaveTabFormat)

	app.Get("/health", handlers.HealthCheck)

	return app
}

// requestID tags every request with an identifier, keeping an inbound
// one when the caller already set it.
func requestID() fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDHeader, id)

		return c.Next()
	}
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
