// Package web provides the HTTP handlers for the journey and dashboard
// endpoints.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/veergo/motorbff/pkg/dashboard"
	"github.com/veergo/motorbff/pkg/journey"
	"github.com/veergo/motorbff/pkg/services"
)

type APIHandlers struct {
	journeyService   *services.Journey
	dashboardService *dashboard.Service
	validator        *validator.Validate
}

func NewAPIHandlers(
	journeyService *services.Journey,
	dashboardService *dashboard.Service,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		journeyService:   journeyService,
		dashboardService: dashboardService,
		validator:        validator,
	}
}

// NextNode evaluates one workflow step for the client.
func (h *APIHandlers) NextNode(c fiber.Ctx) error {
	var req journey.Request
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.journeyService.Next(c.Context(), &req, forwardedHeaders(c))
	if err != nil {
		return handleJourneyError(c, err)
	}

	return c.Status(result.Status).JSON(result)
}

// SegmentData returns the flat analytics projection of the proposal.
func (h *APIHandlers) SegmentData(c fiber.Ctx) error {
	var req journey.Request
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.journeyService.Segment(c.Context(), &req, forwardedHeaders(c))
	if err != nil {
		return handleJourneyError(c, err)
	}

	return c.JSON(result)
}

// ProposalsByRegistrationNumber lists proposals for a vehicle.
func (h *APIHandlers) ProposalsByRegistrationNumber(c fiber.Ctx) error {
	req := lookupRequest(c, "registration_number", c.Params("registrationNumber"))

	result, err := h.journeyService.ProposalsByRegistrationNumber(c.Context(), req, forwardedHeaders(c))
	if err != nil {
		return handleJourneyError(c, err)
	}

	return c.Status(result.Status).JSON(result.Data)
}

// ProposalByPaymentID returns the proposal attached to a payment.
func (h *APIHandlers) ProposalByPaymentID(c fiber.Ctx) error {
	req := lookupRequest(c, "payment_id", c.Params("paymentId"))

	result, err := h.journeyService.ProposalByPaymentID(c.Context(), req, forwardedHeaders(c))
	if err != nil {
		return handleJourneyError(c, err)
	}

	return c.Status(result.Status).JSON(result.Data)
}

// ProposalByEkey returns a proposal directly by its ekey.
func (h *APIHandlers) ProposalByEkey(c fiber.Ctx) error {
	req := lookupRequest(c, "proposal_ekey", c.Params("proposalEkey"))

	result, err := h.journeyService.ProposalByEkey(c.Context(), req, forwardedHeaders(c))
	if err != nil {
		return handleJourneyError(c, err)
	}

	return c.Status(result.Status).JSON(result.Data)
}

// TabNames lists the configured dashboard tabs.
func (h *APIHandlers) TabNames(c fiber.Ctx) error {
	names, err := h.dashboardService.TabNames(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"data": names})
}

// TabInfo echoes the requested tab identity back to the client.
func (h *APIHandlers) TabInfo(c fiber.Ctx) error {
	name := c.Query("tab_name")
	if name == "" {
		return c.JSON(fiber.Map{"data": []any{}})
	}

	row, _ := strconv.Atoi(c.Query("row"))

	return c.JSON(fiber.Map{"data": fiber.Map{"tab_name": name, "row": row}})
}

// AllTabData assembles every configured tab.
func (h *APIHandlers) AllTabData(c fiber.Ctx) error {
	tabs, err := h.dashboardService.AllTabData(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"data": tabs})
}

// TabData assembles one named tab.
func (h *APIHandlers) TabData(c fiber.Ctx) error {
	data, err := h.dashboardService.TabData(c.Context(), c.Params("name"))
	if err != nil {
		return internalError(c, err)
	}

	if data == nil {
		return notFound(c, "Tab not configured")
	}

	return c.JSON(fiber.Map{"data": data})
}

// ConfigureTab saves a tab configuration and returns its raw list data.
func (h *APIHandlers) ConfigureTab(c fiber.Ctx) error {
	var tab dashboard.TabConfig
	if err := c.Bind().JSON(&tab); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(tab); err != nil {
		return badRequest(c, err.Error())
	}

	data, err := h.dashboardService.ConfigureTab(c.Context(), &tab)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"data": data})
}

// SaveTabFormat persists the display format for a tab.
func (h *APIHandlers) SaveTabFormat(c fiber.Ctx) error {
	var format dashboard.TabFormat
	if err := c.Bind().JSON(&format); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.dashboardService.SaveFormat(c.Context(), c.Params("name"), &format); err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	journeyCheck, journeyOK := h.journeyService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Motor BFF is unhealthy"
	httpStatus := http.StatusInternalServerError

	if journeyOK {
		status = "healthy"
		message = "Motor BFF is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"journey": journeyCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// forwardedHeaders collects the inbound headers the upstream calls
// depend on.
func forwardedHeaders(c fiber.Ctx) map[string]string {
	headers := make(map[string]string)

	if cookie := c.Get("Cookie"); cookie != "" {
		headers["cookie"] = cookie
	}

	if tracker := c.Get("x-tracker-id"); tracker != "" {
		headers["x-tracker-id"] = tracker
	}

	return headers
}

func lookupRequest(c fiber.Ctx, key, value string) *journey.Request {
	req := &journey.Request{
		Journey: c.Query("journey", "motor"),
		Data:    map[string]any{},
	}

	if value != "" {
		req.Data[key] = value
	}

	return req
}
