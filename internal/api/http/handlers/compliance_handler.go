package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-routing/internal/api/dto"
	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/service"
	apperrors "github.com/spec-kit/ticket-routing/pkg/util/errorutil"
)

// ComplianceHandler exposes the routing and compliance operations.
type ComplianceHandler struct {
	service *service.ComplianceService
}

// NewComplianceHandler constructs handler.
func NewComplianceHandler(complianceService *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{service: complianceService}
}

// SubmitTicket POST /tickets.
func (h *ComplianceHandler) SubmitTicket(c *fiber.Ctx) error {
	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Identifier == "" || req.Subject == "" {
		return apperrors.NewValidationError("identifier and subject required", nil)
	}

	ticket, decision, err := h.service.SubmitTicket(c.UserContext(), req.ToSubmission())
	if err != nil {
		return err
	}
	if ticket == nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"data": fiber.Map{
				"admitted": false,
				"decision": dto.NewGateDecisionResponse(decision),
			},
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"admitted": true,
			"decision": dto.NewGateDecisionResponse(decision),
			"ticket":   dto.NewTicketResponse(ticket),
		},
	})
}

// CheckSpam POST /spam/check.
func (h *ComplianceHandler) CheckSpam(c *fiber.Ctx) error {
	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	decision := h.service.CheckTicketSpam(c.UserContext(), req.ToSubmission())
	return c.JSON(fiber.Map{"data": dto.NewGateDecisionResponse(decision)})
}

// ApplyRules POST /tickets/:id/rules.
func (h *ComplianceHandler) ApplyRules(c *fiber.Ctx) error {
	var req dto.ApplyRulesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Trigger == "" {
		return apperrors.NewValidationError("trigger required", nil)
	}

	result, err := h.service.ApplyWorkflowRules(c.UserContext(), c.Params("id"), req.Trigger)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRulePassResponse(result)})
}

// GetSLAStatus GET /tickets/:id/sla.
func (h *ComplianceHandler) GetSLAStatus(c *fiber.Ctx) error {
	status, err := h.service.GetTicketSLAStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAStatusResponse(status)})
}

// GetSLAStatistics GET /sla/statistics.
func (h *ComplianceHandler) GetSLAStatistics(c *fiber.Ctx) error {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return apperrors.NewValidationError("invalid from timestamp", nil)
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return apperrors.NewValidationError("invalid to timestamp", nil)
		}
		to = parsed
	}
	if to.Before(from) {
		return apperrors.NewValidationError("to must not precede from", nil)
	}

	stats, err := h.service.GetSLAStatistics(c.UserContext(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAStatisticsResponse(stats)})
}

// CalculateBreachTime POST /sla/breach-time.
func (h *ComplianceHandler) CalculateBreachTime(c *fiber.Ctx) error {
	var req dto.BreachTimeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	createdAt := time.Now().UTC()
	if req.CreatedAt != nil {
		createdAt = *req.CreatedAt
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	ticketType := req.Type
	if ticketType == "" {
		ticketType = domain.TicketTypeIncident
	}

	breachAt := h.service.CalculateBreachTime(priority, ticketType, req.Category, createdAt)
	return c.JSON(fiber.Map{"data": dto.BreachTimeResponse{BreachAt: breachAt}})
}

// RunEscalationSweep POST /escalations/sweep.
func (h *ComplianceHandler) RunEscalationSweep(c *fiber.Ctx) error {
	result := h.service.ProcessEscalations(c.UserContext())
	return c.JSON(fiber.Map{"data": dto.NewSweepResultResponse(result)})
}
