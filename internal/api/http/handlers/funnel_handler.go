package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-routing-service/internal/api/dto"
	"github.com/spec-kit/case-routing-service/internal/auth"
	"github.com/spec-kit/case-routing-service/internal/domain"
	"github.com/spec-kit/case-routing-service/internal/service"
	apperrors "github.com/spec-kit/case-routing-service/pkg/util"
)

// FunnelHandler manages international routing and funnel responses.
type FunnelHandler struct {
	service *service.FunnelService
}

// NewFunnelHandler constructs handler.
func NewFunnelHandler(funnelService *service.FunnelService) *FunnelHandler {
	return &FunnelHandler{service: funnelService}
}

// RouteInternational POST /cases/:id/route-international.
func (h *FunnelHandler) RouteInternational(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RouteInternationalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.RouteInternationalInput{
		CountriesInvolved:  req.CountriesInvolved,
		LanguagesRequired:  req.LanguagesRequired,
		PriorityAssigneeID: req.PriorityAssigneeID,
		PanelMemberIDs:     req.PanelMemberIDs,
	}
	ic, err := h.service.RouteInternational(c.UserContext(), principal.UserID, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": funnelState(ic)})
}

// GetFunnelState GET /cases/:id/funnel.
func (h *FunnelHandler) GetFunnelState(c *fiber.Ctx) error {
	ic, err := h.service.GetFunnelState(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": funnelState(ic)})
}

// RecordPriorityResponse POST /cases/:id/priority-response.
func (h *FunnelHandler) RecordPriorityResponse(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.HandlerResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ic, err := h.service.RecordPriorityResponse(c.UserContext(), principal.UserID, c.Params("id"), req.Response, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": funnelState(ic)})
}

// RecordPanelResponse POST /cases/:id/panel-response.
func (h *FunnelHandler) RecordPanelResponse(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.HandlerResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	memberID := strings.TrimSpace(req.MemberID)
	if memberID == "" {
		memberID = principal.UserID
	}
	ic, err := h.service.RecordPanelResponse(c.UserContext(), c.Params("id"), memberID, req.Response, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": funnelState(ic)})
}

func funnelState(ic *domain.InternationalCase) dto.FunnelStateResponse {
	panel := make([]dto.PanelEntryResponse, 0, len(ic.Panel))
	for i := range ic.Panel {
		entry := &ic.Panel[i]
		panel = append(panel, dto.PanelEntryResponse{
			MemberID:    entry.MemberID,
			Position:    entry.Position,
			Decision:    entry.Decision,
			Notes:       entry.Notes,
			RespondedAt: entry.RespondedAt,
		})
	}
	return dto.FunnelStateResponse{
		CaseID:             ic.CaseID,
		CountriesInvolved:  ic.CountriesInvolved,
		LanguagesRequired:  ic.LanguagesRequired,
		FunnelStage:        ic.FunnelStage,
		PriorityAssigneeID: ic.PriorityAssigneeID,
		PriorityResponse:   ic.PriorityResponse,
		PriorityNotes:      ic.PriorityNotes,
		Panel:              panel,
		FinalHandlerID:     ic.FinalHandlerID,
		AuctionEndsAt:      ic.AuctionEndsAt,
		CreatedAt:          ic.CreatedAt,
		UpdatedAt:          ic.UpdatedAt,
	}
}
