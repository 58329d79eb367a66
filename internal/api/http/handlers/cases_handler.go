package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-routing-service/internal/api/dto"
	"github.com/spec-kit/case-routing-service/internal/auth"
	"github.com/spec-kit/case-routing-service/internal/domain"
	"github.com/spec-kit/case-routing-service/internal/service"
	apperrors "github.com/spec-kit/case-routing-service/pkg/util"
)

// CasesHandler manages case intake and tier-scoped reads.
type CasesHandler struct {
	service *service.CaseService
}

// NewCasesHandler constructs handler.
func NewCasesHandler(caseService *service.CaseService) *CasesHandler {
	return &CasesHandler{service: caseService}
}

// CreateCase POST /cases.
func (h *CasesHandler) CreateCase(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.CaseIntakeInput{
		Title:        req.Title,
		Description:  req.Description,
		PracticeArea: req.PracticeArea,
		Complexity:   req.Complexity,
		AmountCents:  req.AmountCents,
	}
	created, err := h.service.IntakeCase(c.UserContext(), principal.UserID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": caseDetail(created)})
}

// ListCases GET /cases.
func (h *CasesHandler) ListCases(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	cases, err := h.service.ListVisibleCases(c.UserContext(), principal.Tier)
	if err != nil {
		return err
	}
	items := make([]dto.CaseSummary, 0, len(cases))
	for i := range cases {
		items = append(items, caseSummary(&cases[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetCase GET /cases/:id.
func (h *CasesHandler) GetCase(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	found, err := h.service.GetCase(c.UserContext(), principal.Tier, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": caseDetail(found)})
}

func caseSummary(c *domain.Case) dto.CaseSummary {
	return dto.CaseSummary{
		ID:             c.ID,
		Title:          c.Title,
		PracticeArea:   c.PracticeArea,
		Complexity:     c.Complexity,
		AmountCents:    c.AmountCents,
		Status:         c.Status,
		International:  c.International,
		ExclusiveUntil: c.ExclusiveUntil,
		CreatedAt:      c.CreatedAt,
	}
}

func caseDetail(c *domain.Case) dto.CaseDetailResponse {
	return dto.CaseDetailResponse{
		ID:             c.ID,
		Title:          c.Title,
		Description:    c.Description,
		PracticeArea:   c.PracticeArea,
		Complexity:     c.Complexity,
		AmountCents:    c.AmountCents,
		Status:         c.Status,
		International:  c.International,
		ExclusiveUntil: c.ExclusiveUntil,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		ClosedAt:       c.ClosedAt,
	}
}
