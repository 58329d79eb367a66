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

// AuctionHandler manages sealed bids and winner selection.
type AuctionHandler struct {
	service *service.AuctionService
}

// NewAuctionHandler constructs handler.
func NewAuctionHandler(auctionService *service.AuctionService) *AuctionHandler {
	return &AuctionHandler{service: auctionService}
}

// SubmitBid POST /cases/:id/bids.
func (h *AuctionHandler) SubmitBid(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SubmitBidRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	bidderName := req.BidderName
	if bidderName == "" {
		bidderName = principal.Name
	}
	bid, err := h.service.SubmitBid(c.UserContext(), c.Params("id"), service.SubmitBidInput{
		BidderID:           principal.UserID,
		BidderName:         bidderName,
		AmountCents:        req.AmountCents,
		ProposedFeePercent: req.ProposedFeePercent,
		EstimatedDuration:  req.EstimatedDuration,
		Notes:              req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": bidResponse(bid)})
}

// ListBids GET /cases/:id/bids.
func (h *AuctionHandler) ListBids(c *fiber.Ctx) error {
	bids, err := h.service.ListBids(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.BidResponse, 0, len(bids))
	for i := range bids {
		out = append(out, bidResponse(&bids[i]))
	}
	return c.JSON(fiber.Map{"data": out, "count": len(out)})
}

// SelectWinner POST /cases/:id/bids/:bidID/select.
func (h *AuctionHandler) SelectWinner(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	bid, err := h.service.SelectWinner(c.UserContext(), c.Params("id"), c.Params("bidID"), principal.UserID, principal.Tier)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bidResponse(bid)})
}

func bidResponse(b *domain.Bid) dto.BidResponse {
	return dto.BidResponse{
		ID:                 b.ID,
		CaseID:             b.CaseID,
		BidderID:           b.BidderID,
		BidderName:         b.BidderName,
		AmountCents:        b.AmountCents,
		ProposedFeePercent: b.ProposedFeePercent,
		EstimatedDuration:  b.EstimatedDuration,
		Notes:              b.Notes,
		Status:             b.Status,
		SubmittedAt:        b.SubmittedAt,
	}
}
