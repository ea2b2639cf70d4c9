package handlers

import (
	"sponsornet/internal/adapters/http/middleware"
	"sponsornet/internal/core/services"
	"sponsornet/internal/pkg/pagination"
	"sponsornet/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// EarningHandler handles earnings statement endpoints
type EarningHandler struct {
	commissionService *services.CommissionService
	subtreeService    *services.SubtreeService
}

// NewEarningHandler creates a new earning handler
func NewEarningHandler(commissionService *services.CommissionService, subtreeService *services.SubtreeService) *EarningHandler {
	return &EarningHandler{
		commissionService: commissionService,
		subtreeService:    subtreeService,
	}
}

// MyStatement returns the caller's earnings
// @Summary My earnings statement
// @Tags Earnings
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response
// @Router /earnings/me [get]
func (h *EarningHandler) MyStatement(c *fiber.Ctx) error {
	return h.statement(c, middleware.MemberID(c))
}

// MemberStatement returns the earnings of a member in the caller's downline
// @Summary Member earnings statement
// @Tags Earnings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /earnings/members/{id} [get]
func (h *EarningHandler) MemberStatement(c *fiber.Ctx) error {
	id, handled, err := authorizedTarget(c, h.subtreeService)
	if handled {
		return err
	}
	return h.statement(c, id)
}

func (h *EarningHandler) statement(c *fiber.Ctx, memberID uint) error {
	params := pagination.GetParams(c)

	st, err := h.commissionService.Statement(c.Context(), memberID, params.Offset, params.Limit)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "", fiber.Map{
		"rows":        st.Rows,
		"totals":      st.Totals,
		"grand_total": st.GrandSum,
		"meta":        pagination.GetMeta(params, st.Total),
	})
}
