package handlers

import (
	"sponsornet/internal/adapters/http/middleware"
	"sponsornet/internal/core/domain"
	"sponsornet/internal/core/services"
	"sponsornet/internal/pkg/response"
	"sponsornet/internal/pkg/validate"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles administrative tree and commission endpoints
type AdminHandler struct {
	pathService       *services.PathService
	memberService     *services.MemberService
	subtreeService    *services.SubtreeService
	commissionService *services.CommissionService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	pathService *services.PathService,
	memberService *services.MemberService,
	subtreeService *services.SubtreeService,
	commissionService *services.CommissionService,
) *AdminHandler {
	return &AdminHandler{
		pathService:       pathService,
		memberService:     memberService,
		subtreeService:    subtreeService,
		commissionService: commissionService,
	}
}

// ReassignRequest moves a member under a new sponsor; null makes it a root
type ReassignRequest struct {
	SponsorID *uint `json:"sponsor_id"`
}

// StatusRequest changes a member's status
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE SUSPENDED DEACTIVATED PENDING"`
}

// RoleRequest changes a member's tier
type RoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func memberIDParam(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// ReassignSponsor moves a member and its subtree
// @Summary Reassign sponsor
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param body body ReassignRequest true "New sponsor"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/members/{id}/sponsor [put]
func (h *AdminHandler) ReassignSponsor(c *fiber.Ctx) error {
	id, ok := memberIDParam(c)
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}

	var req ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.pathService.ReassignSponsor(c.Context(), middleware.MemberID(c), id, req.SponsorID); err != nil {
		return response.FromError(c, err)
	}

	member, err := h.memberService.GetMember(c.Context(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Sponsor reassigned", member.ToResponse())
}

// RecomputePath rebuilds a member's path and its subtree's
// @Summary Recompute path
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Router /admin/members/{id}/recompute-path [post]
func (h *AdminHandler) RecomputePath(c *fiber.Ctx) error {
	id, ok := memberIDParam(c)
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}
	if err := h.pathService.RecomputePath(c.Context(), middleware.MemberID(c), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Path recomputed", nil)
}

// ChangeStatus sets a member's status
// @Summary Change status
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param body body StatusRequest true "Status"
// @Success 200 {object} response.Response
// @Router /admin/members/{id}/status [put]
func (h *AdminHandler) ChangeStatus(c *fiber.Ctx) error {
	id, ok := memberIDParam(c)
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}

	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := h.memberService.ChangeStatus(c.Context(), middleware.MemberID(c), id, domain.Status(req.Status)); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Status updated", nil)
}

// ChangeRole sets a member's tier
// @Summary Change role
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param body body RoleRequest true "Role"
// @Success 200 {object} response.Response
// @Router /admin/members/{id}/role [put]
func (h *AdminHandler) ChangeRole(c *fiber.Ctx) error {
	id, ok := memberIDParam(c)
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}

	var req RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if err := h.memberService.ChangeRole(c.Context(), middleware.MemberID(c), id, domain.Role(req.Role)); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Role updated", nil)
}

// DeleteMember removes a leaf member
// @Summary Delete leaf member
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/members/{id} [delete]
func (h *AdminHandler) DeleteMember(c *fiber.Ctx) error {
	id, ok := memberIDParam(c)
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}
	if err := h.memberService.DeleteLeaf(c.Context(), middleware.MemberID(c), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Member deleted", nil)
}

// Downline lists every descendant id of a member
// @Summary Full downline ids
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Router /admin/members/{id}/downline [get]
func (h *AdminHandler) Downline(c *fiber.Ctx) error {
	id, ok := memberIDParam(c)
	if !ok {
		return response.BadRequest(c, "Invalid member ID")
	}
	ids, err := h.subtreeService.DownlineIDs(c.Context(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	if ids == nil {
		ids = []uint{}
	}
	return response.Success(c, "", fiber.Map{"member_id": id, "downline": ids})
}

// Consistency runs the full tree check
// @Summary Tree consistency check
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/consistency [get]
func (h *AdminHandler) Consistency(c *fiber.Ctx) error {
	report, err := h.pathService.ConsistencyCheck(c.Context())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "", report)
}

// UpsertSlab creates or replaces an offering's commission slab
// @Summary Upsert slab
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.SlabInput true "Slab"
// @Success 200 {object} response.Response
// @Router /admin/slabs [put]
func (h *AdminHandler) UpsertSlab(c *fiber.Ctx) error {
	var req services.SlabInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	slab, err := h.commissionService.UpsertSlab(c.Context(), &req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Slab saved", slab)
}

// RecordSale distributes commission for a sale
// @Summary Record sale
// @Description Creates the seller row and up to two upline bonus rows. Re-posting a booking_id returns the existing rows.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.SaleInput true "Sale"
// @Success 201 {object} response.Response
// @Router /admin/sales [post]
func (h *AdminHandler) RecordSale(c *fiber.Ctx) error {
	var req services.SaleInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	rows, err := h.commissionService.Distribute(c.Context(), &req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Commission distributed", rows)
}
