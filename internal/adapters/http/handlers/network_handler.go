package handlers

import (
	"strconv"
	"strings"

	"sponsornet/internal/adapters/http/middleware"
	"sponsornet/internal/core/services"
	"sponsornet/internal/pkg/response"
	"sponsornet/internal/pkg/validate"

	"github.com/gofiber/fiber/v2"
)

// Response headers describing the bounds applied to a tree view
const (
	HeaderTreeDepth       = "X-Tree-Depth"
	HeaderTreeMaxExpanded = "X-Tree-Max-Expanded"
)

// NetworkHandler handles join and downline endpoints
type NetworkHandler struct {
	memberService  *services.MemberService
	inviteService  *services.InviteService
	subtreeService *services.SubtreeService
}

// NewNetworkHandler creates a new network handler
func NewNetworkHandler(
	memberService *services.MemberService,
	inviteService *services.InviteService,
	subtreeService *services.SubtreeService,
) *NetworkHandler {
	return &NetworkHandler{
		memberService:  memberService,
		inviteService:  inviteService,
		subtreeService: subtreeService,
	}
}

// Join handles a new member joining with an invite code
// @Summary Join the network
// @Description Create a member under the owner of an invite code. The first member of an empty network needs no code.
// @Tags Network
// @Accept json
// @Produce json
// @Param body body services.JoinInput true "Join data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /network/join [post]
func (h *NetworkHandler) Join(c *fiber.Ctx) error {
	var req services.JoinInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	out, err := h.memberService.Join(c.Context(), &req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Joined successfully", out)
}

// ResolveInviteCode shows who owns an invite code
// @Summary Look up invite code
// @Description Returns the sponsor's display name for an active invite code
// @Tags Network
// @Produce json
// @Param code path string true "Invite code"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /network/invite/{code} [get]
func (h *NetworkHandler) ResolveInviteCode(c *fiber.Ctx) error {
	sponsor, err := h.inviteService.ResolveActiveCode(c.Context(), c.Params("code"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "", fiber.Map{
		"sponsor_name": sponsor.Name,
		"sponsor_city": sponsor.City,
	})
}

// Me returns the authenticated member
// @Summary Current member
// @Tags Network
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /network/me [get]
func (h *NetworkHandler) Me(c *fiber.Ctx) error {
	member, err := h.memberService.GetMember(c.Context(), middleware.MemberID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "", member.ToResponse())
}

// MyInviteCode returns the authenticated member's active invite code
// @Summary Current invite code
// @Tags Network
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /network/me/invite-code [get]
func (h *NetworkHandler) MyInviteCode(c *fiber.Ctx) error {
	code, err := h.inviteService.EnsureActiveCode(c.Context(), middleware.MemberID(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "", fiber.Map{"invite_code": code})
}

// Tree returns a bounded subtree view
// @Summary Downline tree
// @Description Breadth-first subtree rooted at root (default: caller), bounded by depth. Nodes listed in expand are opened one extra level.
// @Tags Network
// @Produce json
// @Security BearerAuth
// @Param root query int false "Root member id"
// @Param depth query int false "Depth"
// @Param expand query string false "Comma separated member ids to expand"
// @Success 200 {object} response.Response
// @Header 200 {integer} X-Tree-Depth "Depth actually applied"
// @Header 200 {integer} X-Tree-Max-Expanded "Most expand ids honoured"
// @Failure 403 {object} response.Response
// @Router /network/tree [get]
func (h *NetworkHandler) Tree(c *fiber.Ctx) error {
	viewer := middleware.MemberID(c)
	role := middleware.Role(c)

	rootID := viewer
	if q := c.Query("root"); q != "" {
		id, err := strconv.ParseUint(q, 10, 64)
		if err != nil {
			return response.BadRequest(c, "Invalid root")
		}
		rootID = uint(id)
	}

	if err := h.subtreeService.Authorize(c.Context(), viewer, role, rootID); err != nil {
		return response.FromError(c, err)
	}

	expanded, err := parseIDList(c.Query("expand"))
	if err != nil {
		return response.BadRequest(c, "Invalid expand list")
	}

	depth := h.subtreeService.ClampDepth(c.QueryInt("depth", 0), role.IsAdmin())
	limits := h.subtreeService.Limits()
	if len(expanded) > limits.MaxExpanded {
		expanded = expanded[:limits.MaxExpanded]
	}

	nodes, err := h.subtreeService.BoundedSubtree(c.Context(), services.SubtreeRequest{
		RootID:   rootID,
		MaxDepth: depth,
		Expanded: expanded,
		Admin:    role.IsAdmin(),
	})
	if err != nil {
		return response.FromError(c, err)
	}

	c.Set(HeaderTreeDepth, strconv.Itoa(depth))
	c.Set(HeaderTreeMaxExpanded, strconv.Itoa(limits.MaxExpanded))
	return response.Success(c, "", nodes)
}

// Member returns one member visible to the caller
// @Summary Member detail
// @Tags Network
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /network/members/{id} [get]
func (h *NetworkHandler) Member(c *fiber.Ctx) error {
	id, handled, err := authorizedTarget(c, h.subtreeService)
	if handled {
		return err
	}
	member, err := h.memberService.GetMember(c.Context(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "", member.ToResponse())
}

// Children returns the direct downline of a member
// @Summary Direct children
// @Tags Network
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /network/members/{id}/children [get]
func (h *NetworkHandler) Children(c *fiber.Ctx) error {
	id, handled, err := authorizedTarget(c, h.subtreeService)
	if handled {
		return err
	}
	nodes, err := h.subtreeService.DirectChildren(c.Context(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "", nodes)
}

// Stats returns downline counts of a member
// @Summary Network stats
// @Tags Network
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /network/members/{id}/stats [get]
func (h *NetworkHandler) Stats(c *fiber.Ctx) error {
	id, handled, err := authorizedTarget(c, h.subtreeService)
	if handled {
		return err
	}
	stats, err := h.subtreeService.Stats(c.Context(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "", stats)
}

// authorizedTarget parses :id and checks the caller may see it.
// When handled is true the response has been written and err must be returned.
func authorizedTarget(c *fiber.Ctx, subtree *services.SubtreeService) (target uint, handled bool, err error) {
	id, perr := c.ParamsInt("id")
	if perr != nil || id <= 0 {
		return 0, true, response.BadRequest(c, "Invalid member ID")
	}
	target = uint(id)

	if aerr := subtree.Authorize(c.Context(), middleware.MemberID(c), middleware.Role(c), target); aerr != nil {
		return 0, true, response.FromError(c, aerr)
	}
	return target, false, nil
}

// parseIDList parses "1,2,3"
func parseIDList(s string) ([]uint, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(v))
	}
	return ids, nil
}
