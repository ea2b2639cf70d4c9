package services

import (
	"context"
	"errors"

	"sponsornet/internal/adapters/persistence/models"
	"sponsornet/internal/adapters/persistence/repositories"
	"sponsornet/internal/core/domain"

	"gorm.io/gorm"
)

// SubtreeService enumerates downlines and answers access questions.
// Traversals follow live sponsor_id links, never the materialized path,
// so they stay correct while a path cascade is in flight.
type SubtreeService struct {
	memberRepo repositories.MemberRepository
	limits     TreeLimits
}

// NewSubtreeService creates a new subtree service
func NewSubtreeService(memberRepo repositories.MemberRepository, limits TreeLimits) *SubtreeService {
	if limits.MemberMaxDepth <= 0 {
		limits.MemberMaxDepth = DefaultTreeLimits.MemberMaxDepth
	}
	if limits.AdminMaxDepth <= 0 {
		limits.AdminMaxDepth = DefaultTreeLimits.AdminMaxDepth
	}
	if limits.DefaultDepth <= 0 {
		limits.DefaultDepth = DefaultTreeLimits.DefaultDepth
	}
	if limits.MaxExpanded <= 0 {
		limits.MaxExpanded = DefaultTreeLimits.MaxExpanded
	}
	return &SubtreeService{memberRepo: memberRepo, limits: limits}
}

// Limits returns the effective limits
func (s *SubtreeService) Limits() TreeLimits {
	return s.limits
}

// DownlineIDs returns every strict descendant of rootID in breadth-first order
func (s *SubtreeService) DownlineIDs(ctx context.Context, rootID uint) ([]uint, error) {
	if _, err := s.memberRepo.GetByID(ctx, rootID); err != nil {
		return nil, notFound(err, domain.ErrMemberNotFound)
	}
	return downlineIDs(ctx, s.memberRepo, rootID)
}

// downlineIDs walks the tree level by level from rootID using repo.
// rootID itself is never part of the result, even if the data holds a cycle.
func downlineIDs(ctx context.Context, repo repositories.MemberRepository, rootID uint) ([]uint, error) {
	visited := map[uint]bool{rootID: true}
	var result []uint

	frontier := []uint{rootID}
	for len(frontier) > 0 {
		children, err := repo.ChildIDsOf(ctx, frontier)
		if err != nil {
			return nil, err
		}
		next := make([]uint, 0, len(children))
		for _, id := range children {
			if visited[id] {
				continue
			}
			visited[id] = true
			result = append(result, id)
			next = append(next, id)
		}
		frontier = next
	}
	return result, nil
}

// IsInDownline reports whether candidateID is a strict descendant of rootID.
// Uses the candidate's materialized path. A missing candidate is in nobody's downline.
func (s *SubtreeService) IsInDownline(ctx context.Context, rootID, candidateID uint) (bool, error) {
	if rootID == candidateID {
		return false, nil
	}
	candidate, err := s.memberRepo.GetByID(ctx, candidateID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return candidate.HasAncestor(rootID), nil
}

// CanAccess is true iff viewer == target or target is in viewer's downline
func (s *SubtreeService) CanAccess(ctx context.Context, viewerID, targetID uint) (bool, error) {
	if viewerID == targetID {
		return true, nil
	}
	return s.IsInDownline(ctx, viewerID, targetID)
}

// Authorize returns ErrForbidden unless the viewer may see target.
// Administrators bypass the check.
func (s *SubtreeService) Authorize(ctx context.Context, viewerID uint, viewerRole domain.Role, targetID uint) error {
	if viewerRole.IsAdmin() {
		return nil
	}
	ok, err := s.CanAccess(ctx, viewerID, targetID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

// ClampDepth bounds a requested depth to the caller's ceiling.
// Non-positive requests get the default depth.
func (s *SubtreeService) ClampDepth(depth int, admin bool) int {
	ceiling := s.limits.MemberMaxDepth
	if admin {
		ceiling = s.limits.AdminMaxDepth
	}
	if depth <= 0 {
		depth = s.limits.DefaultDepth
	}
	if depth > ceiling {
		depth = ceiling
	}
	return depth
}

// SubtreeRequest describes a bounded subtree view
type SubtreeRequest struct {
	RootID   uint
	MaxDepth int
	Expanded []uint
	Admin    bool
}

// BoundedSubtree returns a flat, breadth-first node list rooted at req.RootID.
// Levels beyond the clamped depth are only followed below parents listed in req.Expanded.
func (s *SubtreeService) BoundedSubtree(ctx context.Context, req SubtreeRequest) ([]domain.TreeNode, error) {
	root, err := s.memberRepo.GetByID(ctx, req.RootID)
	if err != nil {
		return nil, notFound(err, domain.ErrMemberNotFound)
	}

	maxDepth := s.ClampDepth(req.MaxDepth, req.Admin)

	expanded := make(map[uint]bool, len(req.Expanded))
	for i, id := range req.Expanded {
		if i >= s.limits.MaxExpanded {
			break
		}
		expanded[id] = true
	}

	nodes := []domain.TreeNode{toTreeNode(root, nil, 0)}
	visited := map[uint]bool{root.ID: true}

	frontier := []*models.Member{root}
	for depth := 1; len(frontier) > 0; depth++ {
		parents := make([]uint, 0, len(frontier))
		for _, m := range frontier {
			if depth <= maxDepth || expanded[m.ID] {
				parents = append(parents, m.ID)
			}
		}
		if len(parents) == 0 {
			break
		}

		children, err := s.memberRepo.ListChildrenOf(ctx, parents)
		if err != nil {
			return nil, err
		}

		next := make([]*models.Member, 0, len(children))
		for _, c := range children {
			if visited[c.ID] {
				continue
			}
			visited[c.ID] = true
			parentID := *c.SponsorID
			nodes = append(nodes, toTreeNode(c, &parentID, depth))
			next = append(next, c)
		}
		frontier = next
	}

	if err := s.fillChildrenCounts(ctx, nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// DirectChildren returns one level below memberID
func (s *SubtreeService) DirectChildren(ctx context.Context, memberID uint) ([]domain.TreeNode, error) {
	if _, err := s.memberRepo.GetByID(ctx, memberID); err != nil {
		return nil, notFound(err, domain.ErrMemberNotFound)
	}

	children, err := s.memberRepo.ListChildren(ctx, memberID)
	if err != nil {
		return nil, err
	}

	parentID := memberID
	nodes := make([]domain.TreeNode, 0, len(children))
	for _, c := range children {
		nodes = append(nodes, toTreeNode(c, &parentID, 1))
	}

	if err := s.fillChildrenCounts(ctx, nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Stats summarises a member's network
func (s *SubtreeService) Stats(ctx context.Context, memberID uint) (*domain.NetworkStats, error) {
	ids, err := s.DownlineIDs(ctx, memberID)
	if err != nil {
		return nil, err
	}

	direct, err := s.memberRepo.CountChildren(ctx, memberID)
	if err != nil {
		return nil, err
	}

	active, err := s.memberRepo.CountActiveIn(ctx, ids)
	if err != nil {
		return nil, err
	}

	return &domain.NetworkStats{
		MemberID:       memberID,
		DirectCount:    direct,
		DownlineCount:  len(ids),
		ActiveDownline: int(active),
	}, nil
}

func (s *SubtreeService) fillChildrenCounts(ctx context.Context, nodes []domain.TreeNode) error {
	if len(nodes) == 0 {
		return nil
	}
	ids := make([]uint, len(nodes))
	for i := range nodes {
		ids[i] = nodes[i].ID
	}
	counts, err := s.memberRepo.CountChildrenByParent(ctx, ids)
	if err != nil {
		return err
	}
	for i := range nodes {
		nodes[i].ChildrenCount = counts[nodes[i].ID]
	}
	return nil
}

func toTreeNode(m *models.Member, parentID *uint, depth int) domain.TreeNode {
	return domain.TreeNode{
		ID:       m.ID,
		ParentID: parentID,
		Depth:    depth,
		Name:     m.Name,
		Role:     domain.Role(m.Role),
		City:     m.City,
		Status:   domain.Status(m.Status),
	}
}
