package domain

import "time"

// Role represents a member's tier in the network.
// Tiers are ordered; Rank() gives the display order.
type Role string

const (
	RoleAssociate       Role = "ASSOCIATE"
	RoleSeniorAssociate Role = "SENIOR_ASSOCIATE"
	RoleManager         Role = "MANAGER"
	RoleSeniorManager   Role = "SENIOR_MANAGER"
	RoleDirector        Role = "DIRECTOR"
	RoleAdmin           Role = "ADMIN"
)

// roleRanks holds the fixed tier order, lowest first
var roleRanks = map[Role]int{
	RoleAssociate:       1,
	RoleSeniorAssociate: 2,
	RoleManager:         3,
	RoleSeniorManager:   4,
	RoleDirector:        5,
	RoleAdmin:           6,
}

// Rank returns the tier position (0 for unknown roles)
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// IsAdmin returns true for administrators
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Status governs whether a member may sponsor and whether it counts as active
type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusSuspended   Status = "SUSPENDED"
	StatusDeactivated Status = "DEACTIVATED"
	StatusPending     Status = "PENDING"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusDeactivated, StatusPending:
		return true
	}
	return false
}

// EarningStatus is the ledger row status. It only ever moves forward.
type EarningStatus string

const (
	EarningPending  EarningStatus = "PENDING"
	EarningApproved EarningStatus = "APPROVED"
	EarningPaid     EarningStatus = "PAID"
)

// TreeNode is one entry of a bounded subtree view
type TreeNode struct {
	ID            uint   `json:"id"`
	ParentID      *uint  `json:"parent_id"`
	Depth         int    `json:"depth"`
	Name          string `json:"name"`
	Role          Role   `json:"role"`
	City          string `json:"city"`
	Status        Status `json:"status"`
	ChildrenCount int64  `json:"children_count"`
}

// ViolationKind names the broken tree invariant
type ViolationKind string

const (
	// ViolationAncestry: path != sponsor.path + [sponsor.id]
	ViolationAncestry ViolationKind = "ANCESTRY"
	// ViolationRootedness: no sponsor but non-empty path
	ViolationRootedness ViolationKind = "ROOTEDNESS"
	// ViolationCycle: member id appears in its own path
	ViolationCycle ViolationKind = "CYCLE"
	// ViolationDanglingSponsor: sponsor id does not resolve to a member
	ViolationDanglingSponsor ViolationKind = "DANGLING_SPONSOR"
)

// Violation is a single consistency problem found by the checker
type Violation struct {
	MemberID     uint          `json:"member_id"`
	Kind         ViolationKind `json:"kind"`
	ExpectedPath []uint        `json:"expected_path,omitempty"`
	ActualPath   []uint        `json:"actual_path"`
}

// ConsistencyReport is the result of a full scan
type ConsistencyReport struct {
	Checked    int64       `json:"checked"`
	Violations []Violation `json:"violations"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// OK returns true when no violations were found
func (r *ConsistencyReport) OK() bool {
	return len(r.Violations) == 0
}

// NetworkStats summarises a member's downline
type NetworkStats struct {
	MemberID       uint  `json:"member_id"`
	DirectCount    int64 `json:"direct_count"`
	DownlineCount  int   `json:"downline_count"`
	ActiveDownline int   `json:"active_downline"`
}

// Audit actions
const (
	ActionReassignSponsor = "member.reassign_sponsor"
	ActionStatusChange    = "member.status_change"
	ActionRoleChange      = "member.role_change"
	ActionCodeConsumed    = "invite_code.consumed"
	ActionMemberDeleted   = "member.deleted"
	ActionMemberJoined    = "member.joined"
	ActionPathRecompute   = "member.path_recompute"
)

// AuditEvent is written to the external append-only audit log
type AuditEvent struct {
	ActorID    uint                   `json:"actor_id"`
	Action     string                 `json:"action"`
	EntityID   uint                   `json:"entity_id"`
	Before     map[string]interface{} `json:"before,omitempty"`
	After      map[string]interface{} `json:"after,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}
