package defect

// Role determines which lifecycle transitions an actor may perform.
type Role string

const (
	RoleAdmin         Role = "Admin"
	RoleStationMaster Role = "StationMaster"
)

// Actor is the authenticated identity a lifecycle operation runs as. A
// StationMaster carries exactly one station binding; an Admin carries none.
type Actor struct {
	UserID    uint64
	Role      Role
	StationID *uint64
}

// CanResolve reports whether the actor may resolve a defect assigned to the
// given station. Admins are exempt from the station scope check.
func (a Actor) CanResolve(assignedStationID *uint64) bool {
	if a.Role == RoleAdmin {
		return true
	}
	if a.Role != RoleStationMaster {
		return false
	}
	if a.StationID == nil || assignedStationID == nil {
		return false
	}
	return *a.StationID == *assignedStationID
}

// IsAdmin gates reopen, deletion, station CRUD and agent control.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
