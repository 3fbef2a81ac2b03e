package defect

import "errors"

var (
	ErrAlreadyResolved = errors.New("defect is already resolved")
	ErrAlreadyOpen     = errors.New("defect is already open")
	ErrNotAuthorized   = errors.New("actor is not authorized for this operation")

	ErrStationHasDefects = errors.New("station still has defects assigned")
	ErrDuplicateStation  = errors.New("station name or code already in use")
	ErrDuplicateUser     = errors.New("username already in use")

	ErrAgentAlreadyRunning = errors.New("inspection agent is already running")
	ErrAgentNotRunning     = errors.New("inspection agent is not running")
)

// ErrInvalidInput marks validation failures rejected before any write.
var ErrInvalidInput = errors.New("invalid input")
