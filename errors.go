package accesscontrol

import "errors"

// Custom errors
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrProtectedAssignment   = errors.New("assignment is protected and cannot be revoked")
	ErrRoleNotCombinable     = errors.New("role cannot be combined with an existing assignment")
	ErrScopeExceedsIntrinsic = errors.New("granted scope exceeds the permission's intrinsic scope")
)
