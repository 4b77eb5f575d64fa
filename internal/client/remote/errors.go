package remote

import (
	"errors"
	"fmt"

	"github.com/ankravcenko/medikeep/internal/common"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// apiError is the backend's JSON error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeAPIError maps a backend error code onto the shared sentinel set so
// that callers can errors.Is across the network boundary. Unknown codes are
// wrapped generically, never swallowed.
func decodeAPIError(status int, body apiError) error {
	switch body.Code {
	case "invitation_not_found":
		return common.ErrInvitationNotFound
	case "token_mismatch":
		return common.ErrTokenMismatch
	case "invitation_expired":
		return common.ErrInvitationExpired
	case "already_accepted":
		return common.ErrAlreadyAccepted
	case "invitation_canceled":
		return common.ErrInvitationCanceled
	case "owner_role":
		return common.ErrOwnerRoleNotGrantable
	case "permission_denied":
		return common.ErrPermissionDenied
	case "login_exists":
		return common.ErrLoginAlreadyExists
	case "invalid_credentials":
		return common.ErrInvalidCredentials
	case "not_found":
		return common.ErrorNotFound
	case "unauthorized":
		return ErrUnauthorized
	}
	if status == 401 {
		return ErrUnauthorized
	}
	return fmt.Errorf("backend error (%d): %s", status, body.Message)
}
