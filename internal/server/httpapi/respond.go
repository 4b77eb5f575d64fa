package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ankravcenko/medikeep/internal/common"
)

// errorBody is the JSON error envelope. Code is a stable machine-readable
// string clients map back onto their sentinel errors.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError maps a service error onto an HTTP status and wire code.
// Unknown errors become an opaque 500 so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal"
	msg := err.Error()

	switch {
	case errors.Is(err, common.ErrInvitationNotFound):
		status, code = http.StatusNotFound, "invitation_not_found"
	case errors.Is(err, common.ErrTokenMismatch):
		status, code = http.StatusForbidden, "token_mismatch"
	case errors.Is(err, common.ErrInvitationExpired):
		status, code = http.StatusGone, "invitation_expired"
	case errors.Is(err, common.ErrAlreadyAccepted):
		status, code = http.StatusConflict, "already_accepted"
	case errors.Is(err, common.ErrInvitationCanceled):
		status, code = http.StatusGone, "invitation_canceled"
	case errors.Is(err, common.ErrOwnerRoleNotGrantable):
		status, code = http.StatusUnprocessableEntity, "owner_role"
	case errors.Is(err, common.ErrPermissionDenied):
		status, code = http.StatusForbidden, "permission_denied"
	case errors.Is(err, common.ErrLoginAlreadyExists):
		status, code = http.StatusConflict, "login_exists"
	case errors.Is(err, common.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrorUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrorNotFound):
		status, code = http.StatusNotFound, "not_found"
	}

	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Code: code, Message: msg})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Code: "bad_request", Message: msg})
}
