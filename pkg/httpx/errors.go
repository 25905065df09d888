package httpx

import (
	"fmt"
	"net/http"
)

// OAuth2 error codes (RFC 6749, OIDC Core 3.1.2.6).
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidClient  = "invalid_client"
	ErrorCodeInvalidGrant   = "invalid_grant"
	ErrorCodeServerError    = "server_error"
	ErrorCodeLoginRequired  = "login_required"
	ErrorCodeAccessDenied   = "access_denied"
)

// OAuth2Error is the JSON error body shared by the API endpoints.
type OAuth2Error struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes e as the response.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	WriteJSON(w, e.StatusCode, e)
}

func NewOAuth2Error(status int, code, description string) *OAuth2Error {
	return &OAuth2Error{StatusCode: status, Code: code, Description: description}
}

var (
	ErrInvalidRequest = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest,
		"the request is malformed or missing required parameters")
	ErrInvalidFormBody = NewOAuth2Error(http.StatusBadRequest, ErrorCodeInvalidRequest,
		"the request body could not be parsed")
	ErrInvalidCredentials = NewOAuth2Error(http.StatusUnauthorized, ErrorCodeInvalidGrant,
		"invalid username or password")
	ErrServerError = NewOAuth2Error(http.StatusInternalServerError, ErrorCodeServerError,
		"the server encountered an unexpected condition")
)
