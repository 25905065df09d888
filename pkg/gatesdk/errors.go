package gatesdk

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/oidcgate/pkg/httpx"
)

// parseErrorResponse turns a non-2xx response into an *httpx.OAuth2Error.
// Plain-text bodies become the description with an empty code.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp httpx.OAuth2Error
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Code != "" {
		errResp.StatusCode = resp.StatusCode
		return &errResp
	}

	return &httpx.OAuth2Error{
		StatusCode:  resp.StatusCode,
		Description: strings.TrimSpace(string(body)),
	}
}
