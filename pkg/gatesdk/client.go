package gatesdk

import (
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// DefaultAuthorizePath is where the gate intercepts authorization requests
// unless configured otherwise.
const DefaultAuthorizePath = "/profile/oidc/authorize"

// SDKClient talks to the gate as a single browser would.
type SDKClient struct {
	BaseURL       string
	AuthorizePath string
	HTTPClient    *http.Client
}

// NewSDKClient creates a client with its own cookie jar. Redirects are
// returned to the caller instead of being followed.
func NewSDKClient(baseURL string) *SDKClient {
	jar, _ := cookiejar.New(nil)

	return &SDKClient{
		BaseURL:       strings.TrimSuffix(baseURL, "/"),
		AuthorizePath: DefaultAuthorizePath,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}
