package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
	"github.com/aussiebroadwan/oidcgate/pkg/httpx"
)

var (
	ErrMissingClientID = errors.New("missing client_id")
	ErrUnknownClient   = errors.New("unknown client")
	ErrInvalidRequest  = errors.New("invalid_request")

	// ErrClientLookup wraps client registry faults other than not found.
	ErrClientLookup = errors.New("client lookup failed")
)

// ClientLookup resolves a client_id to its registration. store.Clients
// satisfies it.
type ClientLookup interface {
	GetClientByID(ctx context.Context, clientID string) (domain.Client, error)
}

// Parameters consumed into dedicated AuthorizationRequest fields. Everything
// else lands in Extensions.
var knownParameters = map[string]struct{}{
	"client_id":     {},
	"redirect_uri":  {},
	"response_type": {},
	"state":         {},
	"nonce":         {},
	"scope":         {},
	"prompt":        {},
	"max_age":       {},
	"acr_values":    {},
	"login_hint":    {},
}

// RequestBuilder turns raw query or form parameters into an
// AuthorizationRequest and resolves its client.
type RequestBuilder struct {
	Clients ClientLookup
}

type BuildResult struct {
	Request domain.AuthorizationRequest
	Raw     map[string]string
	Client  domain.Client
}

// Build is a pure transform plus one registry read. When a parameter repeats
// only its first value is used.
//
// Returns ErrMissingClientID, ErrUnknownClient, a wrapped ErrInvalidRequest
// for a malformed max_age, or the registry's own error wrapped in
// ErrClientLookup.
func (b *RequestBuilder) Build(ctx context.Context, params url.Values) (BuildResult, error) {
	raw := FirstValues(params)

	clientID := strings.TrimSpace(raw["client_id"])
	if clientID == "" {
		return BuildResult{}, ErrMissingClientID
	}

	req := domain.AuthorizationRequest{
		ClientID:     clientID,
		RedirectURI:  raw["redirect_uri"],
		ResponseType: raw["response_type"],
		State:        raw["state"],
		Nonce:        raw["nonce"],
		Scopes:       httpx.ParseSpaceDelimitedFields(raw["scope"]),
		Prompt:       httpx.ParseSpaceDelimitedFields(raw["prompt"]),
		ACRValues:    httpx.ParseSpaceDelimitedFields(raw["acr_values"]),
		LoginHint:    raw["login_hint"],
	}

	if v, ok := raw["max_age"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return BuildResult{}, fmt.Errorf("%w: max_age must be a non-negative integer", ErrInvalidRequest)
		}
		req.MaxAge = &n
	}

	for k, v := range raw {
		if _, known := knownParameters[k]; known {
			continue
		}
		if req.Extensions == nil {
			req.Extensions = make(map[string]string)
		}
		req.Extensions[k] = v
	}

	client, err := b.Clients.GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return BuildResult{}, ErrUnknownClient
		}
		return BuildResult{}, fmt.Errorf("%w: %w", ErrClientLookup, err)
	}

	return BuildResult{Request: req, Raw: raw, Client: client}, nil
}

// FirstValues flattens params keeping the first value of each key. Keys
// without values are dropped.
func FirstValues(params url.Values) map[string]string {
	out := make(map[string]string, len(params))
	for k, vs := range params {
		if len(vs) == 0 {
			continue
		}
		out[k] = vs[0]
	}
	return out
}
