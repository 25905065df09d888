package domain

import (
	"slices"
	"time"
)

type SubjectType string

const (
	SubjectTypePublic   SubjectType = "public"
	SubjectTypePairwise SubjectType = "pairwise"
)

// Client is a registered relying party as seen by the gate. It is read-only
// for the lifetime of an interaction.
type Client struct {
	ClientID      string      `json:"client_id"`
	Name          string      `json:"name,omitempty"`
	DefaultMaxAge *int        `json:"default_max_age,omitempty"`
	RedirectURIs  []string    `json:"redirect_uris"`
	SubjectType   SubjectType `json:"subject_type"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// HasRedirectURI reports an exact match against the registered URIs.
func (c Client) HasRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}
