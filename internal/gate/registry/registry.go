// Package registry seeds clients and login users from a YAML file.
package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aussiebroadwan/oidcgate/internal/gate/domain"
	"github.com/aussiebroadwan/oidcgate/internal/gate/store"
)

var ErrInvalidRegistry = errors.New("registry: invalid entry")

// File is the registry document.
//
//	clients:
//	  - client_id: c1
//	    redirect_uris: [https://rp.example/cb]
//	    default_max_age: 3600
//	users:
//	  - username: alice
//	    subject: 01J...
//	    password_hash: $argon2id$...
type File struct {
	Clients []ClientEntry `yaml:"clients"`
	Users   []UserEntry   `yaml:"users"`
}

type ClientEntry struct {
	ClientID      string   `yaml:"client_id"`
	Name          string   `yaml:"name"`
	RedirectURIs  []string `yaml:"redirect_uris"`
	DefaultMaxAge *int     `yaml:"default_max_age"`
	SubjectType   string   `yaml:"subject_type"`
}

type UserEntry struct {
	Username     string `yaml:"username"`
	Subject      string `yaml:"subject"`
	PasswordHash string `yaml:"password_hash"`
}

// Load reads and validates the registry at path. Unknown keys are rejected.
func Load(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read registry: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a registry document.
func Parse(b []byte) (File, error) {
	var f File

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("parse registry: %w", err)
	}

	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func (f File) Validate() error {
	seen := make(map[string]struct{}, len(f.Clients))
	for i, c := range f.Clients {
		if strings.TrimSpace(c.ClientID) == "" {
			return fmt.Errorf("%w: clients[%d]: client_id is required", ErrInvalidRegistry, i)
		}
		if _, dup := seen[c.ClientID]; dup {
			return fmt.Errorf("%w: clients[%d]: duplicate client_id %q", ErrInvalidRegistry, i, c.ClientID)
		}
		seen[c.ClientID] = struct{}{}

		if len(c.RedirectURIs) == 0 {
			return fmt.Errorf("%w: client %q: at least one redirect_uri is required", ErrInvalidRegistry, c.ClientID)
		}
		for _, raw := range c.RedirectURIs {
			if err := validateRedirectURI(raw); err != nil {
				return fmt.Errorf("%w: client %q: %w", ErrInvalidRegistry, c.ClientID, err)
			}
		}

		if c.DefaultMaxAge != nil && *c.DefaultMaxAge < 0 {
			return fmt.Errorf("%w: client %q: default_max_age must not be negative", ErrInvalidRegistry, c.ClientID)
		}

		switch domain.SubjectType(c.SubjectType) {
		case "", domain.SubjectTypePublic, domain.SubjectTypePairwise:
		default:
			return fmt.Errorf("%w: client %q: unknown subject_type %q", ErrInvalidRegistry, c.ClientID, c.SubjectType)
		}
	}

	for i, u := range f.Users {
		if strings.TrimSpace(u.Username) == "" || strings.TrimSpace(u.Subject) == "" {
			return fmt.Errorf("%w: users[%d]: username and subject are required", ErrInvalidRegistry, i)
		}
		if !strings.HasPrefix(u.PasswordHash, "$argon2id$") {
			return fmt.Errorf("%w: user %q: password_hash must be an argon2id hash", ErrInvalidRegistry, u.Username)
		}
	}
	return nil
}

func validateRedirectURI(raw string) error {
	if strings.ContainsAny(raw, " \t\r\n") {
		return fmt.Errorf("redirect_uri %q contains whitespace", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("redirect_uri %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("redirect_uri %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("redirect_uri %q must be absolute", raw)
	}
	if u.Fragment != "" {
		return fmt.Errorf("redirect_uri %q must not contain a fragment", raw)
	}
	return nil
}

// DomainClients converts the entries into domain clients.
func (f File) DomainClients() []domain.Client {
	out := make([]domain.Client, 0, len(f.Clients))
	for _, c := range f.Clients {
		st := domain.SubjectType(c.SubjectType)
		if st == "" {
			st = domain.SubjectTypePublic
		}
		out = append(out, domain.Client{
			ClientID:      c.ClientID,
			Name:          c.Name,
			RedirectURIs:  append([]string(nil), c.RedirectURIs...),
			DefaultMaxAge: c.DefaultMaxAge,
			SubjectType:   st,
		})
	}
	return out
}

// Apply upserts every entry into st.
func (f File) Apply(ctx context.Context, st store.Store) error {
	for _, c := range f.DomainClients() {
		if err := st.Clients().UpsertClient(ctx, c); err != nil {
			return fmt.Errorf("upsert client %q: %w", c.ClientID, err)
		}
	}
	for _, u := range f.Users {
		user := domain.User{Username: u.Username, Subject: u.Subject, PasswordHash: u.PasswordHash}
		if err := st.Users().UpsertUser(ctx, user); err != nil {
			return fmt.Errorf("upsert user %q: %w", u.Username, err)
		}
	}
	return nil
}
