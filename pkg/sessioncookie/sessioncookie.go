// Package sessioncookie signs and verifies the browser session cookie. The
// cookie value is a compact HS256 JWT whose subject is the session id; the
// session record itself stays server side.
package sessioncookie

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidCookie = errors.New("sessioncookie: invalid session cookie")

// Codec mints and reads session cookies.
type Codec struct {
	Name     string
	Secret   []byte
	Issuer   string
	TTL      time.Duration
	Secure   bool
	Path     string
	SameSite http.SameSite

	// Now is overridable in tests.
	Now func() time.Time
}

func (c *Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Encode returns the signed cookie value for sessionID.
func (c *Codec) Encode(sessionID string) (string, error) {
	if len(c.Secret) == 0 {
		return "", errors.New("sessioncookie: empty secret")
	}

	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    c.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.Secret)
	if err != nil {
		return "", fmt.Errorf("sessioncookie: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies value and returns the session id it carries.
func (c *Codec) Decode(value string) (string, error) {
	var claims jwt.RegisteredClaims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.Issuer))
	}

	_, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (any, error) {
		return c.Secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidCookie
	}
	return claims.Subject, nil
}

// Read returns the session id from r's cookie.
func (c *Codec) Read(r *http.Request) (string, error) {
	ck, err := r.Cookie(c.Name)
	if err != nil {
		return "", ErrInvalidCookie
	}
	return c.Decode(ck.Value)
}

// Write sets the cookie for sessionID on w.
func (c *Codec) Write(w http.ResponseWriter, sessionID string) error {
	value, err := c.Encode(sessionID)
	if err != nil {
		return err
	}

	path := c.Path
	if path == "" {
		path = "/"
	}
	sameSite := c.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     path,
		MaxAge:   int(c.TTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: sameSite,
	})
	return nil
}

// Clear expires the cookie on w.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
	})
}
