package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	DefaultCookieName = "roomchat_session"
	DefaultTTL        = 24 * time.Hour

	issuer  = "roomchat"
	keyInfo = "roomchat session signing key v1"
	keySize = 32
)

var (
	ErrNoBinding      = errors.New("no session binding")
	ErrInvalidBinding = errors.New("invalid session binding")
	ErrEmptySecret    = errors.New("session secret is required")
)

type claims struct {
	Room string `json:"room"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Codec stores a Binding client-side as an HS256-signed cookie, so a tampered
// cookie is rejected instead of trusted.
type Codec struct {
	key        []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

type CodecOptions struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

func NewCodec(opts CodecOptions) (*Codec, error) {
	if opts.Secret == "" {
		return nil, ErrEmptySecret
	}
	key, err := deriveKey(opts.Secret)
	if err != nil {
		return nil, err
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	return &Codec{
		key:        key,
		ttl:        opts.TTL,
		cookieName: opts.CookieName,
		secure:     opts.Secure,
		now:        time.Now,
	}, nil
}

// deriveKey stretches the configured secret, which is often a short
// human-chosen string, into a full-size HMAC key.
func deriveKey(secret string) ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return key, nil
}

func (c *Codec) Sign(b Binding) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Room: b.Room,
		Name: b.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
	return token.SignedString(c.key)
}

func (c *Codec) Parse(tokenString string) (Binding, error) {
	var cl claims
	token, err := jwt.ParseWithClaims(tokenString, &cl, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return Binding{}, fmt.Errorf("%w: %v", ErrInvalidBinding, err)
	}
	b := Binding{Room: cl.Room, Name: cl.Name}
	if !b.Valid() {
		return Binding{}, ErrInvalidBinding
	}
	return b, nil
}

// Write attaches the binding to the response as a cookie.
func (c *Codec) Write(w http.ResponseWriter, b Binding) error {
	token, err := c.Sign(b)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  c.now().Add(c.ttl),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns ErrNoBinding when the request carries no session cookie.
func (c *Codec) Read(r *http.Request) (Binding, error) {
	cookie, err := r.Cookie(c.cookieName)
	if err != nil || cookie.Value == "" {
		return Binding{}, ErrNoBinding
	}
	return c.Parse(cookie.Value)
}

// Clear expires the session cookie.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
