// Package transloadit builds signed assembly authorizations for the browser
// uploader and decodes the notifications Transloadit posts back when an
// assembly finishes.
package transloadit

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

// ExpiresLayout is the timestamp format Transloadit expects in auth.expires.
const ExpiresLayout = "2006/01/02 15:04:05+00:00"

// DefaultTTL is how long a signed authorization stays valid.
const DefaultTTL = time.Hour

const signatureAlgorithm = "sha384"

// Credentials are the account key/secret pair.
type Credentials struct {
	Key    string
	Secret string
}

// Field order here is the wire order; the signature covers these exact bytes.
type authBlock struct {
	Key     string `json:"key"`
	Expires string `json:"expires"`
}

type params struct {
	Auth       authBlock `json:"auth"`
	TemplateID string    `json:"template_id"`
	NotifyURL  string    `json:"notify_url"`
}

// Authorization is handed to the page verbatim: Params must be embedded
// without escaping so the uploader re-sends the same bytes.
type Authorization struct {
	Params    string
	Signature string
	Expires   time.Time
}

// Signer produces authorizations for a single template.
type Signer struct {
	creds      Credentials
	templateID string
	ttl        time.Duration
	now        func() time.Time
}

func NewSigner(creds Credentials, templateID string) *Signer {
	return &Signer{
		creds:      creds,
		templateID: templateID,
		ttl:        DefaultTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

// Authorize signs an assembly request that reports back to notifyURL.
func (s *Signer) Authorize(notifyURL string) (*Authorization, error) {
	return BuildAuthorization(s.creds, s.templateID, notifyURL, s.now().Add(s.ttl))
}

// BuildAuthorization serializes the canonical params structure and signs it
// with HMAC-SHA384.
func BuildAuthorization(creds Credentials, templateID, notifyURL string, expires time.Time) (*Authorization, error) {
	if creds.Key == "" || creds.Secret == "" {
		return nil, errors.New("transloadit: key and secret are required")
	}

	expires = expires.UTC()
	msg, err := encodeParams(params{
		Auth: authBlock{
			Key:     creds.Key,
			Expires: expires.Format(ExpiresLayout),
		},
		TemplateID: templateID,
		NotifyURL:  notifyURL,
	})
	if err != nil {
		return nil, err
	}

	return &Authorization{
		Params:    string(msg),
		Signature: signatureAlgorithm + ":" + Sign(creds.Secret, msg),
		Expires:   expires,
	}, nil
}

// Sign returns the lowercase hex HMAC-SHA384 of msg.
func Sign(secret string, msg []byte) string {
	mac := hmac.New(sha512.New384, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

// encodeParams emits compact JSON without HTML escaping, so URLs with & or <
// are kept as-is.
func encodeParams(p params) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
