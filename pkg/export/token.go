package export

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	tokenVersion = 1

	// TokenTTL is how long an issued export token stays valid.
	TokenTTL = 2 * time.Hour
)

// Scope is the request shape a capability token is bound to.
type Scope struct {
	Identity string
	Address  string
	From     int64
	To       int64
	MaxLimit int
}

type payload struct {
	Version  int    `json:"v"`
	Subject  string `json:"sub"`
	Address  string `json:"address"`
	From     int64  `json:"from"`
	To       int64  `json:"to"`
	MaxLimit int    `json:"max_limit"`
	Expiry   int64  `json:"exp"`
	Nonce    string `json:"nonce"`
}

// Reason classifies a verification rejection.
type Reason string

const (
	ReasonOK               Reason = ""
	ReasonMalformed        Reason = "malformed"
	ReasonBadSignature     Reason = "bad_signature"
	ReasonBadVersion       Reason = "unsupported_version"
	ReasonExpired          Reason = "expired"
	ReasonIdentityMismatch Reason = "identity_mismatch"
	ReasonAddressMismatch  Reason = "address_mismatch"
	ReasonRangeMismatch    Reason = "range_mismatch"
	ReasonLimitExceeded    Reason = "limit_exceeded"
)

// Signer issues and verifies self-contained export tokens. A token is
// base64url(payload) + "." + base64url(hmac-sha256(payload)); nothing
// about it is stored server-side.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Issue signs a token bound to the given scope, valid for TokenTTL.
func (s *Signer) Issue(scope Scope) (string, time.Time, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", time.Time{}, fmt.Errorf("generate nonce: %w", err)
	}

	expiresAt := s.now().Add(TokenTTL)
	raw, err := json.Marshal(payload{
		Version:  tokenVersion,
		Subject:  scope.Identity,
		Address:  scope.Address,
		From:     scope.From,
		To:       scope.To,
		MaxLimit: scope.MaxLimit,
		Expiry:   expiresAt.Unix(),
		Nonce:    hex.EncodeToString(nonce),
	})
	if err != nil {
		return "", time.Time{}, err
	}

	return encodeSegment(raw) + "." + encodeSegment(s.sign(raw)), expiresAt, nil
}

// Verify checks a token against the presented scope and limit. The
// signature comparison is constant-time; everything else is checked
// only after the signature holds.
func (s *Signer) Verify(token string, scope Scope, limit int) Reason {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return ReasonMalformed
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return ReasonMalformed
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ReasonMalformed
	}
	if !hmac.Equal(sig, s.sign(raw)) {
		return ReasonBadSignature
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ReasonMalformed
	}
	if p.Version != tokenVersion {
		return ReasonBadVersion
	}
	if p.Expiry <= 0 || !s.now().Before(time.Unix(p.Expiry, 0)) {
		return ReasonExpired
	}
	if p.Subject != scope.Identity {
		return ReasonIdentityMismatch
	}
	if p.Address != scope.Address {
		return ReasonAddressMismatch
	}
	if p.From != scope.From || p.To != scope.To {
		return ReasonRangeMismatch
	}
	if limit > p.MaxLimit {
		return ReasonLimitExceeded
	}
	return ReasonOK
}

func (s *Signer) sign(raw []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(raw)
	return mac.Sum(nil)
}

func encodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
