// Package token mints and verifies the capability tokens that gate every
// interview surface. All tokens are HS256 JWTs sharing one signing secret;
// the audience claim selects the surface a token may touch and, for
// session-bound tokens, the sid claim pins it to one session.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
)

// Audience names one token surface.
type Audience string

const (
	AudienceUser    Audience = "user"      // long-lived identity token
	AudienceSession Audience = "session"   // HttpOnly cookie
	AudienceIST     Audience = "ist"       // interview API
	AudienceWST     Audience = "wst"       // per-session WebSocket stream
	AudienceAIPT    Audience = "aipt"      // AI proxy calls
	AudienceUPT     Audience = "upt"       // one-shot media upload
	AudienceACET    Audience = "acet"      // anti-cheat event submission
)

// Sentinel verification failures. The gateway maps each to one taxonomy kind.
var (
	ErrMissing       = errors.New("token missing")
	ErrInvalid       = errors.New("token invalid")
	ErrExpired       = errors.New("token expired")
	ErrWrongAudience = errors.New("token audience mismatch")
	ErrWrongSession  = errors.New("token bound to another session")
	ErrWrongGen      = errors.New("token generation superseded")
	ErrAlreadyUsed   = errors.New("token already used")
)

// Claims is the verified content of a capability token.
type Claims struct {
	Subject    string   // user id
	Audience   Audience
	SessionID  string   // empty for user/session tokens
	Scopes     []string
	Generation int // token generation embedded at mint time (aipt/upt)
	JTI        string
	ExpiresAt  time.Time
}

type customClaims struct {
	SessionID  string   `json:"sid,omitempty"`
	Scopes     []string `json:"scopes,omitempty"`
	Generation int      `json:"gen,omitempty"`
}

// TTLs configures per-audience lifetimes.
type TTLs struct {
	User    time.Duration
	Session time.Duration
	IST     time.Duration
	WST     time.Duration
	AIPT    time.Duration
	UPT     time.Duration
	ACET    time.Duration
}

// DefaultTTLs returns the production defaults.
func DefaultTTLs() TTLs {
	return TTLs{
		User:    24 * time.Hour,
		Session: 24 * time.Hour,
		IST:     15 * time.Minute,
		WST:     15 * time.Minute,
		AIPT:    15 * time.Minute,
		UPT:     15 * time.Minute,
		ACET:    15 * time.Minute,
	}
}

// Authority mints and verifies tokens with one shared HS256 secret.
type Authority struct {
	signer jose.Signer
	secret []byte
	issuer string
	ttls   TTLs
	now    func() time.Time
}

// NewAuthority builds an Authority. The secret must be at least 32 bytes.
func NewAuthority(secret []byte, issuer string, ttls TTLs) (*Authority, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("signing secret too short: %d bytes", len(secret))
	}
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("building signer: %w", err)
	}
	return &Authority{signer: sig, secret: secret, issuer: issuer, ttls: ttls, now: time.Now}, nil
}

// MintSpec describes a token to mint.
type MintSpec struct {
	Subject    string
	Audience   Audience
	SessionID  string
	Scopes     []string
	Generation int
}

func (a *Authority) ttlFor(aud Audience) time.Duration {
	switch aud {
	case AudienceUser:
		return a.ttls.User
	case AudienceSession:
		return a.ttls.Session
	case AudienceIST:
		return a.ttls.IST
	case AudienceWST:
		return a.ttls.WST
	case AudienceAIPT:
		return a.ttls.AIPT
	case AudienceUPT:
		return a.ttls.UPT
	case AudienceACET:
		return a.ttls.ACET
	}
	return 15 * time.Minute
}

// Mint signs a fresh token. Every mint gets a new jti; refreshing a token
// never extends an old one.
func (a *Authority) Mint(spec MintSpec) (string, Claims, error) {
	now := a.now().UTC()
	exp := now.Add(a.ttlFor(spec.Audience))
	jti := uuid.NewString()

	std := jwt.Claims{
		Issuer:   a.issuer,
		Subject:  spec.Subject,
		Audience: jwt.Audience{string(spec.Audience)},
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(exp),
		ID:       jti,
	}
	custom := customClaims{
		SessionID:  spec.SessionID,
		Scopes:     spec.Scopes,
		Generation: spec.Generation,
	}

	raw, err := jwt.Signed(a.signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", Claims{}, fmt.Errorf("signing token: %w", err)
	}
	return raw, Claims{
		Subject:    spec.Subject,
		Audience:   spec.Audience,
		SessionID:  spec.SessionID,
		Scopes:     spec.Scopes,
		Generation: spec.Generation,
		JTI:        jti,
		ExpiresAt:  exp,
	}, nil
}

// Verify checks the signature, expiry, and audience of raw. sessionID, when
// non-empty, must match the token's sid binding.
func (a *Authority) Verify(raw string, want Audience, sessionID string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrMissing
	}
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var std jwt.Claims
	var custom customClaims
	if err := tok.Claims(a.secret, &std, &custom); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := std.Validate(jwt.Expected{Issuer: a.issuer, Time: a.now().UTC()}); err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !std.Audience.Contains(string(want)) {
		return Claims{}, ErrWrongAudience
	}
	if sessionID != "" && custom.SessionID != sessionID {
		return Claims{}, ErrWrongSession
	}

	var exp time.Time
	if std.Expiry != nil {
		exp = std.Expiry.Time()
	}
	return Claims{
		Subject:    std.Subject,
		Audience:   want,
		SessionID:  custom.SessionID,
		Scopes:     custom.Scopes,
		Generation: custom.Generation,
		JTI:        std.ID,
		ExpiresAt:  exp,
	}, nil
}
