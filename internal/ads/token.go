package ads

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "fitness-web"
	tokenAudience = "ad-click"

	// DefaultTokenTTL bounds how long a rendered banner link stays valid.
	DefaultTokenTTL = 24 * time.Hour
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// claim checks.
var ErrInvalidToken = errors.New("invalid ad click token")

// ClickClaims binds an advertisement id (subject) to its target URL.
type ClickClaims struct {
	Target string `json:"tgt"`
	jwt.RegisteredClaims
}

// Click is a verified click: the ad to record and where to send the browser.
type Click struct {
	AdID   uint
	Target string
}

// Signer issues and verifies HS256 click tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a Signer over secret. A zero ttl means DefaultTokenTTL.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("ads: empty signing secret")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Sign returns the token for a click on ad id leading to target.
func (s *Signer) Sign(id uint, target string) (string, error) {
	now := s.now()
	claims := ClickClaims{
		Target: target,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks a token and returns the click it encodes.
func (s *Signer) Verify(raw string) (Click, error) {
	var claims ClickClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return Click{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 || claims.Target == "" {
		return Click{}, ErrInvalidToken
	}
	return Click{AdID: uint(id), Target: claims.Target}, nil
}
