package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// minKeyBytes is the smallest HS256 key accepted (256 bits).
const minKeyBytes = 32

const (
	claimSubject   = "sub"
	claimID        = "jti"
	claimEmail     = "email"
	claimUserID    = "uid"
	claimRoles     = "roles"
	claimIssuer    = "iss"
	claimAudience  = "aud"
	claimIssuedAt  = "iat"
	claimExpires   = "exp"
	claimNotBefore = "nbf"
)

var reservedClaims = map[string]struct{}{
	claimSubject: {}, claimID: {}, claimEmail: {}, claimUserID: {}, claimRoles: {},
	claimIssuer: {}, claimAudience: {}, claimIssuedAt: {}, claimExpires: {}, claimNotBefore: {},
}

// SigningConfig holds the process-wide token settings. It is read-only after
// the issuer is constructed.
type SigningConfig struct {
	Key            string
	Issuer         string
	Audience       string
	DurationInDays float64
}

// TokenIssuer mints HS256 JWTs carrying identity and role claims.
type TokenIssuer struct {
	key      []byte
	issuer   string
	audience string
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenIssuer validates cfg and returns an issuer. A key shorter than 256
// bits is rejected here so that IssueToken never fails on configuration.
func NewTokenIssuer(cfg SigningConfig) (*TokenIssuer, error) {
	if len(cfg.Key) < minKeyBytes {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", domain.ErrInvalidSigningKey, minKeyBytes, len(cfg.Key))
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("token issuer: issuer and audience are required")
	}
	if cfg.DurationInDays <= 0 {
		return nil, errors.New("token issuer: lifetime must be positive")
	}
	return &TokenIssuer{
		key:      []byte(cfg.Key),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		lifetime: time.Duration(cfg.DurationInDays * float64(24*time.Hour)),
		now:      time.Now,
	}, nil
}

// Lifetime is the validity window of every issued token.
func (t *TokenIssuer) Lifetime() time.Duration {
	return t.lifetime
}

// IssueToken signs a token for user. Each call embeds a fresh jti so two
// tokens are never byte-identical, even when issued within the same second.
func (t *TokenIssuer) IssueToken(user *domain.User, roles []string, extra []domain.Claim) (ports.Token, error) {
	issuedAt := t.now().UTC().Truncate(time.Second)
	expires := issuedAt.Add(t.lifetime)

	claims := jwt.MapClaims{}
	for typ, values := range groupClaims(extra) {
		if len(values) == 1 {
			claims[typ] = values[0]
		} else {
			claims[typ] = values
		}
	}

	roleClaims := make([]string, len(roles))
	copy(roleClaims, roles)

	claims[claimSubject] = user.Username
	claims[claimID] = uuid.NewString()
	claims[claimEmail] = user.Email
	claims[claimUserID] = user.ID
	claims[claimRoles] = roleClaims
	claims[claimIssuer] = t.issuer
	claims[claimAudience] = t.audience
	claims[claimIssuedAt] = issuedAt.Unix()
	claims[claimExpires] = expires.Unix()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return ports.Token{}, fmt.Errorf("sign token: %w", err)
	}
	return ports.Token{Value: signed, ExpiresOn: expires}, nil
}

// ParseToken verifies signature, algorithm, issuer, audience and expiry and
// returns the decoded claims.
func (t *TokenIssuer) ParseToken(token string) (*ports.TokenClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	out := &ports.TokenClaims{
		Extra: make(map[string][]string),
	}
	out.Subject, _ = claims.GetSubject()
	out.Issuer, _ = claims.GetIssuer()
	out.Audience, _ = claims.GetAudience()
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		out.IssuedAt = iat.Time.UTC()
	}
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		out.ExpiresAt = exp.Time.UTC()
	}
	out.ID, _ = claims[claimID].(string)
	out.Email, _ = claims[claimEmail].(string)
	out.UserID, _ = claims[claimUserID].(string)
	out.Roles = stringValues(claims[claimRoles])

	for typ, v := range claims {
		if _, reserved := reservedClaims[typ]; reserved {
			continue
		}
		out.Extra[typ] = stringValues(v)
	}
	return out, nil
}

// groupClaims merges extra claims by type, dropping reserved names so user
// data cannot override identity or validity claims.
func groupClaims(extra []domain.Claim) map[string][]string {
	grouped := make(map[string][]string, len(extra))
	for _, c := range extra {
		if c.Type == "" {
			continue
		}
		if _, reserved := reservedClaims[c.Type]; reserved {
			continue
		}
		grouped[c.Type] = append(grouped[c.Type], c.Value)
	}
	return grouped
}

func stringValues(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	default:
		return []string{}
	}
}
