package ports

import (
	"time"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// Token is a signed bearer token and the instant it stops being valid.
type Token struct {
	Value     string
	ExpiresOn time.Time
}

// TokenClaims is the decoded content of a token produced by a TokenIssuer.
type TokenClaims struct {
	Subject   string
	ID        string
	Email     string
	UserID    string
	Roles     []string
	Extra     map[string][]string
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer mints and verifies bearer tokens.
type TokenIssuer interface {
	IssueToken(user *domain.User, roles []string, extra []domain.Claim) (Token, error)
	ParseToken(token string) (*TokenClaims, error)
}
