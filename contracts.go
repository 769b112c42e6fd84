package apptokens

import (
	"context"
	"time"
)

// SessionType mirrors the platform's session privilege levels.
type SessionType int

const (
	SessionTypeUser  SessionType = 0
	SessionTypeAdmin SessionType = 2
)

// TokenStatus mirrors the platform's app token states.
type TokenStatus int

const (
	TokenStatusDisabled TokenStatus = 1
	TokenStatusActive   TokenStatus = 2
	TokenStatusDeleted  TokenStatus = 3
)

// AppToken is the platform-owned token entity. Instances are transient
// in-memory references returned from remote calls; nothing is persisted
// locally. The token's secret value is intentionally absent here and is
// fetched through Platform.GetTokenSecret when a session exchange needs it.
type AppToken struct {
	ID                string
	PartnerID         int
	Description       string
	EncodedPrivileges string
	SessionType       SessionType
	HashType          string
	Status            TokenStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Session is the ephemeral credential produced by exchanging an app token.
type Session struct {
	KS        string
	PartnerID int
	UserID    string
	ExpiresAt time.Time
}

type CreateTokenRequest struct {
	Description            string
	EncodedPrivileges      string
	SessionType            SessionType
	HashType               string
	SessionDurationSeconds int
}

// UpdateTokenRequest carries only the fields the caller wants changed. A nil
// field is omitted from the outgoing payload entirely, which the platform
// treats as "keep the current value" — distinct from an explicit empty or
// wildcard value.
type UpdateTokenRequest struct {
	Description       *string
	EncodedPrivileges *string
}

type ListPage struct {
	Index int
	Size  int
}

type TokenPage struct {
	Tokens     []AppToken
	TotalCount int
}

type StartSessionRequest struct {
	TokenID string
	// SessionToken is the unprivileged widget session the token hash is
	// bound to; the platform recomputes the digest over it server-side.
	SessionToken      string
	TokenHash         string
	EncodedPrivileges string
	DurationSeconds   int
}

// Platform is the remote platform client boundary. Implementations perform
// the actual network calls; every method maps to exactly one remote
// operation and returns coded errors from pkg/errors.
type Platform interface {
	CreateToken(ctx context.Context, req CreateTokenRequest) (AppToken, error)
	GetToken(ctx context.Context, id string) (AppToken, error)
	GetTokenSecret(ctx context.Context, id string) (string, error)
	UpdateToken(ctx context.Context, id string, req UpdateTokenRequest) (AppToken, error)
	DeleteToken(ctx context.Context, id string) error
	ListTokens(ctx context.Context, page ListPage) (TokenPage, error)
	StartWidgetSession(ctx context.Context) (string, error)
	StartSession(ctx context.Context, req StartSessionRequest) (Session, error)
}
