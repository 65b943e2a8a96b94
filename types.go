package sessioncore

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/sessioncore/internal/flows"
)

// UserRecord is the account view the engine needs. Roles are
// normalized by the engine before they are embedded in a credential.
type UserRecord struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []string
	Active       bool
	LastLogin    *time.Time
}

// UserProvider is the host application's account storage. GetByID and
// GetByEmail must return an error matching [ErrUserNotFound] for unknown
// accounts; any other error is treated as an outage. Save persists
// bookkeeping updates (last login, upgraded password hash).
type UserProvider interface {
	GetByID(ctx context.Context, id string) (UserRecord, error)
	GetByEmail(ctx context.Context, email string) (UserRecord, error)
	Save(ctx context.Context, user UserRecord) error
}

// AuthResult is the principal carried by a verified access credential.
type AuthResult struct {
	Subject string
	Email   string
	Roles   []string
}

// TokenPair is what a successful login or rotation hands back to a client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// SessionInfo describes one live token family. The refresh credential itself
// is never exposed.
type SessionInfo struct {
	Family    string     `json:"token_family"`
	CreatedAt time.Time  `json:"created_at"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// RotationOutcome tags a rotation attempt.
type RotationOutcome int

const (
	RotationOK RotationOutcome = iota
	RotationInvalid
	RotationReplay
	RotationUnavailable
	RotationRateLimited
)

func (o RotationOutcome) String() string {
	switch o {
	case RotationOK:
		return "ok"
	case RotationInvalid:
		return "invalid"
	case RotationReplay:
		return "replay"
	case RotationUnavailable:
		return "unavailable"
	case RotationRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// RotationResult is the tagged result of [Engine.Rotate]. Tokens is set only
// for RotationOK; Revoked counts families removed in response to a replay.
type RotationResult struct {
	Outcome RotationOutcome
	Subject string
	Family  string
	Tokens  *TokenPair
	Revoked int
	Err     error
}

// ReplayPolicy selects what the engine revokes when a consumed refresh
// credential is presented again.
type ReplayPolicy string

const (
	ReplayRevokeFamily ReplayPolicy = "revoke_family"
	ReplayRevokeAll    ReplayPolicy = "revoke_all"
	ReplayFlagOnly     ReplayPolicy = "flag_only"
)

func (p ReplayPolicy) action() (flows.ReplayAction, error) {
	switch p {
	case ReplayRevokeFamily, "":
		return flows.ReplayRevokeFamily, nil
	case ReplayRevokeAll:
		return flows.ReplayRevokeAll, nil
	case ReplayFlagOnly:
		return flows.ReplayFlagOnly, nil
	default:
		return 0, fmt.Errorf("unknown ReplayPolicy %q", string(p))
	}
}
