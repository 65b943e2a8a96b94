package flows

import (
	"context"
	"time"
)

// UserRecord is the flow-local account view.
type UserRecord struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []string
	Active       bool
	LastLogin    *time.Time
}

// UserLookup resolves accounts. NotFound must be returned (possibly wrapped)
// for unknown accounts so flows can tell absence from outage.
type UserLookup struct {
	GetByID    func(context.Context, string) (UserRecord, error)
	GetByEmail func(context.Context, string) (UserRecord, error)
	Save       func(context.Context, UserRecord) error
	NotFound   error
}
