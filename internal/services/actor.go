package services

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// SystemUserID authors automatic actions such as sweep deletions and
// community auto-flags.
const SystemUserID = "system:community"

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsModerator() bool {
	return a.Role == RoleAdmin || a.Role == RoleModerator
}

func (a Actor) Anonymous() bool {
	return strings.TrimSpace(a.UserID) == ""
}

func SystemActor() Actor {
	return Actor{UserID: SystemUserID, Role: RoleAdmin}
}

// RoleFromClaims picks the strongest known role from token roles.
func RoleFromClaims(roles []string) Role {
	best := RoleUser
	for _, raw := range roles {
		switch Role(strings.ToLower(strings.TrimSpace(raw))) {
		case RoleAdmin:
			return RoleAdmin
		case RoleModerator:
			best = RoleModerator
		}
	}
	return best
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
