package testinfra

import (
	"strconv"
	"time"

	"industrium/authority"
	"industrium/session"

	"github.com/fundwit/go-commons/types"
	"github.com/google/uuid"
)

// BuildSession an authenticated session of the given role, as AuthFilter
// would have injected it.
func BuildSession(uid types.ID, role string) *session.Session {
	return &session.Session{
		Token: uuid.New().String(),
		Identity: session.Identity{
			ID:   uid,
			Name: "user" + strconv.FormatUint(uint64(uid), 10),
			Role: role,
		},
		Perms:       authority.Permissions{role},
		SigningTime: time.Now(),
	}
}
