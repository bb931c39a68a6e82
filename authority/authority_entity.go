package authority

import (
	"strings"
)

const (
	// RoleManager has full write access, and is the only role allowed to
	// confirm or reject task completions and to finalize projects.
	RoleManager = "Manager"
	// RoleWorker is read-only, except for tasks where the worker is the assignee.
	RoleWorker = "Worker"
)

type Permissions []string

func (c Permissions) HasRole(role string) bool {
	for _, v := range c {
		if strings.EqualFold(v, role) {
			return true
		}
	}
	return false
}

func (c Permissions) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if c.HasRole(role) {
			return true
		}
	}
	return false
}
