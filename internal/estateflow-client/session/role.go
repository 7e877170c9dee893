package session

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Role is the user's side of a request: asset holder or proxy buyer.
type Role string

const (
	RoleAssetHolder Role = "AH"
	RoleProxyBuyer  Role = "PB"

	DefaultRole = RoleProxyBuyer
)

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAssetHolder:
		return RoleAssetHolder, nil
	case RoleProxyBuyer:
		return RoleProxyBuyer, nil
	}
	return "", errors.Wrapf(ErrUnknownRole, "%q", s)
}

func (t *Tracker) Role() Role {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.role
}

func (t *Tracker) SetRole(r Role) error {
	if r != RoleAssetHolder && r != RoleProxyBuyer {
		return errors.Wrapf(ErrUnknownRole, "%q", string(r))
	}
	t.mu.Lock()
	t.role = r
	t.mu.Unlock()
	return nil
}
