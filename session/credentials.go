package session

import (
	"context"

	"github.com/charmbracelet/log"

	"awsom/aws"
	"awsom/cache"
)

// CredentialManager returns role credentials from the cache while they are
// valid and fetches fresh ones otherwise. Concurrent callers asking for the
// same role are not de-duplicated.
type CredentialManager struct {
	cache *cache.CredentialCache
}

func NewCredentialManager(c *cache.CredentialCache) *CredentialManager {
	return &CredentialManager{cache: c}
}

// Get performs at most one fetch.
func (m *CredentialManager) Get(ctx context.Context, p Provider, inst aws.Instance, tok *aws.Token, role aws.AccountRole) (*aws.RoleCredentials, error) {
	if creds, ok := m.cache.Get(inst, role); ok {
		log.Debug("Using cached credentials", "account", role.AccountID, "role", role.RoleName, "expires", creds.ExpirationDisplay())
		return creds, nil
	}

	creds, err := p.GetRoleCredentials(ctx, tok.AccessToken, role.AccountID, role.RoleName)
	if err != nil {
		return nil, err
	}
	if err := m.cache.Put(inst, role, creds); err != nil {
		log.Warn("Failed to cache credentials", "account", role.AccountID, "role", role.RoleName, "error", err)
	}
	return creds, nil
}

// Forget drops the cached credentials of one role.
func (m *CredentialManager) Forget(inst aws.Instance, role aws.AccountRole) error {
	return m.cache.Remove(inst, role)
}

// Clear drops every cached credential document.
func (m *CredentialManager) Clear() (int, error) {
	return m.cache.Clear()
}
