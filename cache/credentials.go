package cache

import (
	"encoding/json"

	"awsom/aws"
)

// CredentialCache stores role credentials, one file per (instance, account, role).
type CredentialCache struct {
	store *Store
}

func NewCredentialCache(dir string) *CredentialCache {
	return &CredentialCache{store: NewStore(dir)}
}

func (c *CredentialCache) Get(inst aws.Instance, role aws.AccountRole) (*aws.RoleCredentials, bool) {
	var creds aws.RoleCredentials
	if !c.store.Get(CredentialKey(inst, role), &creds) {
		return nil, false
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" || creds.SessionToken == "" {
		return nil, false
	}
	return &creds, true
}

func (c *CredentialCache) Put(inst aws.Instance, role aws.AccountRole, creds *aws.RoleCredentials) error {
	return c.store.Put(CredentialKey(inst, role), creds)
}

func (c *CredentialCache) Remove(inst aws.Instance, role aws.AccountRole) error {
	return c.store.Remove(CredentialKey(inst, role))
}

// Clear removes every entry written in this cache's format. The directory is
// shared with the AWS CLI, whose documents are left alone.
func (c *CredentialCache) Clear() (int, error) {
	entries, err := c.store.Entries()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		var probe struct {
			AccessKeyID *string `json:"access_key_id"`
		}
		if json.Unmarshal(e.Data, &probe) != nil || probe.AccessKeyID == nil {
			continue
		}
		if err := c.store.Remove(e.Key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
