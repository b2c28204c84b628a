package cache

import (
	"encoding/json"

	"github.com/charmbracelet/log"

	"awsom/aws"
)

// TokenCache stores SSO access tokens, one file per instance.
type TokenCache struct {
	store *Store
}

// CachedToken is a token found while listing the cache.
type CachedToken struct {
	Key   string
	Token aws.Token
}

func NewTokenCache(dir string) *TokenCache {
	return &TokenCache{store: NewStore(dir)}
}

// Get returns the cached token for inst unless it is missing, unreadable or expired.
func (c *TokenCache) Get(inst aws.Instance) (*aws.Token, bool) {
	var tok aws.Token
	if !c.store.Get(TokenKey(inst), &tok) {
		return nil, false
	}
	return &tok, true
}

func (c *TokenCache) Put(inst aws.Instance, tok *aws.Token) error {
	doc := *tok
	if doc.StartURL == "" {
		doc.StartURL = inst.StartURL
	}
	if doc.Region == "" {
		doc.Region = inst.Region
	}
	return c.store.Put(TokenKey(inst), doc)
}

func (c *TokenCache) Remove(inst aws.Instance) error {
	return c.store.Remove(TokenKey(inst))
}

// List returns every parseable token, expired ones included. Other tools
// share the directory, so anything that does not decode is skipped.
func (c *TokenCache) List() ([]CachedToken, error) {
	entries, err := c.store.Entries()
	if err != nil {
		return nil, err
	}

	var tokens []CachedToken
	for _, e := range entries {
		var tok aws.Token
		if err := json.Unmarshal(e.Data, &tok); err != nil {
			log.Debug("Skipping non-token cache entry", "key", e.Key)
			continue
		}
		tokens = append(tokens, CachedToken{Key: e.Key, Token: tok})
	}
	return tokens, nil
}
