package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"awsom/aws"
	"awsom/awsconfig"
	"awsom/cache"
	errUtils "awsom/errors"
)

// Options wires a Manager to its stores and provider.
type Options struct {
	Tokens      *cache.TokenCache
	Credentials *cache.CredentialCache
	Files       *awsconfig.Engine
	Providers   ProviderFactory
	Now         func() time.Time

	// ProfileDefaults apply to profiles that have no region or output of
	// their own, ahead of the defaults stored in the config file.
	ProfileDefaults awsconfig.Defaults
}

// Manager runs session and profile operations against one set of shared
// files and caches.
type Manager struct {
	tokens      *cache.TokenCache
	credentials *CredentialManager
	files       *awsconfig.Engine
	providers   ProviderFactory
	now         func() time.Time
	defaults    awsconfig.Defaults
}

func NewManager(opts Options) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		tokens:      opts.Tokens,
		credentials: NewCredentialManager(opts.Credentials),
		files:       opts.Files,
		providers:   opts.Providers,
		now:         now,
		defaults:    opts.ProfileDefaults,
	}
}

// Files exposes the shared-file engine.
func (m *Manager) Files() *awsconfig.Engine {
	return m.files
}

// SessionStatus pairs a configured session with its cached token, if any.
type SessionStatus struct {
	Session awsconfig.SSOSession
	Token   *aws.Token
}

// LoggedIn reports whether the session holds an unexpired token.
func (s SessionStatus) LoggedIn() bool {
	return s.Token != nil
}

// Login returns the cached token for inst unless force is set or there is
// none, in which case it runs the device flow and caches the result.
func (m *Manager) Login(ctx context.Context, inst aws.Instance, force bool, prompts chan<- *aws.Prompt) (*aws.Token, error) {
	if !force {
		if tok, ok := m.tokens.Get(inst); ok {
			log.Debug("Using cached token", "session", inst, "expires", tok.ExpirationDisplay())
			return tok, nil
		}
	}

	p, err := m.providers(ctx, inst.Region)
	if err != nil {
		return nil, err
	}

	tok, err := p.Authorize(ctx, inst.StartURL, prompts)
	if err != nil {
		return nil, err
	}
	if err := m.tokens.Put(inst, tok); err != nil {
		return nil, err
	}

	log.Info("Logged in", "session", inst, "expires", tok.ExpirationDisplay())
	return tok, nil
}

// Logout removes the cached token. With clearCredentials it also empties the
// credential cache.
func (m *Manager) Logout(inst aws.Instance, clearCredentials bool) error {
	if err := m.tokens.Remove(inst); err != nil {
		return err
	}
	if !clearCredentials {
		return nil
	}

	n, err := m.credentials.Clear()
	if err != nil {
		return err
	}
	log.Debug("Cleared cached credentials", "count", n)
	return nil
}

// CachedToken returns a valid cached token or ErrNoSessionFound.
func (m *Manager) CachedToken(inst aws.Instance) (*aws.Token, error) {
	tok, ok := m.tokens.Get(inst)
	if !ok {
		return nil, fmt.Errorf("%w: no valid token for %s; run login first", errUtils.ErrNoSessionFound, inst)
	}
	return tok, nil
}

// Sessions lists the configured sessions with their login state.
func (m *Manager) Sessions() ([]SessionStatus, error) {
	sessions, err := m.files.ReadAllSessions()
	if err != nil {
		return nil, err
	}

	return lo.Map(sessions, func(s awsconfig.SSOSession, _ int) SessionStatus {
		tok, _ := m.tokens.Get(s.Instance())
		return SessionStatus{Session: s, Token: tok}
	}), nil
}

// authorized returns a provider for inst together with its cached token.
func (m *Manager) authorized(ctx context.Context, inst aws.Instance) (Provider, *aws.Token, error) {
	tok, err := m.CachedToken(inst)
	if err != nil {
		return nil, nil, err
	}
	p, err := m.providers(ctx, inst.Region)
	if err != nil {
		return nil, nil, err
	}
	return p, tok, nil
}

// dropRejectedToken removes the cached token when the portal refused it.
func (m *Manager) dropRejectedToken(inst aws.Instance, err error) {
	if !errors.Is(err, errUtils.ErrTokenExpired) {
		return
	}
	if rmErr := m.tokens.Remove(inst); rmErr != nil {
		log.Debug("Failed to remove rejected token", "session", inst, "error", rmErr)
	}
}

// ListAccountRoles lists every role in every account, accounts sorted by
// name. Pages and accounts are fetched one at a time.
func (m *Manager) ListAccountRoles(ctx context.Context, inst aws.Instance) ([]aws.AccountRole, error) {
	p, tok, err := m.authorized(ctx, inst)
	if err != nil {
		return nil, err
	}

	accounts, err := p.ListAccounts(ctx, tok.AccessToken)
	if err != nil {
		m.dropRejectedToken(inst, err)
		return nil, err
	}
	slices.SortFunc(accounts, func(a, b aws.Account) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	var roles []aws.AccountRole
	for _, acct := range accounts {
		names, err := p.ListAccountRoles(ctx, tok.AccessToken, acct.ID)
		if err != nil {
			m.dropRejectedToken(inst, err)
			return nil, err
		}
		slices.Sort(names)
		for _, name := range names {
			roles = append(roles, aws.AccountRole{AccountID: acct.ID, AccountName: acct.Name, RoleName: name})
		}
	}
	log.Debug("Listed account roles", "session", inst, "accounts", len(accounts), "roles", len(roles))
	return roles, nil
}

// MatchAccountRole finds role in roles, where account is an account id or a
// case-insensitive account name.
func MatchAccountRole(roles []aws.AccountRole, account, role string) (aws.AccountRole, error) {
	match, ok := lo.Find(roles, func(r aws.AccountRole) bool {
		sameAccount := r.AccountID == account || strings.EqualFold(r.AccountName, account)
		return sameAccount && strings.EqualFold(r.RoleName, role)
	})
	if !ok {
		return aws.AccountRole{}, fmt.Errorf("%w: %s/%s", errUtils.ErrAccountRoleNotFound, account, role)
	}
	return match, nil
}

// FindAccountRole lists the roles of inst and picks one.
func (m *Manager) FindAccountRole(ctx context.Context, inst aws.Instance, account, role string) (aws.AccountRole, error) {
	roles, err := m.ListAccountRoles(ctx, inst)
	if err != nil {
		return aws.AccountRole{}, err
	}
	return MatchAccountRole(roles, account, role)
}

// GroupByAccount groups roles by "name (id)" for display.
func GroupByAccount(roles []aws.AccountRole) map[string][]aws.AccountRole {
	return lo.GroupBy(roles, func(r aws.AccountRole) string {
		return fmt.Sprintf("%s (%s)", r.AccountName, r.AccountID)
	})
}

// Credentials returns role credentials, cache first.
func (m *Manager) Credentials(ctx context.Context, inst aws.Instance, role aws.AccountRole) (*aws.RoleCredentials, error) {
	p, tok, err := m.authorized(ctx, inst)
	if err != nil {
		return nil, err
	}
	creds, err := m.credentials.Get(ctx, p, inst, tok, role)
	if err != nil {
		m.dropRejectedToken(inst, err)
		return nil, err
	}
	return creds, nil
}

// WhoAmI asks STS who the credentials belong to.
func (m *Manager) WhoAmI(ctx context.Context, creds *aws.RoleCredentials, region string) (*aws.CallerIdentity, error) {
	p, err := m.providers(ctx, region)
	if err != nil {
		return nil, err
	}
	return p.WhoAmI(ctx, creds)
}
