package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"awsom/aws"
	"awsom/awsconfig"
	errUtils "awsom/errors"
)

// ActivateOptions override where and how a role's credentials are written.
// Empty fields fall back to the existing profile, then the tool defaults.
type ActivateOptions struct {
	Profile string
	Region  string
	Output  string
}

// Activation is the result of writing a role's credentials to a profile.
type Activation struct {
	Profile     string
	Role        aws.AccountRole
	Region      string
	Credentials *aws.RoleCredentials
}

var unsafeProfileChars = regexp.MustCompile(`[^A-Za-z0-9._]+`)

// DefaultProfileName turns "Account Name/Role" into "Account-Name-Role".
func DefaultProfileName(role aws.AccountRole) string {
	account := role.AccountName
	if account == "" {
		account = role.AccountID
	}
	name := unsafeProfileChars.ReplaceAllString(account+"-"+role.RoleName, "-")
	return strings.Trim(name, "-")
}

// Activate fetches credentials for role and writes them to a profile.
func (m *Manager) Activate(ctx context.Context, inst aws.Instance, role aws.AccountRole, opts ActivateOptions) (*Activation, error) {
	creds, err := m.Credentials(ctx, inst, role)
	if err != nil {
		return nil, err
	}

	profile, err := m.profileFor(inst, role, opts.Profile)
	if err != nil {
		return nil, err
	}

	region, output := opts.Region, opts.Output
	if region == "" || output == "" {
		existing, err := m.files.ProfileDetails(profile)
		if err != nil && !errors.Is(err, errUtils.ErrProfileNotFound) {
			return nil, err
		}
		if existing != nil {
			region = firstNonEmpty(region, existing.Region)
			output = firstNonEmpty(output, existing.Output)
		}
	}
	region = firstNonEmpty(region, m.defaults.Region)
	output = firstNonEmpty(output, m.defaults.Output)
	if region == "" || output == "" {
		defaults, err := m.files.ReadToolDefaults()
		if err != nil {
			return nil, err
		}
		region = firstNonEmpty(region, defaults.Region)
		output = firstNonEmpty(output, defaults.Output)
	}

	err = m.files.WriteCredentialsWithMetadata(awsconfig.ProfileWrite{
		Profile:     profile,
		Credentials: *creds,
		Region:      region,
		Output:      output,
		Role:        &role,
		SessionName: inst.SessionName,
		StartURL:    inst.StartURL,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Activated profile", "profile", profile, "role", role.DisplayName(), "expires", creds.ExpirationDisplay())
	return &Activation{Profile: profile, Role: role, Region: region, Credentials: creds}, nil
}

func (m *Manager) profileFor(inst aws.Instance, role aws.AccountRole, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	name, ok, err := m.files.ProfileByRole(inst.SessionName, role)
	if err != nil {
		return "", err
	}
	if ok {
		return name, nil
	}
	return DefaultProfileName(role), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// profileTarget resolves the session and role a profile was activated from.
func (m *Manager) profileTarget(name string) (aws.Instance, aws.AccountRole, error) {
	details, err := m.files.ProfileDetails(name)
	if err != nil {
		return aws.Instance{}, aws.AccountRole{}, err
	}
	if details.SSOSession == "" || details.AccountID == "" || details.RoleName == "" {
		return aws.Instance{}, aws.AccountRole{}, fmt.Errorf("%w: profile %q has no sso_session, sso_account_id and sso_role_name",
			errUtils.ErrInvalidConfig, name)
	}

	s, err := m.files.FindSession(details.SSOSession)
	if err != nil {
		return aws.Instance{}, aws.AccountRole{}, err
	}
	return s.Instance(), aws.AccountRole{AccountID: details.AccountID, RoleName: details.RoleName}, nil
}

// StartProfile refreshes a profile from the session and role recorded in it.
func (m *Manager) StartProfile(ctx context.Context, name string) (*Activation, error) {
	inst, role, err := m.profileTarget(name)
	if err != nil {
		return nil, err
	}
	details, err := m.files.ProfileDetails(name)
	if err != nil {
		return nil, err
	}
	return m.Activate(ctx, inst, role, ActivateOptions{Profile: name, Region: details.Region, Output: details.Output})
}

// forget drops cached credentials for a profile's role. Profiles without
// sso keys have nothing cached.
func (m *Manager) forget(name string) {
	inst, role, err := m.profileTarget(name)
	if err != nil {
		log.Debug("No cached credentials to forget", "profile", name, "reason", err)
		return
	}
	if err := m.credentials.Forget(inst, role); err != nil {
		log.Warn("Failed to remove cached credentials", "profile", name, "error", err)
	}
}

// Invalidate replaces the profile's key material with placeholders.
func (m *Manager) Invalidate(name string) error {
	m.forget(name)
	return m.files.InvalidateProfile(name)
}

func (m *Manager) Rename(from, to string) error {
	m.forget(from)
	return m.files.RenameProfile(from, to)
}

func (m *Manager) Delete(name string) error {
	m.forget(name)
	return m.files.DeleteProfile(name)
}
