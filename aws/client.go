package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// OIDCAPI is the subset of the SSO OIDC client used by the device flow.
type OIDCAPI interface {
	RegisterClient(ctx context.Context, params *ssooidc.RegisterClientInput, optFns ...func(*ssooidc.Options)) (*ssooidc.RegisterClientOutput, error)
	StartDeviceAuthorization(ctx context.Context, params *ssooidc.StartDeviceAuthorizationInput, optFns ...func(*ssooidc.Options)) (*ssooidc.StartDeviceAuthorizationOutput, error)
	CreateToken(ctx context.Context, params *ssooidc.CreateTokenInput, optFns ...func(*ssooidc.Options)) (*ssooidc.CreateTokenOutput, error)
}

// PortalAPI is the subset of the SSO portal client used to list accounts and fetch credentials.
type PortalAPI interface {
	ListAccounts(ctx context.Context, params *sso.ListAccountsInput, optFns ...func(*sso.Options)) (*sso.ListAccountsOutput, error)
	ListAccountRoles(ctx context.Context, params *sso.ListAccountRolesInput, optFns ...func(*sso.Options)) (*sso.ListAccountRolesOutput, error)
	GetRoleCredentials(ctx context.Context, params *sso.GetRoleCredentialsInput, optFns ...func(*sso.Options)) (*sso.GetRoleCredentialsOutput, error)
}

// IdentityAPI is the STS call used to verify credentials.
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client wraps the AWS SSO service clients
type Client struct {
	region     string
	clientName string
	oidc       OIDCAPI
	portal     PortalAPI
	identity   func(creds *RoleCredentials) IdentityAPI
	sleep      Sleeper
	now        func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithSleeper replaces the poll-loop sleep.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithClientName sets the name used when registering the OIDC client.
func WithClientName(name string) Option {
	return func(c *Client) { c.clientName = name }
}

// WithIdentity replaces how STS clients are built for credential checks.
func WithIdentity(fn func(creds *RoleCredentials) IdentityAPI) Option {
	return func(c *Client) { c.identity = fn }
}

// NewClient initializes AWS service clients for a specific region
func NewClient(ctx context.Context, region string, opts ...Option) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	identity := func(creds *RoleCredentials) IdentityAPI {
		return sts.NewFromConfig(cfg, func(o *sts.Options) {
			o.Credentials = credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)
		})
	}

	opts = append([]Option{WithIdentity(identity)}, opts...)
	return NewClientFromAPIs(region, ssooidc.NewFromConfig(cfg), sso.NewFromConfig(cfg), opts...), nil
}

// NewClientFromAPIs builds a Client on top of already constructed service clients.
func NewClientFromAPIs(region string, oidc OIDCAPI, portal PortalAPI, opts ...Option) *Client {
	c := &Client{
		region:     region,
		clientName: DefaultClientName,
		oidc:       oidc,
		portal:     portal,
		sleep:      sleepContext,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Region returns the configured AWS region
func (c *Client) Region() string {
	return c.region
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func portalBase(startURL string) string {
	return strings.TrimSuffix(strings.TrimSuffix(startURL, "/"), "/start")
}

// ConsoleURL returns the portal link that signs into the console for an account role.
func ConsoleURL(startURL, accountID, roleName string) string {
	return fmt.Sprintf("%s/start/#/console?account_id=%s&role_name=%s", portalBase(startURL), accountID, roleName)
}

// DashboardURL returns the portal account list.
func DashboardURL(startURL string) string {
	return fmt.Sprintf("%s/start/#/?tab=accounts", portalBase(startURL))
}
