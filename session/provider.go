// Package session ties the device flow, the caches and the shared AWS files
// together into the operations the commands expose.
package session

import (
	"context"

	"awsom/aws"
)

// Provider is the remote side of a session: the device flow, the SSO portal
// and STS.
type Provider interface {
	Authorize(ctx context.Context, startURL string, prompts chan<- *aws.Prompt) (*aws.Token, error)
	ListAccounts(ctx context.Context, accessToken string) ([]aws.Account, error)
	ListAccountRoles(ctx context.Context, accessToken, accountID string) ([]string, error)
	GetRoleCredentials(ctx context.Context, accessToken, accountID, roleName string) (*aws.RoleCredentials, error)
	WhoAmI(ctx context.Context, creds *aws.RoleCredentials) (*aws.CallerIdentity, error)
}

// ProviderFactory builds a Provider bound to an SSO region.
type ProviderFactory func(ctx context.Context, region string) (Provider, error)

// AWSProviders builds providers backed by the AWS SDK.
func AWSProviders(opts ...aws.Option) ProviderFactory {
	return func(ctx context.Context, region string) (Provider, error) {
		client, err := aws.NewClient(ctx, region, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
