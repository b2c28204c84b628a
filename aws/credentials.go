package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/aws-sdk-go-v2/service/sso/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	errUtils "awsom/errors"
)

// ListAccounts lists every account the access token can see, following NextToken.
func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	var accounts []Account
	var nextToken *string

	for {
		resp, err := c.portal.ListAccounts(ctx, &sso.ListAccountsInput{
			AccessToken: aws.String(accessToken),
			NextToken:   nextToken,
		})
		if err != nil {
			return nil, portalError("failed to list accounts", err)
		}

		for _, acc := range resp.AccountList {
			accounts = append(accounts, Account{
				ID:   aws.ToString(acc.AccountId),
				Name: aws.ToString(acc.AccountName),
			})
		}

		nextToken = resp.NextToken
		if aws.ToString(nextToken) == "" {
			break
		}
	}

	return accounts, nil
}

// ListAccountRoles lists available roles for a specific account
func (c *Client) ListAccountRoles(ctx context.Context, accessToken, accountID string) ([]string, error) {
	var roles []string
	var nextToken *string

	for {
		resp, err := c.portal.ListAccountRoles(ctx, &sso.ListAccountRolesInput{
			AccessToken: aws.String(accessToken),
			AccountId:   aws.String(accountID),
			NextToken:   nextToken,
		})
		if err != nil {
			return nil, portalError(fmt.Sprintf("failed to list roles for account %s", accountID), err)
		}

		for _, role := range resp.RoleList {
			roles = append(roles, aws.ToString(role.RoleName))
		}

		nextToken = resp.NextToken
		if aws.ToString(nextToken) == "" {
			break
		}
	}

	return roles, nil
}

// GetRoleCredentials exchanges the access token for temporary role credentials.
// Every credential field and the expiration must be present.
func (c *Client) GetRoleCredentials(ctx context.Context, accessToken, accountID, roleName string) (*RoleCredentials, error) {
	resp, err := c.portal.GetRoleCredentials(ctx, &sso.GetRoleCredentialsInput{
		AccessToken: aws.String(accessToken),
		AccountId:   aws.String(accountID),
		RoleName:    aws.String(roleName),
	})
	if err != nil {
		return nil, portalError(fmt.Sprintf("failed to get credentials for %s/%s", accountID, roleName), err)
	}

	rc := resp.RoleCredentials
	if rc == nil {
		return nil, fmt.Errorf("%w: no role credentials in response", errUtils.ErrProvider)
	}

	var missing []string
	if aws.ToString(rc.AccessKeyId) == "" {
		missing = append(missing, "access key id")
	}
	if aws.ToString(rc.SecretAccessKey) == "" {
		missing = append(missing, "secret access key")
	}
	if aws.ToString(rc.SessionToken) == "" {
		missing = append(missing, "session token")
	}
	if rc.Expiration == 0 {
		missing = append(missing, "expiration")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: role credentials missing %v", errUtils.ErrProvider, missing)
	}

	return &RoleCredentials{
		AccessKeyID:     aws.ToString(rc.AccessKeyId),
		SecretAccessKey: aws.ToString(rc.SecretAccessKey),
		SessionToken:    aws.ToString(rc.SessionToken),
		Expiration:      time.UnixMilli(rc.Expiration).UTC(),
	}, nil
}

// WhoAmI resolves the caller identity for a set of role credentials.
func (c *Client) WhoAmI(ctx context.Context, creds *RoleCredentials) (*CallerIdentity, error) {
	if c.identity == nil {
		return nil, fmt.Errorf("%w: no STS client configured", errUtils.ErrProvider)
	}

	out, err := c.identity(creds).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get caller identity: %w", errUtils.ErrProvider, err)
	}

	return &CallerIdentity{
		Account: aws.ToString(out.Account),
		Arn:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}

// portalError maps an expired or revoked access token to ErrTokenExpired.
func portalError(msg string, err error) error {
	var unauthorized *types.UnauthorizedException
	if errors.As(err, &unauthorized) {
		return fmt.Errorf("%w: %s: %w", errUtils.ErrTokenExpired, msg, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "UnauthorizedException" {
		return fmt.Errorf("%w: %s: %w", errUtils.ErrTokenExpired, msg, err)
	}

	return fmt.Errorf("%w: %s: %w", errUtils.ErrProvider, msg, err)
}
