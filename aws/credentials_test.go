package aws

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	ssotypes "github.com/aws/aws-sdk-go-v2/service/sso/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	errUtils "awsom/errors"
)

type mockPortal struct {
	mock.Mock
}

func (m *mockPortal) ListAccounts(ctx context.Context, in *sso.ListAccountsInput, _ ...func(*sso.Options)) (*sso.ListAccountsOutput, error) {
	args := m.Called(aws.ToString(in.NextToken))
	out, _ := args.Get(0).(*sso.ListAccountsOutput)
	return out, args.Error(1)
}

func (m *mockPortal) ListAccountRoles(ctx context.Context, in *sso.ListAccountRolesInput, _ ...func(*sso.Options)) (*sso.ListAccountRolesOutput, error) {
	args := m.Called(aws.ToString(in.AccountId), aws.ToString(in.NextToken))
	out, _ := args.Get(0).(*sso.ListAccountRolesOutput)
	return out, args.Error(1)
}

func (m *mockPortal) GetRoleCredentials(ctx context.Context, in *sso.GetRoleCredentialsInput, _ ...func(*sso.Options)) (*sso.GetRoleCredentialsOutput, error) {
	args := m.Called(aws.ToString(in.AccountId), aws.ToString(in.RoleName))
	out, _ := args.Get(0).(*sso.GetRoleCredentialsOutput)
	return out, args.Error(1)
}

type stubIdentity struct {
	creds *RoleCredentials
}

func (s *stubIdentity) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{
		Account: aws.String("111111111111"),
		Arn:     aws.String("arn:aws:sts::111111111111:assumed-role/Admin/" + s.creds.AccessKeyID),
		UserId:  aws.String("AROAEXAMPLE:user"),
	}, nil
}

func TestListAccounts_Paginates(t *testing.T) {
	portal := &mockPortal{}
	portal.On("ListAccounts", "").Return(&sso.ListAccountsOutput{
		AccountList: []ssotypes.AccountInfo{
			{AccountId: aws.String("111111111111"), AccountName: aws.String("dev")},
		},
		NextToken: aws.String("page-2"),
	}, nil).Once()
	portal.On("ListAccounts", "page-2").Return(&sso.ListAccountsOutput{
		AccountList: []ssotypes.AccountInfo{
			{AccountId: aws.String("222222222222"), AccountName: aws.String("prod")},
		},
	}, nil).Once()

	client := NewClientFromAPIs(testRegion, nil, portal)
	accounts, err := client.ListAccounts(context.Background(), "token")
	require.NoError(t, err)

	assert.Equal(t, []Account{
		{ID: "111111111111", Name: "dev"},
		{ID: "222222222222", Name: "prod"},
	}, accounts)
	portal.AssertExpectations(t)
}

func TestListAccountRoles_Paginates(t *testing.T) {
	portal := &mockPortal{}
	portal.On("ListAccountRoles", "111111111111", "").Return(&sso.ListAccountRolesOutput{
		RoleList:  []ssotypes.RoleInfo{{RoleName: aws.String("Admin")}},
		NextToken: aws.String("next"),
	}, nil).Once()
	portal.On("ListAccountRoles", "111111111111", "next").Return(&sso.ListAccountRolesOutput{
		RoleList: []ssotypes.RoleInfo{{RoleName: aws.String("ReadOnly")}},
	}, nil).Once()

	client := NewClientFromAPIs(testRegion, nil, portal)
	roles, err := client.ListAccountRoles(context.Background(), "token", "111111111111")
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin", "ReadOnly"}, roles)
	portal.AssertExpectations(t)
}

func TestListAccounts_Unauthorized(t *testing.T) {
	portal := &mockPortal{}
	portal.On("ListAccounts", "").Return(nil, &ssotypes.UnauthorizedException{})

	client := NewClientFromAPIs(testRegion, nil, portal)
	_, err := client.ListAccounts(context.Background(), "token")
	require.ErrorIs(t, err, errUtils.ErrTokenExpired)
}

func TestGetRoleCredentials(t *testing.T) {
	expiration := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	full := func() *ssotypes.RoleCredentials {
		return &ssotypes.RoleCredentials{
			AccessKeyId:     aws.String("ASIAEXAMPLE"),
			SecretAccessKey: aws.String("secret"),
			SessionToken:    aws.String("session"),
			Expiration:      expiration.UnixMilli(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ssotypes.RoleCredentials)
		wantErr bool
	}{
		{name: "complete", mutate: func(*ssotypes.RoleCredentials) {}},
		{name: "missing access key", mutate: func(rc *ssotypes.RoleCredentials) { rc.AccessKeyId = nil }, wantErr: true},
		{name: "missing secret", mutate: func(rc *ssotypes.RoleCredentials) { rc.SecretAccessKey = aws.String("") }, wantErr: true},
		{name: "missing session token", mutate: func(rc *ssotypes.RoleCredentials) { rc.SessionToken = nil }, wantErr: true},
		{name: "missing expiration", mutate: func(rc *ssotypes.RoleCredentials) { rc.Expiration = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := full()
			tt.mutate(rc)

			portal := &mockPortal{}
			portal.On("GetRoleCredentials", "111111111111", "Admin").
				Return(&sso.GetRoleCredentialsOutput{RoleCredentials: rc}, nil)

			client := NewClientFromAPIs(testRegion, nil, portal)
			creds, err := client.GetRoleCredentials(context.Background(), "token", "111111111111", "Admin")
			if tt.wantErr {
				require.ErrorIs(t, err, errUtils.ErrProvider)
				assert.Nil(t, creds)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, &RoleCredentials{
				AccessKeyID:     "ASIAEXAMPLE",
				SecretAccessKey: "secret",
				SessionToken:    "session",
				Expiration:      expiration,
			}, creds)
		})
	}
}

func TestGetRoleCredentials_NoCredentialsBlock(t *testing.T) {
	portal := &mockPortal{}
	portal.On("GetRoleCredentials", "111111111111", "Admin").Return(&sso.GetRoleCredentialsOutput{}, nil)

	client := NewClientFromAPIs(testRegion, nil, portal)
	_, err := client.GetRoleCredentials(context.Background(), "token", "111111111111", "Admin")
	require.ErrorIs(t, err, errUtils.ErrProvider)
}

func TestWhoAmI(t *testing.T) {
	client := NewClientFromAPIs(testRegion, nil, nil, WithIdentity(func(creds *RoleCredentials) IdentityAPI {
		return &stubIdentity{creds: creds}
	}))

	id, err := client.WhoAmI(context.Background(), &RoleCredentials{AccessKeyID: "ASIAEXAMPLE"})
	require.NoError(t, err)
	assert.Equal(t, "111111111111", id.Account)
	assert.Equal(t, "arn:aws:sts::111111111111:assumed-role/Admin/ASIAEXAMPLE", id.Arn)
}

func TestPortalURLs(t *testing.T) {
	assert.Equal(t,
		"https://company.awsapps.com/start/#/console?account_id=111111111111&role_name=Admin",
		ConsoleURL(testStartURL, "111111111111", "Admin"))
	assert.Equal(t, "https://company.awsapps.com/start/#/?tab=accounts", DashboardURL(testStartURL+"/"))
}
