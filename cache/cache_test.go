package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"awsom/aws"
)

const (
	testRegion   = "us-east-1"
	testStartURL = "https://company.awsapps.com/start"
)

var (
	testInstance = aws.Instance{StartURL: testStartURL, Region: testRegion, SessionName: "org"}
	testRole     = aws.AccountRole{AccountID: "111111111111", AccountName: "dev", RoleName: "Admin"}
)

func futureToken() *aws.Token {
	return &aws.Token{
		AccessToken:  "access-token",
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		RefreshToken: "refresh-token",
		Region:       testRegion,
		StartURL:     testStartURL,
	}
}

func TestKeys(t *testing.T) {
	// Same derivation as the AWS CLI v2 token cache.
	assert.Equal(t, "d23b5987504c1b3de484bf2e47c76f75abb794d3", sha1Hex("org"))
	assert.Equal(t, sha1Hex("org"), TokenKey(testInstance))
	assert.Equal(t, sha1Hex(testStartURL), TokenKey(aws.Instance{StartURL: testStartURL, Region: testRegion}))
	assert.Equal(t, sha1Hex(testStartURL+":111111111111:Admin"), CredentialKey(testInstance, testRole))
	assert.Len(t, TokenKey(testInstance), 40)
}

func TestTokenCache_PutGet(t *testing.T) {
	dir := t.TempDir()
	tokens := NewTokenCache(dir)

	_, ok := tokens.Get(testInstance)
	assert.False(t, ok)

	want := futureToken()
	require.NoError(t, tokens.Put(testInstance, want))

	got, ok := tokens.Get(testInstance)
	require.True(t, ok)
	assert.Equal(t, want, got)

	info, err := os.Stat(filepath.Join(dir, TokenKey(testInstance)+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestTokenCache_ExpiredIsMiss(t *testing.T) {
	tokens := NewTokenCache(t.TempDir())

	tok := futureToken()
	tok.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, tokens.Put(testInstance, tok))

	got, ok := tokens.Get(testInstance)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestTokenCache_MalformedIsMiss(t *testing.T) {
	dir := t.TempDir()
	tokens := NewTokenCache(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, TokenKey(testInstance)+".json"), []byte("{not json"), 0o600))

	_, ok := tokens.Get(testInstance)
	assert.False(t, ok)
}

func TestTokenCache_ReadsAWSCLIDocument(t *testing.T) {
	dir := t.TempDir()
	tokens := NewTokenCache(dir)
	expires := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	doc := `{"startUrl":"` + testStartURL + `","region":"us-east-1","accessToken":"cli-token","expiresAt":"` + expires + `","clientId":"x","clientSecret":"y"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, TokenKey(testInstance)+".json"), []byte(doc), 0o600))

	got, ok := tokens.Get(testInstance)
	require.True(t, ok)
	assert.Equal(t, "cli-token", got.AccessToken)
}

func TestTokenCache_PutOverwrites(t *testing.T) {
	tokens := NewTokenCache(t.TempDir())
	require.NoError(t, tokens.Put(testInstance, futureToken()))

	second := futureToken()
	second.AccessToken = "second"
	second.RefreshToken = ""
	require.NoError(t, tokens.Put(testInstance, second))

	got, ok := tokens.Get(testInstance)
	require.True(t, ok)
	assert.Equal(t, "second", got.AccessToken)
	assert.Empty(t, got.RefreshToken)
}

func TestTokenCache_Remove(t *testing.T) {
	tokens := NewTokenCache(t.TempDir())
	require.NoError(t, tokens.Remove(testInstance))

	require.NoError(t, tokens.Put(testInstance, futureToken()))
	require.NoError(t, tokens.Remove(testInstance))
	_, ok := tokens.Get(testInstance)
	assert.False(t, ok)
}

func TestTokenCache_List(t *testing.T) {
	dir := t.TempDir()
	tokens := NewTokenCache(dir)

	list, err := tokens.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	other := aws.Instance{StartURL: "https://other.awsapps.com/start", Region: "eu-west-1"}
	require.NoError(t, tokens.Put(testInstance, futureToken()))
	expired := futureToken()
	expired.ExpiresAt = time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, tokens.Put(other, expired))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("[]"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600))

	list, err = tokens.List()
	require.NoError(t, err)
	require.Len(t, list, 2)

	keys := []string{list[0].Key, list[1].Key}
	assert.ElementsMatch(t, []string{TokenKey(testInstance), TokenKey(other)}, keys)
}

func TestCredentialCache(t *testing.T) {
	creds := NewCredentialCache(t.TempDir())

	_, ok := creds.Get(testInstance, testRole)
	assert.False(t, ok)

	want := &aws.RoleCredentials{
		AccessKeyID:     "ASIAEXAMPLE",
		SecretAccessKey: "secret",
		SessionToken:    "session",
		Expiration:      time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, creds.Put(testInstance, testRole, want))

	got, ok := creds.Get(testInstance, testRole)
	require.True(t, ok)
	assert.Equal(t, want, got)

	otherRole := testRole
	otherRole.RoleName = "ReadOnly"
	_, ok = creds.Get(testInstance, otherRole)
	assert.False(t, ok)

	require.NoError(t, creds.Remove(testInstance, testRole))
	_, ok = creds.Get(testInstance, testRole)
	assert.False(t, ok)
}

func TestCredentialCache_ExpiredIsMiss(t *testing.T) {
	creds := NewCredentialCache(t.TempDir())
	require.NoError(t, creds.Put(testInstance, testRole, &aws.RoleCredentials{
		AccessKeyID:     "ASIAEXAMPLE",
		SecretAccessKey: "secret",
		SessionToken:    "session",
		Expiration:      time.Now().Add(-time.Second),
	}))

	_, ok := creds.Get(testInstance, testRole)
	assert.False(t, ok)
}

func TestCredentialCache_ClearKeepsForeignEntries(t *testing.T) {
	dir := t.TempDir()
	creds := NewCredentialCache(dir)

	for _, role := range []string{"Admin", "ReadOnly"} {
		r := testRole
		r.RoleName = role
		require.NoError(t, creds.Put(testInstance, r, &aws.RoleCredentials{
			AccessKeyID:     "AK",
			SecretAccessKey: "SK",
			SessionToken:    "ST",
			Expiration:      time.Now().Add(time.Hour),
		}))
	}
	foreign := filepath.Join(dir, "assume-role.json")
	require.NoError(t, os.WriteFile(foreign, []byte(`{"Credentials":{"AccessKeyId":"AK"}}`), 0o600))

	removed, err := creds.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.FileExists(t, foreign)
}
