package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"awsom/aws"
)

// FormatVersion identifies the key scheme below. Changing either derivation
// orphans every existing cache file, so bump this alongside it.
const FormatVersion = 1

// TokenKey is the SHA-1 hex digest of the session name, or of the start URL
// for legacy single-session setups. This matches the AWS CLI v2 file names.
func TokenKey(inst aws.Instance) string {
	return sha1Hex(inst.CacheKeyMaterial())
}

// CredentialKey is the SHA-1 hex digest of "start_url:account_id:role_name".
func CredentialKey(inst aws.Instance, role aws.AccountRole) string {
	return sha1Hex(strings.Join([]string{inst.StartURL, role.AccountID, role.RoleName}, ":"))
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
