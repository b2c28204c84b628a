package aws

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ExpiringSoonWindow is how close to expiry credentials are reported as expiring.
const ExpiringSoonWindow = 5 * time.Minute

// Instance identifies one configured SSO endpoint.
type Instance struct {
	StartURL    string
	Region      string
	SessionName string
}

// CacheKeyMaterial returns the session name when set, otherwise the start URL.
func (i Instance) CacheKeyMaterial() string {
	if i.SessionName != "" {
		return i.SessionName
	}
	return i.StartURL
}

func (i Instance) String() string {
	if i.SessionName != "" {
		return fmt.Sprintf("%s (%s)", i.SessionName, i.StartURL)
	}
	return i.StartURL
}

// Token is an SSO access token issued by the device flow.
type Token struct {
	AccessToken  string
	ExpiresAt    time.Time
	RefreshToken string
	Region       string
	StartURL     string
}

func (t *Token) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

func (t *Token) IsExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ExpiresIn returns the remaining lifetime, never negative.
func (t *Token) ExpiresIn() time.Duration {
	d := time.Until(t.ExpiresAt)
	if d < 0 {
		return 0
	}
	return d
}

// ExpirationDisplay renders the remaining lifetime as "1h 30m", "12 minutes" or "EXPIRED".
func (t *Token) ExpirationDisplay() string {
	d := t.ExpiresIn()
	if d <= 0 {
		return "EXPIRED"
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// tokenDocument is the on-disk shape written by the AWS CLI v2.
type tokenDocument struct {
	AccessToken  string `json:"accessToken"`
	ExpiresAt    string `json:"expiresAt"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Region       string `json:"region,omitempty"`
	StartURL     string `json:"startUrl,omitempty"`
}

func (t Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(tokenDocument{
		AccessToken:  t.AccessToken,
		ExpiresAt:    t.ExpiresAt.UTC().Format(time.RFC3339),
		RefreshToken: t.RefreshToken,
		Region:       t.Region,
		StartURL:     t.StartURL,
	})
}

// UnmarshalJSON accepts camelCase and snake_case keys. expiresAt may be an
// RFC3339 string or epoch seconds.
func (t *Token) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	field := func(keys ...string) json.RawMessage {
		for _, k := range keys {
			if v, ok := raw[k]; ok && string(v) != "null" {
				return v
			}
		}
		return nil
	}
	str := func(keys ...string) (string, error) {
		v := field(keys...)
		if v == nil {
			return "", nil
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", fmt.Errorf("field %s: %w", keys[0], err)
		}
		return s, nil
	}

	var tok Token
	var err error
	if tok.AccessToken, err = str("accessToken", "access_token"); err != nil {
		return err
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("token document has no access token")
	}
	if tok.RefreshToken, err = str("refreshToken", "refresh_token"); err != nil {
		return err
	}
	if tok.Region, err = str("region"); err != nil {
		return err
	}
	if tok.StartURL, err = str("startUrl", "start_url"); err != nil {
		return err
	}

	expires := field("expiresAt", "expires_at")
	if expires == nil {
		return fmt.Errorf("token document has no expiry")
	}
	if tok.ExpiresAt, err = parseTimestamp(expires); err != nil {
		return err
	}

	*t = tok
	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		// Older CLI releases wrote "2006-01-02T15:04:05UTC".
		if strings.HasSuffix(s, "UTC") {
			s = strings.TrimSuffix(s, "UTC") + "Z"
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts.UTC(), nil
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %s", string(raw))
	}
	secs, err := n.Int64()
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %s", string(raw))
	}
	return time.Unix(secs, 0).UTC(), nil
}

// Account is an AWS account visible to the signed-in principal.
type Account struct {
	ID   string `json:"account_id"`
	Name string `json:"account_name"`
}

// AccountRole is a discoverable (account, role) pairing.
type AccountRole struct {
	AccountID   string `json:"account_id" yaml:"account_id"`
	AccountName string `json:"account_name" yaml:"account_name"`
	RoleName    string `json:"role_name" yaml:"role_name"`
}

// DisplayName returns "Account/Role".
func (r AccountRole) DisplayName() string {
	return fmt.Sprintf("%s/%s", r.AccountName, r.RoleName)
}

// FullDisplay returns "Account (id): Role".
func (r AccountRole) FullDisplay() string {
	return fmt.Sprintf("%s (%s): %s", r.AccountName, r.AccountID, r.RoleName)
}

// RoleCredentials are temporary credentials for an account role.
type RoleCredentials struct {
	AccessKeyID     string    `json:"access_key_id"`
	SecretAccessKey string    `json:"secret_access_key"`
	SessionToken    string    `json:"session_token"`
	Expiration      time.Time `json:"expiration"`
}

func (c *RoleCredentials) IsExpired() bool {
	return !time.Now().Before(c.Expiration)
}

func (c *RoleCredentials) ExpirationDisplay() string {
	return FormatRemaining(time.Until(c.Expiration))
}

// Env returns the environment assignments for these credentials in a stable order.
func (c *RoleCredentials) Env(region string) []string {
	env := []string{
		"AWS_ACCESS_KEY_ID=" + c.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY=" + c.SecretAccessKey,
		"AWS_SESSION_TOKEN=" + c.SessionToken,
	}
	if region != "" {
		env = append(env, "AWS_REGION="+region, "AWS_DEFAULT_REGION="+region)
	}
	return env
}

// FormatRemaining renders a remaining duration as "1h 5m", "4m 10s", "30s" or "EXPIRED".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "EXPIRED"
	}
	d = d.Truncate(time.Second)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// IsExpiringSoon reports whether expiration falls within ExpiringSoonWindow of now.
func IsExpiringSoon(expiration, now time.Time) bool {
	remaining := expiration.Sub(now)
	return remaining > 0 && remaining <= ExpiringSoonWindow
}

// DeviceAuthorization is what the user needs to approve a device-flow login.
type DeviceAuthorization struct {
	DeviceCode              string
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	Interval                time.Duration
	ExpiresAt               time.Time
}

// BrowserURL prefers the complete verification URI, which embeds the user code.
func (d DeviceAuthorization) BrowserURL() string {
	if d.VerificationURIComplete != "" {
		return d.VerificationURIComplete
	}
	return d.VerificationURI
}

// Prompt is handed to the presentation layer once the device authorization
// is available. Polling starts after Proceed is called.
type Prompt struct {
	Authorization DeviceAuthorization

	once    sync.Once
	proceed chan struct{}
}

func NewPrompt(auth DeviceAuthorization) *Prompt {
	return &Prompt{Authorization: auth, proceed: make(chan struct{})}
}

// Proceed releases the waiting flow. Safe to call more than once.
func (p *Prompt) Proceed() {
	p.once.Do(func() { close(p.proceed) })
}

// Proceeded is closed once Proceed has been called.
func (p *Prompt) Proceeded() <-chan struct{} {
	return p.proceed
}

// CallerIdentity is the STS view of a set of credentials.
type CallerIdentity struct {
	Account string `json:"account"`
	Arn     string `json:"arn"`
	UserID  string `json:"user_id"`
}
