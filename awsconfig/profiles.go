package awsconfig

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"awsom/aws"
	errUtils "awsom/errors"
)

const (
	DefaultRegion = "us-east-1"
	DefaultOutput = "json"

	// ToolDefaultsProfile holds the region and output applied to new profiles.
	ToolDefaultsProfile = ToolName + "-defaults"
)

// ProfileWrite is everything needed to persist one activated profile.
type ProfileWrite struct {
	Profile     string
	Credentials aws.RoleCredentials
	Region      string
	Output      string
	Role        *aws.AccountRole
	SessionName string

	// StartURL picks the sso-session to record when SessionName is empty.
	StartURL string
}

// ProfileDetails is the config-file view of a profile.
type ProfileDetails struct {
	Name       string `json:"name" yaml:"name"`
	Region     string `json:"region,omitempty" yaml:"region,omitempty"`
	Output     string `json:"output,omitempty" yaml:"output,omitempty"`
	SSOSession string `json:"sso_session,omitempty" yaml:"sso_session,omitempty"`
	AccountID  string `json:"sso_account_id,omitempty" yaml:"sso_account_id,omitempty"`
	RoleName   string `json:"sso_role_name,omitempty" yaml:"sso_role_name,omitempty"`
}

// Defaults is a region/output pair.
type Defaults struct {
	Region string
	Output string
}

func withFallbacks(d Defaults) Defaults {
	if d.Region == "" {
		d.Region = DefaultRegion
	}
	if d.Output == "" {
		d.Output = DefaultOutput
	}
	return d
}

func (e *Engine) collision(user *document, profile string) error {
	name := configSectionName(profile)
	if user.has(name) {
		return fmt.Errorf("%w: [%s] is defined in the user-managed part of %s; import it first",
			errUtils.ErrUserManagedCollision, name, e.configPath)
	}
	return nil
}

// WriteCredentialsWithMetadata stores credentials for w.Profile in the
// credentials file, with account, role and validity comments, and records
// the profile in the tool-managed region of the config file. A profile that
// lives in the user-managed region is refused before anything is written.
func (e *Engine) WriteCredentialsWithMetadata(w ProfileWrite) error {
	if w.Profile == "" {
		return fmt.Errorf("%w: profile name is required", errUtils.ErrInvalidConfig)
	}
	if w.Output == "" {
		w.Output = DefaultOutput
	}

	return e.withLock(func() error {
		configText, err := readFile(e.configPath)
		if err != nil {
			return err
		}
		// Without markers everything after the header is user-managed.
		_, user, _ := splitRegions(configText)
		if err := e.collision(parseDocument(user), w.Profile); err != nil {
			return err
		}

		sessionName := w.SessionName
		if sessionName == "" && w.Role != nil {
			sessionName = sessionForStartURL(parseDocument(configText), w.StartURL)
		}

		if err := e.updateFile(e.credentialsPath, func(text string) (string, error) {
			return writeCredentialSection(text, w), nil
		}); err != nil {
			return err
		}

		return e.updateFile(e.configPath, func(text string) (string, error) {
			return editConfigRegions(text, func(_, tool *document) error {
				sec := tool.ensure(configSectionName(w.Profile))
				if w.Region != "" {
					sec.set(keyRegion, w.Region)
				}
				sec.set(keyOutput, w.Output)
				if w.Role != nil {
					if sessionName != "" {
						sec.set(keySSOSession, sessionName)
					}
					sec.set(keySSOAccountID, w.Role.AccountID)
					sec.set(keySSORoleName, w.Role.RoleName)
				}
				log.Debug("Wrote profile", "profile", w.Profile, "key", maskAccessKey(w.Credentials.AccessKeyID))
				return nil
			})
		})
	})
}

// sessionForStartURL names the first sso-session pointing at startURL.
func sessionForStartURL(doc *document, startURL string) string {
	if startURL == "" {
		return ""
	}
	for _, s := range doc.sections {
		name, ok := strings.CutPrefix(s.name, ssoSessionPrefix)
		if !ok {
			continue
		}
		if url, _ := s.get(keySSOStartURL); sameStartURL(url, startURL) {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

func sameStartURL(a, b string) bool {
	return strings.TrimSuffix(strings.TrimSpace(a), "/") == strings.TrimSuffix(strings.TrimSpace(b), "/")
}

func writeCredentialSection(text string, w ProfileWrite) string {
	doc := parseDocument(text)
	sec := doc.ensure(w.Profile)

	var comments []string
	if w.Role != nil {
		comments = append(comments,
			"# "+metadataAccount+" "+w.Role.AccountID,
			"# "+metadataRole+" "+w.Role.RoleName,
		)
	}
	comments = append(comments, "# "+metadataValid+" "+w.Credentials.Expiration.UTC().Format(time.RFC3339))
	sec.replaceComments(allMetadataLabels, comments)

	sec.set(keyAccessKeyID, w.Credentials.AccessKeyID)
	sec.set(keySecretAccessKey, w.Credentials.SecretAccessKey)
	sec.set(keySessionToken, w.Credentials.SessionToken)

	return CleanupEmptyLines(doc.renderCredentials())
}

var allMetadataLabels = []string{metadataAccount, metadataRole, metadataValid, metadataExpiration, metadataInvalidated}

// WriteDefaultConfig sets region and output of [default] in the tool-managed region.
func (e *Engine) WriteDefaultConfig(region, output string) error {
	return e.writeProfileSettings(defaultSection, Defaults{Region: region, Output: output})
}

// ReadDefaultConfig reads [default], falling back to us-east-1 and json.
func (e *Engine) ReadDefaultConfig() (Defaults, error) {
	return e.readProfileSettings(defaultSection)
}

// WriteToolDefaults stores the defaults applied to newly activated profiles.
func (e *Engine) WriteToolDefaults(region, output string) error {
	return e.writeProfileSettings(ToolDefaultsProfile, Defaults{Region: region, Output: output})
}

// ReadToolDefaults reads the defaults for new profiles, falling back like ReadDefaultConfig.
func (e *Engine) ReadToolDefaults() (Defaults, error) {
	return e.readProfileSettings(ToolDefaultsProfile)
}

func (e *Engine) writeProfileSettings(profile string, d Defaults) error {
	d = withFallbacks(d)
	return e.withLock(func() error {
		return e.updateFile(e.configPath, func(text string) (string, error) {
			return editConfigRegions(text, func(user, tool *document) error {
				if err := e.collision(user, profile); err != nil {
					return err
				}
				sec := tool.ensure(configSectionName(profile))
				sec.set(keyRegion, d.Region)
				sec.set(keyOutput, d.Output)
				return nil
			})
		})
	})
}

func (e *Engine) readProfileSettings(profile string) (Defaults, error) {
	cfg, err := loadINI(e.configPath)
	if err != nil {
		return Defaults{}, err
	}
	sec, err := cfg.GetSection(configSectionName(profile))
	if err != nil {
		return withFallbacks(Defaults{}), nil
	}
	return withFallbacks(Defaults{
		Region: keyString(sec, keyRegion),
		Output: keyString(sec, keyOutput),
	}), nil
}

// RenameProfile renames the profile in both files, wherever its sections live.
func (e *Engine) RenameProfile(from, to string) error {
	if from == "" || to == "" {
		return fmt.Errorf("%w: profile names must not be empty", errUtils.ErrInvalidConfig)
	}
	if from == to {
		return nil
	}

	return e.withLock(func() error {
		credText, err := readFile(e.credentialsPath)
		if err != nil {
			return err
		}
		configText, err := readFile(e.configPath)
		if err != nil {
			return err
		}

		credDoc := parseDocument(credText)
		configDoc := parseDocument(configText)
		if credDoc.has(to) || configDoc.has(configSectionName(to)) {
			return fmt.Errorf("%w: profile %q already exists", errUtils.ErrConfig, to)
		}
		if !credDoc.has(from) && !configDoc.has(configSectionName(from)) {
			return fmt.Errorf("%w: %q", errUtils.ErrProfileNotFound, from)
		}

		if err := e.updateFile(e.credentialsPath, func(text string) (string, error) {
			doc := parseDocument(text)
			if !doc.rename(from, to) {
				return text, nil
			}
			return CleanupEmptyLines(doc.renderCredentials()), nil
		}); err != nil {
			return err
		}
		if err := e.updateFile(e.configPath, func(text string) (string, error) {
			return renameConfigSection(text, configSectionName(from), configSectionName(to)), nil
		}); err != nil {
			return err
		}
		log.Debug("Renamed profile", "from", from, "to", to)
		return nil
	})
}

// renameConfigSection renames a section in whichever region holds it. The
// tool-managed region is re-sorted afterwards.
func renameConfigSection(text, from, to string) string {
	if !HasMarkers(text) {
		doc := parseDocument(text)
		if !doc.rename(from, to) {
			return text
		}
		return CleanupEmptyLines(doc.String())
	}

	header, user, tool := splitRegions(text)
	userDoc := parseDocument(user)
	toolDoc := parseDocument(tool)
	renamedUser := userDoc.rename(from, to)
	renamedTool := toolDoc.rename(from, to)
	if !renamedUser && !renamedTool {
		return text
	}
	return CleanupEmptyLines(reconstruct(header, joinTrimmed(strings.Split(userDoc.String(), "\n")), toolDoc.renderSorted()))
}

// DeleteProfile removes the profile from both files. A missing profile is a no-op.
func (e *Engine) DeleteProfile(name string) error {
	return e.withLock(func() error {
		if err := e.updateFile(e.credentialsPath, func(text string) (string, error) {
			doc := parseDocument(text)
			if !doc.remove(name) {
				return text, nil
			}
			return CleanupEmptyLines(doc.String()), nil
		}); err != nil {
			return err
		}

		return e.updateFile(e.configPath, func(text string) (string, error) {
			return removeConfigSection(text, configSectionName(name)), nil
		})
	})
}

// removeConfigSection deletes a section from whichever region holds it,
// leaving marker lines alone.
func removeConfigSection(text, name string) string {
	if !HasMarkers(text) {
		doc := parseDocument(text)
		if !doc.remove(name) {
			return text
		}
		return CleanupEmptyLines(doc.String())
	}

	header, user, tool := splitRegions(text)
	userDoc := parseDocument(user)
	toolDoc := parseDocument(tool)
	removedUser := userDoc.remove(name)
	removedTool := toolDoc.remove(name)
	if !removedUser && !removedTool {
		return text
	}
	return CleanupEmptyLines(reconstruct(header, joinTrimmed(strings.Split(userDoc.String(), "\n")), toolDoc.renderSorted()))
}

// InvalidateProfile overwrites the credential keys with placeholders and
// marks the section invalid. Other keys and the account/role comments stay,
// so the profile can be reactivated later.
func (e *Engine) InvalidateProfile(name string) error {
	return e.withLock(func() error {
		return e.updateFile(e.credentialsPath, func(text string) (string, error) {
			doc := parseDocument(text)
			sec := doc.find(name)
			if sec == nil {
				return "", fmt.Errorf("%w: %q has no credentials in %s", errUtils.ErrProfileNotFound, name, e.credentialsPath)
			}

			var keep []string
			for _, label := range []string{metadataAccount, metadataRole} {
				if v, ok := sec.comment(label); ok {
					keep = append(keep, "# "+label+" "+v)
				}
			}
			keep = append(keep,
				"# "+metadataValid+" false",
				"# "+metadataInvalidated+" "+e.now().UTC().Format(time.RFC3339),
			)
			sec.replaceComments(allMetadataLabels, keep)
			sec.set(keyAccessKeyID, invalidAccessKeyID)
			sec.set(keySecretAccessKey, invalidSecretKey)
			sec.set(keySessionToken, invalidSessionToken)

			return CleanupEmptyLines(doc.String()), nil
		})
	})
}

// ImportProfile moves a profile section from the user-managed region into
// the tool-managed region.
func (e *Engine) ImportProfile(name string) error {
	return e.importSection(configSectionName(name))
}

// ImportSession moves an sso-session section from the user-managed region
// into the tool-managed region.
func (e *Engine) ImportSession(name string) error {
	return e.importSection(sessionSectionName(name))
}

func (e *Engine) importSection(name string) error {
	return e.withLock(func() error {
		return e.updateFile(e.configPath, func(text string) (string, error) {
			header, user, tool := splitRegions(EnsureMarkers(text))
			userDoc := parseDocument(user)
			toolDoc := parseDocument(tool)

			sec := userDoc.find(name)
			if sec == nil {
				return "", fmt.Errorf("%w: [%s] is not in the user-managed part of %s", errUtils.ErrProfileNotFound, name, e.configPath)
			}
			if toolDoc.has(name) {
				return "", fmt.Errorf("%w: [%s] is already managed", errUtils.ErrConfig, name)
			}

			moved := &section{header: "[" + name + "]", name: name, body: slices.Clone(sec.trimmedBody())}
			userDoc.remove(name)
			toolDoc.sections = append(toolDoc.sections, moved)

			log.Info("Imported section", "section", name)
			return CleanupEmptyLines(reconstruct(header, joinTrimmed(strings.Split(userDoc.String(), "\n")), toolDoc.renderSorted())), nil
		})
	})
}

// Credentials reads the stored key material of a profile.
func (e *Engine) Credentials(name string) (*aws.RoleCredentials, error) {
	text, err := readFile(e.credentialsPath)
	if err != nil {
		return nil, err
	}
	sec := parseDocument(text).find(name)
	if sec == nil {
		return nil, fmt.Errorf("%w: %q has no credentials in %s", errUtils.ErrProfileNotFound, name, e.credentialsPath)
	}

	creds := &aws.RoleCredentials{}
	creds.AccessKeyID, _ = sec.get(keyAccessKeyID)
	creds.SecretAccessKey, _ = sec.get(keySecretAccessKey)
	creds.SessionToken, _ = sec.get(keySessionToken)
	if v, ok := sec.comment(metadataValid); ok {
		creds.Expiration, _ = time.Parse(time.RFC3339, v)
	}
	return creds, nil
}

// ProfileDetails reads a profile's config section.
func (e *Engine) ProfileDetails(name string) (*ProfileDetails, error) {
	cfg, err := loadINI(e.configPath)
	if err != nil {
		return nil, err
	}
	sec, err := cfg.GetSection(configSectionName(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not in %s", errUtils.ErrProfileNotFound, name, e.configPath)
	}
	return &ProfileDetails{
		Name:       name,
		Region:     keyString(sec, keyRegion),
		Output:     keyString(sec, keyOutput),
		SSOSession: keyString(sec, keySSOSession),
		AccountID:  keyString(sec, keySSOAccountID),
		RoleName:   keyString(sec, keySSORoleName),
	}, nil
}

// ListProfiles returns profile names from both files, default first.
func (e *Engine) ListProfiles() ([]string, error) {
	seen := map[string]bool{}

	cfg, err := loadINI(e.configPath)
	if err != nil {
		return nil, err
	}
	for _, sec := range cfg.Sections() {
		if name, ok := profileNameFromSection(sec.Name()); ok {
			seen[name] = true
		}
	}

	text, err := readFile(e.credentialsPath)
	if err != nil {
		return nil, err
	}
	for _, sec := range parseDocument(text).sections {
		seen[sec.name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		switch {
		case a == defaultSection:
			return -1
		case b == defaultSection:
			return 1
		}
		return strings.Compare(a, b)
	})
	return names, nil
}

// IsToolManaged reports whether the profile's config section sits in the tool-managed region.
func (e *Engine) IsToolManaged(name string) (bool, error) {
	text, err := readFile(e.configPath)
	if err != nil {
		return false, err
	}
	if !HasMarkers(text) {
		return false, nil
	}
	_, tool := SplitByMarker(text)
	return parseDocument(tool).has(configSectionName(name)), nil
}

// ExistingProfileName finds the profile whose credentials comments record
// role's account and role name.
func (e *Engine) ExistingProfileName(role aws.AccountRole) (string, bool, error) {
	text, err := readFile(e.credentialsPath)
	if err != nil {
		return "", false, err
	}
	for _, sec := range parseDocument(text).sections {
		account, _ := sec.comment(metadataAccount)
		roleName, _ := sec.comment(metadataRole)
		if account == role.AccountID && roleName == role.RoleName {
			return sec.name, true, nil
		}
	}
	return "", false, nil
}

// ProfileByRole finds a profile by its sso keys in the config file, falling
// back to the credentials comments.
func (e *Engine) ProfileByRole(session string, role aws.AccountRole) (string, bool, error) {
	cfg, err := loadINI(e.configPath)
	if err != nil {
		return "", false, err
	}
	for _, sec := range cfg.Sections() {
		name, ok := profileNameFromSection(sec.Name())
		if !ok {
			continue
		}
		if keyString(sec, keySSOSession) == session &&
			keyString(sec, keySSOAccountID) == role.AccountID &&
			keyString(sec, keySSORoleName) == role.RoleName {
			return name, true, nil
		}
	}
	return e.ExistingProfileName(role)
}

// maskAccessKey keeps the first and last four characters.
func maskAccessKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
