package awsconfig

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"awsom/aws"
	errUtils "awsom/errors"
)

// SSOSession is an [sso-session NAME] block.
type SSOSession struct {
	Name     string `json:"name" yaml:"name"`
	StartURL string `json:"start_url" yaml:"start_url"`
	Region   string `json:"region" yaml:"region"`
	Scopes   string `json:"scopes" yaml:"scopes"`
}

// Instance converts the session into the identity used for caching.
func (s SSOSession) Instance() aws.Instance {
	return aws.Instance{StartURL: s.StartURL, Region: s.Region, SessionName: s.Name}
}

// WriteSession inserts or updates a session in the tool-managed region.
// Keys of an existing block are updated in place; other keys survive.
func (e *Engine) WriteSession(s SSOSession) error {
	if s.Name == "" || s.StartURL == "" || s.Region == "" {
		return fmt.Errorf("%w: sso-session needs a name, start URL and region", errUtils.ErrInvalidConfig)
	}

	return e.withLock(func() error {
		return e.updateFile(e.configPath, func(text string) (string, error) {
			return editConfigRegions(text, func(user, tool *document) error {
				name := sessionSectionName(s.Name)
				if user.has(name) {
					return fmt.Errorf("%w: [%s] is defined in the user-managed part of %s; import it first",
						errUtils.ErrUserManagedCollision, name, e.configPath)
				}

				sec := tool.ensure(name)
				sec.set(keySSOStartURL, s.StartURL)
				sec.set(keySSORegion, s.Region)
				switch {
				case s.Scopes != "":
					sec.set(keySSOScopes, s.Scopes)
				default:
					if _, ok := sec.get(keySSOScopes); !ok {
						sec.set(keySSOScopes, defaultScopes)
					}
				}
				log.Debug("Wrote sso-session", "name", s.Name, "path", e.configPath)
				return nil
			})
		})
	})
}

// DeleteSession removes a managed session. Missing sessions are a no-op.
func (e *Engine) DeleteSession(name string) error {
	return e.withLock(func() error {
		return e.updateFile(e.configPath, func(text string) (string, error) {
			header, user, tool := splitRegions(text)
			toolDoc := parseDocument(tool)
			if !HasMarkers(text) || !toolDoc.remove(sessionSectionName(name)) {
				return text, nil
			}
			return CleanupEmptyLines(reconstruct(header, user, toolDoc.renderSorted())), nil
		})
	})
}

// ReadAllSessions returns every session with both a start URL and a region,
// from either region of the file, sorted by name.
func (e *Engine) ReadAllSessions() ([]SSOSession, error) {
	cfg, err := loadINI(e.configPath)
	if err != nil {
		return nil, err
	}

	var sessions []SSOSession
	for _, sec := range cfg.Sections() {
		name, ok := strings.CutPrefix(sec.Name(), ssoSessionPrefix)
		if !ok {
			continue
		}
		s := SSOSession{
			Name:     strings.TrimSpace(name),
			StartURL: keyString(sec, keySSOStartURL),
			Region:   keyString(sec, keySSORegion),
			Scopes:   keyString(sec, keySSOScopes),
		}
		if s.StartURL == "" || s.Region == "" {
			continue
		}
		if s.Scopes == "" {
			s.Scopes = defaultScopes
		}
		sessions = append(sessions, s)
	}

	slices.SortFunc(sessions, func(a, b SSOSession) int { return strings.Compare(a.Name, b.Name) })
	return sessions, nil
}

// FindSession looks a session up by name.
func (e *Engine) FindSession(name string) (*SSOSession, error) {
	sessions, err := e.ReadAllSessions()
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("%w: sso-session %q not found in %s", errUtils.ErrConfig, name, e.configPath)
}

// ResolveSession picks the instance to use: an explicit start URL and region
// win, then a named session, then the only configured session.
func (e *Engine) ResolveSession(name, startURL, region string) (aws.Instance, error) {
	if startURL != "" || region != "" {
		if startURL == "" || region == "" {
			return aws.Instance{}, fmt.Errorf("%w: start URL and region must be given together", errUtils.ErrInvalidConfig)
		}
		return aws.Instance{StartURL: startURL, Region: region, SessionName: name}, nil
	}

	if name != "" {
		s, err := e.FindSession(name)
		if err != nil {
			return aws.Instance{}, err
		}
		return s.Instance(), nil
	}

	sessions, err := e.ReadAllSessions()
	if err != nil {
		return aws.Instance{}, err
	}
	switch len(sessions) {
	case 0:
		return aws.Instance{}, fmt.Errorf("%w: no sso-session configured in %s", errUtils.ErrConfig, e.configPath)
	case 1:
		return sessions[0].Instance(), nil
	default:
		names := make([]string, len(sessions))
		for i, s := range sessions {
			names[i] = s.Name
		}
		return aws.Instance{}, fmt.Errorf("%w: several sso-sessions configured, pick one of: %s",
			errUtils.ErrConfig, strings.Join(names, ", "))
	}
}
