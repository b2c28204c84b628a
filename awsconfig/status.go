package awsconfig

import (
	"strings"
	"time"

	"awsom/aws"
)

// ProfileStatus is what the credentials file says about one profile.
type ProfileStatus struct {
	Name        string
	Role        aws.AccountRole
	Expiration  time.Time
	Invalidated bool
	ToolManaged bool
}

// HasExpiration reports whether a validity timestamp was recorded.
func (s ProfileStatus) HasExpiration() bool {
	return !s.Expiration.IsZero()
}

// ProfileStatuses reads the metadata comments of every credentials section.
func (e *Engine) ProfileStatuses() ([]ProfileStatus, error) {
	text, err := readFile(e.credentialsPath)
	if err != nil {
		return nil, err
	}
	configText, err := readFile(e.configPath)
	if err != nil {
		return nil, err
	}
	var managed *document
	if HasMarkers(configText) {
		_, tool := SplitByMarker(configText)
		managed = parseDocument(tool)
	}

	var statuses []ProfileStatus
	for _, sec := range parseDocument(text).sections {
		st := ProfileStatus{Name: sec.name}
		st.Role.AccountID, _ = sec.comment(metadataAccount)
		st.Role.RoleName, _ = sec.comment(metadataRole)

		for _, label := range []string{metadataValid, metadataExpiration} {
			v, ok := sec.comment(label)
			if !ok {
				continue
			}
			if strings.EqualFold(v, "false") {
				st.Invalidated = true
				continue
			}
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				st.Expiration = ts
				break
			}
		}
		if _, ok := sec.comment(metadataInvalidated); ok {
			st.Invalidated = true
		}
		if managed != nil {
			st.ToolManaged = managed.has(configSectionName(sec.name))
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}
