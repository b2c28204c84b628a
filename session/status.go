package session

import (
	"time"

	"awsom/aws"
)

// Status is the state of a profile's stored credentials.
type Status string

const (
	StatusActive   Status = "active"
	StatusExpiring Status = "expiring"
	StatusExpired  Status = "expired"
	StatusInactive Status = "inactive"
)

// ProfileSession is one profile of the credentials file and its state.
type ProfileSession struct {
	Name        string          `json:"name" yaml:"name"`
	AccountRole aws.AccountRole `json:"account_role" yaml:"account_role"`
	Expiration  time.Time       `json:"expiration,omitempty" yaml:"expiration,omitempty"`
	Status      Status          `json:"status" yaml:"status"`
	ToolManaged bool            `json:"tool_managed" yaml:"tool_managed"`
}

// Remaining formats the time left, or "-" for profiles without an expiration.
func (p ProfileSession) Remaining(now time.Time) string {
	if p.Expiration.IsZero() || p.Status == StatusInactive {
		return "-"
	}
	return aws.FormatRemaining(p.Expiration.Sub(now))
}

func statusAt(expiration time.Time, invalidated bool, now time.Time) Status {
	switch {
	case invalidated, expiration.IsZero():
		return StatusInactive
	case !now.Before(expiration):
		return StatusExpired
	case aws.IsExpiringSoon(expiration, now):
		return StatusExpiring
	default:
		return StatusActive
	}
}

// ProfileSessions reports every profile in the credentials file.
func (m *Manager) ProfileSessions() ([]ProfileSession, error) {
	statuses, err := m.files.ProfileStatuses()
	if err != nil {
		return nil, err
	}

	now := m.now()
	out := make([]ProfileSession, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, ProfileSession{
			Name:        st.Name,
			AccountRole: st.Role,
			Expiration:  st.Expiration,
			Status:      statusAt(st.Expiration, st.Invalidated, now),
			ToolManaged: st.ToolManaged,
		})
	}
	return out, nil
}
