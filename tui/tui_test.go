package tui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"awsom/aws"
	"awsom/awsconfig"
)

var testAuth = aws.DeviceAuthorization{
	DeviceCode:              "device",
	UserCode:                "ABCD-EFGH",
	VerificationURI:         "https://device.sso.us-east-1.amazonaws.com/",
	VerificationURIComplete: "https://device.sso.us-east-1.amazonaws.com/?user_code=ABCD-EFGH",
	Interval:                5 * time.Second,
}

var testInst = aws.Instance{StartURL: "https://x.awsapps.com/start", Region: "us-east-1", SessionName: "org"}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestLoginModel_Prompt(t *testing.T) {
	var opened []string
	m := newLoginModel(context.Background(), testInst, nil, func(url string) error {
		opened = append(opened, url)
		return errors.New("no browser")
	})
	assert.Contains(t, m.View(), "Registering device")

	prompt := aws.NewPrompt(testAuth)
	updated, _ := m.Update(promptMsg{prompt: prompt})
	m = updated.(loginModel)

	assert.True(t, isClosed(prompt.Proceeded()))
	assert.Equal(t, []string{testAuth.VerificationURIComplete}, opened)
	assert.Contains(t, m.View(), "ABCD-EFGH")
}

func TestLoginModel_Done(t *testing.T) {
	m := newLoginModel(context.Background(), testInst, nil, nil)
	tok := &aws.Token{AccessToken: "token"}

	updated, cmd := m.Update(loginDoneMsg{token: tok})
	m = updated.(loginModel)

	require.NotNil(t, cmd)
	assert.Equal(t, tok, m.token)
	assert.NoError(t, m.err)
	assert.Empty(t, m.View())
}

func TestLoginModel_Cancel(t *testing.T) {
	m := newLoginModel(context.Background(), testInst, nil, nil)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = updated.(loginModel)

	require.NotNil(t, cmd)
	assert.ErrorIs(t, m.err, context.Canceled)
	assert.ErrorIs(t, m.ctx.Err(), context.Canceled)
}

func TestRunLoginCommandClosesPrompts(t *testing.T) {
	prompts := make(chan *aws.Prompt)
	cmd := runLogin(context.Background(), func(ctx context.Context, _ chan<- *aws.Prompt) (*aws.Token, error) {
		return &aws.Token{AccessToken: "cached"}, nil
	}, prompts)

	msg := cmd().(loginDoneMsg)
	assert.Equal(t, "cached", msg.token.AccessToken)
	assert.Nil(t, waitForPrompt(prompts)())
}

func TestPlainLogin(t *testing.T) {
	var out bytes.Buffer
	var opened string

	login := func(ctx context.Context, prompts chan<- *aws.Prompt) (*aws.Token, error) {
		p := aws.NewPrompt(testAuth)
		prompts <- p
		<-p.Proceeded()
		return &aws.Token{AccessToken: "token"}, nil
	}

	tok, err := PlainLogin(context.Background(), &out, login, func(url string) error {
		opened = url
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "token", tok.AccessToken)
	assert.Equal(t, testAuth.VerificationURIComplete, opened)
	assert.Contains(t, out.String(), "ABCD-EFGH")
	assert.Contains(t, out.String(), testAuth.VerificationURIComplete)
}

func TestPlainLogin_Error(t *testing.T) {
	var out bytes.Buffer
	boom := errors.New("boom")

	_, err := PlainLogin(context.Background(), &out, func(ctx context.Context, prompts chan<- *aws.Prompt) (*aws.Token, error) {
		return nil, boom
	}, nil)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, out.String())
}

func TestPicker(t *testing.T) {
	roles := []aws.AccountRole{
		{AccountID: "111111111111", AccountName: "Alpha", RoleName: "Admin"},
		{AccountID: "222222222222", AccountName: "zeta", RoleName: "ReadOnly"},
	}

	t.Run("enter selects the highlighted role", func(t *testing.T) {
		m := newPickerModel("Pick a role", roles)
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m = updated.(pickerModel)

		require.NotNil(t, cmd)
		require.NotNil(t, m.selected)
		assert.Equal(t, roles[0], *m.selected)
	})

	t.Run("q quits without a choice", func(t *testing.T) {
		m := newPickerModel("Pick a role", roles)
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		m = updated.(pickerModel)

		assert.Nil(t, m.selected)
		assert.True(t, m.quitting)
	})

	t.Run("items", func(t *testing.T) {
		items := roleItems(roles)
		require.Len(t, items, 2)
		it := items[1].(item)
		assert.Equal(t, "zeta/ReadOnly", it.Title())
		assert.Equal(t, "Account ID: 222222222222", it.Description())
		assert.Contains(t, it.FilterValue(), "222222222222")
	})
}

func TestValidateSession(t *testing.T) {
	valid := awsconfig.SSOSession{Name: "org", StartURL: "https://x.awsapps.com/start", Region: "us-east-1"}

	tests := []struct {
		name    string
		mutate  func(s *awsconfig.SSOSession)
		wantErr string
	}{
		{name: "valid", mutate: func(*awsconfig.SSOSession) {}},
		{name: "empty name", mutate: func(s *awsconfig.SSOSession) { s.Name = "" }, wantErr: "name cannot be empty"},
		{name: "space in name", mutate: func(s *awsconfig.SSOSession) { s.Name = "my org" }, wantErr: "spaces or brackets"},
		{name: "duplicate", mutate: func(s *awsconfig.SSOSession) { s.Name = "taken" }, wantErr: "already exists"},
		{name: "empty url", mutate: func(s *awsconfig.SSOSession) { s.StartURL = "" }, wantErr: "start URL cannot be empty"},
		{name: "http url", mutate: func(s *awsconfig.SSOSession) { s.StartURL = "http://x.awsapps.com/start" }, wantErr: "should look like"},
		{name: "empty region", mutate: func(s *awsconfig.SSOSession) { s.Region = "" }, wantErr: "region cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := ValidateSession(s, []string{"taken"})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSessionForm(t *testing.T) {
	defaults := awsconfig.SSOSession{Name: "org", StartURL: "https://x.awsapps.com/start", Region: "eu-west-1"}
	var model tea.Model = newSessionFormModel(defaults, nil)

	for range 3 {
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
	}
	assert.Equal(t, 3, model.(sessionFormModel).focusIndex)

	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m := model.(sessionFormModel)
	require.NotNil(t, m.result)
	assert.Equal(t, defaults, *m.result)
}

func TestSessionForm_ShowsValidationError(t *testing.T) {
	var model tea.Model = newSessionFormModel(awsconfig.SSOSession{Name: "org"}, nil)
	for range 3 {
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
	}
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})

	m := model.(sessionFormModel)
	assert.Nil(t, m.result)
	assert.Equal(t, "start URL cannot be empty", m.formError)
	assert.Contains(t, m.View(), "start URL cannot be empty")
}
