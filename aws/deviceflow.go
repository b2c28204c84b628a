package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc/types"
	"github.com/aws/smithy-go"
	"github.com/charmbracelet/log"

	errUtils "awsom/errors"
)

const (
	DefaultClientName = "awsom"
	DefaultScope      = "sso:account:access"

	DefaultPollInterval = 5 * time.Second
	SlowDownIncrement   = 5 * time.Second

	deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"
)

// FlowState tracks where a device-flow run is.
type FlowState int

const (
	StateUnregistered FlowState = iota
	StateClientRegistered
	StateAuthorizationStarted
	StatePolling
	StateAuthorized
	StateExpired
	StateFailed
)

func (s FlowState) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateClientRegistered:
		return "client-registered"
	case StateAuthorizationStarted:
		return "authorization-started"
	case StatePolling:
		return "polling"
	case StateAuthorized:
		return "authorized"
	case StateExpired:
		return "expired"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("FlowState(%d)", int(s))
	}
}

// Registration is a public OIDC client registered for one flow run.
type Registration struct {
	ClientID     string
	ClientSecret string
}

type pollOutcome int

const (
	pollFailed pollOutcome = iota
	pollPending
	pollSlowDown
	pollExpired
)

// RegisterClient registers a fresh public OIDC client. Registrations are not reused across runs.
func (c *Client) RegisterClient(ctx context.Context) (*Registration, error) {
	out, err := c.oidc.RegisterClient(ctx, &ssooidc.RegisterClientInput{
		ClientName: aws.String(c.clientName),
		ClientType: aws.String("public"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to register OIDC client: %w", errUtils.ErrProvider, err)
	}
	if aws.ToString(out.ClientId) == "" || aws.ToString(out.ClientSecret) == "" {
		return nil, fmt.Errorf("%w: client registration returned no client id or secret", errUtils.ErrProvider)
	}

	return &Registration{
		ClientID:     aws.ToString(out.ClientId),
		ClientSecret: aws.ToString(out.ClientSecret),
	}, nil
}

// StartDeviceAuthorization asks the provider for a device and user code.
func (c *Client) StartDeviceAuthorization(ctx context.Context, reg *Registration, startURL string) (*DeviceAuthorization, error) {
	out, err := c.oidc.StartDeviceAuthorization(ctx, &ssooidc.StartDeviceAuthorizationInput{
		ClientId:     aws.String(reg.ClientID),
		ClientSecret: aws.String(reg.ClientSecret),
		StartUrl:     aws.String(startURL),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start device authorization: %w", errUtils.ErrProvider, err)
	}
	if aws.ToString(out.DeviceCode) == "" || aws.ToString(out.UserCode) == "" || aws.ToString(out.VerificationUri) == "" {
		return nil, fmt.Errorf("%w: device authorization response is incomplete", errUtils.ErrProvider)
	}

	auth := &DeviceAuthorization{
		DeviceCode:              aws.ToString(out.DeviceCode),
		UserCode:                aws.ToString(out.UserCode),
		VerificationURI:         aws.ToString(out.VerificationUri),
		VerificationURIComplete: aws.ToString(out.VerificationUriComplete),
		Interval:                time.Duration(out.Interval) * time.Second,
	}
	if out.ExpiresIn > 0 {
		auth.ExpiresAt = c.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	return auth, nil
}

// PollForToken polls CreateToken until the user approves, the authorization
// expires, the provider fails, or ctx is done. There is no retry limit.
func (c *Client) PollForToken(ctx context.Context, reg *Registration, auth *DeviceAuthorization) (*Token, error) {
	interval := auth.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	input := &ssooidc.CreateTokenInput{
		ClientId:     aws.String(reg.ClientID),
		ClientSecret: aws.String(reg.ClientSecret),
		DeviceCode:   aws.String(auth.DeviceCode),
		GrantType:    aws.String(deviceCodeGrantType),
	}

	for attempt := 1; ; attempt++ {
		out, err := c.oidc.CreateToken(ctx, input)
		if err == nil {
			return c.tokenFromOutput(out)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		switch classifyPollError(err) {
		case pollPending:
			log.Debug("Authorization pending", "attempt", attempt, "interval", interval)
		case pollSlowDown:
			interval += SlowDownIncrement
			log.Debug("Provider asked to slow down", "attempt", attempt, "interval", interval)
		case pollExpired:
			return nil, fmt.Errorf("%w: %w", errUtils.ErrAuthorizationExpired, err)
		default:
			return nil, fmt.Errorf("%w: failed to create token: %w", errUtils.ErrProvider, err)
		}

		if err := c.sleep(ctx, interval); err != nil {
			return nil, err
		}
	}
}

func (c *Client) tokenFromOutput(out *ssooidc.CreateTokenOutput) (*Token, error) {
	if out == nil || aws.ToString(out.AccessToken) == "" {
		return nil, fmt.Errorf("%w: token response has no access token", errUtils.ErrProvider)
	}
	return &Token{
		AccessToken:  aws.ToString(out.AccessToken),
		ExpiresAt:    c.now().Add(time.Duration(out.ExpiresIn) * time.Second).UTC().Truncate(time.Second),
		RefreshToken: aws.ToString(out.RefreshToken),
		Region:       c.region,
	}, nil
}

func classifyPollError(err error) pollOutcome {
	var pending *types.AuthorizationPendingException
	var slowDown *types.SlowDownException
	var expired *types.ExpiredTokenException
	switch {
	case errors.As(err, &pending):
		return pollPending
	case errors.As(err, &slowDown):
		return pollSlowDown
	case errors.As(err, &expired):
		return pollExpired
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AuthorizationPendingException", "authorization_pending":
			return pollPending
		case "SlowDownException", "slow_down":
			return pollSlowDown
		case "ExpiredTokenException", "expired_token":
			return pollExpired
		}
	}
	return pollFailed
}

// Authorize runs the whole device flow for startURL. When prompts is not nil
// the authorization details are sent on it and polling waits until the
// receiver calls Proceed.
func (c *Client) Authorize(ctx context.Context, startURL string, prompts chan<- *Prompt) (*Token, error) {
	state := StateUnregistered
	transition := func(next FlowState) {
		log.Debug("Device flow", "from", state, "to", next)
		state = next
	}

	reg, err := c.RegisterClient(ctx)
	if err != nil {
		transition(StateFailed)
		return nil, err
	}
	transition(StateClientRegistered)

	auth, err := c.StartDeviceAuthorization(ctx, reg, startURL)
	if err != nil {
		transition(StateFailed)
		return nil, err
	}
	transition(StateAuthorizationStarted)

	if prompts != nil {
		prompt := NewPrompt(*auth)
		select {
		case prompts <- prompt:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		select {
		case <-prompt.Proceeded():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	transition(StatePolling)
	token, err := c.PollForToken(ctx, reg, auth)
	if err != nil {
		if errors.Is(err, errUtils.ErrAuthorizationExpired) {
			transition(StateExpired)
		} else {
			transition(StateFailed)
		}
		return nil, err
	}
	transition(StateAuthorized)

	token.StartURL = startURL
	return token, nil
}
