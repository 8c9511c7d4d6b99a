// Package stripe adapts stripe-go to the settlement engine's payment gateway
// contract.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/settlement-engine/pkg/config"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
)

// Mode is the Stripe account mode a secret key belongs to.
type Mode string

const (
	ModeTest Mode = "test"
	ModeLive Mode = "live"
)

var (
	errAPIKeyRequired = errors.New("stripe api key is required")
	errSecretRequired = errors.New("stripe webhook secret is required")
	errUnknownKey     = errors.New("stripe api key must be a secret (sk_) or restricted (rk_) key")
)

// Client talks to Stripe with one account's credentials.
type Client struct {
	mode          Mode
	signingSecret string
}

// NewClient configures stripe-go for the process. The key's own mode must
// match the configured environment so a live key never runs in a sandbox
// deploy and vice versa.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errSecretRequired
	}

	mode, err := modeOf(key)
	if err != nil {
		return nil, err
	}
	if want := Mode(cfg.Environment()); want != mode {
		return nil, fmt.Errorf("stripe env %q configured with a %s-mode key", want, mode)
	}

	stripe.Key = key
	stripe.SetAppInfo(&stripe.AppInfo{Name: "settlement-engine"})

	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_mode", string(mode)), "stripe client ready")
	}
	return &Client{mode: mode, signingSecret: secret}, nil
}

func modeOf(key string) (Mode, error) {
	prefix, rest, ok := strings.Cut(key, "_")
	if !ok || (prefix != "sk" && prefix != "rk") {
		return "", errUnknownKey
	}
	switch {
	case strings.HasPrefix(rest, "test_"):
		return ModeTest, nil
	case strings.HasPrefix(rest, "live_"):
		return ModeLive, nil
	default:
		return "", fmt.Errorf("stripe api key has no test_/live_ marker")
	}
}

// Environment returns "test" or "live".
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return string(c.mode)
}

func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}
