package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const DefaultWebhookSecretHeader = "X-Vylarc-Webhook-Secret"

// CreditsConfig holds everything the credit ledger needs at runtime. It is
// built once at startup and passed to the services that use it.
type CreditsConfig struct {
	WebhookSecret       string
	WebhookSecretHeader string
	AdminEmail          string
	SKUCatalog          map[string]int64
	ActionCosts         map[string]int64
	LockTimeout         time.Duration
	LockRetries         int
}

// DefaultSKUCatalog is used when CREDITS_SKU_CATALOG is not set. Real
// quantities are a deployment decision.
func DefaultSKUCatalog() map[string]int64 {
	return map[string]int64{
		"vylarc_pack_500":    500,
		"vylarc_pack_2000":   2000,
		"vylarc_pack_5000":   5000,
		"vylarc_pack_10000":  10000,
		"vylarc_sub_monthly": 3000,
	}
}

func DefaultActionCosts() map[string]int64 {
	return map[string]int64{
		"CHAT_MESSAGE":    1,
		"CODE_RUN":        5,
		"FILE_UPLOAD":     5,
		"EMAIL_SEND":      10,
		"VOICE_SYNTHESIS": 10,
		"CALENDAR_CREATE": 20,
		"CODE_GENERATE":   50,
		"CODE_ANALYZE":    50,
		"EMAIL_DRAFT":     50,
		"DOC_ANALYZE":     75,
		"CALL_PER_MINUTE": 100,
		"FORM_CREATE":     100,
		"SHEET_CREATE":    100,
		"SLIDES_CREATE":   200,
	}
}

// LoadCreditsConfig reads the credits.* keys from viper. The SKU catalog and
// cost table may be given as JSON objects, e.g.
// CREDITS_SKU_CATALOG={"vylarc_pack_2000":2000}.
func LoadCreditsConfig(v *viper.Viper) (*CreditsConfig, error) {
	v.SetDefault("credits.webhook_secret_header", DefaultWebhookSecretHeader)
	v.SetDefault("credits.admin_email", "noreply@vylarc.com")
	v.SetDefault("credits.lock_timeout", 3*time.Second)
	v.SetDefault("credits.lock_retries", 3)

	cfg := &CreditsConfig{
		WebhookSecret:       v.GetString("credits.webhook_secret"),
		WebhookSecretHeader: v.GetString("credits.webhook_secret_header"),
		AdminEmail:          strings.ToLower(strings.TrimSpace(v.GetString("credits.admin_email"))),
		LockTimeout:         v.GetDuration("credits.lock_timeout"),
		LockRetries:         v.GetInt("credits.lock_retries"),
	}

	var err error
	cfg.SKUCatalog, err = loadQuantities(v, "credits.sku_catalog", DefaultSKUCatalog(), strings.ToLower)
	if err != nil {
		return nil, err
	}
	cfg.ActionCosts, err = loadQuantities(v, "credits.action_costs", DefaultActionCosts(), strings.ToUpper)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// viper lowercases keys of nested maps, so names are normalized with normKey
// regardless of how they were supplied.
func loadQuantities(v *viper.Viper, key string, defaults map[string]int64, normKey func(string) string) (map[string]int64, error) {
	val := v.Get(key)
	if val == nil {
		return defaults, nil
	}
	if s, ok := val.(string); ok && strings.TrimSpace(s) == "" {
		return defaults, nil
	}

	raw, err := cast.ToStringMapE(val)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}

	out := make(map[string]int64, len(raw))
	for name, val := range raw {
		qty, err := cast.ToInt64E(val)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, name, err)
		}
		out[normKey(strings.TrimSpace(name))] = qty
	}
	return out, nil
}

// Validate checks the invariants the ledger relies on.
func (c *CreditsConfig) Validate() error {
	if c.WebhookSecret == "" {
		return errors.New("credits.webhook_secret is required")
	}
	if c.WebhookSecretHeader == "" {
		return errors.New("credits.webhook_secret_header must not be empty")
	}
	for sku, credits := range c.SKUCatalog {
		if credits <= 0 {
			return fmt.Errorf("sku %q must grant a positive number of credits, got %d", sku, credits)
		}
	}
	for action, cost := range c.ActionCosts {
		if cost < 0 {
			return fmt.Errorf("action %q has a negative cost %d", action, cost)
		}
	}
	if c.LockTimeout < 0 {
		return errors.New("credits.lock_timeout must not be negative")
	}
	if c.LockRetries < 0 {
		return errors.New("credits.lock_retries must not be negative")
	}
	return nil
}
