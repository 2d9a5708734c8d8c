package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	punchcard "github.com/punchcard-app/punchcard"
)

// AppConfig is the env-driven configuration. A .env file is loaded when
// present; process environment wins.
type AppConfig struct {
	Debug                   bool
	HTTPAddr                string
	DSN                     string
	SigningKey              string
	SigningMethod           string
	ContextKey              string
	TokenLookup             string
	AuthScheme              string
	Issuer                  string
	Audience                []string
	TokenExpiration         int
	InvitationValidityHours int
	TemplatesDir            string
	SeedAdminUsername       string
	SeedAdminEmail          string
}

var _ punchcard.Config = (*AppConfig)(nil)

func LoadConfig() (*AppConfig, error) {
	// Missing .env is fine, env vars alone are a valid configuration.
	_ = godotenv.Load()

	cfg := &AppConfig{
		Debug:                   envBool("PUNCHCARD_DEBUG", false),
		HTTPAddr:                envStr("PUNCHCARD_HTTP_ADDR", ":3000"),
		DSN:                     envStr("PUNCHCARD_DSN", "file:punchcard.db?cache=shared&_pragma=foreign_keys(1)"),
		SigningKey:              envStr("PUNCHCARD_SIGNING_KEY", ""),
		SigningMethod:           envStr("PUNCHCARD_SIGNING_METHOD", "HS256"),
		ContextKey:              envStr("PUNCHCARD_SESSION_COOKIE", "punchcard_session"),
		AuthScheme:              envStr("PUNCHCARD_AUTH_SCHEME", "Bearer"),
		Issuer:                  envStr("PUNCHCARD_ISSUER", "punchcard"),
		Audience:                envList("PUNCHCARD_AUDIENCE", []string{"punchcard"}),
		TokenExpiration:         envInt("PUNCHCARD_TOKEN_EXPIRATION_HOURS", 24),
		InvitationValidityHours: envInt("PUNCHCARD_INVITATION_VALIDITY_HOURS", 72),
		TemplatesDir:            envStr("PUNCHCARD_TEMPLATES_DIR", "views/emails"),
		SeedAdminUsername:       envStr("PUNCHCARD_SEED_ADMIN_USERNAME", "admin"),
		SeedAdminEmail:          envStr("PUNCHCARD_SEED_ADMIN_EMAIL", "admin@example.com"),
	}

	cfg.TokenLookup = envStr(
		"PUNCHCARD_TOKEN_LOOKUP",
		"cookie:"+cfg.ContextKey+",header:Authorization",
	)

	return cfg, nil
}

func (c *AppConfig) GetSigningKey() string    { return c.SigningKey }
func (c *AppConfig) GetSigningMethod() string { return c.SigningMethod }
func (c *AppConfig) GetContextKey() string    { return c.ContextKey }
func (c *AppConfig) GetTokenExpiration() int  { return c.TokenExpiration }
func (c *AppConfig) GetTokenLookup() string   { return c.TokenLookup }
func (c *AppConfig) GetAuthScheme() string    { return c.AuthScheme }
func (c *AppConfig) GetIssuer() string        { return c.Issuer }
func (c *AppConfig) GetAudience() []string    { return c.Audience }

func (c *AppConfig) GetInvitationValidityHours() int { return c.InvitationValidityHours }

func envStr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return def
	}
	return out
}
