package identity

import (
	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvConfig implements Config from environment variables.
type EnvConfig struct {
	SigningKey            string   `env:"IDENTITY_SIGNING_KEY"`
	TokenExpiration       int      `env:"IDENTITY_TOKEN_EXPIRATION" envDefault:"24"`
	Issuer                string   `env:"IDENTITY_ISSUER" envDefault:"smartlocal"`
	Audience              []string `env:"IDENTITY_AUDIENCE" envSeparator:","`
	AuthRoute             string   `env:"IDENTITY_AUTH_ROUTE" envDefault:"/auth"`
	DefaultProtectedRoute string   `env:"IDENTITY_DEFAULT_PROTECTED_ROUTE" envDefault:"/dashboard"`
	RejectedRouteKey      string   `env:"IDENTITY_REJECTED_ROUTE_KEY" envDefault:"rejected_route"`
	LoadingView           string   `env:"IDENTITY_LOADING_VIEW" envDefault:"loading"`
}

var _ Config = (*EnvConfig)(nil)

// NewConfigFromEnv parses configuration from the process environment.
func NewConfigFromEnv() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "failed to parse identity config from environment")
	}

	if cfg.SigningKey == "" {
		return nil, errors.New("IDENTITY_SIGNING_KEY is required", errors.CategoryValidation).
			WithTextCode("MISSING_SIGNING_KEY").
			WithCode(errors.CodeBadRequest)
	}

	return cfg, nil
}

func (c *EnvConfig) GetSigningKey() string            { return c.SigningKey }
func (c *EnvConfig) GetTokenExpiration() int          { return c.TokenExpiration }
func (c *EnvConfig) GetIssuer() string                { return c.Issuer }
func (c *EnvConfig) GetAudience() []string            { return c.Audience }
func (c *EnvConfig) GetAuthRoute() string             { return c.AuthRoute }
func (c *EnvConfig) GetDefaultProtectedRoute() string { return c.DefaultProtectedRoute }
func (c *EnvConfig) GetRejectedRouteKey() string      { return c.RejectedRouteKey }
func (c *EnvConfig) GetLoadingView() string           { return c.LoadingView }
