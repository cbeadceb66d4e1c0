package main

import (
	"strings"

	"github.com/spf13/viper"
)

// AppConfig is the server configuration, loaded from config.yaml and
// ACCOUNTS_* environment variables.
type AppConfig struct {
	Server struct {
		Address   string `mapstructure:"address"`
		ViewsDir  string `mapstructure:"views_dir"`
		PublicDir string `mapstructure:"public_dir"`
		Debug     bool   `mapstructure:"debug"`
	} `mapstructure:"server"`

	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Auth AuthConfig `mapstructure:"auth"`
}

// AuthConfig implements accounts.Config
type AuthConfig struct {
	SigningKey         string   `mapstructure:"signing_key"`
	Issuer             string   `mapstructure:"issuer"`
	Audience           []string `mapstructure:"audience"`
	ContextKey         string   `mapstructure:"context_key"`
	SessionDuration    int      `mapstructure:"session_duration"`
	RememberDuration   int      `mapstructure:"remember_duration"`
	MaxSessionLifetime int      `mapstructure:"max_session_lifetime"`
	LoginPath          string   `mapstructure:"login_path"`
	ExemptPaths        []string `mapstructure:"exempt_paths"`
}

func (c AuthConfig) GetSigningKey() string       { return c.SigningKey }
func (c AuthConfig) GetIssuer() string           { return c.Issuer }
func (c AuthConfig) GetAudience() []string       { return c.Audience }
func (c AuthConfig) GetContextKey() string       { return c.ContextKey }
func (c AuthConfig) GetSessionDuration() int     { return c.SessionDuration }
func (c AuthConfig) GetRememberDuration() int    { return c.RememberDuration }
func (c AuthConfig) GetMaxSessionLifetime() int  { return c.MaxSessionLifetime }
func (c AuthConfig) GetLoginPath() string        { return c.LoginPath }
func (c AuthConfig) GetExemptPaths() []string    { return c.ExemptPaths }

// LoadConfig reads config.yaml, if present, then applies environment
// overrides. A missing file is fine; defaults cover local development except
// the signing key, which the caller must verify before serving traffic.
func LoadConfig() (*AppConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("ACCOUNTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", ":8580")
	v.SetDefault("server.views_dir", "./views")
	v.SetDefault("server.public_dir", "./public")
	v.SetDefault("server.debug", false)

	v.SetDefault("database.dsn", "file:accounts.db?cache=shared&mode=rwc")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "go-accounts")
	v.SetDefault("auth.audience", []string{"go-accounts"})
	v.SetDefault("auth.context_key", "account")
	v.SetDefault("auth.session_duration", 24)
	v.SetDefault("auth.remember_duration", 168)
	v.SetDefault("auth.max_session_lifetime", 720)
	v.SetDefault("auth.login_path", "/account/login")
	v.SetDefault("auth.exempt_paths", []string{
		"/account/login",
		"/account/register",
		"/public",
	})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
