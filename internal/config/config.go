package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/sunbk201/appbundle/internal/route"
)

type Config struct {
	BindAddress     string        `json:"bind-address" yaml:"bind-address" validate:"required,ip|hostname"`
	Port            int           `json:"port" yaml:"port" validate:"min=1,max=65535"`
	LogLevel        string        `json:"log-level" yaml:"log-level" validate:"oneof=debug info warn error"`
	LogFile         string        `json:"log-file" yaml:"log-file"`
	APIServerSecret string        `json:"-" yaml:"api-secret"`
	AllowFileAccess bool          `json:"allow-file-access" yaml:"allow-file-access"`
	MatchTimeout    time.Duration `json:"match-timeout" yaml:"match-timeout" validate:"gte=0"`
	StatsFile       string        `json:"stats-file" yaml:"stats-file"`
	Group           string        `json:"group" yaml:"group"`

	Bundle  BundleConfig  `json:"bundle" yaml:"bundle"`
	Session SessionConfig `json:"session" yaml:"session"`

	Aliases []Alias `json:"aliases" yaml:"aliases" validate:"dive"`
}

type BundleConfig struct {
	Scheme      string `json:"scheme" yaml:"scheme" validate:"required,lowercase,excludesall=:/"`
	AssetPrefix string `json:"asset-prefix" yaml:"asset-prefix" validate:"required"`
	WWWPrefix   string `json:"www-prefix" yaml:"www-prefix" validate:"required"`
	AssetRoot   string `json:"asset-root" yaml:"asset-root"`
}

type SessionConfig struct {
	Max int           `json:"max" yaml:"max" validate:"min=1"`
	TTL time.Duration `json:"ttl" yaml:"ttl" validate:"gte=0"`
}

// Alias is a rule installed into every new session.
type Alias struct {
	Match       string `json:"match" yaml:"match" validate:"required"`
	Replace     string `json:"replace" yaml:"replace" validate:"required"`
	Replacement string `json:"replacement" yaml:"replacement"`
	Redirect    bool   `json:"redirect" yaml:"redirect"`
}

// SetDefaults registers the default value of every key on the global viper.
func SetDefaults() {
	viper.SetDefault("bind-address", "127.0.0.1")
	viper.SetDefault("port", 8780)
	viper.SetDefault("log-level", "info")
	viper.SetDefault("match-timeout", "100ms")
	viper.SetDefault("bundle.scheme", route.DefaultScheme)
	viper.SetDefault("bundle.asset-prefix", route.DefaultAssetPrefix)
	viper.SetDefault("bundle.www-prefix", route.DefaultWWWPrefix)
	viper.SetDefault("bundle.asset-root", "assets")
	viper.SetDefault("session.max", 256)
	viper.SetDefault("session.ttl", "30m")
}

func BuildConfigFromViper() (*Config, error) {
	var cfg Config
	err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	})
	if err != nil {
		return nil, fmt.Errorf("viper.Unmarshal: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if !strings.HasPrefix(cfg.Bundle.WWWPrefix, cfg.Bundle.AssetPrefix) {
		return nil, fmt.Errorf("bundle.www-prefix %q is not under bundle.asset-prefix %q", cfg.Bundle.WWWPrefix, cfg.Bundle.AssetPrefix)
	}
	return &cfg, nil
}

func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.Port))
}

func (c *Config) Layout() route.Layout {
	return route.Layout{
		Scheme:      c.Bundle.Scheme,
		AssetPrefix: c.Bundle.AssetPrefix,
		WWWPrefix:   c.Bundle.WWWPrefix,
	}
}

func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("Log Level", c.LogLevel),
		slog.String("Listen Address", c.ListenAddr()),
		slog.String("Bundle Scheme", c.Bundle.Scheme),
		slog.String("WWW Prefix", c.Bundle.WWWPrefix),
		slog.String("Asset Root", c.Bundle.AssetRoot),
		slog.Bool("File Access", c.AllowFileAccess),
		slog.Duration("Match Timeout", c.MatchTimeout),
		slog.Int("Max Sessions", c.Session.Max),
		slog.Duration("Session TTL", c.Session.TTL),
		slog.Int("Aliases", len(c.Aliases)),
		slog.Bool("API Auth", c.APIServerSecret != ""),
	)
}
