package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/sunbk201/appbundle/internal/route"
)

func GenerateTemplateConfig(writeToFile bool) (Config, error) {
	cfg := Config{
		BindAddress: "127.0.0.1",
		Port:        8780,

		LogLevel: "info",

		AllowFileAccess: false,
		MatchTimeout:    100 * time.Millisecond,

		Bundle: BundleConfig{
			Scheme:      route.DefaultScheme,
			AssetPrefix: route.DefaultAssetPrefix,
			WWWPrefix:   route.DefaultWWWPrefix,
			AssetRoot:   "assets",
		},

		Session: SessionConfig{
			Max: 256,
			TTL: 30 * time.Minute,
		},

		Aliases: []Alias{
			{
				Match:       "^app-bundle:///legacy/.*",
				Replace:     "^app-bundle:///legacy/",
				Replacement: route.Placeholder,
				Redirect:    true,
			},
		},
	}

	if writeToFile {
		data, err := yaml.Marshal(&cfg)
		if err != nil {
			return Config{}, fmt.Errorf("failed to marshal template config to YAML: %w", err)
		}
		if err := os.WriteFile("config.yaml", data, 0644); err != nil {
			return Config{}, fmt.Errorf("failed to write template config to file: %w", err)
		}
	}
	return cfg, nil
}
