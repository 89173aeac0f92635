// Package config loads reskit settings from reskit.yaml and RESKIT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"go/token"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/broady/reskit/gen"
)

// FileName is the config file looked up in the working directory.
const FileName = "reskit.yaml"

// Config holds the settings of the code generator.
type Config struct {
	Dir         string        `mapstructure:"dir" validate:"required"`
	Package     string        `mapstructure:"package"`
	Suffix      string        `mapstructure:"suffix" validate:"required"`
	RemotesFile string        `mapstructure:"remotes_file" validate:"required"`
	LookupFile  string        `mapstructure:"lookup_file" validate:"required,nefield=RemotesFile"`
	Debounce    time.Duration `mapstructure:"debounce" validate:"gt=0"`
}

// Load reads path, or reskit.yaml in the working directory when path is
// empty. A missing default file is not an error. Environment variables
// RESKIT_DIR, RESKIT_PACKAGE, RESKIT_DEBOUNCE and so on override the file.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("dir", ".")
	v.SetDefault("package", "")
	v.SetDefault("suffix", gen.DefaultSuffix)
	v.SetDefault("remotes_file", gen.DefaultRemotesFile)
	v.SetDefault("lookup_file", gen.DefaultLookupFile)
	v.SetDefault("debounce", gen.DefaultDebounce)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RESKIT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks the settings for values the generator cannot work with.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid config: %s %s", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return err
	}
	if c.Package != "" && !token.IsIdentifier(c.Package) {
		return fmt.Errorf("invalid config: package %q is not a Go identifier", c.Package)
	}
	if !strings.HasSuffix(c.Suffix, ".go") || len(c.Suffix) <= len(".go") {
		return fmt.Errorf("invalid config: suffix %q must end in .go and name more than the extension", c.Suffix)
	}
	for _, out := range []string{c.RemotesFile, c.LookupFile} {
		if filepath.Base(out) != out || !strings.HasSuffix(out, ".go") {
			return fmt.Errorf("invalid config: output %q must be a .go file name", out)
		}
		if strings.HasSuffix(out, c.Suffix) {
			return fmt.Errorf("invalid config: output %q would be discovered as a resource file", out)
		}
	}
	return nil
}

// Pipeline returns a generation pipeline for the settings.
func (c *Config) Pipeline(logger *slog.Logger) *gen.Pipeline {
	return gen.NewPipeline(c.Dir).
		WithSuffix(c.Suffix).
		WithPackage(c.Package).
		WithOutputs(c.RemotesFile, c.LookupFile).
		WithLogger(logger)
}
