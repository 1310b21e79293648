package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment conventions.
const (
	EnvPrefix     = "FACEWIN_"
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// keyDelim separates nested koanf keys. Condition tokens may contain dots
// ("0.08"), so "." cannot be used.
const keyDelim = "::"

// listKeys are comma separated when given through the environment.
var listKeys = map[string]bool{
	"channels":  true,
	"pose_axes": true,
}

type loadOptions struct {
	file    string
	profile string
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

// WithFile reads the YAML file at path instead of $FACEWIN_CONFIG.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		if path != "" {
			o.file = path
		}
	}
}

// WithProfile forces a profile, overriding file and env.
func WithProfile(name string) LoadOption {
	return func(o *loadOptions) {
		if name != "" {
			o.profile = name
		}
	}
}

// Load builds a Config by layering defaults, profile, optional file and env
// vars, then validates it. Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. profile (WithProfile, else the profile key of file/env)
//  3. file (YAML) from WithFile or FACEWIN_CONFIG
//  4. env (prefix FACEWIN_, e.g. FACEWIN_WINDOW_SIZE=300)
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{file: os.Getenv(EnvConfigFile)}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(keyDelim)

	// Load from file if provided
	if o.file != "" {
		if err := k.Load(file.Provider(o.file), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, o.file, err)
		}
	}

	// Environment variables: FACEWIN_WINDOW_SIZE -> window_size (flat keys).
	// Lists are comma separated: FACEWIN_CHANNELS=ear,p_scale
	envProvider := env.ProviderWithValue(EnvPrefix, keyDelim, func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	k.Delete("config")

	// Start with defaults and the selected profile
	cfg := New(ctx)
	profile := o.profile
	if profile == "" {
		profile = k.String("profile")
	}
	if err := ApplyProfile(cfg, profile); err != nil {
		return nil, err
	}

	// Maps and lists given by file or env replace the defaults instead of
	// being merged into them.
	if k.Exists("condition_labels") {
		cfg.ConditionLabels = nil
	}
	if k.Exists("channels") {
		cfg.Channels = nil
	}
	if k.Exists("pose_axes") {
		cfg.PoseAxes = nil
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	cfg.Profile = profile
	if cfg.Profile == "" {
		cfg.Profile = ProfileCanonical
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList splits a comma separated value, dropping blank items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
