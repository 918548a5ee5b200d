package cli

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	kbopts "github.com/goliatone/go-kbopts"
	"github.com/goliatone/go-kbopts/internal/docwriter"
)

// EnvPrefix is the prefix of environment variables read into Config.
const EnvPrefix = "KBOPTS_"

// Config holds registry settings for a CLI run.
type Config struct {
	Format      string `koanf:"format"`
	Capacity    int    `koanf:"capacity"`
	MaxDocument int    `koanf:"max_document"`
	Engine      string `koanf:"engine"`
}

func defaults() map[string]any {
	return map[string]any{
		"format":       string(kbopts.FormatJSON),
		"capacity":     0,
		"max_document": 0,
		"engine":       "expr",
	}
}

// LoadConfig reads defaults and KBOPTS_ environment variables. For example
// KBOPTS_MAX_DOCUMENT=4096 sets MaxDocument.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := docwriter.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("invalid format %q: %w", c.Format, err)
	}
	if c.Capacity < 0 {
		return fmt.Errorf("capacity must not be negative, got %d", c.Capacity)
	}
	if c.MaxDocument < 0 {
		return fmt.Errorf("max_document must not be negative, got %d", c.MaxDocument)
	}
	switch c.Engine {
	case "expr", "cel", "js":
	default:
		return fmt.Errorf("unknown rule engine %q", c.Engine)
	}
	return nil
}

// registryOptions turns the config into kbopts options.
func (c *Config) registryOptions() []kbopts.Option {
	format, _ := docwriter.ParseFormat(c.Format)
	opts := []kbopts.Option{kbopts.WithFormat(format)}
	if c.Capacity > 0 {
		opts = append(opts, kbopts.WithCapacity(c.Capacity))
	}
	if c.MaxDocument > 0 {
		opts = append(opts, kbopts.WithMaxDocumentSize(c.MaxDocument))
	}
	return opts
}

func (c *Config) evaluator() (kbopts.Evaluator, error) {
	switch c.Engine {
	case "cel":
		return kbopts.NewCELEvaluator(), nil
	case "js":
		e := kbopts.NewJSEvaluator()
		if e == nil {
			return nil, fmt.Errorf("js engine unavailable: rebuild with -tags js_eval")
		}
		return e, nil
	default:
		return kbopts.NewExprEvaluator(), nil
	}
}
