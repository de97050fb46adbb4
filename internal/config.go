package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/export"
	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/ingest"
	"github.com/starford/ansuz/internal/journal"
	"github.com/starford/ansuz/internal/scanner"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Link resolvers.
const (
	ResolverFuzzy  = "fuzzy"
	ResolverStrict = "strict"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Corpus CorpusConfig      `yaml:"corpus"`
	Graph  GraphConfig       `yaml:"graph"`
	Watch  WatchConfig       `yaml:"watch"`
	Export ExportConfig      `yaml:"export"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Corpus.Validate(); err != nil {
		return fmt.Errorf("corpus: %w", err)
	}
	if err := c.Graph.Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// CorpusConfig describes where notes live and how they are read.
type CorpusConfig struct {
	Roots          []string `yaml:"roots"`
	Extension      string   `yaml:"extension"`
	Workers        int      `yaml:"workers"`
	JournalSegment string   `yaml:"journal_segment"`
}

// Validate validates the corpus configuration, filling empty optional
// fields with defaults.
func (c *CorpusConfig) Validate() error {
	if c.Extension == "" {
		c.Extension = scanner.DefaultExtension
	}
	if c.Workers == 0 {
		c.Workers = ingest.DefaultWorkers
	}
	if c.JournalSegment == "" {
		c.JournalSegment = journal.DefaultSegment
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Roots, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.Extension, validation.By(func(any) error {
			if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
				return errors.New("must start with '.'")
			}
			return nil
		})),
		validation.Field(&c.Workers, validation.Min(1), validation.Max(256)),
		validation.Field(&c.JournalSegment, validation.By(func(any) error {
			if strings.ContainsAny(c.JournalSegment, `/\`) {
				return errors.New("must be a single directory name")
			}
			return nil
		})),
	)
}

// GraphConfig holds node sizing and link resolution settings.
type GraphConfig struct {
	MaxRadius   float64 `yaml:"max_radius"`
	BaseRadius  float64 `yaml:"base_radius"`
	SizeDivisor float64 `yaml:"size_divisor"`
	Resolver    string  `yaml:"resolver"`
}

// Validate validates the graph configuration.
func (c *GraphConfig) Validate() error {
	if c.Resolver == "" {
		c.Resolver = ResolverFuzzy
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MaxRadius, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.BaseRadius, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.SizeDivisor, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.Resolver, validation.In(ResolverFuzzy, ResolverStrict)),
	); err != nil {
		return err
	}
	if c.BaseRadius > c.MaxRadius {
		return fmt.Errorf("base_radius %.1f exceeds max_radius %.1f", c.BaseRadius, c.MaxRadius)
	}
	return nil
}

// Builder returns a graph builder for this configuration.
func (c *GraphConfig) Builder() *graph.Builder {
	factory := graph.NewFuzzyResolver
	if c.Resolver == ResolverStrict {
		factory = graph.NewStrictResolver
	}
	return graph.NewBuilder(
		graph.WithRadius(c.MaxRadius, c.BaseRadius, c.SizeDivisor),
		graph.WithResolver(factory),
	)
}

// WatchConfig controls the optional file watcher. When enabled, corpus
// changes mark the snapshot stale and are announced over SSE.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	if c.Debounce == 0 {
		c.Debounce = ingest.DefaultDebounce
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(10*time.Millisecond), validation.Max(time.Minute)),
	)
}

// ExportConfig holds defaults for the export command.
type ExportConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	f, err := export.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	c.Format = string(f)
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// OverrideRoots replaces corpus.roots when roots is non-empty. It is meant
// to run before validation so a config file without roots still loads.
func OverrideRoots(roots []string) func(*Config) {
	return func(c *Config) {
		if len(roots) > 0 {
			c.Corpus.Roots = append([]string(nil), roots...)
		}
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Corpus: CorpusConfig{
			Roots:          []string{"./notes"},
			Extension:      scanner.DefaultExtension,
			Workers:        ingest.DefaultWorkers,
			JournalSegment: journal.DefaultSegment,
		},
		Graph: GraphConfig{
			MaxRadius:   graph.DefaultMaxRadius,
			BaseRadius:  graph.DefaultBaseRadius,
			SizeDivisor: graph.DefaultSizeDivisor,
			Resolver:    ResolverFuzzy,
		},
		Watch: WatchConfig{
			Debounce: ingest.DefaultDebounce,
		},
		Export: ExportConfig{
			Path:   "./snapshot.json",
			Format: string(export.FormatJSON),
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
