package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/flowspec/internal/fsutil"
	"github.com/aretw0/flowspec/internal/logging"
	"github.com/aretw0/flowspec/pkg/domain"
)

// ConfigVersion is the schema version written by Save.
const ConfigVersion = "1.0"

// KnownTransitions lists the lifecycle transitions configured by Default.
var KnownTransitions = []string{
	"assess",
	"specify",
	"research",
	"plan",
	"implement",
	"validate",
	"operate",
	"complete",
}

// Config holds the validation mode text of each transition.
// Entries keep their insertion order so saved files stay stable.
type Config struct {
	Version string
	order   []string
	modes   map[string]string
	logger  *slog.Logger
}

// Option configures a Config.
type Option func(*Config)

// WithLogger sets the logger used to report unparseable entries.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

// NewConfig returns an empty configuration.
func NewConfig(opts ...Option) *Config {
	c := &Config{
		Version: ConfigVersion,
		modes:   make(map[string]string),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Default returns a configuration with every named transition set to NONE.
// A nil names slice uses KnownTransitions.
func Default(names []string, opts ...Option) *Config {
	if names == nil {
		names = KnownTransitions
	}
	c := NewConfig(opts...)
	for _, name := range names {
		c.put(name, Format(domain.NoneMode{}))
	}
	return c
}

func (c *Config) put(name, text string) {
	if _, exists := c.modes[name]; !exists {
		c.order = append(c.order, name)
	}
	c.modes[name] = text
}

// Names returns the configured transition names in order.
func (c *Config) Names() []string {
	return slices.Clone(c.order)
}

// Text returns the raw mode text for a transition, "NONE" when unset.
func (c *Config) Text(name string) string {
	if text, ok := c.modes[name]; ok {
		return text
	}
	return Format(domain.NoneMode{})
}

// Has reports whether the transition has an entry.
func (c *Config) Has(name string) bool {
	_, ok := c.modes[name]
	return ok
}

// Mode returns the parsed mode for a transition.
// Unset or unparseable entries yield NONE; the latter is logged.
func (c *Config) Mode(name string) domain.ValidationMode {
	text, ok := c.modes[name]
	if !ok {
		return domain.NoneMode{}
	}
	mode, err := Parse(text)
	if err != nil {
		c.logger.Warn("Ignoring invalid validation mode", "transition", name, "err", err)
		return domain.NoneMode{}
	}
	return mode
}

// Set validates text and stores it for the transition.
func (c *Config) Set(name, text string) error {
	if name == "" {
		return errors.New("transition name cannot be empty")
	}
	if _, err := Parse(text); err != nil {
		return err
	}
	c.put(name, text)
	return nil
}

// SetMode stores the canonical form of mode for the transition.
func (c *Config) SetMode(name string, mode domain.ValidationMode) {
	c.put(name, Format(mode))
}

// Apply stores every resolved mode, in the order of names.
func (c *Config) Apply(names []string, modes map[string]domain.ValidationMode) {
	for _, name := range names {
		if mode, ok := modes[name]; ok {
			c.SetMode(name, mode)
		}
	}
}

type fileEntry struct {
	Name       string `yaml:"name"`
	Validation string `yaml:"validation"`
}

type fileFormat struct {
	Version     string      `yaml:"version"`
	Transitions []fileEntry `yaml:"transitions"`
}

// Load reads a validation configuration file.
func Load(path string, opts ...Option) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.ConfigError{Kind: domain.ConfigNotFound, Path: path}
		}
		return nil, fmt.Errorf("failed to read validation config: %w", err)
	}
	c, err := Decode(data, opts...)
	if err != nil {
		return nil, &domain.ConfigError{Kind: domain.ConfigParse, Path: path, Err: err}
	}
	return c, nil
}

// Decode parses the YAML form of a validation configuration.
// Entry text is stored as-is; invalid text surfaces later through Mode.
func Decode(data []byte, opts ...Option) (*Config, error) {
	var raw fileFormat
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	c := NewConfig(opts...)
	if raw.Version != "" {
		c.Version = raw.Version
	}
	for i, entry := range raw.Transitions {
		if entry.Name == "" {
			return nil, fmt.Errorf("transitions[%d]: missing 'name' field", i)
		}
		text := entry.Validation
		if text == "" {
			text = Format(domain.NoneMode{})
		}
		c.put(entry.Name, text)
	}
	return c, nil
}

// Encode renders the configuration as YAML in list form.
func (c *Config) Encode() ([]byte, error) {
	out := fileFormat{Version: c.Version, Transitions: make([]fileEntry, 0, len(c.order))}
	if out.Version == "" {
		out.Version = ConfigVersion
	}
	for _, name := range c.order {
		out.Transitions = append(out.Transitions, fileEntry{Name: name, Validation: c.modes[name]})
	}
	return yaml.Marshal(out)
}

// Save writes the configuration atomically, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode validation config: %w", err)
	}
	return fsutil.WriteFileAtomic(path, data, 0644)
}
