package confloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix prefixes the environment variables Load reads.
const DefaultEnvPrefix = "IMRELAY_"

// ErrConfigNotFound is returned by Load when the configuration file does
// not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Loader merges the configuration file, the environment and flag values
// into a struct with koanf tags.
type Loader struct {
	envPrefix string
	filePath  string
	flags     map[string]any
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix replaces DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile sets the YAML file to read. Without it only the
// environment and flags are used.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// WithFlags sets values that override every other source. Keys are dotted
// paths such as "relay.port".
func WithFlags(flags map[string]any) Option {
	return func(l *Loader) { l.flags = flags }
}

// NewLoader returns a Loader. It reads nothing until Load.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configured file, or "".
func (l *Loader) FilePath() string {
	return l.filePath
}

// Load reads every source into a fresh koanf instance and unmarshals the
// result into target. Fields no source sets keep their current values, so
// target should hold the defaults. Each call starts over, which makes Load
// safe to repeat on reload.
func (l *Loader) Load(target any) error {
	k, err := l.read()
	if err != nil {
		return err
	}
	if err := k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

func (l *Loader) read() (*koanf.Koanf, error) {
	k := koanf.New(".")

	if l.filePath != "" {
		if _, err := os.Stat(l.filePath); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, l.filePath)
		}
		if err := k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", l.filePath, err)
		}
	}

	prefix := l.envPrefix
	envProvider := env.Provider(prefix, ".", func(name string) string {
		return envKey(prefix, name)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if len(l.flags) > 0 {
		if err := k.Load(mapProvider(l.flags), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}
	return k, nil
}

// envKey maps PREFIX_SECTION_KEY_PART to section.key_part: the first
// underscore after the prefix ends the section name.
func envKey(prefix, name string) string {
	s := strings.ToLower(strings.TrimPrefix(name, prefix))
	section, key, found := strings.Cut(s, "_")
	if !found {
		return section
	}
	return section + "." + key
}
