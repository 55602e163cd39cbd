package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/keywarp/internal/button"
)

// ScriptFactory compiles a script source into a runner. The application
// wires this to the script engine; layouts using script buttons fail to
// resolve without one.
type ScriptFactory func(name, source string) (button.ScriptRunner, error)

// rawLayout is the on-disk shape of a layout file, shared by the YAML and
// TOML forms.
type rawLayout struct {
	Base        string                    `yaml:"base" toml:"base"`
	FallThrough bool                      `yaml:"fall_through" toml:"fall_through"`
	ComposeKey  string                    `yaml:"compose_key" toml:"compose_key"`
	TapHoldMS   int64                     `yaml:"tap_hold_delay" toml:"tap_hold_delay"`
	MultiTapMS  int64                     `yaml:"multi_tap_gap" toml:"multi_tap_gap"`
	MacroMS     int64                     `yaml:"macro_delay" toml:"macro_delay"`
	Aliases     map[string]any            `yaml:"aliases" toml:"aliases"`
	Layers      map[string]map[string]any `yaml:"layers" toml:"layers"`
}

// Loader loads and compiles layout files.
type Loader struct {
	// Scripts compiles script button sources. Optional.
	Scripts ScriptFactory
}

// Load reads and compiles the layout at path. The format is chosen by
// extension: .toml is TOML, everything else parses as YAML.
func (l *Loader) Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout file: %w", err)
	}
	return l.LoadBytes(path, data)
}

// LoadBytes compiles layout file contents. The path is used for format
// selection and error reporting only.
func (l *Loader) LoadBytes(path string, data []byte) (*Layout, error) {
	var raw rawLayout
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	}
	return compile(&raw, l.Scripts)
}
