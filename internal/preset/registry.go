// Package preset manages reusable order templates loaded from a YAML
// file and hot-reloaded on change. A preset pre-fills the create request
// so operators schedule recurring setups by name instead of retyping the
// full order body.
package preset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tempo/internal/logger"
)

// Preset is one named order template. Zero-valued fields are left for the
// caller's request to fill in.
type Preset struct {
	ID          string  `mapstructure:"id" yaml:"id" json:"id"`
	Description string  `mapstructure:"description" yaml:"description" json:"description,omitempty"`
	Version     int     `mapstructure:"version" yaml:"version" json:"version"`
	Symbol      string  `mapstructure:"symbol" yaml:"symbol" json:"symbol,omitempty"`
	Side        string  `mapstructure:"side" yaml:"side" json:"side,omitempty"`
	Type        string  `mapstructure:"type" yaml:"type" json:"type,omitempty"`
	Quantity    float64 `mapstructure:"quantity" yaml:"quantity" json:"quantity,omitempty"`
	Price       float64 `mapstructure:"price" yaml:"price" json:"price,omitempty"`
	Leverage    int     `mapstructure:"leverage" yaml:"leverage" json:"leverage,omitempty"`
	MarginMode  string  `mapstructure:"margin_mode" yaml:"margin_mode" json:"margin_mode,omitempty"`
	TimeInForce string  `mapstructure:"time_in_force" yaml:"time_in_force" json:"time_in_force,omitempty"`
	ReduceOnly  bool    `mapstructure:"reduce_only" yaml:"reduce_only" json:"reduce_only,omitempty"`

	CloseAfterFill    bool `mapstructure:"close_after_fill" yaml:"close_after_fill" json:"close_after_fill,omitempty"`
	CloseDelaySeconds int  `mapstructure:"close_delay_seconds" yaml:"close_delay_seconds" json:"close_delay_seconds,omitempty"`

	// Overrides constrains which request fields may override the preset;
	// compiled as a JSON schema against the raw request body.
	Overrides map[string]interface{} `mapstructure:"overrides" yaml:"overrides" json:"-"`

	overridesCompiled *jsonschema.Schema
}

// FileConfig maps the presets file layout.
type FileConfig struct {
	Presets map[string]Preset `mapstructure:"presets" yaml:"presets"`
}

// Snapshot is the template set as of one reload.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Presets  map[string]Preset
}

type Registry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewRegistry reads the presets file and watches it for changes. A
// malformed rewrite keeps the previous snapshot in place.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("preset registry requires a path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read presets file failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("preset reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot returns the current preset set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Preset returns the template with the given ID.
func (r *Registry) Preset(id string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Presets[strings.TrimSpace(id)]
	return p, ok
}

// ValidateOverrides checks a raw request body against the preset's
// overrides schema, when one is declared.
func (r *Registry) ValidateOverrides(id string, body map[string]any) error {
	p, ok := r.Preset(id)
	if !ok {
		return fmt.Errorf("unknown preset: %s", id)
	}
	if p.overridesCompiled == nil {
		return nil
	}
	return p.overridesCompiled.Validate(sanitizeValues(body))
}

func (r *Registry) reload() error {
	cfg, err := readPresetsFile(r.path)
	if err != nil {
		return err
	}
	presets := make(map[string]Preset)
	for name, p := range cfg.Presets {
		norm := normalizePreset(name, p)
		presets[norm.ID] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Presets:  presets,
	}
	r.mu.Unlock()
	logger.Infof("Preset registry loaded %d presets from %s", len(presets), filepath.Base(r.path))
	return nil
}

func normalizePreset(name string, p Preset) Preset {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = strings.TrimSpace(name)
	}
	if p.Version <= 0 {
		p.Version = 1
	}
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	p.Side = strings.ToUpper(strings.TrimSpace(p.Side))
	p.Type = strings.ToUpper(strings.TrimSpace(p.Type))
	p.MarginMode = strings.ToUpper(strings.TrimSpace(p.MarginMode))
	p.TimeInForce = strings.ToUpper(strings.TrimSpace(p.TimeInForce))
	p.Description = strings.TrimSpace(p.Description)
	if len(p.Overrides) > 0 {
		if compiled, err := compileSchema(p.Overrides); err != nil {
			logger.Errorf("preset overrides schema compile failed id=%s: %v", p.ID, err)
		} else {
			p.overridesCompiled = compiled
		}
	}
	return p
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Presets:  make(map[string]Preset, len(src.Presets)),
	}
	for id, p := range src.Presets {
		dst.Presets[id] = p
	}
	return dst
}

func compileSchema(data map[string]interface{}) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("overrides.json", bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile("overrides.json")
}

func readPresetsFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read presets file failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse presets file failed: %w", err)
	}
	return cfg, nil
}

// sanitizeValues converts numeric strings to float64 recursively so that
// clients quoting numbers still pass numeric schema constraints.
func sanitizeValues(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = sanitizeValues(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = sanitizeValues(child)
		}
		return out
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return val
		}
		if num, err := strconv.ParseFloat(s, 64); err == nil {
			return num
		}
		return val
	default:
		return val
	}
}
