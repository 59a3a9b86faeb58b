package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads the YAML file at path, merges any files named in its include
// list (depth first, so the root file wins on conflicts), applies defaults
// for keys the files never set, and validates the result.
func Load(path string) (*Config, error) {
	files, err := expandIncludes(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		if err := mergeFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	explicit := make(keySet)
	markKeys("", v.AllSettings(), explicit)
	cfg.applyDefaults(explicit)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeFile(v *viper.Viper, path string) error {
	one := viper.New()
	one.SetConfigFile(path)
	if err := one.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(one.AllSettings())
}

// expandIncludes returns every file to merge, included files first so the
// including file overrides them.
func expandIncludes(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := includeWalker{done: map[string]bool{}, visiting: map[string]bool{}}
	files, err := w.walk(abs)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return []string{abs}, nil
	}
	return files, nil
}

type includeWalker struct {
	done     map[string]bool
	visiting map[string]bool
}

func (w *includeWalker) walk(path string) ([]string, error) {
	path = filepath.Clean(path)
	if w.visiting[path] {
		return nil, fmt.Errorf("include cycle detected: %s", path)
	}
	if w.done[path] {
		return nil, nil
	}
	w.visiting[path] = true
	includes, err := readIncludes(path)
	if err != nil {
		return nil, fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	dir := filepath.Dir(path)
	var out []string
	for _, inc := range includes {
		target := inc
		if !filepath.IsAbs(inc) {
			target = filepath.Join(dir, inc)
		}
		nested, err := w.walk(target)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	delete(w.visiting, path)
	w.done[path] = true
	return append(out, path), nil
}

// readIncludes parses the optional top-level include key of a single file.
func readIncludes(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	raw := v.Get("include")
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		if strs, ok := raw.([]string); ok {
			items = make([]any, len(strs))
			for i, s := range strs {
				items[i] = s
			}
		} else {
			return nil, fmt.Errorf("include must be a string array")
		}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("include only supports strings")
		}
		if str = strings.TrimSpace(str); str != "" {
			out = append(out, str)
		}
	}
	return out, nil
}

// markKeys records every dotted path that appears in the merged settings,
// so defaults only fill fields the user left out. A key holding a list is
// marked as a whole.
func markKeys(prefix string, node any, dest keySet) {
	switch val := node.(type) {
	case map[string]any:
		for k, child := range val {
			key := strings.ToLower(strings.TrimSpace(k))
			if key == "" {
				continue
			}
			if prefix != "" {
				key = prefix + "." + key
			}
			markKeys(key, child, dest)
		}
	case []any:
		if prefix != "" {
			dest.mark(prefix)
		}
		for _, item := range val {
			markKeys(prefix, item, dest)
		}
	default:
		if prefix != "" {
			dest.mark(prefix)
		}
	}
}
