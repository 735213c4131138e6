package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
)

// #region format
// Format names a configuration encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the encoding from a file extension. Unknown
// extensions are treated as JSON, the original configuration format.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// #endregion format

// #region validator
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// #endregion validator

// #region load
// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Field: path, Reason: "read file", Err: err}
	}
	return Parse(data, FormatFromPath(path))
}

// Parse decodes data in the given format and validates it.
func Parse(data []byte, format Format) (*Config, error) {
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, &Error{Reason: "decode json", Err: err}
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, &Error{Reason: "decode yaml", Err: err}
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, &Error{Reason: "decode toml", Err: err}
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errorf(undecoded[0].String(), "unknown field")
		}
	default:
		return nil, errorf("", "unsupported format %q", format)
	}
	return FromDocument(doc)
}

// #endregion load

// #region from-document
// FromDocument converts a decoded document into a validated Config.
func FromDocument(doc Document) (*Config, error) {
	if err := validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, errorf(strings.TrimPrefix(fe.Namespace(), "Document."), "failed %q validation", fe.Tag())
		}
		return nil, &Error{Reason: "validate", Err: err}
	}

	cfg := &Config{
		Modes:  append([]string(nil), doc.Modes...),
		Tokens: append([]string(nil), doc.Tokens...),
		Params: Params{
			LearningRate: *doc.Params.LearningRate,
			ClampMin:     *doc.Params.ClampMin,
			ClampMax:     *doc.Params.ClampMax,
			Reward:       *doc.Params.Reward,
		},
		BetaSeeds: make(map[association.Key]float64, len(doc.BetaSeeds)),
	}

	// Sorted so the first reported error does not depend on map order.
	keys := make([]string, 0, len(doc.BetaSeeds))
	for k := range doc.BetaSeeds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, raw := range keys {
		key, err := ParseKey(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := cfg.BetaSeeds[key]; dup {
			return nil, errorf("beta_seeds."+raw, "duplicate seed for %s", FormatKey(key))
		}
		cfg.BetaSeeds[key] = doc.BetaSeeds[raw]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// #endregion from-document

// #region keys
// ParseKey splits a "mode|token" seed key. The key must contain exactly one
// separator with non-empty text on both sides.
func ParseKey(raw string) (association.Key, error) {
	parts := strings.Split(raw, KeySeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return association.Key{}, errorf("beta_seeds."+raw, "key must be %q with exactly one %q", "mode"+KeySeparator+"token", KeySeparator)
	}
	return association.Key{Mode: parts[0], Token: parts[1]}, nil
}

// FormatKey renders k as "mode|token".
func FormatKey(k association.Key) string {
	return k.Mode + KeySeparator + k.Token
}

// #endregion keys

// #region validate
// Validate checks the semantic invariants of a Config. Parse calls it; code
// that builds a Config by hand should too.
func (c *Config) Validate() error {
	if len(c.Modes) == 0 {
		return errorf("modes", "at least one mode is required")
	}
	modes, err := labelSet("modes", c.Modes)
	if err != nil {
		return err
	}
	tokens, err := labelSet("tokens", c.Tokens)
	if err != nil {
		return err
	}

	p := c.Params
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"params.learning_rate", p.LearningRate},
		{"params.clamp_min", p.ClampMin},
		{"params.clamp_max", p.ClampMax},
		{"params.reward", p.Reward},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return errorf(f.name, "must be finite, got %v", f.v)
		}
	}
	if p.ClampMin > p.ClampMax {
		return errorf("params.clamp_min", "clamp_min %v exceeds clamp_max %v", p.ClampMin, p.ClampMax)
	}

	keys := make([]association.Key, 0, len(c.BetaSeeds))
	for k := range c.BetaSeeds {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	for _, k := range keys {
		field := "beta_seeds." + FormatKey(k)
		if _, ok := modes[k.Mode]; !ok {
			return errorf(field, "unknown mode %q", k.Mode)
		}
		if _, ok := tokens[k.Token]; !ok {
			return errorf(field, "unknown token %q", k.Token)
		}
		v := c.BetaSeeds[k]
		if math.IsNaN(v) || v < p.ClampMin || v > p.ClampMax {
			return errorf(field, "seed %v outside [%v, %v]", v, p.ClampMin, p.ClampMax)
		}
	}
	return nil
}

func labelSet(field string, labels []string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(labels))
	for i, l := range labels {
		name := fmt.Sprintf("%s[%d]", field, i)
		if l == "" {
			return nil, errorf(name, "must not be empty")
		}
		if strings.Contains(l, KeySeparator) {
			return nil, errorf(name, "%q contains the key separator %q", l, KeySeparator)
		}
		if _, dup := set[l]; dup {
			return nil, errorf(name, "duplicate %q", l)
		}
		set[l] = struct{}{}
	}
	return set, nil
}

// #endregion validate

// #region defaults
// DefaultConfig is the built-in demo configuration used when no file is
// given.
func DefaultConfig() *Config {
	return &Config{
		Modes:  []string{"neutral", "supportive", "directive"},
		Tokens: []string{"overload", "bf_play", "engineering"},
		BetaSeeds: map[association.Key]float64{
			{Mode: "supportive", Token: "overload"}:   0.8,
			{Mode: "neutral", Token: "engineering"}:   0.6,
			{Mode: "directive", Token: "engineering"}: 0.5,
		},
		Params: Params{
			LearningRate: 0.1,
			ClampMin:     -2.0,
			ClampMax:     2.0,
			Reward:       1.0,
		},
	}
}

// #endregion defaults

// #region document-export
// Document converts c back to its on-disk shape.
func (c *Config) Document() Document {
	seeds := make(map[string]float64, len(c.BetaSeeds))
	for k, v := range c.BetaSeeds {
		seeds[FormatKey(k)] = v
	}
	p := c.Params
	return Document{
		Modes:     append([]string(nil), c.Modes...),
		Tokens:    append([]string(nil), c.Tokens...),
		BetaSeeds: seeds,
		Params: &DocumentParams{
			LearningRate: &p.LearningRate,
			ClampMin:     &p.ClampMin,
			ClampMax:     &p.ClampMax,
			Reward:       &p.Reward,
		},
	}
}

// #endregion document-export
