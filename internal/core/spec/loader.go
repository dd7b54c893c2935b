package spec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"dario.cat/mergo"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
	"github.com/nbsynth/nbsynth/internal/cmn/fileutil"
	"github.com/nbsynth/nbsynth/internal/core"
)

var (
	errRequired = errors.New("required")
	errNegative = errors.New("must not be negative")
	errConflict = errors.New("conflicts with num_synths_before_real_full")
)

// Loader reads policy files.
type Loader struct {
	basePolicy string
}

// LoadOption configures a Loader.
type LoadOption func(*Loader)

// WithBasePolicy sets a policy file whose values are used for any key a
// policy file leaves unset.
func WithBasePolicy(file string) LoadOption {
	return func(l *Loader) {
		l.basePolicy = file
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoadOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads, merges and validates a single policy file. Every error wraps
// core.ErrConfig.
func (l *Loader) Load(file string) (*core.Policy, error) {
	def, err := readDefinition(file)
	if err != nil {
		return nil, err
	}

	if l.basePolicy != "" {
		base, err := readDefinition(l.basePolicy)
		if err != nil {
			return nil, fmt.Errorf("base policy: %w", err)
		}
		if err := mergo.Merge(def, base); err != nil {
			return nil, fmt.Errorf("%w: failed to merge base policy into %s: %w", core.ErrConfig, file, err)
		}
	}

	p, err := build(file, def)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrConfig, file, err)
	}
	return p, nil
}

// ResolveFiles expands file paths and doublestar globs into a sorted list of
// distinct policy files. The base policy is never part of the result.
func (l *Loader) ResolveFiles(patterns []string) ([]string, error) {
	var basePolicy string
	if l.basePolicy != "" {
		basePolicy, _ = filepath.Abs(l.basePolicy)
	}

	seen := make(map[string]struct{})
	var files []string
	add := func(file string) {
		abs, err := filepath.Abs(file)
		if err != nil {
			abs = file
		}
		if abs == basePolicy {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}

	for _, pattern := range patterns {
		if !hasMeta(pattern) {
			if !fileutil.IsFile(pattern) {
				return nil, fmt.Errorf("%w: policy file %q does not exist", core.ErrConfig, pattern)
			}
			add(pattern)
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("%w: invalid pattern %q: %w", core.ErrConfig, pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%w: no policy files match %q", core.ErrConfig, pattern)
		}
		for _, m := range matches {
			add(m)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no policy files given", core.ErrConfig)
	}
	slices.Sort(files)
	return files, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func readDefinition(file string) (*Definition, error) {
	data, err := os.ReadFile(file) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read policy file: %w", core.ErrConfig, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: invalid YAML: %w", core.ErrConfig, file, err)
	}

	def := &Definition{}
	md, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           def,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrConfig, file, err)
	}
	if err := md.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrConfig, file, err)
	}
	return def, nil
}

func build(file string, def *Definition) (*core.Policy, error) {
	var errs core.ErrorList

	p := &core.Policy{
		File:          file,
		Name:          fileutil.TrimExt(file),
		PolicyName:    strings.TrimSpace(def.Policy),
		ClientName:    strings.TrimSpace(def.Client),
		Enabled:       def.Enabled == nil || *def.Enabled,
		RealSchedule:  strings.TrimSpace(def.RealSchedule),
		SynthSchedule: strings.TrimSpace(def.SynthSchedule),
	}

	if p.PolicyName == "" {
		errs = append(errs, core.NewValidationError("policy", nil, errRequired))
	}
	if p.ClientName == "" {
		errs = append(errs, core.NewValidationError("client", nil, errRequired))
	}

	if def.Frequency == "" {
		errs = append(errs, core.NewValidationError("frequency", nil, errRequired))
	} else if freq, err := core.ParseFrequency(def.Frequency); err != nil {
		errs = append(errs, core.NewValidationError("frequency", def.Frequency, err))
	} else {
		p.Frequency = freq
	}

	if def.Weekday == "" {
		errs = append(errs, core.NewValidationError("weekday", nil, errRequired))
	} else if day, err := core.ParseWeekday(def.Weekday); err != nil {
		errs = append(errs, core.NewValidationError("weekday", def.Weekday, err))
	} else {
		p.Weekday = day
	}

	depth := def.SynthsBeforeReal
	if legacy := def.NumSynthsBeforeRealFull; legacy != nil {
		if depth != nil && *depth != *legacy {
			errs = append(errs, core.NewValidationError("synths_before_real", *depth, errConflict))
		}
		if depth == nil {
			depth = legacy
		}
	}
	switch {
	case depth == nil:
		errs = append(errs, core.NewValidationError("synths_before_real", nil, errRequired))
	case *depth < 0:
		errs = append(errs, core.NewValidationError("synths_before_real", *depth, errNegative))
	default:
		p.SynthsBeforeReal = *depth
	}

	if p.RealSchedule == "" {
		p.RealSchedule = core.DefaultRealSchedule
	}
	if p.SynthSchedule == "" {
		p.SynthSchedule = core.DefaultSynthSchedule
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return p, nil
}
