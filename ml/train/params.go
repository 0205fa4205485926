package train

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/gomlx/gradgraph/graph"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/pkg/errors"
)

// Well known parameter keys, set by NewParams with their default values.
const (
	// ParamLearningRate is the step size used by SGD. Default 0.1.
	ParamLearningRate = "learning_rate"

	// ParamSteps is the number of training steps the CLI runs. Default 100.
	ParamSteps = "steps"

	// ParamGradientMode selects how gradient contributions are combined, see graph.GradientMode.
	// Default "accumulate".
	ParamGradientMode = "gradient_mode"

	// ParamLogEvery is the number of steps between loss reports in the logs. Default 10.
	ParamLogEvery = "log_every"
)

// Params is a typed set of hyperparameters. The type of each parameter is fixed by its default
// value, and ParseSettings parses new values into that type.
type Params struct {
	values map[string]any
}

// NewParams returns the default hyperparameters.
func NewParams() *Params {
	return &Params{values: map[string]any{
		ParamLearningRate: 0.1,
		ParamSteps:        100,
		ParamGradientMode: graph.Accumulate,
		ParamLogEvery:     10,
	}}
}

// Set sets or creates parameter key. New keys define their own type.
func (p *Params) Set(key string, value any) *Params {
	p.values[key] = value
	return p
}

// Get returns the value of key, and whether it was found.
func (p *Params) Get(key string) (value any, found bool) {
	value, found = p.values[key]
	return
}

// Keys returns the sorted list of parameter names.
func (p *Params) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for key := range p.values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// GetParamOr returns the value of key converted to T, or defaultValue if it is not set or of a
// different type.
func GetParamOr[T any](p *Params, key string, defaultValue T) T {
	value, found := p.values[key]
	if !found {
		return defaultValue
	}
	t, ok := value.(T)
	if !ok {
		return defaultValue
	}
	return t
}

func (p *Params) LearningRate() float64 { return GetParamOr(p, ParamLearningRate, 0.1) }
func (p *Params) Steps() int            { return GetParamOr(p, ParamSteps, 100) }
func (p *Params) LogEvery() int         { return GetParamOr(p, ParamLogEvery, 10) }

func (p *Params) GradientMode() graph.GradientMode {
	return GetParamOr(p, ParamGradientMode, graph.Accumulate)
}

// String lists the parameters as "key=value" separated by ";", in the format accepted by
// ParseSettings.
func (p *Params) String() string {
	parts := make([]string, 0, len(p.values))
	for _, key := range p.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%v", key, p.values[key]))
	}
	return strings.Join(parts, ";")
}

// ParseSettings updates params from settings, typically the contents of a flag set by the user.
// The settings are a list separated by ";": e.g.: "learning_rate=0.05;steps=1_000".
//
// All the parameters must already be set with default values in params: the default values
// define the type to which the string values are parsed. For integer types "_" is removed, so
// large numbers can be written as in Go.
//
// An entry of the form "file:<path>" reads settings from the file, one or more per line, with
// everything after a "#" ignored.
//
// Unknown parameters and values that cannot be parsed return an InvalidArgument error.
func ParseSettings(params *Params, settings string) error {
	for _, setting := range strings.Split(settings, ";") {
		setting = strings.TrimSpace(setting)
		if setting == "" {
			continue
		}
		if path, ok := strings.CutPrefix(setting, "file:"); ok {
			if err := parseSettingsFile(params, path); err != nil {
				return err
			}
			continue
		}
		key, valueStr, found := strings.Cut(setting, "=")
		if !found {
			return errors.Wrapf(xerrors.ErrInvalidArgument,
				"can't parse settings %q: each setting requires the format \"<param>=<value>\", got %q",
				settings, setting)
		}
		key, valueStr = strings.TrimSpace(key), strings.TrimSpace(valueStr)
		if err := params.parse(key, valueStr); err != nil {
			return err
		}
	}
	return nil
}

func parseSettingsFile(params *Params, path string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read settings file %q", path)
	}
	var lines []string
	for _, line := range strings.Split(string(contents), "\n") {
		line, _, _ = strings.Cut(line, "#")
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	err = ParseSettings(params, strings.Join(lines, ";"))
	return errors.WithMessagef(err, "settings file %q", path)
}

// parse valueStr into the type of the current value of key.
func (p *Params) parse(key, valueStr string) error {
	value, found := p.values[key]
	if !found {
		return errors.Wrapf(xerrors.ErrInvalidArgument, "can't set parameter %q: unknown parameter, known ones are %q",
			key, p.Keys())
	}
	var err error
	switch v := value.(type) {
	case graph.GradientMode:
		v, err = graph.ParseGradientMode(valueStr)
		value = v
	case int:
		err = json.Unmarshal([]byte(strings.ReplaceAll(valueStr, "_", "")), &v)
		value = v
	case float64:
		err = json.Unmarshal([]byte(valueStr), &v)
		value = v
	case bool:
		err = json.Unmarshal([]byte(valueStr), &v)
		value = v
	case string:
		value = valueStr
	default:
		err = errors.Errorf("don't know how to parse values of type %T", value)
	}
	if err != nil {
		if xerrors.IsInvalidArgument(err) {
			return errors.WithMessagef(err, "parameter %q", key)
		}
		return errors.Wrapf(xerrors.ErrInvalidArgument, "failed to parse value %q for parameter %q (%T): %v",
			valueStr, key, p.values[key], err)
	}
	p.values[key] = value
	return nil
}
