package scrolly

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	para "github.com/goliatone/go-paracharts"
	"github.com/goliatone/go-paracharts/layering"
)

// DefaultOffset is the trigger line as a fraction of the viewport height.
const DefaultOffset = 0.5

// Host settings paths read by HostConfig.
const (
	SettingOffset      = "scrollytelling.offset"
	SettingIsDebug     = "scrollytelling.isDebug"
	SettingExtraMargin = "scrollytelling.extraMargin"
)

// ErrInvalidOffset reports an offset that is neither a fraction, a pixel
// count nor a "NNpx" string.
var ErrInvalidOffset = errors.New("scrolly: invalid offset")

// Config is the engine configuration. Nil fields are unset and fall through
// to weaker layers in MergeConfig.
type Config struct {
	// Offset is a float fraction of the viewport (0..1), a pixel count
	// greater than 1, or a string in either form or suffixed with "px".
	Offset      any
	IsDebug     *bool
	ExtraMargin *float64
}

// Bool returns a pointer to v for Config fields.
func Bool(v bool) *bool { return &v }

// Float returns a pointer to v for Config fields.
func Float(v float64) *float64 { return &v }

// Debug reports whether debug mode is set.
func (c Config) Debug() bool { return c.IsDebug != nil && *c.IsDebug }

// Extra returns the extra root margin, 0 when unset.
func (c Config) Extra() float64 {
	if c.ExtraMargin == nil {
		return 0
	}
	return *c.ExtraMargin
}

// MergeConfig layers call-site configuration over host configuration.
func MergeConfig(host, callSite Config) Config {
	return layering.MergeLayers(callSite, host)
}

// HostConfig reads the scrollytelling group of a settings store. Paths the
// store does not define are left unset.
func HostConfig(store *para.Store) (Config, error) {
	var cfg Config
	if store == nil {
		return cfg, nil
	}
	if value, ok, err := hostSetting(store, SettingOffset); err != nil {
		return cfg, err
	} else if ok {
		cfg.Offset = value
	}
	if value, ok, err := hostSetting(store, SettingIsDebug); err != nil {
		return cfg, err
	} else if ok {
		debug, isBool := value.(bool)
		if !isBool {
			return cfg, fmt.Errorf("scrolly: %s must be a boolean, got %T", SettingIsDebug, value)
		}
		cfg.IsDebug = Bool(debug)
	}
	if value, ok, err := hostSetting(store, SettingExtraMargin); err != nil {
		return cfg, err
	} else if ok {
		margin, isNumber := value.(float64)
		if !isNumber {
			return cfg, fmt.Errorf("scrolly: %s must be a number, got %T", SettingExtraMargin, value)
		}
		cfg.ExtraMargin = Float(margin)
	}
	return cfg, nil
}

func hostSetting(store *para.Store, path string) (para.Setting, bool, error) {
	value, err := store.Get(path)
	switch {
	case err == nil:
		return value, true, nil
	case errors.Is(err, para.ErrUnknownPath):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("scrolly: host setting: %w", err)
	}
}

// ParseOffset converts an offset value into pixels for the given viewport
// height. A nil value or empty string yields the default offset.
func ParseOffset(value any, viewportHeight float64) (float64, error) {
	switch v := value.(type) {
	case nil:
		return DefaultOffset * viewportHeight, nil
	case string:
		return parseOffsetString(v, viewportHeight)
	default:
		number, ok := layering.NormalizeLeaf(v)
		f, isFloat := number.(float64)
		if !ok || !isFloat {
			return 0, fmt.Errorf("%w: %v (%T)", ErrInvalidOffset, value, value)
		}
		return offsetFromNumber(f, viewportHeight)
	}
}

func parseOffsetString(raw string, viewportHeight float64) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultOffset * viewportHeight, nil
	}
	if px, ok := strings.CutSuffix(trimmed, "px"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(px), 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, raw)
		}
		return f, nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, raw)
	}
	return offsetFromNumber(f, viewportHeight)
}

func offsetFromNumber(f, viewportHeight float64) (float64, error) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, fmt.Errorf("%w: %g", ErrInvalidOffset, f)
	case f < 0:
		return 0, fmt.Errorf("%w: %g is negative", ErrInvalidOffset, f)
	case f > 1:
		return f, nil
	default:
		return f * viewportHeight, nil
	}
}
