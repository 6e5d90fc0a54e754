package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Seconds is a duration expressed in TOML as a quoted string: bare seconds
// ("30") or with a single s/m/h/d suffix ("30s", "5m"). The zero value means
// "disabled" for optional gates.
//
// The struct wrapper makes an unquoted TOML integer a decode error rather
// than a silent nanosecond value.
type Seconds struct {
	value time.Duration
}

// NewSeconds wraps a duration as a config value.
func NewSeconds(d time.Duration) Seconds {
	return Seconds{value: d}
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (s *Seconds) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	s.value = parsed
	return nil
}

// Duration returns the value as a time.Duration.
func (s Seconds) Duration() time.Duration {
	return s.value
}

var durationUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
}

// ParseDuration parses the duration shorthand used throughout the config.
func ParseDuration(value string) (time.Duration, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("duration %q must not be negative", value)
		}
		return time.Duration(n) * time.Second, nil
	}
	unit, ok := durationUnits[trimmed[len(trimmed)-1]]
	if !ok {
		return 0, fmt.Errorf("duration %q: unknown unit %q", value, trimmed[len(trimmed)-1:])
	}
	n, err := strconv.Atoi(trimmed[:len(trimmed)-1])
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", value)
	}
	return time.Duration(n) * unit, nil
}
