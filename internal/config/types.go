package config

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Duration is a custom time.Duration type that provides improved marshaling.
// It is written to and read from config files as a string, e.g. "30s".
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// String returns a human-readable string representation of the duration.
// Whole units are preferred, so 30 seconds is "30s" rather than "30.000s".
func (d Duration) String() string {
	duration := time.Duration(d)

	// List of duration units in descending order.
	units := []struct {
		unit   time.Duration
		suffix string
	}{
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
		{time.Millisecond, "ms"},
		{time.Microsecond, "µs"},
		{time.Nanosecond, "ns"},
	}

	if duration == 0 {
		return "0s"
	}

	for _, u := range units {
		if duration%u.unit == 0 {
			return fmt.Sprintf("%d%s", duration/u.unit, u.suffix)
		}
	}

	return duration.String()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration
	return nil
}

// ValidHTTPRequestMethods returns the HTTP request methods accepted in CORS configuration.
func ValidHTTPRequestMethods() map[string]struct{} {
	return map[string]struct{}{
		http.MethodGet:     {},
		http.MethodHead:    {},
		http.MethodPost:    {},
		http.MethodPut:     {},
		http.MethodDelete:  {},
		http.MethodConnect: {},
		http.MethodOptions: {},
		http.MethodTrace:   {},
		http.MethodPatch:   {},
	}
}

func parseDuration(value string) (Duration, error) {
	duration, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid duration format: %w", err)
	}
	return Duration(duration), nil
}

// isValidAddr reports whether addr is a bindable host:port.
func isValidAddr(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}

	if port == "" {
		return false
	}
	if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		return false
	}

	return !strings.ContainsAny(host, " \t\n\r")
}

// validatePositive appends an error to errs when d is set but not positive.
func validatePositive(errs []error, name string, d *Duration) []error {
	if d != nil && *d <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s must be positive", NewErrInvalidValue(name, d.String()), name))
	}
	return errs
}
