package config

import "fmt"

// ValidationError is the construction-time failure family: invalid weights,
// unknown timeframe, unknown stop-loss mode, out-of-range parameters. It is
// never silently corrected — loading fails before any bar is processed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid config: " + e.Reason
	}
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Errorf builds a ValidationError for a config field.
func Errorf(field, format string, v ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, v...)}
}
