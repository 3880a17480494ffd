package services

import "fmt"

// ValidationError reports missing or malformed caller input.
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

// ConfigError reports a missing deployment setting, such as the Gemini credential.
type ConfigError struct{ Message string }

func (e *ConfigError) Error() string { return e.Message }

// ProviderError wraps any failure returned by the generation API.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IOError wraps a failure reading or writing the rules file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
