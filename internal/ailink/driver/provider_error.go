package driver

import "fmt"

// ProviderError is returned when a provider responds with a non-2xx status.
//
// RawResponse holds the provider body and never includes API keys.
type ProviderError struct {
	Provider    string
	Endpoint    string
	StatusCode  int
	Message     string
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	target := e.Provider
	if e.Endpoint != "" {
		target += " " + e.Endpoint
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", target, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", target, e.Message)
}

// UnsupportedError reports an operation the selected driver cannot perform.
type UnsupportedError struct {
	Provider  string
	Operation string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Provider, e.Operation)
}
