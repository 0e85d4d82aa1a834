package ailink

import "unicode/utf8"

// defaultRawMaxBytes applies when capture is on but no limit is set.
const defaultRawMaxBytes = 64 << 10

// RawResponseError carries the model output that failed to decode or
// validate. It is only produced with ailink.debug.capture_raw_enabled.
type RawResponseError struct {
	Err       error
	Raw       string
	Truncated bool
}

func (e *RawResponseError) Error() string {
	if e == nil || e.Err == nil {
		return "ailink: undecodable model output"
	}
	return e.Err.Error()
}

func (e *RawResponseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// withRaw attaches raw to err when capture is enabled, cut to the
// configured byte limit on a rune boundary.
func withRaw(cfg Config, err error, raw string) error {
	if err == nil || !cfg.Debug.CaptureRawEnabled {
		return err
	}
	limit := cfg.Debug.CaptureRawMaxBytes
	if limit <= 0 {
		limit = defaultRawMaxBytes
	}
	clipped := clipUTF8(raw, limit)
	return &RawResponseError{Err: err, Raw: clipped, Truncated: len(clipped) < len(raw)}
}

func clipUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
