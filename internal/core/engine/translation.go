package engine

import (
	"context"
	"time"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/debounce"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/document"
)

// TranslationSession debounces translation requests for one editor. Only
// the response to the most recently issued request is reported.
type TranslationSession struct {
	studio    *Studio
	debouncer *debounce.Debouncer
	tracker   debounce.Tracker
}

// NewTranslationSession returns a session with its own settle delay.
func (s *Studio) NewTranslationSession(delay time.Duration) *TranslationSession {
	return &TranslationSession{studio: s, debouncer: debounce.New(delay)}
}

// Touch records an edit and returns its ticket.
func (t *TranslationSession) Touch() uint64 {
	return t.debouncer.Bump()
}

// Run waits for the edit behind ticket to settle, then translates doc. ok is
// false when a later edit or request superseded this one.
func (t *TranslationSession) Run(ctx context.Context, ticket uint64, doc *document.Map, targetLanguage string) (TranslateResult, bool) {
	if !t.debouncer.Wait(ctx, ticket) {
		return TranslateResult{}, false
	}
	id := t.tracker.Next()
	result := t.studio.Translate(ctx, doc, targetLanguage)
	return result, t.tracker.IsLatest(id)
}

// Cancel drops any pending or in-flight request.
func (t *TranslationSession) Cancel() {
	t.debouncer.Stop()
	t.tracker.Invalidate()
}
