// Package mock provides a test double for the translate.Translator
// interface.
package mock

import (
	"context"
	"sync"

	"github.com/tablevox/tablevox/pkg/provider/translate"
)

// TranslateCall records a single invocation of Translator.Translate.
type TranslateCall struct {
	Text           string
	TargetLanguage string
}

// Translator is a mock implementation of translate.Translator.
type Translator struct {
	mu sync.Mutex

	// Result, when non-empty, is returned by every Translate call.
	// When empty, Translate echoes its input (identity translation).
	Result string

	// Err, if non-nil, is returned as the error from every Translate call.
	Err error

	// Calls records every Translate invocation in order.
	Calls []TranslateCall
}

// Compile-time check that Translator satisfies translate.Translator.
var _ translate.Translator = (*Translator)(nil)

// Translate records the call and returns Result (or the input when Result
// is empty).
func (t *Translator) Translate(_ context.Context, text, targetLanguage string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, TranslateCall{Text: text, TargetLanguage: targetLanguage})
	if t.Err != nil {
		return "", t.Err
	}
	if t.Result != "" {
		return t.Result, nil
	}
	return text, nil
}

// Reset clears all recorded calls.
func (t *Translator) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = nil
}
