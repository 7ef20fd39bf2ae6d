// Package translate defines the Translator interface used to normalize
// transcripts to the pipeline's working language and to localize final
// replies before speech synthesis.
//
// Implementations must be safe for concurrent use.
package translate

import "context"

// Translator converts text between languages.
type Translator interface {
	// Translate returns text rendered in targetLanguage (lowercase ISO
	// 639-1 code). Implementations should return the input unchanged when
	// it is already in the target language.
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}
