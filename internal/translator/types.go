package translator

import (
	"context"
	"errors"
)

// ErrNotText is returned when the completion service answers without a
// usable text translation.
var ErrNotText = errors.New("translation response is not plain text")

// Translator translates a text block into a target language. The language is
// a human readable name ("French", "Brazilian Portuguese") passed to the
// model as-is.
type Translator interface {
	Translate(ctx context.Context, text string, targetLanguage string) (string, error)
}
