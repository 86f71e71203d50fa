// Package vocab holds the word identity rules shared by the matrix, the
// scorers and the similarity oracles.
package vocab

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// Canonical returns the lookup form of a word: trimmed, NFC-normalized and
// lower-cased. Lookups are case-insensitive across the module.
func Canonical(word string) string {
	w := strings.TrimSpace(word)
	if w == "" {
		return ""
	}
	return lower.String(norm.NFC.String(w))
}

// MissingVocabularyError reports a word absent from a matrix or an oracle.
type MissingVocabularyError struct {
	Word string
}

func (e *MissingVocabularyError) Error() string {
	return fmt.Sprintf("word not in vocabulary: %q", e.Word)
}

// Missing builds a MissingVocabularyError for word.
func Missing(word string) error {
	return &MissingVocabularyError{Word: word}
}

// IsMissing reports whether err wraps a MissingVocabularyError.
func IsMissing(err error) bool {
	var mv *MissingVocabularyError
	return errors.As(err, &mv)
}
