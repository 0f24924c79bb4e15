package utils

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/width"
)

// maxCallerIDLength bounds what is handed to the phone number parser, in runes
const maxCallerIDLength = 64

// ErrCallerIDTooLong is returned for caller ids longer than maxCallerIDLength
var ErrCallerIDTooLong = errors.New("caller id too long")

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// SanitizeCallerID folds full-width characters to their ASCII form and drops
// control characters and surrounding whitespace. Overlong input is rejected,
// never truncated.
func (tp *TextProcessor) SanitizeCallerID(raw string) (string, error) {
	folded := width.Narrow.String(raw)

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, folded)
	cleaned = strings.TrimSpace(cleaned)

	if n := utf8.RuneCountInString(cleaned); n > maxCallerIDLength {
		tp.logger.Debug("Caller id too long",
			zap.Int("length", n),
			zap.Int("max_length", maxCallerIDLength))
		return "", ErrCallerIDTooLong
	}

	return cleaned, nil
}
