package itinerary

import (
	"fmt"
	"strings"
)

// Extractor pulls the JSON object text out of raw model output.
// It returns an error wrapping ErrExtraction when nothing usable is found.
type Extractor func(text string) (string, error)

// GreedyBraces takes everything from the first '{' to the last '}'.
// Prose before and after the object is dropped; prose between two objects is not.
func GreedyBraces(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", ErrExtraction
	}
	return text[start : end+1], nil
}

// BalancedBraces returns the first brace-balanced object, honouring JSON string escapes.
// It tolerates trailing prose that itself contains braces.
func BalancedBraces(text string) (string, error) {
	start := strings.Index(text, "{")
	if start < 0 {
		return "", ErrExtraction
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced braces", ErrExtraction)
}
