package ai

import "strings"

// ExtractJSON returns the slice of text from the first open byte to the last close
// byte, inclusive. Model output often wraps JSON in prose or code fences; this finds
// the value by bracket position instead of requiring the whole response to parse.
func ExtractJSON(text string, open, close byte) (string, error) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}
