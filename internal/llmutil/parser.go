// internal/llmutil/parser.go
package llmutil

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

// Regex definitions use \x60 (hex representation) for backticks because Go raw strings cannot contain backticks.
var fenceRegex = regexp.MustCompile("(?s)\x60\x60\x60[a-zA-Z]*\\s*(.*?)\\s*\x60\x60\x60")

// ParseErrorKind classifies why a model response could not be parsed.
type ParseErrorKind string

const (
	// ParseEmpty means the response was blank.
	ParseEmpty ParseErrorKind = "EMPTY"
	// ParseNoJSON means no object or array opener was found.
	ParseNoJSON ParseErrorKind = "NO_JSON"
	// ParseUnbalanced means an opener was found but never closed.
	ParseUnbalanced ParseErrorKind = "UNBALANCED"
	// ParseInvalid means the extracted text did not decode into the target type.
	ParseInvalid ParseErrorKind = "INVALID"
)

// ParseError reports a failed extraction or decode.
type ParseError struct {
	Kind    ParseErrorKind
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm response parse failed (%s): %v. Extracted JSON (truncated): %s", e.Kind, e.Err, truncateString(e.Snippet, 200))
	}
	return fmt.Sprintf("llm response parse failed (%s)", e.Kind)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractJSON returns the first well-formed JSON object or array in response.
// Markdown fences and surrounding prose are ignored, including bracketed
// prose such as "[OK]" that is not valid JSON. Brackets inside string
// literals are not counted.
func ExtractJSON(response string) (string, *ParseError) {
	candidates, perr := jsonCandidates(response)
	if perr != nil {
		return "", perr
	}
	return candidates[0], nil
}

// jsonCandidates returns every balanced, well-formed JSON value in response,
// in order of their opening bracket.
func jsonCandidates(response string) ([]string, *ParseError) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, &ParseError{Kind: ParseEmpty}
	}
	if m := fenceRegex.FindStringSubmatch(response); len(m) > 1 && strings.ContainsAny(m[1], "{[") {
		response = m[1]
	}

	first := strings.IndexAny(response, "{[")
	if first < 0 {
		return nil, &ParseError{Kind: ParseNoJSON, Snippet: response}
	}

	var candidates []string
	balanced := ""
	for start := first; start < len(response); start++ {
		if c := response[start]; c != '{' && c != '[' {
			continue
		}
		end := matchBracket(response, start)
		if end < 0 {
			continue
		}
		span := response[start : end+1]
		if balanced == "" {
			balanced = span
		}
		if json.Valid([]byte(span)) {
			candidates = append(candidates, span)
		}
	}

	switch {
	case len(candidates) > 0:
		return candidates, nil
	case balanced == "":
		return nil, &ParseError{Kind: ParseUnbalanced, Snippet: response[first:]}
	default:
		return nil, &ParseError{Kind: ParseInvalid, Snippet: balanced, Err: errors.New("no well-formed JSON value found")}
	}
}

// matchBracket returns the index closing the bracket opened at start, or -1.
func matchBracket(s string, start int) int {
	var stack []byte
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// ParseJSON decodes the first JSON value in a model response that fits T.
// Candidates that are well-formed but do not decode into T are skipped.
func ParseJSON[T any](response string) (T, *ParseError) {
	var result T
	candidates, perr := jsonCandidates(response)
	if perr != nil {
		return result, perr
	}

	var firstErr *ParseError
	for _, payload := range candidates {
		var v T
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			if firstErr == nil {
				firstErr = &ParseError{Kind: ParseInvalid, Snippet: payload, Err: err}
			}
			continue
		}
		return v, nil
	}
	return result, firstErr
}

// AnswerAfter returns the text following the last occurrence of marker,
// or the whole trimmed response when the marker is absent.
func AnswerAfter(response, marker string) string {
	if i := strings.LastIndex(response, marker); i >= 0 {
		return strings.TrimSpace(response[i+len(marker):])
	}
	return strings.TrimSpace(response)
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return ""
	}
	// Simple truncation; does not account for rune boundaries but sufficient for error logging.
	return s[:maxLen] + "..."
}
