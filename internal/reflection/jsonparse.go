package reflection

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// braceObjectPattern spans from the first '{' to the last '}', i.e. the
// largest brace-delimited substring.
var braceObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

var errNoJSONObject = errors.New("reflection: no JSON object in oracle output")

// parseStrictObject is stage one: the trimmed text must be a JSON object.
func parseStrictObject(text string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &obj); err != nil {
		return nil, fmt.Errorf("reflection: strict parse: %w", err)
	}
	if obj == nil {
		return nil, errNoJSONObject
	}
	return obj, nil
}

// parseBraceObject is stage two: pull the largest {...} out of surrounding
// prose or code fences and parse that.
func parseBraceObject(text string) (map[string]json.RawMessage, error) {
	match := braceObjectPattern.FindString(text)
	if match == "" {
		return nil, errNoJSONObject
	}
	obj, err := parseStrictObject(match)
	if err != nil {
		return nil, fmt.Errorf("reflection: brace extraction parse: %w", err)
	}
	return obj, nil
}

// parseOracleObject runs the strict stage and falls back to brace extraction.
func parseOracleObject(text string) (map[string]json.RawMessage, error) {
	obj, err := parseStrictObject(text)
	if err == nil {
		return obj, nil
	}
	return parseBraceObject(text)
}

// requiredStrings pulls the named string fields out of a parsed object,
// failing if any is missing, not a string, or blank.
func requiredStrings(obj map[string]json.RawMessage, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		v, err := textField(obj, name)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("%w: %s is empty", errSchema, name)
		}
		out[name] = strings.TrimSpace(v)
	}
	return out, nil
}
