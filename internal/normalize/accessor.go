// Package normalize maps heterogeneous backend records into the canonical view models.
//
// Every logical value that the backend may publish under several names is described
// by an ordered list of accessors; the first accessor that yields a present,
// non-null value wins. All functions are pure.
package normalize

import (
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
)

// accessor extracts a raw JSON value from a record.
type accessor func(raw []byte) ([]byte, jsonparser.ValueType, bool)

// at returns an accessor for a nested key path.
func at(keys ...string) accessor {
	return func(raw []byte) ([]byte, jsonparser.ValueType, bool) {
		v, typ, _, err := jsonparser.Get(raw, keys...)
		if err != nil || typ == jsonparser.NotExist || typ == jsonparser.Null {
			return nil, jsonparser.NotExist, false
		}
		return v, typ, true
	}
}

// first returns the value of the first accessor that resolves.
func first(raw []byte, accs []accessor) ([]byte, jsonparser.ValueType, bool) {
	for _, acc := range accs {
		if v, typ, ok := acc(raw); ok {
			return v, typ, true
		}
	}
	return nil, jsonparser.NotExist, false
}

// stringOf resolves a text value. Numbers and booleans are rendered verbatim.
func stringOf(raw []byte, accs []accessor) (string, bool) {
	v, typ, ok := first(raw, accs)
	if !ok {
		return "", false
	}
	return scalarString(v, typ), true
}

// numberOf resolves a numeric value, accepting numeric strings.
func numberOf(raw []byte, accs []accessor) (float64, bool) {
	v, typ, ok := first(raw, accs)
	if !ok {
		return 0, false
	}
	return parseNumber(v, typ)
}

func parseNumber(v []byte, typ jsonparser.ValueType) (float64, bool) {
	switch typ {
	case jsonparser.Number:
		f, err := jsonparser.ParseFloat(v)
		if err != nil {
			return 0, false
		}
		return f, true
	case jsonparser.String:
		s, err := jsonparser.ParseString(v)
		if err != nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// scalarString renders any JSON value as display text.
func scalarString(v []byte, typ jsonparser.ValueType) string {
	switch typ {
	case jsonparser.String:
		s, err := jsonparser.ParseString(v)
		if err != nil {
			return string(v)
		}
		return s
	case jsonparser.Null, jsonparser.NotExist:
		return ""
	default:
		return string(v)
	}
}

// isObject reports whether raw is a JSON object.
func isObject(raw []byte) bool {
	_, typ, _, err := jsonparser.Get(raw)
	return err == nil && typ == jsonparser.Object
}

// textOf resolves a text value, treating blank strings as absent so the next candidate is tried.
func textOf(raw []byte, accs []accessor) (string, bool) {
	for _, acc := range accs {
		v, typ, ok := acc(raw)
		if !ok {
			continue
		}
		if s := scalarString(v, typ); strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

// embedded unwraps a JSON document that was published as a string value.
func embedded(v []byte, typ jsonparser.ValueType) ([]byte, jsonparser.ValueType) {
	if typ != jsonparser.String {
		return v, typ
	}
	s, err := jsonparser.ParseString(v)
	if err != nil {
		return v, typ
	}
	inner := []byte(strings.TrimSpace(s))
	_, innerTyp, _, err := jsonparser.Get(inner)
	if err != nil || (innerTyp != jsonparser.Array && innerTyp != jsonparser.Object) {
		return v, typ
	}
	return inner, innerTyp
}
