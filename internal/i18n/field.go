package i18n

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldKind tags the decoded shape of a listing field.
type FieldKind int

const (
	// KindEmpty means the field is absent, null, or undecodable.
	KindEmpty FieldKind = iota
	// KindPlain is a single scalar value.
	KindPlain
	// KindLocalized is a language-code-to-string mapping.
	KindLocalized
	// KindSequence is an array value (images and the like). Sequences
	// never localize.
	KindSequence
)

type fieldEntry struct {
	lang   string
	value  string
	truthy bool
}

// Field is the tagged union behind a possibly-multilingual listing
// field: either one plain scalar or an ordered mapping from language
// code to value. Document key order is preserved so the last-resort
// fallback can pick the first entry the writer put there.
type Field struct {
	Kind    FieldKind
	plain   fieldEntry
	entries []fieldEntry
}

// ParseField decodes a raw JSON value into a Field.
func ParseField(raw json.RawMessage) Field {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Field{}
	}
	switch trimmed[0] {
	case '{':
		return parseLocalized(trimmed)
	case '[':
		return Field{Kind: KindSequence}
	default:
		value, truthy, ok := scalarValue(trimmed)
		if !ok {
			return Field{}
		}
		return Field{Kind: KindPlain, plain: fieldEntry{value: value, truthy: truthy}}
	}
}

// Plain returns the scalar value and whether it is non-empty.
func (f Field) Plain() (string, bool) {
	if f.Kind != KindPlain {
		return "", false
	}
	return f.plain.value, f.plain.truthy
}

// Get returns the value mapped to lang, skipping empty values.
func (f Field) Get(lang string) (string, bool) {
	for _, e := range f.entries {
		if e.lang == lang && e.truthy {
			return e.value, true
		}
	}
	return "", false
}

// First returns the first mapping entry in document order.
func (f Field) First() (string, bool) {
	if len(f.entries) == 0 {
		return "", false
	}
	first := f.entries[0]
	return first.value, first.truthy
}

func parseLocalized(raw []byte) Field {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil { // opening brace
		return Field{}
	}

	f := Field{Kind: KindLocalized}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Field{}
		}
		key, ok := keyTok.(string)
		if !ok {
			return Field{}
		}
		valTok, err := dec.Token()
		if err != nil {
			return Field{}
		}
		if delim, isDelim := valTok.(json.Delim); isDelim {
			// Nested structure inside a localized mapping carries no
			// text; skip it wholesale.
			if err := skipNested(dec, delim); err != nil {
				return Field{}
			}
			continue
		}
		value, truthy := tokenValue(valTok)
		f.entries = append(f.entries, fieldEntry{lang: key, value: value, truthy: truthy})
	}
	return f
}

func skipNested(dec *json.Decoder, open json.Delim) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	_ = open
	return nil
}

// scalarValue stringifies a raw scalar. The second return reports
// JS-style truthiness (empty string, zero, false and null all count as
// absent); the third reports whether the value was a scalar at all.
func scalarValue(raw []byte) (string, bool, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return "", false, false
	}
	if _, isDelim := tok.(json.Delim); isDelim {
		return "", false, false
	}
	value, truthy := tokenValue(tok)
	return value, truthy, true
}

func tokenValue(tok json.Token) (string, bool) {
	switch v := tok.(type) {
	case string:
		return v, v != ""
	case json.Number:
		f, err := v.Float64()
		return v.String(), err == nil && f != 0
	case bool:
		return fmt.Sprintf("%t", v), v
	default: // nil
		return "", false
	}
}
