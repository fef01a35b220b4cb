// Package i18n resolves localized listing content. Listings written over
// the years use two representations interchangeably: object-valued
// fields ({"en": ..., "ar": ...}) and suffixed fields (title_en,
// title_ar). The resolver makes both work, with English as the fallback
// language.
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"estate-hub/internal/kvstore"
)

// DefaultLanguage is the fallback for missing translations and unset
// preferences.
const DefaultLanguage = "en"

// PreferenceKey is the storage key holding the visitor's language choice
// as a plain string.
const PreferenceKey = "language"

// Languages lists the supported language codes.
var Languages = []string{"en", "ar", "tr"}

// localizedFields are the listing fields that carry translated content.
var localizedFields = []string{"title", "description", "location", "area", "price"}

// Supported reports whether lang is a known language code.
func Supported(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Resolve picks the best available value for the named field. Priority,
// first match wins:
//
//  1. field is a mapping: mapping[lang], else mapping["en"], else the
//     first entry in document order, else "".
//  2. field_<lang> exists.
//  3. field exists as a plain scalar.
//  4. lang is not "en" and field_en exists.
//  5. "".
func Resolve(fields map[string]json.RawMessage, name, lang string) string {
	if len(fields) == 0 || name == "" {
		return ""
	}
	if lang == "" {
		lang = DefaultLanguage
	}

	if raw, ok := fields[name]; ok {
		f := ParseField(raw)
		if f.Kind == KindLocalized {
			if v, ok := f.Get(lang); ok {
				return v
			}
			if v, ok := f.Get(DefaultLanguage); ok {
				return v
			}
			if v, ok := f.First(); ok {
				return v
			}
			return ""
		}
	}

	if raw, ok := fields[name+"_"+lang]; ok {
		if v, truthy, isScalar := scalarValue(raw); isScalar && truthy {
			return v
		}
	}

	if raw, ok := fields[name]; ok {
		if f := ParseField(raw); f.Kind == KindPlain {
			if v, ok := f.Plain(); ok {
				return v
			}
		}
	}

	if lang != DefaultLanguage {
		if raw, ok := fields[name+"_en"]; ok {
			if v, truthy, isScalar := scalarValue(raw); isScalar && truthy {
				return v
			}
		}
	}

	return ""
}

// LocalizeItem resolves every translatable field of a listing for lang.
func LocalizeItem(fields map[string]json.RawMessage, lang string) map[string]string {
	out := make(map[string]string, len(localizedFields))
	for _, name := range localizedFields {
		out[name] = Resolve(fields, name, lang)
	}
	return out
}

// Preference reads the persisted language choice, defaulting to "en" on
// absence, read failure or an unsupported value.
func Preference(ctx context.Context, kv kvstore.Store, logger *slog.Logger) string {
	raw, ok, err := kv.Get(ctx, PreferenceKey)
	if err != nil {
		logger.Warn("failed reading language preference", "error", err)
		return DefaultLanguage
	}
	if !ok {
		return DefaultLanguage
	}
	lang := string(raw)
	if !Supported(lang) {
		return DefaultLanguage
	}
	return lang
}

// SetPreference persists the language choice.
func SetPreference(ctx context.Context, kv kvstore.Store, lang string) error {
	if !Supported(lang) {
		return fmt.Errorf("unsupported language: %s", lang)
	}
	if err := kv.Put(ctx, PreferenceKey, []byte(lang)); err != nil {
		return fmt.Errorf("persist language preference: %w", err)
	}
	return nil
}
