package i18n

import (
	"encoding/json"
	"testing"
)

func fields(pairs map[string]string) map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	for k, v := range pairs {
		out[k] = json.RawMessage(v)
	}
	return out
}

func TestResolveMappingPrefersRequestedLanguage(t *testing.T) {
	item := fields(map[string]string{
		"title": `{"en": "A", "ar": "ب"}`,
	})
	if got := Resolve(item, "title", "ar"); got != "ب" {
		t.Fatalf("expected Arabic value, got %q", got)
	}
}

func TestResolveMappingFallsBackToEnglish(t *testing.T) {
	item := fields(map[string]string{
		"title": `{"en": "A", "ar": "ب"}`,
	})
	if got := Resolve(item, "title", "tr"); got != "A" {
		t.Fatalf("expected English fallback, got %q", got)
	}
}

func TestResolveMappingFallsBackToFirstKey(t *testing.T) {
	item := fields(map[string]string{
		"title": `{"tr": "Ev", "ar": "بيت"}`,
	})
	if got := Resolve(item, "title", "en"); got != "Ev" {
		t.Fatalf("expected first entry in document order, got %q", got)
	}
}

func TestResolveMappingSkipsEmptyValues(t *testing.T) {
	item := fields(map[string]string{
		"title": `{"ar": "", "en": "House"}`,
	})
	if got := Resolve(item, "title", "ar"); got != "House" {
		t.Fatalf("expected empty Arabic value to be skipped, got %q", got)
	}
}

func TestResolveMappingWinsOverSuffixedFields(t *testing.T) {
	// The mapping chain answers even when a suffixed field also exists.
	item := fields(map[string]string{
		"title":    `{"en": "Object Form"}`,
		"title_tr": `"Suffix Form"`,
	})
	if got := Resolve(item, "title", "tr"); got != "Object Form" {
		t.Fatalf("expected mapping to win, got %q", got)
	}
}

func TestResolveSuffixedField(t *testing.T) {
	item := fields(map[string]string{
		"title_tr": `"Ev"`,
		"title_en": `"House"`,
	})
	if got := Resolve(item, "title", "tr"); got != "Ev" {
		t.Fatalf("expected suffixed value, got %q", got)
	}
}

func TestResolvePlainScalar(t *testing.T) {
	item := fields(map[string]string{
		"location": `"Famagusta"`,
	})
	if got := Resolve(item, "location", "ar"); got != "Famagusta" {
		t.Fatalf("expected plain value, got %q", got)
	}
}

func TestResolveNumericScalar(t *testing.T) {
	item := fields(map[string]string{
		"price": `145000`,
	})
	if got := Resolve(item, "price", "en"); got != "145000" {
		t.Fatalf("expected numeric value as text, got %q", got)
	}
}

func TestResolveEnglishSuffixFallback(t *testing.T) {
	item := fields(map[string]string{
		"title_en": `"House"`,
	})
	if got := Resolve(item, "title", "ar"); got != "House" {
		t.Fatalf("expected _en fallback, got %q", got)
	}
}

func TestResolveEnglishSuffixNotUsedForEnglish(t *testing.T) {
	// Rule 2 already covers title_en when lang is en; with only a
	// Turkish suffix present, English resolution finds nothing.
	item := fields(map[string]string{
		"title_tr": `"Ev"`,
	})
	if got := Resolve(item, "title", "en"); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestResolveEmptyItem(t *testing.T) {
	if got := Resolve(map[string]json.RawMessage{}, "title", "en"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := Resolve(nil, "title", "en"); got != "" {
		t.Fatalf("expected empty string for nil item, got %q", got)
	}
}

func TestResolveSequenceFallsThrough(t *testing.T) {
	// Arrays never localize; resolution continues down the chain.
	item := fields(map[string]string{
		"title":    `["not", "a", "mapping"]`,
		"title_en": `"House"`,
	})
	if got := Resolve(item, "title", "tr"); got != "House" {
		t.Fatalf("expected array to be skipped, got %q", got)
	}
}

func TestLocalizeItem(t *testing.T) {
	item := fields(map[string]string{
		"title":       `{"en": "Villa", "tr": "Villa Evi"}`,
		"description": `"Spacious"`,
		"price":       `"450000"`,
		"location_tr": `"Alanya"`,
	})
	localized := LocalizeItem(item, "tr")
	if localized["title"] != "Villa Evi" {
		t.Fatalf("unexpected title: %q", localized["title"])
	}
	if localized["description"] != "Spacious" {
		t.Fatalf("unexpected description: %q", localized["description"])
	}
	if localized["location"] != "Alanya" {
		t.Fatalf("unexpected location: %q", localized["location"])
	}
	if localized["area"] != "" {
		t.Fatalf("expected empty area, got %q", localized["area"])
	}
}

func TestSupported(t *testing.T) {
	for _, lang := range []string{"en", "ar", "tr"} {
		if !Supported(lang) {
			t.Fatalf("expected %s to be supported", lang)
		}
	}
	if Supported("de") {
		t.Fatal("expected de to be unsupported")
	}
}
