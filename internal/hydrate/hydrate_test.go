package hydrate

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	decoder := NewDecoder()
	entries, err := decoder.Decode(Context{Source: "seed.json", Format: FormatJSON}, []byte(`{"name":"demo","count":2}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entries["name"] != "demo" {
		t.Fatalf("expected name demo got %v", entries["name"])
	}
	if entries["count"] != float64(2) {
		t.Fatalf("expected float64 count got %T", entries["count"])
	}
}

func TestDecodeDefaultsToJSON(t *testing.T) {
	decoder := NewDecoder()
	entries, err := decoder.Decode(Context{Source: "seed"}, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entries["ok"] != true {
		t.Fatalf("expected ok true got %v", entries["ok"])
	}
}

func TestDecodeJSONC(t *testing.T) {
	payload := []byte(`{
		// a comment survives the jsonc pass
		"feature": "on",
	}`)
	decoder := NewDecoder()
	entries, err := decoder.Decode(Context{Source: "seed.jsonc", Format: FormatJSONC}, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entries["feature"] != "on" {
		t.Fatalf("expected feature on got %v", entries["feature"])
	}
}

func TestDecodeYAML(t *testing.T) {
	payload := []byte("database:\n  host: localhost\n  port: 5432\n")
	decoder := NewDecoder()
	entries, err := decoder.Decode(Context{Source: "seed.yaml", Format: FormatYAML}, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	db, ok := entries["database"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map got %T", entries["database"])
	}
	if db["host"] != "localhost" || db["port"] != 5432 {
		t.Fatalf("unexpected nested values: %v", db)
	}
}

func TestDecodeUseNumber(t *testing.T) {
	decoder := NewDecoder(WithUseNumber())
	entries, err := decoder.Decode(Context{Format: FormatJSON}, []byte(`{"count":9007199254740993}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	number, ok := entries["count"].(json.Number)
	if !ok {
		t.Fatalf("expected json.Number got %T", entries["count"])
	}
	if number.String() != "9007199254740993" {
		t.Fatalf("expected exact integer got %s", number)
	}
}

func TestPreHookCanReplaceEntries(t *testing.T) {
	decoder := NewDecoder(WithPreHook(func(ctx Context, entries map[string]any) (map[string]any, error) {
		entries["source"] = ctx.Source
		return entries, nil
	}))
	entries, err := decoder.Decode(Context{Source: "seed.json", Format: FormatJSON}, []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entries["source"] != "seed.json" {
		t.Fatalf("expected pre-hook mutation, got %v", entries["source"])
	}
}

func TestPreHookNilResultKeepsEntries(t *testing.T) {
	decoder := NewDecoder(WithPreHook(func(Context, map[string]any) (map[string]any, error) {
		return nil, nil
	}))
	entries, err := decoder.Decode(Context{Format: FormatJSON}, []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entries["a"] != float64(1) {
		t.Fatalf("expected original entries retained, got %v", entries)
	}
}

func TestPostHookErrorAborts(t *testing.T) {
	want := errors.New("missing required key")
	decoder := NewDecoder(WithPostHook(func(Context, map[string]any) error {
		return want
	}))
	_, err := decoder.Decode(Context{Source: "seed.json", Format: FormatJSON}, []byte(`{"a":1}`))
	if err == nil {
		t.Fatalf("expected post-hook error")
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected wrapped post-hook error, got %v", err)
	}
	if !strings.Contains(err.Error(), "seed.json") {
		t.Fatalf("expected source in error, got %v", err)
	}
}

func TestDecodeNilPayload(t *testing.T) {
	decoder := NewDecoder()
	if _, err := decoder.Decode(Context{Source: "seed"}, nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	decoder := NewDecoder()
	_, err := decoder.Decode(Context{Format: Format("toml")}, []byte(`a = 1`))
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	decoder := NewDecoder()
	if _, err := decoder.Decode(Context{Format: FormatJSON}, []byte(`{`)); err == nil {
		t.Fatalf("expected parse error")
	}
}
