// Package hydrate converts in-memory seed documents into flat entry maps
// ready for a store's bulk write path. It performs no file or network I/O.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a seed payload.
type Format string

const (
	// FormatJSON is a plain JSON object.
	FormatJSON Format = "json"
	// FormatJSONC is JSON with comments and trailing commas.
	FormatJSONC Format = "jsonc"
	// FormatYAML is a YAML mapping.
	FormatYAML Format = "yaml"
)

// Context carries identifiers tied to a seed payload.
type Context struct {
	Source string
	Format Format
}

// PreHook lets callers mutate or normalise the decoded entries before the
// post hooks run.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers validate the entries after decoding completes.
type PostHook func(Context, map[string]any) error

// DecoderOption configures a Decoder instance.
type DecoderOption func(*Decoder)

// Decoder converts seed payloads into flat entry maps.
type Decoder struct {
	preHooks  []PreHook
	postHooks []PostHook
	useNumber bool
}

// WithPreHook applies hook after parsing, before post hooks.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook once decoding completes.
func WithPostHook(hook PostHook) DecoderOption {
	return func(d *Decoder) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber decodes JSON numbers as json.Number instead of float64.
func WithUseNumber() DecoderOption {
	return func(d *Decoder) {
		d.useNumber = true
	}
}

// NewDecoder constructs a Decoder with the supplied options.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode parses payload according to ctx.Format and applies configured hooks.
func (d *Decoder) Decode(ctx Context, payload []byte) (map[string]any, error) {
	if payload == nil {
		return nil, fmt.Errorf("hydrate: payload is nil for source %q", ctx.Source)
	}

	entries, err := d.parse(ctx, payload)
	if err != nil {
		return nil, err
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, entries)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for source %q failed: %w", ctx.Source, err)
		}
		if next != nil {
			entries = next
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, entries); err != nil {
			return nil, fmt.Errorf("hydrate: post-hook for source %q failed: %w", ctx.Source, err)
		}
	}
	return entries, nil
}

func (d *Decoder) parse(ctx Context, payload []byte) (map[string]any, error) {
	switch ctx.Format {
	case FormatJSON, "":
		return d.parseJSON(ctx, payload)
	case FormatJSONC:
		return d.parseJSON(ctx, jsonc.ToJSON(payload))
	case FormatYAML:
		var entries map[string]any
		if err := yaml.Unmarshal(payload, &entries); err != nil {
			return nil, fmt.Errorf("hydrate: decode yaml for source %q: %w", ctx.Source, err)
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("hydrate: unsupported format %q", ctx.Format)
	}
}

func (d *Decoder) parseJSON(ctx Context, payload []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	if d.useNumber {
		decoder.UseNumber()
	}
	var entries map[string]any
	if err := decoder.Decode(&entries); err != nil {
		return nil, fmt.Errorf("hydrate: decode json for source %q: %w", ctx.Source, err)
	}
	return entries, nil
}
