// Package hydrate parses serialized option documents back into scoped
// snapshots. It is the read side of internal/docwriter.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-kbopts/internal/docwriter"
)

// Snapshot maps scope name to key/value pairs.
type Snapshot map[string]map[string]string

// Context identifies the document being decoded.
type Context struct {
	Source string
	Format docwriter.Format
}

// PreHook lets callers mutate or normalise the raw payload before it is
// converted into a Snapshot.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers validate the converted snapshot.
type PostHook func(Context, Snapshot) error

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// Decoder converts documents into snapshots.
type Decoder struct {
	preHooks  []PreHook
	postHooks []PostHook
}

// WithPreHook applies hook prior to conversion.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after conversion completes.
func WithPostHook(hook PostHook) DecoderOption {
	return func(d *Decoder) {
		d.postHooks = append(d.postHooks, hook)
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode parses doc according to ctx.Format. An empty (or whitespace only)
// document decodes to an empty snapshot; post-hooks still see it.
func (d *Decoder) Decode(ctx Context, doc []byte) (Snapshot, error) {
	snapshot := Snapshot{}
	if len(bytes.TrimSpace(doc)) > 0 {
		var err error
		snapshot, err = d.convert(ctx, doc)
		if err != nil {
			return nil, err
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, snapshot); err != nil {
			return nil, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.Source, err)
		}
	}
	return snapshot, nil
}

func (d *Decoder) convert(ctx Context, doc []byte) (Snapshot, error) {
	payload, err := parse(ctx.Format, doc)
	if err != nil {
		return nil, fmt.Errorf("hydrate: parse %s document %q: %w", formatName(ctx.Format), ctx.Source, err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		payload, err = hook(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.Source, err)
		}
	}

	snapshot, err := toSnapshot(payload)
	if err != nil {
		return nil, fmt.Errorf("hydrate: document %q: %w", ctx.Source, err)
	}
	return snapshot, nil
}

// Decode parses doc with a default Decoder.
func Decode(format docwriter.Format, doc []byte) (Snapshot, error) {
	return NewDecoder().Decode(Context{Format: format}, doc)
}

func parse(format docwriter.Format, doc []byte) (map[string]any, error) {
	var payload map[string]any
	switch format {
	case "", docwriter.FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(doc))
		if err := dec.Decode(&payload); err != nil {
			return nil, err
		}
		if dec.More() {
			return nil, fmt.Errorf("trailing data after document")
		}
	case docwriter.FormatYAML:
		if err := yaml.Unmarshal(doc, &payload); err != nil {
			return nil, err
		}
	case docwriter.FormatTOML:
		if err := toml.Unmarshal(doc, &payload); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", docwriter.ErrFormat, format)
	}
	return payload, nil
}

func toSnapshot(payload map[string]any) (Snapshot, error) {
	out := make(Snapshot, len(payload))
	for scope, raw := range payload {
		entries, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("scope %q: expected mapping, got %T", scope, raw)
		}
		pairs := make(map[string]string, len(entries))
		for key, value := range entries {
			text, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("scope %q key %q: expected string, got %T", scope, key, value)
			}
			pairs[key] = text
		}
		out[scope] = pairs
	}
	return out, nil
}

func formatName(format docwriter.Format) string {
	if format == "" {
		return string(docwriter.FormatJSON)
	}
	return string(format)
}
