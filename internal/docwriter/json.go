package docwriter

import (
	"bytes"
	"encoding/json"
)

const jsonIndent = "  "

// jsonWriter streams an indented JSON object of objects, keeping the order
// in which scopes and pairs arrive.
type jsonWriter struct {
	buf    bytes.Buffer
	limit  int
	scopes int
	pairs  int
	track  scopeTracker
	err    error
}

func (w *jsonWriter) BeginScope(name string) error {
	if w.err != nil {
		return w.err
	}
	if err := checkText(name); err != nil {
		return err
	}
	if err := w.track.begin(); err != nil {
		return err
	}
	if w.scopes == 0 {
		w.buf.WriteString("{\n")
	} else {
		w.buf.WriteString(",\n")
	}
	w.buf.WriteString(jsonIndent)
	w.writeString(name)
	w.buf.WriteString(": {")
	w.pairs = 0
	return w.check()
}

func (w *jsonWriter) Pair(key, value string) error {
	if w.err != nil {
		return w.err
	}
	if err := w.track.pair(); err != nil {
		return err
	}
	if err := checkText(key, value); err != nil {
		return err
	}
	if w.pairs == 0 {
		w.buf.WriteString("\n")
	} else {
		w.buf.WriteString(",\n")
	}
	w.buf.WriteString(jsonIndent + jsonIndent)
	w.writeString(key)
	w.buf.WriteString(": ")
	w.writeString(value)
	w.pairs++
	return w.check()
}

func (w *jsonWriter) EndScope() error {
	if w.err != nil {
		return w.err
	}
	if err := w.track.end(); err != nil {
		return err
	}
	if w.pairs > 0 {
		w.buf.WriteString("\n" + jsonIndent)
	}
	w.buf.WriteString("}")
	w.scopes++
	return w.check()
}

func (w *jsonWriter) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if err := w.track.finish(); err != nil {
		return nil, err
	}
	if w.scopes == 0 {
		return []byte{}, nil
	}
	w.buf.WriteString("\n}")
	if err := w.check(); err != nil {
		return nil, err
	}
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	return out, nil
}

func (w *jsonWriter) writeString(s string) {
	var scratch bytes.Buffer
	enc := json.NewEncoder(&scratch)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	w.buf.Write(bytes.TrimSuffix(scratch.Bytes(), []byte("\n")))
}

func (w *jsonWriter) check() error {
	if err := checkLimit(w.limit, w.buf.Len()); err != nil {
		w.err = err
		return err
	}
	return nil
}
