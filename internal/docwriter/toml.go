package docwriter

import (
	"github.com/pelletier/go-toml/v2"
)

// tomlWriter emits one table per scope. go-toml orders map keys
// lexically, so TOML documents do not keep insertion order.
type tomlWriter struct {
	tables  map[string]map[string]string
	current map[string]string
	limit   int
	track   scopeTracker
}

func (w *tomlWriter) BeginScope(name string) error {
	if err := checkText(name); err != nil {
		return err
	}
	if err := w.track.begin(); err != nil {
		return err
	}
	if w.tables == nil {
		w.tables = map[string]map[string]string{}
	}
	table, ok := w.tables[name]
	if !ok {
		table = map[string]string{}
		w.tables[name] = table
	}
	w.current = table
	return nil
}

func (w *tomlWriter) Pair(key, value string) error {
	if err := w.track.pair(); err != nil {
		return err
	}
	if err := checkText(key, value); err != nil {
		return err
	}
	w.current[key] = value
	return nil
}

func (w *tomlWriter) EndScope() error {
	if err := w.track.end(); err != nil {
		return err
	}
	w.current = nil
	return nil
}

func (w *tomlWriter) Bytes() ([]byte, error) {
	if err := w.track.finish(); err != nil {
		return nil, err
	}
	if len(w.tables) == 0 {
		return []byte{}, nil
	}
	out, err := toml.Marshal(w.tables)
	if err != nil {
		return nil, err
	}
	if err := checkLimit(w.limit, len(out)); err != nil {
		return nil, err
	}
	return out, nil
}
