package docwriter

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// yamlWriter builds an ordered yaml.v3 node tree and encodes it on Bytes.
type yamlWriter struct {
	root    *yaml.Node
	current *yaml.Node
	limit   int
	track   scopeTracker
}

func newYAMLWriter(limit int) *yamlWriter {
	return &yamlWriter{
		root:  &yaml.Node{Kind: yaml.MappingNode},
		limit: limit,
	}
}

func (w *yamlWriter) BeginScope(name string) error {
	if err := checkText(name); err != nil {
		return err
	}
	if err := w.track.begin(); err != nil {
		return err
	}
	w.current = &yaml.Node{Kind: yaml.MappingNode}
	w.root.Content = append(w.root.Content, stringNode(name), w.current)
	return nil
}

func (w *yamlWriter) Pair(key, value string) error {
	if err := w.track.pair(); err != nil {
		return err
	}
	if err := checkText(key, value); err != nil {
		return err
	}
	w.current.Content = append(w.current.Content, stringNode(key), stringNode(value))
	return nil
}

func (w *yamlWriter) EndScope() error {
	if err := w.track.end(); err != nil {
		return err
	}
	w.current = nil
	return nil
}

func (w *yamlWriter) Bytes() ([]byte, error) {
	if err := w.track.finish(); err != nil {
		return nil, err
	}
	if len(w.root.Content) == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{w.root}}
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	if err := checkLimit(w.limit, buf.Len()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stringNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
