package kbopts

import (
	"encoding/json"
	"time"

	"github.com/goliatone/go-kbopts/layering"
)

// Trace captures which scopes were consulted for a key and which one
// supplied the effective value.
type Trace struct {
	Key    string       `json:"key"`
	Layers []Provenance `json:"layers"`
}

// Provenance details how one scope contributed to a traced key.
type Provenance struct {
	Scope string `json:"scope"`
	Value string `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// DefaultOrder lets keyboard options override environment options.
var DefaultOrder = []Scope{ScopeKeyboard, ScopeEnvironment}

func resolveChain(order []Scope) []Scope {
	if len(order) == 0 {
		order = DefaultOrder
	}
	valid := make([]Scope, 0, len(order))
	for _, scope := range order {
		if scope.Valid() {
			valid = append(valid, scope)
		}
	}
	return layering.NewChain(valid...).Ordered()
}

// Effective merges the listed scopes, strongest first, into one key/value
// map. With no order, DefaultOrder applies. Invalid scopes are ignored.
func (o *Options) Effective(order ...Scope) map[string]string {
	snapshot := o.Snapshot()
	chain := resolveChain(order)
	layers := make([]map[string]string, len(chain))
	for i, scope := range chain {
		layers[i] = snapshot[scope.String()]
	}
	return layering.Merge(layers...)
}

// ResolveWithTrace returns the effective value of key across scopes along
// with the provenance of every consulted scope. A key no scope defines
// reports ErrKeyError.
func (o *Options) ResolveWithTrace(key string, order ...Scope) (string, Trace, error) {
	start := time.Now()
	if o == nil {
		return "", Trace{}, statusError(OpLookup, StatusInvalidArgument, ScopeUnknown, key, errNilHandle)
	}
	if key == "" {
		return "", Trace{}, statusError(OpLookup, StatusInvalidArgument, ScopeUnknown, key, errEmptyKey)
	}

	trace := Trace{Key: key}
	chain := resolveChain(order)
	layers := make([]map[string]string, len(chain))
	for i, scope := range chain {
		v, ok := o.store.Lookup(uint8(scope), key)
		trace.Layers = append(trace.Layers, Provenance{Scope: scope.String(), Value: v, Found: ok})
		if ok {
			layers[i] = map[string]string{key: v}
		}
	}

	var (
		value string
		from  = ScopeUnknown
	)
	if i := layering.Find(key, layers...); i >= 0 {
		value, from = layers[i][key], chain[i]
	}

	var err error
	if from == ScopeUnknown {
		err = statusError(OpLookup, StatusKeyError, ScopeUnknown, key, nil)
	}
	o.log(OperationEvent{
		Op:       OpLookup,
		Scope:    from,
		Key:      key,
		Status:   StatusOf(err),
		Duration: time.Since(start),
		Err:      err,
	})
	return value, trace, err
}
