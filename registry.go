package kbopts

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-kbopts/internal/docwriter"
	"github.com/goliatone/go-kbopts/pkg/store"
)

var (
	errNilHandle   = errors.New("options handle is nil")
	errNilBatch    = errors.New("batch is nil")
	errEmptyKey    = errors.New("key is empty")
	errScopeRange  = errors.New("scope out of range")
	errInvalidText = errors.New("key or value is not valid UTF-8")
)

// ListSize counts the entries of items before the end marker (an Item with
// an empty key). A batch without an end marker counts to the end of the
// slice. A nil batch is an invalid argument.
func ListSize(items []Item) (int, error) {
	if items == nil {
		return 0, statusError(OpListSize, StatusInvalidArgument, ScopeUnknown, "", errNilBatch)
	}
	for i, item := range items {
		if item.Key == "" {
			return i, nil
		}
	}
	return len(items), nil
}

// Lookup returns the value stored for (scope, key).
func (o *Options) Lookup(scope Scope, key string) (string, error) {
	start := time.Now()
	if o == nil {
		return "", statusError(OpLookup, StatusInvalidArgument, scope, key, errNilHandle)
	}

	value, err := o.lookup(scope, key)
	o.log(OperationEvent{
		Op:       OpLookup,
		Scope:    scope,
		Key:      key,
		Status:   StatusOf(err),
		Duration: time.Since(start),
		Err:      err,
	})
	return value, err
}

func (o *Options) lookup(scope Scope, key string) (string, error) {
	if key == "" {
		return "", statusError(OpLookup, StatusInvalidArgument, scope, key, errEmptyKey)
	}
	if !scope.Valid() {
		return "", statusError(OpLookup, StatusInvalidArgument, scope, key, errScopeRange)
	}
	value, ok := o.store.Lookup(uint8(scope), key)
	if !ok {
		return "", statusError(OpLookup, StatusKeyError, scope, key, nil)
	}
	return value, nil
}

// Update applies items in order until the end marker or the end of the
// slice. It stops at the first failing entry; entries applied before that
// entry stay applied.
func (o *Options) Update(items []Item) error {
	start := time.Now()
	if o == nil {
		return statusError(OpUpdate, StatusInvalidArgument, ScopeUnknown, "", errNilHandle)
	}

	applied, failed, err := o.update(items)
	o.log(OperationEvent{
		Op:       OpUpdate,
		Scope:    failed.Scope,
		Key:      failed.Key,
		Status:   StatusOf(err),
		Applied:  applied,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

func (o *Options) update(items []Item) (int, Item, error) {
	if items == nil {
		return 0, Item{}, statusError(OpUpdate, StatusInvalidArgument, ScopeUnknown, "", errNilBatch)
	}

	applied := 0
	for _, item := range items {
		if item.Key == "" {
			break
		}
		if !item.Scope.Valid() {
			return applied, item, statusError(OpUpdate, StatusInvalidArgument, item.Scope, item.Key, errScopeRange)
		}
		if !utf8.ValidString(item.Key) || !utf8.ValidString(item.Value) {
			return applied, item, statusError(OpUpdate, StatusInvalidArgument, item.Scope, item.Key, errInvalidText)
		}
		if err := o.store.Assign(uint8(item.Scope), item.Key, item.Value); err != nil {
			status := StatusKeyError
			if errors.Is(err, store.ErrNoSpace) {
				status = StatusNoMemory
			}
			return applied, item, statusError(OpUpdate, status, item.Scope, item.Key, err)
		}
		applied++
	}
	return applied, Item{}, nil
}

// Serialize writes the store as a document into buf using the size
// negotiation protocol:
//   - the returned size is always len(document)+1, the bytes needed for the
//     document plus a trailing NUL terminator;
//   - the document and terminator are copied only when buf is non-nil and
//     len(buf) is strictly greater than the document length;
//   - when the document cannot be produced, for any reason, the size is 0
//     and the error reports ErrNoMemory.
//
// Call with a nil buf to query the size, then again with a buffer of at
// least that length.
func (o *Options) Serialize(buf []byte) (int, error) {
	start := time.Now()
	if o == nil {
		return 0, statusError(OpSerialize, StatusInvalidArgument, ScopeUnknown, "", errNilHandle)
	}

	size := 0
	doc, err := o.document()
	if err == nil {
		if buf != nil && len(buf) > len(doc) {
			copy(buf, doc)
			buf[len(doc)] = 0
		}
		size = len(doc) + 1
	}
	o.log(OperationEvent{
		Op:       OpSerialize,
		Status:   StatusOf(err),
		Size:     size,
		Duration: time.Since(start),
		Err:      err,
	})
	return size, err
}

// Document returns the serialized store without a terminator.
func (o *Options) Document() ([]byte, error) {
	if o == nil {
		return nil, statusError(OpSerialize, StatusInvalidArgument, ScopeUnknown, "", errNilHandle)
	}
	return o.document()
}

func (o *Options) document() ([]byte, error) {
	w, err := docwriter.New(o.cfg.format, o.cfg.maxDocument)
	if err != nil {
		return nil, serializeError(err)
	}
	if err := writeDocument(w, o.store); err != nil {
		return nil, serializeError(err)
	}
	doc, err := w.Bytes()
	if err != nil {
		return nil, serializeError(err)
	}
	return doc, nil
}

// writeDocument emits one writer scope per store scope. Entries are
// bucketed first so a store that interleaves scopes still yields each scope
// once, in order of first appearance.
func writeDocument(w docwriter.Writer, s store.Store) error {
	var order []Scope
	buckets := map[Scope][]store.Entry{}
	for entry := range s.All() {
		scope := Scope(entry.Scope)
		if !scope.Valid() {
			continue
		}
		if _, seen := buckets[scope]; !seen {
			order = append(order, scope)
		}
		buckets[scope] = append(buckets[scope], entry)
	}

	for _, scope := range order {
		if err := w.BeginScope(scope.String()); err != nil {
			return err
		}
		for _, entry := range buckets[scope] {
			if err := w.Pair(entry.Key, entry.Value); err != nil {
				return err
			}
		}
		if err := w.EndScope(); err != nil {
			return err
		}
	}
	return nil
}

// serializeError reports every document failure as NoMemory: the caller
// gets no document and a size of 0.
func serializeError(err error) error {
	return statusError(OpSerialize, StatusNoMemory, ScopeUnknown, "", err)
}
