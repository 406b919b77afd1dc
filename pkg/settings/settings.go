// Package settings persists host values under hierarchical keys. Scripts
// reach it through the "settings" module; the CLI selects the backend.
//
// Values are stored msgpack encoded, so anything but handles survives a
// restart. Two backends exist: BadgerDB for on-disk persistence and an
// in-memory map for tests and ephemeral sessions.
package settings

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/haivivi/starside/pkg/value"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("settings: not found")

// ErrBadKey is returned for empty keys and segments containing the
// separator.
var ErrBadKey = errors.New("settings: invalid key")

// DefaultSeparator joins key segments in storage and in script-facing
// dotted keys.
const DefaultSeparator byte = '.'

// Key is a hierarchical path, e.g. Key{"window", "geometry"}.
type Key []string

func (k Key) String() string { return strings.Join(k, string(DefaultSeparator)) }

// ParseKey splits a dotted key.
func ParseKey(s string) Key {
	if s == "" {
		return nil
	}
	return Key(strings.Split(s, string(DefaultSeparator)))
}

// Entry is one stored setting.
type Entry struct {
	Key   Key
	Value value.Value
}

// Store holds settings.
type Store interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key Key) (value.Value, error)

	// Set stores v at key, replacing any previous value.
	Set(ctx context.Context, key Key, v value.Value) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// List yields entries under prefix in key order. An empty prefix
	// lists everything.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// BatchSet stores several entries atomically.
	BatchSet(ctx context.Context, entries []Entry) error

	// BatchDelete removes several keys atomically.
	BatchDelete(ctx context.Context, keys []Key) error

	Close() error
}

// Options configures key encoding.
type Options struct {
	// Separator joins key segments in storage. Zero means DefaultSeparator.
	Separator byte
}

func (o *Options) sep() byte {
	if o == nil || o.Separator == 0 {
		return DefaultSeparator
	}
	return o.Separator
}

func (o *Options) encode(k Key) ([]byte, error) {
	if len(k) == 0 {
		return nil, ErrBadKey
	}
	sep := o.sep()
	for _, seg := range k {
		if seg == "" || strings.IndexByte(seg, sep) >= 0 {
			return nil, ErrBadKey
		}
	}
	return []byte(strings.Join(k, string(sep))), nil
}

// prefix returns the encoded scan prefix for p, terminated by the
// separator so that "a" does not match "ab".
func (o *Options) prefix(p Key) ([]byte, error) {
	if len(p) == 0 {
		return nil, nil
	}
	b, err := o.encode(p)
	if err != nil {
		return nil, err
	}
	return append(b, o.sep()), nil
}

func (o *Options) decode(b []byte) Key {
	return Key(strings.Split(string(b), string(o.sep())))
}

func encodeValue(v value.Value) ([]byte, error) { return value.Marshal(v) }

func decodeValue(b []byte) (value.Value, error) { return value.Unmarshal(b) }
