// Package convert translates values between two type systems.
//
// Each type system implements Converter once. Convert walks a value of one
// system and rebuilds it in the other, so adding a new embedding only
// requires a new Converter, never a new pairwise translation.
package convert

import (
	"errors"
	"iter"
	"log/slog"

	"github.com/haivivi/starside/pkg/value"
)

// DefaultMaxDepth bounds the nesting depth Convert will descend into.
const DefaultMaxDepth = 64

// ErrMalformed is returned by iteration cursors for sources that are not
// the list or dict they were classified as.
var ErrMalformed = errors.New("convert: malformed container")

// ListBuilder accumulates list elements of type V.
type ListBuilder[V any] interface {
	Append(v V)
	Build() V
}

// DictBuilder accumulates string-keyed dict entries of type V.
type DictBuilder[V any] interface {
	Set(key, v V)
	Build() V
}

// Converter classifies, extracts and constructs values of one type system.
//
// Extractors are only called with values whose Classify result matches
// their tag. Strings returned by AsString are Go strings and stay valid
// after later calls.
type Converter[V any] interface {
	Classify(v V) value.Tag

	AsInteger(v V) int64
	AsFloating(v V) float64
	AsBoolean(v V) bool
	AsString(v V) string
	AsDate(v V) value.Date
	AsTime(v V) value.Time
	AsDateTime(v V) value.DateTime

	// AsForeignHandle returns a new owned reference; the caller releases it
	// or hands it to FromForeignHandle.
	AsForeignHandle(v V) value.ForeignHandle
	AsHostHandle(v V) *value.HostObjectRef

	// IterateList returns a finite, single-pass cursor over list elements.
	IterateList(v V) (iter.Seq[V], error)
	// IterateDict returns a finite, single-pass cursor over dict entries.
	IterateDict(v V) (iter.Seq2[V, V], error)

	None() V
	FromInteger(i int64) V
	FromFloating(f float64) V
	FromBoolean(b bool) V
	FromString(s string) V
	FromDate(d value.Date) V
	FromTime(t value.Time) V
	FromDateTime(dt value.DateTime) V
	// FromForeignHandle takes ownership of h.
	FromForeignHandle(h value.ForeignHandle) V
	FromHostHandle(r *value.HostObjectRef) V

	NewListBuilder() ListBuilder[V]
	NewDictBuilder() DictBuilder[V]
}

// Identifier is implemented by converters whose containers are mutable
// and may therefore contain themselves. IdentityOf returns a comparable key
// for a list or dict, or false for values without identity.
type Identifier[V any] interface {
	IdentityOf(v V) (any, bool)
}

type options struct {
	maxDepth int
	logger   *slog.Logger
}

// Option configures Convert.
type Option func(*options)

// WithMaxDepth sets the nesting limit. Subtrees below it convert to None.
// A non-positive depth restores DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		if depth <= 0 {
			depth = DefaultMaxDepth
		}
		o.maxDepth = depth
	}
}

// WithLogger sets the logger used for contained conversion failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Convert translates v from the type system of from into that of to.
//
// Failures are contained to the offending subtree: a malformed container,
// a subtree nested deeper than the depth limit, or a container already being
// converted further up (a cycle, detected when from is an Identifier) is
// logged and replaced with None. Dict keys always pass through a string.
func Convert[A, B any](v A, from Converter[A], to Converter[B], opts ...Option) B {
	o := options{maxDepth: DefaultMaxDepth, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	c := converter[A, B]{from: from, to: to, opts: o}
	c.ids, _ = from.(Identifier[A])
	return c.convert(v, 0)
}

type converter[A, B any] struct {
	from Converter[A]
	to   Converter[B]
	opts options

	ids  Identifier[A]
	path map[any]struct{}
}

// enter marks v as being converted. It reports false when v is already on
// the current path. The returned func unmarks it.
func (c *converter[A, B]) enter(v A) (func(), bool) {
	if c.ids == nil {
		return func() {}, true
	}
	id, ok := c.ids.IdentityOf(v)
	if !ok {
		return func() {}, true
	}
	if _, seen := c.path[id]; seen {
		return nil, false
	}
	if c.path == nil {
		c.path = make(map[any]struct{})
	}
	c.path[id] = struct{}{}
	return func() { delete(c.path, id) }, true
}

func (c *converter[A, B]) convert(v A, depth int) B {
	tag := c.from.Classify(v)
	if depth >= c.opts.maxDepth && (tag == value.TagList || tag == value.TagDict) {
		c.opts.logger.Warn("convert: nesting too deep, using None", "depth", depth, "tag", tag)
		return c.to.None()
	}
	if tag == value.TagList || tag == value.TagDict {
		leave, ok := c.enter(v)
		if !ok {
			c.opts.logger.Warn("convert: container contains itself, using None", "tag", tag)
			return c.to.None()
		}
		defer leave()
	}

	switch tag {
	case value.TagNone:
		return c.to.None()
	case value.TagInteger:
		return c.to.FromInteger(c.from.AsInteger(v))
	case value.TagFloating:
		return c.to.FromFloating(c.from.AsFloating(v))
	case value.TagBoolean:
		return c.to.FromBoolean(c.from.AsBoolean(v))
	case value.TagString:
		return c.to.FromString(c.from.AsString(v))
	case value.TagDate:
		return c.to.FromDate(c.from.AsDate(v))
	case value.TagTime:
		return c.to.FromTime(c.from.AsTime(v))
	case value.TagDateTime:
		return c.to.FromDateTime(c.from.AsDateTime(v))
	case value.TagForeign:
		return c.to.FromForeignHandle(c.from.AsForeignHandle(v))
	case value.TagHost:
		return c.to.FromHostHandle(c.from.AsHostHandle(v))
	case value.TagList:
		items, err := c.from.IterateList(v)
		if err != nil {
			c.opts.logger.Warn("convert: cannot iterate list", "error", err)
			return c.to.None()
		}
		b := c.to.NewListBuilder()
		for item := range items {
			b.Append(c.convert(item, depth+1))
		}
		return b.Build()
	case value.TagDict:
		entries, err := c.from.IterateDict(v)
		if err != nil {
			c.opts.logger.Warn("convert: cannot iterate dict", "error", err)
			return c.to.None()
		}
		b := c.to.NewDictBuilder()
		for k, x := range entries {
			b.Set(c.to.FromString(c.from.AsString(k)), c.convert(x, depth+1))
		}
		return b.Build()
	default:
		c.opts.logger.Warn("convert: unknown tag, using None", "tag", tag)
		return c.to.None()
	}
}
