package settings

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/haivivi/starside/pkg/value"
)

// Badger is a Store backed by BadgerDB v4.
type Badger struct {
	db   *badger.DB
	opts *Options
}

// BadgerOptions configures NewBadger.
type BadgerOptions struct {
	Options *Options

	// Dir holds the database files. Required unless InMemory is set.
	Dir string

	// InMemory keeps all data in memory.
	InMemory bool

	// Logger receives badger's warnings and errors. Nil means slog.Default.
	Logger *slog.Logger
}

// NewBadger opens a BadgerDB store.
func NewBadger(bopts BadgerOptions) (*Badger, error) {
	if !bopts.InMemory && bopts.Dir == "" {
		return nil, errors.New("settings: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(bopts.Dir)
	if bopts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	logger := bopts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logger})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db, opts: bopts.Options}, nil
}

func (b *Badger) Get(_ context.Context, key Key) (value.Value, error) {
	k, err := b.opts.encode(key)
	if err != nil {
		return value.None(), err
	}
	var raw []byte
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return value.None(), ErrNotFound
	}
	if err != nil {
		return value.None(), err
	}
	return decodeValue(raw)
}

func (b *Badger) Set(_ context.Context, key Key, v value.Value) error {
	k, err := b.opts.encode(key)
	if err != nil {
		return err
	}
	raw, err := encodeValue(v)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, raw)
	})
}

func (b *Badger) Delete(_ context.Context, key Key) error {
	k, err := b.opts.encode(key)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

func (b *Badger) List(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	p, err := b.opts.prefix(prefix)
	return func(yield func(Entry, error) bool) {
		if err != nil {
			yield(Entry{}, err)
			return
		}
		stopped := false
		err := b.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.IteratorOptions{Prefix: p, PrefetchValues: true, PrefetchSize: 32})
			defer it.Close()
			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				item := it.Item()
				raw, err := item.ValueCopy(nil)
				var v value.Value
				if err == nil {
					v, err = decodeValue(raw)
				}
				if !yield(Entry{Key: b.opts.decode(item.KeyCopy(nil)), Value: v}, err) {
					stopped = true
					return nil
				}
			}
			return nil
		})
		if err != nil && !stopped {
			yield(Entry{}, err)
		}
	}
}

func (b *Badger) BatchSet(_ context.Context, entries []Entry) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, e := range entries {
		k, err := b.opts.encode(e.Key)
		if err != nil {
			return err
		}
		raw, err := encodeValue(e.Value)
		if err != nil {
			return err
		}
		if err := wb.Set(k, raw); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *Badger) BatchDelete(_ context.Context, keys []Key) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		k, err := b.opts.encode(key)
		if err != nil {
			return err
		}
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *Badger) Close() error { return b.db.Close() }

// badgerLogger forwards badger's warnings and errors to slog and drops its
// info and debug chatter.
type badgerLogger struct{ l *slog.Logger }

func (g badgerLogger) Errorf(f string, v ...any) {
	g.l.Error("settings: badger", "msg", strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (g badgerLogger) Warningf(f string, v ...any) {
	g.l.Warn("settings: badger", "msg", strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (badgerLogger) Infof(string, ...any)  {}
func (badgerLogger) Debugf(string, ...any) {}
