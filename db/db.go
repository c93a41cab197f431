// Package db implements a simple key-value store for approximate counters. Usually, the counters will be
// accurate, but concurrent modification in different processes may make them a bit inaccurate. It is the
// backing store for frequency tables that outlive a single run, where a small error can be traded for
// increased performance.
//
// It only works on Unix.
package db

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	jsoniterator "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/sys/unix"
)

const numChunks = 32

var (
	ErrReadonly = errors.New("readonly database")
	ErrClosed   = errors.New("closed database")
	ErrBucket   = errors.New("invalid bucket name")
)

type mapKey struct {
	bucket string
	key    string
}

type DB struct {
	path string
	log  *zap.Logger

	writeable bool
	closed    bool

	lockFH *os.File

	sg singleflight.Group

	mu     sync.Mutex
	values map[mapKey]int  // Maps mapKey to integer values, used as a cache
	deltas map[mapKey]int  // Stores deltas to values, persisted upon close
	loaded map[string]bool // identifies already loaded partial maps, to prevent needless reloads
}

type Option func(*DB)

// WithLogger makes the database report compactions to l.
func WithLogger(l *zap.Logger) Option {
	return func(d *DB) {
		d.log = l
	}
}

// Open opens (and creates, if necessary) a new database. If writeable is false, the
// database is opened in shared, read only mode. Otherwise, it is locked for exclusive
// access and can be modified.
func Open(path string, writeable bool, opts ...Option) (db *DB, err error) {
	fullPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("determining absolute path of %s: %w", path, err)
	}

	db = &DB{
		path:      fullPath,
		log:       zap.NewNop(),
		writeable: writeable,

		values: make(map[mapKey]int),
		deltas: make(map[mapKey]int),

		loaded: make(map[string]bool),
	}

	for _, o := range opts {
		o(db)
	}

	if writeable {
		err = os.MkdirAll(fullPath, 0750)
		if err != nil {
			return nil, fmt.Errorf("creating database path: %w", err)
		}

		fh, err := os.OpenFile(filepath.Join(fullPath, "lock"), os.O_RDWR|os.O_CREATE, 0600)
		if err != nil {
			return nil, fmt.Errorf("opening database file: %w", err)
		}

		err = unix.Flock(int(fh.Fd()), unix.LOCK_EX)
		if err != nil {
			fh.Close()
			return nil, fmt.Errorf("locking database: %w", err)
		}

		db.lockFH = fh
	}

	return db, nil
}

func getID(key string) int {
	h := fnv.New32()

	_, err := h.Write([]byte(key))
	if err != nil {
		panic(fmt.Errorf("hashing %q: %w", key, err))
	}

	return int(h.Sum32() % numChunks)
}

func partialName(bucket string, id int) string {
	return bucket + "-" + strconv.Itoa(id)
}

// ValidBucket reports whether b can be used as a bucket name. Bucket names become part of
// file names inside the database directory.
func ValidBucket(b string) bool {
	switch b {
	case "", ".", "..":
		return false
	}

	return filepath.Base(b) == b && !strings.ContainsRune(b, filepath.Separator)
}

// Close persists the data in d and closes the database.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	defer func() {
		if d.writeable {
			d.lockFH.Close()
		}

		d.closed = true
	}()

	// Collect partial maps
	partials := make(map[string]map[string]int)

	for mk, value := range d.deltas {
		p := partialName(mk.bucket, getID(mk.key))

		if partials[p] == nil {
			partials[p] = make(map[string]int)
		}

		partials[p][mk.key] = value
	}

	// Write out partial maps
	var eg errgroup.Group

	for p, m := range partials {
		p := p
		m := m

		eg.Go(func() error {
			fp := filepath.Join(d.path, p)

			fh, err := os.OpenFile(fp, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0600)
			if err != nil {
				return fmt.Errorf("opening partial file %q: %w", p, err)
			}
			defer fh.Close()

			enc := jsoniterator.NewEncoder(fh)
			err = enc.Encode(m)
			if err != nil {
				return fmt.Errorf("encoding %q: %w", p, err)
			}

			return nil
		})
	}

	return eg.Wait()
}

// readPartial reads all chunks of a partial file and sums them up. Partials with more
// than one chunk are rewritten as a single chunk if d is writeable.
func (d *DB) readPartial(p string) (map[string]int, error) {
	fh, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]int), nil
		}

		return nil, err
	}
	defer fh.Close()

	dec := jsoniterator.NewDecoder(fh)
	res := make(map[string]int)

	numRead := 0
	for dec.More() {
		var m map[string]int

		err = dec.Decode(&m)
		if err != nil {
			return nil, fmt.Errorf("decoding chunk %d of %q: %w", numRead, p, err)
		}

		for k, v := range m {
			res[k] += v
			if res[k] < 0 {
				res[k] = 0
			}
		}

		numRead++
	}

	for k, v := range res {
		if v == 0 {
			delete(res, k)
		}
	}

	// Rewrite partial so that we have a single large chunk
	if numRead > 1 && d.writeable {
		d.log.Debug("compacting partial", zap.String("partial", p), zap.Int("chunks", numRead), zap.Int("keys", len(res)))

		err = d.compact(p, res)
		if err != nil {
			return nil, err
		}
	}

	return res, nil
}

// compact replaces the partial file p with a single chunk holding m.
func (d *DB) compact(p string, m map[string]int) error {
	tempFH, err := os.CreateTemp(d.path, "")
	if err != nil {
		return err
	}
	defer tempFH.Close()

	err = jsoniterator.NewEncoder(tempFH).Encode(m)
	if err == nil {
		err = os.Rename(tempFH.Name(), p)
	}
	if err != nil {
		os.Remove(tempFH.Name())
		return fmt.Errorf("compacting %q: %w", p, err)
	}

	return nil
}

func (d *DB) load(bucket string, id int) error {
	p := filepath.Join(d.path, partialName(bucket, id))

	if d.loaded[p] {
		return nil
	}

	// we enter here locked, so unlock while doing work
	d.mu.Unlock()

	mVal, err, _ := d.sg.Do(p, func() (interface{}, error) {
		return d.readPartial(p)
	})

	// Restore lock state
	d.mu.Lock()

	if err != nil {
		return err
	}

	// Close may have run while the lock was released
	if d.closed {
		return ErrClosed
	}

	if d.loaded[p] {
		// Someone else got here first
		return nil
	}

	m := mVal.(map[string]int)

	d.loaded[p] = true

	for k, v := range m {
		d.values[mapKey{bucket: bucket, key: k}] = v
	}

	return nil
}

func (d *DB) incInternal(mk mapKey, delta int) error {
	if d.closed {
		return ErrClosed
	}

	if !ValidBucket(mk.bucket) {
		return fmt.Errorf("%w: %q", ErrBucket, mk.bucket)
	}

	if !d.writeable {
		return ErrReadonly
	}

	err := d.load(mk.bucket, getID(mk.key))
	if err != nil {
		return err
	}

	d.deltas[mk] += delta

	// Clamp here so that later increments start from zero instead of a negative value
	if d.values[mk]+d.deltas[mk] < 0 {
		d.deltas[mk] = -d.values[mk]
	}

	return nil
}

func (d *DB) getInternal(mk mapKey) (int, error) {
	if d.closed {
		return 0, ErrClosed
	}

	if !ValidBucket(mk.bucket) {
		return 0, fmt.Errorf("%w: %q", ErrBucket, mk.bucket)
	}

	err := d.load(mk.bucket, getID(mk.key))
	if err != nil {
		return 0, err
	}

	val := d.values[mk] + d.deltas[mk]
	if val < 0 {
		val = 0
	}

	return val, nil
}

// Inc increases the given counter by the given delta. The value stored will be clamped to [0, inf).
func (d *DB) Inc(bucket, key string, delta int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	mk := mapKey{
		bucket: bucket,
		key:    key,
	}

	return d.incInternal(mk, delta)
}

// Get returns the current value for the given key.
func (d *DB) Get(bucket, key string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	mk := mapKey{
		bucket: bucket,
		key:    key,
	}

	return d.getInternal(mk)
}

// Each calls fn for every non-zero counter in bucket, ordered by key. fn is called without
// holding any lock on d. If fn returns an error, iteration stops and the error is returned.
func (d *DB) Each(bucket string, fn func(key string, value int) error) error {
	d.mu.Lock()

	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}

	if !ValidBucket(bucket) {
		d.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrBucket, bucket)
	}

	for id := 0; id < numChunks; id++ {
		err := d.load(bucket, id)
		if err != nil {
			d.mu.Unlock()
			return fmt.Errorf("loading partial %d of %q: %w", id, bucket, err)
		}
	}

	counters := make(map[string]int)

	for mk, v := range d.values {
		if mk.bucket == bucket {
			counters[mk.key] += v
		}
	}

	for mk, v := range d.deltas {
		if mk.bucket == bucket {
			counters[mk.key] += v
		}
	}

	d.mu.Unlock()

	keys := make([]string, 0, len(counters))
	for k, v := range counters {
		if v > 0 {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	for _, k := range keys {
		err := fn(k, counters[k])
		if err != nil {
			return err
		}
	}

	return nil
}
