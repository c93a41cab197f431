package db

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"drill/topk"
)

func eachMap(t *testing.T, d *DB, bucket string) map[string]int {
	t.Helper()

	res := make(map[string]int)

	err := d.Each(bucket, func(key string, value int) error {
		res[key] = value
		return nil
	})
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	return res
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}

	sort.Strings(names)

	return names
}

func TestDB_OpenModes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.db")

	// A read only store on a missing path is empty and is not created
	d, err := Open(path, false)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	if have := eachMap(t, d, "tokens"); len(have) != 0 {
		t.Errorf("expected no counters, have %v", have)
	}

	err = d.Inc("tokens", "word", 1)
	if !errors.Is(err, ErrReadonly) {
		t.Errorf("expected readonly error, got %v", err)
	}

	err = d.Close()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	_, err = os.Stat(path)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("read only open created %s: %v", path, err)
	}

	d, err = Open(path, true)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	if want, have := []string{"lock"}, dirNames(t, path); !reflect.DeepEqual(want, have) {
		t.Errorf("unexpected files: want %v, have %v", want, have)
	}

	err = d.Close()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
}

func TestDB_CountSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.db")

	// One writeable session per text, like repeated runs of the count mode
	for _, text := range []string{"foo bar foo", "bar foo baz", "foo qux", ""} {
		d, err := Open(path, true)
		if err != nil {
			t.Fatal("unexpected error:", err)
		}

		for _, tok := range strings.Fields(text) {
			err = d.Inc("tokens", tok, 1)
			if err != nil {
				t.Fatal("unexpected error:", err)
			}
		}

		err = d.Close()
		if err != nil {
			t.Fatal("unexpected error:", err)
		}
	}

	d, err := Open(path, false)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	defer d.Close()

	table := topk.NewTable[string]()

	err = d.Each("tokens", func(key string, value int) error {
		table.AddN(key, value)
		return nil
	})
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	if table.Len() != 4 {
		t.Errorf("unexpected number of tokens: want %d, have %d", 4, table.Len())
	}

	have, err := table.Top(2)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	want := []topk.Entry[string]{{Value: "foo", Count: 4}, {Value: "bar", Count: 2}}
	if !reflect.DeepEqual(want, have) {
		t.Errorf("unexpected top tokens: want %v, have %v", want, have)
	}

	n, err := d.Get("tokens", "baz")
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	if n != 1 {
		t.Errorf("unexpected count for baz: want %d, have %d", 1, n)
	}
}

func TestDB_EachManyKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.db")

	d, err := Open(path, true)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	const howMany = 10000

	want := make(map[string]int)
	for i := 0; i < howMany; i++ {
		key := "t" + strconv.Itoa(i)

		err = d.Inc("tokens", key, i%7)
		if err != nil {
			t.Fatal("unexpected error:", err)
		}

		if i%7 != 0 {
			want[key] = i % 7
		}
	}

	err = d.Close()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	d, err = Open(path, false)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	defer d.Close()

	have := eachMap(t, d, "tokens")
	if len(want) != len(have) {
		t.Fatalf("unexpected number of counters: want %d, have %d", len(want), len(have))
	}

	if !reflect.DeepEqual(want, have) {
		t.Error("counters differ after reopening")
	}
}

func TestDB_ClampEach(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.db")

	steps := []struct {
		delta int
		want  int
	}{
		{delta: 3, want: 3},
		{delta: -5, want: 0},
		{delta: -1, want: 0},
		{delta: 2, want: 2},
		{delta: -2, want: 0},
		{delta: 7, want: 7},
	}

	// Every step is its own session, so clamped deltas have to survive a reopen
	for i, step := range steps {
		d, err := Open(path, true)
		if err != nil {
			t.Fatal("unexpected error:", err)
		}

		err = d.Inc("tokens", "x", step.delta)
		if err != nil {
			t.Fatal("unexpected error:", err)
		}

		have := eachMap(t, d, "tokens")

		v, ok := have["x"]
		if step.want == 0 && ok {
			t.Errorf("step %d: zero counter visited with value %d", i, v)
		}

		if step.want != v {
			t.Errorf("step %d: unexpected value: want %d, have %d", i, step.want, v)
		}

		err = d.Close()
		if err != nil {
			t.Fatal("unexpected error:", err)
		}
	}

	// Compaction leaves only shard files behind
	for _, name := range dirNames(t, path) {
		if name != "lock" && !strings.HasPrefix(name, "tokens-") {
			t.Errorf("unexpected file %q in database directory", name)
		}
	}
}

func TestDB_CompactFailure(t *testing.T) {
	d, err := Open(filepath.Join(t.TempDir(), "counts.db"), true)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	defer d.Close()

	err = d.compact(filepath.Join(d.path, "missing", "tokens-0"), map[string]int{"a": 1})
	if err == nil {
		t.Fatal("expected error when renaming into a missing directory")
	}

	if want, have := []string{"lock"}, dirNames(t, d.path); !reflect.DeepEqual(want, have) {
		t.Errorf("temporary file left behind: want %v, have %v", want, have)
	}
}

func TestDB_CloseDuringLoad(t *testing.T) {
	d, err := Open(filepath.Join(t.TempDir(), "counts.db"), true)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	p := filepath.Join(d.path, partialName("tokens", getID("word")))

	// Hold the shard load open so Inc waits for it without holding the lock
	started := make(chan struct{})
	release := make(chan struct{})

	go d.sg.Do(p, func() (interface{}, error) {
		close(started)
		<-release
		return make(map[string]int), nil
	})

	<-started

	incErr := make(chan error, 1)
	go func() {
		incErr <- d.Inc("tokens", "word", 1)
	}()

	time.Sleep(10 * time.Millisecond)

	err = d.Close()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	close(release)

	err = <-incErr
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected closed error from Inc racing Close, got %v", err)
	}

	d, err = Open(d.path, false)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	defer d.Close()

	n, err := d.Get("tokens", "word")
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	if n != 0 {
		t.Errorf("unexpected persisted value: want %d, have %d", 0, n)
	}
}

func TestDB_InvalidBucket(t *testing.T) {
	dir := t.TempDir()

	d, err := Open(filepath.Join(dir, "counts.db"), true)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	for _, bucket := range []string{"", ".", "..", "../x", "a/b"} {
		err = d.Inc(bucket, "word", 1)
		if !errors.Is(err, ErrBucket) {
			t.Errorf("Inc: expected bucket error for %q, got %v", bucket, err)
		}

		_, err = d.Get(bucket, "word")
		if !errors.Is(err, ErrBucket) {
			t.Errorf("Get: expected bucket error for %q, got %v", bucket, err)
		}

		err = d.Each(bucket, func(string, int) error { return nil })
		if !errors.Is(err, ErrBucket) {
			t.Errorf("Each: expected bucket error for %q, got %v", bucket, err)
		}
	}

	err = d.Close()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	if want, have := []string{"counts.db"}, dirNames(t, dir); !reflect.DeepEqual(want, have) {
		t.Errorf("files written outside the database: want %v, have %v", want, have)
	}

	for _, bucket := range []string{"tokens", "words.v2", "..x"} {
		if !ValidBucket(bucket) {
			t.Errorf("expected %q to be a valid bucket", bucket)
		}
	}
}

func TestDB_Each(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.db")

	db, err := Open(path, true)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	for i := 0; i < 100; i++ {
		err = db.Inc("words", "w"+strconv.Itoa(i), i)
		if err != nil {
			t.Fatal("unexpected error:", err)
		}
	}

	// Other buckets must not show up
	err = db.Inc("other", "w1", 1000)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	err = db.Close()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	db, err = Open(path, true)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	defer db.Close()

	// Pending deltas are visible before close
	err = db.Inc("words", "w1", 5)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	err = db.Inc("words", "zzz", 3)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	have := make(map[string]int)
	var keys []string

	err = db.Each("words", func(key string, value int) error {
		if _, ok := have[key]; ok {
			t.Errorf("key %q visited twice", key)
		}

		have[key] = value
		keys = append(keys, key)

		return nil
	})
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	// w0 is zero and skipped
	want := make(map[string]int)
	for i := 1; i < 100; i++ {
		want["w"+strconv.Itoa(i)] = i
	}
	want["w1"] = 6
	want["zzz"] = 3

	if !reflect.DeepEqual(want, have) {
		t.Errorf("unexpected counters: want %v, have %v", want, have)
	}

	for idx := 1; idx < len(keys); idx++ {
		if keys[idx-1] >= keys[idx] {
			t.Fatalf("keys not sorted: %q before %q", keys[idx-1], keys[idx])
		}
	}
}

func TestDB_EachStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.db")

	db, err := Open(path, true)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	defer db.Close()

	for _, k := range []string{"a", "b", "c"} {
		err = db.Inc("test", k, 1)
		if err != nil {
			t.Fatal("unexpected error:", err)
		}
	}

	stop := errors.New("stop")
	calls := 0

	err = db.Each("test", func(string, int) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("expected stop error, got %v", err)
	}

	if calls != 1 {
		t.Errorf("unexpected number of calls: want %d, have %d", 1, calls)
	}
}

func TestDB_Closed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.db")

	db, err := Open(path, true)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	err = db.Close()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	_, err = db.Get("test", "foo")
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected closed error from Get, got %v", err)
	}

	err = db.Each("test", func(string, int) error { return nil })
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected closed error from Each, got %v", err)
	}

	err = db.Close()
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected closed error from second Close, got %v", err)
	}
}

func BenchmarkDB_EachTop(b *testing.B) {
	const howMany = 100000

	path := filepath.Join(b.TempDir(), "counts.db")

	d, err := Open(path, true)
	if err != nil {
		b.Fatal("unexpected error:", err)
	}

	for i := 0; i < howMany; i++ {
		d.Inc("tokens", strconv.Itoa(i), i%100+1)
	}

	err = d.Close()
	if err != nil {
		b.Fatal("unexpected error:", err)
	}

	b.ResetTimer()

	for it := 0; it < b.N; it++ {
		d, err := Open(path, false)
		if err != nil {
			b.Fatal("unexpected error:", err)
		}

		table := topk.NewTable[string]()

		err = d.Each("tokens", func(key string, value int) error {
			table.AddN(key, value)
			return nil
		})
		if err != nil {
			b.Fatal("unexpected error:", err)
		}

		_, err = table.Top(10)
		if err != nil {
			b.Fatal("unexpected error:", err)
		}

		d.Close()
	}
}
