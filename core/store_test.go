package core_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/0xRadioAc7iv/go-kvs/core"
	"github.com/0xRadioAc7iv/go-kvs/internal/lock"
)

func openStore(t *testing.T, dir string, opts ...core.Option) *core.Store {
	t.Helper()

	opts = append([]core.Option{core.WithLogger(zaptest.NewLogger(t))}, opts...)
	s, err := core.Open(dir, opts...)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func mustSet(t *testing.T, s *core.Store, key, value string) {
	t.Helper()
	if err := s.Set(key, value); err != nil {
		t.Fatalf("set %q: %v", key, err)
	}
}

func expectValue(t *testing.T, s *core.Store, key, want string) {
	t.Helper()

	got, ok, err := s.Get(key)
	if err != nil {
		t.Fatalf("get %q: %v", key, err)
	}
	if !ok {
		t.Fatalf("get %q: not found, want %q", key, want)
	}
	if got != want {
		t.Fatalf("get %q = %q, want %q", key, got, want)
	}
}

func expectMissing(t *testing.T, s *core.Store, key string) {
	t.Helper()

	got, ok, err := s.Get(key)
	if err != nil {
		t.Fatalf("get %q: %v", key, err)
	}
	if ok {
		t.Fatalf("get %q = %q, want not found", key, got)
	}
}

func TestStoreOpenClose(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")

	s := openStore(t, dir)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "0.kv")); err != nil {
		t.Fatalf("expected first segment: %v", err)
	}
}

func TestStoreSetGet(t *testing.T) {
	s := openStore(t, t.TempDir())

	tests := []struct {
		key   string
		value string
	}{
		{"foo", "bar"},
		{"city", "new york"},
		{"emoji", "🚀🔥"},
		{"empty-value", ""},
		{"big", string(make([]byte, 4096))},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			mustSet(t, s, tt.key, tt.value)
			expectValue(t, s, tt.key, tt.value)
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	s := openStore(t, t.TempDir())

	mustSet(t, s, "k", "a")
	mustSet(t, s, "k", "b")

	expectValue(t, s, "k", "b")

	if s.Len() != 1 {
		t.Fatalf("expected 1 live key, got %d", s.Len())
	}
	if got := s.Stats().ActiveRecords; got != 2 {
		t.Fatalf("expected both records in the log, got %d", got)
	}
}

func TestStoreRemove(t *testing.T) {
	s := openStore(t, t.TempDir())

	mustSet(t, s, "k", "v")
	if err := s.Remove("k"); err != nil {
		t.Fatal(err)
	}

	expectMissing(t, s, "k")

	err := s.Remove("k")
	if !errors.Is(err, core.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound on second remove, got %v", err)
	}

	if err := s.Remove("never-set"); !errors.Is(err, core.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestStoreInvalidKey(t *testing.T) {
	s := openStore(t, t.TempDir())
	before := s.Stats().ActiveRecords

	if err := s.Set("", "v"); !errors.Is(err, core.ErrInvalidKey) {
		t.Errorf("set: expected ErrInvalidKey, got %v", err)
	}
	if _, _, err := s.Get(""); !errors.Is(err, core.ErrInvalidKey) {
		t.Errorf("get: expected ErrInvalidKey, got %v", err)
	}
	if err := s.Remove(""); !errors.Is(err, core.ErrInvalidKey) {
		t.Errorf("remove: expected ErrInvalidKey, got %v", err)
	}

	if after := s.Stats().ActiveRecords; after != before {
		t.Fatalf("invalid keys touched the log: %d -> %d records", before, after)
	}
}

func TestStorePersistence(t *testing.T) {
	dir := t.TempDir()

	{
		s := openStore(t, dir)
		for i := 0; i < 50; i++ {
			mustSet(t, s, key(i), value(i, 0))
		}
		for i := 0; i < 50; i += 5 {
			if err := s.Remove(key(i)); err != nil {
				t.Fatal(err)
			}
		}
		mustSet(t, s, key(1), "rewritten")
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
	}

	// restart
	{
		s := openStore(t, dir)

		for i := 0; i < 50; i++ {
			switch {
			case i%5 == 0:
				expectMissing(t, s, key(i))
			case i == 1:
				expectValue(t, s, key(i), "rewritten")
			default:
				expectValue(t, s, key(i), value(i, 0))
			}
		}
		if s.Len() != 40 {
			t.Fatalf("expected 40 live keys, got %d", s.Len())
		}
	}
}

func TestStoreScenario(t *testing.T) {
	dir := t.TempDir()

	s := openStore(t, dir)
	mustSet(t, s, "a", "1")
	mustSet(t, s, "b", "2")
	mustSet(t, s, "a", "3")
	if err := s.Remove("b"); err != nil {
		t.Fatal(err)
	}

	expectValue(t, s, "a", "3")
	expectMissing(t, s, "b")

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := openStore(t, dir)
	expectValue(t, reopened, "a", "3")
	expectMissing(t, reopened, "b")
}

func TestStoreKeys(t *testing.T) {
	s := openStore(t, t.TempDir())

	for _, k := range []string{"pear", "apple", "fig"} {
		mustSet(t, s, k, "x")
	}
	if err := s.Remove("fig"); err != nil {
		t.Fatal(err)
	}

	keys := s.Keys()
	if len(keys) != 2 || keys[0] != "apple" || keys[1] != "pear" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestStoreDirectoryLock(t *testing.T) {
	dir := t.TempDir()

	s := openStore(t, dir)

	_, err := core.Open(dir)
	if !errors.Is(err, lock.ErrLocked) {
		t.Fatalf("expected second store on the same directory to fail with ErrLocked, got %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	second := openStore(t, dir)
	second.Close()
}

func TestStoreWriteSurvivesBlockedRotation(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir, core.WithMaxSegmentRecords(3))

	blocker := filepath.Join(dir, "1.kv")
	if err := os.Mkdir(blocker, 0755); err != nil {
		t.Fatal(err)
	}

	// The third write fills 0.kv; it is on disk, so it must succeed.
	mustSet(t, s, "a", "1")
	mustSet(t, s, "b", "2")
	mustSet(t, s, "c", "3")
	expectValue(t, s, "c", "3")

	// Nothing can be written until the next segment exists.
	if err := s.Set("d", "4"); err == nil {
		t.Fatal("expected set to fail while rotation is blocked")
	}
	expectMissing(t, s, "d")

	if err := os.Remove(blocker); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := openStore(t, dir, core.WithMaxSegmentRecords(3))
	expectValue(t, reopened, "a", "1")
	expectValue(t, reopened, "b", "2")
	expectValue(t, reopened, "c", "3")
	expectMissing(t, reopened, "d")

	mustSet(t, reopened, "d", "4")
	expectValue(t, reopened, "d", "4")
	if got := reopened.Stats().Segments; got != 2 {
		t.Fatalf("expected 2 segments after the deferred rotation, got %d", got)
	}
}

func TestStoreCorruptLog(t *testing.T) {
	dir := t.TempDir()

	s := openStore(t, dir)
	mustSet(t, s, "k", "v")
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// A well-framed payload that does not decode as a record.
	f, err := os.OpenFile(filepath.Join(dir, "0.kv"), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.Write([]byte{0, 0, 0, 0, 0, 0, 0, 3, 'b', 'a', 'd'})
	f.Close()

	_, err = core.Open(dir)
	if !errors.Is(err, core.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	// Torn length prefix.
	dir2 := t.TempDir()
	s2 := openStore(t, dir2)
	mustSet(t, s2, "k", "v")
	s2.Close()

	f, err = os.OpenFile(filepath.Join(dir2, "0.kv"), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.Write([]byte{0, 0})
	f.Close()

	_, err = core.Open(dir2)
	if !errors.Is(err, core.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for torn prefix, got %v", err)
	}
}

func TestStoreClosed(t *testing.T) {
	s := openStore(t, t.TempDir())
	s.Close()

	if err := s.Set("k", "v"); !errors.Is(err, core.ErrClosed) {
		t.Errorf("set on closed store: %v", err)
	}
	if _, _, err := s.Get("k"); !errors.Is(err, core.ErrClosed) {
		t.Errorf("get on closed store: %v", err)
	}
	if err := s.Remove("k"); !errors.Is(err, core.ErrClosed) {
		t.Errorf("remove on closed store: %v", err)
	}
	if err := s.Compact(); !errors.Is(err, core.ErrClosed) {
		t.Errorf("compact on closed store: %v", err)
	}
}
