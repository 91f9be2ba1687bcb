package testing

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/eKV/lib/store"
)

// StoreFactory is a function that creates a new IStore connected to an empty store
type StoreFactory func() store.IStore

// RunStoreTests runs a comprehensive test suite for an IStore implementation.
// Every test gets a new IStore from the factory and expects the store behind it to be empty.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Put&Get", func(t *testing.T) {
			testPutGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("GetPrefix", func(t *testing.T) {
			testGetPrefix(t, factory())
		})

		t.Run("DeletePrefix", func(t *testing.T) {
			testDeletePrefix(t, factory())
		})

		t.Run("PrefixLastByteOverflow", func(t *testing.T) {
			testPrefixOverflow(t, factory())
		})

		t.Run("Swap", func(t *testing.T) {
			testSwap(t, factory())
		})

		t.Run("BulkPut", func(t *testing.T) {
			testBulkPut(t, factory())
		})

		t.Run("Idempotence", func(t *testing.T) {
			testIdempotence(t, factory())
		})

		t.Run("ConcurrentUsage", func(t *testing.T) {
			testConcurrentUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// mustPut fails the test if the put fails
func mustPut(t testing.TB, s store.IStore, key, value string) {
	t.Helper()
	if err := s.Put([]byte(key), []byte(value)); err != nil {
		t.Fatalf("Put(%s) failed: %v", key, err)
	}
}

// expectValue checks that key holds value
func expectValue(t testing.TB, s store.IStore, key, value string) {
	t.Helper()
	got, loaded, err := s.Get([]byte(key))
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", key, err)
	}
	if !loaded {
		t.Errorf("Expected key %s to exist", key)
		return
	}
	if !bytes.Equal(got, []byte(value)) {
		t.Errorf("Expected value %q for key %s, got %q", value, key, got)
	}
}

// expectMissing checks that key does not exist
func expectMissing(t testing.TB, s store.IStore, key string) {
	t.Helper()
	_, loaded, err := s.Get([]byte(key))
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", key, err)
	}
	if loaded {
		t.Errorf("Expected key %s to be missing", key)
	}
}

func keys(ks ...string) [][]byte {
	out := make([][]byte, len(ks))
	for i, k := range ks {
		out[i] = []byte(k)
	}
	return out
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, s store.IStore) {
	defer s.Close()

	mustPut(t, s, "test-key", "test-value1")
	expectValue(t, s, "test-key", "test-value1")

	mustPut(t, s, "test-key", "test-value2")
	expectValue(t, s, "test-key", "test-value2")

	expectMissing(t, s, "nonexistent-key")

	// arbitrary bytes
	binaryKey := []byte{0x00, 0x01, 0xFE, 0xFF}
	binaryValue := []byte{0xFF, 0x00, 0x7F}
	if err := s.Put(binaryKey, binaryValue); err != nil {
		t.Fatalf("Put of binary key failed: %v", err)
	}
	got, loaded, err := s.Get(binaryKey)
	if err != nil || !loaded || !bytes.Equal(got, binaryValue) {
		t.Errorf("Expected binary value %v, got %v (loaded=%t, err=%v)", binaryValue, got, loaded, err)
	}

	// empty value is a value
	mustPut(t, s, "empty", "")
	_, loaded, err = s.Get([]byte("empty"))
	if err != nil || !loaded {
		t.Errorf("Expected key with empty value to exist (loaded=%t, err=%v)", loaded, err)
	}
}

func testDelete(t *testing.T, s store.IStore) {
	defer s.Close()

	mustPut(t, s, "k1", "v1")
	mustPut(t, s, "k2", "v2")
	mustPut(t, s, "k3", "v3")

	if err := s.Delete(keys("k1")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	expectMissing(t, s, "k1")
	expectValue(t, s, "k2", "v2")

	// several keys at once, including one that does not exist
	if err := s.Delete(keys("k2", "k3", "never-existed")); err != nil {
		t.Fatalf("Delete of multiple keys failed: %v", err)
	}
	expectMissing(t, s, "k2")
	expectMissing(t, s, "k3")

	// deleting nothing is fine
	if err := s.Delete(nil); err != nil {
		t.Errorf("Delete of no keys failed: %v", err)
	}
}

func testGetPrefix(t *testing.T, s store.IStore) {
	defer s.Close()

	mustPut(t, s, "a/1", "x")
	mustPut(t, s, "a/2", "y")
	mustPut(t, s, "b/1", "z")

	kvs, err := s.GetPrefix([]byte("a/"))
	if err != nil {
		t.Fatalf("GetPrefix failed: %v", err)
	}

	expected := map[string]string{"a/1": "x", "a/2": "y"}
	if len(kvs) != len(expected) {
		t.Errorf("Expected %d results, got %d: %v", len(expected), len(kvs), kvs)
	}
	for k, v := range expected {
		if got, ok := kvs[k]; !ok || string(got) != v {
			t.Errorf("Expected %s=%s, got %s (found=%t)", k, v, got, ok)
		}
	}

	kvs, err = s.GetPrefix([]byte("c/"))
	if err != nil {
		t.Fatalf("GetPrefix failed: %v", err)
	}
	if kvs == nil || len(kvs) != 0 {
		t.Errorf("Expected an empty map for an unused prefix, got %v", kvs)
	}
}

func testDeletePrefix(t *testing.T, s store.IStore) {
	defer s.Close()

	mustPut(t, s, "a/1", "x")
	mustPut(t, s, "a/2", "y")
	mustPut(t, s, "b/1", "z")

	if err := s.DeletePrefix([]byte("a/")); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}

	expectMissing(t, s, "a/1")
	expectMissing(t, s, "a/2")
	expectValue(t, s, "b/1", "z")

	// deleting an unused prefix is fine
	if err := s.DeletePrefix([]byte("nothing/")); err != nil {
		t.Errorf("DeletePrefix of unused prefix failed: %v", err)
	}
}

// The range end of a prefix ending in 0xFF wraps to 0x00. For a longer prefix the
// range is empty, for the one-byte prefix 0xFF the end "\x00" selects all keys >= 0xFF.
func testPrefixOverflow(t *testing.T, s store.IStore) {
	defer s.Close()

	prefix := []byte{'p', 0xFF}
	if err := s.Put(append(bytes.Clone(prefix), '1'), []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	kvs, err := s.GetPrefix(prefix)
	if err != nil {
		t.Fatalf("GetPrefix failed: %v", err)
	}
	if len(kvs) != 0 {
		t.Errorf("Expected no results for a prefix ending in 0xFF, got %d", len(kvs))
	}

	for _, key := range [][]byte{{0xFF, 'a'}, {0xFF, 'b'}, {0xFE, 'a'}} {
		if err := s.Put(key, []byte("v")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	kvs, err = s.GetPrefix([]byte{0xFF})
	if err != nil {
		t.Fatalf("GetPrefix failed: %v", err)
	}
	if len(kvs) != 2 {
		t.Errorf("Expected 2 results for the prefix 0xFF, got %d", len(kvs))
	}
	for _, key := range []string{"\xffa", "\xffb"} {
		if _, ok := kvs[key]; !ok {
			t.Errorf("Expected key %q in the result", key)
		}
	}

	if err := s.DeletePrefix([]byte{0xFF}); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}
	expectMissing(t, s, "\xffa")
	expectValue(t, s, "\xfea", "v")
}

func testSwap(t *testing.T, s store.IStore) {
	defer s.Close()

	mustPut(t, s, "swap-key", "old")

	// successful swap
	if err := s.Swap([]byte("swap-key"), []byte("old"), []byte("new")); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	expectValue(t, s, "swap-key", "new")

	// value mismatch
	err := s.Swap([]byte("swap-key"), []byte("old"), []byte("newer"))
	if !errors.Is(err, store.ErrSwapFailed) {
		t.Errorf("Expected swap failure, got %v", err)
	}
	var storeErr *store.Error
	if errors.As(err, &storeErr) && string(storeErr.Key) != "swap-key" {
		t.Errorf("Expected swap error for key swap-key, got %s", storeErr.Key)
	}
	expectValue(t, s, "swap-key", "new")

	// missing key
	err = s.Swap([]byte("missing-key"), []byte(""), []byte("value"))
	if !store.IsSwapFailed(err) {
		t.Errorf("Expected swap failure for a missing key, got %v", err)
	}
	expectMissing(t, s, "missing-key")
}

func testBulkPut(t *testing.T, s store.IStore) {
	defer s.Close()

	const n = 2500
	bulk := make([][]byte, n)
	for i := range bulk {
		bulk[i] = []byte(fmt.Sprintf("bulk/%05d", i))
	}

	if err := s.BulkPut(bulk); err != nil {
		t.Fatalf("BulkPut failed: %v", err)
	}

	kvs, err := s.GetPrefix([]byte("bulk/"))
	if err != nil {
		t.Fatalf("GetPrefix failed: %v", err)
	}
	if len(kvs) != n {
		t.Errorf("Expected %d keys after BulkPut, got %d", n, len(kvs))
	}
	for k, v := range kvs {
		if len(v) != 0 {
			t.Errorf("Expected empty value for %s, got %q", k, v)
			break
		}
	}

	if err := s.BulkPut(nil); err != nil {
		t.Errorf("BulkPut of no keys failed: %v", err)
	}
}

func testIdempotence(t *testing.T, s store.IStore) {
	defer s.Close()

	for i := 0; i < 2; i++ {
		mustPut(t, s, "idem", "v")
	}
	expectValue(t, s, "idem", "v")

	for i := 0; i < 2; i++ {
		if err := s.Delete(keys("idem")); err != nil {
			t.Fatalf("Delete #%d failed: %v", i+1, err)
		}
	}
	expectMissing(t, s, "idem")
}

func testConcurrentUsage(t *testing.T, s store.IStore) {
	defer s.Close()

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	errCh := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := []byte(fmt.Sprintf("concurrent/%d/%d", w, i))
				if err := s.Put(key, key); err != nil {
					errCh <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("Concurrent Put failed: %v", err)
	}

	kvs, err := s.GetPrefix([]byte("concurrent/"))
	if err != nil {
		t.Fatalf("GetPrefix failed: %v", err)
	}
	if len(kvs) != workers*perWorker {
		t.Errorf("Expected %d keys, got %d", workers*perWorker, len(kvs))
	}
}
