/*
	Churn generator: overwrites and deletes a small key universe against a
	local store so that segments roll over and compaction runs many times,
	then checks every key against an in-memory copy.

	go run ./scripts -dir /tmp/kvs-churn
*/

package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/0xRadioAc7iv/go-kvs/core"
	"github.com/0xRadioAc7iv/go-kvs/internal/utils"
)

const (
	// Fixed universe
	totalKeys   = 100
	totalValues = 100

	// Per-cycle behavior
	keysPerCycleWrite  = 20
	keysPerCycleDelete = 10
	cycles             = 5000

	progressEvery = 500
)

func main() {
	dir := flag.String("dir", "churn-data", "Directory for the generated store")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	logger, err := utils.NewLogger("info")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer logger.Sync()

	start := time.Now()
	fmt.Println("Starting churn-heavy load generator")

	store, err := core.Open(*dir, core.WithLogger(logger))
	if err != nil {
		fmt.Println("open error:", err)
		os.Exit(1)
	}

	keys := makeKeys(totalKeys)
	values := makeValues(totalValues)

	expected, err := churn(store, rand.New(rand.NewSource(*seed)), keys, values)
	if err != nil {
		fmt.Println(err)
		store.Close()
		os.Exit(1)
	}

	if err := store.Close(); err != nil {
		fmt.Println("close error:", err)
		os.Exit(1)
	}

	// Reopen to check what actually reached the segment files.
	store, err = core.Open(*dir)
	if err != nil {
		fmt.Println("reopen error:", err)
		os.Exit(1)
	}
	defer store.Close()

	mismatches := verify(store, keys, expected)
	stats := store.Stats()

	fmt.Printf("Load finished in %v: %d live keys, %d segments, %d mismatches\n",
		time.Since(start), stats.LiveKeys, stats.Segments, mismatches)

	if mismatches > 0 {
		os.Exit(1)
	}
}

func churn(store *core.Store, rng *rand.Rand, keys []string, values []string) (map[string]string, error) {
	expected := make(map[string]string, len(keys))

	// Seed with whatever a previous run left behind.
	for _, key := range keys {
		val, ok, err := store.Get(key)
		if err != nil {
			return nil, fmt.Errorf("GET error: %w", err)
		}
		if ok {
			expected[key] = val
		}
	}

	for cycle := 1; cycle <= cycles; cycle++ {

		// ---- WRITE / OVERWRITE PHASE ----
		for i := 0; i < keysPerCycleWrite; i++ {
			key := keys[rng.Intn(len(keys))]
			val := values[rng.Intn(len(values))]

			if err := store.Set(key, val); err != nil {
				return nil, fmt.Errorf("SET error: %w", err)
			}
			expected[key] = val
		}

		// ---- DELETE PHASE ----
		for i := 0; i < keysPerCycleDelete; i++ {
			key := keys[rng.Intn(len(keys))]

			err := store.Remove(key)
			if err != nil && !errors.Is(err, core.ErrKeyNotFound) {
				return nil, fmt.Errorf("DELETE error: %w", err)
			}
			delete(expected, key)
		}

		// ---- REWRITE PHASE (forces overwrite garbage) ----
		for i := 0; i < keysPerCycleWrite/2; i++ {
			key := keys[rng.Intn(len(keys))]
			val := values[rng.Intn(len(values))]

			if err := store.Set(key, val); err != nil {
				return nil, fmt.Errorf("REWRITE error: %w", err)
			}
			expected[key] = val
		}

		if cycle%progressEvery == 0 {
			stats := store.Stats()
			fmt.Printf("completed %d cycles (%d compactions, %d records in active segment)\n",
				cycle, stats.Compactions, stats.ActiveRecords)
		}
	}

	return expected, nil
}

func verify(store *core.Store, keys []string, expected map[string]string) int {
	mismatches := 0
	for _, key := range keys {
		got, ok, err := store.Get(key)
		want, wantOK := expected[key]
		if err != nil || ok != wantOK || got != want {
			fmt.Printf("mismatch for %s: got (%q, %v, %v), want (%q, %v)\n", key, got, ok, err, want, wantOK)
			mismatches++
		}
	}
	return mismatches
}

func makeKeys(n int) []string {
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = fmt.Sprintf("key-%03d", i)
	}
	return keys
}

func makeValues(n int) []string {
	values := make([]string, n)
	for i := 0; i < n; i++ {
		values[i] = fmt.Sprintf("value-%03d-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx", i)
	}
	return values
}
