// Package core implements a persistent string key-value store on top of an
// append-only segment log.
//
// Every Set and Remove appends a record to the active segment; an in-memory
// index keeps the position of each live key's latest record. When the
// active segment has grown past a threshold the store compacts: live
// records are copied into a fresh log which then replaces the old one.
//
// Example:
//
//	store, err := core.Open("./data")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.Set("foo", "bar")
//	val, ok, err := store.Get("foo")
package core
