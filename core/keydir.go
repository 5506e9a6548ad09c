package core

import (
	"github.com/google/btree"

	"github.com/0xRadioAc7iv/go-kvs/internal/segment"
)

// KeyDirEntry points a key at the record holding its current value.
type KeyDirEntry struct {
	Key      string
	Position segment.Position
}

// KeyDir is the in-memory index mapping every live key to its latest Set
// record. It is rebuilt from the log on open and replaced wholesale after a
// compaction, since positions do not survive one.
//
// Keys are kept ordered so that compaction rewrites them in a stable order
// and listings come out sorted.
type KeyDir struct {
	tree *btree.BTreeG[KeyDirEntry]
}

func NewKeyDir() *KeyDir {
	return &KeyDir{
		tree: btree.NewG(keyDirDegree, func(a, b KeyDirEntry) bool {
			return a.Key < b.Key
		}),
	}
}

func (kd *KeyDir) Get(key string) (segment.Position, bool) {
	entry, ok := kd.tree.Get(KeyDirEntry{Key: key})
	return entry.Position, ok
}

func (kd *KeyDir) Set(key string, pos segment.Position) {
	kd.tree.ReplaceOrInsert(KeyDirEntry{Key: key, Position: pos})
}

// Delete removes key and reports whether it was present.
func (kd *KeyDir) Delete(key string) bool {
	_, ok := kd.tree.Delete(KeyDirEntry{Key: key})
	return ok
}

func (kd *KeyDir) Len() int {
	return kd.tree.Len()
}

// Ascend calls fn for every entry in key order until fn returns false.
func (kd *KeyDir) Ascend(fn func(key string, pos segment.Position) bool) {
	kd.tree.Ascend(func(entry KeyDirEntry) bool {
		return fn(entry.Key, entry.Position)
	})
}

func (kd *KeyDir) Keys() []string {
	keys := make([]string, 0, kd.tree.Len())
	kd.Ascend(func(key string, _ segment.Position) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}
