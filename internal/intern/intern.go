// Package intern provides the process-wide interned string pool. Identifiers
// and member names are compared by integer hash rather than by string value;
// this pool is what lets the hash be turned back into source text for error
// messages and reflection.
package intern

import (
	"hash/fnv"
	"sync"
)

var (
	mu   sync.Mutex
	pool = map[uint64]string{}
)

// Hash returns the FNV-1a 64-bit hash of s without touching the pool.
func Hash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// String hashes s, records the canonical spelling for that hash if this is
// the first time it has been seen, and returns the hash.
func String(s string) uint64 {
	h := Hash(s)
	mu.Lock()
	defer mu.Unlock()
	if _, ok := pool[h]; !ok {
		pool[h] = s
	}
	return h
}

// Lookup returns the canonical string previously interned for hash, if any.
func Lookup(hash uint64) (string, bool) {
	mu.Lock()
	defer mu.Unlock()
	s, ok := pool[hash]
	return s, ok
}
