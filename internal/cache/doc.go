// Package cache implements the three cache tiers and the Facade routing
// between them.
//
//	Frozen       process-lifetime, first writer wins, lock-free reads
//	Timed        bounded in-memory LRU with per-entry deadlines
//	Distributed  JSON envelopes over a network Backend (redis, etcd)
//
// Every entry carries a type tag; reading a key with a different expected
// type is a miss. Cache failures are never surfaced: lookups degrade to a
// miss and stores to a no-op, so a caller always falls back to executing
// the procedure.
package cache
