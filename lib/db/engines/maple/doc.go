// Package maple implements an in-memory key-value database (db.KVDB) for lease
// records: values with a wall-clock deadline and atomic compare-and-act writes.
//
// Key Components:
//
//   - mapleImpl: implements db.KVDB. Keys are spread over shards with a seeded
//     hash; every write is a single xsync.MapOf Compute call, which makes
//     "check the current entry, then write" atomic per key.
//
//   - Entry: the stored value plus its deadline in unix nanoseconds.
//
//   - Garbage collector: one goroutine that periodically pops due deadlines from
//     each shard's heap and removes the entries that are still expired.
//
// Time:
//
//	The database never reads the clock for correctness. Each call carries its own
//	"now"; expired entries are invisible to that call whether or not the GC has
//	reclaimed them yet. The GC uses the latest "now" any call has supplied, the
//	same way a logical write index would be used.
//
// Usage Example:
//
//	kv := maple.NewMapleDB(nil)
//	defer kv.Close()
//
//	ok := kv.SetEIfUnset("lock:report", []byte(token), time.Now(), 10*time.Second)
//	...
//	kv.DeleteIfEqual("lock:report", []byte(token), time.Now())
package maple
