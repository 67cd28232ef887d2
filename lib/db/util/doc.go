// Package util provides utility components for
// database implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - mapheap: A deadline queue for garbage collection that also supports key-based access
package util
