// Package testing provides a standardised test suite for implementations of
// the store.IStore interface.
//
// Every backend the lock manager can run on must pass the same suite, which pins
// down the semantics the lock manager relies on: set-if-unset is exclusive,
// compare-and-act operations only act for the matching value, and expired keys
// behave exactly like absent ones.
//
// Example usage:
//
//	func TestConformance(t *testing.T) {
//		storetesting.RunStoreTests(t, "MyStore", func(t *testing.T) storetesting.Harness {
//			st := NewMyStore()
//			t.Cleanup(func() { _ = st.Close() })
//			return storetesting.Harness{Store: st, Advance: myClock.Advance}
//		})
//	}
package testing
