// Package testing provides a standardised test suite for
// property stores that satisfy the store.IPropertyStore interface.
//
// This package is particularly useful for:
//   - Validating a new storage backend against the behaviour the databases rely on
//     (atomic overwrite, missing properties, clearing, prefix listing)
//   - Keeping the in-memory test store and the durable stores interchangeable
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() store.IPropertyStore {
//		return NewMyStore()
//	}
//
//	// Running the standard test suite
//	storetesting.RunPropertyStoreTests(t, "MyStore", factory)
package testing
