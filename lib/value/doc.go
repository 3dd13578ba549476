// Package value defines the values a database can hold and the text format they
// are persisted in.
//
// A Value is one of:
//   - absent (the zero Value, encoded as null)
//   - bool, number (float64), string
//   - vector, a 3-component numeric vector encoded as {"x":X,"y":Y,"z":Z}
//   - object, an ordered set of fields holding any of the kinds above except object
//
// A document is an ordered []Entry and is persisted as a single JSON object:
//
//	entries, _ := value.Decode(`{"pos":{"x":1,"y":2,"z":3},"name":"steve"}`)
//	text, _ := value.Encode(entries) // same text, same key order
//
// Decoding is done with github.com/tidwall/gjson, which iterates objects in document
// order. An object with exactly the numeric fields x, y and z always decodes as a
// vector, so an Object built with exactly those fields comes back as a Vector.
//
// Errors are *store.Error values: RetCCorruptData for undecodable persisted text and
// RetCInvalidValue for values that cannot be encoded (non-finite numbers, duplicate keys)
// or parsed (ParseValue).
package value
