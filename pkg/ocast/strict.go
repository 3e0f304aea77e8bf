package ocast

import "encoding/json"

// jsonUnmarshalStrict decodes data into v using the standard library decoder.
// Unknown object properties are ignored (encoding/json's default); it is up
// to v's shape to make mandatory fields detectable as missing, typically by
// using pointer fields the caller then nil-checks.
func jsonUnmarshalStrict(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
