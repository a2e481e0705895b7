package cbor

import "fmt"

// Get returns the value associated with key in a Map item. ok is false when
// item is not a Map or the key is absent.
func (item Item) Get(key string) (Item, bool) {
	if item.Type != Map {
		return Item{}, false
	}
	for _, e := range item.M {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Item{}, false
}

// RequireMap returns item.M, failing if item is not a Map.
func (item Item) RequireMap() ([]MapEntry, error) {
	if item.Type != Map {
		return nil, fmt.Errorf("cbor: expected map, got type %d", item.Type)
	}
	return item.M, nil
}

// RequireArray returns item.Arr, failing if item is not an Array.
func (item Item) RequireArray() ([]Item, error) {
	if item.Type != Array {
		return nil, fmt.Errorf("cbor: expected array, got type %d", item.Type)
	}
	return item.Arr, nil
}

// RequireBytes returns item.B, failing if item is not a Bytes item.
func (item Item) RequireBytes() ([]byte, error) {
	if item.Type != Bytes {
		return nil, fmt.Errorf("cbor: expected byte string, got type %d", item.Type)
	}
	return item.B, nil
}

// RequireText returns item.S, failing if item is not a Text item.
func (item Item) RequireText() (string, error) {
	if item.Type != Text {
		return "", fmt.Errorf("cbor: expected text string, got type %d", item.Type)
	}
	return item.S, nil
}

// RequireUint returns item.U, failing if item is not an unsigned Uint item.
// CBOR represents all non-negative integers as major type 0, so this is the
// only integer accessor most schema fields need.
func (item Item) RequireUint() (uint64, error) {
	if item.Type != Uint {
		return 0, fmt.Errorf("cbor: expected unsigned integer, got type %d", item.Type)
	}
	return item.U, nil
}

// RequireBool returns item.Bl, failing if item is not a Bool item.
func (item Item) RequireBool() (bool, error) {
	if item.Type != Bool {
		return false, fmt.Errorf("cbor: expected bool, got type %d", item.Type)
	}
	return item.Bl, nil
}

// IsNull reports whether item decoded to the CBOR null simple value.
func (item Item) IsNull() bool {
	return item.Type == Null
}
