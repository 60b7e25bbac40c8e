package shopx

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
)

// Codec defines how the persisted cart record is serialized to and from
// bytes. The default is JSONCodec; GobCodec trades readability for size.
type Codec interface {
	// Encode serializes the line items into a byte slice.
	Encode(items []LineItem) ([]byte, error)

	// Decode deserializes a byte slice produced by Encode.
	Decode(data []byte) ([]LineItem, error)
}

var (
	_ Codec = JSONCodec{}
	_ Codec = GobCodec{}
)

// JSONCodec stores the cart as a JSON array of line items.
type JSONCodec struct{}

// Encode serializes the line items as a JSON array.
func (JSONCodec) Encode(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(items)
}

// Decode parses a JSON array of line items.
func (JSONCodec) Decode(data []byte) ([]LineItem, error) {
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GobCodec is a Codec implementation using Go's encoding/gob.
type GobCodec struct{}

type gobData struct {
	Items []LineItem
}

// Encode serializes the line items using gob encoding.
func (GobCodec) Encode(items []LineItem) ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(&gobData{Items: items})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes gob encoded line items.
func (GobCodec) Decode(data []byte) ([]LineItem, error) {
	var d gobData
	err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&d)
	return d.Items, err
}
