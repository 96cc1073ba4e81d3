package jsonapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoData is returned when a payload has no "data" member or it is null.
var ErrNoData = errors.New("jsonapi: payload has no data")

// Resource is one JSON:API resource object. ID is nil when the member is
// absent; Attributes is nil when absent or null.
type Resource struct {
	ID         *string          `json:"id,omitempty"`
	Type       string           `json:"type,omitempty"`
	Attributes map[string]Value `json:"attributes,omitempty"`
}

// Document is a decoded {"data": ...} envelope. Many is false when data was
// a single resource object; Resources then holds exactly one element.
type Document struct {
	Resources []Resource
	Many      bool
}

// DecodeDocument parses body as {"data": Resource | [Resource]}.
func DecodeDocument(body []byte) (*Document, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("jsonapi: decode envelope: %w", err)
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, ErrNoData
	}

	if data[0] == '[' {
		var many []Resource
		if err := json.Unmarshal(data, &many); err != nil {
			return nil, fmt.Errorf("jsonapi: decode resources: %w", err)
		}
		if many == nil {
			many = []Resource{}
		}
		return &Document{Resources: many, Many: true}, nil
	}

	if data[0] != '{' {
		return nil, fmt.Errorf("jsonapi: data must be an object or an array")
	}
	var one Resource
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("jsonapi: decode resource: %w", err)
	}
	return &Document{Resources: []Resource{one}}, nil
}
