package jsonapi

import "encoding/json"

// ErrorObject is one entry of a JSON:API error envelope as served by the
// blueprints API, which carries its message in "details".
type ErrorObject struct {
	Details string `json:"details"`
}

// UnmarshalJSON accepts any scalar in "details"; numbers and booleans are
// kept as their display text. Lists and maps yield "".
func (o *ErrorObject) UnmarshalJSON(data []byte) error {
	var raw struct {
		Details Value `json:"details"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Details = raw.Details.Text()
	return nil
}

// ErrorDocument is the {"errors": [...]} envelope.
type ErrorDocument struct {
	Errors []ErrorObject `json:"errors"`
}

// NewErrorDocument builds an envelope with one entry per message.
func NewErrorDocument(details ...string) ErrorDocument {
	doc := ErrorDocument{Errors: make([]ErrorObject, 0, len(details))}
	for _, d := range details {
		doc.Errors = append(doc.Errors, ErrorObject{Details: d})
	}
	return doc
}

// DecodeErrors parses body as an error envelope. ok is false when body is
// not JSON, has no "errors" member, or the member is not a non-empty list of
// objects.
func DecodeErrors(body []byte) (errs []ErrorObject, ok bool) {
	var doc ErrorDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false
	}
	if len(doc.Errors) == 0 {
		return nil, false
	}
	return doc.Errors, true
}
