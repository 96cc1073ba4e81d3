// Package jsonapi decodes the JSON:API-flavored envelopes served by the
// blueprints endpoint.
//
// Payload values are held in Value, a tagged variant
// (Null | Bool | Number | String | List | Map) built by a token-level decoder,
// so attribute walking never needs interface{} type switches.
//
// DecodeDocument(body) parses {"data": Resource | [Resource]}.
// Extractor.Extract(resource) copies a resource's attributes into a fresh
// Map of the same shape and adds the resource id. Keys go through
// Extractor.KeyForAttribute, which is IdentityKey by default: attribute keys
// reach consumers exactly as the server sent them.
//
// DecodeErrors(body) parses the error envelope {"errors": [{"details": ...}]}.
package jsonapi
