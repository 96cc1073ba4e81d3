package jsonapi

// KeyFunc maps an upstream attribute key to the key used in extracted
// records.
type KeyFunc func(key string) string

// IdentityKey returns key unchanged. It is the default KeyFunc.
func IdentityKey(key string) string { return key }

// Extractor flattens resources into plain attribute maps.
type Extractor struct {
	// KeyForAttribute renames attribute keys at every nesting level.
	// Nil means IdentityKey.
	KeyForAttribute KeyFunc
}

// Extract returns a fresh Map holding r's attributes, walked recursively,
// plus "id" when r has one. The result shares no maps or slices with r.
func (e Extractor) Extract(r Resource) Value {
	dest := e.Transform(Map(r.Attributes))
	if r.ID != nil {
		dest.m["id"] = String(*r.ID)
	}
	return dest
}

// ExtractAll extracts every resource of doc in order.
func (e Extractor) ExtractAll(doc *Document) []Value {
	out := make([]Value, 0, len(doc.Resources))
	for _, r := range doc.Resources {
		out = append(out, e.Extract(r))
	}
	return out
}

// Transform copies v: maps are rebuilt with renamed keys, lists are rebuilt
// element by element, scalars are returned as they are.
func (e Extractor) Transform(v Value) Value {
	switch v.kind {
	case KindMap:
		out := make(map[string]Value, len(v.m))
		for k, elem := range v.m {
			out[e.key(k)] = e.Transform(elem)
		}
		return Map(out)
	case KindList:
		out := make([]Value, len(v.list))
		for i, elem := range v.list {
			out[i] = e.Transform(elem)
		}
		return List(out...)
	default:
		return v
	}
}

func (e Extractor) key(k string) string {
	if e.KeyForAttribute == nil {
		return k
	}
	return e.KeyForAttribute(k)
}
