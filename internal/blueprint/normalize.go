package blueprint

import (
	"fmt"
	"log/slog"

	"github.com/blueprintdash/blueprintdash/internal/jsonapi"
	"github.com/blueprintdash/blueprintdash/pkg/types"
)

// Normalizer converts raw payloads into badge-annotated blueprints.
type Normalizer struct {
	Extractor jsonapi.Extractor
}

// Normalize decodes body with the default identity key mapping.
func Normalize(body []byte) ([]types.Blueprint, error) {
	return Normalizer{}.Normalize(body)
}

// Normalize decodes body, extracts every resource and attaches badges.
// A single-resource payload yields a one-element slice.
func (n Normalizer) Normalize(body []byte) ([]types.Blueprint, error) {
	doc, err := jsonapi.DecodeDocument(body)
	if err != nil {
		return nil, fmt.Errorf("blueprint: %w", err)
	}

	records := n.Extractor.ExtractAll(doc)
	out := make([]types.Blueprint, 0, len(records))
	for i, rec := range records {
		bp := FromValue(rec)
		if bp.ID == "" {
			// Kept so the list length matches the payload; lookups by id
			// will not find it.
			slog.Warn("blueprint: resource has no id", "index", i, "name", bp.Name)
		}
		out = append(out, bp)
	}
	AttachBadges(out)
	return out, nil
}

// FromValue maps one extracted record onto a Blueprint. Missing or non-scalar
// fields yield empty strings; stage elements that are not maps yield a stage
// with an empty state.
func FromValue(rec jsonapi.Value) types.Blueprint {
	bp := types.Blueprint{
		ID:          field(rec, "id"),
		Name:        field(rec, "name"),
		Provisioner: field(rec, "provisioner"),
		Type:        field(rec, "type"),
		Version:     field(rec, "version"),
		State:       field(rec, "state"),
		Stages:      []types.Stage{},
	}
	if stages, ok := rec.Get("stages"); ok {
		list, _ := stages.AsList()
		for _, s := range list {
			bp.Stages = append(bp.Stages, types.Stage{State: field(s, "state")})
		}
	}
	return bp
}

func field(v jsonapi.Value, key string) string {
	f, ok := v.Get(key)
	if !ok {
		return ""
	}
	return f.Text()
}
