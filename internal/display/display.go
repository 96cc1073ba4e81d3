package display

import (
	"fmt"
	"io"
	"text/template"

	"github.com/blueprintdash/blueprintdash/pkg/types"
)

const detailsText = `{{.Name | orDash}}
  id:          {{.ID | orDash}}
  provisioner: {{.Provisioner | orDash}}
  type:        {{.Type | orDash}}
  version:     {{.Version | orDash}}
  state:       {{.State | orDash}}
  stages:      {{len .Stages}} (green {{.UI.StagesStatesBadges.Green}}, orange {{.UI.StagesStatesBadges.Orange}}, grey {{.UI.StagesStatesBadges.Grey}})
`

var details = template.Must(template.New("details").Funcs(template.FuncMap{
	"orDash": orDash,
}).Parse(detailsText))

// Render writes the details view of bp to w. The badge counters are read
// from bp.UI as attached by the normalizer, never recomputed here.
func Render(w io.Writer, bp types.Blueprint) error {
	if err := details.Execute(w, bp); err != nil {
		return fmt.Errorf("display: render %q: %w", bp.ID, err)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
