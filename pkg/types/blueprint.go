package types

// Blueprint is one deployable unit (a pipeline or an application) as shown on
// the dashboard. It is rebuilt from scratch on every poll; only ID carries
// identity across polls.
type Blueprint struct {
	// ID is the JSON:API resource id. Empty when the upstream resource had none.
	ID string `json:"id,omitempty"`

	Name string `json:"name"`

	// Provisioner is the provisioner type: docker, ...
	Provisioner string `json:"provisioner"`

	// Type is the kind of blueprint: pipeline | application.
	Type string `json:"type"`

	Version string  `json:"version"`
	State   string  `json:"state"`
	Stages  []Stage `json:"stages"`

	// UI holds values derived for display, never read from upstream.
	UI UI `json:"ui"`
}

// Stage is one phase of a blueprint's lifecycle.
type Stage struct {
	// State is one of running | new | created | deleted | paused | stopped,
	// or any other value the upstream reports.
	State string `json:"state"`
}

// UI carries the per-record display summary.
type UI struct {
	StagesStatesBadges BadgeSummary `json:"stagesStatesBadges"`
}

// BadgeSummary counts stages per badge bucket. Stages whose state is not
// recognized are not counted, so Green+Orange+Grey <= len(Stages).
type BadgeSummary struct {
	Green  int `json:"green"`
	Orange int `json:"orange"`
	Grey   int `json:"grey"`
}

// Total returns the number of stages that fell into any bucket.
func (b BadgeSummary) Total() int {
	return b.Green + b.Orange + b.Grey
}
