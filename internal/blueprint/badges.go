package blueprint

import "github.com/blueprintdash/blueprintdash/pkg/types"

// Bucket is one badge colour.
type Bucket string

const (
	Green  Bucket = "green"
	Orange Bucket = "orange"
	Grey   Bucket = "grey"
)

// buckets is the classification table in evaluation order.
var buckets = []struct {
	bucket Bucket
	states []string
}{
	{Green, []string{"running"}},
	{Orange, []string{"new", "created"}},
	{Grey, []string{"deleted", "paused", "stopped"}},
}

// Classify returns the first bucket whose states contain state.
// ok is false for unrecognized states.
func Classify(state string) (b Bucket, ok bool) {
	for _, entry := range buckets {
		for _, s := range entry.states {
			if s == state {
				return entry.bucket, true
			}
		}
	}
	return "", false
}

// Summarize counts stages per bucket.
func Summarize(stages []types.Stage) types.BadgeSummary {
	var sum types.BadgeSummary
	for _, st := range stages {
		b, ok := Classify(st.State)
		if !ok {
			continue
		}
		switch b {
		case Green:
			sum.Green++
		case Orange:
			sum.Orange++
		case Grey:
			sum.Grey++
		}
	}
	return sum
}

// AttachBadges sets UI.StagesStatesBadges on every blueprint in place.
func AttachBadges(bps []types.Blueprint) {
	for i := range bps {
		bps[i].UI.StagesStatesBadges = Summarize(bps[i].Stages)
	}
}
