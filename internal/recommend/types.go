package recommend

// Strategy names the selection path that produced a result.
type Strategy string

const (
	StrategyPersonalized Strategy = "personalized"
	StrategyCurated      Strategy = "curated"
)

// Item is the caller-visible projection of a ranked content item.
type Item struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Genre    string `json:"genre"`
	Language string `json:"language"`
}

// Result is one recommendation response. Cached and LatencyMS describe
// the call that returned this value, not the computation that built the
// underlying item list, so both are set fresh on every call.
type Result struct {
	Recommendations []Item   `json:"recommendations"`
	Strategy        Strategy `json:"strategy"`
	Cached          bool     `json:"cached"`
	LatencyMS       int64    `json:"latencyMs"`
}

func (r Result) clone() Result {
	out := r
	out.Recommendations = make([]Item, len(r.Recommendations))
	copy(out.Recommendations, r.Recommendations)
	return out
}
