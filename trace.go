package choices

import (
	"encoding/json"
)

// SelectionTier names the comparison that settled a selection decision.
type SelectionTier string

const (
	// TierLoose means the values were loosely equal.
	TierLoose SelectionTier = "loose"
	// TierDeep means both values were plain objects and were compared
	// structurally.
	TierDeep SelectionTier = "deep"
	// TierNone means no tier applied.
	TierNone SelectionTier = "none"
)

// SelectionTrace records how ShouldSelect reached its answer.
type SelectionTrace struct {
	Tier     SelectionTier `json:"tier"`
	Selected bool          `json:"selected"`
}

// ToJSON serialises the trace for logging or transport helpers.
func (t SelectionTrace) ToJSON() ([]byte, error) {
	type alias SelectionTrace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (SelectionTrace, error) {
	type alias SelectionTrace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return SelectionTrace{}, err
	}
	return SelectionTrace(trace), nil
}
