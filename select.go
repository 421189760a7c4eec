package choices

// ResolveOriginal translates a canonical value back into the true value.
//
// The first record whose Value loosely equals candidate wins: its Original is
// returned when the record was masked, its Value otherwise. When nothing
// matches candidate is returned unchanged so values outside the list still
// round-trip.
func ResolveOriginal(options []Record, candidate any) any {
	if record, ok := Lookup(options, candidate); ok {
		return record.TrueValue()
	}
	return candidate
}

// Lookup returns the first record whose Value loosely equals candidate.
// Pass-through records never match.
func Lookup(options []Record, candidate any) (Record, bool) {
	for _, option := range options {
		if option.Passthrough {
			continue
		}
		if LooseEqual(candidate, option.Value) {
			return option, true
		}
	}
	return Record{}, false
}

// ShouldSelect reports whether a and b denote the same selection: loosely
// equal scalars, or plain data objects with equal contents.
func ShouldSelect(a, b any) bool {
	return Explain(a, b).Selected
}

// Explain runs the selection tiers in order and reports which one decided.
func Explain(a, b any) SelectionTrace {
	if LooseEqual(a, b) {
		return SelectionTrace{Tier: TierLoose, Selected: true}
	}
	if isPlainObject(a) && isPlainObject(b) {
		return SelectionTrace{Tier: TierDeep, Selected: deepEqual(a, b)}
	}
	return SelectionTrace{Tier: TierNone}
}
