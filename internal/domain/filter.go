package domain

// FilterAll is the sentinel value a dropdown sends when no restriction is
// selected. Filters carrying it (or an empty string) are dropped before the
// upstream query is built.
const FilterAll = "all"

// ListFilter is the generic filter set attached to collection fetches.
// Values are kept as strings until the gateway coerces them; boolean-like
// filters arrive as "true"/"false".
type ListFilter map[string]string

// Merge returns a copy of the filter with the overlay's keys applied on top.
// Keys absent from the overlay keep their current value; the receiver is not
// mutated.
func (f ListFilter) Merge(overlay ListFilter) ListFilter {
	merged := make(ListFilter, len(f)+len(overlay))
	for k, v := range f {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

// Active reports the subset of filters that actually restrict results,
// dropping empty values and the "all" sentinel.
func (f ListFilter) Active() ListFilter {
	active := ListFilter{}
	for k, v := range f {
		if v == "" || v == FilterAll {
			continue
		}
		active[k] = v
	}
	return active
}
