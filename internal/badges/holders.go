package badges

import "encoding/json"

// normalizeHolders coerces a raw holders value from the registry into a string
// slice. Well-formed rows store a JSON array of user ids. Legacy rows written
// by the old browser client sometimes stored the array double-encoded as a
// JSON string; anything unparseable or not list-shaped normalizes to empty.
// The wellFormed flag tells the engine whether an in-place append is safe or
// the row needs a full rewrite.
func normalizeHolders(raw []byte) (holders []string, wellFormed bool) {
	if len(raw) == 0 {
		return nil, false
	}

	var direct []string
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, true
	}

	var legacy string
	if err := json.Unmarshal(raw, &legacy); err == nil {
		var parsed []string
		if err := json.Unmarshal([]byte(legacy), &parsed); err == nil {
			return parsed, false
		}
	}

	return nil, false
}
