package domain

// Record is a raw venue record as decoded from JSON. Field names vary between
// endpoints and API versions, so records stay untyped until normalization.
type Record map[string]any
