package domain

// Tag is a Gamma API market tag.
type Tag struct {
	ID    string
	Label string
	Slug  string
}

// Market is the subset of Gamma market metadata the analytics engine needs.
type Market struct {
	ID          string
	Question    string
	Slug        string
	ConditionID string
	Category    string
	Closed      bool
	EndDateISO  string
	Tags        []Tag
}
