package domain

import "context"

// LabelStore persists the slug -> sector label document. Implementations
// return an empty map (not an error) when nothing has been stored yet.
type LabelStore interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, labels map[string]string) error
}
