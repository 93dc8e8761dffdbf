package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

// DefaultLabelKey is the object key of the label document.
const DefaultLabelKey = "polyportfolio/sector_labels.json"

// LabelStore keeps the slug to sector map as one JSON object in a bucket.
type LabelStore struct {
	r   domain.BlobReader
	w   domain.BlobWriter
	key string
}

// NewLabelStore creates a LabelStore. An empty key uses DefaultLabelKey.
func NewLabelStore(r domain.BlobReader, w domain.BlobWriter, key string) *LabelStore {
	if key == "" {
		key = DefaultLabelKey
	}
	return &LabelStore{r: r, w: w, key: key}
}

// Load reads the document. A missing object is an empty map; an undecodable
// one wraps domain.ErrCorruptLabels.
func (s *LabelStore) Load(ctx context.Context) (map[string]string, error) {
	body, err := s.r.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	defer body.Close()

	labels := map[string]string{}
	if err := json.NewDecoder(body).Decode(&labels); err != nil {
		return nil, fmt.Errorf("s3blob: decode %s: %w: %w", s.key, domain.ErrCorruptLabels, err)
	}
	return labels, nil
}

// Save overwrites the document with labels.
func (s *LabelStore) Save(ctx context.Context, labels map[string]string) error {
	data, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: encode labels: %w", err)
	}
	return s.w.Put(ctx, s.key, bytes.NewReader(data), "application/json")
}

var _ domain.LabelStore = (*LabelStore)(nil)
