package polymarket

import (
	"encoding/json"
	"strings"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "closed" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexString unmarshals from a JSON string or number. Gamma has sent ids in
// both forms over time.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APITag is a tag as returned by the Gamma API, either embedded in a market
// or from /markets/{id}/tags.
type APITag struct {
	ID    flexString `json:"id"`
	Label string     `json:"label"`
	Slug  string     `json:"slug"`
}

// ToDomainTag converts an APITag to a domain.Tag.
func (t APITag) ToDomainTag() domain.Tag {
	return domain.Tag{ID: string(t.ID), Label: t.Label, Slug: t.Slug}
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID          flexString `json:"id"`
	Question    string     `json:"question"`
	ConditionID string     `json:"conditionId"`
	Slug        string     `json:"slug"`
	Category    string     `json:"category"`
	Closed      flexBool   `json:"closed"`
	EndDateISO  string     `json:"endDateIso"`
	Tags        []APITag   `json:"tags"`
}

// ToDomainMarket converts an APIMarket to a domain.Market.
func (m *APIMarket) ToDomainMarket() domain.Market {
	out := domain.Market{
		ID:          string(m.ID),
		Question:    m.Question,
		Slug:        m.Slug,
		ConditionID: m.ConditionID,
		Category:    m.Category,
		Closed:      bool(m.Closed),
		EndDateISO:  m.EndDateISO,
	}
	if len(m.Tags) > 0 {
		out.Tags = make([]domain.Tag, 0, len(m.Tags))
		for _, t := range m.Tags {
			out.Tags = append(out.Tags, t.ToDomainTag())
		}
	}
	return out
}
