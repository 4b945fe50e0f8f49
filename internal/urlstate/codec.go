// Package urlstate encodes a composed view's layout into a single JSON
// query parameter. Decoding never fails: malformed fields fall back to
// usable defaults, so any link carrying the parameter resumes a view.
package urlstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/quadpane/quadpane/internal/domain/entity"
)

// ParamName is the query parameter carrying the serialized state.
const ParamName = "state"

// Document is the wire form: parallel arrays ordered by pane position.
// Ratios, Layout and Titles are optional; consumers apply defaults.
type Document struct {
	URLs   []string  `json:"urls"`
	Ratios []float64 `json:"ratios,omitempty"`
	Layout string    `json:"layout,omitempty"`
	Titles []string  `json:"titles,omitempty"`
}

// DocumentFromState projects the state into its wire form, ordered by pane
// order. Grid percents are not serialized; a restored grid starts centered.
func DocumentFromState(state *entity.LayoutState) Document {
	panes := state.Panes()
	doc := Document{
		URLs:   make([]string, 0, len(panes)),
		Ratios: make([]float64, 0, len(panes)),
		Layout: string(state.Mode),
		Titles: make([]string, 0, len(panes)),
	}
	for _, p := range panes {
		doc.URLs = append(doc.URLs, p.URL)
		doc.Ratios = append(doc.Ratios, p.Ratio)
		doc.Titles = append(doc.Titles, p.Title)
	}
	return doc
}

// Encode renders the state as the query parameter value.
func Encode(state *entity.LayoutState) (string, error) {
	b, err := json.Marshal(DocumentFromState(state))
	if err != nil {
		return "", fmt.Errorf("encode layout state: %w", err)
	}
	return string(b), nil
}

// Decode parses a query parameter value. A value that is not JSON at all
// yields an empty document; a field of the wrong type is dropped while the
// salvageable fields are kept. Callers treat missing fields as defaults.
func Decode(raw string) Document {
	var doc Document
	if raw == "" {
		return doc
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			// Not JSON at all; nothing salvageable.
			return Document{}
		}
		// Type errors leave the well-typed fields populated.
	}
	return doc
}

// SetQuery writes the encoded state into the URL's query, replacing any
// previous value of the parameter.
func SetQuery(u *url.URL, state *entity.LayoutState) error {
	encoded, err := Encode(state)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set(ParamName, encoded)
	u.RawQuery = q.Encode()
	return nil
}

// FromQuery extracts and decodes the parameter from a URL's query.
func FromQuery(u *url.URL) Document {
	return Decode(u.Query().Get(ParamName))
}
