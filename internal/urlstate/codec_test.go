package urlstate

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"testing"

	"github.com/quadpane/quadpane/internal/application/usecase"
	"github.com/quadpane/quadpane/internal/domain/entity"
)

func testState(t *testing.T, input usecase.NewStateInput) *entity.LayoutState {
	t.Helper()
	n := 0
	uc := usecase.NewEditLayoutUseCase(func() string {
		n++
		return fmt.Sprintf("id%d", n)
	})
	state, err := uc.NewState(context.Background(), input)
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	return state
}

func TestRoundTrip(t *testing.T) {
	inputs := []usecase.NewStateInput{
		{URLs: []string{"https://a.example", "https://b.example"}, Ratios: []float64{60, 40}},
		{URLs: []string{"https://a.example", "https://b.example", "https://c.example"}, Mode: entity.ModeVertical},
		{URLs: []string{"a", "b", "c", "d"}},
	}
	for _, input := range inputs {
		state := testState(t, input)
		state.Panes()[0].Title = "First"

		encoded, err := Encode(state)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		doc := Decode(encoded)

		panes := state.Panes()
		if len(doc.URLs) != len(panes) {
			t.Fatalf("urls = %d, want %d", len(doc.URLs), len(panes))
		}
		for i, p := range panes {
			if doc.URLs[i] != p.URL {
				t.Fatalf("url[%d] = %q, want %q", i, doc.URLs[i], p.URL)
			}
			if math.Abs(doc.Ratios[i]-p.Ratio) > 0.01 {
				t.Fatalf("ratio[%d] = %v, want %v", i, doc.Ratios[i], p.Ratio)
			}
			if doc.Titles[i] != p.Title {
				t.Fatalf("title[%d] = %q, want %q", i, doc.Titles[i], p.Title)
			}
		}
		if doc.Layout != string(state.Mode) {
			t.Fatalf("layout = %q, want %q", doc.Layout, state.Mode)
		}
	}
}

func TestRoundTripThroughState(t *testing.T) {
	// Decoding an encoded state and rebuilding must reproduce the state.
	state := testState(t, usecase.NewStateInput{
		URLs:   []string{"https://a.example", "https://b.example"},
		Ratios: []float64{70, 30},
	})
	encoded, err := Encode(state)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	doc := Decode(encoded)

	rebuilt := testState(t, usecase.NewStateInput{
		URLs:   doc.URLs,
		Ratios: doc.Ratios,
		Titles: doc.Titles,
		Mode:   entity.LayoutMode(doc.Layout),
	})
	if rebuilt.Mode != state.Mode {
		t.Fatalf("mode = %v, want %v", rebuilt.Mode, state.Mode)
	}
	for i, p := range state.Panes() {
		r := rebuilt.Panes()[i]
		if r.URL != p.URL || math.Abs(r.Ratio-p.Ratio) > 0.01 {
			t.Fatalf("pane %d = %q/%v, want %q/%v", i, r.URL, r.Ratio, p.URL, p.Ratio)
		}
	}
}

func TestDecodeGarbage(t *testing.T) {
	for _, raw := range []string{"", "not json", "{", "[1,2,3", "<html>"} {
		doc := Decode(raw)
		if len(doc.URLs) != 0 || doc.Layout != "" {
			t.Fatalf("Decode(%q) = %+v, want empty document", raw, doc)
		}
	}
}

func TestDecodeSalvagesTypedFields(t *testing.T) {
	doc := Decode(`{"urls":["https://a.example"],"ratios":"heavy","layout":"vertical"}`)
	if len(doc.URLs) != 1 || doc.URLs[0] != "https://a.example" {
		t.Fatalf("urls = %v, want the well-typed field kept", doc.URLs)
	}
	if doc.Ratios != nil {
		t.Fatalf("ratios = %v, want dropped", doc.Ratios)
	}
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	doc := Decode(`{"urls":["a","b"],"zoom":3,"theme":"dark"}`)
	if len(doc.URLs) != 2 {
		t.Fatalf("urls = %v, want 2 entries", doc.URLs)
	}
}

func TestQueryHelpers(t *testing.T) {
	state := testState(t, usecase.NewStateInput{URLs: []string{"https://a.example", "https://b.example"}})
	u, _ := url.Parse("https://host.example/view")

	if err := SetQuery(u, state); err != nil {
		t.Fatalf("SetQuery() error = %v", err)
	}
	doc := FromQuery(u)
	if len(doc.URLs) != 2 || doc.URLs[0] != "https://a.example" {
		t.Fatalf("FromQuery() urls = %v", doc.URLs)
	}

	// Re-encoding replaces, not appends.
	if err := SetQuery(u, state); err != nil {
		t.Fatalf("SetQuery() error = %v", err)
	}
	if got := len(u.Query()[ParamName]); got != 1 {
		t.Fatalf("parameter count = %d, want 1", got)
	}
}
