package llm

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "bare object",
			in:   `{"reasoning": "ok", "queries": ["a"]}`,
			want: `{"reasoning": "ok", "queries": ["a"]}`,
		},
		{
			name: "json fence",
			in:   "```json\n{\"queries\": [\"a\", \"b\"]}\n```",
			want: `{"queries": ["a", "b"]}`,
		},
		{
			name: "bare fence",
			in:   "```\n[1, 2, 3]\n```",
			want: `[1, 2, 3]`,
		},
		{
			name: "prose around object",
			in:   "Here is the plan you asked for:\n{\"queries\": [\"x\"]}\nLet me know if you need more.",
			want: `{"queries": ["x"]}`,
		},
		{
			name: "prose around array",
			in:   "The tools I found are: [{\"title\": \"T\"}] hope that helps",
			want: `[{"title": "T"}]`,
		},
		{
			name: "brackets inside strings",
			in:   `result: {"note": "uses [brackets] and {braces} freely", "n": 1}`,
			want: `{"note": "uses [brackets] and {braces} freely", "n": 1}`,
		},
		{
			name: "escaped quotes inside strings",
			in:   `{"msg": "she said \"hi\" to me"}`,
			want: `{"msg": "she said \"hi\" to me"}`,
		},
		{
			name:    "no json at all",
			in:      "I could not find any tools matching that description.",
			wantErr: true,
		},
		{
			name:    "unbalanced json",
			in:      `{"queries": ["a"`,
			wantErr: true,
		},
		{
			name:    "empty input",
			in:      "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrNoJSON) {
					t.Fatalf("expected ErrNoJSON, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnmarshal(t *testing.T) {
	var plan struct {
		Reasoning string   `json:"reasoning"`
		Queries   []string `json:"queries"`
	}

	text := "```json\n{\"reasoning\": \"coverage\", \"queries\": [\"q1\", \"q2\"]}\n```"
	if err := Unmarshal(text, &plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Reasoning != "coverage" {
		t.Errorf("expected reasoning to decode, got %q", plan.Reasoning)
	}
	if len(plan.Queries) != 2 {
		t.Errorf("expected 2 queries, got %d", len(plan.Queries))
	}

	if err := Unmarshal("no structure here", &plan); !errors.Is(err, ErrNoJSON) {
		t.Errorf("expected ErrNoJSON for non-JSON text, got %v", err)
	}
}

func TestUnmarshalIsDeterministic(t *testing.T) {
	in := "noise before [\"a\", \"b\"] noise after"
	first, err := ExtractJSON(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := ExtractJSON(in)
		if err != nil || again != first {
			t.Fatalf("extraction not deterministic: %q vs %q (err %v)", first, again, err)
		}
	}
}
