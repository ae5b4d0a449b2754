package codec

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aretw0/espalier/pkg/domain"
)

func readFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/cart.json")
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDecodeFixture(t *testing.T) {
	m, warnings, err := Decode(readFixture(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	if len(m.Slices) != 2 {
		t.Fatalf("got %d slices, want 2", len(m.Slices))
	}
	el, ok := m.Element("rm-cart-items")
	if !ok {
		t.Fatal("decoded model is not indexed")
	}
	if el.Type != domain.ElementReadModel {
		t.Errorf("type = %q, want READMODEL", el.Type)
	}

	// Explicit false survives.
	cmd, _ := m.Element("cmd-add-item")
	opt := cmd.Fields[1].Optional
	if opt == nil || *opt {
		t.Errorf("optional:false lost in decode: %+v", opt)
	}
}

func TestRoundTripIsCanonical(t *testing.T) {
	fixture := readFixture(t)

	m, _, err := Decode(fixture)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bytes.TrimSpace(fixture), bytes.TrimSpace(out)) {
		t.Errorf("re-serialization is not canonical:\n%s", cmp.Diff(string(fixture), string(out)))
	}
}

func TestRoundTripStructural(t *testing.T) {
	m, _, err := Decode(readFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	again, _, err := Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(m.Slices, again.Slices); diff != "" {
		t.Errorf("round trip changed the model (-first +second):\n%s", diff)
	}
}

func TestDecodeSchemaViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc string) string
	}{
		{
			name: "unknown top-level key",
			mutate: func(doc string) string {
				return strings.Replace(doc, `"slices": [`, `"extra": 1,
  "slices": [`, 1)
			},
		},
		{
			name: "unknown nested key",
			mutate: func(doc string) string {
				return strings.Replace(doc, `"id": "cmd-add-item",`, `"id": "cmd-add-item",
          "color": "red",`, 1)
			},
		},
		{
			name: "bad enum value",
			mutate: func(doc string) string {
				return strings.Replace(doc, `"sliceType": "STATE_CHANGE"`, `"sliceType": "STATE_MUTATION"`, 1)
			},
		},
		{
			name: "missing required key",
			mutate: func(doc string) string {
				return strings.Replace(doc, `"sliceType": "STATE_CHANGE",`, ``, 1)
			},
		},
		{
			name: "wrong type",
			mutate: func(doc string) string {
				return strings.Replace(doc, `"index": 0`, `"index": "zero"`, 1)
			},
		},
		{
			name: "not JSON at all",
			mutate: func(doc string) string {
				return "sliceType: STATE_CHANGE"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tt.mutate(string(readFixture(t)))
			m, _, err := Decode([]byte(doc))
			if m != nil {
				t.Fatal("no partial model may escape a failed decode")
			}
			if domain.KindOf(err) != domain.KindSchemaViolation {
				t.Fatalf("got %v, want SCHEMA_VIOLATION", err)
			}
		})
	}
}

func TestDecodeDraftSkipsSliceRules(t *testing.T) {
	// A single disconnected command: invalid for the strict path, fine as
	// a draft.
	doc := `{
  "slices": [
    {
      "id": "s1",
      "index": 0,
      "title": "Draft",
      "sliceType": "STATE_CHANGE",
      "commands": [
        {
          "id": "cmd",
          "title": "Cmd",
          "type": "COMMAND"
        }
      ]
    }
  ]
}`

	if _, _, err := Decode([]byte(doc)); err == nil {
		t.Fatal("strict decode should reject the incomplete slice")
	}

	m, err := DecodeDraft([]byte(doc))
	if err != nil {
		t.Fatalf("draft decode failed: %v", err)
	}
	if _, ok := m.Element("cmd"); !ok {
		t.Fatal("draft model is not indexed")
	}
}

func TestDecodeDraftStillRejectsGlobalBreakage(t *testing.T) {
	doc := strings.Replace(string(readFixture(t)), `"id": "rm-cart-items",`, `"id": "cmd-add-item",`, 1)
	_, err := DecodeDraft([]byte(doc))
	if domain.KindOf(err) != domain.KindDuplicateID {
		t.Fatalf("got %v, want DUPLICATE_ID", err)
	}
}

func TestEncodeEmptyModel(t *testing.T) {
	out, err := Encode(domain.NewModel())
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{
  "slices": []
}` {
		t.Errorf("unexpected empty encoding: %s", out)
	}
}
