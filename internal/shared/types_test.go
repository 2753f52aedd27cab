package shared

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRawJSON_Value(t *testing.T) {
	tests := []struct {
		name     string
		raw      RawJSON
		expected string
		wantErr  bool
	}{
		{name: "empty", raw: nil, expected: "{}"},
		{name: "object", raw: RawJSON(`{"id":"42"}`), expected: `{"id":"42"}`},
		{name: "invalid", raw: RawJSON(`{"id":`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.raw.Value()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Value() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if v.(string) != tt.expected {
				t.Errorf("expected %s, got %v", tt.expected, v)
			}
		})
	}
}

func TestRawJSON_Scan(t *testing.T) {
	var r RawJSON
	if err := r.Scan([]byte(`{"a":1}`)); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if string(r) != `{"a":1}` {
		t.Errorf("unexpected value %s", r)
	}

	if err := r.Scan(`[1,2]`); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if string(r) != `[1,2]` {
		t.Errorf("unexpected value %s", r)
	}

	if err := r.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}

	if err := r.Scan(nil); err != nil || r != nil {
		t.Errorf("expected nil after scanning nil, got %s (%v)", r, err)
	}
}

func TestRawJSON_MarshalJSON(t *testing.T) {
	doc := struct {
		Profile RawJSON `json:"profile"`
		Empty   RawJSON `json:"empty"`
	}{Profile: RawJSON(`{"verified":true}`)}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"profile":{"verified":true},"empty":null}` {
		t.Errorf("unexpected json %s", data)
	}
}

func TestNewID(t *testing.T) {
	id1 := NewID("usr_")
	id2 := NewID("usr_")

	if !strings.HasPrefix(id1, "usr_") {
		t.Errorf("expected prefix usr_, got %s", id1)
	}
	if len(id1) != len("usr_")+36 {
		t.Errorf("unexpected id length %d", len(id1))
	}
	if id1 == id2 {
		t.Error("ids should be unique")
	}
}
