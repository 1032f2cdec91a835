package models

import (
	"encoding/json"
	"testing"
)

func TestGroupListUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []SynonymGroup
	}{
		{
			"plain strings",
			`["clients", "accounts"]`,
			[]SynonymGroup{{Synonym: "clients"}, {Synonym: "accounts"}},
		},
		{
			"objects with sample values",
			`[{"synonym": "clients", "sample_values": ["Acme"]}]`,
			[]SynonymGroup{{Synonym: "clients", SampleValues: []string{"Acme"}}},
		},
		{
			"mixed shapes",
			`["clients", {"synonym": "accounts", "sample_values": ["A-1"]}]`,
			[]SynonymGroup{{Synonym: "clients"}, {Synonym: "accounts", SampleValues: []string{"A-1"}}},
		},
		{
			"unrecognized elements skipped",
			`[42, "clients", null]`,
			[]SynonymGroup{{Synonym: "clients"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got GroupList
			if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d groups, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Synonym != tt.want[i].Synonym {
					t.Errorf("group %d synonym = %q, want %q", i, got[i].Synonym, tt.want[i].Synonym)
				}
				if len(got[i].SampleValues) != len(tt.want[i].SampleValues) {
					t.Errorf("group %d sample values = %v, want %v", i, got[i].SampleValues, tt.want[i].SampleValues)
				}
			}
		})
	}
}

func TestGroupListMarshalKeepsObjects(t *testing.T) {
	groups := GroupList{{Synonym: "clients", SampleValues: []string{"Acme"}}}
	out, err := json.Marshal(groups)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"synonym":"clients","sample_values":["Acme"]}]`
	if string(out) != want {
		t.Errorf("marshal = %s, want %s", out, want)
	}
}

func TestStringOrGroupsMarshalFlattens(t *testing.T) {
	groups := StringOrGroups{{Synonym: "belongs to", SampleValues: []string{"x"}}, {Synonym: "placed by"}}
	out, err := json.Marshal(groups)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `["belongs to","placed by"]`
	if string(out) != want {
		t.Errorf("marshal = %s, want %s", out, want)
	}
}

func TestFlexMetricsUnmarshal(t *testing.T) {
	t.Run("name list", func(t *testing.T) {
		var got FlexMetrics
		if err := json.Unmarshal([]byte(`["total_orders", "revenue"]`), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d metrics, want 2", len(got))
		}
		if m, ok := got["revenue"]; !ok || m.Expression != "" {
			t.Errorf("revenue = %+v, want empty expression entry", m)
		}
	})

	t.Run("spec map", func(t *testing.T) {
		var got FlexMetrics
		input := `{"revenue": {"name": "revenue", "expression": "SUM(amount)"}}`
		if err := json.Unmarshal([]byte(input), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got["revenue"].Expression != "SUM(amount)" {
			t.Errorf("expression = %q, want SUM(amount)", got["revenue"].Expression)
		}
	})
}

func TestWireColumnDualShape(t *testing.T) {
	legacy := `{"name": "id", "data_type": "uuid", "is_primary_key": true}`
	var col WireColumn
	if err := json.Unmarshal([]byte(legacy), &col); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if col.DataType != "uuid" || !col.IsPrimaryKey {
		t.Errorf("legacy fields not decoded: %+v", col)
	}

	current := `{"name": "id", "type": "uuid", "primary": true}`
	col = WireColumn{}
	if err := json.Unmarshal([]byte(current), &col); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if col.Type != "uuid" || !col.Primary {
		t.Errorf("primary fields not decoded: %+v", col)
	}
}
