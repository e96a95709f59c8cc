package tables

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"shoplist/internal/store"
)

func TestSplitID(t *testing.T) {
	tests := []struct {
		id      string
		pk, rk  string
		wantErr bool
	}{
		{"family:abc", "family", "abc", false},
		{"user:with:colons:row", "user:with:colons", "row", false},
		{"norow:", "", "", true},
		{":nopk", "", "", true},
		{"plain", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		pk, rk, err := SplitID(tt.id)
		if tt.wantErr {
			if !errors.Is(err, store.ErrNotFound) {
				t.Errorf("SplitID(%q) error = %v, want ErrNotFound", tt.id, err)
			}
			continue
		}
		if err != nil || pk != tt.pk || rk != tt.rk {
			t.Errorf("SplitID(%q) = (%q, %q, %v), want (%q, %q)", tt.id, pk, rk, err, tt.pk, tt.rk)
		}
		if JoinID(pk, rk) != tt.id {
			t.Errorf("JoinID round trip of %q = %q", tt.id, JoinID(pk, rk))
		}
	}
}

func TestPartitionFilter(t *testing.T) {
	if got, want := partitionFilter("family"), "PartitionKey eq 'family'"; got != want {
		t.Errorf("partitionFilter = %q, want %q", got, want)
	}
	if got, want := partitionFilter("o'brien"), "PartitionKey eq 'o''brien'"; got != want {
		t.Errorf("partitionFilter = %q, want %q", got, want)
	}
}

func TestPartitionFor(t *testing.T) {
	if got := partitionFor(""); got != "family" {
		t.Errorf("partitionFor(\"\") = %q", got)
	}
	if got := partitionFor("user-1"); got != "user-1" {
		t.Errorf("partitionFor(user-1) = %q", got)
	}
}

func TestEncodeDecodeItem(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	item := store.Item{Text: "Milk", Completed: true, CreatedAt: created, OwnerTag: "family"}

	data, err := encodeItem("family", "row-1", item)
	if err != nil {
		t.Fatalf("encodeItem: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["CreatedAt@odata.type"] != "Edm.DateTime" {
		t.Errorf("missing Edm.DateTime annotation: %v", raw)
	}
	if raw["PartitionKey"] != "family" || raw["RowKey"] != "row-1" {
		t.Errorf("keys = %v/%v", raw["PartitionKey"], raw["RowKey"])
	}

	got, err := decodeItem(data)
	if err != nil {
		t.Fatalf("decodeItem: %v", err)
	}
	want := item
	want.ID = "family:row-1"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded item mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdatePayloadOmitsUnsetFields(t *testing.T) {
	data, err := json.Marshal(itemUpdate{PartitionKey: "p", RowKey: "r"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `{"PartitionKey":"p","RowKey":"r"}`; got != want {
		t.Errorf("payload = %s, want %s", got, want)
	}
}

func TestWrapError(t *testing.T) {
	if wrapError(nil) != nil {
		t.Error("wrapError(nil) != nil")
	}
	plain := errors.New("boom")
	if !errors.Is(wrapError(plain), plain) {
		t.Error("plain errors should pass through")
	}
}
