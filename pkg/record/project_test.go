package record

import (
	"encoding/json"
	"reflect"
	"testing"
)

func mustRecords(t *testing.T, data string) []Record {
	t.Helper()
	var records []Record
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return records
}

func TestProject_EmptyAllowListIsIdentity(t *testing.T) {
	records := mustRecords(t, `[{"id":1,"name":"a"},{"id":2}]`)

	got := Project(records, nil)
	if len(got) != len(records) {
		t.Fatalf("Length = %d, want %d", len(got), len(records))
	}
	// Structural identity: same underlying slice, no copy.
	if &got[0] != &records[0] {
		t.Error("Expected identity projection to return the input unchanged")
	}

	got = Project(records, []string{})
	if &got[0] != &records[0] {
		t.Error("Expected empty allow-list to behave like nil")
	}
}

func TestProject_ExactKeysInAllowListOrder(t *testing.T) {
	records := mustRecords(t, `[
		{"id":1,"name":"a","email":"a@x.com"},
		{"email":"b@x.com","id":2},
		{"other":true}
	]`)
	allowList := []string{"name", "id"}

	got := Project(records, allowList)

	if len(got) != len(records) {
		t.Fatalf("Length = %d, want %d", len(got), len(records))
	}
	for i, rec := range got {
		if !reflect.DeepEqual(rec.Keys(), allowList) {
			t.Errorf("Record %d keys = %v, want %v", i, rec.Keys(), allowList)
		}
	}

	// Present values carried over.
	v, _ := got[0].Get("name")
	if v != "a" {
		t.Errorf("Record 0 name = %v, want a", v)
	}

	// Absent fields become explicit nulls, never omitted.
	v, ok := got[2].Get("name")
	if !ok {
		t.Error("Expected absent field to be present as null")
	}
	if v != nil {
		t.Errorf("Absent field = %v, want nil", v)
	}
}

func TestProject_PreservesRecordOrder(t *testing.T) {
	records := mustRecords(t, `[{"id":1},{"id":2},{"id":3}]`)

	got := Project(records, []string{"id"})

	want := []json.Number{"1", "2", "3"}
	for i, rec := range got {
		v, _ := rec.Get("id")
		if v != want[i] {
			t.Errorf("Record %d id = %v, want %v", i, v, want[i])
		}
	}
}
