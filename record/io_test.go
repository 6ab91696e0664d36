package record

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestReadJSONLAssignsMissingIDs(t *testing.T) {
	in := `{"question": "What is Go?", "answers": ["A language", "A game"], "score": 3}
{"question": "", "answers": [], "score": null}
`
	ds, err := Read(strings.NewReader(in), FormatAuto, "")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(ds.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(ds.Records))
	}
	if want := []string{"question", "answers", "score"}; !reflect.DeepEqual(ds.Fields, want) {
		t.Errorf("Fields = %v, want %v", ds.Fields, want)
	}
	for i, rec := range ds.Records {
		if rec.ID != int64(i) {
			t.Errorf("record %d ID = %d", i, rec.ID)
		}
	}

	first := ds.Records[0]
	if v := first.Fields["question"]; v.Kind != KindText || v.Text != "What is Go?" {
		t.Errorf("question = %#v", v)
	}
	if v := first.Fields["answers"]; v.Kind != KindList || !reflect.DeepEqual(v.List, []string{"A language", "A game"}) {
		t.Errorf("answers = %#v", v)
	}
	if v := first.Fields["score"]; v.Kind != KindRaw || string(v.Raw) != "3" {
		t.Errorf("score = %#v", v)
	}
	if !ds.Records[1].Fields["answers"].IsEmpty() {
		t.Error("empty list should report IsEmpty")
	}
}

func TestReadJSONArrayKeepsExplicitIDs(t *testing.T) {
	in := `[
  {"qas_id": 7, "text": "seven"},
  {"text": "one", "qas_id": "1"}
]`
	ds, err := Read(strings.NewReader(in), FormatAuto, "")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := []int64{ds.Records[0].ID, ds.Records[1].ID}; !reflect.DeepEqual(got, []int64{7, 1}) {
		t.Errorf("IDs = %v", got)
	}
	if want := []string{"text"}; !reflect.DeepEqual(ds.Fields, want) {
		t.Errorf("Fields = %v, want %v", ds.Fields, want)
	}
}

func TestReadRejectsBadID(t *testing.T) {
	_, err := Read(strings.NewReader(`{"qas_id": "x", "a": "b"}`), FormatJSONL, "")
	if err == nil {
		t.Fatal("expected error for non-integer identifier")
	}
}

func TestMixedArrayIsRaw(t *testing.T) {
	ds, err := Read(strings.NewReader(`{"a": [1, "two"]}`), FormatJSONL, "")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v := ds.Records[0].Fields["a"]; v.Kind != KindRaw {
		t.Errorf("Kind = %v, want KindRaw", v.Kind)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	in := `{"b": "x", "a": ["1", "2"], "meta": {"k": true}, "id": 4}
{"b": "y", "a": [], "meta": null, "id": 9}
`
	ds, err := Read(strings.NewReader(in), FormatJSONL, "id")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, FormatJSONL, ds.Records, ds.Fields, "id"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := `{"b":"x","a":["1","2"],"meta":{"k":true},"id":4}
{"b":"y","a":[],"meta":null,"id":9}
`
	if buf.String() != want {
		t.Errorf("Write =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteFileJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "data.json")
	recs := []*Record{
		{ID: 0, Fields: map[string]Value{"t": Text("a")}},
		{ID: 1, Fields: map[string]Value{"t": Text("b")}},
	}
	if err := WriteFile(path, recs, []string{"t"}, ""); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ds, err := ReadFile(path, "")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(ds.Records) != 2 || ds.Records[1].Fields["t"].Text != "b" {
		t.Errorf("unexpected records: %+v", ds.Records)
	}
}

func TestFieldSet(t *testing.T) {
	if _, err := NewFieldSet([]string{"a"}, []string{"b"}); err == nil {
		t.Error("expected error for unknown target")
	}
	if _, err := NewFieldSet([]string{"a"}, []string{"a", "a"}); err == nil {
		t.Error("expected error for duplicate target")
	}
	fs, err := NewFieldSet([]string{"a", "b", "c"}, []string{"c", "a"})
	if err != nil {
		t.Fatalf("NewFieldSet: %v", err)
	}
	if got := fs.TargetsInOrder(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("TargetsInOrder = %v", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := &Record{ID: 1, Fields: map[string]Value{"l": List("x", "y")}}
	c := r.Clone()
	c.Fields["l"].List[0] = "changed"
	if r.Fields["l"].List[0] != "x" {
		t.Error("Clone shares list storage")
	}
}
