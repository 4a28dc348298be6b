package vectorstore

import (
	"reflect"
	"testing"
)

func TestIndexRoundTrip(t *testing.T) {
	original, err := New(
		chunksOf("alpha chunk", "beta chunk", "gamma chunk"),
		[][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}, {0.7, 0.8, 0.9}},
	)
	if err != nil {
		t.Fatal(err)
	}

	blob, err := Encode(original)
	if err != nil {
		t.Fatal(err)
	}
	restored, err := Decode(blob)
	if err != nil {
		t.Fatal(err)
	}

	if restored.Len() != original.Len() {
		t.Fatalf("restored has %d entries, want %d", restored.Len(), original.Len())
	}
	if restored.Dimension() != original.Dimension() {
		t.Fatalf("restored dimension %d, want %d", restored.Dimension(), original.Dimension())
	}

	query := []float32{0.2, 0.1, 0.9}
	wantHits, err := original.Search(query, 3)
	if err != nil {
		t.Fatal(err)
	}
	gotHits, err := restored.Search(query, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gotHits, wantHits) {
		t.Errorf("search over restored index differs:\n got %v\nwant %v", gotHits, wantHits)
	}
}

func TestEncodeEmptyIndexRoundTrip(t *testing.T) {
	blob, err := Encode(&Index{})
	if err != nil {
		t.Fatal(err)
	}
	restored, err := Decode(blob)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Len() != 0 {
		t.Errorf("restored empty index has %d entries", restored.Len())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":     {},
		"bad magic": []byte("NOPE\x01\x00"),
		"truncated": append([]byte("DCIX"), 0x01, 0x00, 0x03),
	}
	for name, blob := range cases {
		if _, err := Decode(blob); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}
}

func TestSourcesRoundTrip(t *testing.T) {
	sources := []string{"first chunk text", "second chunk text", ""}
	blob, err := EncodeSources(sources)
	if err != nil {
		t.Fatal(err)
	}
	restored, err := DecodeSources(blob)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(restored, sources) {
		t.Errorf("restored sources %v, want %v", restored, sources)
	}
}

func TestDecodeSourcesRejectsUnknownVersion(t *testing.T) {
	if _, err := DecodeSources([]byte(`{"v":99,"sources":[]}`)); err == nil {
		t.Fatal("expected error for unsupported version")
	}
	if _, err := DecodeSources([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid json")
	}
}
