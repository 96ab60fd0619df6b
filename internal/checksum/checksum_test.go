package checksum

import "testing"

func TestSHA256(t *testing.T) {
	got := SHA256([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("SHA256 mismatch: got %s want %s", got, want)
	}
}

func TestStatementIgnoresLayout(t *testing.T) {
	a := Statement("CREATE TABLE t (\n    id INTEGER\n)")
	b := Statement("  CREATE TABLE t ( id INTEGER )  ")
	if a != b {
		t.Fatalf("layout changed checksum: %s vs %s", a, b)
	}
	if a != SHA256([]byte("CREATE TABLE t ( id INTEGER )")) {
		t.Fatal("unexpected normalisation")
	}
}

func TestStatementDetectsEdits(t *testing.T) {
	if Statement("CREATE TABLE t (id INTEGER)") == Statement("CREATE TABLE t (id TEXT)") {
		t.Fatal("different statements share a checksum")
	}
}
