package dbtypes

import "testing"

func TestStringListScanPreservesOrder(t *testing.T) {
	var l StringList
	if err := l.Scan(`["b.jpg","a.jpg"]`); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(l) != 2 || l[0] != "b.jpg" || l.First() != "b.jpg" {
		t.Fatalf("unexpected list %v", l)
	}
}

func TestStringListNilAndEmpty(t *testing.T) {
	var l StringList
	if err := l.Scan(nil); err != nil || len(l) != 0 {
		t.Fatalf("expected empty list, got %v, %v", l, err)
	}
	v, err := StringList(nil).Value()
	if err != nil || v != "[]" {
		t.Fatalf("expected [] for nil list, got %v, %v", v, err)
	}
	if l.First() != "" {
		t.Fatal("expected empty first for empty list")
	}
}

func TestStringListRejectsUnknownType(t *testing.T) {
	var l StringList
	if err := l.Scan(42); err == nil {
		t.Fatal("expected error for int source")
	}
}
