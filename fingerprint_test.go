package testrecorder

import "testing"

var (
	testNode = Named("example.com/graph", "Node", StructOf(
		StructField{Name: "Name", Type: Basic(String)},
	))
	testNodePtr = PointerTo(testNode)
)

func node(name string) *Object {
	return NewObject(testNodePtr, nil).With("Name", Basic(String), Lit(Basic(String), name))
}

// TestFingerprintLiterals tests that literal type and value both take part
func TestFingerprintLiterals(t *testing.T) {
	fp := NewFingerprinter()

	if fp.Fingerprint(Lit(Basic(Int), 12)) != fp.Fingerprint(Lit(Basic(Int), int64(12))) {
		t.Error("Expected normalized integer literals to share a fingerprint")
	}
	if fp.Fingerprint(Lit(Basic(Int), 12)) == fp.Fingerprint(Lit(Basic(Int8), 12)) {
		t.Error("Expected literals of different types to differ")
	}
	if fp.Fingerprint(Lit(Basic(String), "a")) == fp.Fingerprint(Lit(Basic(String), "b")) {
		t.Error("Expected different strings to differ")
	}
}

// TestFingerprintIgnoresIdentity tests that structural twins share a fingerprint
func TestFingerprintIgnoresIdentity(t *testing.T) {
	fp := NewFingerprinter()

	a, b := node("x"), node("x")
	if a.ID() == b.ID() {
		t.Fatal("Expected distinct identities")
	}
	if fp.Fingerprint(a) != fp.Fingerprint(b) {
		t.Errorf("Expected twins to share a fingerprint:\n  a=%s\n  b=%s", fp.Canonical(a), fp.Canonical(b))
	}
	if fp.Fingerprint(a) == fp.Fingerprint(node("y")) {
		t.Error("Expected different field values to differ")
	}
}

// TestFingerprintCycles tests that cyclic graphs terminate and stay deterministic
func TestFingerprintCycles(t *testing.T) {
	build := func() *Object {
		a, b := node("a"), node("b")
		a.With("Next", testNodePtr, b)
		b.With("Next", testNodePtr, a)
		return a
	}

	fp := NewFingerprinter()
	first, second := build(), build()
	if fp.Fingerprint(first) != fp.Fingerprint(second) {
		t.Errorf("Expected equal cycles to share a fingerprint:\n  %s\n  %s", fp.Canonical(first), fp.Canonical(second))
	}

	self := node("self")
	self.With("Next", testNodePtr, self)
	if fp.Fingerprint(self) == fp.Fingerprint(first) {
		t.Error("Expected a self loop to differ from a two node cycle")
	}
}

// TestFingerprintSetOrder tests that set element order does not matter
func TestFingerprintSetOrder(t *testing.T) {
	setType := SetOf(Basic(String))
	s1 := NewSet(setType, nil, Lit(Basic(String), "a"), Lit(Basic(String), "b"))
	s2 := NewSet(setType, nil, Lit(Basic(String), "b"), Lit(Basic(String), "a"))
	if Fingerprint(s1) != Fingerprint(s2) {
		t.Error("Expected sets with reordered elements to share a fingerprint")
	}

	listType := SliceOf(Basic(String))
	l1 := NewList(listType, nil, Lit(Basic(String), "a"), Lit(Basic(String), "b"))
	l2 := NewList(listType, nil, Lit(Basic(String), "b"), Lit(Basic(String), "a"))
	if Fingerprint(l1) == Fingerprint(l2) {
		t.Error("Expected lists with reordered elements to differ")
	}
}

// TestFingerprintMapEntries tests that map entry order does not matter
func TestFingerprintMapEntries(t *testing.T) {
	mapType := MapOf(Basic(String), Basic(Int))
	m1 := NewMap(mapType, nil,
		Entry{Key: Lit(Basic(String), "a"), Value: Lit(Basic(Int), 1)},
		Entry{Key: Lit(Basic(String), "b"), Value: Lit(Basic(Int), 2)},
	)
	m2 := NewMap(mapType, nil,
		Entry{Key: Lit(Basic(String), "b"), Value: Lit(Basic(Int), 2)},
		Entry{Key: Lit(Basic(String), "a"), Value: Lit(Basic(Int), 1)},
	)
	if Fingerprint(m1) != Fingerprint(m2) {
		t.Error("Expected maps with reordered entries to share a fingerprint")
	}
}
