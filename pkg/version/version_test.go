package version

import "testing"

func mustParse(t *testing.T, s string) Version {
	t.Helper()
	v, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q) unexpected error: %v", s, err)
	}
	return v
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []string{"1.25.3", "0.1", "3", "6.5-20250809", "2024a", "6.2.13p2"} {
		v := mustParse(t, s)
		if v.String() != s {
			t.Errorf("String() = %q, want %q", v.String(), s)
		}
	}
}

func TestInvalidVersions(t *testing.T) {
	for _, s := range []string{"", "   ", "..."} {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) expected error, got none", s)
		}
	}
	if _, err := Parse("abc"); err != nil {
		t.Errorf("Parse(\"abc\") expected success, got %v", err)
	}
}

func TestOrderingBasic(t *testing.T) {
	v1 := mustParse(t, "1.0.0")
	v2 := mustParse(t, "1.0.1")
	v3 := mustParse(t, "1.1.0")
	v4 := mustParse(t, "2.0.0")

	if !v1.Less(v2) || !v2.Less(v3) || !v3.Less(v4) {
		t.Fatal("expected strictly increasing order")
	}
	if !v1.Equal(mustParse(t, "1.0.0")) {
		t.Fatal("expected equal versions to compare equal")
	}
}

func TestFreeformOrdering(t *testing.T) {
	cases := []struct{ lesser, greater string }{
		{"6.5-20250808", "6.5-20250809"},
		{"2024a", "2024b"},
		{"6.2.13p2", "6.2.13p3"},
		{"1.0a", "1.0.1"}, // alpha sorts below numeric
		{"1.0", "1.0.1"},  // shorter prefix sorts below longer
	}
	for _, c := range cases {
		lo, hi := mustParse(t, c.lesser), mustParse(t, c.greater)
		if !lo.Less(hi) {
			t.Errorf("%q should be less than %q", c.lesser, c.greater)
		}
		if !hi.Greater(lo) {
			t.Errorf("%q should be greater than %q", c.greater, c.lesser)
		}
	}
}

func TestConstraints(t *testing.T) {
	ge, err := ParseConstraint(">= 1.2.0")
	if err != nil {
		t.Fatal(err)
	}
	if !ge.Satisfies(mustParse(t, "1.2.0")) || !ge.Satisfies(mustParse(t, "1.3.0")) {
		t.Error(">= 1.2.0 should satisfy 1.2.0 and 1.3.0")
	}
	if ge.Satisfies(mustParse(t, "1.1.9")) {
		t.Error(">= 1.2.0 should not satisfy 1.1.9")
	}

	lt, err := ParseConstraint("< 2.0")
	if err != nil {
		t.Fatal(err)
	}
	if !lt.Satisfies(mustParse(t, "1.9.9")) || lt.Satisfies(mustParse(t, "2.0.0")) {
		t.Error("< 2.0 constraint misbehaved")
	}
}

func TestParseDependency(t *testing.T) {
	name, c, err := ParseDependency("openssl >= 3.0")
	if err != nil {
		t.Fatal(err)
	}
	if name != "openssl" || c == nil || c.Op != OpGE {
		t.Fatalf("got name=%q constraint=%+v", name, c)
	}

	name, c, err = ParseDependency("gcc")
	if err != nil {
		t.Fatal(err)
	}
	if name != "gcc" || c != nil {
		t.Fatalf("expected bare name with nil constraint, got name=%q constraint=%+v", name, c)
	}
}
