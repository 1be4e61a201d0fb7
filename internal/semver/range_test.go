package semver

import "testing"

func TestNormalizeRange(t *testing.T) {
	cases := map[string]string{
		"":              "[,)",
		"  ":            "[,)",
		"1.0":           "[1.0]",
		"1.0.0.Final":   "[1.0.0.Final]",
		"[1.0,2.0)":     "[1.0,2.0)",
		"(,1.0]":        "(,1.0]",
		"[1.0.0.Final]": "[1.0.0.Final]",
	}
	for in, want := range cases {
		if got := NormalizeRange(in); got != want {
			t.Errorf("NormalizeRange(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRange_Contains(t *testing.T) {
	cases := []struct {
		expr    string
		version string
		want    bool
	}{
		{"[,)", "0.0.1", true},
		{"1.0", "1.0", true},
		{"1.0", "1.1", false},
		{"[1.0.0]", "1.0.0.Final", true},
		{"[1.0,2.0)", "1.0", true},
		{"[1.0,2.0)", "2.0", false},
		{"(1.0,2.0]", "1.0", false},
		{"(1.0,2.0]", "2.0", true},
		{"[1.0,)", "99.0", true},
		{"(,1.0]", "1.0.0-SNAPSHOT", true},
		{"[1.0,2.0),[3.0,)", "2.5", false},
		{"[1.0,2.0),[3.0,)", "3.1", true},
		{"(1.0.0.9,)", "1.0.0.10", true},
		{"[1.0.0.10,)", "1.0.0.9", false},
		{"[1.0.0.Alpha2,1.0.0.Alpha10)", "1.0.0.alpha3", true},
		{"[1.0.0.Alpha10,)", "1.0.0.Alpha2", false},
		{"[1.0.0]", "1.0.0.SP1", false},
	}
	for _, tc := range cases {
		r, err := ParseRange(tc.expr)
		if err != nil {
			t.Fatalf("ParseRange(%q): %v", tc.expr, err)
		}
		if got := r.Contains(MustParseVersion(tc.version)); got != tc.want {
			t.Errorf("%s contains %s = %v, want %v", tc.expr, tc.version, got, tc.want)
		}
	}
}

func TestParseRange_Invalid(t *testing.T) {
	for _, expr := range []string{"[1.0", "(1.0)", "[2.0,1.0]", "[1.0,2.0),", "[1,2,3]", "[1.0]x"} {
		if _, err := ParseRange(expr); err == nil {
			t.Errorf("expected error for %q", expr)
		}
	}
}

func TestRange_FilterAscending(t *testing.T) {
	r := MustParseRange("[1.0,)")
	got := r.Filter([]Version{
		MustParseVersion("3.0"),
		MustParseVersion("0.5"),
		MustParseVersion("1.0"),
		MustParseVersion("2.0"),
	})
	want := []string{"1.0", "2.0", "3.0"}
	if len(got) != len(want) {
		t.Fatalf("expected %d versions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i].String())
		}
	}
}
