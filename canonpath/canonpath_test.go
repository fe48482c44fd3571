package canonpath

import "testing"

func TestCanonicalizeBasic(t *testing.T) {
	cases := map[string]string{
		"":                       ".",
		".":                      ".",
		"./.":                    ".",
		"foo.h":                  "foo.h",
		"./foo.h":                "foo.h",
		"foo//bar.h":             "foo/bar.h",
		"foo/./bar.h":            "foo/bar.h",
		"foo/bar/../baz.h":       "foo/baz.h",
		"./x/foo/../../bar.h":    "bar.h",
		"../foo/bar.h":           "../foo/bar.h",
		"../../foo/bar.h":        "../../foo/bar.h",
		"foo/bar/../../../baz.h": "../baz.h",
	}
	for in, want := range cases {
		got := New(in).String()
		if got != want {
			t.Errorf("New(%q).String() = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalizeAbsoluteNeverCrossesRoot(t *testing.T) {
	cases := map[string]string{
		"/foo/../bar.h": "/bar.h",
		"/foo/../..":    "/..",
		"/../foo.h":     "/../foo.h",
	}
	for in, want := range cases {
		got := New(in).String()
		if got != want {
			t.Errorf("New(%q).String() = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{
		"./x/foo/../../bar.h",
		"foo/bar/../../../baz.h",
		"/foo/../..",
		"a/b/c",
		"",
	}
	for _, in := range inputs {
		once := New(in).String()
		twice := New(once).String()
		if once != twice {
			t.Errorf("not idempotent: New(%q)=%q, New(that)=%q", in, once, twice)
		}
	}
}

func TestEqualAndSelf(t *testing.T) {
	a := New("foo/./bar.h")
	b := New("foo//bar.h")
	if !a.Equal(b) {
		t.Errorf("expected %q and %q to be equal", a, b)
	}
	if !New("./.").IsSelf() {
		t.Error("expected './.' to canonicalize to self")
	}
	if New("a/b").IsSelf() {
		t.Error("did not expect 'a/b' to canonicalize to self")
	}
}
