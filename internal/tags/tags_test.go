package tags

import (
	"reflect"
	"testing"
)

func TestNormalizeSplitsAndTrims(t *testing.T) {
	got := Normalize(" go ,  databases,web dev ")
	want := []string{"go", "databases", "web dev"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize() = %v, want %v", got, want)
	}
}

func TestNormalizeDedupesCaseInsensitively(t *testing.T) {
	got := Normalize("Go, go, GO ")
	if len(got) != 1 {
		t.Fatalf("expected one tag, got %v", got)
	}
	if got[0] != "Go" {
		t.Fatalf("expected first-seen casing Go, got %q", got[0])
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", ",,,", " , , "} {
		if got := Normalize(input); len(got) != 0 {
			t.Fatalf("Normalize(%q) = %v, want empty", input, got)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Go":              "go",
		"Web Development": "web-development",
		"ASP.NET Core":    "asp.net-core",
		"already-slugged": "already-slugged",
	}
	for name, want := range cases {
		if got := Slugify(name); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", name, got, want)
		}
	}
}
