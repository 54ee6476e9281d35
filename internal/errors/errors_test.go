package errors

import "testing"

func TestLocationString(t *testing.T) {
	cases := []struct {
		name string
		loc  Location
		want string
	}{
		{"empty", Location{}, ""},
		{"point", Location{Filename: "a.tc", Begin: Position{1, 2}, End: Position{1, 2}}, "a.tc:1.2"},
		{"span", Location{Filename: "a.tc", Begin: Position{1, 2}, End: Position{1, 5}}, "a.tc:1.2-1.5"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.loc.String(); got != c.want {
				t.Errorf("got %q, want %q", got, c.want)
			}
		})
	}
}

func TestCompilationErrorRenderWithoutSource(t *testing.T) {
	err := New(IRNumberMismatch, Location{Filename: "a.tc", Begin: Position{3, 1}, End: Position{3, 4}}, "number mismatch")
	if got := err.Render(""); got != err.Error() {
		t.Errorf("Render with no source should fall back to Error(): got %q want %q", got, err.Error())
	}
}

func TestCompilationErrorRenderWithSource(t *testing.T) {
	src := "func @f() {\n  %0 = add %a, %b\n  return\n}\n"
	err := New(IRNumberMismatch, Location{Filename: "a.tc", Begin: Position{2, 8}, End: Position{2, 16}}, "number mismatch")
	out := err.Render(src)
	if out == err.Error() {
		t.Fatalf("Render should include source context")
	}
	if !contains(out, "^^^^^^^^") {
		t.Errorf("expected underline of width 8, got:\n%s", out)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := New(CompileBackendError, Location{}, "clBuildProgram failed")
	wrapped := Wrap(CompileBackendError, Location{}, cause, "backend compile failed")
	if wrapped.Unwrap() == nil {
		t.Fatal("expected non-nil cause")
	}
}

func contains(haystack, needle string) bool {
	return len(needle) == 0 || (len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
