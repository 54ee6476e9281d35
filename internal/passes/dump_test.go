package passes

import (
	"strings"
	"testing"
)

func TestDumpIRListsKernelAndAttrs(t *testing.T) {
	prog := buildAxpyProgram(t)
	var sb strings.Builder
	DumpIR(&sb, prog)
	out := sb.String()
	if !strings.Contains(out, "func @axpy(") {
		t.Errorf("expected function header, got:\n%s", out)
	}
	if !strings.Contains(out, "axpby(") {
		t.Errorf("expected axpby instruction listed, got:\n%s", out)
	}
}
