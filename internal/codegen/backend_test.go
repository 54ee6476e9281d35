package codegen

import (
	"errors"
	"strings"
	"testing"

	"tinytc/internal/passes"
)

type fakeCompiler struct {
	out []byte
	err error
}

func (f fakeCompiler) Compile(source string, options []string, format BundleFormat) ([]byte, error) {
	return f.out, f.err
}

func TestCompileWrapsFailureWithCacheKey(t *testing.T) {
	req := Request{Module: passes.Module{Source: "kernel source"}}
	_, err := Compile(fakeCompiler{err: errors.New("boom")}, req, false)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "cache key") {
		t.Errorf("expected the error to carry the cache key, got %q", err.Error())
	}
}

func TestCompileSucceeds(t *testing.T) {
	req := Request{
		Module:  passes.Module{Source: "kernel source"},
		Kernels: map[string]KernelMetadata{"k": {SubgroupSize: 16}},
	}
	bin, err := Compile(fakeCompiler{out: []byte{1, 2, 3}}, req, false)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(bin.Data) != 3 {
		t.Errorf("expected 3 bytes of data, got %d", len(bin.Data))
	}
}

func TestCacheKeyDeterministicAndOptionSensitive(t *testing.T) {
	k1 := CacheKey("source", []string{"-a"})
	k2 := CacheKey("source", []string{"-a"})
	k3 := CacheKey("source", []string{"-b"})
	if k1 != k2 {
		t.Error("expected identical inputs to produce identical cache keys")
	}
	if k1 == k3 {
		t.Error("expected different options to change the cache key")
	}
}

func TestOptionsIncludesMandatoryFlags(t *testing.T) {
	opts := Options(Request{}, false)
	found := map[string]bool{}
	for _, o := range opts {
		found[o] = true
	}
	if !found["-cl-std=CL2.0"] || !found["-cl-mad-enable"] {
		t.Errorf("missing mandatory compiler options: %v", opts)
	}
}
