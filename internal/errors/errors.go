// Package errors implements the compiler's diagnostic type: a located,
// typed error produced by the verifier and by passes, and the error
// reporter callback used to surface it to a host.
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Kind enumerates the stable diagnostic kinds from the verifier and
// pipeline. Kept as a closed set so tests can match on it directly.
type Kind string

const (
	// Structural
	IRExpectedMemref            Kind = "ir_expected_memref"
	IRExpectedCoopMatrix        Kind = "ir_expected_coopmatrix"
	IRExpectedNumber            Kind = "ir_expected_number"
	IRExpectedBoolean           Kind = "ir_expected_boolean"
	IRExpectedInt               Kind = "ir_expected_int"
	IRExpectedI32               Kind = "ir_expected_i32"
	IRExpectedIndex             Kind = "ir_expected_index"
	IRExpectedMemrefOrder0      Kind = "ir_expected_memref_order_0"
	IRExpectedMemrefOrder1      Kind = "ir_expected_memref_order_1"
	IRExpectedMemrefOrder2      Kind = "ir_expected_memref_order_2"
	IRExpectedMemrefOrder0Or1   Kind = "ir_expected_memref_order_0_or_1"
	IRExpectedMemrefOrder1Or2   Kind = "ir_expected_memref_order_1_or_2"
	IRExpectedMemrefOrder012    Kind = "ir_expected_memref_order_0_1_or_2"
	IRExpectedMemrefOrGroup     Kind = "ir_expected_memref_or_group"
	IRExpectedLocalAddressSpace Kind = "ir_expected_local_address_space"

	// Shape/type
	IRNumberMismatch           Kind = "ir_number_mismatch"
	IRAddressSpaceMismatch     Kind = "ir_address_space_mismatch"
	IRInvalidShape             Kind = "ir_invalid_shape"
	IRInvalidStride            Kind = "ir_invalid_stride"
	IRIncompatibleShapes       Kind = "ir_incompatible_shapes"
	IRInvalidMatrixUse         Kind = "ir_invalid_matrix_use"
	IROutOfBounds              Kind = "ir_out_of_bounds"
	IRInvalidNumberOfIndices   Kind = "ir_invalid_number_of_indices"
	IRInvalidSlice             Kind = "ir_invalid_slice"
	IRSubviewMismatch          Kind = "ir_subview_mismatch"
	IRExpandShapeMismatch      Kind = "ir_expand_shape_mismatch"
	IRExpandShapeOrderTooSmall Kind = "ir_expand_shape_order_too_small"
	IRInitReturnTypeMismatch   Kind = "ir_init_return_type_mismatch"
	IRFromToMismatch           Kind = "ir_from_to_mismatch"

	// Promotion/cast
	IRForbiddenPromotion Kind = "ir_forbidden_promotion"
	IRForbiddenCast      Kind = "ir_forbidden_cast"
	IRConstantMismatch   Kind = "ir_constant_mismatch"

	// Capability
	IRBooleanUnsupported             Kind = "ir_boolean_unsupported"
	IRFPUnsupported                  Kind = "ir_fp_unsupported"
	IRComplexUnsupported             Kind = "ir_complex_unsupported"
	IRIntUnsupported                 Kind = "ir_int_unsupported"
	IROperandTypeMustMatchReturnType Kind = "ir_operand_type_must_match_return_type"

	// Pipeline
	LexerError          Kind = "lexer_error"
	CompileBackendError Kind = "compile_backend_error"
)

// Position is a 1-based line/column pair.
type Position struct {
	Line   int
	Column int
}

// Location identifies a span of source text. Filename is empty when the
// error originates from builder-constructed IR with no backing text.
type Location struct {
	Filename string
	Begin    Position
	End      Position
}

// String renders "file:L.C-L.C", or "file:L.C" when begin==end.
func (l Location) String() string {
	if l.Filename == "" && l.Begin == (Position{}) && l.End == (Position{}) {
		return ""
	}
	if l.Begin == l.End {
		return fmt.Sprintf("%s:%d.%d", l.Filename, l.Begin.Line, l.Begin.Column)
	}
	return fmt.Sprintf("%s:%d.%d-%d.%d", l.Filename, l.Begin.Line, l.Begin.Column, l.End.Line, l.End.Column)
}

// ValueInfo is a named-value snapshot attached to a diagnostic so the
// renderer can print "operand 0: memref<f32,[1,2]>" style detail without
// the errors package importing the ir package.
type ValueInfo struct {
	Label string
	Type  string
}

// CompilationError is the typed exception thrown by setup_and_check and by
// passes. It carries enough context to render with or without a source
// buffer.
type CompilationError struct {
	Kind     Kind
	Message  string
	Location Location
	Values   []ValueInfo
	cause    error
}

func New(kind Kind, loc Location, message string, values ...ValueInfo) *CompilationError {
	return &CompilationError{Kind: kind, Message: message, Location: loc, Values: values}
}

// Wrap attaches a CompilationError to an underlying error (e.g. a backend
// compile failure) using github.com/pkg/errors so the cause chain survives
// fmt.Errorf("%+v", err)-style printing further up the stack.
func Wrap(kind Kind, loc Location, cause error, message string) *CompilationError {
	return &CompilationError{Kind: kind, Message: message, Location: loc, cause: pkgerrors.Wrap(cause, message)}
}

func (e *CompilationError) Error() string {
	var sb strings.Builder
	if loc := e.Location.String(); loc != "" {
		fmt.Fprintf(&sb, "%s: %s: %s", loc, e.Kind, e.Message)
	} else {
		fmt.Fprintf(&sb, "%s: %s", e.Kind, e.Message)
	}
	for _, v := range e.Values {
		fmt.Fprintf(&sb, "\n  %s: %s", v.Label, v.Type)
	}
	return sb.String()
}

func (e *CompilationError) Unwrap() error { return e.cause }

// Render prints the diagnostic with up to two lines of context on either
// side of the offending span and an underline spanning begin..end, when
// source is available; otherwise it falls back to the bare location.
func (e *CompilationError) Render(source string) string {
	if source == "" || e.Location.Filename == "" {
		return e.Error()
	}
	lines := strings.Split(source, "\n")
	b := e.Location.Begin
	if b.Line < 1 || b.Line > len(lines) {
		return e.Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s: %s\n", e.Location.String(), e.Kind, e.Message)

	lo := b.Line - 2
	if lo < 1 {
		lo = 1
	}
	hi := b.Line + 2
	if hi > len(lines) {
		hi = len(lines)
	}
	for ln := lo; ln <= hi; ln++ {
		fmt.Fprintf(&sb, "  %4d | %s\n", ln, lines[ln-1])
		if ln == b.Line {
			col := b.Column
			if col < 1 {
				col = 1
			}
			width := e.Location.End.Column - b.Column
			if e.Location.End.Line != b.Line || width < 1 {
				width = 1
			}
			sb.WriteString("       | ")
			sb.WriteString(strings.Repeat(" ", col-1))
			sb.WriteString(strings.Repeat("^", width))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Reporter is the error-reporter callback consumed by the verifier and
// passes. ctx is an opaque host-supplied value (e.g. a
// *bytes.Buffer collecting diagnostics, or a CLI's exit-code tracker).
type Reporter func(message string, loc *Location, ctx any)

// NopReporter discards every diagnostic; useful as a default in tests.
func NopReporter(string, *Location, any) {}
