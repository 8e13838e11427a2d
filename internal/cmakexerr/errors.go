// Package cmakexerr defines the error sum used across cmakex's
// components (spec §7): every fallible boundary returns one of these
// kinds, wrapping the underlying cause. A single-line, actionable
// summary can always be recovered from a value of this type, naming
// the package, configuration and phase where known.
package cmakexerr

import "fmt"

// Kind classifies an error per spec.md §7.
type Kind int

const (
	// Request covers malformed requests: forbidden flags, conflicting
	// singleton flags, incompatible re-addition of a package, absolute
	// SOURCE_DIR, duplicate package names.
	Request Kind = iota
	// Planner covers circular dependencies, strict-commit mismatches,
	// obstructed clone directories, and script evaluation failures.
	Planner
	// ExternalTool covers non-zero exit from the revision-control client
	// or the native build tool.
	ExternalTool
	// Filesystem covers creation or write failures in locations the core
	// owns.
	Filesystem
	// Corruption covers an install-database record that fails to parse.
	Corruption
)

func (k Kind) String() string {
	switch k {
	case Request:
		return "request error"
	case Planner:
		return "planner error"
	case ExternalTool:
		return "external-tool error"
	case Filesystem:
		return "filesystem error"
	case Corruption:
		return "corruption error"
	default:
		return "error"
	}
}

// Error is the single error type cmakex's components return. Fields
// that don't apply to a given error are left zero.
type Error struct {
	Kind    Kind
	Package string // package name, if applicable
	Config  string // configuration name (canonical external form), if applicable
	Phase   string // "configure" | "build" | "install" | "clone" | "evaluate", if applicable
	Message string // concrete, actionable detail
	Cause   error
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Package != "" {
		s += fmt.Sprintf(" [%s", e.Package)
		if e.Config != "" {
			s += fmt.Sprintf("/%s", e.Config)
		}
		if e.Phase != "" {
			s += fmt.Sprintf(", %s", e.Phase)
		}
		s += "]"
	} else if e.Phase != "" {
		s += fmt.Sprintf(" [%s]", e.Phase)
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind.
func New(kind Kind, pkg, config, phase, message string, cause error) *Error {
	return &Error{Kind: kind, Package: pkg, Config: config, Phase: phase, Message: message, Cause: cause}
}

// Requestf builds a Request-kind error with a formatted message.
func Requestf(pkg, format string, args ...any) *Error {
	return New(Request, pkg, "", "", fmt.Sprintf(format, args...), nil)
}

// Plannerf builds a Planner-kind error with a formatted message.
func Plannerf(pkg, format string, args ...any) *Error {
	return New(Planner, pkg, "", "", fmt.Sprintf(format, args...), nil)
}

// ExternalToolf builds an ExternalTool-kind error wrapping cause.
func ExternalToolf(pkg, config, phase string, cause error, format string, args ...any) *Error {
	return New(ExternalTool, pkg, config, phase, fmt.Sprintf(format, args...), cause)
}

// Filesystemf builds a Filesystem-kind error wrapping cause.
func Filesystemf(cause error, format string, args ...any) *Error {
	return New(Filesystem, "", "", "", fmt.Sprintf(format, args...), cause)
}

// Corruptionf builds a Corruption-kind error wrapping cause.
func Corruptionf(pkg string, cause error, format string, args ...any) *Error {
	return New(Corruption, pkg, "", "", fmt.Sprintf(format, args...), cause)
}

// Is reports whether err (or something it wraps) is a *Error of the
// given kind, enabling errors.Is-style classification by callers.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ee, ok := err.(*Error); ok {
			e = ee
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return e != nil && e.Kind == kind
}
