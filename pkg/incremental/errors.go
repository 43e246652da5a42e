package incremental

import "fmt"

// MalformedImage indicates a structural problem with the input Mach-O
// image: a bad header field, an overlapping table, a misaligned pointer,
// or a truncated ULEB/SLEB stream. It is fatal to the incremental path;
// the caller should fall back to a full link.
type MalformedImage struct {
	Kind   string
	Reason string
}

func (e *MalformedImage) Error() string {
	return fmt.Sprintf("malformed image (%s): %s", e.Kind, e.Reason)
}

// IoError wraps a failed stat/open/mmap/read/write on the image path.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// ArchMismatch means the image's cpu type does not match the requested
// target architecture.
type ArchMismatch struct {
	Want, Got string
}

func (e *ArchMismatch) Error() string {
	return fmt.Sprintf("architecture mismatch: want %s, got %s", e.Want, e.Got)
}

// UnsupportedImage means the image exists and is well-formed but is not
// a candidate for incremental linking (wrong file type, forbidden flags).
type UnsupportedImage struct {
	Reason string
}

func (e *UnsupportedImage) Error() string {
	return "unsupported image: " + e.Reason
}

// SidecarMissing is returned, not as an error condition but a sentinel,
// when the image carries no LC_INCREMENTAL command. Callers must fall
// back to a full link; this is not logged as a failure.
type SidecarMissing struct{}

func (e *SidecarMissing) Error() string { return "image carries no incremental sidecar" }

// IncrementalImpossible is a non-error decision: the sidecar is valid but
// the named section's reserved patch space cannot hold new content.
type IncrementalImpossible struct {
	Section string
}

func (e *IncrementalImpossible) Error() string {
	return fmt.Sprintf("incremental link impossible: %s patch space exhausted", e.Section)
}

// InterruptedMidWrite marks a SIGINT delivered inside the patch window.
// The output has already been unlinked by the signal handler by the time
// this is observed.
type InterruptedMidWrite struct{}

func (e *InterruptedMidWrite) Error() string { return "interrupted during patch write" }

// MalformedULEB and MalformedSLEB report a truncated or overflowing
// variable-length integer in a dyld-info opcode stream.
type MalformedULEB struct{ Reason string }

func (e *MalformedULEB) Error() string { return "malformed uleb128: " + e.Reason }

type MalformedSLEB struct{ Reason string }

func (e *MalformedSLEB) Error() string { return "malformed sleb128: " + e.Reason }
