package dicom

import (
	"errors"
	"fmt"

	"github.com/mrsinham/dicomkit/internal/dicom/tag"
)

var (
	// ErrNotScalar is returned when a sequence or fragment element is
	// decoded as a plain value.
	ErrNotScalar = errors.New("element holds items, not a value")
	// ErrIncompatibleVR is returned when a value cannot be encoded in or
	// decoded from the element VR.
	ErrIncompatibleVR = errors.New("value incompatible with VR")
	// ErrUnsupportedRetype is returned when re-typing an element whose VR
	// is already known.
	ErrUnsupportedRetype = errors.New("only UN elements can be re-typed")
	// ErrBadPath is returned for tag paths of the wrong length.
	ErrBadPath = errors.New("malformed tag path")
	// ErrGroupLength is returned when a group length tag is put.
	ErrGroupLength = errors.New("group length elements are not stored")
	// ErrHasParent is returned when adding an item that already belongs to
	// a sequence.
	ErrHasParent = errors.New("item already belongs to a sequence")
	// ErrNotSequence is returned by item operations on non SQ elements.
	ErrNotSequence = errors.New("element is not a sequence")
	// ErrNotFragments is returned by fragment operations on other elements.
	ErrNotFragments = errors.New("element does not hold fragments")
	// ErrPrivateBlockUnavailable is returned by CopyTo when the destination
	// has no free private creator slot.
	ErrPrivateBlockUnavailable = errors.New("private block not available")
	// ErrNoPreamble is returned when a stream does not start with a Part 10
	// preamble and DICM prefix.
	ErrNoPreamble = errors.New("missing DICM prefix")
	// ErrUnsupportedTransferSyntax is returned for syntaxes the codec
	// cannot read or write.
	ErrUnsupportedTransferSyntax = errors.New("unsupported transfer syntax")
)

// DecodeError reports a failure to parse the value of an element.
type DecodeError struct {
	Tag    tag.Tag
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("decode %s at offset %d: %v", e.Tag, e.Offset, e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
