package dicomdir

import "errors"

var (
	// ErrNotDICOMDIR is returned when a file is not a Part 10 media
	// storage directory in explicit VR little endian.
	ErrNotDICOMDIR = errors.New("not a DICOMDIR")
	// ErrBadOffset is returned when a record offset points outside the
	// directory record sequence or at something that is not an item.
	ErrBadOffset = errors.New("record offset out of bounds")
	// ErrNotWriting is returned by updates on a closed Writer.
	ErrNotWriting = errors.New("directory not open for writing")
	// ErrNoSOPInstance is returned when an instance record cannot name the
	// SOP class and instance it references.
	ErrNoSOPInstance = errors.New("missing SOP class or instance UID")
)
