package sbf

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is returned by New for parameters outside their
	// documented bounds.
	ErrInvalidArgument = errors.New("sbf: invalid argument")

	// ErrUnknownHashFamily is returned by New for a hash family identifier
	// with no registered digest primitive.
	ErrUnknownHashFamily = errors.New("sbf: unknown hash family")

	// ErrAreaOutOfRange is returned by Insert for a label outside
	// [1, areaNumber]. The filter is not mutated.
	ErrAreaOutOfRange = errors.New("sbf: area label out of range")

	// ErrOutOfOrder is returned by Insert when the label is lower than one
	// already inserted. The filter is not mutated.
	ErrOutOfOrder = errors.New("sbf: insert violates ascending area order")

	// ErrElementTooLong is returned for elements over MaxInputSize bytes.
	ErrElementTooLong = errors.New("sbf: element too long")

	// ErrCorruptSaltFile is returned when a salt file has too few lines, a
	// line that is not valid base64, or a salt of the wrong length.
	ErrCorruptSaltFile = errors.New("sbf: corrupt salt file")
)
