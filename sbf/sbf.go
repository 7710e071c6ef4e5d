// Package sbf implements spatial bloom filters: probabilistic set-membership
// structures that classify an element into one of several nested areas
// instead of answering a plain yes/no.
//
// Areas are identified by integer labels. Lower labels denote narrower, more
// specific regions; when two elements map to the same cell, the broader
// (higher) label wins the cell. Checking an element returns the smallest
// nonzero label observed across all hash runs, which is the tightest
// classification consistent with every hash position.
//
// A filter is sized once at construction and never grows. Insert and the
// statistics methods are not safe for concurrent use; Check only reads the
// cell buffer and may be called concurrently with other Check calls.
package sbf

import (
	"github.com/pkg/errors"
)

const (
	// MaxInputSize is the maximum element length in bytes. Hash salts are
	// this long, and an element is XORed with a salt prefix of its own
	// length before hashing.
	MaxInputSize = 128

	// MaxBitMapping bounds the filter to 2^32 cells.
	MaxBitMapping = 32

	// MaxAreaNumber keeps area labels within two bytes per cell.
	MaxAreaNumber = 65535

	// MaxHashNumber bounds the number of digests computed per operation.
	MaxHashNumber = 1024
)

// Filter is a spatial bloom filter. The zero value is not usable; construct
// one with New.
type Filter struct {
	bitMapping int
	cells      int
	cellSize   int
	size       int

	family     hashFamily
	hashNumber int

	areaNumber int

	filter []byte
	salts  [][]byte

	members    int
	collisions int
	lastArea   int

	areaMembers        []int
	areaCells          []int
	areaSelfCollisions []int
}

// New constructs a filter with 2^bitMapping cells, using the digest
// primitive selected by family and hashNumber salted hash runs per
// operation, classifying elements into areas 1..areaNumber.
//
// If saltPath names an existing file the salts are loaded from it, one
// base64 line per hash run; otherwise fresh random salts are generated and
// written there.
func New(bitMapping, family, hashNumber, areaNumber int, saltPath string) (*Filter, error) {
	if bitMapping < 1 || bitMapping > MaxBitMapping {
		return nil, errors.Wrapf(ErrInvalidArgument, "bit mapping %d not in [1,%d]", bitMapping, MaxBitMapping)
	}
	if areaNumber < 1 || areaNumber > MaxAreaNumber {
		return nil, errors.Wrapf(ErrInvalidArgument, "area number %d not in [1,%d]", areaNumber, MaxAreaNumber)
	}
	if hashNumber < 1 || hashNumber > MaxHashNumber {
		return nil, errors.Wrapf(ErrInvalidArgument, "hash number %d not in [1,%d]", hashNumber, MaxHashNumber)
	}
	if saltPath == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "empty salt path")
	}

	fam, err := familyByID(family)
	if err != nil {
		return nil, err
	}

	f := &Filter{
		bitMapping: bitMapping,
		cells:      1 << uint(bitMapping),
		cellSize:   1,
		family:     fam,
		hashNumber: hashNumber,
		areaNumber: areaNumber,

		areaMembers:        make([]int, areaNumber+1),
		areaCells:          make([]int, areaNumber+1),
		areaSelfCollisions: make([]int, areaNumber+1),
	}

	// One byte per cell is enough while labels fit in it.
	if areaNumber > 255 {
		f.cellSize = 2
	}
	f.size = f.cells * f.cellSize
	f.filter = make([]byte, f.size)

	f.salts, err = loadOrCreateSalts(saltPath, hashNumber)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Insert maps element into the given area, running every configured hash
// and resolving cell collisions in favor of the broader label.
//
// Elements must be inserted in non-decreasing order of area label; the
// self-collision accounting is only meaningful under that ordering, so an
// out-of-order insert is rejected with ErrOutOfOrder and mutates nothing.
func (f *Filter) Insert(element []byte, area int) error {
	if len(element) > MaxInputSize {
		return errors.Wrapf(ErrElementTooLong, "%d bytes, max %d", len(element), MaxInputSize)
	}
	if area < 1 || area > f.areaNumber {
		return errors.Wrapf(ErrAreaOutOfRange, "area %d not in [1,%d]", area, f.areaNumber)
	}
	if area < f.lastArea {
		return errors.Wrapf(ErrOutOfOrder, "area %d after area %d", area, f.lastArea)
	}

	buf := make([]byte, len(element))
	for k := 0; k < f.hashNumber; k++ {
		f.store(f.digestIndex(k, element, buf), area)
	}

	f.members++
	f.areaMembers[area]++
	f.lastArea = area

	return nil
}

// store resolves the conflict between the label currently held at index and
// the label being inserted. The broadest label seen wins the cell.
func (f *Filter) store(index uint32, area int) {
	current := f.getCell(index)

	switch {
	case current == 0:
		f.setCell(index, area)
		f.areaCells[area]++
	case current < area:
		f.setCell(index, area)
		f.collisions++
		f.areaCells[area]++
		f.areaCells[current]--
	case current == area:
		f.collisions++
		f.areaSelfCollisions[area]++
	default:
		// current > area is unreachable while inserts stay ordered.
		f.collisions++
	}
}

// Check returns the label of the most specific area element may belong to,
// or 0 if the element does not belong to any area. An empty cell at any
// hash position is conclusive absence.
func (f *Filter) Check(element []byte) (int, error) {
	if len(element) > MaxInputSize {
		return 0, errors.Wrapf(ErrElementTooLong, "%d bytes, max %d", len(element), MaxInputSize)
	}

	area := 0
	buf := make([]byte, len(element))
	for k := 0; k < f.hashNumber; k++ {
		current := f.getCell(f.digestIndex(k, element, buf))
		if current == 0 {
			return 0, nil
		}
		if area == 0 || current < area {
			area = current
		}
	}

	return area, nil
}

// BitMapping returns the number of digest bits used for cell indexing.
func (f *Filter) BitMapping() int { return f.bitMapping }

// Cells returns the number of cells in the filter.
func (f *Filter) Cells() int { return f.cells }

// CellSize returns the number of bytes backing each cell.
func (f *Filter) CellSize() int { return f.cellSize }

// ByteSize returns the total size of the cell buffer in bytes.
func (f *Filter) ByteSize() int { return f.size }

// HashFamily returns the identifier of the configured digest primitive.
func (f *Filter) HashFamily() int { return f.family.id }

// HashNumber returns the number of hash runs per operation.
func (f *Filter) HashNumber() int { return f.hashNumber }

// AreaNumber returns the number of areas the filter was built over.
func (f *Filter) AreaNumber() int { return f.areaNumber }

// Members returns the total number of inserted elements.
func (f *Filter) Members() int { return f.members }

// Collisions returns the total number of hash collisions seen on insert.
func (f *Filter) Collisions() int { return f.collisions }

// AreaMembers returns the number of elements inserted with the given label.
func (f *Filter) AreaMembers(area int) int {
	if area < 1 || area > f.areaNumber {
		return 0
	}
	return f.areaMembers[area]
}

// AreaCells returns the number of cells currently holding the given label.
func (f *Filter) AreaCells(area int) int {
	if area < 1 || area > f.areaNumber {
		return 0
	}
	return f.areaCells[area]
}

// AreaSelfCollisions returns the number of inserts that collided with a
// cell already holding the same label.
func (f *Filter) AreaSelfCollisions(area int) int {
	if area < 1 || area > f.areaNumber {
		return 0
	}
	return f.areaSelfCollisions[area]
}
