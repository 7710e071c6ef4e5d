package sbf

import "encoding/binary"

// setCell writes label at index. Two-byte cells are stored big-endian
// regardless of host byte order, so dumps and in-memory buffers read the
// same everywhere.
func (f *Filter) setCell(index uint32, label int) {
	if f.cellSize == 1 {
		f.filter[index] = byte(label)
		return
	}

	binary.BigEndian.PutUint16(f.filter[2*int(index):], uint16(label))
}

// getCell returns the label stored at index, 0 for an empty cell.
func (f *Filter) getCell(index uint32) int {
	if f.cellSize == 1 {
		return int(f.filter[index])
	}

	return int(binary.BigEndian.Uint16(f.filter[2*int(index):]))
}
