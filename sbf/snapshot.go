package sbf

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const areaHeader = "area;members;expected cells;self-collisions;cells;expected emersion;emersion;a-priori fpp;fpp;a-priori isep;expected ise;isep;a-priori safep"

// WriteStats writes the semicolon-delimited statistics snapshot: a key;value
// preamble describing the configuration and global counters, followed by one
// row per area. Floats are formatted with five decimal places.
func (f *Filter) WriteStats(w io.Writer) error {
	bw := bufio.NewWriter(w)
	s := f.Stats()

	fmt.Fprintf(bw, "hash_family;%d\n", f.family.id)
	fmt.Fprintf(bw, "hash_number;%d\n", f.hashNumber)
	fmt.Fprintf(bw, "area_number;%d\n", f.areaNumber)
	fmt.Fprintf(bw, "bit_mapping;%d\n", f.bitMapping)
	fmt.Fprintf(bw, "cells_number;%d\n", f.cells)
	fmt.Fprintf(bw, "cell_size;%d\n", f.cellSize)
	fmt.Fprintf(bw, "byte_size;%d\n", f.size)
	fmt.Fprintf(bw, "members;%d\n", f.members)
	fmt.Fprintf(bw, "collisions;%d\n", f.collisions)
	fmt.Fprintf(bw, "sparsity;%.5f\n", s.Sparsity)
	fmt.Fprintf(bw, "a-priori fpp;%.5f\n", s.APrioriFpp)
	fmt.Fprintf(bw, "fpp;%.5f\n", s.Fpp)
	fmt.Fprintf(bw, "a-priori safeness probability;%.5f\n", s.Safeness)

	fmt.Fprintln(bw, areaHeader)
	for _, a := range s.Areas {
		fmt.Fprintf(bw, "%d;%d;%d;%d;%d;%.5f;%.5f;%.5f;%.5f;%.5f;%.5f;%.5f;%.5f\n",
			a.Area, a.Members, a.ExpectedCells, a.SelfCollisions, a.Cells,
			a.ExpectedEmersion, a.Emersion, a.APrioriFpp, a.Fpp,
			a.APrioriIsep, a.ExpectedIse, a.Isep, a.APrioriSafep)
	}

	return errors.Wrap(bw.Flush(), "writing statistics snapshot")
}

// WriteCells writes the raw cell dump: one decimal label per line, one line
// per cell, in index order.
func (f *Filter) WriteCells(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for i := 0; i < f.cells; i++ {
		fmt.Fprintln(bw, f.getCell(uint32(i)))
	}

	return errors.Wrap(bw.Flush(), "writing cell dump")
}

// Dump writes a human-readable report of the filter: configuration, global
// counters and statistics, per-area occupancy, emersion and flotation.
// With withCells set, the full cell contents are included, 32 cells per
// line.
func (f *Filter) Dump(w io.Writer, withCells bool) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Spatial bloom filter details:\n\n")
	fmt.Fprintf(bw, "Hash family: %s (%d)\n", f.family.name, f.family.id)
	fmt.Fprintf(bw, "Number of hash runs: %d\n\n", f.hashNumber)

	fmt.Fprintf(bw, "Number of cells: %d\n", f.cells)
	fmt.Fprintf(bw, "Size in bytes: %d\n", f.size)
	fmt.Fprintf(bw, "Filter sparsity: %.5f\n", f.Sparsity())
	fmt.Fprintf(bw, "Filter fpp: %.5f\n", f.Fpp())
	fmt.Fprintf(bw, "Number of mapped elements: %d\n", f.members)
	fmt.Fprintf(bw, "Number of hash collisions: %d\n", f.collisions)

	if withCells {
		fmt.Fprintf(bw, "\nFilter cells content:")
		for i := 0; i < f.cells; i++ {
			if i%32 == 0 {
				fmt.Fprintln(bw)
			}
			fmt.Fprintf(bw, "%d|", f.getCell(uint32(i)))
		}
		fmt.Fprintln(bw)
	}

	fmt.Fprintf(bw, "\nArea-related parameters:\n")
	for a := 1; a <= f.areaNumber; a++ {
		slots := f.areaMembers[a]*f.hashNumber - f.areaSelfCollisions[a]
		fmt.Fprintf(bw, "Area %d: %d members, %d cells out of %d potential (%d self-collisions)\n",
			a, f.areaMembers[a], f.areaCells[a], slots, f.areaSelfCollisions[a])
	}

	fpp := f.areaFpp()

	fmt.Fprintf(bw, "\nEmersion and fpp:\n")
	for a := 1; a <= f.areaNumber; a++ {
		flotation := "unsafe"
		if f.AreaFlotation(a) {
			flotation = "safe"
		}
		fmt.Fprintf(bw, "Area %d: emersion %.5f, flotation %s, fpp %.5f\n", a, f.AreaEmersion(a), flotation, fpp[a])
	}

	return errors.Wrap(bw.Flush(), "writing filter report")
}
