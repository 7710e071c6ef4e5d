// Package dataset loads the delimited datasets used to build and verify
// spatial bloom filters.
//
// A construction dataset has one `area,element` pair per line; the element
// is everything after the first comma and may itself contain commas. A
// verification dataset is one raw element per line.
package dataset

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Entry is one labelled element of a construction dataset.
type Entry struct {
	Area    int
	Element []byte
}

// Set is a parsed construction dataset.
type Set struct {
	Entries []Entry
	MaxArea int
}

// Load parses a construction dataset. Blank lines are skipped; a line
// without a delimiter or with a non-positive area label is an error.
func Load(r io.Reader) (*Set, error) {
	scanner := bufio.NewScanner(r)

	s := &Set{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}

		sep := strings.Index(line, ",")
		if sep < 0 {
			return nil, errors.Errorf("line %d: no delimiter", lineNo)
		}

		area, err := strconv.Atoi(strings.TrimSpace(line[:sep]))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: parsing area label", lineNo)
		}
		if area < 1 {
			return nil, errors.Errorf("line %d: area label %d is not positive", lineNo, area)
		}

		s.Entries = append(s.Entries, Entry{
			Area:    area,
			Element: []byte(line[sep+1:]),
		})
		if area > s.MaxArea {
			s.MaxArea = area
		}
	}

	err := scanner.Err()
	if err != nil {
		return nil, errors.Wrap(err, "reading dataset")
	}

	return s, nil
}

// SortByArea orders the entries by ascending area label, keeping the
// relative order of elements within an area. Filters reject out-of-order
// inserts, so datasets are sorted before construction.
func (s *Set) SortByArea() {
	sort.SliceStable(s.Entries, func(i, j int) bool {
		return s.Entries[i].Area < s.Entries[j].Area
	})
}

// LoadElements parses a verification dataset: one element per line, blank
// lines skipped.
func LoadElements(r io.Reader) ([][]byte, error) {
	scanner := bufio.NewScanner(r)

	var elements [][]byte
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		elements = append(elements, []byte(line))
	}

	err := scanner.Err()
	if err != nil {
		return nil, errors.Wrap(err, "reading dataset")
	}

	return elements, nil
}
