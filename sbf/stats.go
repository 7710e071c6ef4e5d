package sbf

import "math"

// AreaStats holds the derived statistics for one area. Emersion and Isep
// are -1 when the area has no members and the ratio is undefined.
type AreaStats struct {
	Area             int
	Members          int
	ExpectedCells    int
	SelfCollisions   int
	Cells            int
	ExpectedEmersion float64
	Emersion         float64
	APrioriFpp       float64
	Fpp              float64
	APrioriIsep      float64
	ExpectedIse      float64
	Isep             float64
	APrioriSafep     float64
}

// Stats is a full recomputation of the filter's derived statistics. Every
// value is a pure function of the counters and configuration; none of them
// update incrementally, so a Stats value goes stale on the next Insert.
type Stats struct {
	Sparsity   float64
	Fpp        float64
	APrioriFpp float64
	Safeness   float64
	Areas      []AreaStats // Areas[i] describes area i+1
}

// Sparsity returns the fraction of cells still empty, in [0,1].
func (f *Filter) Sparsity() float64 {
	return 1 - float64(f.occupied())/float64(f.cells)
}

// Fpp returns the a posteriori false positive probability over the whole
// filter, derived from observed cell occupancy.
func (f *Filter) Fpp() float64 {
	p := float64(f.occupied()) / float64(f.cells)
	return math.Pow(p, float64(f.hashNumber))
}

// APrioriFpp returns the false positive probability predicted from the
// configuration and total member count alone, independent of observed
// collisions.
func (f *Filter) APrioriFpp() float64 {
	p := 1 - math.Pow(1-1/float64(f.cells), float64(f.hashNumber*f.members))
	return math.Pow(p, float64(f.hashNumber))
}

// AreaEmersion returns the fraction of the area's hash slots that remain
// uniquely attributable to it after self-collisions, or -1 if the area has
// no members and the ratio is undefined.
func (f *Filter) AreaEmersion(area int) float64 {
	if area < 1 || area > f.areaNumber {
		return -1
	}
	if f.areaMembers[area] == 0 || f.hashNumber == 0 {
		return -1
	}

	slots := float64(f.areaMembers[area]*f.hashNumber - f.areaSelfCollisions[area])
	return float64(f.areaCells[area]) / slots
}

// ExpectedAreaEmersion returns the theoretical emersion for the area,
// ignoring observed collisions.
func (f *Filter) ExpectedAreaEmersion(area int) float64 {
	if area < 1 || area > f.areaNumber {
		return -1
	}

	above := f.membersAbove(area)
	return math.Pow(1-1/float64(f.cells), float64(f.hashNumber*above))
}

// AreaFlotation reports whether the shortfall between the area's expected
// unique occupancy and its observed cells is smaller than one hash run's
// worth of slots, in which case no single run can have caused a cross-area
// mislabel for this area.
func (f *Filter) AreaFlotation(area int) bool {
	if area < 1 || area > f.areaNumber {
		return true
	}
	if f.areaMembers[area] == 0 || f.hashNumber == 0 {
		return true
	}

	return f.areaMembers[area]*f.hashNumber-f.areaSelfCollisions[area]-f.areaCells[area] < f.hashNumber
}

// AreaExpectedCells returns the expected number of cells holding exactly
// the given label, rounded to the nearest integer.
func (f *Filter) AreaExpectedCells(area int) int {
	if area < 1 || area > f.areaNumber {
		return 0
	}

	cells := float64(f.cells)
	q := 1 - 1/cells
	filled := 1 - math.Pow(q, float64(f.hashNumber*f.areaMembers[area]))
	kept := math.Pow(q, float64(f.hashNumber*f.membersAbove(area)))

	return int(math.Round(cells * filled * kept))
}

// AreaIsep returns the a posteriori inter-set error probability for the
// area, or -1 when its emersion is undefined.
func (f *Filter) AreaIsep(area int) float64 {
	e := f.AreaEmersion(area)
	if e < 0 {
		return -1
	}

	return math.Pow(1-e, float64(f.hashNumber))
}

// Stats recomputes every derived statistic from the current counters.
func (f *Filter) Stats() Stats {
	fpp := f.areaFpp()
	apFpp := f.aPrioriAreaFpp()
	apIsep, safep, safeness := f.aPrioriIsepSafep()

	s := Stats{
		Sparsity:   f.Sparsity(),
		Fpp:        f.Fpp(),
		APrioriFpp: f.APrioriFpp(),
		Safeness:   safeness,
		Areas:      make([]AreaStats, f.areaNumber),
	}

	for i := 1; i <= f.areaNumber; i++ {
		s.Areas[i-1] = AreaStats{
			Area:             i,
			Members:          f.areaMembers[i],
			ExpectedCells:    f.AreaExpectedCells(i),
			SelfCollisions:   f.areaSelfCollisions[i],
			Cells:            f.areaCells[i],
			ExpectedEmersion: f.ExpectedAreaEmersion(i),
			Emersion:         f.AreaEmersion(i),
			APrioriFpp:       apFpp[i],
			Fpp:              fpp[i],
			APrioriIsep:      apIsep[i],
			ExpectedIse:      apIsep[i] * float64(f.areaMembers[i]),
			Isep:             f.AreaIsep(i),
			APrioriSafep:     safep[i],
		}
	}

	return s
}

// areaFpp computes the a posteriori per-area false positive probabilities.
// Areas are processed from the broadest label down: the raw tail probability
// (cells occupied by labels >= i, over all cells, to the hashNumber-th
// power) has the already-attributed probability of every broader area
// subtracted from it, clamped at zero, so each value isolates the mass
// belonging exactly to its area.
func (f *Filter) areaFpp() []float64 {
	fpp := make([]float64, f.areaNumber+1)

	c := 0
	for i := f.areaNumber; i >= 1; i-- {
		c += f.areaCells[i]
		p := math.Pow(float64(c)/float64(f.cells), float64(f.hashNumber))
		for j := i + 1; j <= f.areaNumber; j++ {
			p -= fpp[j]
		}
		if p < 0 {
			p = 0
		}
		fpp[i] = p
	}

	return fpp
}

// aPrioriAreaFpp is the same subtractive decomposition as areaFpp, but
// derived from member counts instead of observed cell occupancy.
func (f *Filter) aPrioriAreaFpp() []float64 {
	fpp := make([]float64, f.areaNumber+1)
	q := 1 - 1/float64(f.cells)

	c := 0
	for i := f.areaNumber; i >= 1; i-- {
		c += f.areaMembers[i]
		p := math.Pow(1-math.Pow(q, float64(f.hashNumber*c)), float64(f.hashNumber))
		for j := i + 1; j <= f.areaNumber; j++ {
			p -= fpp[j]
		}
		if p < 0 {
			p = 0
		}
		fpp[i] = p
	}

	return fpp
}

// aPrioriIsepSafep derives, from configuration and member counts alone, the
// per-area probability that a run over-fills from a broader area (isep),
// the per-area probability that none of the area's members suffers such an
// over-fill (safep), and the product of the latter over all areas
// (safeness): the probability that no cross-area misclassification ever
// occurs.
func (f *Filter) aPrioriIsepSafep() (isep, safep []float64, safeness float64) {
	isep = make([]float64, f.areaNumber+1)
	safep = make([]float64, f.areaNumber+1)
	safeness = 1

	q := 1 - 1/float64(f.cells)

	above := 0
	for i := f.areaNumber; i >= 1; i-- {
		p1 := math.Pow(1-math.Pow(q, float64(f.hashNumber*above)), float64(f.hashNumber))
		p2 := math.Pow(1-p1, float64(f.areaMembers[i]))

		isep[i] = p1
		safep[i] = p2
		safeness *= p2

		above += f.areaMembers[i]
	}

	return isep, safep, safeness
}

func (f *Filter) occupied() int {
	sum := 0
	for a := 1; a <= f.areaNumber; a++ {
		sum += f.areaCells[a]
	}
	return sum
}

func (f *Filter) membersAbove(area int) int {
	sum := 0
	for j := area + 1; j <= f.areaNumber; j++ {
		sum += f.areaMembers[j]
	}
	return sum
}
