// Sbfilter builds a spatial bloom filter from a labelled dataset and
// measures its recognition quality.
//
// The construction dataset has one `area,element` pair per line. The filter
// is sized automatically from the dataset and a target false positive
// probability, every element is mapped, and the filter is then self-checked
// against the dataset. With -verify, a dataset of non-members (one element
// per line) is checked to measure the observed false positive rate.
//
// Diagnostic messages are written to stderr.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"golang.org/x/sync/errgroup"

	"sbfilter/dataset"
	"sbfilter/registry"
	"sbfilter/sbf"
)

// autoSize derives the filter geometry from the dataset size and the target
// false positive probability, using the standard bloom filter sizing bound.
func autoSize(n int, maxFpp float64) (bitMapping, hashNumber int) {
	cells := int(math.Ceil(-float64(n) * math.Log(maxFpp) / (math.Ln2 * math.Ln2)))

	bitMapping = int(math.Ceil(math.Log2(float64(cells))))
	hashNumber = int(math.Ceil(float64(cells) / float64(n) * math.Ln2))

	return bitMapping, hashNumber
}

// loadSet reads and sorts the construction dataset.
func loadSet(path string) (*dataset.Set, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer fh.Close()

	set, err := dataset.Load(fh)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}

	set.SortByArea()

	return set, nil
}

func loadElements(path string) ([][]byte, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer fh.Close()

	elements, err := dataset.LoadElements(fh)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}

	return elements, nil
}

func writeSnapshot(path string, write func(io.Writer) error) error {
	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer fh.Close()

	err = write(fh)
	if err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	return errors.Wrapf(fh.Close(), "closing %s", path)
}

// selfCheck re-checks every mapped element and counts how many come back
// with their own area label.
func selfCheck(f *sbf.Filter, set *dataset.Set) (recognised, exchanged int, err error) {
	for _, e := range set.Entries {
		area, err := f.Check(e.Element)
		if err != nil {
			return 0, 0, errors.Wrap(err, "checking element")
		}

		if area == e.Area {
			recognised++
		} else {
			exchanged++
		}
	}

	return recognised, exchanged, nil
}

// verify checks a dataset of non-members and counts false positives. Check
// only reads the cell buffer, so the elements are fanned out over all CPUs.
func verify(f *sbf.Filter, elements [][]byte) (falsePositives int, err error) {
	workers := runtime.NumCPU()
	counts := make([]int, workers)
	chunk := (len(elements) + workers - 1) / workers

	var eg errgroup.Group

	for w := 0; w < workers; w++ {
		lo := w * chunk
		if lo >= len(elements) {
			break
		}
		hi := lo + chunk
		if hi > len(elements) {
			hi = len(elements)
		}

		w := w
		eg.Go(func() error {
			for _, e := range elements[lo:hi] {
				area, err := f.Check(e)
				if err != nil {
					return errors.Wrap(err, "checking element")
				}
				if area != 0 {
					counts[w]++
				}
			}
			return nil
		})
	}

	err = eg.Wait()
	if err != nil {
		return 0, err
	}

	for _, c := range counts {
		falsePositives += c
	}

	return falsePositives, nil
}

func main() {
	datasetPath := flag.String("dataset", "", "path to the construction dataset (area,element per line)")
	verifyPath := flag.String("verify", "", "path to a dataset of non-members, one element per line")
	hashFamily := flag.Int("hashFamily", sbf.HashMD4, "digest primitive: 1 (SHA1), 4 (MD4), 5 (MD5), 6 (Murmur3), 7 (XXH64)")
	maxFpp := flag.Float64("maxFpp", 0.001, "target false positive probability used to size the filter")
	saltPath := flag.String("saltPath", "", "path to the hash salt file, generated if missing (default <dataset>.salt)")
	statsOut := flag.String("statsOut", "", "write the statistics snapshot to this path")
	cellsOut := flag.String("cellsOut", "", "write the cell dump to this path")
	registryPath := flag.String("registry", "", "record the run in the registry at this path")
	dump := flag.Bool("dump", false, "print the filter report to stdout")
	dumpCells := flag.Bool("dumpCells", false, "include cell contents in the report")
	verbose := flag.Bool("verbose", false, "be more verbose")
	cpuProfile := flag.Bool("cpuProfile", false, "write a CPU profile to /tmp")
	profilingAddr := flag.String("profilingAddr", "", "listening address for the profiling server")

	flag.Parse()

	if *datasetPath == "" {
		fmt.Fprintf(flag.CommandLine.Output(), "A construction dataset is required\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *profilingAddr != "" {
		go func() {
			log.Println("starting profiling server on", *profilingAddr)
			err := http.ListenAndServe(*profilingAddr, nil)
			if err != nil {
				log.Printf("can't start profiling server on %s: %s", *profilingAddr, err)
			}
		}()
	} else if *cpuProfile {
		defer profile.Start(profile.ProfilePath("/tmp")).Stop()
	}

	if *saltPath == "" {
		*saltPath = *datasetPath + ".salt"
	}

	set, err := loadSet(*datasetPath)
	if err != nil {
		log.Fatalf("can't load dataset: %s", err)
	}
	if len(set.Entries) == 0 {
		log.Fatalf("dataset %s is empty", *datasetPath)
	}

	bitMapping, hashNumber := autoSize(len(set.Entries), *maxFpp)
	if *verbose {
		log.Printf("sizing for %d elements, %d areas, target fpp %g: %d cells, %d hash runs",
			len(set.Entries), set.MaxArea, *maxFpp, 1<<uint(bitMapping), hashNumber)
	}

	started := time.Now()

	f, err := sbf.New(bitMapping, *hashFamily, hashNumber, set.MaxArea, *saltPath)
	if err != nil {
		log.Fatalf("can't construct filter: %s", err)
	}

	for _, e := range set.Entries {
		err = f.Insert(e.Element, e.Area)
		if err != nil {
			log.Fatalf("can't insert element into area %d: %s", e.Area, err)
		}
	}

	if *verbose {
		log.Printf("mapped %d elements (%d collisions) in %s", f.Members(), f.Collisions(), time.Since(started))
	}

	if *statsOut != "" {
		err = writeSnapshot(*statsOut, f.WriteStats)
		if err != nil {
			log.Fatalf("can't write statistics snapshot: %s", err)
		}
	}

	if *cellsOut != "" {
		err = writeSnapshot(*cellsOut, f.WriteCells)
		if err != nil {
			log.Fatalf("can't write cell dump: %s", err)
		}
	}

	recognised, exchanged, err := selfCheck(f, set)
	if err != nil {
		log.Fatalf("can't self-check filter: %s", err)
	}

	exchangeRate := float64(exchanged) / float64(len(set.Entries))

	fmt.Println("Self-check:")
	fmt.Println("Well recognised:", recognised)
	fmt.Println("Elements assigned to a wrong set:", exchanged)
	fmt.Printf("Exchange rate: %.5f\n", exchangeRate)

	falsePositiveRate := 0.0

	if *verifyPath != "" {
		elements, err := loadElements(*verifyPath)
		if err != nil {
			log.Fatalf("can't load verification dataset: %s", err)
		}

		falsePositives, err := verify(f, elements)
		if err != nil {
			log.Fatalf("can't verify filter: %s", err)
		}

		falsePositiveRate = float64(falsePositives) / float64(len(elements))

		fmt.Println("\nVerification (non-elements):")
		fmt.Println("Well recognised:", len(elements)-falsePositives)
		fmt.Println("False positives:", falsePositives)
		fmt.Printf("False positive rate: %.5f\n", falsePositiveRate)
	}

	if *registryPath != "" {
		reg, err := registry.Open(*registryPath)
		if err != nil {
			log.Fatalf("can't open registry: %s", err)
		}

		s := f.Stats()
		err = reg.Record(registry.Run{
			Dataset:    *datasetPath,
			StartedAt:  started,
			BitMapping: f.BitMapping(),
			HashFamily: f.HashFamily(),
			HashNumber: f.HashNumber(),
			AreaNumber: f.AreaNumber(),
			Members:    f.Members(),
			Collisions: f.Collisions(),
			Sparsity:   s.Sparsity,
			Fpp:        s.Fpp,
			APrioriFpp: s.APrioriFpp,
			Safeness:   s.Safeness,

			ExchangeRate:      exchangeRate,
			FalsePositiveRate: falsePositiveRate,
		})
		if err != nil {
			log.Fatalf("can't record run: %s", err)
		}

		err = reg.Close()
		if err != nil {
			log.Fatalf("can't close registry: %s", err)
		}

		if *verbose {
			log.Println("run recorded in", *registryPath)
		}
	}

	if *dump {
		err = f.Dump(os.Stdout, *dumpCells)
		if err != nil {
			log.Fatalf("can't dump filter: %s", err)
		}
	}
}
