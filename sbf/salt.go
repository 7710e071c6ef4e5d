package sbf

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// loadOrCreateSalts fills the salt matrix from path if it names an existing
// file, otherwise generates n fresh salts and persists them there.
func loadOrCreateSalts(path string, n int) ([][]byte, error) {
	fh, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return createSalts(path, n)
		}
		return nil, errors.Wrapf(err, "opening salt file %s", path)
	}
	defer fh.Close()

	salts, err := readSalts(fh, n)
	if err != nil {
		return nil, errors.Wrapf(err, "loading salt file %s", path)
	}

	return salts, nil
}

// createSalts draws n salts of MaxInputSize bytes from the cryptographic
// random source and writes them to path.
func createSalts(path string, n int) ([][]byte, error) {
	salts := make([][]byte, n)
	for i := range salts {
		salt := make([]byte, MaxInputSize)
		_, err := rand.Read(salt)
		if err != nil {
			return nil, errors.Wrap(err, "reading random bytes for salt")
		}
		salts[i] = salt
	}

	err := writeSalts(path, salts)
	if err != nil {
		return nil, err
	}

	return salts, nil
}

// writeSalts persists one base64 line per salt, in run order. The file is
// written to a temp file first and renamed into place so a crash never
// leaves a partial salt file behind.
func writeSalts(path string, salts [][]byte) error {
	fh, err := os.CreateTemp(filepath.Dir(path), "*")
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %s", path)
	}
	defer fh.Close()

	w := bufio.NewWriter(fh)
	for _, salt := range salts {
		_, err = w.WriteString(base64.StdEncoding.EncodeToString(salt))
		if err == nil {
			err = w.WriteByte('\n')
		}
		if err != nil {
			return errors.Wrapf(err, "writing salt file %s", path)
		}
	}

	err = w.Flush()
	if err != nil {
		return errors.Wrapf(err, "writing salt file %s", path)
	}

	err = os.Rename(fh.Name(), path)
	if err != nil {
		return errors.Wrapf(err, "renaming temp file to %s", path)
	}

	return nil
}

// readSalts decodes exactly n base64 lines of MaxInputSize bytes each.
func readSalts(r io.Reader, n int) ([][]byte, error) {
	scanner := bufio.NewScanner(r)

	salts := make([][]byte, 0, n)
	for len(salts) < n && scanner.Scan() {
		salt, err := base64.StdEncoding.DecodeString(scanner.Text())
		if err != nil {
			return nil, errors.Wrapf(ErrCorruptSaltFile, "line %d: %s", len(salts)+1, err)
		}
		if len(salt) != MaxInputSize {
			return nil, errors.Wrapf(ErrCorruptSaltFile, "line %d: salt is %d bytes, want %d", len(salts)+1, len(salt), MaxInputSize)
		}
		salts = append(salts, salt)
	}

	err := scanner.Err()
	if err != nil {
		return nil, errors.Wrap(err, "reading salt lines")
	}

	if len(salts) < n {
		return nil, errors.Wrapf(ErrCorruptSaltFile, "%d salt lines, want %d", len(salts), n)
	}

	return salts, nil
}
