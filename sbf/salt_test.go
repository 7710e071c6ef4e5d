package sbf

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSalts_CreateThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salt")

	f1, err := New(10, HashMD5, 3, 1, path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	// Second construction must load the persisted salts, not regenerate.
	f2, err := New(10, HashMD5, 3, 1, path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	for i := range f1.salts {
		if len(f1.salts[i]) != MaxInputSize {
			t.Errorf("salt %d is %d bytes, want %d", i, len(f1.salts[i]), MaxInputSize)
		}
		if !bytes.Equal(f1.salts[i], f2.salts[i]) {
			t.Errorf("salt %d differs between create and load", i)
		}
	}
}

func TestSalts_FileIsBase64PerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salt")

	f, err := New(10, HashMD5, 4, 1, path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	fh, err := os.Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	lines := 0
	for scanner.Scan() {
		decoded, err := base64.StdEncoding.DecodeString(scanner.Text())
		if err != nil {
			t.Fatalf("line %d does not decode: %s", lines+1, err)
		}
		if !bytes.Equal(decoded, f.salts[lines]) {
			t.Errorf("line %d does not round-trip the salt", lines+1)
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if lines != 4 {
		t.Errorf("unexpected line count: want 4, have %d", lines)
	}
}

func TestReadSalts_Corrupt(t *testing.T) {
	valid := base64.StdEncoding.EncodeToString(make([]byte, MaxInputSize))
	short := base64.StdEncoding.EncodeToString(make([]byte, MaxInputSize-1))

	testCases := []struct {
		name    string
		content string
		n       int
	}{
		{name: "too few lines", content: valid + "\n", n: 2},
		{name: "empty file", content: "", n: 1},
		{name: "not base64", content: "!!! not base64 !!!\n", n: 1},
		{name: "salt too short", content: short + "\n", n: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := readSalts(strings.NewReader(tc.content), tc.n)
			if !errors.Is(err, ErrCorruptSaltFile) {
				t.Errorf("unexpected error: want ErrCorruptSaltFile, have %v", err)
			}
		})
	}
}

func TestReadSalts_IgnoresTrailingLines(t *testing.T) {
	salt := make([]byte, MaxInputSize)
	_, err := rand.Read(salt)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	line := base64.StdEncoding.EncodeToString(salt)
	salts, err := readSalts(strings.NewReader(line+"\n"+line+"\n"), 1)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if len(salts) != 1 {
		t.Fatalf("unexpected salt count: want 1, have %d", len(salts))
	}
	if !bytes.Equal(salts[0], salt) {
		t.Error("salt does not round-trip through base64")
	}
}
