package sbf

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/spaolacci/murmur3"
	"golang.org/x/crypto/md4"
)

// Hash family identifiers. 1, 4 and 5 match the numbering of the C library
// this filter format is interoperable with; 6 and 7 are faster
// non-cryptographic additions.
const (
	HashSHA1    = 1
	HashMD4     = 4
	HashMD5     = 5
	HashMurmur3 = 6
	HashXXH64   = 7
)

// hashFamily is a pluggable fixed-length digest primitive. The digest must
// be at least four bytes long, since cell indexing consumes the first four.
type hashFamily struct {
	id        int
	name      string
	digestLen int
	sum       func(data []byte) []byte
}

var hashFamilies = map[int]hashFamily{
	HashSHA1: {HashSHA1, "sha1", sha1.Size, func(data []byte) []byte {
		d := sha1.Sum(data)
		return d[:]
	}},
	HashMD4: {HashMD4, "md4", md4.Size, func(data []byte) []byte {
		h := md4.New()
		h.Write(data)
		return h.Sum(nil)
	}},
	HashMD5: {HashMD5, "md5", md5.Size, func(data []byte) []byte {
		d := md5.Sum(data)
		return d[:]
	}},
	HashMurmur3: {HashMurmur3, "murmur3", 16, func(data []byte) []byte {
		h1, h2 := murmur3.Sum128(data)
		d := make([]byte, 16)
		binary.BigEndian.PutUint64(d, h1)
		binary.BigEndian.PutUint64(d[8:], h2)
		return d
	}},
	HashXXH64: {HashXXH64, "xxh64", 8, func(data []byte) []byte {
		d := make([]byte, 8)
		binary.BigEndian.PutUint64(d, xxhash.Sum64(data))
		return d
	}},
}

func familyByID(id int) (hashFamily, error) {
	fam, ok := hashFamilies[id]
	if !ok {
		return hashFamily{}, errors.Wrapf(ErrUnknownHashFamily, "id %d", id)
	}
	return fam, nil
}

// digestIndex maps element through hash run k to a cell index. The element
// is XORed with a prefix of the run's salt, hashed, and the first four
// digest bytes are assembled big-endian; the top bitMapping bits of that
// word select the cell. buf is caller-provided scratch of len(element).
func (f *Filter) digestIndex(k int, element, buf []byte) uint32 {
	salt := f.salts[k]
	for j := range element {
		buf[j] = element[j] ^ salt[j]
	}

	digest := f.family.sum(buf)

	return binary.BigEndian.Uint32(digest[:4]) >> uint(32-f.bitMapping)
}
