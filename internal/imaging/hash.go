package imaging

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

type Fingerprint struct {
	hash *goimagehash.ImageHash
}

func NewFingerprint(img image.Image) (Fingerprint, error) {
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("perception hash: %w", err)
	}
	return Fingerprint{hash: h}, nil
}

// Distance is the Hamming distance between two fingerprints, or -1 when either is unset.
func (f Fingerprint) Distance(other Fingerprint) int {
	if f.hash == nil || other.hash == nil {
		return -1
	}
	d, err := f.hash.Distance(other.hash)
	if err != nil {
		return -1
	}
	return d
}

func (f Fingerprint) String() string {
	if f.hash == nil {
		return ""
	}
	return f.hash.ToString()
}
