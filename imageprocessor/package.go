// Package imageprocessor decodes plant images and computes their perceptual hashes.
package imageprocessor

import (
	"errors"

	"github.com/corona10/goimagehash"
)

// ErrDecode is returned when bytes cannot be decoded as a supported image
var ErrDecode = errors.New("cannot decode image")

// Hasher is the interface that all perceptual hashers must implement
type Hasher interface {
	// Hash decodes data and returns its 64-bit perceptual hash
	Hash(data []byte) (*goimagehash.ImageHash, error)
}
