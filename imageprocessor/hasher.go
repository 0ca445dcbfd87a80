package imageprocessor

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/corona10/goimagehash"
)

// DefaultHasher is the registry name of the pure Go average hasher
const DefaultHasher = "average"

// ErrUnknownHasher is returned by NewHasher for names nothing registered
var ErrUnknownHasher = errors.New("unknown hasher")

// HasherFactory builds a Hasher
type HasherFactory func() Hasher

var (
	hasherMu  sync.RWMutex
	factories = map[string]HasherFactory{
		DefaultHasher: func() Hasher { return NewAverageHasher() },
	}
)

// RegisterHasher adds a hasher under name, replacing any previous registration
func RegisterHasher(name string, factory HasherFactory) {
	hasherMu.Lock()
	defer hasherMu.Unlock()
	factories[name] = factory
}

// NewHasher returns the hasher registered under name; "" selects the default
func NewHasher(name string) (Hasher, error) {
	if name == "" {
		name = DefaultHasher
	}

	hasherMu.RLock()
	factory, ok := factories[name]
	hasherMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownHasher, name, HasherNames())
	}
	return factory(), nil
}

// HasherNames lists the registered hasher names in sorted order
func HasherNames() []string {
	hasherMu.RLock()
	defer hasherMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AverageHasher computes an 8x8 average hash: the image is shrunk to 64 grayscale
// pixels and each bit is set when its pixel is brighter than the mean.
type AverageHasher struct{}

// NewAverageHasher creates the default hasher
func NewAverageHasher() *AverageHasher {
	return &AverageHasher{}
}

// Hash implements Hasher
func (h *AverageHasher) Hash(data []byte) (*goimagehash.ImageHash, error) {
	img, _, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}

	hash, err := goimagehash.AverageHash(FlattenAlpha(img))
	if err != nil {
		return nil, fmt.Errorf("cannot compute average hash: %w", err)
	}
	return hash, nil
}

// CalculateHammingDistance returns the number of differing bits between two hashes
func CalculateHammingDistance(a, b *goimagehash.ImageHash) (int, error) {
	if a == nil || b == nil {
		return 0, errors.New("cannot compare a nil hash")
	}
	return a.Distance(b)
}
