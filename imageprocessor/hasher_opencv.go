//go:build gocv

package imageprocessor

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
	"gocv.io/x/gocv"
)

// OpenCVHasherName is the registry name of the OpenCV backed hasher
const OpenCVHasherName = "opencv"

func init() {
	RegisterHasher(OpenCVHasherName, func() Hasher { return NewOpenCVHasher() })
}

// OpenCVHasher computes the same 8x8 average hash as AverageHasher using OpenCV for
// decoding and resampling.
type OpenCVHasher struct{}

// NewOpenCVHasher creates a hasher backed by gocv
func NewOpenCVHasher() *OpenCVHasher {
	return &OpenCVHasher{}
}

// Hash implements Hasher
func (h *OpenCVHasher) Hash(data []byte) (*goimagehash.ImageHash, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	img, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("%w: opencv returned an empty image", ErrDecode)
	}

	// Resize to 8x8
	resized := gocv.NewMat()
	defer resized.Close()

	gocv.Resize(img, &resized, image.Point{X: 8, Y: 8}, 0, 0, gocv.InterpolationLinear)

	// Drop alpha and convert to grayscale
	gray := gocv.NewMat()
	defer gray.Close()

	switch resized.Channels() {
	case 1:
		resized.CopyTo(&gray)
	case 4:
		gocv.CvtColor(resized, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(resized, &gray, gocv.ColorBGRToGray)
	}

	// Calculate mean pixel value manually
	var sum uint64
	pixels := make([]uint8, 0, 64)
	for y := 0; y < gray.Rows(); y++ {
		for x := 0; x < gray.Cols(); x++ {
			pixel := gray.GetUCharAt(y, x)
			pixels = append(pixels, pixel)
			sum += uint64(pixel)
		}
	}
	mean := float64(sum) / float64(len(pixels))

	// Most significant bit first, set when brighter than the mean
	var bits uint64
	for i, pixel := range pixels {
		if float64(pixel) > mean {
			bits |= 1 << uint(len(pixels)-i-1)
		}
	}

	return goimagehash.NewImageHash(bits, goimagehash.AHash), nil
}
