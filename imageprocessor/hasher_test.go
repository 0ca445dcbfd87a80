package imageprocessor

import (
	"image"
	"image/color"
	"testing"

	"github.com/corona10/goimagehash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantfinder/testutil"
)

func TestAverageHashIsDeterministic(t *testing.T) {
	data := testutil.PNG(t, testutil.Gradient())
	hasher := NewAverageHasher()

	first, err := hasher.Hash(data)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := hasher.Hash(data)
		require.NoError(t, err)
		assert.Equal(t, first.GetHash(), again.GetHash())
	}
	assert.Equal(t, goimagehash.AHash, first.GetKind())
}

func TestAverageHashDistances(t *testing.T) {
	hasher := NewAverageHasher()

	gradientPNG, err := hasher.Hash(testutil.PNG(t, testutil.Gradient()))
	require.NoError(t, err)
	gradientJPEG, err := hasher.Hash(testutil.JPEG(t, testutil.Gradient()))
	require.NoError(t, err)
	reversed, err := hasher.Hash(testutil.PNG(t, testutil.ReverseGradient()))
	require.NoError(t, err)
	checker, err := hasher.Hash(testutil.PNG(t, testutil.Checkerboard()))
	require.NoError(t, err)

	same, err := CalculateHammingDistance(gradientPNG, gradientPNG)
	require.NoError(t, err)
	assert.Zero(t, same)

	reencoded, err := CalculateHammingDistance(gradientPNG, gradientJPEG)
	require.NoError(t, err)
	assert.Less(t, reencoded, 10)

	opposite, err := CalculateHammingDistance(gradientPNG, reversed)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, opposite, 48)

	unrelated, err := CalculateHammingDistance(gradientPNG, checker)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, unrelated, 10)
}

func TestHashRejectsUndecodableBytes(t *testing.T) {
	hasher := NewAverageHasher()

	_, err := hasher.Hash([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrDecode)

	_, err = hasher.Hash(nil)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCalculateHammingDistanceNil(t *testing.T) {
	_, err := CalculateHammingDistance(nil, goimagehash.NewImageHash(0, goimagehash.AHash))
	assert.Error(t, err)
}

func TestFlattenAlpha(t *testing.T) {
	opaque := testutil.Gradient()
	assert.True(t, FlattenAlpha(opaque) == opaque, "opaque images are returned as is")

	translucent := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	translucent.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 0})
	translucent.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 128})

	flat := FlattenAlpha(translucent)
	r, g, b, a := flat.At(0, 0).RGBA()
	assert.Equal(t, []uint32{200, 100, 50, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
	r, g, b, a = flat.At(1, 0).RGBA()
	assert.Equal(t, []uint32{10, 20, 30, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
}

func TestHashTransparentPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 8), G: uint8(x * 8), B: uint8(x * 8), A: uint8(y * 8)})
		}
	}

	hash, err := NewAverageHasher().Hash(testutil.PNG(t, img))
	require.NoError(t, err)
	// alpha is dropped, so the left/right split of the gradient survives
	assert.NotZero(t, hash.GetHash())
}

func TestHasherRegistry(t *testing.T) {
	h, err := NewHasher("")
	require.NoError(t, err)
	assert.IsType(t, &AverageHasher{}, h)

	_, err = NewHasher("does-not-exist")
	assert.ErrorIs(t, err, ErrUnknownHasher)

	RegisterHasher("test-constant", func() Hasher { return constantHasher{} })
	h, err = NewHasher("test-constant")
	require.NoError(t, err)
	hash, err := h.Hash(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), hash.GetHash())
	assert.Contains(t, HasherNames(), DefaultHasher)
}

type constantHasher struct{}

func (constantHasher) Hash([]byte) (*goimagehash.ImageHash, error) {
	return goimagehash.NewImageHash(42, goimagehash.AHash), nil
}

func TestUploadAllowList(t *testing.T) {
	cases := map[string]bool{
		"leaf.png":        true,
		"leaf.JPG":        true,
		"leaf.jpeg":       true,
		"leaf.gif":        true,
		"archive.tar.gif": true,
		"leaf.txt":        false,
		"leaf.webp":       false,
		"leaf":            false,
		"":                false,
	}
	for name, want := range cases {
		assert.Equal(t, want, IsAllowedUpload(name), name)
	}
	assert.Equal(t, "jpg", UploadExtension("Leaf.JPG"))
	assert.Equal(t, "", UploadExtension("leaf.txt"))
}

func TestGetFileFormat(t *testing.T) {
	assert.Equal(t, FormatJPEG, GetFileFormat("/tmp/neem.JPEG"))
	assert.Equal(t, FormatWEBP, GetFileFormat("tulsi.webp"))
	assert.Equal(t, FormatUnknown, GetFileFormat("notes.txt"))
	assert.True(t, IsImageFile("aloe.tiff"))
	assert.False(t, IsImageFile("aloe.cr3"))
}
