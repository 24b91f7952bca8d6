package recognize

import (
	"image"

	"golang.org/x/image/draw"
)

// Vectorize normalizes a face crop to the classifier input shape and
// flattens it into a feature vector: the crop is scaled to
// InputSize x InputSize and its RGB channels laid out row-major.
func Vectorize(crop image.Image) []float32 {
	scaled := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), crop, crop.Bounds(), draw.Src, nil)

	vec := make([]float32, 0, Dim)
	for y := 0; y < InputSize; y++ {
		for x := 0; x < InputSize; x++ {
			i := scaled.PixOffset(x, y)
			vec = append(vec,
				float32(scaled.Pix[i]),
				float32(scaled.Pix[i+1]),
				float32(scaled.Pix[i+2]),
			)
		}
	}
	return vec
}
