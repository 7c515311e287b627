package distancer

import (
	"math"
)

// CosineProvider reduces cosine distance to inner product with the query
// normalized once at fix-argument time (spec §4.3: "cosine reduces to IP
// with normalization done at query-fix time").
type CosineProvider struct {
	dot DotProductProvider
}

func NewCosineProvider() CosineProvider { return CosineProvider{dot: NewDotProductProvider()} }

func normalize(a []float32) []float32 {
	var sumSq float32
	for _, v := range a {
		sumSq += v * v
	}
	norm := float32(math.Sqrt(float64(sumSq)))
	if norm == 0 {
		return append([]float32(nil), a...)
	}
	out := make([]float32, len(a))
	for i, v := range a {
		out[i] = v / norm
	}
	return out
}

func (c CosineProvider) SingleDist(a, b []float32) (float32, bool, error) {
	return c.dot.SingleDist(normalize(a), normalize(b))
}

func (c CosineProvider) Type() string { return "cosine" }

func (c CosineProvider) New(a []float32) Distancer { return c.dot.New(normalize(a)) }

func (c CosineProvider) NewCompressed(a []float32) CompressedDistancer {
	return c.dot.NewCompressed(normalize(a))
}

func (c CosineProvider) Step(x, y float32) float32 { return c.dot.Step(x, y) }

func (c CosineProvider) Wrap(x float32) float32 { return c.dot.Wrap(x) }
