package lvq

// ScaledBiasedVector is the primary level of LVQ: a per-vector (scale,
// bias, selector) plus an unsigned packed vector. Decoded value at index i
// is scale*packed.Get(i) + bias. Selector is reserved for future
// multi-centroid LVQ variants (e.g. per-cluster codebooks); this codec
// always stores 0.
type ScaledBiasedVector struct {
	Scale    Float16
	Bias     Float16
	Selector uint8
	Packed   CompressedVector
}

// Decode returns the reconstructed value at logical index i.
func (v ScaledBiasedVector) Decode(i int) float32 {
	scale := v.Scale.Float32()
	bias := v.Bias.Float32()
	return scale*float32(v.Packed.Get(i)) + bias
}

// DecodeAll fills out[0:n] with the reconstructed vector.
func (v ScaledBiasedVector) DecodeAll(out []float32) {
	scale := v.Scale.Float32()
	bias := v.Bias.Float32()
	raw := make([]uint32, v.Packed.Length)
	BulkUnpack(v.Packed.Strategy, v.Packed.Data, v.Packed.Encoding.Bits(), v.Packed.Length, raw)
	for i, r := range raw {
		out[i] = scale*float32(r) + bias
	}
}

func (v ScaledBiasedVector) Dimensions() int { return v.Packed.Length }

// TwoLevelVector refines a ScaledBiasedVector primary level with a signed
// residual: decoded value is primary.Decode(i) + (scale_primary/2^R) *
// residual.Get(i).
type TwoLevelVector struct {
	Primary  ScaledBiasedVector
	Residual CompressedVector
}

func (v TwoLevelVector) residualStep() float32 {
	r := v.Residual.Encoding.Bits()
	return v.Primary.Scale.Float32() / float32(uint32(1)<<uint(r))
}

func (v TwoLevelVector) Decode(i int) float32 {
	step := v.residualStep()
	residual := v.Residual.Get(i)
	return v.Primary.Decode(i) + step*float32(residual)
}

func (v TwoLevelVector) DecodeAll(out []float32) {
	step := v.residualStep()
	primary := make([]float32, v.Primary.Dimensions())
	v.Primary.DecodeAll(primary)
	residualRaw := make([]int, v.Residual.Length)
	v.Residual.Decode(residualRaw)
	for i := range out {
		out[i] = primary[i] + step*float32(residualRaw[i])
	}
}

func (v TwoLevelVector) Dimensions() int { return v.Primary.Dimensions() }
