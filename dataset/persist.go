package dataset

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vamanadb/svsgo/lvq"
)

// Schema names a persisted dataset directory carries in its __schema__
// field (spec §6.1).
const (
	SchemaScaledBiased = "scaled_biased_dataset"
	SchemaTwoLevel     = "two_level_dataset"
	SchemaGlobal       = "static_global_dataset"
)

// SaveVersion is the current on-disk schema version written by this
// package. The loaders check __schema__ but do not compare __version__
// against SaveVersion, so a config with a newer version is not rejected.
const SaveVersion = "v0.0.1"

// Config is the svs_config.toml payload for a persisted dataset.
type Config struct {
	Schema       string  `toml:"__schema__"`
	Version      string  `toml:"__version__"`
	Dimensions   int     `toml:"dimensions"`
	Length       int     `toml:"length"`
	Bits         int     `toml:"bits"`
	ResidualBits int     `toml:"residual_bits,omitempty"`
	Strategy     string  `toml:"strategy"`
	LanesL       int     `toml:"interleaved_lanes,omitempty"`
	LanesE       int     `toml:"interleaved_elements_per_lane,omitempty"`
	Global       bool    `toml:"global"`
	GlobalScale  float32 `toml:"global_scale,omitempty"`
	GlobalBias   float32 `toml:"global_bias,omitempty"`
}

func strategyName(s lvq.Strategy) (name string, lanesL, lanesE int) {
	switch t := s.(type) {
	case lvq.Interleaved:
		return t.Name(), t.L, t.E
	default:
		return s.Name(), 0, 0
	}
}

func strategyFromConfig(c Config) (lvq.Strategy, error) {
	switch c.Strategy {
	case "linear":
		return lvq.Linear{}, nil
	case "interleaved":
		return lvq.NewInterleaved(c.LanesL, c.LanesE), nil
	default:
		return nil, errors.Errorf("dataset: unknown packing strategy %q", c.Strategy)
	}
}

// atomicWriteFile writes data via a unique temp file in dir, then renames
// over path, matching spec §6.2: "(a) write to <stem>_temp.<ext> in the
// same parent, (b) rename to the target path." A uuid suffix additionally
// guards against two concurrent saves into the same directory colliding on
// the temp name.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	stem := filepath.Base(path)
	tmp := filepath.Join(dir, stem+"_"+uuid.NewString()+"_temp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write temp file %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "rename %s -> %s", tmp, path)
	}
	return nil
}

func atomicWriteTOML(path string, v any) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return errors.Wrap(err, "encode toml")
	}
	return atomicWriteFile(path, buf.Bytes())
}

// SaveScaledBiased persists a per-vector dataset to dir as
// svs_config.toml + data.bin + scales.bin + biases.bin (spec §4.2
// "Persistence").
func SaveScaledBiased(dir string, ds *Static[lvq.ScaledBiasedVector]) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", dir)
	}

	bits := 0
	strategyStr, lanesL, lanesE := "linear", 0, 0
	if ds.Size() > 0 {
		first, _ := ds.GetDatum(0)
		bits = first.Packed.Encoding.Bits()
		strategyStr, lanesL, lanesE = strategyName(first.Packed.Strategy)
	}

	cfg := Config{
		Schema:     SchemaScaledBiased,
		Version:    SaveVersion,
		Dimensions: ds.Dimensions(),
		Length:     ds.Size(),
		Bits:       bits,
		Strategy:   strategyStr,
		LanesL:     lanesL,
		LanesE:     lanesE,
	}
	if err := atomicWriteTOML(filepath.Join(dir, "svs_config.toml"), cfg); err != nil {
		return err
	}

	var data bytes.Buffer
	scales := make([]byte, 0, ds.Size()*2)
	biases := make([]byte, 0, ds.Size()*2)
	for i := 0; i < ds.Size(); i++ {
		v, err := ds.GetDatum(i)
		if err != nil {
			return err
		}
		data.Write(v.Packed.Data)
		scales = binary.LittleEndian.AppendUint16(scales, uint16(v.Scale))
		biases = binary.LittleEndian.AppendUint16(biases, uint16(v.Bias))
	}
	if err := atomicWriteFile(filepath.Join(dir, "data.bin"), data.Bytes()); err != nil {
		return err
	}
	if err := atomicWriteFile(filepath.Join(dir, "scales.bin"), scales); err != nil {
		return err
	}
	if err := atomicWriteFile(filepath.Join(dir, "biases.bin"), biases); err != nil {
		return err
	}
	return nil
}

// LoadScaledBiased reads back a dataset saved with SaveScaledBiased.
func LoadScaledBiased(dir string) (*Static[lvq.ScaledBiasedVector], error) {
	var cfg Config
	if _, err := toml.DecodeFile(filepath.Join(dir, "svs_config.toml"), &cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config in %s", dir)
	}
	if cfg.Schema != SchemaScaledBiased {
		return nil, errors.Errorf("dataset: schema mismatch: got %q, want %q", cfg.Schema, SchemaScaledBiased)
	}

	strategy, err := strategyFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	enc, err := lvq.NewEncoding(lvq.Unsigned, cfg.Bits)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, "data.bin"))
	if err != nil {
		return nil, errors.Wrap(err, "read data.bin")
	}
	scales, err := os.ReadFile(filepath.Join(dir, "scales.bin"))
	if err != nil {
		return nil, errors.Wrap(err, "read scales.bin")
	}
	biases, err := os.ReadFile(filepath.Join(dir, "biases.bin"))
	if err != nil {
		return nil, errors.Wrap(err, "read biases.bin")
	}

	perVectorBytes := strategy.StorageBytes(cfg.Bits, cfg.Dimensions)
	vectors := make([]lvq.ScaledBiasedVector, cfg.Length)
	for i := 0; i < cfg.Length; i++ {
		start := i * perVectorBytes
		end := start + perVectorBytes
		if end > len(data) {
			return nil, errors.Errorf("data.bin truncated: need %d bytes for vector %d, have %d", end, i, len(data))
		}
		vectors[i] = lvq.ScaledBiasedVector{
			Scale:  lvq.Float16(binary.LittleEndian.Uint16(scales[i*2:])),
			Bias:   lvq.Float16(binary.LittleEndian.Uint16(biases[i*2:])),
			Packed: lvq.NewCompressedVector(data[start:end], cfg.Dimensions, enc, strategy),
		}
	}
	return NewStatic(vectors)
}

// SaveTwoLevel persists a two-level (primary+residual) dataset, adding
// residual.bin to the layout SaveScaledBiased writes.
func SaveTwoLevel(dir string, ds *Static[lvq.TwoLevelVector]) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", dir)
	}

	bits, residualBits := 0, 0
	strategyStr, lanesL, lanesE := "linear", 0, 0
	if ds.Size() > 0 {
		first, _ := ds.GetDatum(0)
		bits = first.Primary.Packed.Encoding.Bits()
		residualBits = first.Residual.Encoding.Bits()
		strategyStr, lanesL, lanesE = strategyName(first.Primary.Packed.Strategy)
	}

	cfg := Config{
		Schema:       SchemaTwoLevel,
		Version:      SaveVersion,
		Dimensions:   ds.Dimensions(),
		Length:       ds.Size(),
		Bits:         bits,
		ResidualBits: residualBits,
		Strategy:     strategyStr,
		LanesL:       lanesL,
		LanesE:       lanesE,
	}
	if err := atomicWriteTOML(filepath.Join(dir, "svs_config.toml"), cfg); err != nil {
		return err
	}

	var primaryData, residualData bytes.Buffer
	scales := make([]byte, 0, ds.Size()*2)
	biases := make([]byte, 0, ds.Size()*2)
	for i := 0; i < ds.Size(); i++ {
		v, err := ds.GetDatum(i)
		if err != nil {
			return err
		}
		primaryData.Write(v.Primary.Packed.Data)
		residualData.Write(v.Residual.Data)
		scales = binary.LittleEndian.AppendUint16(scales, uint16(v.Primary.Scale))
		biases = binary.LittleEndian.AppendUint16(biases, uint16(v.Primary.Bias))
	}
	if err := atomicWriteFile(filepath.Join(dir, "data.bin"), primaryData.Bytes()); err != nil {
		return err
	}
	if err := atomicWriteFile(filepath.Join(dir, "residual.bin"), residualData.Bytes()); err != nil {
		return err
	}
	if err := atomicWriteFile(filepath.Join(dir, "scales.bin"), scales); err != nil {
		return err
	}
	if err := atomicWriteFile(filepath.Join(dir, "biases.bin"), biases); err != nil {
		return err
	}
	return nil
}

// LoadTwoLevel reads back a dataset saved with SaveTwoLevel.
func LoadTwoLevel(dir string) (*Static[lvq.TwoLevelVector], error) {
	var cfg Config
	if _, err := toml.DecodeFile(filepath.Join(dir, "svs_config.toml"), &cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config in %s", dir)
	}
	if cfg.Schema != SchemaTwoLevel {
		return nil, errors.Errorf("dataset: schema mismatch: got %q, want %q", cfg.Schema, SchemaTwoLevel)
	}

	strategy, err := strategyFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	primaryEnc, err := lvq.NewEncoding(lvq.Unsigned, cfg.Bits)
	if err != nil {
		return nil, err
	}
	residualEnc, err := lvq.NewEncoding(lvq.Signed, cfg.ResidualBits)
	if err != nil {
		return nil, err
	}

	primaryData, err := os.ReadFile(filepath.Join(dir, "data.bin"))
	if err != nil {
		return nil, errors.Wrap(err, "read data.bin")
	}
	residualData, err := os.ReadFile(filepath.Join(dir, "residual.bin"))
	if err != nil {
		return nil, errors.Wrap(err, "read residual.bin")
	}
	scales, err := os.ReadFile(filepath.Join(dir, "scales.bin"))
	if err != nil {
		return nil, errors.Wrap(err, "read scales.bin")
	}
	biases, err := os.ReadFile(filepath.Join(dir, "biases.bin"))
	if err != nil {
		return nil, errors.Wrap(err, "read biases.bin")
	}

	primaryStride := strategy.StorageBytes(cfg.Bits, cfg.Dimensions)
	residualStride := strategy.StorageBytes(cfg.ResidualBits, cfg.Dimensions)
	vectors := make([]lvq.TwoLevelVector, cfg.Length)
	for i := 0; i < cfg.Length; i++ {
		pStart, pEnd := i*primaryStride, (i+1)*primaryStride
		rStart, rEnd := i*residualStride, (i+1)*residualStride
		if pEnd > len(primaryData) || rEnd > len(residualData) {
			return nil, errors.Errorf("dataset: truncated binary sidecar for vector %d", i)
		}
		vectors[i] = lvq.TwoLevelVector{
			Primary: lvq.ScaledBiasedVector{
				Scale:  lvq.Float16(binary.LittleEndian.Uint16(scales[i*2:])),
				Bias:   lvq.Float16(binary.LittleEndian.Uint16(biases[i*2:])),
				Packed: lvq.NewCompressedVector(primaryData[pStart:pEnd], cfg.Dimensions, primaryEnc, strategy),
			},
			Residual: lvq.NewCompressedVector(residualData[rStart:rEnd], cfg.Dimensions, residualEnc, strategy),
		}
	}
	return NewStatic(vectors)
}
