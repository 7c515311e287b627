package bench

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// jobFile is the input descriptor: a table of named jobs, each naming the
// entry point it dispatches to.
type jobFile struct {
	Jobs map[string]jobEntry `toml:"jobs"`
}

type jobEntry struct {
	EntryPoint string        `toml:"entry_point"`
	Job        toml.Primitive `toml:"job"`
}

// resultRecord is what gets appended to the output file per job: the
// entry point's own result table bracketed by start_time/stop_time
// sentinels (spec §6.3).
type resultRecord struct {
	EntryPoint string    `toml:"entry_point"`
	StartTime  time.Time `toml:"start_time"`
	StopTime   time.Time `toml:"stop_time"`
	Result     any       `toml:"result"`
}

// RunJobFile reads inputPath's job table, runs each job through its named
// entry point, and appends timed results to outputPath -- merging with
// whatever the file already contains rather than truncating it, so
// repeated runs against the same output accumulate a history.
func RunJobFile(inputPath, outputPath string) error {
	var jf jobFile
	meta, err := toml.DecodeFile(inputPath, &jf)
	if err != nil {
		return errors.Wrapf(err, "decode job file %s", inputPath)
	}

	out := map[string]resultRecord{}
	if _, err := os.Stat(outputPath); err == nil {
		if _, err := toml.DecodeFile(outputPath, &out); err != nil {
			return errors.Wrapf(err, "decode existing output %s", outputPath)
		}
	}

	for name, entry := range jf.Jobs {
		ep, err := Lookup(entry.EntryPoint)
		if err != nil {
			return errors.Wrapf(err, "job %q", name)
		}

		start := time.Now()
		result, err := ep(entry.Job, &meta)
		stop := time.Now()
		if err != nil {
			return errors.Wrapf(err, "job %q via entry point %q", name, entry.EntryPoint)
		}

		out[name] = resultRecord{
			EntryPoint: entry.EntryPoint,
			StartTime:  start,
			StopTime:   stop,
			Result:     result,
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return errors.Wrap(err, "encode output")
	}
	return atomicWriteFile(outputPath, buf.Bytes())
}

func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, filepath.Base(path)+"_"+uuid.NewString()+"_temp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write temp file %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "rename %s -> %s", tmp, path)
	}
	return nil
}
