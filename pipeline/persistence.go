package pipeline

import (
	"io"
	"os"

	"github.com/tsdalton/GraKeL/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SaveSpec writes spec to filename as a YAML pipeline document.
//
// Example:
//
//	gk, _ := pipeline.NewGraphKernel(spec)
//	err := pipeline.SaveSpec(gk.Spec(), "wl.yaml")
func SaveSpec(spec Spec, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer file.Close()

	if err := WriteSpec(spec, file); err != nil {
		return err
	}
	return file.Close()
}

// LoadSpecFile reads and validates the pipeline document at filename.
func LoadSpecFile(filename string) (Spec, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Spec{}, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()
	return LoadSpec(file)
}

// WriteSpec validates spec and encodes it to w. Only options that were set
// are written, so a round trip through LoadSpec yields an equal Spec.
func WriteSpec(spec Spec, w io.Writer) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(spec); err != nil {
		return errors.Wrap(err, "failed to encode pipeline spec")
	}
	return enc.Close()
}
