package pipeline

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tsdalton/GraKeL/kernels"
	"github.com/tsdalton/GraKeL/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Spec describes a pipeline: an ordered list of stages, each naming a
// registered kernel and its options. Every stage but the last must be a
// relabeling kernel; the last produces the matrix.
//
// A Spec is usually loaded from YAML:
//
//	normalize: true
//	n_jobs: -1
//	kernels:
//	  - name: weisfeiler_lehman
//	    n_iter: 4
//	  - name: vertex_histogram
type Spec struct {
	Normalize bool        `yaml:"normalize"`
	NJobs     int         `yaml:"n_jobs"`
	Kernels   []StageSpec `yaml:"kernels" validate:"required,min=1,dive"`
}

// StageSpec configures one stage. Nil fields keep the kernel's default.
type StageSpec struct {
	Name         string   `yaml:"name" validate:"required,kernel"`
	NIter        *int     `yaml:"n_iter,omitempty" validate:"omitempty,min=1"`
	Bits         *int     `yaml:"bits,omitempty" validate:"omitempty,min=1,max=63"`
	Seed         *uint64  `yaml:"seed,omitempty"`
	Lambda       *float64 `yaml:"lambda,omitempty" validate:"omitempty,gt=0"`
	WithLabels   *bool    `yaml:"with_labels,omitempty"`
	AsAttributes *bool    `yaml:"as_attributes,omitempty"`
}

// Ptr returns a pointer to v, for filling optional StageSpec fields.
func Ptr[T any](v T) *T { return &v }

// specValidate is shared by every Spec.Validate call.
var specValidate *validator.Validate

func init() {
	v, err := newSpecValidator()
	if err != nil {
		panic(err)
	}
	specValidate = v
}

// newSpecValidator returns a validator reporting yaml field names and
// understanding the "kernel" tag.
func newSpecValidator() (*validator.Validate, error) {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("kernel", func(fl validator.FieldLevel) bool {
		_, ok := ParseVariant(fl.Field().String())
		return ok
	}); err != nil {
		return nil, errors.Wrap(err, "register kernel validation")
	}
	return v, nil
}

// LoadSpec decodes and validates a YAML pipeline document. Unknown fields
// are rejected.
func LoadSpec(r io.Reader) (Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return Spec{}, errors.NewConfigurationError(componentName, "", "cannot decode pipeline document: "+err.Error(), nil)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Validate checks field constraints, that every name is registered and that
// only relabeling kernels precede the last stage.
func (s Spec) Validate() error {
	if err := specValidate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			if fe.Tag() == "kernel" {
				return errors.NewConfigurationError(componentName, fe.Field(),
					fmt.Sprintf("unknown kernel (registered: %s)", strings.Join(Names(), ", ")), fe.Value())
			}
			return errors.NewConfigurationError(componentName, fe.Field(),
				fmt.Sprintf("failed %q constraint at %s", fe.Tag(), fe.Namespace()), fe.Value())
		}
		return errors.Wrap(err, "grakel: pipeline: validate spec")
	}

	for i, stage := range s.Kernels[:len(s.Kernels)-1] {
		v, _ := ParseVariant(stage.Name)
		if !v.Relabeling() {
			return errors.NewConfigurationError(componentName, "name",
				fmt.Sprintf("stage %d is a terminal kernel and cannot feed a later stage", i), stage.Name)
		}
	}
	return nil
}

// options translates the explicitly set fields into kernel options.
func (s StageSpec) options() []kernels.Option {
	var opts []kernels.Option
	if s.NIter != nil {
		opts = append(opts, kernels.WithNIter(*s.NIter))
	}
	if s.Bits != nil {
		opts = append(opts, kernels.WithBits(*s.Bits))
	}
	if s.Seed != nil {
		opts = append(opts, kernels.WithSeed(*s.Seed))
	}
	if s.Lambda != nil {
		opts = append(opts, kernels.WithLambda(*s.Lambda))
	}
	if s.WithLabels != nil {
		opts = append(opts, kernels.WithLabels(*s.WithLabels))
	}
	if s.AsAttributes != nil {
		opts = append(opts, kernels.WithAttributes(*s.AsAttributes))
	}
	return opts
}

// explicit returns the option names of the fields that are set.
func (s StageSpec) explicit() []string {
	var names []string
	if s.NIter != nil {
		names = append(names, kernels.OptNIter)
	}
	if s.Bits != nil {
		names = append(names, kernels.OptBits)
	}
	if s.Seed != nil {
		names = append(names, kernels.OptSeed)
	}
	if s.Lambda != nil {
		names = append(names, kernels.OptLambda)
	}
	if s.WithLabels != nil {
		names = append(names, kernels.OptWithLabels)
	}
	if s.AsAttributes != nil {
		names = append(names, kernels.OptAsAttributes)
	}
	return names
}
