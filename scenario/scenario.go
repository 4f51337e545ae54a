// Package scenario loads and runs YAML descriptions of array operations and
// their expected outcomes.
//
// A scenario file contains cases. Each case builds a receiver, then performs
// steps and checks the result of each one:
//
//	requires: ">= 0.4"
//	cases:
//	  - name: pop from a holey array
//	    setup:
//	      array: [1, !hole, 3]
//	    steps:
//	      - op: pop
//	        want: 3
//	        array: [1, !hole]
//	        shape: Int32
//
// Values use the YAML core types plus a few tags: !hole, !undefined, !self
// (the receiver), !arraylike [...] and !cmp <name> for comparators.
package scenario

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/dop251/jsarray"
)

// File is one scenario file.
type File struct {
	Path string `yaml:"-"`

	Description string   `yaml:"description"`
	Requires    string   `yaml:"requires"`
	Features    []string `yaml:"features"`
	Limits      Limits   `yaml:"limits"`
	Cases       []Case   `yaml:"cases"`
}

// Limits overrides the runtime limits for every case of the file.
type Limits struct {
	MinSparseIndex    *uint32 `yaml:"minSparseIndex"`
	MaxVectorLength   *uint32 `yaml:"maxVectorLength"`
	ShiftThreshold    *uint32 `yaml:"shiftThreshold"`
	SortMinRun        *int    `yaml:"sortMinRun"`
	SortRunCutoff     *int    `yaml:"sortRunCutoff"`
	BucketCutoff      *int    `yaml:"bucketCutoff"`
	BucketMaxDepth    *int    `yaml:"bucketMaxDepth"`
	MaxRecursionDepth *int    `yaml:"maxRecursionDepth"`
}

func (l Limits) apply(base jsarray.Limits) jsarray.Limits {
	if l.MinSparseIndex != nil {
		base.MinSparseIndex = *l.MinSparseIndex
	}
	if l.MaxVectorLength != nil {
		base.MaxVectorLength = *l.MaxVectorLength
	}
	if l.ShiftThreshold != nil {
		base.ShiftThreshold = *l.ShiftThreshold
	}
	if l.SortMinRun != nil {
		base.SortMinRun = *l.SortMinRun
	}
	if l.SortRunCutoff != nil {
		base.SortRunCutoff = *l.SortRunCutoff
	}
	if l.BucketCutoff != nil {
		base.BucketCutoff = *l.BucketCutoff
	}
	if l.BucketMaxDepth != nil {
		base.BucketMaxDepth = *l.BucketMaxDepth
	}
	if l.MaxRecursionDepth != nil {
		base.MaxRecursionDepth = *l.MaxRecursionDepth
	}
	return base
}

// Case is a receiver and the steps performed on it.
type Case struct {
	Name  string `yaml:"name"`
	Setup Setup  `yaml:"setup"`
	Steps []Step `yaml:"steps"`
	// Skip names the reason the case is not run.
	Skip string `yaml:"skip"`
}

// Setup describes the receiver.
type Setup struct {
	// Array holds the initial elements.
	Array yaml.Node `yaml:"array"`
	// Length is applied after the elements are stored.
	Length *uint64 `yaml:"length"`
	// ArrayLike makes the receiver an ordinary object instead of an array.
	ArrayLike bool `yaml:"arrayLike"`
	// LengthValue is the raw "length" of an array-like, converted with ToLength when read.
	LengthValue yaml.Node `yaml:"lengthValue"`
	// Proto lists the elements of the receiver's prototype; holes are skipped.
	Proto yaml.Node `yaml:"proto"`

	Define       []Define `yaml:"define"`
	FreezeLength bool     `yaml:"freezeLength"`
	Spreadable   *bool    `yaml:"spreadable"`
	// Species makes slice, splice, concat and flat build their result as an
	// array-like ("arrayLike") or keep the plain array ("default").
	Species string `yaml:"species"`
}

// Define is an element with explicit attributes.
type Define struct {
	Index        uint64    `yaml:"index"`
	Value        yaml.Node `yaml:"value"`
	Writable     bool      `yaml:"writable"`
	Enumerable   bool      `yaml:"enumerable"`
	Configurable bool      `yaml:"configurable"`
}

// Step is one operation and its expectations. Absent expectations are not checked.
type Step struct {
	Op   string    `yaml:"op"`
	Args yaml.Node `yaml:"args"`

	Want yaml.Node `yaml:"want"`
	// Error is an ECMAScript regular expression the error message must match.
	Error string `yaml:"error"`
	// Array is the expected receiver contents after the step.
	Array  yaml.Node `yaml:"array"`
	Length *uint64   `yaml:"length"`
	// Shape is only checked when the fast paths are enabled.
	Shape string `yaml:"shape"`
}

// Parse decodes a scenario file.
func Parse(name string, data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}
	f.Path = name
	for i, c := range f.Cases {
		if c.Name == "" {
			return nil, errors.Errorf("%s: case %d has no name", name, i)
		}
		for j, s := range c.Steps {
			if s.Op == "" {
				return nil, errors.Errorf("%s: %s: step %d has no op", name, c.Name, j)
			}
		}
	}
	return &f, nil
}

// Load reads a scenario file, or every .yml and .yaml file of a directory
// tree, in lexical order.
func Load(fs afero.Fs, path string) ([]*File, error) {
	fi, err := fs.Stat(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var names []string
	if fi.IsDir() {
		err = afero.Walk(fs, path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if ext := strings.ToLower(filepath.Ext(p)); !info.IsDir() && (ext == ".yml" || ext == ".yaml") {
				names = append(names, p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walking %s", path)
		}
		sort.Strings(names)
	} else {
		names = []string{path}
	}
	files := make([]*File, 0, len(names))
	for _, name := range names {
		data, err := afero.ReadFile(fs, name)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", name)
		}
		f, err := Parse(name, data)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Applies reports whether the file's version constraint admits version. An
// empty constraint admits every version.
func (f *File) Applies(version string) (bool, error) {
	if f.Requires == "" {
		return true, nil
	}
	c, err := semver.NewConstraint(f.Requires)
	if err != nil {
		return false, errors.Wrapf(err, "%s: invalid requires %q", f.Path, f.Requires)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return c.Check(v), nil
}
