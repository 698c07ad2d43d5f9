// Package dataset materializes knowledge bases from YAML descriptions,
// including the built-in medical diagnosis base.
package dataset

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
	"github.com/dd0wney/cluso-semnet/pkg/logging"
	"github.com/dd0wney/cluso-semnet/pkg/validation"
)

// BuiltinMedical names the embedded medical base in configuration.
const BuiltinMedical = "builtin:medical"

//go:embed medical.yaml
var medicalYAML []byte

// file is the on-disk shape: a node list and a relation triple list.
type file struct {
	Nodes     []validation.NodeRequest `yaml:"nodes"`
	Relations []knowledge.Relation     `yaml:"relations"`
}

// Medical returns a fresh copy of the built-in medical base: four disease
// categories, five diseases, twelve symptoms and five treatments.
func Medical() *knowledge.Store {
	s, err := Parse(medicalYAML)
	if err != nil {
		panic(fmt.Sprintf("dataset: embedded medical base is invalid: %v", err))
	}
	return s
}

// MedicalYAML returns the YAML source of the built-in medical base.
func MedicalYAML() []byte {
	out := make([]byte, len(medicalYAML))
	copy(out, medicalYAML)
	return out
}

// Parse builds a store from YAML bytes, with the same rules as Load.
func Parse(data []byte) (*knowledge.Store, error) {
	return Load(bytes.NewReader(data))
}

// Load reads a YAML dataset from r. Unknown fields are rejected. Each entry is
// validated before it is added; the first invalid entry or unknown relation
// endpoint aborts the load and no store is returned.
func Load(r io.Reader) (*knowledge.Store, error) {
	f, err := decode(r)
	if err != nil {
		return nil, err
	}
	return build(f)
}

func decode(r io.Reader) (file, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return file{}, fmt.Errorf("decode dataset: %w", err)
	}
	return f, nil
}

// LoadFile loads path, or the built-in base when path is BuiltinMedical.
func LoadFile(path string, logger logging.Logger) (*knowledge.Store, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	timer := logging.StartTimer(logger, "load dataset", logging.Path(path))

	var (
		s   *knowledge.Store
		err error
	)
	if path == BuiltinMedical || path == "" {
		s, err = Parse(medicalYAML)
	} else {
		var fh *os.File
		fh, err = os.Open(path)
		if err != nil {
			timer.EndError(err)
			return nil, fmt.Errorf("open dataset: %w", err)
		}
		defer fh.Close()
		s, err = Load(fh)
	}
	if err != nil {
		timer.EndError(err)
		return nil, err
	}

	timer.End(logging.Int("nodes", s.NodeCount()), logging.Int("relations", s.RelationCount()))
	return s, nil
}

func build(f file) (*knowledge.Store, error) {
	if err := validation.ValidateDocumentSize(len(f.Nodes), len(f.Relations)); err != nil {
		return nil, err
	}

	s := knowledge.NewStore()
	for i := range f.Nodes {
		req := &f.Nodes[i]
		if err := validation.ValidateNodeRequest(req); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		n := req.Node()
		s.AddNode(n.Name, n.Type, n.Attributes)
	}

	for i, r := range f.Relations {
		req := validation.RelationRequest{Source: r.Source, Label: r.Label, Target: r.Target}
		if err := validation.ValidateRelationRequest(&req); err != nil {
			return nil, fmt.Errorf("relation %d: %w", i, err)
		}
		if err := s.AddRelation(r.Source, r.Label, r.Target); err != nil {
			return nil, fmt.Errorf("relation %d: %w", i, err)
		}
	}
	return s, nil
}
