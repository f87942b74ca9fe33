package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-annotate/common"
	"gopkg.in/yaml.v3"
)

// ErrNoAnchors is returned when an anchors file declares no anchors.
var ErrNoAnchors = errors.New("no anchors defined")

// AnchorSpec is one annotation anchor as declared in the anchors file.
type AnchorSpec struct {
	Name     string     `yaml:"name"`
	Label    string     `yaml:"label"`
	Position [3]float32 `yaml:"position"`
}

type anchorsFile struct {
	Anchors []AnchorSpec `yaml:"anchors"`
}

// LoadAnchors reads and validates the anchors file at path.
func LoadAnchors(path string) ([]AnchorSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open anchors file: %w", err)
	}
	defer f.Close()

	anchors, err := DecodeAnchors(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return anchors, nil
}

// DecodeAnchors parses an anchors document. Names must be unique and non-empty;
// an empty label defaults to the name. Declaration order is preserved.
func DecodeAnchors(r io.Reader) ([]AnchorSpec, error) {
	var doc anchorsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoAnchors
		}
		return nil, fmt.Errorf("decode anchors: %w", err)
	}
	if len(doc.Anchors) == 0 {
		return nil, ErrNoAnchors
	}

	seen := make(map[string]int, len(doc.Anchors))
	for i := range doc.Anchors {
		a := &doc.Anchors[i]
		if a.Name == "" {
			return nil, fmt.Errorf("anchor %d: missing name", i)
		}
		if prev, ok := seen[a.Name]; ok {
			return nil, fmt.Errorf("anchor %d: name %q already used by anchor %d", i, a.Name, prev)
		}
		seen[a.Name] = i
		a.Label = common.Coalesce(a.Label, a.Name)
	}
	return doc.Anchors, nil
}
