package questions

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/errors"
)

// LoadFile reads question records from a JSON array or a YAML sequence,
// chosen by extension. Records are normalized but not validated.
func LoadFile(path string) ([]Question, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var qs []Question
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &qs); err != nil {
			return nil, errors.WrapParse("yaml", path, err)
		}
	default:
		qs, err = Decode(bytes.NewReader(data))
		if err != nil {
			return nil, errors.WrapParse("json", path, err)
		}
		return qs, nil
	}
	for i := range qs {
		qs[i].Normalize()
	}
	return qs, nil
}

// Decode reads a JSON array of question records and normalizes them.
func Decode(r io.Reader) ([]Question, error) {
	var qs []Question
	dec := json.NewDecoder(r)
	if err := dec.Decode(&qs); err != nil {
		return nil, err
	}
	for i := range qs {
		qs[i].Normalize()
	}
	return qs, nil
}

// WriteFile writes records as an indented JSON array, creating parent
// directories as needed.
func WriteFile(path string, qs []Question) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return errors.WrapIO("mkdir", dir, err)
		}
	}
	if qs == nil {
		qs = []Question{}
	}
	data, err := json.MarshalIndent(qs, "", "  ")
	if err != nil {
		return errors.WrapParse("json", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// IDs returns the identifiers of qs in order.
func IDs(qs []Question) []string {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}
