package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// WriteJSONArtifact persists a JSON artifact atomically: the payload is
// fully marshaled and written to a temp file, then renamed into place, so a
// failed run never leaves a truncated artifact behind.
func WriteJSONArtifact(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "store: create %s", dir)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "store: marshal %s", name)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "store: temp file for %s", name)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return eris.Wrapf(err, "store: write %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrapf(err, "store: close %s", name)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrapf(err, "store: rename %s", name)
	}
	return nil
}

// ReadJSONArtifact loads a JSON artifact into v, returning ErrNoArtifact
// when the file does not exist.
func ReadJSONArtifact(dir, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return eris.Wrapf(ErrNoArtifact, "%s", name)
		}
		return eris.Wrapf(err, "store: read %s", name)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "store: decode %s", name)
	}
	return nil
}
