package emuera

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// Canonical mode keeps save files byte-identical for identical state.
var saveEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("emuera: failed to create CBOR enc mode: %v", err))
	}
	saveEncMode = em
}

//
// A save file holds the context scalars and a snapshot of the store
//

type saveFile struct {
	Version string `cbor:"1,keyasint"`
	Saved   int64  `cbor:"2,keyasint"`
	Vars    []Cell `cbor:"3,keyasint,omitempty"`
	Store   []Cell `cbor:"4,keyasint,omitempty"`
}

// snapshotter is implemented by stores that can be saved.
type snapshotter interface {
	Snapshot() []Cell
	Restore(cells []Cell)
}

func marshalSave(sf *saveFile) ([]byte, error) {
	return saveEncMode.Marshal(sf)
}

func unmarshalSave(data []byte) (*saveFile, error) {

	var sf saveFile
	if err := cbor.Unmarshal(data, &sf); err != nil {
		return nil, errors.Wrap(err, "unmarshal save file")
	}
	return &sf, nil
}

func (in *Interpreter) savePath() string {
	return filepath.Join(in.cfg.SaveDir, defaultSaveFile)
}

//
// SaveGlobal writes the context scalars and, when the store supports
// it, the store contents. The file is replaced atomically
//

func (in *Interpreter) SaveGlobal(ec *ExecutionContext) error {

	sf := &saveFile{Version: VERSION, Saved: time.Now().Unix()}

	for _, name := range ec.VarNames() {
		v, _ := ec.Get(name)
		switch v.Kind() {
		case KindInt:
			sf.Vars = append(sf.Vars, Cell{Name: name, Int: v.Int64()})
		case KindString:
			sf.Vars = append(sf.Vars, Cell{Name: name, IsStr: true, Str: v.Text()})
		}
	}
	if s, ok := in.store.(snapshotter); ok {
		sf.Store = s.Snapshot()
	}

	data, err := marshalSave(sf)
	if err != nil {
		return errors.Wrap(err, "marshal save file")
	}

	path := in.savePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "rename %s", tmp)
	}

	log.Infof("saved %d scalars and %d cells to %s", len(sf.Vars), len(sf.Store), path)
	return nil
}

//
// LoadGlobal restores what SaveGlobal wrote. Names absent from the
// file keep their current values
//

func (in *Interpreter) LoadGlobal(ec *ExecutionContext) error {

	path := in.savePath()

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	sf, err := unmarshalSave(data)
	if err != nil {
		return errors.Wrapf(err, "load %s", path)
	}

	for _, c := range sf.Vars {
		if c.IsStr {
			ec.Set(c.Name, Str(c.Str))
		} else {
			ec.Set(c.Name, Int(c.Int))
		}
	}
	if s, ok := in.store.(snapshotter); ok {
		s.Restore(sf.Store)
	}

	log.Infof("loaded %s (version %s, saved %s)", path, sf.Version, time.Unix(sf.Saved, 0).Format(time.RFC3339))
	return nil
}
