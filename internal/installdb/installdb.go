package installdb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/cmakex/cmakex/internal/cfgargs"
	"github.com/cmakex/cmakex/internal/cmakexerr"
)

// DB is the install database rooted at one directory (spec:
// "_cmakex/installed"). One DB instance is safe for concurrent use
// from goroutines within a process; cross-process safety is provided
// by an advisory file lock per package record.
type DB struct {
	dir string
}

// New returns a DB rooted at dir. dir is created on first Put if it
// does not already exist.
func New(dir string) *DB {
	return &DB{dir: dir}
}

func (db *DB) recordPath(name string) string {
	return filepath.Join(db.dir, name+".toml")
}

func (db *DB) lockPath(name string) string {
	return filepath.Join(db.dir, "."+name+".lock")
}

// TryGet reads the record for name. It returns (Record{}, false, nil)
// if no record exists. A corrupt record is a fatal error (spec §4.E:
// "Corruption of a record is a fatal error on read").
func (db *DB) TryGet(name string) (Record, bool, error) {
	path := db.recordPath(name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, cmakexerr.Filesystemf(err, "read install record %q", path)
	}

	var r Record
	if _, err := toml.Decode(string(data), &r); err != nil {
		return Record{}, false, cmakexerr.Corruptionf(name, err,
			"install record %q is corrupt; remove it and rebuild %q", path, name)
	}
	return r, true, nil
}

// Put atomically replaces the record for r.Name: write to a temp file
// in the same directory, then rename over the target (spec: "atomic
// replace of the per-package file"). The write is additionally guarded
// by a per-package advisory lock so a concurrent Put/TryGet from
// another process never observes a half-written file even across the
// rename boundary.
func (db *DB) Put(r Record) error {
	if err := os.MkdirAll(db.dir, 0o755); err != nil {
		return cmakexerr.Filesystemf(err, "create install database directory %q", db.dir)
	}

	lock, err := acquireLock(db.lockPath(r.Name))
	if err != nil {
		return err
	}
	defer lock.release()

	path := db.recordPath(r.Name)
	tmp, err := os.CreateTemp(db.dir, "."+r.Name+".toml.tmp-*")
	if err != nil {
		return cmakexerr.Filesystemf(err, "create temp install record for %q", r.Name)
	}
	tmpPath := tmp.Name()

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return cmakexerr.Filesystemf(err, "encode install record for %q", r.Name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return cmakexerr.Filesystemf(err, "close temp install record for %q", r.Name)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return cmakexerr.Filesystemf(err, "replace install record for %q", r.Name)
	}
	return nil
}

// Status classifies the outcome of Evaluate.
type Status int

const (
	NotInstalled Status = iota
	Satisfied
	MissingConfigs
	NotCompatible
)

func (s Status) String() string {
	switch s {
	case NotInstalled:
		return "not_installed"
	case Satisfied:
		return "satisfied"
	case MissingConfigs:
		return "missing_configs"
	case NotCompatible:
		return "not_compatible"
	default:
		return "unknown"
	}
}

// Request is the subset of a package request relevant to Evaluate.
type Request struct {
	Name          string
	Configs       []string
	ConfigureArgs []string
}

// EvalResult is the outcome of Evaluate (spec §4.E: "evaluate(request)
// → status + details").
type EvalResult struct {
	Status           Status
	Record           Record   // the installed record, if one exists
	MissingConfigs   []string // set when Status == MissingConfigs
	IncompatibleArgs []string // set when Status == NotCompatible
}

// Evaluate decides whether the currently installed state satisfies
// req, per the four-way status in spec §4.E, mirroring the original
// implementation's InstallDB::evaluate_pkg_request.
func (db *DB) Evaluate(req Request) (EvalResult, error) {
	record, found, err := db.TryGet(req.Name)
	if err != nil {
		return EvalResult{}, err
	}
	if !found {
		return EvalResult{Status: NotInstalled}, nil
	}

	ica, err := cfgargs.Incompatible(record.ConfigureArgs(), req.ConfigureArgs)
	if err != nil {
		return EvalResult{}, fmt.Errorf("installdb: evaluate %q: %w", req.Name, err)
	}
	if len(ica) > 0 {
		return EvalResult{Status: NotCompatible, Record: record, IncompatibleArgs: ica}, nil
	}

	missing := record.MissingConfigs(req.Configs)
	if len(missing) > 0 {
		return EvalResult{Status: MissingConfigs, Record: record, MissingConfigs: missing}, nil
	}
	return EvalResult{Status: Satisfied, Record: record}, nil
}
