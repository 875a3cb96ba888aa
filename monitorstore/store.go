// Package monitorstore keeps one crash-safe snapshot file per channel.
//
// A snapshot is written as <name>.tmp, the previous file (if any) is copied
// to <name>.bk, the tmp file is renamed over <name> and the directory is
// synced, and only then is the backup removed. At every point a crash
// leaves either the old or the new blob under <name>.
package monitorstore

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/mit-dci/litd/logging"
	"github.com/pkg/errors"
)

const (
	tmpSuffix    = ".tmp"
	backupSuffix = ".bk"
)

// write steps, in order
const (
	StepWriteTmp     = "write tmp"
	StepBackup       = "backup"
	StepRename       = "rename"
	StepSyncDir      = "sync dir"
	StepRemoveBackup = "remove backup"
)

// WriteFailure is returned when any step of a snapshot write fails. The
// previous snapshot, if there was one, is still intact and the write can be
// retried.
type WriteFailure struct {
	Key  wire.OutPoint
	Step string
	Err  error
}

func (w *WriteFailure) Error() string {
	return fmt.Sprintf("snapshot %s: %s: %s", w.Key, w.Step, w.Err)
}

// Temporary is always true; nothing about a failed write is permanent.
func (w *WriteFailure) Temporary() bool { return true }

func (w *WriteFailure) Unwrap() error { return w.Err }

// Snapshot is one recovered channel blob.
type Snapshot struct {
	Key  wire.OutPoint
	Blob []byte
}

// Store is a directory of snapshots. All writes go through one mutex so
// the fsync ordering of two writes never interleaves.
type Store struct {
	dir string

	writeMtx sync.Mutex

	// beforeStep lets tests stop a write part way through.
	beforeStep func(step string) error
}

// NewStore uses dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrapf(err, "create monitor dir %s", dir)
	}
	return &Store{dir: dir}, nil
}

// Dir is the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// SnapshotName is the file name for key: the txid as displayed by
// bitcoind, an underscore, and the output index in decimal.
func SnapshotName(key wire.OutPoint) string {
	return key.Hash.String() + "_" + strconv.FormatUint(uint64(key.Index), 10)
}

// ParseSnapshotName is the inverse of SnapshotName. Only the canonical
// form is accepted.
func ParseSnapshotName(name string) (wire.OutPoint, error) {
	var op wire.OutPoint
	parts := strings.Split(name, "_")
	if len(parts) != 2 {
		return op, errors.Errorf("%q is not <txid>_<index>", name)
	}
	if len(parts[0]) != chainhash.MaxHashStringSize {
		return op, errors.Errorf("%q: txid is %d chars", name, len(parts[0]))
	}
	hash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return op, errors.Wrapf(err, "%q: txid", name)
	}
	idx, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return op, errors.Wrapf(err, "%q: index", name)
	}
	op = wire.OutPoint{Hash: *hash, Index: uint32(idx)}
	if SnapshotName(op) != name {
		return op, errors.Errorf("%q is not in canonical form", name)
	}
	return op, nil
}

func (s *Store) step(key wire.OutPoint, name string, f func() error) error {
	if s.beforeStep != nil {
		if err := s.beforeStep(name); err != nil {
			return &WriteFailure{Key: key, Step: name, Err: err}
		}
	}
	if err := f(); err != nil {
		return &WriteFailure{Key: key, Step: name, Err: err}
	}
	return nil
}

// WriteSnapshot durably replaces the snapshot for key with blob. It
// returns only once the new blob is the one a restart would load. Any
// error is a *WriteFailure.
func (s *Store) WriteSnapshot(key wire.OutPoint, blob []byte) error {
	s.writeMtx.Lock()
	defer s.writeMtx.Unlock()

	final := filepath.Join(s.dir, SnapshotName(key))
	tmp := final + tmpSuffix
	bk := final + backupSuffix

	err := s.step(key, StepWriteTmp, func() error {
		return writeFileSync(tmp, blob)
	})
	if err != nil {
		os.Remove(tmp)
		return err
	}

	backedUp := false
	err = s.step(key, StepBackup, func() error {
		fi, err := os.Lstat(final)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return errors.Errorf("%s exists and is not a regular file", final)
		}
		backedUp = true
		return copyFileSync(final, bk)
	})
	if err != nil {
		return err
	}

	err = s.step(key, StepRename, func() error {
		return os.Rename(tmp, final)
	})
	if err != nil {
		return err
	}

	err = s.step(key, StepSyncDir, func() error {
		return syncDir(s.dir)
	})
	if err != nil {
		return err
	}

	if backedUp {
		return s.step(key, StepRemoveBackup, func() error {
			return os.Remove(bk)
		})
	}
	return nil
}

// LoadAll reads every snapshot in the directory. Temp and backup files are
// never returned; files with names that don't parse or can't be read are
// logged and skipped. The result is ordered by txid then index. Only a
// failure to list the directory is an error.
func (s *Store) LoadAll() ([]Snapshot, error) {
	entries, err := ioutil.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list monitor dir %s", s.dir)
	}

	var snaps []Snapshot
	for _, fi := range entries {
		name := fi.Name()
		switch {
		case fi.IsDir():
			logging.Warnf("monitorstore: skipping directory %s", name)
			continue
		case strings.HasSuffix(name, tmpSuffix):
			logging.Debugf("monitorstore: ignoring partial write %s", name)
			continue
		case strings.HasSuffix(name, backupSuffix):
			logging.Warnf("monitorstore: stray backup %s, %s was loaded instead",
				name, strings.TrimSuffix(name, backupSuffix))
			continue
		}

		key, err := ParseSnapshotName(name)
		if err != nil {
			logging.Warnf("monitorstore: skipping %s: %s", name, err.Error())
			continue
		}
		blob, err := ioutil.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			logging.Warnf("monitorstore: skipping %s: %s", name, err.Error())
			continue
		}
		snaps = append(snaps, Snapshot{Key: key, Blob: blob})
	}

	sort.Slice(snaps, func(i, j int) bool {
		hi, hj := snaps[i].Key.Hash.String(), snaps[j].Key.Hash.String()
		if hi != hj {
			return hi < hj
		}
		return snaps[i].Key.Index < snaps[j].Key.Index
	})
	return snaps, nil
}

func writeFileSync(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func copyFileSync(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
