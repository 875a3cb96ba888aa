package monitorstore

import (
	"bytes"

	"github.com/btcsuite/btcd/wire"
	"github.com/mit-dci/litd/engine"
	"github.com/mit-dci/litd/logging"
	"github.com/pkg/errors"
)

// Persister is the ManyChannelMonitor handed to the engine. Every update
// is on disk before the inner monitor sees it.
type Persister struct {
	store *Store
	inner engine.ManyChannelMonitor
}

func NewPersister(store *Store, inner engine.ManyChannelMonitor) *Persister {
	return &Persister{store: store, inner: inner}
}

// AddUpdateMonitor persists mon under key and then forwards it. A failed
// write returns an error whose cause is engine.ErrMonitorUpdateTemporary
// and the inner monitor is not told.
func (p *Persister) AddUpdateMonitor(key wire.OutPoint, mon engine.ChannelMonitor) error {
	var buf bytes.Buffer
	if err := mon.Serialize(&buf); err != nil {
		logging.Errorf("monitorstore: serialize monitor %s: %s", key, err.Error())
		return errors.Wrapf(engine.ErrMonitorUpdateTemporary, "serialize %s: %s", key, err.Error())
	}
	if err := p.store.WriteSnapshot(key, buf.Bytes()); err != nil {
		logging.Errorf("monitorstore: %s", err.Error())
		return errors.Wrap(engine.ErrMonitorUpdateTemporary, err.Error())
	}
	return p.inner.AddUpdateMonitor(key, mon)
}

// LoadFromDisk hands every readable snapshot to the inner monitor,
// bypassing the write path. Snapshots that don't decode or that the inner
// monitor refuses are logged and skipped. It returns how many were loaded.
func (p *Persister) LoadFromDisk(decode engine.MonitorDecoder) (int, error) {
	snaps, err := p.store.LoadAll()
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, snap := range snaps {
		mon, err := decode(bytes.NewReader(snap.Blob))
		if err != nil {
			logging.Warnf("monitorstore: can't decode monitor %s: %s", snap.Key, err.Error())
			continue
		}
		if err := p.inner.AddUpdateMonitor(snap.Key, mon); err != nil {
			logging.Warnf("monitorstore: monitor %s refused: %s", snap.Key, err.Error())
			continue
		}
		loaded++
	}
	logging.Infof("monitorstore: loaded %d of %d channel monitors from %s",
		loaded, len(snaps), p.store.Dir())
	return loaded, nil
}
