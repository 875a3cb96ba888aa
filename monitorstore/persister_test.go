package monitorstore

import (
	"fmt"
	"io"
	"io/ioutil"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/mit-dci/litd/engine"
	"github.com/pkg/errors"
)

type blobMonitor struct {
	blob []byte
	err  error
}

func (m *blobMonitor) Serialize(w io.Writer) error {
	if m.err != nil {
		return m.err
	}
	_, err := w.Write(m.blob)
	return err
}

type recordingMonitor struct {
	added  map[wire.OutPoint]string
	refuse bool
}

func (r *recordingMonitor) AddUpdateMonitor(key wire.OutPoint, mon engine.ChannelMonitor) error {
	if r.refuse {
		return fmt.Errorf("refused")
	}
	if r.added == nil {
		r.added = make(map[wire.OutPoint]string)
	}
	r.added[key] = string(mon.(*blobMonitor).blob)
	return nil
}

func decodeBlob(r io.Reader) (engine.ChannelMonitor, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if string(b) == "corrupt" {
		return nil, fmt.Errorf("bad monitor")
	}
	return &blobMonitor{blob: b}, nil
}

func TestPersisterWritesThenForwards(t *testing.T) {
	s, done := testStore(t)
	defer done()
	inner := &recordingMonitor{}
	p := NewPersister(s, inner)

	a := op(1, 1)
	if err := p.AddUpdateMonitor(a, &blobMonitor{blob: []byte("state")}); err != nil {
		t.Fatal(err)
	}
	if inner.added[a] != "state" {
		t.Fatalf("inner monitor not updated: %v", inner.added)
	}
	snaps, err := s.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 || string(snaps[0].Blob) != "state" {
		t.Fatalf("snapshot not on disk: %v", snaps)
	}
}

func TestPersisterWriteFailure(t *testing.T) {
	s, done := testStore(t)
	defer done()
	inner := &recordingMonitor{}
	p := NewPersister(s, inner)

	s.beforeStep = func(step string) error {
		if step == StepRename {
			return fmt.Errorf("disk full")
		}
		return nil
	}
	err := p.AddUpdateMonitor(op(1, 2), &blobMonitor{blob: []byte("x")})
	if errors.Cause(err) != engine.ErrMonitorUpdateTemporary {
		t.Fatalf("got %v, want temporary monitor failure", err)
	}
	if len(inner.added) != 0 {
		t.Fatalf("inner monitor updated despite failed write")
	}

	s.beforeStep = nil
	err = p.AddUpdateMonitor(op(1, 3), &blobMonitor{err: fmt.Errorf("nope")})
	if errors.Cause(err) != engine.ErrMonitorUpdateTemporary {
		t.Fatalf("got %v, want temporary monitor failure", err)
	}
}

func TestLoadFromDisk(t *testing.T) {
	s, done := testStore(t)
	defer done()

	good := []wire.OutPoint{op(1, 0), op(2, 0)}
	for _, k := range good {
		if err := s.WriteSnapshot(k, []byte("ok "+k.String())); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.WriteSnapshot(op(3, 0), []byte("corrupt")); err != nil {
		t.Fatal(err)
	}

	inner := &recordingMonitor{}
	n, err := NewPersister(s, inner).LoadFromDisk(decodeBlob)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(good) || len(inner.added) != len(good) {
		t.Fatalf("loaded %d (%d in monitor), want %d", n, len(inner.added), len(good))
	}
	for _, k := range good {
		if inner.added[k] != "ok "+k.String() {
			t.Fatalf("%s: got %q", k, inner.added[k])
		}
	}

	n, err = NewPersister(s, &recordingMonitor{refuse: true}).LoadFromDisk(decodeBlob)
	if err != nil || n != 0 {
		t.Fatalf("refusing monitor: n %d err %v", n, err)
	}
}
