package lnbolt

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/mit-dci/litd/lncore"
)

func openTestDB(t *testing.T) (*LitBoltDB, string, func()) {
	dir, err := ioutil.TempDir("", "lnbolt")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "node.db")
	db := &LitBoltDB{}
	if err := db.Open(path); err != nil {
		t.Fatal(err)
	}
	return db, path, func() {
		db.Close()
		os.RemoveAll(dir)
	}
}

func TestPeerDB(t *testing.T) {
	db, _, done := openTestDB(t)
	defer done()
	if err := db.Check(); err != nil {
		t.Fatal(err)
	}
	pdb := db.GetPeerDB()

	pi, err := pdb.GetPeerInfo("nobody")
	if err != nil || pi != nil {
		t.Fatalf("unknown peer: %v %v", pi, err)
	}

	addr := "127.0.0.1:9735"
	if err := pdb.AddPeer("aa", lncore.PeerInfo{NetAddr: &addr, LastConnected: 5}); err != nil {
		t.Fatal(err)
	}
	if err := pdb.AddPeer("bb", lncore.PeerInfo{Inbound: true}); err != nil {
		t.Fatal(err)
	}

	pi, err = pdb.GetPeerInfo("aa")
	if err != nil {
		t.Fatal(err)
	}
	if pi == nil || pi.NetAddr == nil || *pi.NetAddr != addr || pi.LastConnected != 5 {
		t.Fatalf("got %+v", pi)
	}

	pi.LastConnected = 9
	if err := pdb.UpdatePeer("aa", pi); err != nil {
		t.Fatal(err)
	}
	all, err := pdb.GetPeerInfos()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all["aa"].LastConnected != 9 || !all["bb"].Inbound {
		t.Fatalf("got %+v", all)
	}

	if err := pdb.DeletePeer("bb"); err != nil {
		t.Fatal(err)
	}
	keys, err := pdb.GetPeerKeys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "aa" {
		t.Fatalf("keys %v", keys)
	}
}

func TestPreimageDBSurvivesReopen(t *testing.T) {
	db, path, done := openTestDB(t)
	defer done()

	h := [32]byte{1}
	p := [32]byte{2}
	if err := db.GetPreimageDB().PutPreimage(h, p); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	if err := db.Open(path); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetPreimageDB().GetPreimages()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[h] != p {
		t.Fatalf("got %v", got)
	}

	if err := db.GetPreimageDB().DeletePreimage(h); err != nil {
		t.Fatal(err)
	}
	got, err = db.GetPreimageDB().GetPreimages()
	if err != nil || len(got) != 0 {
		t.Fatalf("after delete %v %v", got, err)
	}
}
