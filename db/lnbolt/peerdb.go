package lnbolt

import (
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"github.com/mit-dci/litd/lncore"
	"github.com/mit-dci/litd/logging"
)

var peersLabel = []byte(`peers`)

type peerboltdb struct {
	db *bolt.DB
}

func (pdb *peerboltdb) GetPeerKeys() ([]string, error) {
	keys := make([]string, 0)
	err := pdb.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(peersLabel).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// GetPeerInfo returns nil, nil for a peer we have never seen.
func (pdb *peerboltdb) GetPeerInfo(pubkey string) (*lncore.PeerInfo, error) {
	if pdb.db == nil {
		logging.Warnf("PDB.db is nil!")
		return nil, fmt.Errorf("PDB.db is nil")
	}

	var raw []byte
	err := pdb.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(peersLabel).Get([]byte(pubkey))
		if v != nil {
			// only valid inside the tx
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return nil, err
	}

	var pi lncore.PeerInfo
	if err := json.Unmarshal(raw, &pi); err != nil {
		return nil, err
	}
	return &pi, nil
}

func (pdb *peerboltdb) GetPeerInfos() (map[string]lncore.PeerInfo, error) {
	raws := map[string][]byte{}
	err := pdb.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(peersLabel).ForEach(func(k, v []byte) error {
			raws[string(k)] = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]lncore.PeerInfo, len(raws))
	for k, raw := range raws {
		var pi lncore.PeerInfo
		if err := json.Unmarshal(raw, &pi); err != nil {
			return nil, fmt.Errorf("peer %s: %s", k, err.Error())
		}
		out[k] = pi
	}
	return out, nil
}

func (pdb *peerboltdb) AddPeer(pubkey string, pi lncore.PeerInfo) error {
	return pdb.UpdatePeer(pubkey, &pi)
}

func (pdb *peerboltdb) UpdatePeer(pubkey string, pi *lncore.PeerInfo) error {
	piraw, err := json.Marshal(pi)
	if err != nil {
		return err
	}
	return pdb.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(peersLabel).Put([]byte(pubkey), piraw)
	})
}

func (pdb *peerboltdb) DeletePeer(pubkey string) error {
	return pdb.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(peersLabel).Delete([]byte(pubkey))
	})
}
