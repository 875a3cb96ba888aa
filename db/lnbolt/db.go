// Package lnbolt is the boltdb backed node database: the peer book and,
// when enabled, payment preimages.
package lnbolt

import (
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/mit-dci/litd/lncore"
)

var buckets = [][]byte{
	peersLabel,
	preimagesLabel,
}

// LitBoltDB implements lncore.LitStorage in a single bolt file.
type LitBoltDB struct {
	db *bolt.DB

	peerdb     *peerboltdb
	preimagedb *preimageboltdb
}

var _ lncore.LitStorage = (*LitBoltDB)(nil)

func (db *LitBoltDB) Open(dbpath string) error {
	bdb, err := bolt.Open(dbpath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return fmt.Errorf("open %s: %s", dbpath, err.Error())
	}
	err = bdb.Update(func(tx *bolt.Tx) error {
		for _, n := range buckets {
			if _, err := tx.CreateBucketIfNotExists(n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return err
	}

	db.db = bdb
	db.peerdb = &peerboltdb{db: bdb}
	db.preimagedb = &preimageboltdb{db: bdb}
	return nil
}

func (db *LitBoltDB) Close() error {
	if db.db == nil {
		return nil
	}
	err := db.db.Close()
	db.db = nil
	return err
}

func (db *LitBoltDB) GetPeerDB() lncore.LitPeerStorage {
	return db.peerdb
}

func (db *LitBoltDB) GetPreimageDB() lncore.LitPreimageStorage {
	return db.preimagedb
}

// Check makes sure every bucket is there.
func (db *LitBoltDB) Check() error {
	if db.db == nil {
		return fmt.Errorf("database not open")
	}
	return db.db.View(func(tx *bolt.Tx) error {
		for _, n := range buckets {
			if tx.Bucket(n) == nil {
				return fmt.Errorf("missing bucket %s", n)
			}
		}
		return nil
	})
}
