package lnbolt

import (
	"fmt"

	"github.com/boltdb/bolt"
)

var preimagesLabel = []byte(`preimages`)

type preimageboltdb struct {
	db *bolt.DB
}

func (idb *preimageboltdb) PutPreimage(hash, preimage [32]byte) error {
	return idb.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(preimagesLabel).Put(hash[:], preimage[:])
	})
}

func (idb *preimageboltdb) GetPreimages() (map[[32]byte][32]byte, error) {
	out := map[[32]byte][32]byte{}
	err := idb.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(preimagesLabel).ForEach(func(k, v []byte) error {
			if len(k) != 32 || len(v) != 32 {
				return fmt.Errorf("preimage entry %x has %d/%d bytes", k, len(k), len(v))
			}
			var h, p [32]byte
			copy(h[:], k)
			copy(p[:], v)
			out[h] = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (idb *preimageboltdb) DeletePreimage(hash [32]byte) error {
	return idb.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(preimagesLabel).Delete(hash[:])
	})
}
