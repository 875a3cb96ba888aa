// Package preimage holds the secrets behind payment hashes we issued.
package preimage

import (
	"crypto/rand"
	"sync"

	"github.com/btcsuite/fastsha256"
	"github.com/mit-dci/litd/lncore"
	"github.com/mit-dci/litd/logging"
	"github.com/pkg/errors"
)

// Vault maps payment hash to preimage. The lock covers single map
// operations only.
type Vault struct {
	mtx  sync.Mutex
	imgs map[[32]byte][32]byte

	// backing is nil unless preimages are persisted.
	backing lncore.LitPreimageStorage
}

// NewVault is an in-memory vault. Its contents are gone after a restart.
func NewVault() *Vault {
	return &Vault{imgs: make(map[[32]byte][32]byte)}
}

// NewPersistentVault loads every preimage in backing and writes each new
// one through to it before it is handed out.
func NewPersistentVault(backing lncore.LitPreimageStorage) (*Vault, error) {
	imgs, err := backing.GetPreimages()
	if err != nil {
		return nil, errors.Wrap(err, "load preimages")
	}
	logging.Infof("preimage: loaded %d stored preimages", len(imgs))
	return &Vault{imgs: imgs, backing: backing}, nil
}

// Hash is the payment hash for preimage.
func Hash(preimage [32]byte) [32]byte {
	return fastsha256.Sum256(preimage[:])
}

// Add stores a preimage under its hash and returns the hash.
func (v *Vault) Add(preimage [32]byte) ([32]byte, error) {
	hash := Hash(preimage)
	if v.backing != nil {
		if err := v.backing.PutPreimage(hash, preimage); err != nil {
			return hash, errors.Wrapf(err, "store preimage for %x", hash)
		}
	}
	v.mtx.Lock()
	v.imgs[hash] = preimage
	v.mtx.Unlock()
	return hash, nil
}

// Lookup returns the preimage for hash, if we have it.
func (v *Vault) Lookup(hash [32]byte) ([32]byte, bool) {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	p, ok := v.imgs[hash]
	return p, ok
}

// NewPreimage draws a random preimage, stores it and returns its hash.
func (v *Vault) NewPreimage() (hash, preimage [32]byte, err error) {
	if _, err = rand.Read(preimage[:]); err != nil {
		return hash, preimage, errors.Wrap(err, "random preimage")
	}
	hash, err = v.Add(preimage)
	return hash, preimage, err
}

// Len is how many preimages are held.
func (v *Vault) Len() int {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	return len(v.imgs)
}
