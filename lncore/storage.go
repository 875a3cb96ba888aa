package lncore

// LitStorage is an abstract wrapper layer around an arbitrary database.
type LitStorage interface {
	Open(dbpath string) error
	Close() error

	GetPeerDB() LitPeerStorage
	GetPreimageDB() LitPreimageStorage

	Check() error
}

// LitPreimageStorage keeps payment preimages keyed by their hash.
type LitPreimageStorage interface {
	PutPreimage(hash, preimage [32]byte) error
	GetPreimages() (map[[32]byte][32]byte, error)
	DeletePreimage(hash [32]byte) error
}
