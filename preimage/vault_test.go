package preimage

import (
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
)

type memBacking struct {
	m    map[[32]byte][32]byte
	fail bool
}

func (b *memBacking) PutPreimage(h, p [32]byte) error {
	if b.fail {
		return fmt.Errorf("disk gone")
	}
	b.m[h] = p
	return nil
}

func (b *memBacking) GetPreimages() (map[[32]byte][32]byte, error) {
	out := map[[32]byte][32]byte{}
	for k, v := range b.m {
		out[k] = v
	}
	return out, nil
}

func (b *memBacking) DeletePreimage(h [32]byte) error {
	delete(b.m, h)
	return nil
}

func TestHash(t *testing.T) {
	// sha256 of 32 zero bytes
	want := "66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f2925"
	h := Hash([32]byte{})
	if hex.EncodeToString(h[:]) != want {
		t.Fatalf("got %x", h)
	}
}

func TestNewPreimage(t *testing.T) {
	v := NewVault()
	h, p, err := v.NewPreimage()
	if err != nil {
		t.Fatal(err)
	}
	if Hash(p) != h {
		t.Fatalf("hash does not match preimage")
	}
	got, ok := v.Lookup(h)
	if !ok || got != p {
		t.Fatalf("lookup failed")
	}
	if _, ok := v.Lookup([32]byte{9}); ok {
		t.Fatalf("found unknown hash")
	}

	h2, _, err := v.NewPreimage()
	if err != nil {
		t.Fatal(err)
	}
	if h2 == h || v.Len() != 2 {
		t.Fatalf("second preimage collided or not stored")
	}
}

func TestConcurrentAdd(t *testing.T) {
	v := NewVault()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := v.Add([32]byte{byte(i)})
			if err != nil {
				t.Error(err)
				return
			}
			v.Lookup(h)
		}(i)
	}
	wg.Wait()
	if v.Len() != 50 {
		t.Fatalf("have %d preimages", v.Len())
	}
}

func TestPersistentVault(t *testing.T) {
	b := &memBacking{m: map[[32]byte][32]byte{}}
	v, err := NewPersistentVault(b)
	if err != nil {
		t.Fatal(err)
	}
	h, p, err := v.NewPreimage()
	if err != nil {
		t.Fatal(err)
	}
	if b.m[h] != p {
		t.Fatalf("preimage not written through")
	}

	// a restart sees it
	v2, err := NewPersistentVault(b)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := v2.Lookup(h); !ok || got != p {
		t.Fatalf("preimage lost over restart")
	}

	b.fail = true
	h3, err := v2.Add([32]byte{7})
	if err == nil {
		t.Fatalf("failed write accepted")
	}
	if _, ok := v2.Lookup(h3); ok {
		t.Fatalf("unstored preimage handed out")
	}
}
