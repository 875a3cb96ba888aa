package lnutil

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func staticPass(p string) PassphraseFunc {
	return func(bool) ([]byte, error) { return []byte(p), nil }
}

func TestReadKeyFilePlain(t *testing.T) {
	dir, err := ioutil.TempDir("", "keyfile")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	fn := filepath.Join(dir, "privkey.hex")

	k1, err := ReadKeyFile(fn, nil)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := ReadKeyFile(fn, nil)
	if err != nil {
		t.Fatal(err)
	}
	if *k1 != *k2 {
		t.Fatalf("key changed between reads: %x %x", k1, k2)
	}
	if *k1 == [32]byte{} {
		t.Fatalf("generated key is all zero")
	}
}

func TestReadKeyFileEncrypted(t *testing.T) {
	dir, err := ioutil.TempDir("", "keyfile")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	fn := filepath.Join(dir, "privkey.hex")

	k1, err := ReadKeyFile(fn, staticPass("hunter2"))
	if err != nil {
		t.Fatal(err)
	}
	k2, err := ReadKeyFile(fn, staticPass("hunter2"))
	if err != nil {
		t.Fatal(err)
	}
	if *k1 != *k2 {
		t.Fatalf("decrypted key differs: %x %x", k1, k2)
	}

	if _, err := ReadKeyFile(fn, staticPass("hunter3")); err == nil {
		t.Fatalf("wrong passphrase accepted")
	}
	if _, err := ReadKeyFile(fn, nil); err == nil {
		t.Fatalf("encrypted key read without passphrase")
	}
}

func TestReadKeyFileGarbage(t *testing.T) {
	dir, err := ioutil.TempDir("", "keyfile")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	fn := filepath.Join(dir, "privkey.hex")

	for _, s := range []string{"zz", "abcd"} {
		if err := ioutil.WriteFile(fn, []byte(s), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadKeyFile(fn, nil); err == nil {
			t.Fatalf("garbage key file %q accepted", s)
		}
	}
}
