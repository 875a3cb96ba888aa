package lnutil

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/howeyc/gopass"
	"github.com/mit-dci/litd/logging"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	keySaltLen  = 32
	keyNonceLen = 24
	// salt, nonce, then the boxed 32 byte key
	encryptedKeyLen = keySaltLen + keyNonceLen + 32 + secretbox.Overhead
)

// PassphraseFunc supplies a passphrase. confirm is true when a new key file
// is being written and the caller should ask twice.
type PassphraseFunc func(confirm bool) ([]byte, error)

// TerminalPassphrase reads a passphrase from the controlling terminal
// without echo.
func TerminalPassphrase(confirm bool) ([]byte, error) {
	fmt.Printf("passphrase: ")
	pass, err := gopass.GetPasswdMasked()
	if err != nil {
		return nil, err
	}
	if !confirm || len(pass) == 0 {
		return pass, nil
	}
	fmt.Printf("repeat passphrase: ")
	again, err := gopass.GetPasswdMasked()
	if err != nil {
		return nil, err
	}
	if string(again) != string(pass) {
		return nil, fmt.Errorf("passphrases don't match")
	}
	return pass, nil
}

// ReadKeyFile returns the 32 byte node secret stored at filename, making a
// new random one if the file does not exist. An empty passphrase stores the
// key in the clear. pass may be nil, in which case only unencrypted files
// can be read and new keys are never encrypted.
func ReadKeyFile(filename string, pass PassphraseFunc) (*[32]byte, error) {
	raw, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		logging.Infof("No key file at %s, generating a new key", filename)
		return newKeyFile(filename, pass)
	}
	if err != nil {
		return nil, err
	}

	enc, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("key file %s: %s", filename, err.Error())
	}

	switch len(enc) {
	case 32:
		key := new([32]byte)
		copy(key[:], enc)
		return key, nil
	case encryptedKeyLen:
		if pass == nil {
			return nil, fmt.Errorf("key file %s is encrypted and no passphrase source given", filename)
		}
		p, err := pass(false)
		if err != nil {
			return nil, err
		}
		return openKey(enc, p)
	}
	return nil, fmt.Errorf("key file %s has %d bytes, expect 32 or %d",
		filename, len(enc), encryptedKeyLen)
}

func newKeyFile(filename string, pass PassphraseFunc) (*[32]byte, error) {
	key := new([32]byte)
	if _, err := rand.Read(key[:]); err != nil {
		return nil, err
	}

	var p []byte
	if pass != nil {
		var err error
		p, err = pass(true)
		if err != nil {
			return nil, err
		}
	}

	out := key[:]
	if len(p) != 0 {
		var err error
		out, err = sealKey(key, p)
		if err != nil {
			return nil, err
		}
	} else {
		logging.Warnf("Key file %s is not encrypted", filename)
	}

	err := ioutil.WriteFile(filename, []byte(hex.EncodeToString(out)+"\n"), 0600)
	if err != nil {
		return nil, err
	}
	return key, nil
}

func boxKey(pass, salt []byte) (*[32]byte, error) {
	dk, err := scrypt.Key(pass, salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, err
	}
	k := new([32]byte)
	copy(k[:], dk)
	return k, nil
}

func sealKey(key *[32]byte, pass []byte) ([]byte, error) {
	salt := make([]byte, keySaltLen)
	var nonce [keyNonceLen]byte
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	bk, err := boxKey(pass, salt)
	if err != nil {
		return nil, err
	}
	out := append(salt, nonce[:]...)
	return secretbox.Seal(out, key[:], &nonce, bk), nil
}

func openKey(enc, pass []byte) (*[32]byte, error) {
	salt := enc[:keySaltLen]
	var nonce [keyNonceLen]byte
	copy(nonce[:], enc[keySaltLen:keySaltLen+keyNonceLen])
	bk, err := boxKey(pass, salt)
	if err != nil {
		return nil, err
	}
	plain, ok := secretbox.Open(nil, enc[keySaltLen+keyNonceLen:], &nonce, bk)
	if !ok {
		return nil, fmt.Errorf("wrong passphrase")
	}
	key := new([32]byte)
	copy(key[:], plain)
	return key, nil
}
