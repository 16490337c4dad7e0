package utils

import (
	"crypto/ecdsa"
	"encoding/binary"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/pkg/errors"
)

// GetPrivateKey will return a private key object given a byte slice. Only slices between lengths 1 and 32 (inclusive)
// are valid.
func GetPrivateKey(b []byte) (*ecdsa.PrivateKey, error) {
	// Make sure that private key is not zero
	if len(b) < 1 || len(b) > 32 {
		return nil, errors.New("invalid private key")
	}

	// Then pad the private key slice to a fixed 32-byte array
	paddedPrivateKey := make([]byte, 32)
	copy(paddedPrivateKey[32-len(b):], b)

	privateKey, err := crypto.ToECDSA(paddedPrivateKey)
	return privateKey, errors.WithStack(err)
}

// DeriveAccount deterministically derives the private key and address of the account at the given index from a key
// seed: keccak256(seed . uint64(index)). The same seed and index always produce the same account, which lets
// independent chains expose identical account sets.
func DeriveAccount(seed []byte, index uint64) (*ecdsa.PrivateKey, common.Address, error) {
	indexBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(indexBytes, index)
	privateKey, err := GetPrivateKey(crypto.Keccak256(seed, indexBytes))
	if err != nil {
		return nil, common.Address{}, err
	}
	return privateKey, crypto.PubkeyToAddress(privateKey.PublicKey), nil
}
