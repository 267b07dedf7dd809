// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lsm

import (
	"encoding/binary"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/pkg/errors"
)

// AccountPrefix is the human readable part of account and contract addresses.
const AccountPrefix = "cosmos"

// Address is a bech32 account or contract address.
type Address string

// String implements the stringer interface.
func (a Address) String() string {
	return string(a)
}

// Bytes returns byte slice form of address, used as storage key.
func (a Address) Bytes() []byte {
	return []byte(a)
}

// IsZero returns whether the address is empty.
func (a Address) IsZero() bool {
	return len(a) == 0
}

// ParseAddress validates a bech32 encoded address with the given human readable part.
func ParseAddress(s, hrp string) (Address, error) {
	prefix, _, err := bech32.Decode(s)
	if err != nil {
		return "", errors.Wrap(err, "decode address")
	}
	if prefix != hrp {
		return "", errors.Errorf("invalid address prefix %q, want %q", prefix, hrp)
	}
	return Address(s), nil
}

// BytesToAddress encodes a raw 20-byte account into a bech32 address.
func BytesToAddress(hrp string, b []byte) Address {
	conv, err := bech32.ConvertBits(b, 8, 5, true)
	if err != nil {
		panic(err)
	}
	s, err := bech32.Encode(hrp, conv)
	if err != nil {
		panic(err)
	}
	return Address(s)
}

// CreateContractAddress generates the address of a contract instance from
// its code id and the global instance sequence.
func CreateContractAddress(codeID uint64, sequence uint64) Address {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], codeID)
	binary.BigEndian.PutUint64(buf[8:], sequence)
	h := Blake2b([]byte("contract"), buf[:])
	return BytesToAddress(AccountPrefix, h[:20])
}

// IsValidatorAddress reports whether s carries one of the given validator prefixes.
func IsValidatorAddress(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
