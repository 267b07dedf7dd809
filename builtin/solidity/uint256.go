// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/lsm"
)

// Uint256 is a wrapper for storage and retrieval of an unsigned integer counter.
type Uint256 struct {
	raw *Raw[*big.Int]
}

func NewUint256(context *Context, slot lsm.Bytes32) *Uint256 {
	return &Uint256{raw: NewRaw[*big.Int](context, slot)}
}

func (u *Uint256) Get() (*big.Int, error) {
	v, err := u.raw.Get()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return new(big.Int), nil
	}
	return v, nil
}

func (u *Uint256) Set(value *big.Int) error {
	if value.Sign() == 0 {
		return u.raw.Set(nil)
	}
	return u.raw.Set(value)
}

func (u *Uint256) Add(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	return u.Set(storage.Add(storage, value))
}

func (u *Uint256) Sub(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	if storage.Cmp(value) < 0 {
		return errors.Errorf("uint256 underflow: %v - %v", storage, value)
	}
	return u.Set(storage.Sub(storage, value))
}
