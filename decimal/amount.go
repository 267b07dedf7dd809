// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package decimal

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/reverts"
)

// MaxAmount is the largest balance that can be stored (2^128 - 1).
var MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// CheckAmount fails if a is negative or wider than 128 bits.
func CheckAmount(a *big.Int) error {
	if a.Sign() < 0 || a.Cmp(MaxAmount) > 0 {
		return errors.Wrapf(reverts.ErrOverflow, "amount %v out of range", a)
	}
	return nil
}

// SafeAdd returns a+b or ErrOverflow.
func SafeAdd(a, b *big.Int) (*big.Int, error) {
	r := new(big.Int).Add(a, b)
	if err := CheckAmount(r); err != nil {
		return nil, err
	}
	return r, nil
}

// SafeSub returns a-b or ErrInsufficientBalance when b > a.
func SafeSub(a, b *big.Int) (*big.Int, error) {
	if a.Cmp(b) < 0 {
		return nil, errors.Wrapf(reverts.ErrInsufficientBalance, "have %v, need %v", a, b)
	}
	return new(big.Int).Sub(a, b), nil
}
