// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lsm

import (
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"
)

// Amount is a non-negative integer encoded in JSON as a decimal string.
type Amount big.Int

// NewAmount wraps a copy of v.
func NewAmount(v *big.Int) *Amount {
	if v == nil {
		return (*Amount)(new(big.Int))
	}
	return (*Amount)(new(big.Int).Set(v))
}

// Big returns a copy of the amount as big.Int. A nil amount is zero.
func (a *Amount) Big() *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return new(big.Int).Set((*big.Int)(a))
}

func (a *Amount) String() string {
	return a.Big().String()
}

func (a *Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string or a JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.New("amount: expected string or number")
		}
		s = n.String()
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return errors.Errorf("amount: invalid value %q", s)
	}
	*a = Amount(*v)
	return nil
}
