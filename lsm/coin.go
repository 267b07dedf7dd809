// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lsm

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

// Coin is an amount of a single denomination.
type Coin struct {
	Denom  string
	Amount *big.Int
}

// NewCoin creates a coin.
func NewCoin(denom string, amount *big.Int) Coin {
	return Coin{Denom: denom, Amount: new(big.Int).Set(amount)}
}

// String implements the stringer interface.
func (c Coin) String() string {
	return fmt.Sprintf("%v%s", c.Amount, c.Denom)
}

// IsZero returns whether the coin carries no value.
func (c Coin) IsZero() bool {
	return c.Amount == nil || c.Amount.Sign() == 0
}

type coinJSON struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// MarshalJSON encodes the amount as a decimal string.
func (c Coin) MarshalJSON() ([]byte, error) {
	amount := "0"
	if c.Amount != nil {
		amount = c.Amount.String()
	}
	return json.Marshal(&coinJSON{Denom: c.Denom, Amount: amount})
}

// UnmarshalJSON decodes a coin with a decimal string amount.
func (c *Coin) UnmarshalJSON(data []byte) error {
	var v coinJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, ok := new(big.Int).SetString(v.Amount, 10)
	if !ok || amount.Sign() < 0 {
		return errors.Errorf("invalid coin amount %q", v.Amount)
	}
	c.Denom = v.Denom
	c.Amount = amount
	return nil
}

// Coins is a list of coins.
type Coins []Coin

// AmountOf returns the total amount of the given denom.
func (cs Coins) AmountOf(denom string) *big.Int {
	sum := new(big.Int)
	for _, c := range cs {
		if c.Denom == denom && c.Amount != nil {
			sum.Add(sum, c.Amount)
		}
	}
	return sum
}

// NonZero drops zero value coins.
func (cs Coins) NonZero() Coins {
	out := make(Coins, 0, len(cs))
	for _, c := range cs {
		if !c.IsZero() {
			out = append(out, c)
		}
	}
	return out
}
