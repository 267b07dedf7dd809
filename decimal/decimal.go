// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package decimal implements an 18 digit fixed point number stored as 256-bit
// atomics, and checked arithmetic on 128-bit bounded amounts.
package decimal

import (
	"encoding/json"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/reverts"
)

// Precision is the number of fractional decimal digits.
const Precision = 18

var (
	fractional     = new(big.Int).Exp(big.NewInt(10), big.NewInt(Precision), nil)
	fractionalU256 = uint256.MustFromBig(fractional)
)

// Dec is a non-negative fixed point number with 18 fractional digits.
type Dec struct {
	atomics uint256.Int
}

// Zero returns 0.
func Zero() Dec {
	return Dec{}
}

// One returns 1.
func One() Dec {
	return Dec{atomics: *fractionalU256}
}

// FromAtomics creates a Dec from its raw representation (value × 10^18).
func FromAtomics(atomics *big.Int) (Dec, error) {
	if atomics.Sign() < 0 {
		return Dec{}, errors.Wrap(reverts.ErrOverflow, "negative decimal")
	}
	v, overflow := uint256.FromBig(atomics)
	if overflow {
		return Dec{}, errors.Wrap(reverts.ErrOverflow, "decimal atomics")
	}
	return Dec{atomics: *v}, nil
}

// FromRatio returns num/den. The quotient is computed at unbounded precision
// and truncated once.
func FromRatio(num, den *big.Int) (Dec, error) {
	if den.Sign() <= 0 {
		return Dec{}, errors.New("decimal: non-positive denominator")
	}
	if num.Sign() < 0 {
		return Dec{}, errors.Wrap(reverts.ErrOverflow, "negative numerator")
	}
	q := new(big.Int).Mul(num, fractional)
	q.Quo(q, den)
	return FromAtomics(q)
}

// Atomics returns value × 10^18.
func (d Dec) Atomics() *big.Int {
	return d.atomics.ToBig()
}

// IsZero returns whether d is 0.
func (d Dec) IsZero() bool {
	return d.atomics.IsZero()
}

// Cmp compares d and o.
func (d Dec) Cmp(o Dec) int {
	return d.atomics.Cmp(&o.atomics)
}

// Add returns d+o or ErrOverflow.
func (d Dec) Add(o Dec) (Dec, error) {
	var r Dec
	if _, overflow := r.atomics.AddOverflow(&d.atomics, &o.atomics); overflow {
		return Dec{}, errors.Wrap(reverts.ErrOverflow, "decimal add")
	}
	return r, nil
}

// Sub returns d-o, failing when o > d.
func (d Dec) Sub(o Dec) (Dec, error) {
	var r Dec
	if _, underflow := r.atomics.SubOverflow(&d.atomics, &o.atomics); underflow {
		return Dec{}, errors.Wrap(reverts.ErrOverflow, "decimal sub")
	}
	return r, nil
}

// MulTrunc returns floor(amount × d). The result must fit an amount.
func (d Dec) MulTrunc(amount *big.Int) (*big.Int, error) {
	if amount.Sign() < 0 {
		return nil, errors.Wrap(reverts.ErrOverflow, "negative amount")
	}
	r := new(big.Int).Mul(amount, d.atomics.ToBig())
	r.Quo(r, fractional)
	if err := CheckAmount(r); err != nil {
		return nil, err
	}
	return r, nil
}

// String formats d in decimal notation without trailing zeros.
func (d Dec) String() string {
	a := d.atomics.ToBig()
	whole, frac := new(big.Int).QuoRem(a, fractional, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}
	fs := frac.String()
	fs = strings.Repeat("0", Precision-len(fs)) + fs
	return whole.String() + "." + strings.TrimRight(fs, "0")
}

// Parse reads a decimal string such as "0.1" or "12".
func Parse(s string) (Dec, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || len(frac) > Precision || strings.HasPrefix(whole, "-") || strings.HasPrefix(whole, "+") {
		return Dec{}, errors.Errorf("decimal: invalid %q", s)
	}
	digits := whole + frac + strings.Repeat("0", Precision-len(frac))
	a, ok := new(big.Int).SetString(digits, 10)
	if !ok || a.Sign() < 0 {
		return Dec{}, errors.Errorf("decimal: invalid %q", s)
	}
	return FromAtomics(a)
}

// EncodeRLP implements rlp.Encoder.
func (d Dec) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, d.atomics.ToBig())
}

// DecodeRLP implements rlp.Decoder.
func (d *Dec) DecodeRLP(s *rlp.Stream) error {
	a, err := s.BigInt()
	if err != nil {
		return err
	}
	v, err := FromAtomics(a)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Dec) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Dec) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
