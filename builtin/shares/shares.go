// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package shares validates liquid staking share coins before they are redeemed.
package shares

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/reverts"
	"github.com/lsmpool/lsmpool/cache"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/log"
)

var logger = log.WithContext("pkg", "shares")

// DefaultPrefixes are the recognized validator operator address prefixes.
var DefaultPrefixes = []string{"cosmosvaloper", "osmosisvaloper"}

// Denom is a parsed share denom.
type Denom struct {
	Validator string
	RecordID  uint64
}

// Parse checks the shape of a share denom, {validator}/{record_id}.
func Parse(denom string, prefixes []string) (*Denom, error) {
	parts := strings.Split(denom, "/")
	if len(parts) != 2 {
		return nil, errors.Wrapf(reverts.ErrInvalidDenomFormat, "%q", denom)
	}
	if !lsm.IsValidatorAddress(parts[0], prefixes) {
		return nil, errors.Wrapf(reverts.ErrInvalidValidatorPrefix, "%q", parts[0])
	}
	recordID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(reverts.ErrInvalidRecordID, "%q", parts[1])
	}
	return &Denom{Validator: parts[0], RecordID: recordID}, nil
}

// Registry answers whether a validator exists.
type Registry interface {
	ValidatorExists(valoper string) (bool, error)
}

// Validator validates share funds against the validator registry.
type Validator struct {
	prefixes []string
	known    *cache.LRU[string, bool]
}

// NewValidator creates a share validator. Positive registry answers are cached;
// validators are never removed from the registry.
func NewValidator(prefixes []string, known *cache.LRU[string, bool]) *Validator {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	return &Validator{prefixes: prefixes, known: known}
}

// Prefixes returns the recognized validator prefixes.
func (v *Validator) Prefixes() []string {
	return v.prefixes
}

// Validate checks funds carry exactly one non-zero share coin of an existing validator.
// It returns the coin and its parsed denom.
func (v *Validator) Validate(funds lsm.Coins, registry Registry) (lsm.Coin, *Denom, error) {
	if len(funds) != 1 {
		return lsm.Coin{}, nil, errors.Wrapf(reverts.ErrWrongCoinCount, "got %d", len(funds))
	}
	coin := funds[0]
	if coin.IsZero() {
		return lsm.Coin{}, nil, reverts.ErrZeroAmount
	}
	denom, err := Parse(coin.Denom, v.prefixes)
	if err != nil {
		return lsm.Coin{}, nil, err
	}
	exists, err := v.exists(denom.Validator, registry)
	if err != nil {
		return lsm.Coin{}, nil, err
	}
	if !exists {
		logger.Debug("share validator not found", "validator", denom.Validator)
		return lsm.Coin{}, nil, errors.Wrapf(reverts.ErrValidatorNotFound, "%s", denom.Validator)
	}
	return coin, denom, nil
}

func (v *Validator) exists(valoper string, registry Registry) (bool, error) {
	if v.known == nil {
		return registry.ValidatorExists(valoper)
	}
	return v.known.GetOrLoad(valoper, func(valoper string) (bool, bool, error) {
		exists, err := registry.ValidatorExists(valoper)
		return exists, exists, err
	})
}
