// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/reverts"
	"github.com/lsmpool/lsmpool/builtin/shares"
	"github.com/lsmpool/lsmpool/lsm"
)

// Config is the ledger configuration.
type Config struct {
	Owner        lsm.Address
	StakingDenom string
	// Validator is the fixed validator. Empty means shares of any existing
	// validator are accepted.
	Validator string
	// MaxCap bounds total staked. Zero means unbounded.
	MaxCap   *big.Int
	Prefixes []string
}

// Variant reports whether the ledger accepts shares of any validator.
func (c *Config) Variant() bool {
	return c.Validator == ""
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Owner.IsZero() {
		return errors.Wrap(reverts.ErrInvalidMessage, "empty owner")
	}
	if c.StakingDenom == "" {
		return errors.Wrap(reverts.ErrInvalidMessage, "empty staking denom")
	}
	if c.Validator != "" && !lsm.IsValidatorAddress(c.Validator, c.prefixes()) {
		return errors.Wrapf(reverts.ErrInvalidValidatorPrefix, "%q", c.Validator)
	}
	return nil
}

func (c *Config) prefixes() []string {
	if len(c.Prefixes) == 0 {
		return shares.DefaultPrefixes
	}
	return c.Prefixes
}

func (c *Config) maxCap() *big.Int {
	if c.MaxCap == nil {
		return new(big.Int)
	}
	return c.MaxCap
}

// resolveValidator picks the validator a withdrawal draws from.
func (c *Config) resolveValidator(validator string) (string, error) {
	if !c.Variant() {
		if validator != "" && validator != c.Validator {
			return "", errors.Wrapf(reverts.ErrInvalidValidator, "%q", validator)
		}
		return c.Validator, nil
	}
	if !lsm.IsValidatorAddress(validator, c.prefixes()) {
		return "", errors.Wrapf(reverts.ErrInvalidValidator, "%q", validator)
	}
	return validator, nil
}
