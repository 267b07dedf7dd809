// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis bootstraps a pool and, for development networks, the
// simulated substrate it runs on.
package genesis

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lsmpool/lsmpool/builtin/shares"
	"github.com/lsmpool/lsmpool/lsm"
)

// Genesis describes the initial state of a network.
type Genesis struct {
	BondDenom  string      `yaml:"bond_denom"`
	Owner      lsm.Address `yaml:"owner"`
	Pool       Pool        `yaml:"pool"`
	Validators []string    `yaml:"validators"`
	Accounts   []Account   `yaml:"accounts"`
	Shares     []Share     `yaml:"shares"`
	Proposals  []Proposal  `yaml:"proposals"`
}

// Pool is the configuration of the pool contract.
type Pool struct {
	Validator string   `yaml:"validator"`
	MaxCap    string   `yaml:"max_cap"`
	Prefixes  []string `yaml:"prefixes"`
}

// Account is an initial balance.
type Account struct {
	Address lsm.Address `yaml:"address"`
	Denom   string      `yaml:"denom"`
	Amount  string      `yaml:"amount"`
}

// Share is an initial tokenized delegation.
type Share struct {
	Owner     lsm.Address `yaml:"owner"`
	Validator string      `yaml:"validator"`
	Amount    string      `yaml:"amount"`
}

// Proposal is an initial governance proposal.
type Proposal struct {
	ID     uint64 `yaml:"id"`
	Status string `yaml:"status"`
}

// Load reads a YAML genesis file.
func Load(path string) (*Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(content)
}

// Parse decodes a YAML genesis document and validates it.
func Parse(content []byte) (*Genesis, error) {
	var gen Genesis
	if err := yaml.Unmarshal(content, &gen); err != nil {
		return nil, errors.Wrap(err, "decode genesis")
	}
	if err := gen.Validate(); err != nil {
		return nil, err
	}
	return &gen, nil
}

// Validate checks the document is complete and its amounts are well formed.
func (g *Genesis) Validate() error {
	if g.BondDenom == "" {
		return errors.New("genesis: bond_denom is required")
	}
	if g.Owner.IsZero() {
		return errors.New("genesis: owner is required")
	}
	prefixes := g.Pool.Prefixes
	if len(prefixes) == 0 {
		prefixes = shares.DefaultPrefixes
	}
	for _, val := range g.Validators {
		if !lsm.IsValidatorAddress(val, prefixes) {
			return errors.Errorf("genesis: invalid validator %q", val)
		}
	}
	if g.Pool.MaxCap != "" {
		if _, err := parseAmount(g.Pool.MaxCap); err != nil {
			return errors.Wrap(err, "genesis: pool max_cap")
		}
	}
	for _, acc := range g.Accounts {
		if _, err := parseAmount(acc.Amount); err != nil {
			return errors.Wrapf(err, "genesis: account %s", acc.Address)
		}
	}
	for _, share := range g.Shares {
		if _, err := parseAmount(share.Amount); err != nil {
			return errors.Wrapf(err, "genesis: share of %s", share.Owner)
		}
	}
	for _, p := range g.Proposals {
		if _, err := parseStatus(p.Status); err != nil {
			return err
		}
	}
	return nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, errors.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func parseStatus(s string) (lsm.ProposalStatus, error) {
	status, err := lsm.ParseProposalStatus(s)
	return status, errors.Wrap(err, "genesis")
}

// Development addresses.
var (
	DevOwner      = lsm.BytesToAddress(lsm.AccountPrefix, []byte("lsmpool-dev-owner"))
	DevValidators = []string{"cosmosvaloper1devvalidator0", "cosmosvaloper1devvalidator1"}
	DevAccounts   = []lsm.Address{
		lsm.BytesToAddress(lsm.AccountPrefix, []byte("lsmpool-dev-account-0")),
		lsm.BytesToAddress(lsm.AccountPrefix, []byte("lsmpool-dev-account-1")),
	}
)

// NewDevnet returns the genesis of a local development network: two
// validators, a pool on the first one and funded test accounts.
func NewDevnet() *Genesis {
	return &Genesis{
		BondDenom:  "stake",
		Owner:      DevOwner,
		Pool:       Pool{Validator: DevValidators[0]},
		Validators: DevValidators,
		Accounts: []Account{
			{Address: DevAccounts[0], Denom: "stake", Amount: "1000000000"},
			{Address: DevAccounts[1], Denom: "stake", Amount: "1000000000"},
		},
		Shares: []Share{
			{Owner: DevAccounts[0], Validator: DevValidators[0], Amount: "1000000"},
			{Owner: DevAccounts[1], Validator: DevValidators[0], Amount: "500000"},
		},
		Proposals: []Proposal{{ID: 1, Status: lsm.StatusVotingPeriod.String()}},
	}
}
