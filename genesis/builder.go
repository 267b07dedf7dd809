// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"context"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin"
	"github.com/lsmpool/lsmpool/builtin/pool"
	"github.com/lsmpool/lsmpool/log"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/runtime"
	"github.com/lsmpool/lsmpool/substrate"
)

var logger = log.WithContext("pkg", "genesis")

// PoolAddress is the address of the pool created by Build.
var PoolAddress = lsm.CreateContractAddress(builtin.PoolCodeID, 1)

// Build applies the genesis to an empty runtime and instantiates the pool.
// On a runtime that already holds state it only verifies the pool exists.
func (g *Genesis) Build(ctx context.Context, rt *runtime.Runtime) (lsm.Address, error) {
	if g.BondDenom != rt.BondDenom() {
		return "", errors.Errorf("genesis: bond denom %q, runtime uses %q", g.BondDenom, rt.BondDenom())
	}
	height, err := rt.Height()
	if err != nil {
		return "", err
	}
	if height > 0 {
		return g.resume(ctx, rt, height)
	}

	if _, err := rt.Update(ctx, "genesis", g.apply); err != nil {
		return "", errors.Wrap(err, "genesis: apply substrate")
	}

	msg := &pool.InstantiateMsg{
		Owner:        g.Owner,
		StakingDenom: g.BondDenom,
		Validator:    g.Pool.Validator,
		Prefixes:     g.Pool.Prefixes,
	}
	if g.Pool.MaxCap != "" {
		maxCap, _ := parseAmount(g.Pool.MaxCap)
		msg.MaxCap = lsm.NewAmount(maxCap)
	}
	receipt, err := rt.Instantiate(ctx, g.Owner, builtin.PoolCodeID, "lsm-pool", msg, nil)
	if err != nil {
		return "", errors.Wrap(err, "genesis: instantiate pool")
	}
	logger.Info("genesis built", "pool", receipt.Contract, "height", receipt.Height)
	return receipt.Contract, nil
}

func (g *Genesis) apply(_ *runtime.Env, sim *substrate.Simulated) error {
	for _, val := range g.Validators {
		if err := sim.AddValidator(val); err != nil {
			return err
		}
	}
	for _, acc := range g.Accounts {
		amount, err := parseAmount(acc.Amount)
		if err != nil {
			return err
		}
		denom := acc.Denom
		if denom == "" {
			denom = g.BondDenom
		}
		if err := sim.Mint(acc.Address, lsm.NewCoin(denom, amount)); err != nil {
			return err
		}
	}
	for _, share := range g.Shares {
		amount, err := parseAmount(share.Amount)
		if err != nil {
			return err
		}
		if _, err := sim.MintShares(share.Owner, share.Validator, amount); err != nil {
			return err
		}
	}
	for _, p := range g.Proposals {
		status, err := parseStatus(p.Status)
		if err != nil {
			return err
		}
		if err := sim.SetProposal(p.ID, status); err != nil {
			return err
		}
	}
	return nil
}

func (g *Genesis) resume(ctx context.Context, rt *runtime.Runtime, height uint64) (lsm.Address, error) {
	err := rt.View(ctx, func(env *runtime.Env, _ *substrate.Simulated) error {
		inst, err := env.Instance(PoolAddress)
		if err != nil {
			return err
		}
		if inst == nil || inst.CodeID != builtin.PoolCodeID {
			return errors.Errorf("genesis: no pool at %s", PoolAddress)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	logger.Info("resuming", "pool", PoolAddress, "height", height)
	return PoolAddress, nil
}
