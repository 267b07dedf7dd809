// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package builtin registers the built-in contract codes of the pool.
package builtin

import (
	"github.com/lsmpool/lsmpool/builtin/locker"
	"github.com/lsmpool/lsmpool/builtin/pool"
	"github.com/lsmpool/lsmpool/cache"
	"github.com/lsmpool/lsmpool/runtime"
)

// Code ids of the built-in contracts.
const (
	PoolCodeID   uint64 = 1
	LockerCodeID uint64 = 2
)

// ValidatorCacheSize is the number of validator lookups kept by the share validator.
const ValidatorCacheSize = 512

// Register makes the built-in codes available on rt. Both codes share one
// validator lookup cache.
func Register(rt *runtime.Runtime) error {
	known, err := cache.NewLRU[string, bool]("validators", ValidatorCacheSize)
	if err != nil {
		return err
	}
	rt.RegisterCode(PoolCodeID, pool.New(known))
	rt.RegisterCode(LockerCodeID, locker.New(known))
	return nil
}
