// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/lsmpool/lsmpool/builtin/pool"
	"github.com/lsmpool/lsmpool/lsm"
)

// Config is the pool configuration along with the pool address.
type Config struct {
	Address lsm.Address `json:"address"`
	*pool.ConfigResponse
}
