// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package health tracks the liveness of the node from its committed requests.
package health

import (
	"sync"
	"time"
)

type Status struct {
	Healthy    bool       `json:"healthy"`
	Ready      bool       `json:"ready"`
	Height     uint64     `json:"height"`
	LastCommit *time.Time `json:"lastCommit"`
}

type Health struct {
	lock       sync.RWMutex
	lastCommit time.Time
	height     uint64
	ready      bool
}

// NewCommit records a committed request at height.
func (h *Health) NewCommit(height uint64) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.lastCommit = time.Now()
	h.height = height
}

// SetReady marks whether the node finished bootstrapping and serves requests.
func (h *Health) SetReady(ready bool) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.ready = ready
}

func (h *Health) Status() *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	status := &Status{
		Healthy: h.ready,
		Ready:   h.ready,
		Height:  h.height,
	}
	if !h.lastCommit.IsZero() {
		last := h.lastCommit
		status.LastCommit = &last
	}
	return status
}
