// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"time"

	"github.com/beevik/ntp"
)

const (
	clockSyncInterval = 10 * time.Minute
	// receipts and health are stamped with the local clock
	maxClockOffset = 2 * time.Second
)

func houseKeeping(ctx context.Context) error {
	logger.Debug("enter house keeping")
	defer logger.Debug("leave house keeping")

	ticker := time.NewTicker(clockSyncInterval)
	defer ticker.Stop()

	checkClockOffset()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			checkClockOffset()
		}
	}
}

func checkClockOffset() {
	resp, err := ntp.Query("pool.ntp.org")
	if err != nil {
		logger.Debug("failed to access NTP", "err", err)
		return
	}
	offset := resp.ClockOffset
	if offset < 0 {
		offset = -offset
	}
	if offset > maxClockOffset {
		logger.Warn("clock offset detected", "offset", resp.ClockOffset.String())
	}
}
