// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"github.com/lsmpool/lsmpool/logdb"
	"github.com/lsmpool/lsmpool/lsm"
)

type Range struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// EventFilter selects indexed events. Empty fields match everything.
type EventFilter struct {
	Contract lsm.Address `json:"contract,omitempty"`
	Type     string      `json:"type,omitempty"`
	Range    *Range      `json:"range,omitempty"`
	Options  *Options    `json:"options,omitempty"`
	Order    logdb.Order `json:"order,omitempty"`
}

func convertEventFilter(ef *EventFilter) *logdb.EventFilter {
	f := &logdb.EventFilter{
		Contract: ef.Contract,
		Type:     ef.Type,
		Order:    ef.Order,
	}
	if ef.Range != nil {
		f.Range = &logdb.Range{From: ef.Range.From, To: ef.Range.To}
	}
	if ef.Options != nil {
		f.Options = &logdb.Options{Offset: ef.Options.Offset, Limit: ef.Options.Limit}
	}
	return f
}
