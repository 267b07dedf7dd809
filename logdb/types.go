// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import "github.com/lsmpool/lsmpool/lsm"

// Attribute is a key value pair of an event.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is an indexed event.
type Event struct {
	Height     uint64      `json:"height"`
	EventIndex uint32      `json:"eventIndex"`
	Sender     lsm.Address `json:"sender"`
	Contract   lsm.Address `json:"contract"`
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range is an inclusive height range. To == 0 means open ended.
type Range struct {
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// EventFilter filters events. Zero fields match everything.
type EventFilter struct {
	Contract lsm.Address
	Type     string
	Range    *Range
	Options  *Options
	Order    Order
}
