// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package contracts

import (
	"encoding/json"

	"github.com/lsmpool/lsmpool/logdb"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/runtime"
)

// ExecuteRequest submits a message to a contract on behalf of Sender.
type ExecuteRequest struct {
	Sender lsm.Address     `json:"sender"`
	Msg    json.RawMessage `json:"msg"`
	Funds  lsm.Coins       `json:"funds,omitempty"`
}

// QueryRequest asks a contract a read only question.
type QueryRequest struct {
	Msg json.RawMessage `json:"msg"`
}

type Event struct {
	Type       string            `json:"type"`
	Contract   lsm.Address       `json:"contract"`
	Attributes []logdb.Attribute `json:"attributes"`
}

// Receipt is the outcome of a committed request.
type Receipt struct {
	Height   uint64      `json:"height"`
	Sender   lsm.Address `json:"sender"`
	Contract lsm.Address `json:"contract"`
	Events   []*Event    `json:"events"`
	Data     any         `json:"data,omitempty"`
}

func convertReceipt(r *runtime.Receipt) *Receipt {
	events := make([]*Event, len(r.Events))
	for i, ev := range r.Events {
		events[i] = &Event{
			Type:       ev.Type,
			Contract:   ev.Contract,
			Attributes: ev.Attributes,
		}
	}
	return &Receipt{
		Height:   r.Height,
		Sender:   r.Sender,
		Contract: r.Contract,
		Events:   events,
		Data:     r.Data,
	}
}
