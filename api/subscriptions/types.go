// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/url"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/logdb"
	"github.com/lsmpool/lsmpool/lsm"
)

// EventFilter selects streamed events. Empty fields match everything.
type EventFilter struct {
	Contract lsm.Address
	Type     string
}

func parseEventFilter(values url.Values) (*EventFilter, error) {
	f := &EventFilter{Type: values.Get("type")}
	if s := values.Get("contract"); s != "" {
		addr, err := lsm.ParseAddress(s, lsm.AccountPrefix)
		if err != nil {
			return nil, errors.WithMessage(err, "contract")
		}
		f.Contract = addr
	}
	return f, nil
}

func (f *EventFilter) match(ev *logdb.Event) bool {
	if !f.Contract.IsZero() && f.Contract != ev.Contract {
		return false
	}
	if f.Type != "" && f.Type != ev.Type {
		return false
	}
	return true
}
