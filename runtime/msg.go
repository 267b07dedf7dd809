// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/reverts"
)

// DecodeMsg converts a message into T. Messages are either Go values, when
// sent by another contract, or JSON, when submitted through the API.
func DecodeMsg[T any](msg any) (*T, error) {
	var raw []byte
	switch m := msg.(type) {
	case *T:
		if m == nil {
			return nil, errors.Wrap(reverts.ErrInvalidMessage, "nil message")
		}
		return m, nil
	case T:
		return &m, nil
	case json.RawMessage:
		raw = m
	case []byte:
		raw = m
	case string:
		raw = []byte(m)
	case nil:
		raw = []byte("{}")
	default:
		return nil, errors.Wrapf(reverts.ErrInvalidMessage, "unsupported message type %T", msg)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.Wrap(reverts.ErrInvalidMessage, err.Error())
	}
	return &v, nil
}
