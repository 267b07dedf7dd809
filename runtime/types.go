// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"fmt"
	"time"

	"github.com/lsmpool/lsmpool/logdb"
	"github.com/lsmpool/lsmpool/lsm"
)

// MessageInfo describes who sent a message and what funds came with it.
type MessageInfo struct {
	Sender lsm.Address
	Funds  lsm.Coins
}

// BlockInfo is the execution height and time.
type BlockInfo struct {
	Height uint64
	Time   time.Time
}

// Event is emitted by a contract during execution.
type Event struct {
	Type       string
	Contract   lsm.Address
	Attributes []logdb.Attribute
}

// NewEvent creates an event of the given type.
func NewEvent(typ string) *Event {
	return &Event{Type: typ}
}

// Add appends an attribute, formatting value with fmt.
func (e *Event) Add(key string, value any) *Event {
	e.Attributes = append(e.Attributes, logdb.Attribute{Key: key, Value: fmt.Sprint(value)})
	return e
}

// Attr returns the value of the first attribute with key.
func (e *Event) Attr(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Response is returned by contract entry points.
type Response struct {
	Events []*Event
	Data   any
}

// NewResponse creates an empty response.
func NewResponse() *Response {
	return &Response{}
}

// AddEvent appends an event.
func (r *Response) AddEvent(ev *Event) *Response {
	r.Events = append(r.Events, ev)
	return r
}

// WithData sets the response data handed back to the caller.
func (r *Response) WithData(data any) *Response {
	r.Data = data
	return r
}

// Code is the logic of a contract. State is reached through Env, bound to Env.Self().
type Code interface {
	Instantiate(env *Env, info MessageInfo, msg any) (*Response, error)
	Execute(env *Env, info MessageInfo, msg any) (*Response, error)
	Query(env *Env, msg any) (any, error)
}

// Instance is a contract instance record.
type Instance struct {
	CodeID  uint64
	Creator lsm.Address
	Label   string
}

// InstantiateMsg creates a contract instance.
type InstantiateMsg struct {
	CodeID uint64
	Label  string
	Msg    any
	Funds  lsm.Coins
}

// ExecuteMsg calls a contract instance.
type ExecuteMsg struct {
	Contract lsm.Address
	Msg      any
	Funds    lsm.Coins
}

// SubMsg is a nested message issued by a contract. ID is a caller chosen
// correlation token echoed in the reply.
type SubMsg struct {
	ID          uint64
	Instantiate *InstantiateMsg
	Execute     *ExecuteMsg
}

// Reply is the result of a SubMsg.
type Reply struct {
	ID       uint64
	Address  lsm.Address
	Response *Response
}

// Receipt is the outcome of a committed execution.
type Receipt struct {
	Height   uint64
	Sender   lsm.Address
	Contract lsm.Address
	Events   []*Event
	Data     any
}
