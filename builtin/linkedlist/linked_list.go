// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package linkedlist

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/solidity"
	"github.com/lsmpool/lsmpool/lsm"
)

// LinkedList is an insertion ordered list of addresses kept in contract storage.
type LinkedList struct {
	head  *solidity.Raw[lsm.Address]
	tail  *solidity.Raw[lsm.Address]
	count *solidity.Uint256
	next  *solidity.Mapping[lsm.Address, lsm.Address]
	prev  *solidity.Mapping[lsm.Address, lsm.Address]
}

// New creates a linked list rooted at the given slots.
func New(sctx *solidity.Context, headPos, tailPos, countPos lsm.Bytes32) *LinkedList {
	return &LinkedList{
		head:  solidity.NewRaw[lsm.Address](sctx, headPos),
		tail:  solidity.NewRaw[lsm.Address](sctx, tailPos),
		count: solidity.NewUint256(sctx, countPos),
		next:  solidity.NewMapping[lsm.Address, lsm.Address](sctx, headPos),
		prev:  solidity.NewMapping[lsm.Address, lsm.Address](sctx, tailPos),
	}
}

// Add appends an address to the end of the list.
func (l *LinkedList) Add(address lsm.Address) error {
	if address.IsZero() {
		return errors.New("cannot add empty address")
	}
	oldTail, err := l.tail.Get()
	if err != nil {
		return err
	}

	if oldTail.IsZero() {
		// the list is currently empty, set this entry to head & tail
		if err := l.head.Set(address); err != nil {
			return err
		}
		if err := l.tail.Set(address); err != nil {
			return err
		}
		return l.count.Add(big.NewInt(1))
	}

	if err := l.next.Set(oldTail, address); err != nil {
		return err
	}
	if err := l.prev.Set(address, oldTail); err != nil {
		return err
	}
	if err := l.tail.Set(address); err != nil {
		return err
	}
	return l.count.Add(big.NewInt(1))
}

// Contains reports whether address is in the list.
func (l *LinkedList) Contains(address lsm.Address) (bool, error) {
	if address.IsZero() {
		return false, nil
	}
	prev, err := l.prev.Get(address)
	if err != nil {
		return false, err
	}
	if !prev.IsZero() {
		return true, nil
	}
	head, err := l.head.Get()
	if err != nil {
		return false, err
	}
	return head == address, nil
}

// Head returns the oldest address, or the empty address.
func (l *LinkedList) Head() (lsm.Address, error) {
	return l.head.Get()
}

// Next returns the successor address in the list, or the empty address if at the end.
func (l *LinkedList) Next(address lsm.Address) (lsm.Address, error) {
	return l.next.Get(address)
}

// Len returns the current number of addresses.
func (l *LinkedList) Len() (*big.Int, error) {
	return l.count.Get()
}

// Iter traverses the list in insertion order, calling callback for each address
// until it returns false or an error.
func (l *LinkedList) Iter(callback func(lsm.Address) (bool, error)) error {
	ptr, err := l.head.Get()
	if err != nil {
		return err
	}

	for !ptr.IsZero() {
		cont, err := callback(ptr)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		if ptr, err = l.next.Get(ptr); err != nil {
			return err
		}
	}
	return nil
}

// Page returns at most limit addresses following the cursor. An empty cursor starts at the head.
func (l *LinkedList) Page(after lsm.Address, limit int) ([]lsm.Address, error) {
	var (
		ptr lsm.Address
		err error
	)
	if after.IsZero() {
		ptr, err = l.head.Get()
	} else {
		ptr, err = l.next.Get(after)
	}
	if err != nil {
		return nil, err
	}

	page := make([]lsm.Address, 0, limit)
	for !ptr.IsZero() && len(page) < limit {
		page = append(page, ptr)
		if ptr, err = l.next.Get(ptr); err != nil {
			return nil, err
		}
	}
	return page, nil
}
