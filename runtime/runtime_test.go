// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"context"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsmpool/lsmpool/builtin/reverts"
	"github.com/lsmpool/lsmpool/builtin/solidity"
	"github.com/lsmpool/lsmpool/logdb"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/lvldb"
	"github.com/lsmpool/lsmpool/substrate"
)

var slotCounter = lsm.BytesToBytes32([]byte("counter"))

type counterMsg struct {
	Op     string
	Target lsm.Address
}

// counter increments a slot. "fail" increments then reverts, "nest" calls
// Target with the same message after incrementing itself.
type counter struct{}

func (counter) value(env *Env) *solidity.Uint256 {
	return solidity.NewUint256(solidity.NewContext(env.Self(), env.State()), slotCounter)
}

func (counter) Instantiate(env *Env, info MessageInfo, msg any) (*Response, error) {
	return NewResponse().AddEvent(NewEvent("created").Add("sender", info.Sender)), nil
}

func (c counter) Execute(env *Env, info MessageInfo, msg any) (*Response, error) {
	m := msg.(counterMsg)
	if err := c.value(env).Add(big.NewInt(1)); err != nil {
		return nil, err
	}
	switch m.Op {
	case "fail":
		return nil, errors.Wrap(reverts.ErrWrongProposalState, "fail")
	case "nest":
		replies, err := env.Dispatch(SubMsg{ID: 7, Execute: &ExecuteMsg{Contract: m.Target, Msg: counterMsg{Op: "inc"}}})
		if err != nil {
			return nil, err
		}
		return NewResponse().WithData(replies[0].ID), nil
	case "nest-fail":
		if _, err := env.Dispatch(SubMsg{ID: 1, Execute: &ExecuteMsg{Contract: m.Target, Msg: counterMsg{Op: "fail"}}}); err != nil {
			return nil, err
		}
	}
	return NewResponse().AddEvent(NewEvent("inc")), nil
}

func (c counter) Query(env *Env, msg any) (any, error) {
	if _, err := env.Dispatch(SubMsg{}); err == nil {
		return nil, errors.New("dispatch allowed in query")
	}
	return c.value(env).Get()
}

func newTestRuntime(t *testing.T) (*Runtime, *logdb.LogDB) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	ldb, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		ldb.Close()
	})
	rt := New(db, ldb, "stake")
	rt.RegisterCode(1, counter{})
	return rt, ldb
}

func instantiate(t *testing.T, rt *Runtime) lsm.Address {
	receipt, err := rt.Instantiate(context.Background(), "alice", 1, "counter", nil, nil)
	require.NoError(t, err)
	return receipt.Contract
}

func count(t *testing.T, rt *Runtime, addr lsm.Address) int64 {
	v, err := rt.Query(context.Background(), addr, nil)
	require.NoError(t, err)
	return v.(*big.Int).Int64()
}

func TestInstantiate(t *testing.T) {
	rt, ldb := newTestRuntime(t)
	a := instantiate(t, rt)
	b := instantiate(t, rt)
	assert.NotEqual(t, a, b)
	assert.Equal(t, lsm.CreateContractAddress(1, 1), a)

	height, err := rt.Height()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), height)

	events, err := ldb.FilterEvents(context.Background(), &logdb.EventFilter{Contract: a})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "instantiate", events[0].Type)
	assert.Equal(t, "created", events[1].Type)

	_, err = rt.Instantiate(context.Background(), "alice", 9, "x", nil, nil)
	assert.True(t, errors.Is(err, reverts.ErrCreationFailed))
}

func TestExecuteCommitsAndReverts(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ctx := context.Background()
	a := instantiate(t, rt)

	_, err := rt.Execute(ctx, "bob", a, counterMsg{Op: "inc"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count(t, rt, a))

	_, err = rt.Execute(ctx, "bob", a, counterMsg{Op: "fail"}, nil)
	assert.True(t, errors.Is(err, reverts.ErrWrongProposalState))
	assert.Equal(t, int64(1), count(t, rt, a))

	height, err := rt.Height()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), height, "failed request must not advance height")
}

func TestDispatch(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ctx := context.Background()
	a := instantiate(t, rt)
	b := instantiate(t, rt)

	receipt, err := rt.Execute(ctx, "bob", a, counterMsg{Op: "nest", Target: b}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), receipt.Data)
	assert.Equal(t, int64(1), count(t, rt, a))
	assert.Equal(t, int64(1), count(t, rt, b))

	// nested failure reverts the caller's own writes too
	_, err = rt.Execute(ctx, "bob", a, counterMsg{Op: "nest-fail", Target: b}, nil)
	assert.Error(t, err)
	assert.Equal(t, int64(1), count(t, rt, a))
	assert.Equal(t, int64(1), count(t, rt, b))
}

func TestFundsAndUpdate(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ctx := context.Background()
	a := instantiate(t, rt)

	_, err := rt.Update(ctx, "mint", func(env *Env, sim *substrate.Simulated) error {
		return sim.Mint("bob", lsm.NewCoin("stake", big.NewInt(100)))
	})
	require.NoError(t, err)

	funds := lsm.Coins{lsm.NewCoin("stake", big.NewInt(40))}
	_, err = rt.Execute(ctx, "bob", a, counterMsg{Op: "inc"}, funds)
	require.NoError(t, err)

	_, err = rt.Execute(ctx, "bob", a, counterMsg{Op: "fail"}, funds)
	assert.Error(t, err)

	err = rt.View(ctx, func(env *Env, sim *substrate.Simulated) error {
		bal, err := sim.Balance("bob", "stake")
		require.NoError(t, err)
		assert.Equal(t, int64(60), bal.Int64())
		bal, err = sim.Balance(a, "stake")
		require.NoError(t, err)
		assert.Equal(t, int64(40), bal.Int64())
		return nil
	})
	require.NoError(t, err)

	_, err = rt.Execute(ctx, "carol", a, counterMsg{Op: "inc"}, funds)
	assert.True(t, errors.Is(err, reverts.ErrSubstrate))
}

func TestContextCanceled(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rt.Instantiate(ctx, "alice", 1, "counter", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
