// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/builtin/reverts"
	"github.com/lsmpool/lsmpool/builtin/solidity"
	"github.com/lsmpool/lsmpool/kv"
	"github.com/lsmpool/lsmpool/log"
	"github.com/lsmpool/lsmpool/logdb"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/state"
	"github.com/lsmpool/lsmpool/substrate"
)

var logger = log.WithContext("pkg", "runtime")

// ErrNoContract is returned when a request targets an address without a contract.
var ErrNoContract = errors.New("runtime: no contract")

// Address is the storage owner of runtime records.
const Address = lsm.Address("runtime")

var (
	slotInstances = lsm.BytesToBytes32([]byte("instances"))
	slotSequence  = lsm.BytesToBytes32([]byte("instance-seq"))
	slotHeight    = lsm.BytesToBytes32([]byte("height"))
)

type registry struct {
	instances *solidity.Mapping[lsm.Address, *Instance]
	sequence  *solidity.Uint256
	height    *solidity.Raw[uint64]
}

// Runtime executes messages one at a time. Each request runs against a
// fresh state and is either committed entirely or discarded.
type Runtime struct {
	mu        sync.Mutex
	db        kv.Store
	logDB     *logdb.LogDB
	bondDenom string
	codes     map[uint64]Code
	now       func() time.Time
	onCommit  []func(*Receipt)
}

// New create a Runtime object. logDB may be nil.
func New(db kv.Store, logDB *logdb.LogDB, bondDenom string) *Runtime {
	return &Runtime{
		db:        db,
		logDB:     logDB,
		bondDenom: bondDenom,
		codes:     make(map[uint64]Code),
		now:       time.Now,
	}
}

// RegisterCode makes code available under id.
func (rt *Runtime) RegisterCode(id uint64, code Code) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.codes[id] = code
}

// OnCommit registers fn to be called after every committed request. fn runs
// while the runtime is locked and must not call back into it.
func (rt *Runtime) OnCommit(fn func(*Receipt)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.onCommit = append(rt.onCommit, fn)
}

// BondDenom returns the staking denom of the substrate.
func (rt *Runtime) BondDenom() string {
	return rt.bondDenom
}

func (rt *Runtime) registry(st *state.State) *registry {
	sctx := solidity.NewContext(Address, st)
	return &registry{
		instances: solidity.NewMapping[lsm.Address, *Instance](sctx, slotInstances),
		sequence:  solidity.NewUint256(sctx, slotSequence),
		height:    solidity.NewRaw[uint64](sctx, slotHeight),
	}
}

type request func(env *Env) (lsm.Address, *Response, error)

// run executes req against a fresh state. Successful requests are committed
// at the next height and their events indexed.
func (rt *Runtime) run(ctx context.Context, sender lsm.Address, method string, commit bool, req request) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	start := time.Now()
	st := state.New(rt.db)
	reg := rt.registry(st)
	height, err := reg.height.Get()
	if err != nil {
		return nil, err
	}

	var events []*Event
	env := &Env{
		rt:       rt,
		state:    st,
		sim:      substrate.NewSimulated(st, rt.bondDenom),
		block:    BlockInfo{Height: height + 1, Time: rt.now()},
		readOnly: !commit,
		events:   &events,
	}

	checkpoint := st.NewCheckpoint()
	contract, res, err := req(env)
	if err != nil {
		st.RevertTo(checkpoint)
		metricRequestCount().AddWithLabel(1, map[string]string{"method": method, "result": resultLabel(err)})
		logger.Debug("request reverted", "method", method, "sender", sender, "error", err)
		return nil, err
	}
	if !commit {
		st.RevertTo(checkpoint)
		var data any
		if res != nil {
			data = res.Data
		}
		return &Receipt{Height: height, Sender: sender, Contract: contract, Data: data}, nil
	}

	if err := reg.height.Set(height + 1); err != nil {
		return nil, err
	}
	if err := st.Stage().Commit(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	metricRequestCount().AddWithLabel(1, map[string]string{"method": method, "result": "ok"})
	metricRequestDuration().ObserveWithLabels(time.Since(start).Milliseconds(), map[string]string{"method": method})

	receipt := &Receipt{Height: height + 1, Sender: sender, Contract: contract, Events: events}
	if res != nil {
		receipt.Data = res.Data
	}
	if rt.logDB != nil && len(events) > 0 {
		indexed := make([]*logdb.Event, 0, len(events))
		for _, ev := range events {
			indexed = append(indexed, &logdb.Event{Contract: ev.Contract, Type: ev.Type, Attributes: ev.Attributes})
		}
		if err := rt.logDB.Write(ctx, receipt.Height, sender, indexed); err != nil {
			// state is already committed
			logger.Warn("failed to index events", "height", receipt.Height, "error", err)
		}
	}
	for _, fn := range rt.onCommit {
		fn(receipt)
	}
	return receipt, nil
}

func resultLabel(err error) string {
	if kind := reverts.KindOf(err); kind != reverts.KindUnknown {
		return kind.String()
	}
	return "internal"
}

// Instantiate creates a contract instance from code.
func (rt *Runtime) Instantiate(ctx context.Context, sender lsm.Address, codeID uint64, label string, msg any, funds lsm.Coins) (*Receipt, error) {
	return rt.run(ctx, sender, "instantiate", true, func(env *Env) (lsm.Address, *Response, error) {
		addr, res, err := rt.instantiate(env, sender, &InstantiateMsg{CodeID: codeID, Label: label, Msg: msg, Funds: funds})
		return addr, res, err
	})
}

// Execute runs msg on contract on behalf of sender.
func (rt *Runtime) Execute(ctx context.Context, sender, contract lsm.Address, msg any, funds lsm.Coins) (*Receipt, error) {
	return rt.run(ctx, sender, "execute", true, func(env *Env) (lsm.Address, *Response, error) {
		res, err := rt.execute(env, sender, &ExecuteMsg{Contract: contract, Msg: msg, Funds: funds})
		return contract, res, err
	})
}

// Query runs a read only query against contract.
func (rt *Runtime) Query(ctx context.Context, contract lsm.Address, msg any) (any, error) {
	receipt, err := rt.run(ctx, "", "query", false, func(env *Env) (lsm.Address, *Response, error) {
		code, err := rt.codeOf(env, contract)
		if err != nil {
			return "", nil, err
		}
		data, err := code.Query(env.child(contract), msg)
		if err != nil {
			return "", nil, err
		}
		return contract, NewResponse().WithData(data), nil
	})
	if err != nil {
		return nil, err
	}
	return receipt.Data, nil
}

// Update runs a privileged mutation of the substrate, such as genesis setup
// or governance updates, as one committed request.
func (rt *Runtime) Update(ctx context.Context, method string, fn func(env *Env, sim *substrate.Simulated) error) (*Receipt, error) {
	return rt.run(ctx, "", method, true, func(env *Env) (lsm.Address, *Response, error) {
		return "", nil, fn(env, env.sim)
	})
}

// View reads the substrate and contract storage without committing anything.
func (rt *Runtime) View(ctx context.Context, fn func(env *Env, sim *substrate.Simulated) error) error {
	_, err := rt.run(ctx, "", "view", false, func(env *Env) (lsm.Address, *Response, error) {
		return "", nil, fn(env, env.sim)
	})
	return err
}

// Height returns the height of the last committed request.
func (rt *Runtime) Height() (uint64, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.registry(state.New(rt.db)).height.Get()
}

func (rt *Runtime) codeOf(env *Env, contract lsm.Address) (Code, error) {
	inst, err := rt.registry(env.state).instances.Get(contract)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, errors.Wrapf(ErrNoContract, "address %s", contract)
	}
	code, ok := rt.codes[inst.CodeID]
	if !ok {
		return nil, errors.Errorf("runtime: unknown code %d", inst.CodeID)
	}
	return code, nil
}

func (rt *Runtime) instantiate(parent *Env, creator lsm.Address, msg *InstantiateMsg) (lsm.Address, *Response, error) {
	code, ok := rt.codes[msg.CodeID]
	if !ok {
		return "", nil, errors.Wrapf(reverts.ErrCreationFailed, "unknown code id %d", msg.CodeID)
	}
	reg := rt.registry(parent.state)
	seq, err := reg.sequence.Get()
	if err != nil {
		return "", nil, err
	}
	seq.Add(seq, big1)
	if err := reg.sequence.Set(seq); err != nil {
		return "", nil, err
	}
	addr := lsm.CreateContractAddress(msg.CodeID, seq.Uint64())
	if err := reg.instances.Set(addr, &Instance{CodeID: msg.CodeID, Creator: creator, Label: msg.Label}); err != nil {
		return "", nil, err
	}
	if err := parent.sim.Send(creator, addr, msg.Funds); err != nil {
		return "", nil, err
	}

	env := parent.child(addr)
	res, err := code.Instantiate(env, MessageInfo{Sender: creator, Funds: msg.Funds}, msg.Msg)
	if err != nil {
		return "", nil, err
	}
	if res == nil {
		res = NewResponse()
	}
	parent.emit(addr, []*Event{NewEvent("instantiate").
		Add("code_id", strconv.FormatUint(msg.CodeID, 10)).
		Add("label", msg.Label).
		Add("creator", creator)})
	parent.emit(addr, res.Events)
	logger.Debug("instantiated contract", "code", msg.CodeID, "address", addr, "creator", creator)
	return addr, res, nil
}

func (rt *Runtime) execute(parent *Env, caller lsm.Address, msg *ExecuteMsg) (*Response, error) {
	code, err := rt.codeOf(parent, msg.Contract)
	if err != nil {
		return nil, err
	}
	if err := parent.sim.Send(caller, msg.Contract, msg.Funds); err != nil {
		return nil, err
	}
	res, err := code.Execute(parent.child(msg.Contract), MessageInfo{Sender: caller, Funds: msg.Funds}, msg.Msg)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = NewResponse()
	}
	parent.emit(msg.Contract, res.Events)
	return res, nil
}
