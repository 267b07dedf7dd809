// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package lockers serves the state of vote locker instances.
package lockers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/api/restutil"
	"github.com/lsmpool/lsmpool/builtin"
	"github.com/lsmpool/lsmpool/builtin/locker"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/runtime"
	"github.com/lsmpool/lsmpool/substrate"
)

type Lockers struct {
	rt *runtime.Runtime
}

func New(rt *runtime.Runtime) *Lockers {
	return &Lockers{rt}
}

// Locker is the combined view of a locker instance.
type Locker struct {
	Address lsm.Address `json:"address"`
	*locker.ConfigResponse
	VotingPower *lsm.Amount `json:"voting_power"`
	Vote        string      `json:"vote,omitempty"`
}

func (l *Lockers) handleGetLocker(w http.ResponseWriter, req *http.Request) error {
	addr, err := lsm.ParseAddress(mux.Vars(req)["address"], lsm.AccountPrefix)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}

	err = l.rt.View(req.Context(), func(env *runtime.Env, _ *substrate.Simulated) error {
		inst, err := env.Instance(addr)
		if err != nil {
			return err
		}
		if inst == nil || inst.CodeID != builtin.LockerCodeID {
			return restutil.NotFound(errors.Errorf("no locker at %s", addr))
		}
		return nil
	})
	if err != nil {
		return err
	}

	cfg, err := l.rt.Query(req.Context(), addr, &locker.QueryMsg{Config: &struct{}{}})
	if err != nil {
		return err
	}
	power, err := l.rt.Query(req.Context(), addr, &locker.QueryMsg{TotalVotingPower: &struct{}{}})
	if err != nil {
		return err
	}
	conf := cfg.(*locker.ConfigResponse)
	var vote string
	if conf.Voted {
		err = l.rt.View(req.Context(), func(_ *runtime.Env, sim *substrate.Simulated) error {
			option, err := sim.VoteOf(addr, conf.ProposalID)
			if err != nil {
				return err
			}
			if option.Valid() {
				vote = option.String()
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return restutil.WriteJSON(w, &Locker{
		Address:        addr,
		ConfigResponse: conf,
		VotingPower:    power.(*locker.VotingPowerResponse).Amount,
		Vote:           vote,
	})
}

func (l *Lockers) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{address}").
		Methods(http.MethodGet).
		Name("GET /lockers/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(l.handleGetLocker))
}
