// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pool serves the read endpoints of the staking pool.
package pool

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/api/restutil"
	"github.com/lsmpool/lsmpool/builtin/pool"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/runtime"
)

type Pool struct {
	rt   *runtime.Runtime
	addr lsm.Address
}

func New(rt *runtime.Runtime, addr lsm.Address) *Pool {
	return &Pool{
		rt,
		addr,
	}
}

func (p *Pool) query(w http.ResponseWriter, req *http.Request, msg *pool.QueryMsg) error {
	res, err := p.rt.Query(req.Context(), p.addr, msg)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, res)
}

func (p *Pool) handleGetConfig(w http.ResponseWriter, req *http.Request) error {
	res, err := p.rt.Query(req.Context(), p.addr, &pool.QueryMsg{Config: &struct{}{}})
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &Config{
		Address:        p.addr,
		ConfigResponse: res.(*pool.ConfigResponse),
	})
}

func (p *Pool) handleGetStaker(w http.ResponseWriter, req *http.Request) error {
	addr, err := lsm.ParseAddress(mux.Vars(req)["address"], lsm.AccountPrefix)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	return p.query(w, req, &pool.QueryMsg{StakerInfo: &pool.StakerInfoMsg{Address: addr}})
}

func (p *Pool) handleGetStakers(w http.ResponseWriter, req *http.Request) error {
	msg := &pool.StakersMsg{}
	if s := req.URL.Query().Get("startAfter"); s != "" {
		addr, err := lsm.ParseAddress(s, lsm.AccountPrefix)
		if err != nil {
			return restutil.BadRequest(errors.WithMessage(err, "startAfter"))
		}
		msg.StartAfter = addr
	}
	if s := req.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			return restutil.BadRequest(errors.New("limit: expected a non-negative integer"))
		}
		msg.Limit = limit
	}
	return p.query(w, req, &pool.QueryMsg{Stakers: msg})
}

func (p *Pool) handleGetTotal(w http.ResponseWriter, req *http.Request) error {
	return p.query(w, req, &pool.QueryMsg{TotalStaked: &struct{}{}})
}

func (p *Pool) handleGetIndex(w http.ResponseWriter, req *http.Request) error {
	return p.query(w, req, &pool.QueryMsg{RewardIndex: &struct{}{}})
}

func (p *Pool) handleGetProposal(w http.ResponseWriter, req *http.Request) error {
	return p.query(w, req, &pool.QueryMsg{Proposal: &struct{}{}})
}

func (p *Pool) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /pool").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetConfig))
	sub.Path("/stakers").
		Methods(http.MethodGet).
		Name("GET /pool/stakers").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetStakers))
	sub.Path("/stakers/{address}").
		Methods(http.MethodGet).
		Name("GET /pool/stakers/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetStaker))
	sub.Path("/total").
		Methods(http.MethodGet).
		Name("GET /pool/total").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetTotal))
	sub.Path("/index").
		Methods(http.MethodGet).
		Name("GET /pool/index").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetIndex))
	sub.Path("/proposal").
		Methods(http.MethodGet).
		Name("GET /pool/proposal").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetProposal))
}
