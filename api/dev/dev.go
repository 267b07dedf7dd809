// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package dev exposes the simulated substrate to development clients:
// minting, validator setup, reward accrual and proposal lifecycle.
package dev

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/api/restutil"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/runtime"
	"github.com/lsmpool/lsmpool/substrate"
)

type Dev struct {
	rt *runtime.Runtime
}

func New(rt *runtime.Runtime) *Dev {
	return &Dev{rt}
}

func parseAccount(s, field string) (lsm.Address, error) {
	addr, err := lsm.ParseAddress(s, lsm.AccountPrefix)
	if err != nil {
		return "", restutil.BadRequest(errors.WithMessage(err, field))
	}
	return addr, nil
}

func parseAmount(a *lsm.Amount) error {
	if a == nil || a.Big().Sign() <= 0 {
		return restutil.BadRequest(errors.New("amount: must be positive"))
	}
	return nil
}

func (d *Dev) update(req *http.Request, method string, fn func(sim *substrate.Simulated) error) error {
	_, err := d.rt.Update(req.Context(), method, func(_ *runtime.Env, sim *substrate.Simulated) error {
		return fn(sim)
	})
	return err
}

func (d *Dev) handleMint(w http.ResponseWriter, req *http.Request) error {
	var body MintRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	addr, err := parseAccount(string(body.Address), "address")
	if err != nil {
		return err
	}
	if err := parseAmount(body.Amount); err != nil {
		return err
	}
	denom := body.Denom
	if denom == "" {
		denom = d.rt.BondDenom()
	}
	coin := lsm.NewCoin(denom, body.Amount.Big())
	if err := d.update(req, "dev_mint", func(sim *substrate.Simulated) error {
		return sim.Mint(addr, coin)
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, coin)
}

func (d *Dev) handleMintShares(w http.ResponseWriter, req *http.Request) error {
	var body SharesRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	addr, err := parseAccount(string(body.Owner), "owner")
	if err != nil {
		return err
	}
	if err := parseAmount(body.Amount); err != nil {
		return err
	}
	var share lsm.Coin
	if err := d.update(req, "dev_shares", func(sim *substrate.Simulated) (err error) {
		share, err = sim.MintShares(addr, body.Validator, body.Amount.Big())
		return
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, share)
}

func (d *Dev) handleAddValidator(w http.ResponseWriter, req *http.Request) error {
	var body ValidatorRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Validator == "" {
		return restutil.BadRequest(errors.New("validator: required"))
	}
	if err := d.update(req, "dev_validator", func(sim *substrate.Simulated) error {
		return sim.AddValidator(body.Validator)
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, &body)
}

func (d *Dev) handleAccrueRewards(w http.ResponseWriter, req *http.Request) error {
	var body RewardsRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	addr, err := parseAccount(string(body.Delegator), "delegator")
	if err != nil {
		return err
	}
	if err := parseAmount(body.Amount); err != nil {
		return err
	}
	if err := d.update(req, "dev_rewards", func(sim *substrate.Simulated) error {
		return sim.AccrueRewards(addr, body.Validator, body.Amount.Big())
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, &body)
}

func parseProposalID(req *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return 0, restutil.BadRequest(errors.WithMessage(err, "id"))
	}
	return id, nil
}

func (d *Dev) handlePutProposal(w http.ResponseWriter, req *http.Request) error {
	id, err := parseProposalID(req)
	if err != nil {
		return err
	}
	var body ProposalRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	status, err := lsm.ParseProposalStatus(body.Status)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "status"))
	}
	if err := d.update(req, "dev_proposal", func(sim *substrate.Simulated) error {
		return sim.SetProposal(id, status)
	}); err != nil {
		return err
	}
	return d.writeProposal(w, req, id)
}

func (d *Dev) handleDeleteProposal(w http.ResponseWriter, req *http.Request) error {
	id, err := parseProposalID(req)
	if err != nil {
		return err
	}
	if err := d.update(req, "dev_proposal", func(sim *substrate.Simulated) error {
		return sim.RemoveProposal(id)
	}); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (d *Dev) handleGetProposal(w http.ResponseWriter, req *http.Request) error {
	id, err := parseProposalID(req)
	if err != nil {
		return err
	}
	return d.writeProposal(w, req, id)
}

func (d *Dev) writeProposal(w http.ResponseWriter, req *http.Request, id uint64) error {
	var (
		res   = &Proposal{ID: id}
		found bool
	)
	err := d.rt.View(req.Context(), func(_ *runtime.Env, sim *substrate.Simulated) error {
		status, ok, err := sim.ProposalStatus(id)
		if err != nil {
			return err
		}
		found = ok
		res.Status = status.String()
		res.Votes, err = sim.VoteCount(id)
		return err
	})
	if err != nil {
		return err
	}
	if !found {
		return restutil.NotFound(errors.Errorf("proposal %d not found", id))
	}
	return restutil.WriteJSON(w, res)
}

func (d *Dev) handleGetBalance(w http.ResponseWriter, req *http.Request) error {
	addr, err := parseAccount(mux.Vars(req)["address"], "address")
	if err != nil {
		return err
	}
	denom := req.URL.Query().Get("denom")
	if denom == "" {
		denom = d.rt.BondDenom()
	}
	res := &Balance{Address: addr, Denom: denom}
	err = d.rt.View(req.Context(), func(_ *runtime.Env, sim *substrate.Simulated) error {
		amount, err := sim.Balance(addr, denom)
		if err != nil {
			return err
		}
		res.Amount = lsm.NewAmount(amount)
		unbonding, err := sim.Unbonding(addr)
		if err != nil {
			return err
		}
		res.Unbonding = lsm.NewAmount(unbonding)
		return nil
	})
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, res)
}

func (d *Dev) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/mint").
		Methods(http.MethodPost).
		Name("POST /dev/mint").
		HandlerFunc(restutil.WrapHandlerFunc(d.handleMint))
	sub.Path("/shares").
		Methods(http.MethodPost).
		Name("POST /dev/shares").
		HandlerFunc(restutil.WrapHandlerFunc(d.handleMintShares))
	sub.Path("/validators").
		Methods(http.MethodPost).
		Name("POST /dev/validators").
		HandlerFunc(restutil.WrapHandlerFunc(d.handleAddValidator))
	sub.Path("/rewards").
		Methods(http.MethodPost).
		Name("POST /dev/rewards").
		HandlerFunc(restutil.WrapHandlerFunc(d.handleAccrueRewards))
	sub.Path("/proposals/{id}").
		Methods(http.MethodGet).
		Name("GET /dev/proposals/{id}").
		HandlerFunc(restutil.WrapHandlerFunc(d.handleGetProposal))
	sub.Path("/proposals/{id}").
		Methods(http.MethodPut).
		Name("PUT /dev/proposals/{id}").
		HandlerFunc(restutil.WrapHandlerFunc(d.handlePutProposal))
	sub.Path("/proposals/{id}").
		Methods(http.MethodDelete).
		Name("DELETE /dev/proposals/{id}").
		HandlerFunc(restutil.WrapHandlerFunc(d.handleDeleteProposal))
	sub.Path("/balances/{address}").
		Methods(http.MethodGet).
		Name("GET /dev/balances/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(d.handleGetBalance))
}
