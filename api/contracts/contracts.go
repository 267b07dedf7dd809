// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package contracts lets clients execute and query any contract instance.
package contracts

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/api/restutil"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/runtime"
)

type Contracts struct {
	rt *runtime.Runtime
}

func New(rt *runtime.Runtime) *Contracts {
	return &Contracts{rt}
}

func parseContract(req *http.Request) (lsm.Address, error) {
	addr, err := lsm.ParseAddress(mux.Vars(req)["address"], lsm.AccountPrefix)
	if err != nil {
		return "", restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	return addr, nil
}

func (c *Contracts) handleExecute(w http.ResponseWriter, req *http.Request) error {
	contract, err := parseContract(req)
	if err != nil {
		return err
	}
	var body ExecuteRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if _, err := lsm.ParseAddress(string(body.Sender), lsm.AccountPrefix); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "sender"))
	}
	if len(body.Msg) == 0 {
		return restutil.BadRequest(errors.New("msg: required"))
	}
	receipt, err := c.rt.Execute(req.Context(), body.Sender, contract, body.Msg, body.Funds)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, convertReceipt(receipt))
}

func (c *Contracts) handleQuery(w http.ResponseWriter, req *http.Request) error {
	contract, err := parseContract(req)
	if err != nil {
		return err
	}
	var body QueryRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if len(body.Msg) == 0 {
		return restutil.BadRequest(errors.New("msg: required"))
	}
	res, err := c.rt.Query(req.Context(), contract, body.Msg)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, res)
}

func (c *Contracts) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{address}/execute").
		Methods(http.MethodPost).
		Name("POST /contracts/{address}/execute").
		HandlerFunc(restutil.WrapHandlerFunc(c.handleExecute))
	sub.Path("/{address}/query").
		Methods(http.MethodPost).
		Name("POST /contracts/{address}/query").
		HandlerFunc(restutil.WrapHandlerFunc(c.handleQuery))
}
