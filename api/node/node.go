// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package node serves the node status.
package node

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lsmpool/lsmpool/api/restutil"
	"github.com/lsmpool/lsmpool/health"
)

type Node struct {
	health *health.Health
}

func New(health *health.Health) *Node {
	return &Node{health}
}

func (n *Node) handleHealth(w http.ResponseWriter, _ *http.Request) error {
	status := n.health.Status()
	if !status.Healthy {
		w.Header().Set("Content-Type", restutil.JSONContentType)
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	return restutil.WriteJSON(w, status)
}

func (n *Node) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/health").
		Methods(http.MethodGet).
		Name("GET /node/health").
		HandlerFunc(restutil.WrapHandlerFunc(n.handleHealth))
}
