// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/lsmpool/lsmpool/api/contracts"
	"github.com/lsmpool/lsmpool/api/dev"
	"github.com/lsmpool/lsmpool/api/doc"
	"github.com/lsmpool/lsmpool/api/events"
	"github.com/lsmpool/lsmpool/api/lockers"
	"github.com/lsmpool/lsmpool/api/node"
	"github.com/lsmpool/lsmpool/api/pool"
	"github.com/lsmpool/lsmpool/api/subscriptions"
	"github.com/lsmpool/lsmpool/health"
	"github.com/lsmpool/lsmpool/log"
	"github.com/lsmpool/lsmpool/logdb"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/runtime"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins  string
	LogsLimit       uint64
	PprofOn         bool
	SkipLogs        bool
	EnableReqLogger bool
	EnableMetrics   bool
	// EnableDev mounts the simulated substrate endpoints.
	EnableDev       bool
	Health          *health.Health
}

// New return api router and a function closing the websocket subscriptions.
func New(
	rt *runtime.Runtime,
	poolAddr lsm.Address,
	logDB *logdb.LogDB,
	opts Options,
) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	router.PathPrefix("/doc").Handler(
		http.StripPrefix("/doc/", http.FileServer(http.FS(doc.FS))),
	)
	router.Path("/").HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "doc/lsmpool.yaml", http.StatusTemporaryRedirect)
		})

	pool.New(rt, poolAddr).
		Mount(router, "/pool")
	lockers.New(rt).
		Mount(router, "/lockers")
	contracts.New(rt).
		Mount(router, "/contracts")
	if !opts.SkipLogs && logDB != nil {
		events.New(logDB, opts.LogsLimit).
			Mount(router, "/events")
	}
	subs := subscriptions.New(origins)
	rt.OnCommit(subs.Publish)
	subs.Mount(router, "/subscriptions")
	if opts.Health != nil {
		node.New(opts.Health).
			Mount(router, "/node")
	}
	if opts.EnableDev {
		dev.New(rt).
			Mount(router, "/dev")
	}

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader, "x-lsmpool-ver"}),
	)(handler)
	handler = versionHandler(handler)

	if opts.EnableReqLogger {
		handler = RequestLoggerHandler(handler, logger)
	}
	return handler.ServeHTTP, subs.Close // subscriptions handles hijacked conns, which need to be closed
}

func versionHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-lsmpool-ver", doc.Version())
		h.ServeHTTP(w, r)
	})
}
