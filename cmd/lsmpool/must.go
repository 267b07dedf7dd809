// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/elastic/gosigar"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/lsmpool/lsmpool/genesis"
	"github.com/lsmpool/lsmpool/log"
	"github.com/lsmpool/lsmpool/logdb"
	"github.com/lsmpool/lsmpool/lsm"
	"github.com/lsmpool/lsmpool/lvldb"
	"github.com/lsmpool/lsmpool/metrics"
	"github.com/lsmpool/lsmpool/runtime"
)

// maxRequestBody caps the size of API request bodies.
const maxRequestBody = 200 * 1024

func initLogger(ctx *cli.Context) error {
	format, err := log.ParseFormat(ctx.String(logFormatFlag.Name))
	if err != nil {
		return err
	}
	var level slog.LevelVar
	level.Set(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))

	useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	log.SetDefault(log.NewLogger(log.NewHandler(os.Stderr, format, &level, useColor)))
	return nil
}

func selectGenesis(ctx *cli.Context) (*genesis.Genesis, error) {
	var gene *genesis.Genesis
	switch {
	case ctx.IsSet(genesisFlag.Name):
		g, err := genesis.Load(ctx.String(genesisFlag.Name))
		if err != nil {
			return nil, errors.WithMessage(err, "load genesis")
		}
		gene = g
	case ctx.Bool(devFlag.Name):
		gene = genesis.NewDevnet()
	default:
		return nil, errors.Errorf("either --%s or --%s is required", genesisFlag.Name, devFlag.Name)
	}
	if denom := ctx.String(bondDenomFlag.Name); denom != "" {
		for i := range gene.Accounts {
			if gene.Accounts[i].Denom == gene.BondDenom {
				gene.Accounts[i].Denom = denom
			}
		}
		gene.BondDenom = denom
	}
	return gene, nil
}

// instanceID identifies a genesis, so different networks never share a database.
func instanceID(gene *genesis.Genesis) (lsm.Bytes32, error) {
	data, err := yaml.Marshal(gene)
	if err != nil {
		return lsm.Bytes32{}, err
	}
	return lsm.Blake2b(data), nil
}

func makeInstanceDir(ctx *cli.Context, gene *genesis.Genesis) (string, error) {
	id, err := instanceID(gene)
	if err != nil {
		return "", err
	}
	dataDir := ctx.String(dataDirFlag.Name)
	instanceDir := filepath.Join(dataDir, fmt.Sprintf("instance-%x", id[:8]))
	if err := os.MkdirAll(instanceDir, 0700); err != nil {
		return "", errors.Wrapf(err, "create instance dir [%v]", instanceDir)
	}
	return instanceDir, nil
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".lsmpool")
	}
	return filepath.Join(os.TempDir(), "lsmpool")
}

func openMainDB(ctx *cli.Context, dataDir string, inMemory bool) (*lvldb.LevelDB, error) {
	if inMemory {
		db, err := lvldb.NewMem()
		return db, errors.Wrap(err, "open main database")
	}
	cacheMB := normalizeCacheSize(ctx.Int(cacheFlag.Name))
	dir := filepath.Join(dataDir, "main.db")
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              cacheMB,
		OpenFilesCacheCapacity: 500,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open main database [%v]", dir)
	}
	return db, nil
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 16 {
		sizeMB = 16
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		logger.Warn("failed to get total mem", "err", err)
	} else {
		// limit to 1/4 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 4)
		if limitMB >= 16 && sizeMB > limitMB {
			sizeMB = limitMB
			logger.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func openLogDB(dataDir string, inMemory bool) (*logdb.LogDB, error) {
	if inMemory {
		db, err := logdb.NewMem()
		return db, errors.Wrap(err, "open log database")
	}
	dir := filepath.Join(dataDir, "logs.db")
	db, err := logdb.New(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "open log database [%v]", dir)
	}
	return db, nil
}

func requestBodyLimit(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		h.ServeHTTP(w, r)
	})
}

// serve runs srv on listener until ctx is done.
func serve(ctx context.Context, group *errgroup.Group, srv *http.Server, listener net.Listener) {
	group.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// handleAPITimeout bounds plain requests. Websocket upgrades are long lived and
// need the hijackable writer, so they bypass the timeout.
func handleAPITimeout(h http.Handler, timeout time.Duration) http.Handler {
	limited := http.TimeoutHandler(h, timeout, `{"error":"request timeout"}`)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			h.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func startAPIServer(ctx context.Context, group *errgroup.Group, cliCtx *cli.Context, handler http.Handler) (string, error) {
	addr := cliCtx.String(apiAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", errors.Wrapf(err, "listen API addr [%v]", addr)
	}
	if timeout := cliCtx.Uint64(apiTimeoutFlag.Name); timeout > 0 {
		handler = handleAPITimeout(handler, time.Duration(timeout)*time.Millisecond)
	}
	handler = requestBodyLimit(handler)
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	serve(ctx, group, srv, listener)
	return "http://" + listener.Addr().String() + "/", nil
}

func startMetricsServer(ctx context.Context, group *errgroup.Group, addr string) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", errors.Wrapf(err, "listen metrics API addr [%v]", addr)
	}

	router := mux.NewRouter()
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	handler := handlers.CompressHandler(router)

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	serve(ctx, group, srv, listener)
	return "http://" + listener.Addr().String() + "/metrics", nil
}

func notifyExit(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}

func printStartupMessage(gene *genesis.Genesis, pool lsm.Address, rt *runtime.Runtime, dataDir, apiURL string) {
	height, err := rt.Height()
	if err != nil {
		logger.Warn("failed to read height", "err", err)
	}
	fmt.Printf(`Starting lsmpool %v
    Bond denom   [ %v ]
    Owner        [ %v ]
    Pool         [ %v ]
    Height       [ %v ]
    Instance dir [ %v ]
    API portal   [ %v ]
`,
		fullVersion(),
		gene.BondDenom,
		gene.Owner,
		pool,
		height,
		dataDir,
		apiURL)
}
