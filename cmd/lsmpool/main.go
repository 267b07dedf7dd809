// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/lsmpool/lsmpool/api"
	"github.com/lsmpool/lsmpool/builtin"
	"github.com/lsmpool/lsmpool/genesis"
	"github.com/lsmpool/lsmpool/health"
	"github.com/lsmpool/lsmpool/log"
	"github.com/lsmpool/lsmpool/logdb"
	"github.com/lsmpool/lsmpool/metrics"
	"github.com/lsmpool/lsmpool/runtime"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "lsmpool",
		Usage:   "Liquid staking pool node",
		Flags: []cli.Flag{
			genesisFlag,
			devFlag,
			dataDirFlag,
			persistFlag,
			cacheFlag,
			bondDenomFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiTimeoutFlag,
			apiLogsLimitFlag,
			enableAPILogsFlag,
			skipLogsFlag,
			pprofFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			verbosityFlag,
			logFormatFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:   "dump-genesis",
				Usage:  "print the development genesis as YAML",
				Action: dumpGenesisAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { logger.Info("exited") }()

	if err := initLogger(ctx); err != nil {
		return err
	}
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	gene, err := selectGenesis(ctx)
	if err != nil {
		return err
	}
	inMemory := ctx.Bool(devFlag.Name) && !ctx.Bool(persistFlag.Name)

	instanceDir := "memory"
	if !inMemory {
		if instanceDir, err = makeInstanceDir(ctx, gene); err != nil {
			return err
		}
	}

	mainDB, err := openMainDB(ctx, instanceDir, inMemory)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	var logDB *logdb.LogDB
	if !ctx.Bool(skipLogsFlag.Name) {
		if logDB, err = openLogDB(instanceDir, inMemory); err != nil {
			return err
		}
		defer func() { logger.Info("closing log database..."); logDB.Close() }()
	}

	rt := runtime.New(mainDB, logDB, gene.BondDenom)
	if err := builtin.Register(rt); err != nil {
		return err
	}
	nodeHealth := &health.Health{}
	rt.OnCommit(func(r *runtime.Receipt) { nodeHealth.NewCommit(r.Height) })

	pool, err := gene.Build(exitSignal, rt)
	if err != nil {
		return err
	}
	height, err := rt.Height()
	if err != nil {
		return err
	}
	nodeHealth.NewCommit(height)
	nodeHealth.SetReady(true)

	handler, closeSubs := api.New(rt, pool, logDB, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		LogsLimit:       ctx.Uint64(apiLogsLimitFlag.Name),
		PprofOn:         ctx.Bool(pprofFlag.Name),
		SkipLogs:        ctx.Bool(skipLogsFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
		EnableDev:       ctx.Bool(devFlag.Name),
		Health:          nodeHealth,
	})
	defer closeSubs()

	group, groupCtx := errgroup.WithContext(exitSignal)
	apiURL, err := startAPIServer(groupCtx, group, ctx, handler)
	if err != nil {
		return err
	}
	if ctx.Bool(enableMetricsFlag.Name) {
		metricsURL, err := startMetricsServer(groupCtx, group, ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return err
		}
		logger.Info("metrics server started", "url", metricsURL)
	}

	group.Go(func() error { return houseKeeping(groupCtx) })

	printStartupMessage(gene, pool, rt, instanceDir, apiURL)
	return group.Wait()
}

func dumpGenesisAction(_ *cli.Context) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(genesis.NewDevnet())
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		notifyExit(exitSignalCh)
		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}
