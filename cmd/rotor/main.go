// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/rotorlabs/rotor/log"
	"github.com/rotorlabs/rotor/staking"
)

var (
	version    string
	gitCommit  string
	mainLogger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	if version == "" {
		return "dev"
	}
	return fmt.Sprintf("%s-%s", version, gitCommit)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Rotor",
		Usage:     "Round-based staking reward engine",
		Copyright: "2025 The Rotor developers",
		Flags: []cli.Flag{
			genesisFlag,
			dataDirFlag,
			persistFlag,
			blockIntervalFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { mainLogger.Info("exited") }()

	initLogger(ctx)
	stopMetrics := startMetricsServer(ctx)
	defer stopMetrics()

	gene := devGenesis()
	if path := ctx.String(genesisFlag.Name); path != "" {
		var err error
		if gene, err = loadGenesis(path); err != nil {
			return err
		}
	}
	cfg, err := gene.config()
	if err != nil {
		return err
	}

	mainDB, err := openMainDB(ctx)
	if err != nil {
		return err
	}
	defer func() { mainLogger.Info("closing main database..."); mainDB.Close() }()

	ledger := staking.NewMemLedger()
	pool := staking.NewCandidatePool(mainDB, ledger)
	if err := gene.seed(ledger, pool); err != nil {
		return err
	}

	engine, err := staking.New(mainDB, pool, ledger, loggingSink(), cfg)
	if err != nil {
		return err
	}

	round, err := engine.CurrentRound()
	if err != nil {
		return err
	}
	mainLogger.Info("engine started",
		"round", round.Index,
		"roundLength", cfg.RoundLength,
		"payoutDelay", cfg.PayoutDelay,
		"maxSelected", cfg.MaxSelected,
	)

	interval := time.Duration(ctx.Uint64(blockIntervalFlag.Name)) * time.Second
	return newNode(engine, interval).Run(handleExitSignal())
}
