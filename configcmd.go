package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"prism/pkg/api"
	"prism/pkg/chain"
	"prism/pkg/config"
	"prism/pkg/models"
	"prism/pkg/wallet"

	"github.com/spf13/cobra"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage the configuration file",
	}

	var asJSON bool
	test := &cobra.Command{
		Use:   "test",
		Short: "Validate the configuration and check the backend and RPCs",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := runConfigTest(cmd.Context(), a.cfgPath, a.cfg, a.apiClient(), cmd.OutOrStdout(), asJSON)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				_ = enc.Encode(report)
			}
			if !report.OK() {
				return fmt.Errorf("configuration test failed")
			}
			return nil
		},
	}
	test.Flags().BoolVar(&asJSON, "json", false, "Output test results as JSON")

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(a.cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite, a backup is kept)", a.cfgPath)
			}
			if err := config.SaveConfig(config.Default(), a.cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", a.cfgPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	restore := &cobra.Command{
		Use:   "restore",
		Short: "Restore the most recent configuration backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.RestoreLastBackup(a.cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored last backup of %s\n", a.cfgPath)
			return nil
		},
	}

	cmd.AddCommand(test, initCmd, restore)
	return cmd
}

// runConfigTest checks the structure, the backend and every ETH RPC. Progress
// is written to out unless quiet.
func runConfigTest(ctx context.Context, path string, cfg config.Config, client *api.Client, out io.Writer, quiet bool) models.TestReport {
	say := func(format string, args ...interface{}) {
		if !quiet {
			fmt.Fprintf(out, format, args...)
		}
	}

	report := models.TestReport{
		ConfigPath:     path,
		ValidStructure: true,
		WatchListSize:  len(cfg.WatchList),
	}
	say("Testing configuration at: %s\n", path)

	for _, msg := range cfg.Validate() {
		report.ValidStructure = false
		report.StructureErrors = append(report.StructureErrors, msg)
		say("Error: %s\n", msg)
	}

	report.Backend.URL = cfg.APIURL
	say("Backend: %s ... ", cfg.APIURL)
	code, latency, err := client.Ping(ctx)
	switch {
	case err != nil:
		report.Backend.Status = "error"
		report.Backend.Error = err.Error()
		say("Failed: %v\n", err)
	case code >= http.StatusInternalServerError:
		report.Backend.Status = "error"
		report.Backend.StatusCode = code
		report.Backend.Error = fmt.Sprintf("unexpected status %d", code)
		say("Failed: status %d\n", code)
	default:
		report.Backend.Status = "ok"
		report.Backend.StatusCode = code
		report.Backend.LatencyMS = latency.Milliseconds()
		say("OK (%d, %dms)\n", code, latency.Milliseconds())
	}

	if len(cfg.EthRPCURLs) == 0 {
		say("No ETH RPC URLs configured, on-chain balances disabled.\n")
	}
	for _, rpc := range cfg.EthRPCURLs {
		say("  RPC: %s ... ", rpc)
		check := chain.CheckRPC(ctx, rpc)
		res := models.RPCResult{URL: rpc}
		if check.Err != nil {
			res.Status = "error"
			res.Error = check.Err.Error()
			say("Failed: %v\n", check.Err)
		} else {
			res.Status = "ok"
			res.ChainID = check.ChainID.Int64()
			res.LatencyMS = check.Latency.Milliseconds()
			say("OK (ChainID: %s)\n", check.ChainID.String())
		}
		report.RPCs = append(report.RPCs, res)
	}

	if cfg.WalletKeypair != "" {
		report.WalletKeypair = cfg.WalletKeypair
		addr, err := wallet.LoadKeypairAddress(cfg.WalletKeypair)
		if err != nil {
			report.WalletError = err.Error()
			say("Wallet keypair: %v\n", err)
		} else {
			report.WalletAddress = addr
			say("Wallet keypair: %s\n", addr)
		}
	}

	return report
}
