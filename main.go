package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"prism/pkg/acquire"
	"prism/pkg/api"
	"prism/pkg/chain"
	"prism/pkg/config"
	"prism/pkg/dashboard"
	"prism/pkg/feed"
	"prism/pkg/identity"
	"prism/pkg/logging"
	"prism/pkg/markup"
	"prism/pkg/server"
	"prism/pkg/store"
	"prism/pkg/tui"
	"prism/pkg/wallet"
	"prism/pkg/watcher"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version should be set during build
var Version = "dev"

type app struct {
	configFlag string
	levelFlag  string

	cfgPath string
	cfg     config.Config
	log     zerolog.Logger
	closers []io.Closer
}

func main() {
	a := &app{log: zerolog.Nop()}
	root := a.rootCommand()
	err := root.Execute()
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
}

func (a *app) rootCommand() *cobra.Command {
	var address string
	root := &cobra.Command{
		Use:           "prism",
		Short:         "Wallet profiles with a live activity feed",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// the alt screen owns the terminal, so logs go to a file
			if err := a.setupLogging(true); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, w, client := a.buildDashboard()
			w.Start(ctx)
			defer w.Stop()
			d.Start(address)
			defer d.Close()

			return tui.Start(d, w, client, a.cfg, Version)
		},
	}
	root.PersistentFlags().StringVar(&a.configFlag, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&a.levelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	root.Flags().StringVar(&address, "address", "", "Address to open, overriding the remembered selection")

	root.AddCommand(
		a.serveCommand(),
		a.profileCommand(),
		a.subscriptionsCommand(),
		a.normalizeCommand(),
		a.configCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version and exit",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "prism version %s\n", Version)
			},
		},
	)
	return root
}

func (a *app) loadConfig() error {
	path, err := config.GetConfigPath(a.configFlag)
	if err != nil {
		return fmt.Errorf("determining config path: %w", err)
	}
	cfg, err := config.LoadConfigFromFile(path)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := config.ApplyEnv(&cfg, ".env"); err != nil {
		return err
	}
	if a.levelFlag != "" {
		cfg.LogLevel = a.levelFlag
	}
	a.cfgPath = path
	a.cfg = cfg
	return nil
}

func (a *app) setupLogging(toFile bool) error {
	lc := logging.Config{Level: a.cfg.LogLevel, Pretty: true}
	if toFile {
		f, err := logging.OpenFile(a.cfg.LogFile)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		a.closers = append(a.closers, f)
		lc.Output = f
		lc.Pretty = false
	}
	a.log = logging.New(lc)
	return nil
}

func (a *app) openStore() store.KV {
	kv, err := store.OpenSQLite(a.cfg.StatePath)
	if err != nil {
		a.log.Warn().Err(err).Str("path", a.cfg.StatePath).Msg("state store unavailable, selection will not persist")
		return store.NewMemoryStore()
	}
	a.closers = append(a.closers, kv)
	return kv
}

func (a *app) apiClient() *api.Client {
	return api.NewClient(a.cfg.APIURL, a.cfg.RequestTimeout(), a.log)
}

func (a *app) engine(client *api.Client, kv store.KV) *acquire.Engine {
	e := acquire.NewEngine(client, kv, a.log)
	e.HoldingsLimit = a.cfg.HoldingsLimit
	e.TopTokens = a.cfg.TopTokens
	return e
}

func (a *app) buildDashboard() (*dashboard.Dashboard, *watcher.Watcher, *api.Client) {
	client := a.apiClient()
	kv := a.openStore()

	push := feed.NewPushClient(a.cfg.WebSocketURL(), nil, a.log)
	rec := feed.NewReconciler(client, push, a.log)
	rec.Interval = a.cfg.FeedInterval()
	rec.Limit = a.cfg.FeedLimit

	hub := watcher.NewHub()
	w := watcher.NewWatcher(client, a.cfg.WatchList, a.cfg.PriceInterval(), hub, a.log)

	deps := dashboard.Deps{
		Engine:   a.engine(client, kv),
		Feeds:    rec,
		Insights: client,
		Store:    kv,
		Hub:      hub,
	}
	if a.cfg.WalletKeypair != "" {
		deps.Wallet = wallet.NewKeyfileWallet(a.cfg.WalletKeypair, a.log)
	}
	if rpcs := a.cfg.EthRPCURLs; len(rpcs) > 0 {
		deps.Balance = func(ctx context.Context, address string) (chain.Balance, error) {
			return chain.EthBalance(ctx, rpcs, address)
		}
	}
	return dashboard.New(deps, a.log), w, client
}

func (a *app) serveCommand() *cobra.Command {
	var port int
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run headless, exposing the dashboard over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setupLogging(false); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, w, _ := a.buildDashboard()
			srv := server.NewServer(d, w, a.log)
			w.Start(ctx)
			defer w.Stop()
			d.Start(address)
			defer d.Close()

			a.log.Info().Int("port", port).Str("api", a.cfg.APIURL).Msg("running in server mode")
			return srv.Start(ctx, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "Port for API server")
	cmd.Flags().StringVar(&address, "address", "", "Address to open, overriding the remembered selection")
	return cmd
}

func (a *app) profileCommand() *cobra.Command {
	var asWallet bool
	cmd := &cobra.Command{
		Use:   "profile <address>",
		Short: "Load one profile, generating it if needed, and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := identity.Parse(args[0]); err != nil {
				return err
			}
			if err := a.setupLogging(false); err != nil {
				return err
			}
			client := a.apiClient()
			res, err := a.engine(client, a.openStore()).Acquire(cmd.Context(), args[0], asWallet)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"address":         res.Identity.String(),
				"chain":           res.Identity.Kind(),
				"isWalletProfile": res.IsWalletProfile,
				"onboarded":       res.Onboarded,
				"profile":         res.Profile,
				"summary":         res.Summary,
				"tokens":          res.Tokens,
				"nfts":            res.NFTs,
			})
		},
	}
	cmd.Flags().BoolVar(&asWallet, "wallet", false, "Remember the address as the connected wallet instead of the last search")
	return cmd
}

func (a *app) subscriptionsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subs"},
		Short:   "Manage the backend's tracked wallets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tracked wallets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setupLogging(false); err != nil {
				return err
			}
			subs, err := a.apiClient().ListSubscriptions(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(subs)
			}
			if len(subs) == 0 {
				fmt.Fprintln(out, "No wallets are being tracked.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ADDRESS\tWEBHOOK\tTRACKERS\tCREATED")
			for _, s := range subs {
				created := "-"
				if s.CreatedAt != nil {
					created = s.CreatedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Address, s.WebhookID, s.TrackedByCount, created)
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	del := &cobra.Command{
		Use:   "delete <webhook-id>",
		Short: "Delete a tracked wallet subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setupLogging(false); err != nil {
				return err
			}
			client := a.apiClient()
			if err := client.DeleteSubscription(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted subscription %s\n", args[0])
			subs, err := client.ListSubscriptions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d wallets still tracked\n", len(subs))
			return nil
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}

func (a *app) normalizeCommand() *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Clean AI-generated text from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			frag := markup.Normalize(string(raw))
			if asHTML {
				fmt.Fprintln(cmd.OutOrStdout(), frag.HTML())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), frag.Plain())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "Emit safe HTML instead of plain text")
	return cmd
}
