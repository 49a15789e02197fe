package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/proofofaudit/audit-registry-backend/advisor"
	"github.com/proofofaudit/audit-registry-backend/cmd/flags"
	"github.com/proofofaudit/audit-registry-backend/httpserver"
	"github.com/proofofaudit/audit-registry-backend/interfaces"
	"github.com/proofofaudit/audit-registry-backend/registry"
	"github.com/proofofaudit/audit-registry-backend/reportstore"
	"github.com/proofofaudit/audit-registry-backend/sources"
	"github.com/urfave/cli/v2"
)

var serverFlags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for API",
	},
	&cli.StringFlag{
		Name:     "admin",
		Required: true,
		Usage:    "initial administrator account address. 40-char hex string, 0x prefix optional",
	},
	&cli.StringFlag{
		Name:  "db-path",
		Value: "",
		Usage: "path to the sqlite database file; empty means an in-memory store",
	},
	&cli.StringSliceFlag{
		Name:  "report-location",
		Usage: "report storage backend URI (file://, s3://, ipfs://, vault://); repeatable, all configured backends form a fallback chain",
	},
	&cli.StringFlag{
		Name:  "sourcify-url",
		Value: sources.DefaultSourcifyURL,
		Usage: "Sourcify contract repository base URL",
	},
	&cli.StringSliceFlag{
		Name:  "explorer",
		Usage: "block explorer credential as chainID=apiURL[=apiKey]; repeatable",
	},
	&cli.StringSliceFlag{
		Name:  "rpc",
		Usage: "execution RPC endpoint as chainID=url, used for bytecode fallback; repeatable",
	},
	&cli.StringSliceFlag{
		Name:  "ipfs-gateway",
		Usage: "IPFS gateway base URL for report pointer resolution; repeatable, defaults to public gateways",
	},
	&cli.StringFlag{
		Name:  "advisor-endpoint",
		Value: "",
		Usage: "OpenAI-compatible chat completions URL for advisory generation; empty disables the endpoint",
	},
	&cli.StringFlag{
		Name:    "advisor-api-key",
		Value:   "",
		Usage:   "API key for the advisory model endpoint",
		EnvVars: []string{"ADVISOR_API_KEY"},
	},
	&cli.StringFlag{
		Name:  "advisor-model",
		Value: "llama-3.3-70b-versatile",
		Usage: "model name for advisory generation",
	},
}

func main() {
	app := &cli.App{
		Name:  "registry-server",
		Usage: "Serve the audit certificate registry API",
		Flags: joinFlags(serverFlags, flags.CommonFlags, []cli.Flag{flags.LogServiceFlagFn("registry-server")}),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			admin, err := interfaces.NewAddressFromHex(cCtx.String("admin"))
			if err != nil {
				logger.Error("Invalid admin address", "err", err)
				return err
			}

			// Certificate store: sqlite when a path is given, memory otherwise
			var store interfaces.RegistryStore
			if dbPath := cCtx.String("db-path"); dbPath != "" {
				logger.Info("Using sqlite certificate store", "path", dbPath)
				store, err = registry.NewSqliteStore(dbPath)
				if err != nil {
					logger.Error("Failed to open sqlite store", "err", err)
					return err
				}
			} else {
				logger.Info("Using in-memory certificate store")
				store = registry.NewMemoryStore()
			}
			defer store.Close()

			roles := registry.NewRoleStore(admin)
			notifier := registry.NewChanNotifier(logger)
			service := registry.NewService(roles, store, notifier, logger)

			reports, err := setupReports(cCtx, logger)
			if err != nil {
				return err
			}

			resolver, err := setupResolver(cCtx, logger)
			if err != nil {
				return err
			}

			var advisoryGen interfaces.AdvisoryGenerator
			if endpoint := cCtx.String("advisor-endpoint"); endpoint != "" {
				logger.Info("Advisory generation enabled", "endpoint", endpoint, "model", cCtx.String("advisor-model"))
				advisoryGen = advisor.NewClient(advisor.Config{
					Endpoint: endpoint,
					APIKey:   cCtx.String("advisor-api-key"),
					Model:    cCtx.String("advisor-model"),
					Log:      logger,
				})
			}

			handler := httpserver.NewHandler(service, reports, resolver, advisoryGen, logger)

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String("listen-addr"))
			server, err := httpserver.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func joinFlags(groups ...[]cli.Flag) []cli.Flag {
	var joined []cli.Flag
	for _, group := range groups {
		joined = append(joined, group...)
	}
	return joined
}

func setupReports(cCtx *cli.Context, logger *slog.Logger) (interfaces.ReportStorage, error) {
	rawLocations := cCtx.StringSlice("report-location")
	if len(rawLocations) == 0 {
		logger.Info("No report storage configured")
		return nil, nil
	}

	locations := make([]interfaces.ReportLocation, len(rawLocations))
	for i, raw := range rawLocations {
		locations[i] = interfaces.ReportLocation(raw)
	}

	reports, err := reportstore.NewFactory(logger).CreateMultiStore(locations)
	if err != nil {
		logger.Error("Failed to create report storage", "err", err)
		return nil, err
	}
	return reports, nil
}

func setupResolver(cCtx *cli.Context, logger *slog.Logger) (interfaces.SourceResolver, error) {
	providers := []sources.Provider{
		sources.NewSourcifyProvider(cCtx.String("sourcify-url")),
	}

	explorers, err := parseExplorers(cCtx.StringSlice("explorer"))
	if err != nil {
		logger.Error("Invalid explorer credential", "err", err)
		return nil, err
	}
	if len(explorers) > 0 {
		providers = append(providers, sources.NewExplorerProvider(explorers))
	}

	readers, err := dialRPCs(cCtx.StringSlice("rpc"), logger)
	if err != nil {
		return nil, err
	}
	if len(readers) > 0 {
		providers = append(providers, sources.NewBytecodeProvider(readers))
	}

	providers = append(providers, sources.NewGatewayProvider(cCtx.StringSlice("ipfs-gateway")))

	return sources.NewResolver(providers, logger), nil
}

// parseExplorers parses chainID=apiURL[=apiKey] entries.
func parseExplorers(entries []string) (map[interfaces.ChainID]sources.ExplorerCredential, error) {
	credentials := make(map[interfaces.ChainID]sources.ExplorerCredential, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, "=", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("malformed explorer entry %q, expected chainID=apiURL[=apiKey]", entry)
		}
		chainID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed chain id in explorer entry %q: %w", entry, err)
		}
		credential := sources.ExplorerCredential{APIURL: parts[1]}
		if len(parts) == 3 {
			credential.APIKey = parts[2]
		}
		credentials[interfaces.ChainID(chainID)] = credential
	}
	return credentials, nil
}

// dialRPCs parses chainID=url entries and dials each endpoint.
func dialRPCs(entries []string, logger *slog.Logger) (map[interfaces.ChainID]sources.CodeReader, error) {
	readers := make(map[interfaces.ChainID]sources.CodeReader, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed rpc entry %q, expected chainID=url", entry)
		}
		chainID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed chain id in rpc entry %q: %w", entry, err)
		}

		logger.Info("Connecting to execution RPC", "chainID", chainID, "address", parts[1])
		client, err := ethclient.Dial(parts[1])
		if err != nil {
			logger.Error("Failed to dial RPC", "err", err, "chainID", chainID)
			return nil, err
		}
		readers[interfaces.ChainID(chainID)] = client
	}
	return readers, nil
}
