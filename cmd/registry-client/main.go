package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/proofofaudit/audit-registry-backend/client"
	"github.com/proofofaudit/audit-registry-backend/cmd/flags"
	"github.com/proofofaudit/audit-registry-backend/interfaces"
	"github.com/urfave/cli/v2"
)

var flagContract = &cli.StringFlag{
	Name:  "contract",
	Usage: "Audited contract address. 40-char hex string, 0x prefix optional",
}
var flagChainID = &cli.Int64Flag{
	Name:  "chain-id",
	Value: 1,
	Usage: "Chain the contract is deployed on",
}
var flagBeneficiary = &cli.StringFlag{
	Name:  "beneficiary",
	Usage: "Certificate beneficiary address",
}
var flagScore = &cli.IntFlag{
	Name:  "score",
	Usage: "Audit score, 1-100",
}
var flagReportPointer = &cli.StringFlag{
	Name:  "report-pointer",
	Usage: "Opaque report pointer, typically an IPFS CID",
}
var flagID = &cli.Uint64Flag{
	Name:     "id",
	Required: true,
	Usage:    "Certificate id",
}
var flagRole = &cli.StringFlag{
	Name:     "role",
	Required: true,
	Usage:    "Role name: administrator or auditor",
}
var flagAccount = &cli.StringFlag{
	Name:     "account",
	Required: true,
	Usage:    "Account address the role operation applies to",
}
var flagSourceFile = &cli.StringFlag{
	Name:  "source-file",
	Usage: "Read contract source to analyze from a file instead of resolving it",
}

func main() {
	app := &cli.App{
		Name:  "registry-client",
		Usage: "Command line client for the audit certificate registry",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
		},
		Commands: []*cli.Command{
			{
				Name:        "issue",
				Usage:       "Issue a new audit certificate",
				Description: "Requires the auditor role. The caller becomes the certificate issuer.",
				Flags:       []cli.Flag{flags.CallerFlag, flagBeneficiary, flagContract, flagChainID, flagScore, flagReportPointer},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					cert, err := c.Issue(context.Background(), client.IssueRequest{
						Beneficiary:   cCtx.String(flagBeneficiary.Name),
						Contract:      cCtx.String(flagContract.Name),
						ChainID:       cCtx.Int64(flagChainID.Name),
						Score:         cCtx.Int(flagScore.Name),
						ReportPointer: cCtx.String(flagReportPointer.Name),
					})
					if err != nil {
						return err
					}
					return printJSON(cert)
				},
			},
			{
				Name:        "revoke",
				Usage:       "Revoke an audit certificate",
				Description: "The caller must be the certificate's issuer (still holding the auditor role) or an administrator.",
				Flags:       []cli.Flag{flags.CallerFlag, flagID},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					cert, err := c.Revoke(context.Background(), interfaces.CertificateID(cCtx.Uint64(flagID.Name)))
					if err != nil {
						return err
					}
					return printJSON(cert)
				},
			},
			{
				Name:  "get",
				Usage: "Fetch a certificate by id",
				Flags: []cli.Flag{flagID},
				Action: func(cCtx *cli.Context) error {
					c := &client.RegistryClient{ServerAddr: cCtx.String(flags.ServerAddrFlag.Name)}
					cert, err := c.GetCertificate(context.Background(), interfaces.CertificateID(cCtx.Uint64(flagID.Name)))
					if err != nil {
						return err
					}
					return printJSON(cert)
				},
			},
			{
				Name:  "list",
				Usage: "List all certificates for a contract in issuance order",
				Flags: []cli.Flag{flagContract, flagChainID},
				Action: func(cCtx *cli.Context) error {
					contract, err := interfaces.NewAddressFromHex(cCtx.String(flagContract.Name))
					if err != nil {
						return err
					}
					c := &client.RegistryClient{ServerAddr: cCtx.String(flags.ServerAddrFlag.Name)}
					certs, err := c.ListCertificates(context.Background(), interfaces.ChainID(cCtx.Int64(flagChainID.Name)), contract)
					if err != nil {
						return err
					}
					return printJSON(certs)
				},
			},
			{
				Name:  "grant-role",
				Usage: "Grant a role to an account (administrator only)",
				Flags: []cli.Flag{flags.CallerFlag, flagRole, flagAccount},
				Action: func(cCtx *cli.Context) error {
					return roleAction(cCtx, func(c *client.RegistryClient, role interfaces.Role, account interfaces.Address) error {
						return c.GrantRole(context.Background(), role, account)
					})
				},
			},
			{
				Name:  "revoke-role",
				Usage: "Revoke a role from an account (administrator only)",
				Flags: []cli.Flag{flags.CallerFlag, flagRole, flagAccount},
				Action: func(cCtx *cli.Context) error {
					return roleAction(cCtx, func(c *client.RegistryClient, role interfaces.Role, account interfaces.Address) error {
						return c.RevokeRole(context.Background(), role, account)
					})
				},
			},
			{
				Name:  "resolve-source",
				Usage: "Resolve contract source or bytecode through the server's provider chain",
				Flags: []cli.Flag{flagContract, flagChainID},
				Action: func(cCtx *cli.Context) error {
					contract, err := interfaces.NewAddressFromHex(cCtx.String(flagContract.Name))
					if err != nil {
						return err
					}
					c := &client.RegistryClient{ServerAddr: cCtx.String(flags.ServerAddrFlag.Name)}
					resolved, err := c.ResolveSource(context.Background(), interfaces.ChainID(cCtx.Int64(flagChainID.Name)), contract)
					if err != nil {
						return err
					}
					return printJSON(resolved)
				},
			},
			{
				Name:  "analyze",
				Usage: "Generate a security advisory for a contract or source file",
				Flags: []cli.Flag{flagContract, flagChainID, flagSourceFile},
				Action: func(cCtx *cli.Context) error {
					req := client.AnalyzeRequest{
						Contract: cCtx.String(flagContract.Name),
						ChainID:  cCtx.Int64(flagChainID.Name),
					}
					if path := cCtx.String(flagSourceFile.Name); path != "" {
						source, err := os.ReadFile(path)
						if err != nil {
							return err
						}
						req = client.AnalyzeRequest{Source: string(source)}
					}
					c := &client.RegistryClient{ServerAddr: cCtx.String(flags.ServerAddrFlag.Name)}
					advisory, err := c.Analyze(context.Background(), req)
					if err != nil {
						return err
					}
					return printJSON(advisory)
				},
			},
			{
				Name:      "store-report",
				Usage:     "Upload an audit report, printing its content id",
				ArgsUsage: "<report-file>",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return fmt.Errorf("expected exactly one report file argument")
					}
					report, err := os.ReadFile(cCtx.Args().First())
					if err != nil {
						return err
					}
					c := &client.RegistryClient{ServerAddr: cCtx.String(flags.ServerAddrFlag.Name)}
					stored, err := c.StoreReport(context.Background(), report)
					if err != nil {
						return err
					}
					return printJSON(stored)
				},
			},
			{
				Name:      "fetch-report",
				Usage:     "Download an audit report by content id",
				ArgsUsage: "<content-id>",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return fmt.Errorf("expected exactly one content id argument")
					}
					id, err := interfaces.NewContentIDFromHex(cCtx.Args().First())
					if err != nil {
						return err
					}
					c := &client.RegistryClient{ServerAddr: cCtx.String(flags.ServerAddrFlag.Name)}
					report, err := c.FetchReport(context.Background(), id)
					if err != nil {
						return err
					}
					_, err = os.Stdout.Write(report)
					return err
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) (*client.RegistryClient, error) {
	caller, err := interfaces.NewAddressFromHex(cCtx.String(flags.CallerFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid caller address: %w", err)
	}
	return &client.RegistryClient{
		ServerAddr: cCtx.String(flags.ServerAddrFlag.Name),
		Caller:     caller,
	}, nil
}

func roleAction(cCtx *cli.Context, apply func(*client.RegistryClient, interfaces.Role, interfaces.Address) error) error {
	c, err := newClient(cCtx)
	if err != nil {
		return err
	}
	role, err := interfaces.ParseRole(cCtx.String(flagRole.Name))
	if err != nil {
		return err
	}
	account, err := interfaces.NewAddressFromHex(cCtx.String(flagAccount.Name))
	if err != nil {
		return err
	}
	if err := apply(c, role, account); err != nil {
		return err
	}
	fmt.Printf("%s %s for %s: ok\n", cCtx.Command.Name, role.String(), account.String())
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
