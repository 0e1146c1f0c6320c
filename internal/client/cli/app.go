package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/memvault/internal/client/client"
	"github.com/dmitrijs2005/memvault/internal/client/config"
	pb "github.com/dmitrijs2005/memvault/internal/proto"
	"github.com/dmitrijs2005/memvault/internal/server/auth"
)

type App struct {
	config    *config.Config
	out       io.Writer
	newClient func(addr, token string) (client.Client, error)
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		out:    os.Stdout,
		newClient: func(addr, token string) (client.Client, error) {
			return client.NewIntakeClient(addr, token)
		},
	}
}

// Run builds the command tree and executes it with args.
func (a *App) Run(ctx context.Context, args []string) error {
	if args == nil {
		args = []string{}
	}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.out)
	return root.ExecuteContext(ctx)
}

func (a *App) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vaultctl",
		Short: "memvault operator and member CLI",
		Long: `vaultctl talks to the memvault intake service.

Examples:
  # Mint a token for a member (prompts for the server secret)
  vaultctl token --email owner@example.com

  # Submit files for a unit
  MEMVAULT_TOKEN=... vaultctl submit --unit A-104 --files "https://.../d/<id>/view"

  # Run a reconciliation pass now
  vaultctl -k <operator token> run-pass`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// -c is read by config.LoadConfig before the tree is built.
	root.PersistentFlags().StringP("config", "c", "", "config file path")
	root.PersistentFlags().StringVarP(&a.config.ServerEndpointAddr, "addr", "a", a.config.ServerEndpointAddr, "address and port of the memvault server")
	root.PersistentFlags().StringVarP(&a.config.AccessToken, "token", "k", a.config.AccessToken, "access token (default $"+config.TokenEnv+")")
	root.PersistentFlags().DurationVar(&a.config.Timeout, "timeout", a.config.Timeout, "per-call timeout")

	root.AddCommand(
		a.tokenCmd(),
		a.pingCmd(),
		a.submitCmd(),
		a.runPassCmd(),
		a.registerCmd(),
		a.seedLedgerCmd(),
		a.auditLogCmd(),
	)
	return root
}

// withClient dials the server, applies the call timeout and runs fn.
func (a *App) withClient(fn func(ctx context.Context, c client.Client, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		c, err := a.newClient(a.config.ServerEndpointAddr, a.config.AccessToken)
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()
		if a.config.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
			defer cancel()
		}
		return fn(ctx, c, cmd.OutOrStdout())
	}
}

func (a *App) tokenCmd() *cobra.Command {
	var (
		email string
		role  string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token with the server secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			secret, err := GetSecret(out, "Server secret key: ")
			if err != nil {
				return err
			}
			defer clear(secret)

			tok, err := auth.GenerateToken(email, role, secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, tok)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "identity the token is issued to")
	cmd.Flags().StringVarP(&role, "role", "r", auth.RoleMember, "member or operator")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token validity")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *App) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the server is reachable",
		Args:  cobra.NoArgs,
		RunE: a.withClient(func(ctx context.Context, c client.Client, out io.Writer) error {
			if err := c.Ping(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "OK")
			return nil
		}),
	}
}

func (a *App) submitCmd() *cobra.Command {
	var req pb.SubmitRequest
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Send a submission as the token's identity",
		Args:  cobra.NoArgs,
		RunE: a.withClient(func(ctx context.Context, c client.Client, out io.Writer) error {
			resp, err := c.Submit(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "outcome: %s\naccepted: %d\nbytes: %d\n", resp.Outcome, resp.Accepted, resp.AddedBytes)
			if resp.Reason != "" {
				fmt.Fprintf(out, "reason: %s\n", resp.Reason)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&req.UnitKey, "unit", "u", "", "unit key")
	cmd.Flags().StringVarP(&req.OwnerName, "name", "n", "", "owner name")
	cmd.Flags().StringVarP(&req.Phone, "phone", "p", "", "phone")
	cmd.Flags().StringVarP(&req.FileRefs, "files", "f", "", "file links or ids")
	_ = cmd.MarkFlagRequired("unit")
	return cmd
}

func (a *App) runPassCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-pass",
		Short: "Run one reconciliation pass now (operator)",
		Args:  cobra.NoArgs,
		RunE: a.withClient(func(ctx context.Context, c client.Client, out io.Writer) error {
			resp, err := c.RunPass(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "processed: %d\ndeferred: %d\nprovisioned: %d\nfailed: %d\nduration: %s\n",
				resp.Processed, resp.Deferred, resp.Provisioned, resp.Failed, time.Duration(resp.DurationMs)*time.Millisecond)
			return nil
		}),
	}
}

func (a *App) registerCmd() *cobra.Command {
	var req pb.RegisterUnitRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Pre-register a unit and its owner (operator)",
		Args:  cobra.NoArgs,
		RunE: a.withClient(func(ctx context.Context, c client.Client, out io.Writer) error {
			resp, err := c.RegisterUnit(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "registered %s (%s) id=%d\n", resp.UnitKey, resp.NormalizedKey, resp.ID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&req.UnitKey, "unit", "u", "", "unit key")
	cmd.Flags().StringVarP(&req.OwnerIdentity, "owner", "o", "", "owner identity")
	cmd.Flags().StringVar(&req.ContainerRef, "container", "", "existing container reference")
	_ = cmd.MarkFlagRequired("unit")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func (a *App) seedLedgerCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed-ledger",
		Short: "Rebuild ledgers from a CSV of past submissions (operator)",
		Long: `Rebuild the uploaded-file ledgers of existing units from a CSV export
of past submissions. The header must name a unit column ("unit" or "flat")
and a file column ("file", "link" or "upload").`,
		Args: cobra.NoArgs,
		RunE: a.withClient(func(ctx context.Context, c client.Client, out io.Writer) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := ReadHistory(f)
			if err != nil {
				return err
			}

			resp, err := c.SeedLedger(ctx, pb.SeedLedgerRequest{Rows: rows})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "rows: %d\nupdated: %d\nids: %d\n", len(rows), resp.Updated, resp.IDs)
			if len(resp.Unmatched) > 0 {
				fmt.Fprintf(out, "unmatched: %s\n", strings.Join(resp.Unmatched, ", "))
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "CSV of past submissions")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *App) auditLogCmd() *cobra.Command {
	var req pb.AuditLogRequest
	cmd := &cobra.Command{
		Use:   "audit-log",
		Short: "Show the most recent audit records (operator)",
		Args:  cobra.NoArgs,
		RunE: a.withClient(func(ctx context.Context, c client.Client, out io.Writer) error {
			resp, err := c.AuditLog(ctx, req)
			if err != nil {
				return err
			}
			for _, r := range resp.Records {
				fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Timestamp, r.Category, r.Status, r.Subject, r.Object, r.Reason, r.Action)
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&req.Limit, "limit", "l", 0, "number of records (server default when 0)")
	return cmd
}
