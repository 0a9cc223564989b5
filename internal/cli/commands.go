package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/scanpay/scanpay-api/internal/saltedge"
	"github.com/scanpay/scanpay-api/internal/service"
)

func customersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Create and list aggregator customers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <identifier>",
		Short: "Create a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.saltEdge()
			if err != nil {
				return err
			}
			resp, err := client.CreateCustomer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Data)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.saltEdge()
			if err != nil {
				return err
			}
			resp, err := client.ListCustomers(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	})

	return cmd
}

func connectionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Inspect and remove bank connections",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <customer_id>",
		Short: "List the connections of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.saltEdge()
			if err != nil {
				return err
			}
			resp, err := client.ListConnections(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <connection_id>",
		Short: "Show one connection and its last attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.saltEdge()
			if err != nil {
				return err
			}
			resp, err := client.ShowConnection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Data)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <connection_id>",
		Short: "Remove a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.saltEdge()
			if err != nil {
				return err
			}
			resp, err := client.RemoveConnection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Data)
		},
	})

	return cmd
}

func accountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts <connection_id>",
		Short: "List the accounts of a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.saltEdge()
			if err != nil {
				return err
			}
			resp, err := client.ListAccounts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func transactionsCmd(a *app) *cobra.Command {
	var q saltedge.TransactionQuery

	cmd := &cobra.Command{
		Use:   "transactions <connection_id> <account_id>",
		Short: "List one page of transactions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.saltEdge()
			if err != nil {
				return err
			}
			resp, err := client.ListTransactions(cmd.Context(), args[0], args[1], q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&q.FromID, "from-id", "", "Cursor from a previous page's meta.next_id")
	cmd.Flags().StringVar(&q.FromDate, "from-date", "", "Earliest made_on date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.ToDate, "to-date", "", "Latest made_on date (YYYY-MM-DD)")

	return cmd
}

func refreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <connection_id>",
		Short: "Ask the aggregator to refetch the last 7 days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.saltEdge()
			if err != nil {
				return err
			}
			result, err := service.NewRefreshService(client).Refresh(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func syncCmd(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "sync <connection_id>",
		Short: "Pull and classify recent transactions, as a finish callback would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			client, err := a.saltEdge()
			if err != nil {
				return err
			}
			syncer := service.NewTransactionSync(client, service.NewLogObserver(nil), nil)
			result, err := syncer.Sync(cmd.Context(), args[0], time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Lookback window in days")

	return cmd
}

type signature struct {
	ExpiresAt int64  `json:"expires_at"`
	Signature string `json:"signature"`
	Canonical string `json:"canonical"`
}

func signCmd(a *app) *cobra.Command {
	var (
		body      string
		expiresAt int64
	)

	cmd := &cobra.Command{
		Use:   "sign <method> <url>",
		Short: "Print the Signature header for a request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.SaltEdgeSecret == "" {
				return saltedge.ErrMissingCredentials
			}
			exp := expiresAt
			if exp == 0 {
				exp = a.now().Add(time.Minute).Unix()
			}
			signer := saltedge.NewSigner(a.cfg.SaltEdgeSecret)
			return printJSON(cmd.OutOrStdout(), signature{
				ExpiresAt: exp,
				Signature: signer.Sign(args[0], args[1], exp, []byte(body)),
				Canonical: strconv.FormatInt(exp, 10) + "|" + strings.ToUpper(args[0]) + "|" + args[1] + "|" + body,
			})
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "Exact request body")
	cmd.Flags().Int64Var(&expiresAt, "expires-at", 0, "Unix seconds; defaults to now + 60s")

	return cmd
}
