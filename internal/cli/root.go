// Package cli implements sectl, the operator tool for the Salt Edge
// integration. Every command prints JSON on stdout and logs on stderr.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/scanpay/scanpay-api/internal/config"
	"github.com/scanpay/scanpay-api/internal/logging"
	"github.com/scanpay/scanpay-api/internal/saltedge"
)

var Version = "dev"

type app struct {
	loadConfig func() (*config.SaltEdge, error)
	options    []saltedge.Option
	now        func() time.Time

	cfg    *config.SaltEdge
	client *saltedge.Client
}

// NewRootCmd reads configuration from the environment like the API does.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{loadConfig: config.LoadSaltEdge, now: time.Now})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sectl",
		Short:         "Operate the Salt Edge integration from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			logging.InitTo(cmd.ErrOrStderr(), "sectl", cfg.LogLevel, cfg.AppEnv)
			return nil
		},
	}

	root.AddCommand(
		customersCmd(a),
		connectionsCmd(a),
		accountsCmd(a),
		transactionsCmd(a),
		refreshCmd(a),
		syncCmd(a),
		signCmd(a),
	)
	return root
}

// saltEdge builds the client on first use; sign never calls it.
func (a *app) saltEdge() (*saltedge.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	c, err := saltedge.NewClient(a.cfg.ClientConfig(), a.options...)
	if err != nil {
		return nil, fmt.Errorf("salt edge client: %w", err)
	}
	a.client = c
	return c, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
