package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pior/riakpb"
)

// app carries what the commands share once the configuration is loaded.
type app struct {
	cfg    *Config
	logger *zap.Logger
	out    io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "riakpb-cli",
		Short:         "Run Riak operations over the protocol buffers interface",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(out)
	addConfigFlags(root)

	root.AddCommand(
		a.pingCmd(),
		a.serverInfoCmd(),
		a.getCmd(),
		a.putCmd(),
		a.delCmd(),
		a.keysCmd(),
		a.bucketsCmd(),
		a.bucketPropsCmd(),
		a.counterCmd(),
		a.indexCmd(),
		a.searchCmd(),
		a.benchCmd(),
	)
	return root
}

func (a *app) clientConfig() riakpb.Config {
	cfg := riakpb.Config{
		Addr:           a.cfg.Nodes[0],
		ConnectTimeout: a.cfg.ConnectTimeout,
		Logger:         a.logger,
	}
	if a.cfg.TLS {
		cfg.TLSConfig = &tls.Config{
			InsecureSkipVerify: a.cfg.Insecure,
			MinVersion:         tls.VersionTLS12,
		}
	}
	return cfg
}

// client connects to the first node, securing and authenticating the
// connection as configured.
func (a *app) client(ctx context.Context) (*riakpb.Client, error) {
	client, err := riakpb.NewClient(a.clientConfig())
	if err != nil {
		return nil, err
	}

	if err := a.prepare(ctx, client); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (a *app) prepare(ctx context.Context, client *riakpb.Client) error {
	if err := client.Connect(ctx); err != nil {
		return err
	}
	if !a.cfg.TLS {
		return nil
	}
	if err := client.StartTLS(ctx); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	if a.cfg.User != "" {
		if err := client.Auth(ctx, a.cfg.User, a.cfg.Password); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	return nil
}

// run gives fn a connected client and a context bounded by --timeout.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, c *riakpb.Client) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Timeout)
	defer cancel()

	client, err := a.client(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	return fn(ctx, client)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
