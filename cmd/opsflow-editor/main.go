package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dukex/opsflow/pkg/cmd"
	"github.com/dukex/opsflow/pkg/log"
	"github.com/dukex/opsflow/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultBackend        = "http://localhost:9091"
	defaultRequestTimeout = 30 * time.Second
	defaultSettleTimeout  = 3 * time.Second
)

func main() {
	command := &cli.Command{
		Name:                  "opsflow-editor",
		Usage:                 "Edit workflow graphs from the terminal",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "API URL (http://...) or persistence URL (file:///path, postgres://...)",
				Value:   defaultBackend,
				Sources: cli.EnvVars("OPSFLOW_BACKEND"),
			},
			&cli.DurationFlag{
				Name:    "request-timeout",
				Usage:   "Upper bound for every backend call made by the editor",
				Value:   defaultRequestTimeout,
				Sources: cli.EnvVars("REQUEST_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "settle-timeout",
				Usage:   "How long save and discard wait for in-flight edits",
				Value:   defaultSettleTimeout,
				Sources: cli.EnvVars("SETTLE_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.SetupWriter(os.Stderr, command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			listCommand(),
			createCommand(),
			editCommand(),
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List workflows",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Usage: "Case-insensitive name filter"},
			&cli.IntFlag{Name: "limit", Value: 20},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("editor-cli")

			gw, closeFn, err := cmd.NewGateway(ctx, logger, command.String("backend"))
			if err != nil {
				return err
			}

			defer func() { _ = closeFn(ctx) }()

			return listWorkflows(ctx, gw, os.Stdout, command.String("search"), command.Int("limit"))
		},
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a workflow",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "description"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("editor-cli")

			gw, closeFn, err := cmd.NewGateway(ctx, logger, command.String("backend"))
			if err != nil {
				return err
			}

			defer func() { _ = closeFn(ctx) }()

			return createWorkflow(ctx, gw, os.Stdout, command.Args().First(), command.String("description"))
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Open a workflow in an interactive editing session",
		ArgsUsage: "<workflow-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("editor-cli")

			workflowID := command.Args().First()
			if workflowID == "" {
				return fmt.Errorf("%w: workflow id", errMissingArgument)
			}

			if command.Bool("otel-enabled") {
				_, shutdown, err := otelhelper.NewTracer(ctx, "opsflow-editor")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() { _ = shutdown(ctx) }()
			}

			gw, closeFn, err := cmd.NewGateway(ctx, logger, command.String("backend"))
			if err != nil {
				return err
			}

			defer func() { _ = closeFn(ctx) }()

			r := newREPL(gw, os.Stdin, os.Stdout, replConfig{
				requestTimeout: command.Duration("request-timeout"),
				settleTimeout:  command.Duration("settle-timeout"),
			})
			defer r.close()

			return r.run(ctx, workflowID)
		},
	}
}
