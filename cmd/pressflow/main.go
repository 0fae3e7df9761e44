package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/ghalamif/PressFlow"
)

const defaultConfig = "./data/config.yaml"

func main() {
	app := &cli.App{
		Name:  "pressflow",
		Usage: "Segment press frame files into shots and bulk-load them",
		Commands: []*cli.Command{
			runCommand(),
			replayCommand(),
			resubmitCommand(),
			validateCommand(),
			statsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "pressflow: %v\n", err)
		os.Exit(1)
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   defaultConfig,
		Usage:   "Path to configuration file",
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Follow a live collection until the run completes",
		Flags: []cli.Flag{configFlag()},
		Action: func(c *cli.Context) error {
			flow, err := pressflow.Conf(c.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sum, err := flow.Run(ctx)
			printSummary(sum)
			return err
		},
	}
}

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:  "replay",
		Usage: "Re-segment a stored range of raw samples",
		Flags: []cli.Flag{
			configFlag(),
			&cli.Uint64Flag{Name: "start", Usage: "First sequence number (inclusive)"},
			&cli.Uint64Flag{Name: "end", Usage: "Last sequence number (exclusive)", Required: true},
			&cli.StringFlag{Name: "output-run", Usage: "Run id to write shot collections under"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := pressflow.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			rt, err := pressflow.NewRuntime(cfg)
			if err != nil {
				return err
			}
			defer shutdown(rt)

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sum, err := rt.Replay(ctx, pressflow.ReplayOptions{
				Start:     c.Uint64("start"),
				End:       c.Uint64("end"),
				OutputRun: c.String("output-run"),
			})
			if errors.Is(err, pressflow.ErrInvalidReplayRange) {
				return cli.Exit(err.Error(), 2)
			}
			printSummary(sum)
			return err
		},
	}
}

func resubmitCommand() *cli.Command {
	return &cli.Command{
		Name:  "resubmit",
		Usage: "Retry documents held in the failure spool",
		Flags: []cli.Flag{configFlag()},
		Action: func(c *cli.Context) error {
			cfg, err := pressflow.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			rt, err := pressflow.NewRuntime(cfg)
			if err != nil {
				return err
			}
			defer shutdown(rt)

			res, err := rt.Resubmit(c.Context)
			if err != nil {
				return err
			}
			fmt.Printf("resubmitted %s documents, %s rejected again\n",
				humanize.Comma(int64(res.Inserted)), humanize.Comma(int64(res.Failed)))
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Load and validate a config file without starting the runtime",
		Flags: []cli.Flag{configFlag()},
		Action: func(c *cli.Context) error {
			path := c.String("config")
			if _, err := pressflow.LoadConfig(path); err != nil {
				return err
			}
			fmt.Printf("config %s looks good ✅\n", path)
			return nil
		},
	}
}

func shutdown(rt *pressflow.Runtime) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
}

func printSummary(sum pressflow.Summary) {
	fmt.Printf("files=%s failed_files=%s samples=%s filtered=%s shots=%s excluded=%s inserted=%s failed=%s\n",
		humanize.Comma(int64(sum.Files)),
		humanize.Comma(int64(sum.FailedFiles)),
		humanize.Comma(int64(sum.Samples)),
		humanize.Comma(int64(sum.Filtered)),
		humanize.Comma(int64(sum.Shots)),
		humanize.Comma(int64(sum.Excluded)),
		humanize.Comma(int64(sum.Result.Inserted)),
		humanize.Comma(int64(sum.Result.Failed)),
	)
}
