package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"quarra/internal/amqp"
	appcli "quarra/internal/cli"
	"quarra/internal/config"
	"quarra/internal/services"
)

func main() {
	appcli.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "quarra-import:", err)
		os.Exit(1)
	}
}

type options struct {
	cfg     *config.Config
	catalog *config.SeriesCatalog
	logger  *slog.Logger
}

func newApp() *cli.Command {
	opts := &options{}
	return &cli.Command{
		Name:  "quarra-import",
		Usage: "Import workbook series into the quarra SQLite store",
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg := config.Load()
			logger := appcli.SetupLogger(cfg.LogLevel)
			if err := cfg.Validate(); err != nil {
				return ctx, err
			}
			opts.cfg = cfg
			opts.logger = logger
			opts.catalog = appcli.LoadCatalog(logger, cfg.SeriesConfigFile)
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdRun(opts),
			cmdEnqueue(opts),
			cmdHistory(opts),
		},
	}
}

func workbookFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "workbook",
		Aliases: []string{"w"},
		Usage:   "workbook path or gs:// URI (defaults to WORKBOOK_PATH)",
	}
}

func workbookArg(c *cli.Command, cfg *config.Config) (string, error) {
	workbook := c.String("workbook")
	if workbook == "" {
		workbook = cfg.WorkbookPath
	}
	if workbook == "" {
		return "", errors.New("no workbook given and WORKBOOK_PATH is empty")
	}
	return workbook, nil
}

func cmdRun(opts *options) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Import a workbook now",
		Flags: []cli.Flag{workbookFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			workbook, err := workbookArg(c, opts.cfg)
			if err != nil {
				return err
			}
			repo := appcli.InitSQLite(opts.logger, opts.cfg.SQLiteDBPath)
			defer repo.Close()

			ctx, cancel := context.WithTimeout(ctx, opts.cfg.ImportTimeout)
			defer cancel()

			res, err := services.NewImportService(repo).ImportWorkbook(ctx, uuid.NewString(), workbook, opts.catalog.Layout())
			if err != nil {
				return err
			}
			fmt.Printf("import %s: %d records from %s in %s\n",
				res.ID, res.Total(), res.Source, res.Duration.Round(time.Millisecond))
			for _, kind := range res.Missing {
				fmt.Printf("  missing series: %s\n", kind)
			}
			return nil
		},
	}
}

func cmdEnqueue(opts *options) *cli.Command {
	return &cli.Command{
		Name:  "enqueue",
		Usage: "Ask the worker to import a workbook",
		Flags: []cli.Flag{
			workbookFlag(),
			&cli.StringFlag{
				Name:  "requested-by",
				Usage: "recorded on the request for tracing",
				Value: "quarra-import",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if opts.cfg.AMQPURL == "" {
				return errors.New("AMQP_URL is not set")
			}
			workbook, err := workbookArg(c, opts.cfg)
			if err != nil {
				return err
			}
			client, err := amqp.NewClient(opts.cfg.AMQPURL, opts.cfg.AMQPExchange, opts.cfg.AMQPQueue)
			if err != nil {
				return err
			}
			defer client.Close()

			req := amqp.NewImportRequest(workbook, c.String("requested-by"))
			if err := client.PublishImportRequest(ctx, req); err != nil {
				return err
			}
			fmt.Printf("queued import %s for %s\n", req.ID, workbook)
			return nil
		},
	}
}

func cmdHistory(opts *options) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent imports",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "number of imports to show",
				Value: 10,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			repo := appcli.InitSQLite(opts.logger, opts.cfg.SQLiteDBPath)
			defer repo.Close()

			runs, err := repo.ListImportRuns(ctx, c.Int("limit"))
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no imports recorded")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tRECORDS\tSOURCE\tERROR")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					run.ID, run.StartedAt.Local().Format(time.DateTime), run.Status, run.Records, run.Source, run.Error)
			}
			return tw.Flush()
		},
	}
}
