// invoice-audit is the ops tool for the audit service: it replays one invoice
// export, reruns a daily consolidation and mints credentials for the HTTP endpoints.
//
// Usage (from the repository root, same env as the server):
//
//	go run ./cmd/invoice-audit reconcile --file export.json
//	go run ./cmd/invoice-audit reconcile --object 31337.json
//	go run ./cmd/invoice-audit consolidate --at 2026-06-01T23:00:00Z
//	go run ./cmd/invoice-audit token --caller scheduler --ttl-hours 720
//	go run ./cmd/invoice-audit push-token-hash --token s3cret
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmdatafocus/invoice_audit/config"
	"github.com/mmdatafocus/invoice_audit/models"
	"github.com/mmdatafocus/invoice_audit/utils"
	"github.com/mmdatafocus/invoice_audit/workflow"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "invoice-audit",
		Usage: "supplier invoice audit operations",
		Commands: []*cli.Command{
			reconcileCommand(),
			consolidateCommand(),
			tokenCommand(),
			pushTokenHashCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "invoice-audit: %v\n", err)
		if kind := utils.ErrorKindOf(err); kind != utils.ErrorKindUnknown {
			fmt.Fprintf(os.Stderr, "error kind: %s\n", kind)
		}
		os.Exit(1)
	}
}

func loadServices(ctx context.Context) (*workflow.Services, error) {
	cfg, err := config.LoadAuditConfig()
	if err != nil {
		return nil, utils.NewAuditError(utils.ErrorKindConfiguration, "load config", err)
	}
	return workflow.NewServices(ctx, cfg, config.GetLogger())
}

func printJSON(v any) error {
	out, err := utils.MarshalToJSON(v)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "reconcile one invoice export and upload its report",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "local invoice export JSON"},
			&cli.StringFlag{Name: "object", Usage: "object name in the export bucket"},
			&cli.StringFlag{Name: "bucket", Usage: "export bucket override"},
		},
		Action: func(c *cli.Context) error {
			file, object := c.String("file"), c.String("object")
			if (file == "") == (object == "") {
				return errors.New("exactly one of --file or --object is required")
			}

			ctx := utils.SetTriggerInContext(c.Context, string(models.RunTriggerCLI))
			services, err := loadServices(ctx)
			if err != nil {
				return err
			}
			defer services.Close()

			var outcome *workflow.InvoiceOutcome
			if file != "" {
				payload, err := os.ReadFile(file)
				if err != nil {
					return utils.NewAuditError(utils.ErrorKindMalformedInput, "read "+file, err)
				}
				outcome, err = services.Auditor.ProcessInvoiceEvent(ctx, payload)
				if err != nil {
					return err
				}
			} else {
				bucket := c.String("bucket")
				if bucket == "" {
					bucket = services.Config.ExportBucket
				}
				outcome, err = services.Auditor.ProcessExportObject(ctx, bucket, object)
				if err != nil {
					return err
				}
			}
			return printJSON(outcome)
		},
	}
}

func consolidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "consolidate",
		Usage: "build the daily summary for the 24 hours ending at --at (default now)",
		Flags: []cli.Flag{
			&cli.TimestampFlag{Name: "at", Layout: time.RFC3339, Usage: "window end, RFC3339"},
		},
		Action: func(c *cli.Context) error {
			ctx := utils.SetTriggerInContext(c.Context, string(models.RunTriggerCLI))
			services, err := loadServices(ctx)
			if err != nil {
				return err
			}
			defer services.Close()

			var outcome *workflow.ConsolidationOutcome
			if at := c.Timestamp("at"); at != nil {
				outcome, err = services.Consolidator.RunAt(ctx, *at, models.RunTriggerCLI)
			} else {
				outcome, err = services.Consolidator.Run(ctx, models.RunTriggerCLI)
			}
			if err != nil {
				return err
			}
			if !outcome.Produced {
				fmt.Fprintln(os.Stderr, "no reports in window; no summary written")
			}
			return printJSON(outcome)
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "mint a bearer token for the task and read endpoints (needs API_SECRET)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "caller", Value: "ops"},
			&cli.IntFlag{Name: "ttl-hours", Value: 24},
		},
		Action: func(c *cli.Context) error {
			ttl := time.Duration(c.Int("ttl-hours")) * time.Hour
			if ttl <= 0 {
				return errors.New("--ttl-hours must be positive")
			}
			cfg, err := config.LoadAuditConfig()
			if err != nil {
				return utils.NewAuditError(utils.ErrorKindConfiguration, "load config", err)
			}
			if cfg.APISecret == "" {
				return utils.NewAuditError(utils.ErrorKindConfiguration, "mint token", errors.New("API_SECRET is not set"))
			}
			token, err := utils.JwtGenerate(cfg.APISecret, c.String("caller"), ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}

func pushTokenHashCommand() *cli.Command {
	return &cli.Command{
		Name:  "push-token-hash",
		Usage: "print the PUBSUB_PUSH_TOKEN_HASH value for a push subscription token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token", Required: true},
		},
		Action: func(c *cli.Context) error {
			hashed, err := utils.HashToken(c.String("token"))
			if err != nil {
				return err
			}
			fmt.Println(string(hashed))
			return nil
		},
	}
}
