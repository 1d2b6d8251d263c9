package main

import (
	"context"

	"splitbill/internal/amqp"
	"splitbill/internal/cli"
	"splitbill/internal/log"
	"splitbill/internal/sheets"
	gsheet "splitbill/internal/sheets/google"
	memsheet "splitbill/internal/sheets/memory"
	"splitbill/internal/worker"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	cli.ExitOnError(logger, "Configuration validation failed", cfg.ValidateWorker())

	logger.Info("Starting splitbill-worker", "queue", cfg.AMQPQueue)

	var writer sheets.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		}, logger)
		cli.ExitOnError(logger, "Failed to initialize Google Sheets client", err)
		writer = client
		logger.Info("Google Sheets ledger enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memsheet.New()
		logger.Info("Google Sheets disabled, ledger rows kept in memory")
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	cli.ExitOnError(logger, "Failed to initialize AMQP client", err)

	ctx, done := cli.GracefulShutdown(logger, cfg.WorkerShutdownTimeout, func(context.Context) {
		if err := consumer.Close(); err != nil {
			logger.Warn("Closing AMQP client failed", log.FieldError, err)
		}
	})

	w := worker.NewLedgerWorker(writer, cfg.Location(), logger)
	if err := w.Run(ctx, consumer); err != nil {
		cli.ExitOnError(logger, "Ledger worker failed", err)
	}

	<-done
	logger.Info("Worker stopped gracefully")
}
