package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/shanehull/preminder/internal/ai"
	"github.com/shanehull/preminder/internal/evaluate"
	"github.com/shanehull/preminder/internal/history"
	"github.com/shanehull/preminder/internal/monitor"
	"github.com/shanehull/preminder/internal/notify"
	"github.com/shanehull/preminder/internal/search"
	"github.com/shanehull/preminder/internal/store"
)

// app holds the components shared by the commands that run cycles or checks.
type app struct {
	db         *store.DB
	controller *monitor.Controller
}

func openStore() (*store.DB, error) {
	db, err := store.NewSQLiteDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Database.Path, err)
	}
	return db, nil
}

func newApp(ctx context.Context) (*app, error) {
	db, err := openStore()
	if err != nil {
		return nil, err
	}

	oracle, err := ai.NewOracle(ctx, cfg.Oracle.APIKey, cfg.Oracle.Model, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init oracle: %w", err)
	}

	provider, err := search.NewProvider(ctx, cfg.Search.APIKey, cfg.Search.CSEID, cfg.Search.Timeout, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init search provider: %w", err)
	}

	emailCfg := notify.EmailConfig{
		SMTPServer: cfg.SMTP.Server,
		SMTPPort:   cfg.SMTP.Port,
		SMTPUser:   cfg.SMTP.User,
		SMTPPass:   cfg.SMTP.Pass,
		FromEmail:  cfg.SMTP.From,
		Timeout:    cfg.SMTP.Timeout,
	}
	if !emailCfg.Enabled() {
		logger.Warn("SMTP credentials missing, notifications will be recorded as failed")
	}

	deps := monitor.Deps{
		Events:    db,
		Addresses: db,
		Searcher:  provider,
		Evaluator: evaluate.New(oracle, logger, evaluate.Options{
			Concurrency: cfg.Oracle.Concurrency,
			Retries:     cfg.Oracle.Retries,
			Backoff:     cfg.Oracle.Backoff,
			MaxBackoff:  cfg.Oracle.MaxBackoff,
		}),
		Dispatcher: notify.NewDispatcher(notify.NewEmailSender(emailCfg), notify.NewHTMLEmailRenderer(), logger),
	}

	if cfg.Dedup.Enabled {
		ledger, err := history.NewManager(cfg.History.Path, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init dispatch history: %w", err)
		}
		deps.Ledger = ledger
		logger.Info("Dispatch dedup enabled", zap.String("path", ledger.HistoryFilePath()))
	}

	controller := monitor.New(deps, logger, monitor.Options{
		SearchLimit: cfg.Search.Limit,
		Pacing:      cfg.Schedule.Pacing,
	})

	return &app{db: db, controller: controller}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
