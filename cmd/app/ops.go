package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sqliteadapter "github.com/genomewalker/reviewflow-sub001/internal/adapters/db/sqlite"
	"github.com/genomewalker/reviewflow-sub001/internal/application"
	"github.com/genomewalker/reviewflow-sub001/internal/config"
	"github.com/genomewalker/reviewflow-sub001/internal/domain"
	"github.com/genomewalker/reviewflow-sub001/internal/lifecycle"
	"github.com/genomewalker/reviewflow-sub001/internal/workspace"
	"go.uber.org/zap"
)

type importSummary struct {
	PaperID   string `json:"paper_id"`
	Reviewers int    `json:"reviewers"`
	Comments  int    `json:"comments"`
	Created   bool   `json:"created"`
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openService wires the full local stack: workspace directories, the SQLite
// database with migrations applied, and the review service on top.
func openService(ctx context.Context, cfg *config.Config) (*application.ReviewService, *zap.Logger, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	layout := workspace.NewLayout(cfg.RootDir)
	if err := layout.Ensure(); err != nil {
		return nil, nil, err
	}
	db, err := sqliteadapter.Open(layout.DatabasePath())
	if err != nil {
		return nil, nil, err
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return nil, nil, err
	}
	return application.NewReviewService(sqliteadapter.NewStore(db), layout, log), log, nil
}

// newController builds the process supervisor for the companion server. The
// managed process is this same binary re-invoked with "server run".
func newController(cfg *config.Config, log *zap.Logger) *lifecycle.Controller {
	layout := workspace.NewLayout(cfg.RootDir)
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	proc := lifecycle.NewPidFileManager(
		layout.PidFilePath(),
		layout.ServerLogPath(),
		exe,
		[]string{"server", "run", "--port", strconv.Itoa(cfg.ServerPort)},
		log,
	)
	return lifecycle.NewController(lifecycle.Options{
		Host:          cfg.ServerHost,
		Port:          cfg.ServerPort,
		HealthTimeout: cfg.HealthTimeout,
		PollInterval:  cfg.PollInterval,
		PollAttempts:  cfg.PollAttempts,
		StopSettle:    cfg.StopSettle,
	}, proc, log)
}

func doInit(ctx context.Context, cfg *config.Config) (workspace.Layout, error) {
	if _, _, err := openService(ctx, cfg); err != nil {
		return workspace.Layout{}, err
	}
	return workspace.NewLayout(cfg.RootDir), nil
}

func doPapersList(ctx context.Context, cfg *config.Config) ([]domain.PaperSummary, error) {
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return svc.ListPapers(ctx)
}

func doPapersAdd(ctx context.Context, cfg *config.Config, info domain.PaperInfo) (domain.Paper, error) {
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return domain.Paper{}, err
	}
	return svc.AddPaper(ctx, info)
}

func doPapersShow(ctx context.Context, cfg *config.Config, id string) (domain.Paper, error) {
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return domain.Paper{}, err
	}
	return svc.GetPaper(ctx, id)
}

func doPapersArchive(ctx context.Context, cfg *config.Config, id string) error {
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	return svc.ArchivePaper(ctx, id)
}

func doPapersDelete(ctx context.Context, cfg *config.Config, id string) error {
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	return svc.DeletePaper(ctx, id)
}

func doReviewImport(ctx context.Context, cfg *config.Config, paperID, file string, create bool) (importSummary, error) {
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return importSummary{}, err
	}
	doc, err := readDocument(file)
	if err != nil {
		return importSummary{}, err
	}
	if create {
		paper, err := svc.CreatePaperFromDocument(ctx, doc)
		if err != nil {
			return importSummary{}, err
		}
		paperID = paper.ID
	} else {
		if err := svc.ImportReviewData(ctx, paperID, doc); err != nil {
			return importSummary{}, err
		}
	}
	comments := 0
	for _, reviewer := range doc.Reviewers {
		comments += len(reviewer.Comments)
	}
	return importSummary{PaperID: paperID, Reviewers: len(doc.Reviewers), Comments: comments, Created: create}, nil
}

func doReviewExport(ctx context.Context, cfg *config.Config, paperID string) (domain.ReviewDocument, error) {
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return domain.ReviewDocument{}, err
	}
	return svc.ExportReviewData(ctx, paperID)
}

// doReviewResponses renders the response sheet and writes it to outPath.
// An empty outPath picks <output>/<paperID>_responses.md; "-" skips the
// write so the caller can print the markdown instead.
func doReviewResponses(ctx context.Context, cfg *config.Config, paperID, outPath string) (application.ResponseSheet, string, error) {
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return application.ResponseSheet{}, "", err
	}
	doc, err := svc.ExportReviewData(ctx, paperID)
	if err != nil {
		return application.ResponseSheet{}, "", err
	}
	sheet := application.BuildResponseSheet(doc, time.Now())
	if outPath == "-" {
		return sheet, outPath, nil
	}
	if outPath == "" {
		outPath = filepath.Join(workspace.NewLayout(cfg.RootDir).OutputDir(), paperID+"_responses.md")
	}
	if err := os.WriteFile(outPath, []byte(sheet.Markdown), 0o644); err != nil {
		return application.ResponseSheet{}, "", err
	}
	return sheet, outPath, nil
}

func doStateGet(ctx context.Context, cfg *config.Config, paperID, key string) (json.RawMessage, error) {
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return svc.GetAppState(ctx, paperID, key)
}

func doStateSet(ctx context.Context, cfg *config.Config, paperID, key, value string) error {
	if !json.Valid([]byte(value)) {
		return fmt.Errorf("state value must be valid JSON")
	}
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	return svc.SetAppState(ctx, paperID, key, json.RawMessage(value))
}

func doSettingsGet(ctx context.Context, cfg *config.Config, key string) (json.RawMessage, error) {
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return svc.GetSetting(ctx, key)
}

func doSettingsSet(ctx context.Context, cfg *config.Config, key, value string) error {
	if !json.Valid([]byte(value)) {
		return fmt.Errorf("setting value must be valid JSON")
	}
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	return svc.SetSetting(ctx, key, json.RawMessage(value))
}

func doSettingsList(ctx context.Context, cfg *config.Config) ([]domain.Setting, error) {
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return svc.ListSettings(ctx)
}

func doChatAppend(ctx context.Context, cfg *config.Config, entry domain.ChatEntry) (domain.ChatEntry, error) {
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return domain.ChatEntry{}, err
	}
	return svc.AppendChat(ctx, entry)
}

func doChatList(ctx context.Context, cfg *config.Config, paperID string, limit int) ([]domain.ChatEntry, error) {
	svc, _, err := openService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return svc.ListChat(ctx, paperID, limit)
}

func doServerStart(ctx context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	if err := workspace.NewLayout(cfg.RootDir).Ensure(); err != nil {
		return err
	}
	return newController(cfg, log).Start(ctx)
}

func doServerStop(ctx context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	return newController(cfg, log).Stop(ctx)
}

func doServerStatus(ctx context.Context, cfg *config.Config) (lifecycle.Status, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return lifecycle.Status{}, err
	}
	return newController(cfg, log).Status(ctx), nil
}

func readDocument(path string) (domain.ReviewDocument, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.ReviewDocument{}, err
	}
	return domain.ParseReviewDocument(raw)
}
