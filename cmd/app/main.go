package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	httpadapter "github.com/genomewalker/reviewflow-sub001/internal/adapters/http"
	"github.com/genomewalker/reviewflow-sub001/internal/config"
	"github.com/genomewalker/reviewflow-sub001/internal/domain"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "reviewflow",
		Usage: "Local peer-review record keeper and companion server",
		Commands: []*cli.Command{
			initCommand(),
			papersCommand(),
			reviewCommand(),
			stateCommand(),
			settingsCommand(),
			chatCommand(),
			serverCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create the workspace directories and database",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			layout, err := doInit(ctx, cfg)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(map[string]string{"root": layout.Root, "database": layout.DatabasePath()})
			}
			printKV([][2]string{{"root", layout.Root}, {"database", layout.DatabasePath()}})
			return nil
		},
	}
}

func papersCommand() *cli.Command {
	return &cli.Command{
		Name:  "papers",
		Usage: "Paper registry commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List active papers with review progress",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					out, err := doPapersList(ctx, cfg)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printPaperSummaries(out)
					return nil
				},
			},
			{
				Name:  "add",
				Usage: "Register a new paper",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "authors"},
					&cli.StringFlag{Name: "journal"},
					&cli.StringFlag{Name: "field"},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "submitted", Usage: "submission date"},
					&cli.StringFlag{Name: "reviewed", Usage: "review date"},
					&cli.StringFlag{Name: "id", Usage: "explicit paper id (defaults to a title slug with a time suffix)"},
					&cli.StringFlag{Name: "config", Usage: "paper config as raw JSON"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					info := domain.PaperInfo{
						ID:             c.String("id"),
						Title:          c.String("title"),
						Authors:        c.String("authors"),
						Journal:        c.String("journal"),
						Field:          c.String("field"),
						Description:    c.String("description"),
						SubmissionDate: c.String("submitted"),
						ReviewDate:     c.String("reviewed"),
					}
					if v := c.String("config"); v != "" {
						if !json.Valid([]byte(v)) {
							return fmt.Errorf("config must be valid JSON")
						}
						info.Config = json.RawMessage(v)
					}
					out, err := doPapersAdd(ctx, cfg, info)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printPaper(out)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Show one paper",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					out, err := doPapersShow(ctx, cfg, c.String("id"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printPaper(out)
					return nil
				},
			},
			{
				Name:  "archive",
				Usage: "Archive a paper (hidden from listings, data kept)",
				Flags: []cli.Flag{&cli.StringFlag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					if err := doPapersArchive(ctx, cfg, c.String("id")); err != nil {
						return err
					}
					fmt.Printf("archived %s\n", c.String("id"))
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a paper and all its review data",
				Flags: []cli.Flag{&cli.StringFlag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					if err := doPapersDelete(ctx, cfg, c.String("id")); err != nil {
						return err
					}
					fmt.Printf("deleted %s\n", c.String("id"))
					return nil
				},
			},
		},
	}
}

func reviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Review document import and export",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import a nested review document into a paper",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "paper", Usage: "target paper id"},
					&cli.StringFlag{Name: "file", Required: true, Usage: "review JSON path, - for stdin"},
					&cli.BoolFlag{Name: "create", Usage: "create the paper from the document's manuscript block"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					if !c.Bool("create") && c.String("paper") == "" {
						return fmt.Errorf("either --paper or --create is required")
					}
					out, err := doReviewImport(ctx, cfg, c.String("paper"), c.String("file"), c.Bool("create"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printKV([][2]string{
						{"paper", out.PaperID},
						{"reviewers", strconv.Itoa(out.Reviewers)},
						{"comments", strconv.Itoa(out.Comments)},
					})
					return nil
				},
			},
			{
				Name:  "export",
				Usage: "Export a paper's full review document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "paper", Required: true},
					&cli.StringFlag{Name: "out", Usage: "write to file instead of stdout"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					doc, err := doReviewExport(ctx, cfg, c.String("paper"))
					if err != nil {
						return err
					}
					if path := c.String("out"); path != "" {
						data, err := jsonMarshal(doc)
						if err != nil {
							return err
						}
						return os.WriteFile(path, append(data, '\n'), 0o644)
					}
					return printJSON(doc)
				},
			},
			{
				Name:  "responses",
				Usage: "Render the response-to-reviewers sheet from completed comments",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "paper", Required: true},
					&cli.StringFlag{Name: "out", Usage: "output path, - for stdout"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					sheet, path, err := doReviewResponses(ctx, cfg, c.String("paper"), c.String("out"))
					if err != nil {
						return err
					}
					if path == "-" {
						fmt.Print(sheet.Markdown)
						return nil
					}
					if c.Bool("json") {
						return printJSON(map[string]any{"file": path, "completed": sheet.Completed, "total": sheet.Total})
					}
					printKV([][2]string{
						{"file", path},
						{"progress", fmt.Sprintf("%d/%d", sheet.Completed, sheet.Total)},
					})
					return nil
				},
			},
		},
	}
}

func stateCommand() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Per-paper UI state blobs",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Print a state value",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "paper", Required: true},
					&cli.StringFlag{Name: "key", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					out, err := doStateGet(ctx, cfg, c.String("paper"), c.String("key"))
					if err != nil {
						return err
					}
					fmt.Println(string(out))
					return nil
				},
			},
			{
				Name:  "set",
				Usage: "Store a state value",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "paper", Required: true},
					&cli.StringFlag{Name: "key", Required: true},
					&cli.StringFlag{Name: "value", Required: true, Usage: "raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					if err := doStateSet(ctx, cfg, c.String("paper"), c.String("key"), c.String("value")); err != nil {
						return err
					}
					fmt.Printf("saved %s\n", c.String("key"))
					return nil
				},
			},
		},
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Global application settings",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Print a setting",
				Flags: []cli.Flag{&cli.StringFlag{Name: "key", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					out, err := doSettingsGet(ctx, cfg, c.String("key"))
					if err != nil {
						return err
					}
					fmt.Println(string(out))
					return nil
				},
			},
			{
				Name:  "set",
				Usage: "Store a setting",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Required: true},
					&cli.StringFlag{Name: "value", Required: true, Usage: "raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					if err := doSettingsSet(ctx, cfg, c.String("key"), c.String("value")); err != nil {
						return err
					}
					fmt.Printf("saved %s\n", c.String("key"))
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List all settings",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					out, err := doSettingsList(ctx, cfg)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printSettings(out)
					return nil
				},
			},
		},
	}
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Per-paper chat history",
		Commands: []*cli.Command{
			{
				Name:  "log",
				Usage: "Append a chat message",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "paper", Required: true},
					&cli.StringFlag{Name: "comment", Usage: "scope the message to a comment"},
					&cli.StringFlag{Name: "role", Required: true},
					&cli.StringFlag{Name: "content", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					out, err := doChatAppend(ctx, cfg, domain.ChatEntry{
						PaperID:   c.String("paper"),
						CommentID: c.String("comment"),
						Role:      c.String("role"),
						Content:   c.String("content"),
					})
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					fmt.Printf("logged message %d\n", out.ID)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Show recent chat messages",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "paper", Required: true},
					&cli.IntFlag{Name: "limit", Value: 50},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					out, err := doChatList(ctx, cfg, c.String("paper"), c.Int("limit"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printChat(out)
					return nil
				},
			},
		},
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Companion HTTP server commands",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the HTTP server in the foreground",
				Flags: []cli.Flag{&cli.IntFlag{Name: "port", Usage: "listen port override"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					if c.IsSet("port") {
						cfg.ServerPort = c.Int("port")
					}
					return runServer(ctx, cfg)
				},
			},
			{
				Name:  "start",
				Usage: "Start the server in the background and wait until it is healthy",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					if err := doServerStart(ctx, cfg); err != nil {
						return err
					}
					fmt.Printf("server running at http://%s\n", cfg.Addr())
					return nil
				},
			},
			{
				Name:  "stop",
				Usage: "Stop the background server",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					if err := doServerStop(ctx, cfg); err != nil {
						return err
					}
					fmt.Println("server stopped")
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show server health and database counters",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					st, err := doServerStatus(ctx, cfg)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(st)
					}
					printServerStatus(st)
					return nil
				},
			},
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	svc, logger, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	router := httpadapter.NewRouter(svc, logger)
	srv := &http.Server{Addr: cfg.Addr(), Handler: router, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
