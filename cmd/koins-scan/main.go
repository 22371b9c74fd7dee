package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"koins/internal/models"
	"koins/internal/repository"
	"koins/internal/service"
	"koins/pkg/config"
	"koins/pkg/logger"
	"koins/pkg/postgres"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var supportedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".pdf": true}

type scanOutput struct {
	File          string                   `json:"file"`
	State         models.ScanState         `json:"state"`
	Reason        models.AbortReason       `json:"reason,omitempty"`
	Draft         *models.TransactionDraft `json:"draft,omitempty"`
	TransactionID string                   `json:"transaction_id,omitempty"`
}

func main() {
	app := &cli.App{
		Name:  "koins-scan",
		Usage: "run the invoice ingestion pipeline on local files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Value:   string(models.KindExpense),
				Usage:   "transaction kind: income or expense",
			},
			&cli.StringFlag{
				Name:  "save-for",
				Usage: "email of an existing user; ready drafts are stored as their transactions",
			},
		},
		ArgsUsage: "<file or directory>...",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one file or directory is required", 2)
	}
	kind, err := models.ParseKind(c.String("kind"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := c.Context

	llmClient, err := service.NewLLMClient(cfg, logger.Named("llm"))
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	defer llmClient.Close()

	ocrService, err := service.NewOCRService(&cfg.OCR, logger.Named("ocr"))
	if err != nil {
		return fmt.Errorf("failed to initialize OCR service: %w", err)
	}

	coercionService := service.NewCoercionService(llmClient, cfg.LLM.Timeout, logger.Named("coercion"))
	scanService := service.NewScanService(ocrService, coercionService, logger.Named("scan"))

	var (
		txService *service.TransactionService
		userID    = uuid.Nil
	)
	if email := c.String("save-for"); email != "" {
		db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		user, err := repository.NewUserRepository(db, appLogger).GetByEmail(ctx, strings.ToLower(email))
		if err != nil {
			return fmt.Errorf("failed to find user %s: %w", email, err)
		}
		userID = user.ID
		txService = service.NewTransactionService(repository.NewTransactionRepository(db, appLogger), appLogger)
	}

	files, err := collectFiles(c.Args().Slice())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	var failed int
	for _, file := range files {
		out, err := scanFile(ctx, scanService, txService, userID, kind, file, appLogger)
		if err != nil {
			appLogger.Error("Scan failed", zap.String("file", file), zap.Error(err))
			failed++
			continue
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}

	appLogger.Info("Scanning finished", zap.Int("files", len(files)), zap.Int("failed", failed))
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", failed, len(files)), 1)
	}
	return nil
}

func scanFile(
	ctx context.Context,
	scanService *service.ScanService,
	txService *service.TransactionService,
	userID uuid.UUID,
	kind models.TransactionKind,
	file string,
	appLogger *zap.Logger,
) (*scanOutput, error) {
	result, err := scanService.Scan(ctx, userID, kind, service.NewFileCapturer(file, appLogger))
	if err != nil {
		return nil, err
	}

	out := &scanOutput{File: file, State: result.State, Reason: result.Reason, Draft: result.Draft}
	if txService != nil && result.State == models.ScanReady {
		tx, err := txService.Submit(ctx, userID, *result.Draft)
		if err != nil {
			return nil, fmt.Errorf("failed to save draft: %w", err)
		}
		out.TransactionID = tx.ID.String()
	}
	return out, nil
}

// collectFiles expands directories into the supported files they contain.
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				files = append(files, arg)
				continue
			}
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !supportedExt[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}
			files = append(files, filepath.Join(arg, entry.Name()))
		}
	}
	return files, nil
}
