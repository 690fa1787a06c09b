package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sandevgo/tuskthread/internal/config"
	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/sandevgo/tuskthread/internal/providers/llm"
	"github.com/sandevgo/tuskthread/internal/service/archive"
	"github.com/sandevgo/tuskthread/internal/service/conversation"
	"github.com/sandevgo/tuskthread/internal/service/document"
	"github.com/sandevgo/tuskthread/internal/service/reference"
	"github.com/sandevgo/tuskthread/internal/service/window"
	"github.com/sandevgo/tuskthread/internal/storage/file"
	"github.com/sandevgo/tuskthread/internal/storage/sqlite"
	"github.com/sandevgo/tuskthread/pkg/log"
	"github.com/sandevgo/tuskthread/pkg/srv"
	"github.com/sandevgo/tuskthread/pkg/tokens"
)

var errReadOnly = errors.New("this command does not generate replies")

// app is the wired conversation engine. services are started in order and
// stopped in reverse.
type app struct {
	cfg      *config.AppConfig
	manager  *conversation.Manager
	services []srv.Service
}

// newApp wires storage, the generator and the conversation manager. Without
// a generator, read-only commands get one that refuses to generate.
func newApp(ctx context.Context, withGenerator bool) (*app, error) {
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, fmt.Errorf("failed to init env: %w", err)
	}
	cfg := config.NewAppConfig(ctx)

	var services []srv.Service

	// 1. Storage: YAML documents locally, sqlite as the durable backend
	local, err := file.NewDocumentStore(cfg.GetDocumentsPath())
	if err != nil {
		return nil, err
	}
	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	services = append(services, srv.NewCleanup(db.Close))
	remote := sqlite.NewDocumentStore(db)

	queue := document.NewQueue()
	writer := document.NewWriter(cfg, local, remote, queue)
	services = append(services, document.NewSyncer(cfg, queue, remote))

	// 2. Generator
	var gen core.Generator = core.GeneratorFunc(func(context.Context, core.Payload) (string, error) {
		return "", errReadOnly
	})
	if withGenerator {
		if gen, err = llm.NewGenerator(ctx, cfg); err != nil {
			srv.StopServices(ctx, services)
			return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
		}
	}

	// 3. Conversation engine
	counter, err := tokens.New(cfg.TokenizerEncoding)
	if err != nil {
		srv.StopServices(ctx, services)
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	compressor := archive.NewCompressor(cfg, counter)
	manager := conversation.NewManager(ctx, cfg, gen, writer,
		reference.NewResolver(cfg),
		window.NewAssembler(cfg, compressor),
		compressor,
	)
	services = append(services, manager)

	return &app{cfg: cfg, manager: manager, services: services}, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
