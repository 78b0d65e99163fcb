// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/lorebase/ai"
	"github.com/poiesic/lorebase/ai/openai"
	"github.com/poiesic/lorebase/chat"
	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/ingest"
	"github.com/poiesic/lorebase/reindex"
	"github.com/poiesic/lorebase/search"
	"github.com/poiesic/lorebase/server"
	badgerstore "github.com/poiesic/lorebase/storage/badger"
	"github.com/poiesic/lorebase/vectorstore"
)

func main() {
	app := &cli.App{
		Name:  "lorebase",
		Usage: "Knowledge-base RAG service over a Milvus vector index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: append(append(storeFlags(), aiFlags(true)...),
					&cli.StringFlag{
						Name:    "listen",
						Usage:   "Address to listen on",
						Value:   ":8080",
						EnvVars: []string{"LOREBASE_LISTEN"},
					},
					&cli.IntFlag{
						Name:  "persist-workers",
						Usage: "Number of conversation persistence workers",
						Value: 3,
					},
					&cli.Uint64Flag{
						Name:    "node",
						Usage:   "Snowflake node ID for this instance",
						Value:   0,
						EnvVars: []string{"LOREBASE_NODE"},
					},
				),
			},
			{
				Name:   "create-base",
				Usage:  "Create a knowledge base and print its ID",
				Action: createBaseCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Knowledge base name",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:     "user",
						Usage:    "Owning user ID",
						Required: true,
					},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Ingest one file into a knowledge base",
				Action: ingestCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the document to ingest",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:     "base",
						Usage:    "Target knowledge base ID",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:     "user",
						Usage:    "Owning user ID",
						Required: true,
					},
				),
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed all indexed chunks of a knowledge base",
				Action: reindexCommand,
				Flags: append(append(milvusFlags(), aiFlags(false)...),
					&cli.Uint64Flag{
						Name:     "base",
						Usage:    "Knowledge base ID to reindex",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding calls",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}
}

func milvusFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "milvus-address",
			Usage:   "Milvus gRPC address",
			Value:   "localhost:19530",
			EnvVars: []string{"LOREBASE_MILVUS_ADDRESS"},
		},
		&cli.StringFlag{
			Name:    "collection",
			Usage:   "Milvus collection name",
			Value:   "lorebase_chunks",
			EnvVars: []string{"LOREBASE_COLLECTION"},
		},
	}
}

// aiFlags returns the embedding flags, plus the chat flags when withChat
// is set.
func aiFlags(withChat bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"LOREBASE_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:     "embedding-model",
			Usage:    "Embedding model name",
			Required: true,
			EnvVars:  []string{"LOREBASE_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "API token for the AI services",
			EnvVars: []string{"LOREBASE_AI_TOKEN"},
		},
	}
	if withChat {
		flags = append(flags,
			&cli.StringFlag{
				Name:    "chat-host",
				Usage:   "Chat completion service host URL",
				Value:   "http://localhost:11434/v1",
				EnvVars: []string{"LOREBASE_CHAT_HOST"},
			},
			&cli.StringFlag{
				Name:     "chat-model",
				Usage:    "Chat model name",
				Required: true,
				EnvVars:  []string{"LOREBASE_CHAT_MODEL"},
			},
		)
	}
	return flags
}

func storeFlags() []cli.Flag {
	flags := []cli.Flag{dbFlag()}
	flags = append(flags, milvusFlags()...)
	return flags
}

func setup(c *cli.Context) error {
	// Missing .env is fine; flags and real env still apply.
	_ = godotenv.Load()

	levelStr := strings.ToLower(c.String("log-level"))
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func openGateway(c *cli.Context) (*vectorstore.Gateway, error) {
	factory := vectorstore.NewMilvusFactory(vectorstore.MilvusConfig{
		Address:    c.String("milvus-address"),
		Collection: c.String("collection"),
	}, nil)
	return vectorstore.NewGateway(factory)
}

func newEmbedder(c *cli.Context) (ai.Embedder, error) {
	config := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithToken(c.String("token")),
	)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return openai.NewEmbedder(config)
}

func serveCommand(c *cli.Context) error {
	repos, err := badgerstore.NewRepositoriesAt(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repos.Close()

	gateway, err := openGateway(c)
	if err != nil {
		return fmt.Errorf("failed to create vector gateway: %w", err)
	}
	defer gateway.Close()

	config := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatHost(c.String("chat-host")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithToken(c.String("token")),
	)
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}
	provider, err := openai.NewProvider(config)
	if err != nil {
		return fmt.Errorf("failed to create AI provider: %w", err)
	}

	searcher, err := search.NewSearcher(gateway, provider.Embedder())
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	ids, err := core.NewSnowflake(c.Uint64("node"))
	if err != nil {
		return fmt.Errorf("failed to create ID generator: %w", err)
	}

	persister, err := chat.NewPersister(repos.Conversations, repos.Messages, ids,
		c.Int("persist-workers"), nil)
	if err != nil {
		return fmt.Errorf("failed to create persister: %w", err)
	}
	defer persister.Close()

	chatService, err := chat.NewService(repos.Conversations, repos.Messages, repos.Bases,
		searcher, provider.ChatStreamer(), persister, ids)
	if err != nil {
		return fmt.Errorf("failed to create chat service: %w", err)
	}

	pipeline, err := ingest.NewPipeline(repos.Documents, repos.Bases, provider.Embedder(), gateway)
	if err != nil {
		return fmt.Errorf("failed to create ingest pipeline: %w", err)
	}

	srv, err := server.NewServer(chatService, pipeline)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	addr := c.String("listen")
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	return nil
}

func createBaseCommand(c *cli.Context) error {
	repos, err := badgerstore.NewRepositoriesAt(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repos.Close()

	kb, err := repos.Bases.AddKnowledgeBase(context.Background(), &core.KnowledgeBase{
		UserID: core.ID(c.Uint64("user")),
		Name:   c.String("name"),
	})
	if err != nil {
		return fmt.Errorf("failed to create knowledge base: %w", err)
	}

	fmt.Printf("created knowledge base %s (%s)\n", kb.BaseID, kb.Name)
	return nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	repos, err := badgerstore.NewRepositoriesAt(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repos.Close()

	gateway, err := openGateway(c)
	if err != nil {
		return fmt.Errorf("failed to create vector gateway: %w", err)
	}
	defer gateway.Close()

	embedder, err := newEmbedder(c)
	if err != nil {
		return err
	}

	pipeline, err := ingest.NewPipeline(repos.Documents, repos.Bases, embedder, gateway)
	if err != nil {
		return fmt.Errorf("failed to create ingest pipeline: %w", err)
	}

	path := c.String("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := pipeline.Process(ctx, data, filepath.Base(path),
		core.ID(c.Uint64("base")), core.ID(c.Uint64("user")))
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "ingested %s: document %s, %d chunks\n",
		doc.DocName, doc.DocID, doc.TotalChunks)
	return nil
}

func reindexCommand(c *cli.Context) error {
	ctx := context.Background()

	gateway, err := openGateway(c)
	if err != nil {
		return fmt.Errorf("failed to create vector gateway: %w", err)
	}
	defer gateway.Close()

	embedder, err := newEmbedder(c)
	if err != nil {
		return err
	}

	baseID := core.ID(c.Uint64("base"))
	total, err := gateway.Count(ctx,
		vectorstore.NewFilter().Eq(core.MetaKeyBaseID, baseID.String()))
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	tracker := reindex.NewProgressTracker(os.Stderr, int(total), c.Int("report-interval"))
	reindexer, err := reindex.NewReindexer(gateway, embedder,
		reindex.WithBatchSize(c.Int("batch-size")),
		reindex.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
		reindex.WithProgress(tracker),
	)
	if err != nil {
		return fmt.Errorf("failed to create reindexer: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Collection: %s\n", c.String("collection"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintf(os.Stderr, "Chunks: %d\n\n", total)

	summary, err := reindexer.Run(ctx, baseID)
	if err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "reindexed %d chunks in %d batches (%s)\n",
		summary.Chunks, summary.Batches, summary.Elapsed.Round(time.Millisecond))
	return nil
}
