package service

import (
	"context"
	"log/slog"

	llmprovider "github.com/haowjy/meridian-llm-go"
	mstream "github.com/haowjy/meridian-stream-go"
	"github.com/jackc/pgx/v5/pgxpool"

	"multiblock/internal/config"
	"multiblock/internal/domain/repositories"
	canvasRepo "multiblock/internal/domain/repositories/canvas"
	memoryRepo "multiblock/internal/domain/repositories/memory"
	"multiblock/internal/domain/services"
	canvasSvc "multiblock/internal/domain/services/canvas"
	memorySvc "multiblock/internal/domain/services/memory"
	"multiblock/internal/observability"
	"multiblock/internal/repository/inmem"
	"multiblock/internal/repository/postgres"
	postgresCanvas "multiblock/internal/repository/postgres/canvas"
	postgresMemory "multiblock/internal/repository/postgres/memory"
	"multiblock/internal/service/auth"
	"multiblock/internal/service/blocks"
	"multiblock/internal/service/composer"
	"multiblock/internal/service/graph"
	"multiblock/internal/service/invalidation"
	"multiblock/internal/service/memory"
	"multiblock/internal/service/prompt"
)

// Repositories is the storage backend the services run on
type Repositories struct {
	Boards      canvasRepo.BoardRepository
	Blocks      canvasRepo.BlockRepository
	Messages    canvasRepo.MessageRepository
	Connections canvasRepo.ConnectionRepository
	Memory      memoryRepo.MemoryRepository
	Feed        canvasRepo.ChangeFeed
	TxManager   repositories.TransactionManager
}

// NewPostgresRepositories builds the pgx-backed repositories
func NewPostgresRepositories(pool *pgxpool.Pool, tables *postgres.TableNames, logger *slog.Logger) *Repositories {
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}

	return &Repositories{
		Boards:      postgresCanvas.NewBoardRepository(repoConfig),
		Blocks:      postgresCanvas.NewBlockRepository(repoConfig),
		Messages:    postgresCanvas.NewMessageRepository(repoConfig),
		Connections: postgresCanvas.NewConnectionRepository(repoConfig),
		Memory:      postgresMemory.NewMemoryRepository(repoConfig),
		Feed:        postgresCanvas.NewChangeFeed(repoConfig),
		TxManager:   postgres.NewTransactionManager(pool, logger),
	}
}

// NewInMemRepositories builds repositories over a process-local store
func NewInMemRepositories(store *inmem.Store) *Repositories {
	return &Repositories{
		Boards:      store.Boards(),
		Blocks:      store.Blocks(),
		Messages:    store.Messages(),
		Connections: store.Connections(),
		Memory:      store.Memory(),
		Feed:        store.Feed(),
		TxManager:   store,
	}
}

// Services holds every service of the engine
type Services struct {
	Authorizer services.ResourceAuthorizer
	Blocks     canvasSvc.BlockService
	Graph      canvasSvc.GraphService
	Memory     memorySvc.MemoryService
	Composer   *composer.Engine
	Hub        *invalidation.Hub
	Assembler  *prompt.Assembler
	Responder  *prompt.Responder
}

// SetupServices wires the services over repos. Subscription notice streams
// live in a registry whose cleanup goroutine stops with ctx. provider and
// metrics may be nil.
func SetupServices(
	ctx context.Context,
	repos *Repositories,
	settings *config.ComposerSettings,
	breaker invalidation.BreakerSettings,
	provider llmprovider.Provider,
	metrics *observability.Collector,
	logger *slog.Logger,
) *Services {
	streamRegistry := mstream.NewRegistry()
	go streamRegistry.StartCleanup(ctx)

	// Team membership is managed by the UI collaborator; team boards are
	// owner-only until it is wired in
	authorizer := auth.NewOwnerBasedAuthorizer(
		repos.Boards,
		repos.Blocks,
		repos.Messages,
		repos.Connections,
		repos.Memory,
		nil,
	)

	resolver := composer.NewResolver(
		repos.Connections,
		repos.Blocks,
		repos.Messages,
		settings.BlockContext,
		logger,
	)
	builder := memory.NewBuilder(settings.Memory)
	engine := composer.NewEngine(resolver, repos.Memory, builder, settings.BlockContext, metrics, logger)

	graphService := graph.NewService(repos.Connections, repos.Blocks, repos.TxManager, authorizer, engine, metrics, logger)
	blockService := blocks.NewService(repos.Boards, repos.Blocks, repos.Messages, authorizer, engine, logger)
	memoryService := memory.NewService(repos.Memory, repos.Messages, repos.Blocks, authorizer, builder, engine, logger)

	hub := invalidation.NewHub(
		repos.Feed,
		repos.Boards,
		graphService,
		engine,
		authorizer,
		streamRegistry,
		breaker,
		metrics,
		logger,
	)

	assembler := prompt.NewAssembler(repos.Blocks, repos.Messages, engine, authorizer, logger)

	var responder *prompt.Responder
	if provider != nil {
		responder = prompt.NewResponder(assembler, blockService, provider, logger)
	}

	return &Services{
		Authorizer: authorizer,
		Blocks:     blockService,
		Graph:      graphService,
		Memory:     memoryService,
		Composer:   engine,
		Hub:        hub,
		Assembler:  assembler,
		Responder:  responder,
	}
}
