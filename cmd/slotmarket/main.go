package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotmarket/internal/app/commands"
	negotiationapp "slotmarket/internal/app/handlers/negotiation"
	slotsapp "slotmarket/internal/app/handlers/slots"
	"slotmarket/internal/app/middleware"
	appoutbox "slotmarket/internal/app/outbox"
	"slotmarket/internal/app/queries"
	"slotmarket/internal/app/schedule"
	"slotmarket/internal/app/services/attachments"
	authsvc "slotmarket/internal/app/services/auth"
	"slotmarket/internal/app/uow"
	domainuser "slotmarket/internal/domain/user"
	"slotmarket/internal/infra/broker/kafka"
	"slotmarket/internal/infra/config"
	mongodb "slotmarket/internal/infra/db/mongo"
	ginserver "slotmarket/internal/infra/http/gin"
	"slotmarket/internal/infra/inbox"
	"slotmarket/internal/infra/notify"
	"slotmarket/internal/infra/obs"
	infraoutbox "slotmarket/internal/infra/outbox"
	"slotmarket/internal/infra/security"
	"slotmarket/internal/infra/storage/memory"
	"slotmarket/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.StorageMode = "memory"
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application bootstrap failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	for _, runner := range app.runners {
		go runner(ctx)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	ready    func() error
	runners  []func(context.Context)
}

type storageSet struct {
	uowFactory uow.UoWFactory
	outbox     appoutbox.Outbox
	idStore    middleware.IdempotencyStore
	users      domainuser.Repository
	ready      func() error
}

func buildApplication(cfg config.Config, logger *slog.Logger) (application, error) {
	app := application{}

	storage, err := buildStorage(cfg, logger, &app)
	if err != nil {
		return application{}, err
	}
	app.ready = storage.ready

	commandBus := commands.NewInMemoryBus()
	encoder := appoutbox.JSONEventEncoder{}

	openRequest := &negotiationapp.OpenRequestHandler{UoWFactory: storage.uowFactory, Outbox: storage.outbox, Encoder: encoder}
	commands.RegisterHandler(commandBus, negotiationapp.OpenRequestCommand{}.Key(), openRequest)
	submitMessage := &negotiationapp.SubmitMessageHandler{UoWFactory: storage.uowFactory}
	commands.RegisterHandler(commandBus, negotiationapp.SubmitMessageCommand{}.Key(), submitMessage)
	submitProposal := &negotiationapp.SubmitProposalHandler{UoWFactory: storage.uowFactory, Outbox: storage.outbox, Encoder: encoder}
	commands.RegisterHandler(commandBus, negotiationapp.SubmitProposalCommand{}.Key(), submitProposal)
	accept := &negotiationapp.AcceptHandler{UoWFactory: storage.uowFactory, Outbox: storage.outbox, Encoder: encoder}
	commands.RegisterHandler(commandBus, negotiationapp.AcceptCommand{}.Key(), accept)
	finalize := &negotiationapp.FinalizeHandler{UoWFactory: storage.uowFactory, Outbox: storage.outbox, Encoder: encoder}
	commands.RegisterHandler(commandBus, negotiationapp.FinalizeCommand{}.Key(), finalize)
	reject := &negotiationapp.RejectHandler{UoWFactory: storage.uowFactory, Outbox: storage.outbox, Encoder: encoder}
	commands.RegisterHandler(commandBus, negotiationapp.RejectCommand{}.Key(), reject)
	renegotiate := &negotiationapp.RenegotiateHandler{UoWFactory: storage.uowFactory, Outbox: storage.outbox, Encoder: encoder}
	commands.RegisterHandler(commandBus, negotiationapp.RenegotiateCommand{}.Key(), renegotiate)
	markRead := &negotiationapp.MarkReadHandler{UoWFactory: storage.uowFactory}
	commands.RegisterHandler(commandBus, negotiationapp.MarkReadCommand{}.Key(), markRead)

	submitSlot := &slotsapp.SubmitSlotHandler{UoWFactory: storage.uowFactory, Outbox: storage.outbox, Encoder: encoder}
	commands.RegisterHandler(commandBus, slotsapp.SubmitSlotCommand{}.Key(), submitSlot)
	approveSlot := &slotsapp.ApproveSlotHandler{UoWFactory: storage.uowFactory, Outbox: storage.outbox, Encoder: encoder}
	commands.RegisterHandler(commandBus, slotsapp.ApproveSlotCommand{}.Key(), approveSlot)
	rejectSlot := &slotsapp.RejectSlotHandler{UoWFactory: storage.uowFactory, Outbox: storage.outbox, Encoder: encoder}
	commands.RegisterHandler(commandBus, slotsapp.RejectSlotCommand{}.Key(), rejectSlot)
	lifecycle := &slotsapp.LifecycleHandler{UoWFactory: storage.uowFactory, Outbox: storage.outbox, Encoder: encoder}
	commands.RegisterHandler(commandBus, slotsapp.GoLiveCommand{}.Key(), lifecycle.GoLiveHandler())
	commands.RegisterHandler(commandBus, slotsapp.EndSlotCommand{}.Key(), lifecycle.EndHandler())

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, negotiationapp.ThreadFeedQuery{}.Key(), &negotiationapp.ThreadFeedHandler{UoWFactory: storage.uowFactory})
	queries.RegisterHandler(queryBus, negotiationapp.NegotiationStateQuery{}.Key(), &negotiationapp.NegotiationStateHandler{UoWFactory: storage.uowFactory})
	queries.RegisterHandler(queryBus, negotiationapp.ListRequestsQuery{}.Key(), &negotiationapp.ListRequestsHandler{UoWFactory: storage.uowFactory})
	queries.RegisterHandler(queryBus, slotsapp.SlotByIDQuery{}.Key(), &slotsapp.SlotByIDHandler{UoWFactory: storage.uowFactory})
	queries.RegisterHandler(queryBus, slotsapp.ListSlotsQuery{}.Key(), &slotsapp.ListSlotsHandler{UoWFactory: storage.uowFactory})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(storage.idStore, nil),
		middleware.Transaction(storage.uowFactory, nil),
		middleware.OutboxFlush(storage.outbox),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	authService := &authsvc.Service{
		Users:      storage.users,
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	attachmentService := &attachments.Service{
		Uploader: buildUploader(cfg, logger),
		Logger:   logger,
	}

	scheduler := &schedule.CampaignScheduler{
		Commands:   commandBusWithMiddleware,
		UoWFactory: storage.uowFactory,
		Logger:     logger,
	}
	app.runners = append(app.runners, func(ctx context.Context) {
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("campaign scheduler stopped", "error", err)
		}
	})

	app.handlers = ginserver.Handlers{
		Negotiation: ginserver.NegotiationHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
			Logger:   logger,
		},
		Slots: ginserver.SlotHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
			Logger:   logger,
		},
		Export: ginserver.ExportHandler{
			Queries: queryBusWithMiddleware,
			Logger:  logger,
		},
		Attachments: ginserver.AttachmentHandler{
			Service: attachmentService,
			Logger:  logger,
		},
		Auth: ginserver.AuthHandler{
			Service: authService,
			Logger:  logger,
		},
		AuthMiddleware: ginserver.AuthMiddleware{
			Service: authService,
			Logger:  logger,
		}.Handle,
	}
	return app, nil
}

func buildStorage(cfg config.Config, logger *slog.Logger, app *application) (storageSet, error) {
	if cfg.StorageMode == "memory" {
		return buildMemoryStorage(), nil
	}

	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storageSet{}, fmt.Errorf("connect mongo: %w", err)
	}
	userRepo := mongodb.NewUserRepository(client.DB)
	factory := mongodb.Factory{
		DB:          client.DB,
		RequestRepo: mongodb.NewRequestRepository(client.DB),
		MessageRepo: mongodb.NewMessageRepository(client.DB),
		SlotRepo:    mongodb.NewSlotRepository(client.DB),
		UserRepo:    userRepo,
	}
	outboxStore := infraoutbox.NewStore(client.DB)

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return storageSet{}, fmt.Errorf("connect kafka: %w", err)
	}
	worker := &infraoutbox.Worker{
		Store:       outboxStore,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "app://slotmarket",
		Backoff:     cfg.RetryBackoff,
	}
	app.runners = append(app.runners, func(ctx context.Context) {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
		_ = producer.Close()
	})

	notifierHandler := notify.EventHandler{
		Inbox:    inbox.NewStore(client.DB, "negotiation-notifier"),
		Notifier: notify.SlogNotifier{Logger: logger},
		Logger:   logger,
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, "slotmarket-notifier", nil, notifierHandler)
	if err != nil {
		return storageSet{}, fmt.Errorf("connect kafka consumer: %w", err)
	}
	topics := []string{
		cfg.KafkaTopicPrefix + "negotiation.events.v1",
		cfg.KafkaTopicPrefix + "slot.events.v1",
	}
	app.runners = append(app.runners, func(ctx context.Context) {
		if err := consumer.Run(ctx, topics); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notification consumer stopped", "error", err)
		}
		_ = consumer.Close()
	})

	return storageSet{
		uowFactory: factory,
		outbox:     outboxStore,
		idStore:    mongodb.NewIdempotencyStore(client.DB),
		users:      userRepo,
		ready: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		},
	}, nil
}

func buildMemoryStorage() storageSet {
	userRepo := memory.NewUserRepository()
	return storageSet{
		uowFactory: memory.Factory{
			RequestRepo: memory.NewRequestRepository(),
			MessageRepo: memory.NewMessageRepository(),
			SlotRepo:    memory.NewSlotRepository(),
			UserRepo:    userRepo,
		},
		outbox:  memory.NewOutbox(),
		idStore: memory.NewIdempotencyStore(),
		users:   userRepo,
		ready:   func() error { return nil },
	}
}

func buildUploader(cfg config.Config, logger *slog.Logger) attachments.Uploader {
	client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
	if err != nil {
		logger.Warn("object storage unavailable, uploads disabled", "error", err)
		return s3.NoopUploader{}
	}
	return client
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
