package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/cache"
	"social-publisher/infrastructure/clients/blobstore"
	facebookclient "social-publisher/infrastructure/clients/facebook"
	twitterclient "social-publisher/infrastructure/clients/twitter"
	youtubeclient "social-publisher/infrastructure/clients/youtube"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/persistence"
	"social-publisher/infrastructure/pubsub"
	"social-publisher/infrastructure/realtime"
	"social-publisher/infrastructure/servicebus"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/server"
	"social-publisher/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")
	if _, err := os.Stat("config.env"); err == nil {
		logger.GetLogger().Info("Detected config.env in working directory")
	} else {
		logger.GetLogger().Info("config.env not found in working directory")
	}

	app := configuration.C.App

	publishDb, isMSSQL, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(1)
	}
	logger.GetLogger().
		WithField("PublishDB", publishDb.Ping()).
		WithField("vendor", dbVendorName(isMSSQL)).
		Info("Database connected.")

	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without publish audit trail")
		mongoDb = nil
	} else {
		if err := mongoDb.Ping(ctx, nil); err != nil {
			logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing without publish audit trail")
			mongoDb = nil
		} else {
			logger.GetLogger().Info("MongoDB connected successfully")
		}
	}

	pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("PubSub not available - post events will not be emitted")
		pubSubClient = nil
	}

	azServiceBusClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - schedules rely on the sweep loop only")
		azServiceBusClient = nil
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Redis not available; authorization flows cannot hold state")
		os.Exit(1)
	}
	logger.GetLogger().Info("Redis client initialized successfully.")

	// Repository wiring: Azure SQL in production, otherwise PostgreSQL.
	var (
		connectionRepo repository.IConnection
		scheduleRepo   repository.IScheduledPost
		userRepository repository.IUser
	)
	if isMSSQL {
		if err := persistence.EnsurePublishSchemaMSSQL(publishDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring publish schema")
		}
		connectionRepo = persistence.NewConnectionRepositoryMSSQL(publishDb)
		scheduleRepo = persistence.NewScheduledPostRepositoryMSSQL(publishDb)
		userRepository = persistence.NewUserRepositoryMSSQL(publishDb)
	} else {
		if err := persistence.EnsurePublishSchema(publishDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring publish schema")
		}
		connectionRepo = persistence.NewConnectionRepository(publishDb)
		scheduleRepo = persistence.NewScheduledPostRepository(publishDb)
		userRepository = persistence.NewUserRepository(publishDb)
	}

	pendingStore := cache.NewPendingAuthorizationStore(redisClient)
	auditRepo := persistence.NewPublishAuditRepository(mongoDb)
	postEvents := pubsub.NewPostEvents(pubSubClient, configuration.C.Pubsub.Topic)
	blobStore := blobstore.NewBlobStoreClient(configuration.C.BlobStore)
	if configuration.C.BlobStore.Host == "" {
		logger.GetLogger().Warn("BlobStore host not configured; media publishing will fail until it is set")
	}

	// Platform clients. Twitter carries both OAuth legs; facebook and youtube
	// are OAuth2-only.
	twitterCl := twitterclient.NewTwitterClient(configuration.C.OAuth.Twitter)
	facebookCl := facebookclient.NewFacebookClient(configuration.C.OAuth.Facebook)
	youtubeCl := youtubeclient.NewYouTubeClient(configuration.C.OAuth.YouTube)

	platforms := map[string]repository.IPlatform{
		model.PlatformTwitter:  twitterCl,
		model.PlatformFacebook: facebookCl,
		model.PlatformYouTube:  youtubeCl,
	}
	oauth2Flows := map[string]repository.IOAuth2Flow{
		model.PlatformTwitter:  twitterCl,
		model.PlatformFacebook: facebookCl,
		model.PlatformYouTube:  youtubeCl,
	}
	oauth1Flows := map[string]repository.IOAuth1Flow{
		model.PlatformTwitter: twitterCl,
	}
	redirects := map[string]string{
		model.PlatformTwitter:  configuration.C.OAuth.Twitter.RedirectURI,
		model.PlatformFacebook: configuration.C.OAuth.Facebook.RedirectURI,
		model.PlatformYouTube:  configuration.C.OAuth.YouTube.RedirectURI,
	}

	var jobQueue repository.IJobQueue
	var scheduledQueue *servicebus.ScheduledPostQueue
	if azServiceBusClient != nil {
		scheduledQueue = servicebus.NewScheduledPostQueue(azServiceBusClient, configuration.C.ServiceBus.Queue)
		jobQueue = scheduledQueue
	}

	connectUsecase := usecase.NewConnectUsecase(connectionRepo, pendingStore, oauth2Flows, oauth1Flows, redirects)
	validateUsecase := usecase.NewValidateUsecase(connectionRepo, oauth2Flows)
	publishUsecase := usecase.NewPublishUsecase(validateUsecase, platforms, blobStore, auditRepo, postEvents, configuration.C.BlobStore.PresignTTL)

	scheduleHub := realtime.NewScheduleHub()
	scheduleUsecase := usecase.NewScheduleUsecase(scheduleRepo, jobQueue, publishUsecase).
		WithBroadcaster(scheduleHub.BroadcastScheduleStatus)

	connectHandler := httpHandler.NewConnectHandler(connectUsecase, validateUsecase)
	publishHandler := httpHandler.NewPublishHandler(publishUsecase)
	scheduleHandler := httpHandler.NewScheduleHandler(scheduleUsecase)

	router := server.InitiateRouter(connectHandler, publishHandler, scheduleHandler, userRepository, scheduleHub)

	// Service Bus consumer fires schedules at their due time; the sweep loop
	// below is the backstop for rows whose enqueue failed or whose message
	// was lost.
	if scheduledQueue != nil {
		g.Go(func() error {
			return scheduledQueue.RunConsumer(ctx, scheduleUsecase)
		})
	}

	sweepInterval := time.Duration(configuration.C.Scheduler.SweepIntervalSeconds) * time.Second
	sweepBatch := configuration.C.Scheduler.SweepBatchSize
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				sweepCtx, cancelSweep := context.WithTimeout(ctx, sweepInterval)
				if err := scheduleUsecase.ProcessOverdue(sweepCtx, sweepBatch); err != nil {
					logger.GetLogger().WithField("error", err).Error("Overdue schedule sweep failed")
				}
				cancelSweep()
			}
		}
	})

	port := app.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateDatabase opens the publishing database. Production and
// DB_VENDOR=mssql run on Azure SQL; everything else runs on PostgreSQL, with
// an optional MySQL automigrate mirror for local schema experiments.
func InitiateDatabase() (*sql.DB, bool, error) {
	env := os.Getenv("ENV")
	if os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod" {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, false, err
		}
		return db, true, nil
	}

	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to the local database")
		return nil, false, err
	}
	if configuration.C.Database.MySql.Host != "" {
		if _, err := persistence.NewRepositories(); err != nil {
			logger.GetLogger().WithField("error", err).Warn("MySQL automigrate mirror not available")
		}
	}
	return db, false, nil
}

func dbVendorName(isMSSQL bool) string {
	if isMSSQL {
		return "mssql"
	}
	return "postgres"
}
