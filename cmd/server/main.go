package main

import (
	"context"
	"crypto"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc/health"

	"scrumtools/backend/internal/audit"
	auditrepo "scrumtools/backend/internal/audit/repository"
	"scrumtools/backend/internal/config"
	"scrumtools/backend/internal/db"
	healthhandler "scrumtools/backend/internal/health/handler"
	"scrumtools/backend/internal/policy/engine"
	"scrumtools/backend/internal/poker/broadcast"
	"scrumtools/backend/internal/poker/gateway"
	pokerhandler "scrumtools/backend/internal/poker/handler"
	"scrumtools/backend/internal/poker/presence"
	pokerrepo "scrumtools/backend/internal/poker/repository"
	"scrumtools/backend/internal/poker/service"
	"scrumtools/backend/internal/security"
	"scrumtools/backend/internal/server"
	"scrumtools/backend/internal/server/interceptors"
	"scrumtools/backend/internal/telemetry"
	oteltelemetry "scrumtools/backend/internal/telemetry/otel"
	"scrumtools/backend/internal/telemetry/producer"
)

const (
	serviceName         = "scrumtools-poker"
	healthSyncInterval  = 10 * time.Second
	httpShutdownTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := oteltelemetry.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	tokens, err := loadTokens(cfg)
	if err != nil {
		log.Fatalf("jwt: %v", err)
	}
	if tokens == nil {
		log.Println("jwt: JWT_PUBLIC_KEY not set; every authenticated call will be rejected")
	}

	var (
		repo   pokerrepo.Repository
		audits auditrepo.Repository
	)
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer sqlDB.Close()
		repo = pokerrepo.NewPostgresRepository(sqlDB)
		audits = auditrepo.NewPostgresRepository(sqlDB)
	} else {
		log.Println("db: DATABASE_URL not set; sessions are kept in memory")
		repo = pokerrepo.NewMemoryRepository()
		audits = auditrepo.NewMemoryRepository()
	}

	hubOpts := []broadcast.Option{broadcast.WithBufferSize(cfg.SubscriberBuffer)}
	if cfg.RedisURL != "" {
		backplane, err := broadcast.NewRedisBackplane(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer backplane.Close()
		hubOpts = append(hubOpts, broadcast.WithBackplane(backplane))
	}
	hub := broadcast.NewHub(hubOpts...)

	policySrc, err := engine.LoadPolicyFile(cfg.PolicyFile)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}
	authz, err := engine.NewOPAEvaluator(ctx, policySrc)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	emitters := []telemetry.EventEmitter{oteltelemetry.NewEventEmitter(providers.LoggerProvider)}
	if kp := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic); kp != nil {
		defer kp.Close()
		emitters = append(emitters, kp)
		log.Printf("telemetry: writing to kafka topic %s", cfg.TelemetryKafkaTopic)
	}
	emitter := telemetry.Multi(emitters...)

	svc := service.New(repo,
		service.WithScale(cfg.Scale()),
		service.WithConflictPolicy(cfg.Policy()),
		service.WithNotifier(gateway.NewSessionPublisher(hub)),
	)
	gw := gateway.New(svc,
		gateway.WithAuthorizer(authz),
		gateway.WithAuditLogger(audit.NewLogger(audits, interceptors.ClientIP)),
		gateway.WithEmitter(emitter),
		gateway.WithDedupeTTL(cfg.DedupeTTL()),
	)
	go gw.Start()
	defer gw.Stop()

	checker := healthhandler.NewChecker(repo, authz)
	healthSrv := health.NewServer()

	grpcSrv := server.NewServer(server.Deps{
		Tokens:  tokens,
		Poker:   pokerhandler.NewServer(gw),
		Health:  healthSrv,
		Emitter: emitter,
	})
	router, err := pokerhandler.NewRouter(
		pokerhandler.NewWSHandler(gw, hub, presence.NewTracker(hub), tokens, cfg.CORSOrigins()),
		checker,
		cfg.CORSOrigins(),
	)
	if err != nil {
		log.Fatalf("router: %v", err)
	}
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	go func() {
		if err := hub.Run(ctx); err != nil {
			log.Printf("broadcast: %v", err)
		}
	}()
	go checker.Sync(ctx, healthSrv, healthSyncInterval)
	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("serve grpc: %v", err)
		}
	}()
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve http: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	grpcSrv.GracefulStop()

	time.Sleep(telemetry.ShutdownDrainDuration)
	otelCtx, otelCancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer otelCancel()
	if err := providers.Shutdown(otelCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("server stopped")
}

// loadTokens builds a verify-only token provider; a private key, if configured, also serves as the
// verification key. It returns nil when no key is configured.
func loadTokens(cfg *config.Config) (interceptors.TokenValidator, error) {
	var (
		priv crypto.Signer
		pub  crypto.PublicKey
		err  error
	)
	if cfg.JWTPublicKey != "" {
		if pub, err = security.ParsePublicKey(cfg.JWTPublicKey); err != nil {
			return nil, err
		}
	}
	if pub == nil && cfg.JWTPrivateKey != "" {
		if priv, err = security.ParsePrivateKey(cfg.JWTPrivateKey); err != nil {
			return nil, err
		}
	}
	if pub == nil && priv == nil {
		return nil, nil
	}
	return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL()), nil
}
