// Server runs the Motorello auth HTTP API: registration, multi-factor login,
// session issuance, and profile routes.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"motorello/backend/internal/audit"
	auditproducer "motorello/backend/internal/audit/producer"
	auditrepo "motorello/backend/internal/audit/repository"
	authhandler "motorello/backend/internal/auth/handler"
	authservice "motorello/backend/internal/auth/service"
	challengerepo "motorello/backend/internal/challenge/repository"
	"motorello/backend/internal/config"
	"motorello/backend/internal/db"
	"motorello/backend/internal/devotp"
	devotphandler "motorello/backend/internal/devotp/handler"
	"motorello/backend/internal/face"
	healthhandler "motorello/backend/internal/health/handler"
	"motorello/backend/internal/mail"
	"motorello/backend/internal/ratelimit"
	"motorello/backend/internal/security"
	"motorello/backend/internal/server"
	"motorello/backend/internal/server/middleware"
	sessionrepo "motorello/backend/internal/session/repository"
	"motorello/backend/internal/sms"
	"motorello/backend/internal/storage"
	"motorello/backend/internal/telemetry/otel"
	userhandler "motorello/backend/internal/user/handler"
	userrepo "motorello/backend/internal/user/repository"
)

const serviceName = "motorello-auth"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessTTL(), cfg.RefreshTTL(), cfg.ResetTTL())

	// Audit events go to Postgres always; to Kafka when brokers are set,
	// else to the OTel log pipeline.
	var emitter audit.Emitter
	producer := auditproducer.NewKafkaProducer(cfg.AuditKafkaBrokersList(), cfg.AuditKafkaTopic)
	if producer != nil {
		defer producer.Close()
		emitter = producer
	} else {
		emitter = otel.NewEventEmitter(providers.LoggerProvider)
	}
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn), middleware.GetClientIP, emitter)

	var limiter authservice.SendLimiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		limiter = ratelimit.NewRedisLimiter(client, "otp_send", 5, time.Minute)
	} else {
		limiter = ratelimit.NewMemoryLimiter(rate.Every(12*time.Second), 5)
	}

	images, err := storage.NewS3Store(ctx, storage.Config{
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Endpoint:  cfg.S3Endpoint,
	})
	if err != nil {
		log.Fatalf("s3: %v", err)
	}

	var devStore *devotp.MemoryStore
	var devHandler *devotphandler.DevOTPHandler
	if cfg.OTPReturnToClient {
		devStore = devotp.NewMemoryStore()
		devHandler = devotphandler.NewDevOTPHandler(devStore)
		log.Println("dev OTP mode enabled: codes retrievable via GET /dev/otp")
	}

	users := userrepo.NewPostgresRepository(conn)
	svcDeps := authservice.Deps{
		Users:      users,
		Challenges: challengerepo.NewPostgresRepository(conn),
		Sessions:   sessionrepo.NewPostgresRepository(conn),
		Hasher:     security.NewHasher(cfg.BcryptCost),
		Tokens:     tokens,
		SMS:        sms.NewFast2SMSClient(cfg.Fast2SMSAPIKey, cfg.Fast2SMSBaseURL),
		Mail:       mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom),
		Images:     images,
		Extractor:  face.NewHTTPExtractor(cfg.FaceExtractorURL),
		Limiter:    limiter,
		Audit:      auditLogger,

		FaceThreshold: cfg.FaceMatchThreshold,
		ResetBaseURL:  "https://motorello.com",
	}
	if devStore != nil {
		svcDeps.DevOTP = devStore
	}
	svc := authservice.NewAuthService(svcDeps)

	e := server.NewRouter(server.Deps{
		Auth:        authhandler.NewAuthHandler(svc),
		Users:       userhandler.NewUserHandler(users),
		Health:      healthhandler.NewHealthHandler(conn),
		DevOTP:      devHandler,
		Tokens:      tokens,
		ServiceName: serviceName,
	})

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	// Give in-flight audit emits a chance to flush before the producer closes.
	time.Sleep(audit.ShutdownDrainDuration)
	log.Println("HTTP server stopped")
}
