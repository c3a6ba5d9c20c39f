// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"motorello/backend/internal/config"
	"motorello/backend/internal/db"
	"motorello/backend/internal/security"
	"motorello/backend/internal/user/domain"
	userrepo "motorello/backend/internal/user/repository"
)

const (
	devUserEmail     = "dev@example.com"
	devPassword      = "password123"
	mechanicEmail    = "mechanic@example.com"
	mechanicPassword = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	now := time.Now().UTC()

	for _, spec := range []struct {
		email    string
		password string
		first    string
		last     string
		phone    string
		role     domain.Role
	}{
		{devUserEmail, devPassword, "Dev", "Customer", "919876543210", domain.RoleCustomer},
		{mechanicEmail, mechanicPassword, "Dev", "Mechanic", "", domain.RoleMechanic},
	} {
		hash, err := hasher.Hash([]byte(spec.password))
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		u := &domain.User{
			ID:            uuid.New().String(),
			Email:         spec.email,
			Phone:         spec.phone,
			FirstName:     spec.first,
			LastName:      spec.last,
			PasswordHash:  hash,
			Role:          spec.role,
			Status:        domain.StatusActive,
			PhoneVerified: spec.phone != "",
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create %s: %v", spec.email, err)
		}
		log.Printf("created %s (%s)", spec.email, spec.role)
	}

	log.Println("Seed complete.")
}
