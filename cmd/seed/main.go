// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev admin (admin@example.com) already exists.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"personnel-registry/backend/internal/account/domain"
	accountrepo "personnel-registry/backend/internal/account/repository"
	"personnel-registry/backend/internal/config"
	"personnel-registry/backend/internal/db"
	"personnel-registry/backend/internal/security"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "ChangeMe123!"
	userEmail     = "clerk@example.com"
	userPassword  = "ChangeMe123!"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	dbConn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer dbConn.Close()

	ctx := context.Background()
	repo := accountrepo.NewPostgresRepository(dbConn)
	hasher := security.NewHasher(cfg.Argon2MemoryKiB, cfg.Argon2Time, cfg.Argon2Parallelism)

	if _, err := repo.FindBySubject(ctx, adminEmail); err == nil {
		log.Println("seed: dev admin already exists, nothing to do")
		return
	} else if !errors.Is(err, accountrepo.ErrNotFound) {
		log.Fatalf("seed: %v", err)
	}

	seedUser(ctx, repo, hasher, adminEmail, adminPassword, "Ada", "Admin", domain.RoleAdmin)
	seedUser(ctx, repo, hasher, userEmail, userPassword, "Cleo", "Clerk", domain.RoleUser)
	log.Println("seed: done")
}

func seedUser(ctx context.Context, repo *accountrepo.PostgresRepository, hasher *security.Hasher, email, password, first, last string, role domain.Role) {
	hash, err := hasher.Hash(password)
	if err != nil {
		log.Fatalf("seed: hash %s: %v", email, err)
	}
	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		FirstName:    first,
		LastName:     last,
		Role:         role,
		Status:       domain.UserStatusActive,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, u); err != nil {
		log.Fatalf("seed: create %s: %v", email, err)
	}
	log.Printf("seed: created %s (%s)", email, role)
}
