// Package main seeds the initial admin account. Run once per environment.
package main

import (
	"context"
	"log"

	"aurum/internal/config"
	"aurum/internal/models"
	"aurum/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	config.LoadEnv()

	db, err := repositories.Connect(repositories.DBConfig{MaxIdleConns: 2, MaxOpenConns: 5})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	email := config.GetEnv("ADMIN_EMAIL", "admin@example.com")
	password := config.GetEnv("ADMIN_PASSWORD", "")
	if password == "" {
		log.Fatal("ADMIN_PASSWORD is required")
	}

	users := repositories.NewUserRepository(db)
	ctx := context.Background()

	if _, err := users.GetByEmail(ctx, email); err == nil {
		log.Printf("Admin %s already exists, nothing to do", email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	admin := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}
	log.Printf("Admin %s created with id %d", email, admin.ID)
}
