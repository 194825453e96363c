package config

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"

	"taskflow/internal/store"
	"taskflow/pkg/googleauth"
	"taskflow/pkg/mailer"
)

var (
	// Global dependency yang akan digunakan di seluruh aplikasi.
	// Koneksi database tidak lagi global: dia disuntikkan ke dalam Store.
	Store       *store.Store
	Mailer      mailer.Mailer
	Google      *googleauth.Verifier
	SecretKey   = []byte("secret")
	Validate    = validator.New()
	Ctx         = context.Background()
	RedisClient *redis.Client
)
