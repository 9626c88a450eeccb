package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/akademi-backend/internal/config"
	"github.com/stemsi/akademi-backend/internal/database"
	"github.com/stemsi/akademi-backend/internal/logger"
	"github.com/stemsi/akademi-backend/internal/repository"
	"github.com/stemsi/akademi-backend/internal/seed"
	"github.com/stemsi/akademi-backend/internal/service"
)

func main() {
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed demo token")
	retire := flag.Bool("retire", false, "Deactivate the current demo exam and seed a fresh one")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	fmt.Println("=== Seeding demo course ===")

	// Courses and users are owned by other systems; insert the demo rows directly.
	if _, err := pool.Exec(ctx,
		`INSERT INTO courses (id, title) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title`,
		seed.DemoCourse.ID, seed.DemoCourse.Title,
	); err != nil {
		log.Fatal().Err(err).Msg("Failed to upsert demo course")
	}
	u := seed.DemoUser
	if _, err := pool.Exec(ctx,
		`INSERT INTO users (id, email, first_name, last_name) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		u.ID, u.Email, u.FirstName, u.LastName,
	); err != nil {
		log.Fatal().Err(err).Msg("Failed to upsert demo user")
	}

	// Redis is optional here; when reachable, edits also drop the server's cached payloads.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, cached exam payloads expire on their own")
		} else {
			rdb = client
			defer rdb.Close()
		}
	}

	store := repository.NewPostgresStore(pool)
	catalog := service.NewExamCatalog(store.Exams, store.Questions, rdb, cfg.PayloadCacheTTL, log)

	if *retire {
		current, err := catalog.GetExamForCourse(ctx, seed.DemoCourse.ID)
		switch {
		case err == nil:
			if err := catalog.SetExamActive(ctx, current.ID, false); err != nil {
				log.Fatal().Err(err).Msg("Failed to retire demo exam")
			}
			fmt.Printf("Retired exam %s\n", current.ID)
		case errors.Is(err, service.ErrNotFound):
		default:
			log.Fatal().Err(err).Msg("Failed to look up demo exam")
		}
	}

	exam, created, err := seed.DemoExam(ctx, store.Exams, catalog, seed.DemoCourse.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed demo exam")
	}
	if created {
		fmt.Printf("Created exam %s with %d questions\n", exam.ID, exam.TotalQuestions)
	} else {
		added, removed, err := seed.SyncDemoQuestions(ctx, catalog, exam.ID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to sync demo questions")
		}
		fmt.Printf("Found existing exam %s (added %d, removed %d questions)\n", exam.ID, added, removed)
	}

	token, err := service.NewAuthService(cfg).GenerateToken(u.ID, *tokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign demo token")
	}

	fmt.Printf("\nSeed completed!\n  course: %s\n  exam:   %s\n  user:   %s\n  token:  %s\n",
		seed.DemoCourse.ID, exam.ID, u.ID, token)
}
