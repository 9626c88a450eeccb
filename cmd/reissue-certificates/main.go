package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/stemsi/akademi-backend/internal/config"
	"github.com/stemsi/akademi-backend/internal/database"
	"github.com/stemsi/akademi-backend/internal/logger"
	"github.com/stemsi/akademi-backend/internal/repository"
	"github.com/stemsi/akademi-backend/internal/scoring"
	"github.com/stemsi/akademi-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	limit := flag.Int("limit", 500, "Maximum attempts to process")
	dryRun := flag.Bool("dry-run", false, "List attempts without issuing")
	yes := flag.Bool("yes", false, "Skip the confirmation prompt")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	honors := scoring.DefaultHonorsScale()
	if cfg.HonorsScaleFile != "" {
		if honors, err = scoring.LoadHonorsScale(cfg.HonorsScaleFile); err != nil {
			log.Fatal().Err(err).Str("path", cfg.HonorsScaleFile).Msg("Failed to load honors scale")
		}
	}

	store := repository.NewPostgresStore(pool)
	catalog := service.NewExamCatalog(store.Exams, store.Questions, nil, 0, log)
	ledger := service.NewAttemptLedger(store.Attempts)
	issuer := service.NewCertificateIssuer(store.Certificates, honors, nil, log)
	guard := service.NewAccessGuard(catalog, ledger, issuer, store, nil, log)

	pending, err := ledger.ListPassedWithoutCertificate(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list attempts")
	}

	fmt.Printf("=== %d passed attempt(s) without a certificate ===\n", len(pending))
	for _, a := range pending {
		score := 0.0
		if a.Score != nil {
			score = *a.Score
		}
		fmt.Printf("  %s  user=%s  score=%s\n", a.ID, a.UserID, service.FormatGrade(score))
	}
	if len(pending) == 0 || *dryRun {
		return
	}

	if !*yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "stdin is not a terminal; pass -yes to run non-interactively")
			os.Exit(1)
		}
		fmt.Print("Issue certificates now? [y/N] ")
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}

	issued, err := guard.ReissueMissing(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Re-issuance failed")
	}
	fmt.Printf("\nDone. Issued %d/%d certificate(s).\n", issued, len(pending))
}
