package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"referral-service/internal/config"
	"referral-service/internal/domain/model"
	"referral-service/internal/domain/ports/repository"
	pg "referral-service/internal/infra/db/postgres"
)

// Seeds a development database with the schema and a handful of referral
// codes so the validate/submit flows can be exercised by hand.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	schemaPath := flag.String("schema", "deploy/postgres/init.sql", "path to schema file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	schema, err := os.ReadFile(*schemaPath)
	if err != nil {
		log.Fatalf("read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	log.Println("schema applied")

	codes := pg.NewReferralCodeRepo(pool)

	expiry := time.Now().Add(90 * 24 * time.Hour)
	owned, err := model.NewReferralCode("ABC123", "user-1", "Ada Lovelace", nil)
	if err != nil {
		log.Fatalf("build owned code: %v", err)
	}
	special, err := model.NewSpecialCode("LAUNCH24", &expiry)
	if err != nil {
		log.Fatalf("build special code: %v", err)
	}

	for _, c := range []*model.ReferralCode{owned, special} {
		if err := codes.Save(ctx, repository.NoTX, c); err != nil {
			log.Fatalf("seed code %s: %v", c.Code, err)
		}
		log.Printf("seeded code %s (special=%v)", c.Code, c.IsSpecial)
	}
}
