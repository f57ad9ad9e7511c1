package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nowgo-ai/nowgo-platform/internal/auth"
	"github.com/nowgo-ai/nowgo-platform/internal/config"
)

func main() {
	user := flag.String("user", "", "user ID (optional, omit for service accounts)")
	name := flag.String("name", "", "human-friendly key name (required)")
	plan := flag.String("plan", "starter", "pricing plan ID from plans.yaml")
	env := flag.String("env", "live", "environment segment of the key")
	monthly := flag.Int("monthly-limit", 0, "monthly request limit (0 = plan default, -1 = unlimited)")
	rpm := flag.Int("rpm", 0, "requests per minute (0 = plan default or server default)")
	expires := flag.String("expires", "365d", "expiry duration (e.g., 365d, 720h)")
	configDir := flag.String("config", "configs", "path to configuration directory")
	dbURL := flag.String("db-url", "", "database URL (overrides env and config)")
	flag.Parse()

	if *name == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nerror: -name is required")
		os.Exit(1)
	}

	plans := &config.PlansConfig{}
	if err := config.LoadFile(filepath.Join(*configDir, "plans.yaml"), plans); err != nil && (*monthly == 0 || *rpm == 0) {
		log.Printf("warning: %v (plan defaults unavailable)", err)
	}
	p, ok := plans.Find(*plan)
	if !ok && *monthly == 0 {
		log.Fatalf("unknown plan %q and no -monthly-limit given", *plan)
	}

	monthlyLimit := limitOrDefault(*monthly, p.RequestsPerMonth)
	rpmLimit := limitOrDefault(*rpm, p.RPMLimit)

	rawKey, err := auth.GenerateKey(*env)
	if err != nil {
		log.Fatalf("failed to generate key: %v", err)
	}
	keyHash := auth.HashKey(rawKey)
	keyPrefix := auth.KeyPrefix(rawKey)

	dur, err := auth.ParseDuration(*expires)
	if err != nil {
		log.Fatalf("invalid expires: %v", err)
	}
	expiresAt := time.Now().Add(dur)

	dsn, err := config.ResolveDSN(*dbURL, *configDir)
	if err != nil {
		log.Fatalf("failed to resolve database URL: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	var keyID string
	err = conn.QueryRow(ctx, `
		INSERT INTO api_keys (key_hash, key_prefix, user_id, name, plan, monthly_request_limit, rpm_limit, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, keyHash, keyPrefix, nilIfEmpty(*user), *name, *plan, monthlyLimit, rpmLimit, expiresAt).Scan(&keyID)
	if err != nil {
		log.Fatalf("failed to insert key: %v", err)
	}

	fmt.Println("=== NowGo API Key Generated ===")
	fmt.Println()
	fmt.Printf("  Key ID:         %s\n", keyID)
	fmt.Printf("  Key Prefix:     %s\n", keyPrefix)
	fmt.Printf("  Plan:           %s\n", *plan)
	if *user != "" {
		fmt.Printf("  User:           %s\n", *user)
	}
	fmt.Printf("  Monthly Limit:  %s\n", describeLimit(monthlyLimit))
	fmt.Printf("  RPM Limit:      %s\n", describeLimit(rpmLimit))
	fmt.Printf("  Expires:        %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("  API Key (save this, it will NOT be shown again):")
	fmt.Printf("  %s\n", rawKey)
	fmt.Println()
	fmt.Println("================================")
}

// limitOrDefault maps a flag value onto a nullable column: positive values
// win, 0 falls back to the plan, and -1 (or an unset plan value) means no limit.
func limitOrDefault(flagValue, planValue int) *int {
	switch {
	case flagValue > 0:
		return &flagValue
	case flagValue == 0 && planValue > 0:
		return &planValue
	default:
		return nil
	}
}

func describeLimit(v *int) string {
	if v == nil {
		return "unlimited"
	}
	return fmt.Sprintf("%d", *v)
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
