package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"ajo/internal/domain/ledger"
	"ajo/internal/infrastructure/postgres"
	"ajo/internal/shared/config"
	"ajo/internal/shared/logger"
)

const usage = `Ajo Admin CLI - Maintenance commands for the Ajo ledger

Usage:
  admin <command> [options]

Commands:
  migrate          Apply pending database migrations
  audit-balances   Verify that every balance equals the sum of its completed transactions
  lookup           Print a transaction by reference code

Examples:
  # Apply migrations
  admin migrate

  # Audit every account with 8 workers
  admin audit-balances --workers=8

  # Audit specific accounts
  admin audit-balances --account-id=<uuid>,<uuid>

  # Find a transaction
  admin lookup --ref=DEP-LXK2M9Q1-7F3K2A
`

const defaultAuditWorkers = 4

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "migrate":
		os.Exit(runMigrate(os.Args[2:]))
	case "audit-balances":
		os.Exit(runAudit(os.Args[2:]))
	case "lookup":
		os.Exit(runLookup(os.Args[2:]))
	case "help", "-h", "--help":
		fmt.Print(usage + "\n")
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
}

// connect loads configuration and opens the database.
func connect() (*config.Config, *postgres.DB, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := postgres.New(cfg.Database.ConnectionString(), cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("connected to database", zap.String("database", cfg.Database.DBName))
	return cfg, db, log, nil
}

func runMigrate(args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, db, log, err := connect()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer db.Close()

	if err := db.Migrate(cfg.Database.DBName, log); err != nil {
		log.Error("migration failed", zap.Error(err))
		return 1
	}
	return 0
}

func runAudit(args []string) int {
	fs := flag.NewFlagSet("audit-balances", flag.ExitOnError)

	accountIDs := fs.String("account-id", "", "Account ID(s) to audit (comma-separated); all accounts when empty")
	workers := fs.Int("workers", defaultAuditWorkers, "Number of concurrent workers")
	timeoutStr := fs.String("timeout", "30m", "Timeout for the operation (e.g., 5m, 1h)")

	fs.Usage = func() {
		fmt.Println("Usage: admin audit-balances [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid timeout format: %v\n", err)
		return 1
	}

	_, db, log, err := connect()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	auditor := ledger.NewAuditor(postgres.NewLedgerRepository(db), *workers, log)

	start := time.Now()
	results, err := auditor.Audit(ctx, splitIDs(*accountIDs)...)
	if err != nil {
		log.Error("audit failed", zap.Error(err))
		return 1
	}

	bad := printAudit(os.Stdout, results)
	log.Info("audit completed",
		zap.Int("accounts", len(results)),
		zap.Int("inconsistent", bad),
		zap.Duration("elapsed", time.Since(start)),
	)
	if bad > 0 {
		return 1
	}
	return 0
}

func runLookup(args []string) int {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	ref := fs.String("ref", "", "Transaction reference code")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*ref) == "" {
		fmt.Println("Error: --ref is required")
		fs.Usage()
		return 1
	}

	_, db, log, err := connect()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer db.Close()

	txn, err := postgres.NewLedgerRepository(db).GetByReference(context.Background(), strings.ToUpper(strings.TrimSpace(*ref)))
	if err != nil {
		log.Error("lookup failed", zap.String("reference", *ref), zap.Error(err))
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(txn); err != nil {
		return 1
	}
	return 0
}

func splitIDs(s string) []string {
	var ids []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// printAudit writes one line per inconsistent account and a summary, and
// returns how many accounts failed the check.
func printAudit(w io.Writer, results []ledger.AuditResult) int {
	bad := 0
	for _, r := range results {
		if r.Consistent() {
			continue
		}
		bad++
		if r.Err != nil {
			fmt.Fprintf(w, "ERROR     %s  %v\n", r.AccountID, r.Err)
			continue
		}
		fmt.Fprintf(w, "MISMATCH  %s  balance=%s expected=%s\n",
			r.AccountID, r.Balance.StringFixed(2), r.Expected.StringFixed(2))
	}
	fmt.Fprintf(w, "\n=== Audit ===\n")
	fmt.Fprintf(w, "  Accounts checked: %d\n", len(results))
	fmt.Fprintf(w, "  Inconsistent:     %d\n", bad)
	return bad
}
