package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	auditTracer        = otel.Tracer("ajo/ledger/audit")
	auditMismatches, _ = ledgerMeter.Int64Counter("ledger.audit.mismatch", metric.WithDescription("Accounts whose balance disagrees with their settled transactions"))
)

// AuditResult compares an account's stored balance with the signed sum of
// its completed transactions.
type AuditResult struct {
	AccountID string
	Balance   decimal.Decimal
	Expected  decimal.Decimal
	Err       error
}

// Consistent reports whether the balance invariant holds for the account.
func (r AuditResult) Consistent() bool {
	return r.Err == nil && r.Balance.Equal(r.Expected) && !r.Balance.IsNegative()
}

// Auditor checks the balance invariant across accounts with a fixed pool
// of workers.
type Auditor struct {
	repo    Repository
	workers int
	logger  *zap.Logger
}

// NewAuditor creates an auditor. workers below one are treated as one.
func NewAuditor(repo Repository, workers int, logger *zap.Logger) *Auditor {
	if workers < 1 {
		workers = 1
	}
	return &Auditor{repo: repo, workers: workers, logger: logger}
}

// Audit checks the given accounts, or every account when none are given.
// Results are sorted by account ID. Per-account read failures are reported
// in the result; only listing failures and cancellation abort the audit.
func (a *Auditor) Audit(ctx context.Context, accountIDs ...string) ([]AuditResult, error) {
	if len(accountIDs) == 0 {
		ids, err := a.repo.AccountIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}
		accountIDs = ids
	}

	jobs := make(chan string)
	results := make(chan AuditResult, len(accountIDs))

	var wg sync.WaitGroup
	for i := 0; i < a.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				results <- a.auditAccount(ctx, id)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, id := range accountIDs {
			select {
			case <-ctx.Done():
				return
			case jobs <- id:
			}
		}
	}()

	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]AuditResult, 0, len(accountIDs))
	for r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

func (a *Auditor) auditAccount(ctx context.Context, accountID string) AuditResult {
	ctx, span := auditTracer.Start(ctx, "ledger.audit", trace.WithAttributes(
		attribute.String("account.id", accountID),
	))
	defer span.End()

	res := AuditResult{AccountID: accountID}
	snap, err := a.repo.Snapshot(ctx, accountID)
	if err == nil {
		res.Balance, res.Expected = snap.Balance, snap.Settled
	}
	res.Err = err
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		return res
	}

	if !res.Consistent() {
		auditMismatches.Add(ctx, 1)
		span.SetStatus(codes.Error, "balance mismatch")
		a.logger.Warn("balance invariant violated",
			zap.String("account_id", accountID),
			zap.String("balance", res.Balance.StringFixed(2)),
			zap.String("expected", res.Expected.StringFixed(2)),
		)
	}
	return res
}
