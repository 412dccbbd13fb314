package ledger

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestAuditor(t *testing.T) {
	balances := map[string]string{"a": "100", "b": "50", "c": "0", "d": "-5"}
	settled := map[string]string{"a": "100", "b": "70", "c": "0", "d": "-5"}

	repo := &MockRepository{
		AccountIDsFunc: func(ctx context.Context) ([]string, error) {
			return []string{"d", "c", "b", "a", "e"}, nil
		},
		SnapshotFunc: func(ctx context.Context, id string) (*BalanceSnapshot, error) {
			v, ok := balances[id]
			if !ok {
				return nil, errors.New("missing")
			}
			return &BalanceSnapshot{Balance: d(v), Settled: d(settled[id])}, nil
		},
	}

	results, err := NewAuditor(repo, 3, zap.NewNop()).Audit(context.Background())
	if err != nil {
		t.Fatalf("Audit() failed: %v", err)
	}

	want := map[string]bool{"a": true, "b": false, "c": true, "d": false, "e": false}
	if len(results) != len(want) {
		t.Fatalf("Audit() returned %d results, want %d", len(results), len(want))
	}
	for i, r := range results {
		if i > 0 && results[i-1].AccountID > r.AccountID {
			t.Errorf("results not sorted: %s before %s", results[i-1].AccountID, r.AccountID)
		}
		if r.Consistent() != want[r.AccountID] {
			t.Errorf("account %s Consistent() = %v, want %v", r.AccountID, r.Consistent(), want[r.AccountID])
		}
	}
}

func TestAuditor_SelectedAccounts(t *testing.T) {
	repo := &MockRepository{
		AccountIDsFunc: func(ctx context.Context) ([]string, error) {
			t.Error("AccountIDs() called when accounts were given")
			return nil, nil
		},
	}

	results, err := NewAuditor(repo, 0, zap.NewNop()).Audit(context.Background(), "x")
	if err != nil {
		t.Fatalf("Audit() failed: %v", err)
	}
	if len(results) != 1 || !results[0].Consistent() {
		t.Errorf("Audit(x) = %+v", results)
	}
}

func TestAuditor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAuditor(&MockRepository{}, 2, zap.NewNop()).Audit(ctx, "a", "b")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Audit() error = %v, want context.Canceled", err)
	}
}
