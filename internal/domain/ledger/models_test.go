package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr error
	}{
		{"Whole", "5000", nil},
		{"Two places", "12.34", nil},
		{"Trailing zeros", "12.500", nil},
		{"Max", "999999999999.99", nil},
		{"Zero", "0", ErrInvalidAmount},
		{"Negative", "-1", ErrInvalidAmount},
		{"Three places", "1.005", ErrAmountPrecision},
		{"Too large", "1000000000000", ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateAmount(d(tt.amount)); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAmount(%s) = %v, want %v", tt.amount, err, tt.wantErr)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("250.50")
	if err != nil {
		t.Fatalf("ParseAmount() failed: %v", err)
	}
	if !got.Equal(d("250.5")) {
		t.Errorf("ParseAmount() = %s, want 250.50", got)
	}

	if _, err := ParseAmount("abc"); err == nil {
		t.Error("ParseAmount(abc) expected error")
	}
	if _, err := ParseAmount("-3"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("ParseAmount(-3) = %v, want ErrInvalidAmount", err)
	}
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name        string
		balance     string
		amount      string
		decision    Decision
		wantStatus  Status
		wantBalance string
	}{
		{"Approve covered", "5000", "3000", DecisionApprove, StatusCompleted, "2000"},
		{"Approve exact", "2000", "2000", DecisionApprove, StatusCompleted, "0"},
		{"Approve short", "2000", "5000", DecisionApprove, StatusFailed, "2000"},
		{"Decline", "5000", "3000", DecisionDecline, StatusFailed, "5000"},
		{"Cents", "10.10", "0.05", DecisionApprove, StatusCompleted, "10.05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, balance := Settle(d(tt.balance), d(tt.amount), tt.decision)
			if status != tt.wantStatus {
				t.Errorf("Settle() status = %s, want %s", status, tt.wantStatus)
			}
			if !balance.Equal(d(tt.wantBalance)) {
				t.Errorf("Settle() balance = %s, want %s", balance, tt.wantBalance)
			}
		})
	}
}

func TestTypeRules(t *testing.T) {
	tests := []struct {
		typ    Type
		sign   int
		prefix string
	}{
		{TypeDeposit, 1, "DEP"},
		{TypeWithdrawal, -1, "WDR"},
		{TypeLoan, 1, "LON"},
		{TypeInterest, 1, "INT"},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if !tt.typ.Valid() {
				t.Errorf("%s.Valid() = false", tt.typ)
			}
			if got := tt.typ.Sign(); got != tt.sign {
				t.Errorf("%s.Sign() = %d, want %d", tt.typ, got, tt.sign)
			}
			if got := tt.typ.ReferencePrefix(); got != tt.prefix {
				t.Errorf("%s.ReferencePrefix() = %s, want %s", tt.typ, got, tt.prefix)
			}
		})
	}

	if Type("transfer").Valid() {
		t.Error("unknown type reported valid")
	}
}

func TestSignedAmount(t *testing.T) {
	w := &Transaction{Type: TypeWithdrawal, Amount: d("30")}
	if !w.SignedAmount().Equal(d("-30")) {
		t.Errorf("withdrawal SignedAmount() = %s", w.SignedAmount())
	}
	dep := &Transaction{Type: TypeDeposit, Amount: d("30")}
	if !dep.SignedAmount().Equal(d("30")) {
		t.Errorf("deposit SignedAmount() = %s", dep.SignedAmount())
	}
}
