package main

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"ajo/internal/domain/ledger"
)

func TestSplitIDs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a, b ,,c ", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		if got := splitIDs(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitIDs(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPrintAudit(t *testing.T) {
	results := []ledger.AuditResult{
		{AccountID: "a", Balance: decimal.NewFromInt(100), Expected: decimal.NewFromInt(100)},
		{AccountID: "b", Balance: decimal.NewFromInt(100), Expected: decimal.NewFromInt(90)},
		{AccountID: "c", Err: errors.New("timeout")},
	}

	var buf bytes.Buffer
	bad := printAudit(&buf, results)

	if bad != 2 {
		t.Errorf("printAudit() = %d, want 2", bad)
	}
	out := buf.String()
	if !strings.Contains(out, "MISMATCH  b  balance=100.00 expected=90.00") {
		t.Errorf("missing mismatch line in:\n%s", out)
	}
	if !strings.Contains(out, "ERROR     c  timeout") {
		t.Errorf("missing error line in:\n%s", out)
	}
	if strings.Contains(out, "  a  ") {
		t.Errorf("consistent account reported:\n%s", out)
	}
}
