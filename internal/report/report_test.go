package report

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"testing"
	"time"

	"fintrack/internal/core"
)

func expenseOn(y int, m time.Month, d int, cat core.Category, paise int64, desc string) core.Expense {
	return core.Expense{
		ID:          desc,
		Amount:      core.Money{Paise: paise},
		Category:    cat,
		Description: desc,
		Date:        core.NewDate(y, int(m), d),
	}
}

func fixture() ([]core.Expense, []core.RecurringExpense) {
	expenses := []core.Expense{
		expenseOn(2025, time.November, 12, core.FoodDining, 120000, "groceries"),
		expenseOn(2025, time.November, 3, core.Transportation, 80000, "fuel"),
		expenseOn(2025, time.November, 20, core.FoodDining, 340000, "dinner"),
		expenseOn(2025, time.October, 28, core.Shopping, 50000, "shoes"),
	}
	recurring := []core.RecurringExpense{
		{ID: "r1", Label: "Rent", Amount: core.Money{Paise: 1000000}, Category: core.BillsUtilities},
	}
	return expenses, recurring
}

func TestBuildSelectsAllMonthsByDefault(t *testing.T) {
	expenses, recurring := fixture()
	r := Build("Alice", expenses, recurring, nil, time.Now())

	if len(r.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(r.Sections))
	}
	if r.Sections[0].Month != "2025-11" || r.Sections[1].Month != "2025-10" {
		t.Errorf("expected newest-first order, got %s then %s", r.Sections[0].Month, r.Sections[1].Month)
	}
}

func TestBuildSectionTotals(t *testing.T) {
	expenses, recurring := fixture()
	r := Build("Alice", expenses, recurring, []core.MonthKey{"2025-11"}, time.Now())

	if len(r.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(r.Sections))
	}
	s := r.Sections[0]
	if s.Title != "November 2025" {
		t.Errorf("unexpected title %q", s.Title)
	}
	if s.TransactionSum.Paise != 540000 {
		t.Errorf("transaction sum = %d, want 540000", s.TransactionSum.Paise)
	}
	if s.RecurringSum.Paise != 1000000 {
		t.Errorf("recurring sum = %d, want 1000000", s.RecurringSum.Paise)
	}
	if s.GrandTotal.Paise != 1540000 {
		t.Errorf("grand total = %d, want 1540000", s.GrandTotal.Paise)
	}

	// transactions sorted oldest first within the month
	if s.Transactions[0].Description != "fuel" || s.Transactions[2].Description != "dinner" {
		t.Errorf("unexpected transaction order: %v", s.Transactions)
	}

	// breakdown sorted by descending total
	if len(s.Breakdown) != 2 {
		t.Fatalf("expected 2 breakdown lines, got %d", len(s.Breakdown))
	}
	if s.Breakdown[0].Category != core.FoodDining || s.Breakdown[0].Total.Paise != 460000 {
		t.Errorf("unexpected top category: %+v", s.Breakdown[0])
	}
}

func TestBuildExplicitEmptyMonth(t *testing.T) {
	expenses, recurring := fixture()
	r := Build("Alice", expenses, recurring, []core.MonthKey{"2025-09"}, time.Now())

	if len(r.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(r.Sections))
	}
	s := r.Sections[0]
	if len(s.Transactions) != 0 {
		t.Errorf("expected no transactions, got %d", len(s.Transactions))
	}
	if s.GrandTotal.Paise != 1000000 {
		t.Errorf("recurring still counts: grand total = %d, want 1000000", s.GrandTotal.Paise)
	}
}

func TestBuildDeduplicatesMonths(t *testing.T) {
	expenses, recurring := fixture()
	r := Build("Alice", expenses, recurring, []core.MonthKey{"2025-11", "2025-11"}, time.Now())
	if len(r.Sections) != 1 {
		t.Errorf("expected duplicate month collapsed, got %d sections", len(r.Sections))
	}
}

func TestRenderPDF(t *testing.T) {
	expenses, recurring := fixture()
	r := Build("Alice", expenses, recurring, nil, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	if err := RenderPDF(&buf, r); err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("output does not look like a PDF")
	}
}

func tinyPNG(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestRenderPDFEmbedsImageReceipts(t *testing.T) {
	expenses, recurring := fixture()
	expenses[0].Receipt = tinyPNG(t)
	expenses[0].ReceiptName = "grocery-bill.png"
	expenses[1].Receipt = "bm90IGFuIGltYWdl" // "not an image"
	expenses[2].Receipt = "%%%not-base64%%%"

	r := Build("Alice", expenses, recurring, []core.MonthKey{"2025-11"}, time.Now())

	var buf bytes.Buffer
	if err := RenderPDF(&buf, r); err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("output does not look like a PDF")
	}
}

func TestReceiptImageType(t *testing.T) {
	data, err := base64.StdEncoding.DecodeString(tinyPNG(t))
	if err != nil {
		t.Fatal(err)
	}
	if got := receiptImageType(data); got != "PNG" {
		t.Errorf("receiptImageType(png) = %q, want PNG", got)
	}
	if got := receiptImageType([]byte("plain text payload")); got != "" {
		t.Errorf("receiptImageType(text) = %q, want empty", got)
	}
}

func TestRenderPDFEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPDF(&buf, Report{UserName: "Alice", GeneratedAt: time.Now()}); err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected non-empty PDF output")
	}
}
