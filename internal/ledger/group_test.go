package ledger

import (
	"reflect"
	"testing"
	"time"

	"splitbill/internal/core"
)

var (
	viewer = core.Person{ID: 1, Name: "Alice"}
	bob    = core.Person{ID: 2, Name: "Bob"}
)

func owedTx(id int64, date string, amount float64) core.Transaction {
	return core.Transaction{
		ID:              id,
		SplitID:         1,
		Title:           "tx",
		TransactionType: core.Other,
		BillAmount:      amount,
		Splits:          []core.Share{{Person: viewer, Amount: amount}},
		PaidBy:          []core.Share{{Person: bob, Amount: amount}},
		Date:            date,
	}
}

func ids(txs []core.Transaction) []int64 {
	out := make([]int64, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

func TestSortByDateDesc(t *testing.T) {
	in := []core.Transaction{
		owedTx(1, "2024-03-01", 1),
		owedTx(2, "not a date", 1),
		owedTx(3, "2024-03-08", 1),
		owedTx(4, "2024-03-01", 1),
		owedTx(5, "2023-12-31T23:00:00Z", 1),
	}
	got := ids(SortByDateDesc(in, time.UTC))
	want := []int64{3, 1, 4, 5, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SortByDateDesc = %v, want %v", got, want)
	}
	if in[0].ID != 1 || in[1].ID != 2 {
		t.Fatalf("input was reordered: %v", ids(in))
	}
}

func TestGroupScenario(t *testing.T) {
	txs := []core.Transaction{
		owedTx(1, "2024-03-01", 10),
		owedTx(2, "2024-03-08", 10),
	}
	months := Group(txs, Options{})
	if len(months) != 1 || months[0].Label != "March 2024" {
		t.Fatalf("unexpected months: %+v", months)
	}
	weeks := months[0].Weeks
	if len(weeks) != 2 {
		t.Fatalf("expected 2 weeks, got %d", len(weeks))
	}
	if weeks[0].Label != "Week 2" || weeks[1].Label != "Week 1" {
		t.Fatalf("week labels = %q, %q", weeks[0].Label, weeks[1].Label)
	}
	if weeks[0].DateRange != "8 Mar - 14 Mar" || weeks[1].DateRange != "1 Mar - 7 Mar" {
		t.Fatalf("date ranges = %q, %q", weeks[0].DateRange, weeks[1].DateRange)
	}
	for _, w := range weeks {
		if len(w.Transactions) != 1 {
			t.Fatalf("%s has %d transactions", w.Label, len(w.Transactions))
		}
		d := DebtStatus(w.Transactions[0], viewer.ID)
		if d != (Debt{Kind: Owe, Amount: 10}) {
			t.Fatalf("%s debt = %+v", w.Label, d)
		}
	}
	if months[0].Count() != 2 {
		t.Fatalf("Count() = %d", months[0].Count())
	}
}

func TestGroupConcatenationMatchesSort(t *testing.T) {
	txs := []core.Transaction{
		owedTx(1, "2024-01-31", 1),
		owedTx(2, "2024-02-29", 1),
		owedTx(3, "garbage", 1),
		owedTx(4, "2024-02-01", 1),
		owedTx(5, "2024-01-01", 1),
		owedTx(6, "2024-02-29", 1),
		owedTx(7, "2023-02-15", 1),
	}
	months := Group(txs, Options{})
	got := ids(Flatten(months))
	want := ids(SortByDateDesc(txs, time.UTC))
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("flattened groups %v differ from sorted %v", got, want)
	}
	last := months[len(months)-1]
	if last.Label != UndatedLabel {
		t.Fatalf("undated group should come last, got %q", last.Label)
	}
}

func TestWeekLabelForEveryDay(t *testing.T) {
	for d := 1; d <= 31; d++ {
		want := (d + 6) / 7
		if got := WeekOfMonth(d); got != want {
			t.Fatalf("WeekOfMonth(%d) = %d, want %d", d, got, want)
		}
	}
	cases := map[int]string{1: "Week 1", 7: "Week 1", 8: "Week 2", 28: "Week 4", 29: "Week 5", 31: "Week 5"}
	for d, want := range cases {
		if got := WeekLabel(d); got != want {
			t.Errorf("WeekLabel(%d) = %q, want %q", d, got, want)
		}
	}
}

func TestDateRangeModes(t *testing.T) {
	cases := []struct {
		date string
		mode RangeMode
		want string
	}{
		{"2024-02-29", RangeBucket, "29 Feb - 29 Feb"},
		{"2024-03-30", RangeBucket, "29 Mar - 31 Mar"},
		{"2024-03-08", RangeCalendarWeek, "3 Mar - 9 Mar"},
		{"2024-03-01", RangeCalendarWeek, "25 Feb - 2 Mar"},
	}
	for _, tc := range cases {
		months := Group([]core.Transaction{owedTx(1, tc.date, 1)}, Options{Range: tc.mode})
		if got := months[0].Weeks[0].DateRange; got != tc.want {
			t.Errorf("%s (%s) range = %q, want %q", tc.date, tc.mode, got, tc.want)
		}
	}
}

func TestParseRangeMode(t *testing.T) {
	if m, err := ParseRangeMode(""); err != nil || m != RangeBucket {
		t.Fatalf("empty mode = %v, %v", m, err)
	}
	if m, err := ParseRangeMode("calendar"); err != nil || m != RangeCalendarWeek {
		t.Fatalf("calendar mode = %v, %v", m, err)
	}
	if _, err := ParseRangeMode("iso"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestGroupUsesDisplayLocation(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	months := Group([]core.Transaction{owedTx(1, "2024-04-01T03:00:00Z", 1)}, Options{Location: la})
	if months[0].Label != "March 2024" || months[0].Weeks[0].Label != "Week 5" {
		t.Fatalf("got %q / %q", months[0].Label, months[0].Weeks[0].Label)
	}
}
