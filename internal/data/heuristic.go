package data

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"splitbill/internal/core"
)

var ErrNoAmount = errors.New("no amount found in message")

var amountPattern = regexp.MustCompile(`\$?\d{1,3}(?:,\d{3})+(?:\.\d+)?|\$?\d+(?:\.\d+)?`)

var typeKeywords = []struct {
	t     core.TransactionType
	words []string
}{
	{core.Grocery, []string{"grocery", "groceries", "supermarket", "walmart", "milk", "bread", "eggs"}},
	{core.Dining, []string{"dinner", "lunch", "breakfast", "coffee", "restaurant", "starbucks", "pizza", "bar"}},
	{core.Entertainment, []string{"movie", "cinema", "concert", "tickets", "game", "netflix"}},
	{core.Shopping, []string{"shopping", "clothes", "amazon", "shoes", "mall"}},
}

// HeuristicProposer builds a bill from the text of a chat message without
// an assistant: the first amount becomes the bill, split evenly across the
// viewer's first split group, paid by the viewer.
type HeuristicProposer struct {
	Users  UserReader
	Splits SplitLister
	Now    func() time.Time
}

func (h HeuristicProposer) ProposeBill(ctx context.Context, req core.ChatRequest) (core.Transaction, error) {
	match, cents := largestAmount(req.Message)
	if cents == 0 {
		return core.Transaction{}, ErrNoAmount
	}

	viewer, err := h.Users.User(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load user: %w", err)
	}
	splits, err := h.Splits.Splits(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load splits: %w", err)
	}
	group := pickGroup(splits, viewer)

	people := group.People
	if len(people) == 0 {
		people = []core.Person{viewer}
	}
	parts := core.SplitEvenly(cents, len(people))
	shares := make([]core.Share, len(people))
	for i, p := range people {
		shares[i] = core.Share{Person: p, Amount: core.FromCents(parts[i])}
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	title := titleFrom(req.Message, match)
	amount := core.FromCents(cents)

	return core.Transaction{
		SplitID:         group.ID,
		Title:           title,
		TransactionType: guessType(req.Message),
		Items:           []core.Item{{Name: title, Price: amount}},
		Splits:          shares,
		BillAmount:      amount,
		PaidBy:          []core.Share{{Person: viewer, Amount: amount}},
		Date:            now().Format("2006-01-02"),
		BillLink:        req.ImageURL,
	}, nil
}

// largestAmount returns the biggest amount in text, which is usually the
// total when a message also mentions counts or item prices.
func largestAmount(text string) (string, int64) {
	var best string
	var bestCents int64
	for _, m := range amountPattern.FindAllString(text, -1) {
		c, err := core.ParseDecimalToCents(m)
		if err == nil && c > bestCents {
			best, bestCents = m, c
		}
	}
	return best, bestCents
}

// pickGroup returns the first split the viewer belongs to, else the first
// split.
func pickGroup(splits []core.Split, viewer core.Person) core.Split {
	for _, s := range splits {
		for _, p := range s.People {
			if p.ID == viewer.ID {
				return s
			}
		}
	}
	if len(splits) > 0 {
		return splits[0]
	}
	return core.Split{}
}

func guessType(text string) core.TransactionType {
	lower := strings.ToLower(text)
	for _, tk := range typeKeywords {
		for _, w := range tk.words {
			if strings.Contains(lower, w) {
				return tk.t
			}
		}
	}
	return core.Other
}

func titleFrom(text, amount string) string {
	t := strings.Join(strings.Fields(strings.Replace(text, amount, "", 1)), " ")
	t = strings.Trim(t, " -:,.")
	if t == "" {
		return "Bill"
	}
	r := []rune(t)
	if len(r) > 60 {
		r = r[:60]
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}
