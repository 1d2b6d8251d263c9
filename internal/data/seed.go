package data

import (
	"encoding/json"
	"fmt"
	"os"

	"splitbill/internal/core"
)

// Seed is the initial content of a local store.
type Seed struct {
	People       []core.Person      `json:"people"`
	Splits       []core.Split       `json:"splits"`
	Transactions []core.Transaction `json:"transactions"`
}

// DefaultSeed returns the demo data local backends start with. The first
// person is the viewer.
func DefaultSeed() Seed {
	alice := core.Person{ID: 1, Name: "Alice", Email: "alice@example.com"}
	bob := core.Person{ID: 2, Name: "Bob", Email: "bob@example.com"}
	charlie := core.Person{ID: 3, Name: "Charlie", Email: "charlie@example.com"}
	diana := core.Person{ID: 4, Name: "Diana", Email: "diana@example.com"}
	john := core.Person{ID: 5, Name: "John Doe", Email: "johndoe@example.com"}

	return Seed{
		People: []core.Person{alice, bob, charlie, diana, john},
		Splits: []core.Split{
			{ID: 1, Name: "Groceries", People: []core.Person{alice, bob, john}},
			{ID: 2, Name: "Coffee Run", People: []core.Person{charlie, diana, john}},
			{ID: 3, Name: "Utilities", People: []core.Person{alice, charlie, john}},
			{ID: 4, Name: "Dinner Out", People: []core.Person{bob, alice, charlie, diana, john}},
			{ID: 5, Name: "Movie Night", People: []core.Person{bob, john}},
		},
		Transactions: []core.Transaction{
			{
				ID: 1, SplitID: 1, Title: "Walmart", TransactionType: core.Grocery,
				Items: []core.Item{{Name: "Milk", Price: 3.5}, {Name: "Bread", Price: 2.0}, {Name: "Eggs", Price: 4.0}},
				Splits: []core.Share{
					{Person: alice, Amount: 50.25}, {Person: bob, Amount: 50.25}, {Person: john, Amount: 50.25},
				},
				BillAmount: 150.75,
				PaidBy:     []core.Share{{Person: alice, Amount: 150.75}},
				Date:       "2023-10-01",
			},
			{
				ID: 2, SplitID: 2, Title: "Starbucks", TransactionType: core.Dining,
				Items: []core.Item{{Name: "Latte", Price: 5.5}, {Name: "Croissant", Price: 3.0}},
				Splits: []core.Share{
					{Person: charlie, Amount: 8.5}, {Person: diana, Amount: 8.5}, {Person: john, Amount: 8.5},
				},
				BillAmount: 25.5,
				PaidBy:     []core.Share{{Person: charlie, Amount: 25.5}},
				Date:       "2023-10-03",
			},
			{
				ID: 3, SplitID: 3, Title: "Utility Company", TransactionType: core.Other,
				Items: []core.Item{{Name: "Electricity Bill", Price: 200.0}},
				Splits: []core.Share{
					{Person: alice, Amount: 66.67}, {Person: charlie, Amount: 66.67}, {Person: john, Amount: 66.67},
				},
				BillAmount: 200.0,
				PaidBy:     []core.Share{{Person: alice, Amount: 200.0}},
				Date:       "2023-10-05",
			},
		},
	}
}

// LoadSeed reads a JSON seed from path. An empty path or a missing file
// yields DefaultSeed.
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSeed(), nil
	}
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return seed, nil
}
