package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Person struct {
	ID    int64
	Name  string
	Email string
}

type SplitMember struct {
	SplitID   int64
	SplitName string
	Person    Person
}

type Transaction struct {
	ID               int64
	SplitID          int64
	Title            string
	TransactionType  string
	BillAmountCents  int64
	Date             string
	BillLink         string
}

type Item struct {
	TransactionID int64
	Name          string
	PriceCents    int64
}

type Share struct {
	TransactionID int64
	Kind          string
	Person        Person
	AmountCents   int64
}

const (
	shareSplit = "split"
	sharePaid  = "paid"
)

const countPeople = `SELECT COUNT(*) FROM people`

func (q *Queries) CountPeople(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countPeople).Scan(&n)
	return n, err
}

const firstPerson = `SELECT id, name, email FROM people ORDER BY id LIMIT 1`

func (q *Queries) FirstPerson(ctx context.Context) (Person, error) {
	var p Person
	err := q.db.QueryRowContext(ctx, firstPerson).Scan(&p.ID, &p.Name, &p.Email)
	return p, err
}

const ensurePerson = `INSERT INTO people (id, name, email) VALUES (?, ?, ?)
ON CONFLICT(id) DO NOTHING`

// EnsurePerson inserts p unless a person with the same id exists.
func (q *Queries) EnsurePerson(ctx context.Context, p Person) error {
	_, err := q.db.ExecContext(ctx, ensurePerson, p.ID, p.Name, p.Email)
	return err
}

const insertSplit = `INSERT INTO splits (id, name) VALUES (?, ?)`

func (q *Queries) InsertSplit(ctx context.Context, id int64, name string) error {
	_, err := q.db.ExecContext(ctx, insertSplit, id, name)
	return err
}

const insertSplitPerson = `INSERT INTO split_people (split_id, person_id, position) VALUES (?, ?, ?)`

func (q *Queries) InsertSplitPerson(ctx context.Context, splitID, personID int64, position int) error {
	_, err := q.db.ExecContext(ctx, insertSplitPerson, splitID, personID, position)
	return err
}

const listSplitMembers = `SELECT s.id, s.name, COALESCE(p.id, 0), COALESCE(p.name, ''), COALESCE(p.email, '')
FROM splits s
LEFT JOIN split_people sp ON sp.split_id = s.id
LEFT JOIN people p ON p.id = sp.person_id
ORDER BY s.id, sp.position`

func (q *Queries) ListSplitMembers(ctx context.Context) ([]SplitMember, error) {
	rows, err := q.db.QueryContext(ctx, listSplitMembers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SplitMember
	for rows.Next() {
		var m SplitMember
		if err := rows.Scan(&m.SplitID, &m.SplitName, &m.Person.ID, &m.Person.Name, &m.Person.Email); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const insertTransaction = `INSERT INTO transactions (id, split_id, title, transaction_type, bill_amount_cents, date, bill_link)
VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?, ?)`

// InsertTransaction stores t and returns its id. A zero ID lets the
// database assign one.
func (q *Queries) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertTransaction,
		t.ID, t.SplitID, t.Title, t.TransactionType, t.BillAmountCents, t.Date, t.BillLink)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const insertItem = `INSERT INTO transaction_items (transaction_id, position, name, price_cents) VALUES (?, ?, ?, ?)`

func (q *Queries) InsertItem(ctx context.Context, txID int64, position int, name string, priceCents int64) error {
	_, err := q.db.ExecContext(ctx, insertItem, txID, position, name, priceCents)
	return err
}

const insertShare = `INSERT INTO transaction_shares (transaction_id, kind, position, person_id, amount_cents) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) InsertShare(ctx context.Context, txID int64, kind string, position int, personID, amountCents int64) error {
	_, err := q.db.ExecContext(ctx, insertShare, txID, kind, position, personID, amountCents)
	return err
}

const listTransactions = `SELECT id, split_id, title, transaction_type, bill_amount_cents, date, bill_link
FROM transactions
WHERE (? = 0 OR split_id = ?)
ORDER BY id`

func (q *Queries) ListTransactions(ctx context.Context, splitID int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, splitID, splitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.SplitID, &t.Title, &t.TransactionType, &t.BillAmountCents, &t.Date, &t.BillLink); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const listItems = `SELECT i.transaction_id, i.name, i.price_cents
FROM transaction_items i
JOIN transactions t ON t.id = i.transaction_id
WHERE (? = 0 OR t.split_id = ?)
ORDER BY i.transaction_id, i.position`

func (q *Queries) ListItems(ctx context.Context, splitID int64) ([]Item, error) {
	rows, err := q.db.QueryContext(ctx, listItems, splitID, splitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.TransactionID, &it.Name, &it.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

const listShares = `SELECT s.transaction_id, s.kind, p.id, p.name, p.email, s.amount_cents
FROM transaction_shares s
JOIN transactions t ON t.id = s.transaction_id
JOIN people p ON p.id = s.person_id
WHERE (? = 0 OR t.split_id = ?)
ORDER BY s.transaction_id, s.kind, s.position`

func (q *Queries) ListShares(ctx context.Context, splitID int64) ([]Share, error) {
	rows, err := q.db.QueryContext(ctx, listShares, splitID, splitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Share
	for rows.Next() {
		var s Share
		if err := rows.Scan(&s.TransactionID, &s.Kind, &s.Person.ID, &s.Person.Name, &s.Person.Email, &s.AmountCents); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
