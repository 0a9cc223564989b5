package mockprovider

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scanpay/scanpay-api/internal/saltedge"
)

// pendingSession is a connect session that has not been completed in the
// widget yet.
type pendingSession struct {
	customerID string
	returnTo   string
	fromDate   string
}

// store holds everything in memory. Callers hold Server.mu.
type store struct {
	nextID       int64
	customers    []saltedge.Customer
	connections  map[string]*saltedge.Connection
	accounts     map[string][]saltedge.Account
	transactions map[string][]saltedge.Transaction
	sessions     map[string]pendingSession
}

func newStore() *store {
	return &store{
		nextID:       100000,
		connections:  map[string]*saltedge.Connection{},
		accounts:     map[string][]saltedge.Account{},
		transactions: map[string][]saltedge.Transaction{},
		sessions:     map[string]pendingSession{},
	}
}

func (s *store) id() string {
	s.nextID++
	return strconv.FormatInt(s.nextID, 10)
}

func (s *store) customer(id string) (saltedge.Customer, bool) {
	for _, c := range s.customers {
		if c.CustomerID == id {
			return c, true
		}
	}
	return saltedge.Customer{}, false
}

func (s *store) hasIdentifier(identifier string) bool {
	for _, c := range s.customers {
		if c.Identifier == identifier {
			return true
		}
	}
	return false
}

// seed creates the accounts of a new connection and a run of transactions
// ending today, alternating credits and debits.
func (s *store) seed(conn *saltedge.Connection, accounts, transactions int, now time.Time) {
	stamp := now.UTC().Format(time.RFC3339)

	for i := range accounts {
		acc := saltedge.Account{
			ID:           s.id(),
			ConnectionID: conn.ID,
			Name:         fmt.Sprintf("Fake Account %d", i+1),
			Nature:       "account",
			Balance:      decimal.NewFromInt(int64(1000 * (i + 1))),
			CurrencyCode: "EUR",
			Extra: saltedge.AccountExtra{
				AccountName:   fmt.Sprintf("Fake Account %d", i+1),
				AccountNumber: fmt.Sprintf("NL%02dFAKE%010d", i+1, s.nextID),
				IBAN:          fmt.Sprintf("NL%02dFAKE%010d", i+1, s.nextID),
				SWIFT:         "FAKENL2A",
				ClientName:    "Fake Holder",
				Status:        "active",
			},
			CreatedAt: stamp,
			UpdatedAt: stamp,
		}
		s.accounts[conn.ID] = append(s.accounts[conn.ID], acc)

		for j := range transactions {
			tx := saltedge.Transaction{
				ID:           s.id(),
				AccountID:    acc.ID,
				Mode:         "normal",
				Status:       saltedge.TransactionStatusPosted,
				MadeOn:       now.UTC().AddDate(0, 0, j-transactions+1).Format(saltedge.DateLayout),
				CurrencyCode: acc.CurrencyCode,
				Category:     "transfers",
				CreatedAt:    stamp,
				UpdatedAt:    stamp,
			}
			amount := decimal.NewFromInt(int64(10 * (j + 1)))
			if j%2 == 0 {
				tx.Amount = amount
				tx.Description = "Incoming transfer"
				tx.Extra.Payer = "Fake Payer"
			} else {
				tx.Amount = amount.Neg()
				tx.Description = "Card payment"
				tx.Extra.Payee = "Fake Shop"
			}
			s.transactions[acc.ID] = append(s.transactions[acc.ID], tx)
		}
	}
}

// page returns up to size transactions at or after fromID made on or after
// fromDate, plus the id the next page starts at.
func page(txs []saltedge.Transaction, fromID, fromDate, toDate string, size int) ([]saltedge.Transaction, string) {
	start := int64(0)
	if fromID != "" {
		start, _ = strconv.ParseInt(fromID, 10, 64)
	}

	out := []saltedge.Transaction{}
	for _, tx := range txs {
		id, _ := strconv.ParseInt(tx.ID, 10, 64)
		if id < start {
			continue
		}
		if fromDate != "" && tx.MadeOn < fromDate {
			continue
		}
		if toDate != "" && tx.MadeOn > toDate {
			continue
		}
		if len(out) == size {
			return out, tx.ID
		}
		out = append(out, tx)
	}
	return out, ""
}

var decimalTen = decimal.NewFromInt(10)
