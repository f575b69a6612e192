package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type CreditEntryType string

const (
	CreditPurchase CreditEntryType = "purchase"
	CreditPayment  CreditEntryType = "payment"
)

var ErrLedgerMismatch = errors.New("outstanding credit does not match history")

type CreditHistoryItem struct {
	ID      string          `json:"id"`
	Date    time.Time       `json:"date"`
	Amount  decimal.Decimal `json:"amount"`
	Type    CreditEntryType `json:"type"`
	Notes   string          `json:"notes,omitempty"`
	DueDate *time.Time      `json:"due_date,omitempty"`
	OrderID string          `json:"order_id,omitempty"`
}

type Customer struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Phone             string              `json:"phone,omitempty"`
	Address           string              `json:"address,omitempty"`
	CreditLimit       decimal.Decimal     `json:"credit_limit"`
	OutstandingCredit decimal.Decimal     `json:"outstanding_credit"`
	TotalPurchases    int                 `json:"total_purchases"`
	LastPurchaseDate  *time.Time          `json:"last_purchase_date,omitempty"`
	History           []CreditHistoryItem `json:"history"`
	CreatedAt         time.Time           `json:"created_at"`
}

// OverLimit reports whether a positive credit limit has been exceeded. The
// limit is a soft cap.
func (c Customer) OverLimit() bool {
	return c.CreditLimit.IsPositive() && c.OutstandingCredit.GreaterThan(c.CreditLimit)
}

func (c Customer) AvailableCredit() decimal.Decimal {
	available := c.CreditLimit.Sub(c.OutstandingCredit)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// ReplayOutstanding folds the history in order. Payments floor the running
// balance at zero; overpayment is not carried as credit.
func ReplayOutstanding(history []CreditHistoryItem) decimal.Decimal {
	balance := decimal.Zero
	for _, entry := range history {
		switch entry.Type {
		case CreditPurchase:
			balance = balance.Add(entry.Amount)
		case CreditPayment:
			balance = balance.Sub(entry.Amount)
			if balance.IsNegative() {
				balance = decimal.Zero
			}
		}
	}
	return balance
}

func ValidateCustomer(c Customer) error {
	if c.ID == "" || c.Name == "" {
		return errors.New("customer id and name are required")
	}
	if c.OutstandingCredit.IsNegative() || c.CreditLimit.IsNegative() {
		return errors.New("customer balances must not be negative")
	}
	for i, entry := range c.History {
		if entry.Type != CreditPurchase && entry.Type != CreditPayment {
			return fmt.Errorf("history[%d]: unknown entry type %q", i, entry.Type)
		}
		if !entry.Amount.IsPositive() {
			return fmt.Errorf("history[%d]: amount must be positive", i)
		}
	}
	if replayed := ReplayOutstanding(c.History); !replayed.Equal(c.OutstandingCredit) {
		return fmt.Errorf("%w: stored %s, history %s", ErrLedgerMismatch, c.OutstandingCredit, replayed)
	}
	return nil
}

type CustomerCreateRequest struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Phone       string          `json:"phone,omitempty" validate:"max=20"`
	Address     string          `json:"address,omitempty" validate:"max=240"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

type CustomerUpdateRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Phone       *string          `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address     *string          `json:"address,omitempty" validate:"omitempty,max=240"`
	CreditLimit *decimal.Decimal `json:"credit_limit,omitempty"`
}

type CreditRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	DueDate *time.Time      `json:"due_date,omitempty"`
	Notes   string          `json:"notes,omitempty" validate:"max=500"`
}

type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes,omitempty" validate:"max=500"`
}

type UpcomingDue struct {
	CustomerID    string            `json:"customer_id"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone,omitempty"`
	Entry         CreditHistoryItem `json:"entry"`
}
