package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sheetpos/backend/internal/domain"
)

const receiptWidth = 32

type receiptFormatter struct {
	printer *message.Printer
}

func newReceiptFormatter(locale string) receiptFormatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	return receiptFormatter{printer: message.NewPrinter(tag)}
}

func (f receiptFormatter) money(amount decimal.Decimal) string {
	return f.printer.Sprintf("%.2f", amount.InexactFloat64())
}

func (f receiptFormatter) row(label string, amount decimal.Decimal) string {
	value := f.money(amount)
	pad := receiptWidth - len(label) - len(value)
	if pad < 1 {
		pad = 1
	}
	return label + strings.Repeat(" ", pad) + value
}

func (f receiptFormatter) lines(order domain.Order) []string {
	rule := strings.Repeat("=", receiptWidth)
	thin := strings.Repeat("-", receiptWidth)

	lines := []string{
		"SheetPOS",
		rule,
		"Order: " + order.ID,
		"Date : " + order.CreatedAt.Format("2006-01-02 15:04"),
		"Cust : " + order.CustomerName,
	}
	if order.CustomerPhone != "" {
		lines = append(lines, "Phone: "+order.CustomerPhone)
	}
	lines = append(lines, thin)

	for _, item := range order.Items {
		lines = append(lines, item.Product.Label())
		lines = append(lines, f.row(fmt.Sprintf("  %d x %s", item.Quantity, f.money(item.Product.SellingPrice)), item.LineTotal()))
	}

	lines = append(lines,
		thin,
		f.row("Subtotal", order.SubTotal),
		f.row("Discount", order.DiscountAmount),
		f.row("Total", order.TotalAmount),
		f.row("Paid", order.PaidAmount),
	)
	if order.DueAmount.IsPositive() {
		lines = append(lines, f.row("Due", order.DueAmount))
		if order.DueDate != nil {
			lines = append(lines, "Due by: "+order.DueDate.Format("2006-01-02"))
		}
	}
	lines = append(lines, rule, "Thank you", "")
	return lines
}

// Receipt renders an ESC/POS print job for a committed order.
func (c *Checkout) Receipt(ctx context.Context, orderID string) (domain.ReceiptResponse, error) {
	order, err := c.GetOrder(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	lines := c.receipt.lines(order)

	// ESC @ resets the printer; GS V A feeds and cuts.
	escpos := []byte{0x1b, 0x40}
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, 0x1d, 0x56, 0x41, 0x10)

	return domain.ReceiptResponse{
		OrderID:      order.ID,
		EscposBase64: base64.StdEncoding.EncodeToString(escpos),
		PreviewText:  strings.Join(lines, "\n"),
		FileName:     fmt.Sprintf("receipt-%s.bin", order.ID),
	}, nil
}
