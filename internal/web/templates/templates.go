// Package templates holds the portal's server-rendered HTML components.
// The components live in .templ files; the _templ.go files are generated
// from them and committed.
package templates

//go:generate templ generate

import (
	"strings"

	"github.com/JonMunkholm/rwa/internal/core"
)

const displayDate = "2 Jan 2006"

type receiptField struct {
	Label string
	Value string
}

// receiptFields lists the rows of the receipt table, skipping empty
// optional ones.
func receiptFields(r core.Receipt) []receiptField {
	fields := []receiptField{
		{"Receipt No", r.ReceiptNo},
		{"Flat No", r.FlatNo},
		{"Received from", r.MemberName},
		{"For the month of", r.Month.Label()},
		{"Paid on", r.PaidOn.Format(displayDate)},
		{"Mode", string(r.Mode)},
	}
	if r.PaymentID != "" {
		fields = append(fields, receiptField{"Payment reference", r.PaymentID})
	}
	if r.Remarks != "" {
		fields = append(fields, receiptField{"Remarks", r.Remarks})
	}
	return fields
}

func receiptAmount(r core.Receipt) string {
	return r.Currency + " " + core.FormatAmount(r.Amount)
}

// paragraphs splits a notice message on line breaks, dropping blank lines.
func paragraphs(message string) []string {
	var out []string
	for _, para := range strings.Split(message, "\n") {
		if strings.TrimSpace(para) != "" {
			out = append(out, para)
		}
	}
	return out
}

// postedLine is the notice footer. ExpiresOn is exclusive, so the last day
// shown is the day before.
func postedLine(n core.Notification) string {
	line := "Posted " + n.PostedOn.Format(displayDate)
	if !n.ExpiresOn.IsZero() {
		line += " · until " + n.ExpiresOn.AddDate(0, 0, -1).Format(displayDate)
	}
	return line
}

func noticeID(n core.Notification) string { return strings.ToLower(n.ID) }
