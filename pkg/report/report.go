// Package report renders sync, audit and flag usage results as plain text.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/audit"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/flagusage"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/syncer"
)

// Printer writes reports to w.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new Printer.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Printf writes a formatted line.
func (p *Printer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Section writes a title underlined with dashes, preceded by a blank line.
func (p *Printer) Section(title string) {
	fmt.Fprintf(p.w, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
}

// Bullets writes one "- item" line per item, or "- none" when empty.
func (p *Printer) Bullets(items []string) {
	if len(items) == 0 {
		fmt.Fprintln(p.w, "- none")
		return
	}
	for _, item := range items {
		fmt.Fprintf(p.w, "- %s\n", item)
	}
}

// List writes "<title>: <n>" followed by at most limit items and a count of
// the rest.
func List[T fmt.Stringer](p *Printer, title string, items []T, limit int) {
	fmt.Fprintf(p.w, "\n%s: %d\n", title, len(items))
	for i, item := range items {
		if i >= limit {
			break
		}
		fmt.Fprintf(p.w, "- %s\n", item)
	}
	if limit >= 0 && len(items) > limit {
		fmt.Fprintf(p.w, "... %d more\n", len(items)-limit)
	}
}

type errorRow struct{ err error }

func (r errorRow) String() string { return r.err.Error() }

// AuditReport is the input of Printer.Audit.
type AuditReport struct {
	Since     string
	AccountID string
	Result    audit.Result
	// Expenses and Transactions are printed when non-nil.
	Expenses     []audit.ExpenseRow
	Transactions []audit.TransactionRow
	Show         int
}

// Audit writes the reconciliation result.
func (p *Printer) Audit(r AuditReport) {
	p.Printf("Auditing since %s UTC", r.Since)
	p.Printf("YNAB account: %s", r.AccountID)

	p.Printf("\nSplitwise expenses fetched: %d", r.Result.SplitwiseCount)
	p.Printf("YNAB transactions fetched: %d", r.Result.YNABCount)

	if r.Expenses != nil || r.Transactions != nil {
		List(p, "Splitwise transactions (normalized)", r.Expenses, r.Show)
		List(p, "YNAB transactions (normalized)", r.Transactions, r.Show)
	}

	List(p, "Missing in YNAB (exists in Splitwise)", r.Result.Missing, r.Show)
	List(p, "Different fields", r.Result.Different, r.Show)

	if len(r.Result.Malformed) > 0 {
		rows := make([]errorRow, 0, len(r.Result.Malformed))
		for _, err := range r.Result.Malformed {
			rows = append(rows, errorRow{err})
		}
		List(p, "Malformed Splitwise expenses (not compared)", rows, r.Show)
	}
}

// FlagUsage writes a flag usage summary. since is empty for all history.
func (p *Printer) FlagUsage(u flagusage.Usage, since string) {
	p.Printf("Scope: %s", u.Scope)
	if since == "" {
		p.Printf("Since: all history")
	} else {
		p.Printf("Since: %s", since)
	}
	p.Printf("Transactions considered: %d", u.Considered)
	p.Printf("Unflagged transactions: %d", u.Unflagged)

	p.Section("Flagged transactions")
	if len(u.Flagged) == 0 {
		p.Printf("No flagged transactions found in this scope.")
	}
	for _, row := range u.Flagged {
		p.Printf("- %s", row)
	}

	p.Section("Flag usage counts")
	if len(u.Counts) == 0 {
		p.Printf("No flagged transactions found in this scope.")
	}
	for _, c := range u.Counts {
		p.Printf("- %s", c)
	}

	p.Section("Known colors in use")
	p.Bullets(u.KnownUsed)

	p.Section("Known colors unused")
	p.Bullets(u.KnownUnused)

	if len(u.Unexpected) > 0 {
		p.Section("Unexpected flag values")
		for _, c := range u.Unexpected {
			p.Printf("- %s", c)
		}
	}

	if len(u.Samples) > 0 {
		p.Section("Sample transactions by flag")
		for _, color := range u.Colors() {
			p.Printf("%s:", color)
			for _, row := range u.Samples[color] {
				p.Printf("- %s", row)
			}
		}
	}
}

// Sync writes the outcome of a sync run.
func (p *Printer) Sync(r *syncer.Report) {
	if r == nil {
		return
	}

	if r.Reverse != nil || r.ReverseErr != nil {
		p.Section("YNAB -> Splitwise")
		if r.ReverseErr != nil {
			p.Printf("Aborted: %v", r.ReverseErr)
		}
		if rev := r.Reverse; rev != nil && r.ReverseErr == nil {
			p.Printf("Flagged since %s: %d", rev.Cutoff, len(rev.Selected))
			if rev.DryRun {
				p.Printf("Dry run: %d expenses would be created with %s", len(rev.Selected), rev.Friend.FullName())
			} else {
				p.Printf("Created: %d", rev.Created)
				p.Printf("Failed: %d", rev.Failed)
			}
		}
	}

	if fwd := r.Forward; fwd != nil {
		p.Section("Splitwise -> YNAB")
		p.Printf("Updated since %s: %d (%d deleted ignored)", fwd.UpdatedAfter, fwd.Fetched, fwd.Deleted)
		p.Printf("Skipped: %d", fwd.Skipped)
		if fwd.DryRun {
			p.Printf("Dry run: %d transactions would be imported", len(fwd.Transactions))
		} else {
			p.Printf("Imported: %d", fwd.Created)
			p.Printf("Already present: %d", len(fwd.Duplicates))
		}
	}
}
