// Package flagusage summarizes how YNAB flag colors are used, which helps
// pick a color that is free to mark transactions for export.
package flagusage

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/money"
	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
)

// Options selects what Summarize considers.
type Options struct {
	OnBudgetOnly bool
	// Samples is the number of sample rows kept per flag color.
	Samples int
}

// Row is a flagged transaction.
type Row struct {
	TransactionID    string
	Date             string
	FlagColor        string
	AmountMilliunits int64
	PayeeName        string
	Account          string
}

func (r Row) String() string {
	return fmt.Sprintf("%s %-6s %10s  %s [%s] (%s)",
		r.Date, r.FlagColor, money.FormatMilliunits(r.AmountMilliunits), r.PayeeName, r.Account, r.TransactionID)
}

// Count is the number of transactions carrying one flag color.
type Count struct {
	Color string
	Count int
}

func (c Count) String() string {
	return fmt.Sprintf("%s: %d", c.Color, c.Count)
}

// Usage is the result of Summarize.
type Usage struct {
	Scope      string
	Considered int
	Unflagged  int
	// Counts is ordered by count descending, then color.
	Counts []Count
	// Flagged holds every flagged transaction, newest first.
	Flagged     []Row
	Samples     map[string][]Row
	KnownUsed   []string
	KnownUnused []string
	Unexpected  []Count
}

// Colors returns the used flag colors in alphabetical order.
func (u Usage) Colors() []string {
	colors := make([]string, 0, len(u.Counts))
	for _, c := range u.Counts {
		colors = append(colors, c.Color)
	}
	sort.Strings(colors)
	return colors
}

// Summarize counts flag colors over the non-deleted transactions of the
// accounts in scope. Closed accounts are included.
func Summarize(accounts []ynab.Account, txns []ynab.Transaction, opts Options) Usage {
	names := make(map[string]string, len(accounts))
	allowed := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
		if a.Name == "" {
			names[a.ID] = a.ID
		}
		if !opts.OnBudgetOnly || a.OnBudget {
			allowed[a.ID] = true
		}
	}

	usage := Usage{
		Scope:   "all accounts (on-budget + off-budget, open + closed)",
		Samples: make(map[string][]Row),
	}
	if opts.OnBudgetOnly {
		usage.Scope = "on-budget accounts (open + closed)"
	}

	counts := make(map[string]int)
	for _, tx := range txns {
		if tx.Deleted || !allowed[tx.AccountID] {
			continue
		}

		usage.Considered++
		color := normalize(tx.Flag())
		if color == "" {
			usage.Unflagged++
			continue
		}

		counts[color]++
		row := Row{
			TransactionID:    tx.ID,
			Date:             tx.Date,
			FlagColor:        color,
			AmountMilliunits: tx.Amount,
			PayeeName:        tx.PayeeText(),
			Account:          accountName(names, tx.AccountID),
		}
		usage.Flagged = append(usage.Flagged, row)
		if len(usage.Samples[color]) < opts.Samples {
			usage.Samples[color] = append(usage.Samples[color], row)
		}
	}

	sort.SliceStable(usage.Flagged, func(i, j int) bool {
		a, b := usage.Flagged[i], usage.Flagged[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		return a.TransactionID > b.TransactionID
	})

	for color, n := range counts {
		usage.Counts = append(usage.Counts, Count{Color: color, Count: n})
	}
	sort.Slice(usage.Counts, func(i, j int) bool {
		if usage.Counts[i].Count != usage.Counts[j].Count {
			return usage.Counts[i].Count > usage.Counts[j].Count
		}
		return usage.Counts[i].Color < usage.Counts[j].Color
	})

	for _, color := range ynab.KnownFlagColors {
		if counts[color] > 0 {
			usage.KnownUsed = append(usage.KnownUsed, color)
		} else {
			usage.KnownUnused = append(usage.KnownUnused, color)
		}
	}
	for _, c := range usage.Counts {
		if !slices.Contains(ynab.KnownFlagColors, c.Color) {
			usage.Unexpected = append(usage.Unexpected, c)
		}
	}
	sort.Slice(usage.Unexpected, func(i, j int) bool {
		return usage.Unexpected[i].Color < usage.Unexpected[j].Color
	})

	return usage
}

func normalize(color string) string {
	return strings.ToLower(strings.TrimSpace(color))
}

func accountName(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id
}
