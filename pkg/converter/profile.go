// Package converter maps Splitwise expenses to YNAB transactions and back.
package converter

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shunichi-ikebuchi/splitwise-ynab-sync/pkg/ynab"
	"gopkg.in/yaml.v3"
)

// DefaultLabel names the source service in payees and memos.
const DefaultLabel = "Splitwise"

// Profile holds the per-installation choices for imported transactions.
type Profile struct {
	// Label names the source service, e.g. "Alex Lee (Splitwise)".
	Label string `yaml:"label"`
	// Cleared is the cleared status of imported transactions.
	Cleared string `yaml:"cleared"`
	// Approved marks imported transactions as approved.
	Approved bool `yaml:"approved"`
	// ImportFlagColor, when set, flags every imported transaction.
	ImportFlagColor string `yaml:"import_flag_color"`
}

// DefaultProfile returns the profile used when no file is configured.
func DefaultProfile() Profile {
	return Profile{
		Label:   DefaultLabel,
		Cleared: ynab.ClearedCleared,
	}
}

// LoadProfile reads a YAML profile. An empty path yields DefaultProfile.
// Fields missing from the file keep their default values.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile file: %w", err)
	}

	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := profile.normalize(); err != nil {
		return Profile{}, err
	}

	return profile, nil
}

func (p *Profile) normalize() error {
	p.Label = strings.TrimSpace(p.Label)
	if p.Label == "" {
		p.Label = DefaultLabel
	}

	p.Cleared = strings.ToLower(strings.TrimSpace(p.Cleared))
	switch p.Cleared {
	case "":
		p.Cleared = ynab.ClearedCleared
	case ynab.ClearedCleared, ynab.ClearedUncleared, ynab.ClearedReconciled:
	default:
		return fmt.Errorf("invalid cleared status %q", p.Cleared)
	}

	p.ImportFlagColor = strings.ToLower(strings.TrimSpace(p.ImportFlagColor))
	return nil
}

// MalformedRecordError reports an unparseable numeric field of an expense.
type MalformedRecordError struct {
	ExpenseID int64
	UserID    int64
	Field     string
	Value     string
	Err       error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("expense %d: user %d: malformed %s %q: %v", e.ExpenseID, e.UserID, e.Field, e.Value, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// IsMalformed reports whether err carries a *MalformedRecordError.
func IsMalformed(err error) bool {
	var target *MalformedRecordError
	return errors.As(err, &target)
}
