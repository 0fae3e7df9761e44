package docstore

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ghalamif/PressFlow/internal/domain"
)

// Dialect captures the SQL differences between the supported backends.
type Dialect struct {
	Name     string
	Driver   string
	JSONType string
	numbered bool
}

var (
	Postgres = Dialect{Name: "postgres", Driver: "postgres", JSONType: "JSONB", numbered: true}
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite", JSONType: "TEXT"}
)

// DialectFor maps a configured driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "timescale", "timescaledb":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// Placeholder renders the i-th (1-based) bind parameter.
func (d Dialect) Placeholder(i int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Collection builds the per-run collection name for a record family.
func Collection(prefix string, family domain.Family, runID string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, runID)
	return fmt.Sprintf("%s%s_%s", prefix, family, clean)
}

func quoteIdent(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("invalid collection name %q", name)
	}
	return `"` + name + `"`, nil
}
