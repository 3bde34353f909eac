package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is a decimal field as forms submit it: a JSON number, a numeric
// string, "" or null. Empty values read as zero. It is written as a JSON number.
type Number struct {
	decimal.Decimal
}

func NewNumber(d decimal.Decimal) Number { return Number{Decimal: d} }

func NumberFromInt(n int64) Number { return Number{Decimal: decimal.NewFromInt(n)} }

// RequireNumber parses s and panics on malformed input; meant for fixtures
func RequireNumber(s string) Number { return Number{Decimal: decimal.RequireFromString(s)} }

func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		n.Decimal = decimal.Zero
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
		if raw == "" {
			n.Decimal = decimal.Zero
			return nil
		}
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("not a number: %q", raw)
	}
	n.Decimal = d
	return nil
}
