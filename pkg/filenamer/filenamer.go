// Package filenamer maps invoice attributes onto the canonical artifact
// name. Pure string work: no I/O, no clock, no side effects.
package filenamer

import (
	"fmt"
	"strings"
	"time"
)

// dateLayout is the DD-MMM-YYYY convention the accounting side expects.
const dateLayout = "02-Jan-2006"

// Name builds "{vendorCode}_{accountSuffix}_{DD-MMM-YYYY}_{glCode}.pdf".
// Deterministic over its inputs. Components must be non-empty, ASCII, and
// free of path separators; anything else fails fast.
func Name(vendorCode, accountSuffix string, date time.Time, glCode string) (string, error) {
	for _, c := range []struct{ field, value string }{
		{"vendor code", vendorCode},
		{"account suffix", accountSuffix},
		{"gl code", glCode},
	} {
		if err := checkComponent(c.field, c.value); err != nil {
			return "", err
		}
	}
	if date.IsZero() {
		return "", fmt.Errorf("filename: date is zero")
	}
	return fmt.Sprintf("%s_%s_%s_%s.pdf",
		vendorCode, accountSuffix, date.Format(dateLayout), glCode), nil
}

func checkComponent(field, value string) error {
	if value == "" {
		return fmt.Errorf("filename: %s is empty", field)
	}
	if strings.ContainsAny(value, `/\`) {
		return fmt.Errorf("filename: %s %q contains a path separator", field, value)
	}
	for _, r := range value {
		if r > 0x7f {
			return fmt.Errorf("filename: %s %q contains non-ASCII characters", field, value)
		}
	}
	return nil
}
