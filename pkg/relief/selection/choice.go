package selection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/relief/pkg/relief/internalerr"
)

// ParseChoice reads a yes/no answer. It accepts yes, y, true, no, n and
// false in any case and rejects everything else.
func ParseChoice(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true":
		return true, nil
	case "no", "n", "false":
		return false, nil
	default:
		return false, fmt.Errorf("choose yes or no, got %q: %w", s, internalerr.ErrInvalidInput)
	}
}

// Choice is a flag.Value holding a yes/no answer parsed by ParseChoice.
type Choice bool

// String implements flag.Value.
func (c *Choice) String() string {
	if c == nil {
		return "false"
	}
	return strconv.FormatBool(bool(*c))
}

// Set implements flag.Value.
func (c *Choice) Set(s string) error {
	v, err := ParseChoice(s)
	if err != nil {
		return err
	}
	*c = Choice(v)
	return nil
}

// IsBoolFlag lets the flag be given without a value.
func (c *Choice) IsBoolFlag() bool { return true }
