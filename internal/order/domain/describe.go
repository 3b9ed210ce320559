package domain

import (
	"fmt"
	"strings"
)

const noteDisplayLength = 30

// Describe renders a line as "{qty}x {name}[ ({size})][, {milk} milk][, {syrups} syrup][, [{note}]]".
// The default milk is omitted.
func Describe(l CartLine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dx %s", l.Quantity, l.Item.Name)
	if l.Size != "" {
		fmt.Fprintf(&b, " (%s)", l.Size)
	}
	if c := l.Customization; c != nil {
		if c.Milk != "" && c.Milk != DefaultMilk {
			fmt.Fprintf(&b, ", %s milk", c.Milk)
		}
		if len(c.Syrups) > 0 {
			fmt.Fprintf(&b, ", %s syrup", strings.Join(c.Syrups, ", "))
		}
		if note := oneLine(c.Note); note != "" {
			fmt.Fprintf(&b, ", [%s]", truncate(note, noteDisplayLength))
		}
	}
	return b.String()
}

// oneLine collapses runs of whitespace, line breaks included, to one space.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
