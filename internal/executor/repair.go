package executor

import "strings"

// repairRules is the fixed locator-syntax repair table from spec.md §6.4,
// applied once, left-to-right, just before a selector reaches the browser
// driver.
var repairRules = []struct {
	from string
	to   string
}{
	{":text(", ":has-text("},
	{"text(", "text="},
	{":first", ":first-of-type"},
	{":last", ":last-of-type"},
	{">> first", ">> nth=0"},
	{">> last", ">> nth=-1"},
}

// RepairSelectorSyntax rewrites a handful of locator-syntax variants into
// one canonical form, regardless of which form the caller wrote. Rules are
// applied once, in table order; a rule is not
// reapplied to text its own replacement introduced.
func RepairSelectorSyntax(selector string) string {
	out := selector
	for _, rule := range repairRules {
		if rule.from == "text(" {
			// bare text( only matches when not already preceded by ':',
			// since the :text( rule above has already claimed that form.
			out = repairBareText(out)
			continue
		}
		out = strings.ReplaceAll(out, rule.from, rule.to)
	}
	return out
}

func repairBareText(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		isBare := strings.HasPrefix(s[i:], "text(") && (i == 0 || s[i-1] != ':') &&
			!(i >= 4 && s[i-4:i] == "has-")
		if isBare {
			b.WriteString("text=")
			i += len("text(") - 1
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
