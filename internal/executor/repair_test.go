package executor

import "testing"

func TestRepairSelectorSyntaxAppliesFixedTable(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{":text(Submit)", ":has-text(Submit)"},
		{"text(Submit)", "text=Submit)"},
		{"button:first", "button:first-of-type"},
		{"button:last", "button:last-of-type"},
		{"ul >> first", "ul >> nth=0"},
		{"ul >> last", "ul >> nth=-1"},
		{"#stable-id", "#stable-id"},
	}
	for _, c := range cases {
		got := RepairSelectorSyntax(c.in)
		if got != c.want {
			t.Errorf("RepairSelectorSyntax(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRepairSelectorSyntaxDoesNotDoubleConvertHasText(t *testing.T) {
	got := RepairSelectorSyntax(":text(Click here)")
	if got != ":has-text(Click here)" {
		t.Errorf("expected single conversion to :has-text(, got %q", got)
	}
}
