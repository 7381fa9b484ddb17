package cview

import "fmt"

// Field is one member handed to Format.
type Field struct {
	Name  string
	Value any
}

// Format prints a struct the way fmt prints one by reflection, but hands
// each member to fmt as a value of its own. Members with unexported names
// still reach their String, GoString and Format methods that way, which
// reflection would skip.
//
//	%v   {1 A_U}
//	%+v  {tag:1 u:A_U}
//	%#v  A{tag:0x1, u:A_U}
func Format(f fmt.State, verb rune, typ string, fields []Field) {
	sep := " "
	if verb == 'v' && f.Flag('#') {
		fmt.Fprint(f, typ)
		sep = ", "
	}

	named := verb == 'v' && (f.Flag('+') || f.Flag('#'))
	format := fmt.FormatString(f, verb)

	fmt.Fprint(f, "{")
	for i, field := range fields {
		if i > 0 {
			fmt.Fprint(f, sep)
		}
		if named {
			fmt.Fprint(f, field.Name, ":")
		}
		fmt.Fprintf(f, format, field.Value)
	}
	fmt.Fprint(f, "}")
}
