package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeString renders t in the DSL's own notation, with array sizes in
// declaration order. It is used for diagnostics and the layout listing.
func TypeString(t Type) string {
	switch v := t.(type) {
	case nil:
		return ""
	case Ident:
		return v.Name
	case Number:
		if v.Lit != "" {
			return v.Lit
		}
		return strconv.FormatUint(v.Value, 10)
	case Pointer:
		return v.Target.Name + " " + strings.Repeat("*", v.Depth)
	case Array:
		return fmt.Sprintf("%s[%s]", TypeString(v.Elem), TypeString(v.Size))
	case Struct:
		return "struct " + v.Name.Name
	case Union:
		return "union " + v.Name.Name
	}

	panic("unhandled")
}

func (d Declaration) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s {", d.Kind, d.Name.Name)
	for _, f := range d.Fields {
		if f.Anonymous() {
			fmt.Fprintf(&b, " %s;", TypeString(f.Type))
			continue
		}
		fmt.Fprintf(&b, " %s %s;", TypeString(f.Type), f.Name.Name)
	}
	b.WriteString(" };")
	return b.String()
}
