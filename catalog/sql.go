package catalog

import (
	"fmt"
	"strings"
)

// SQL renders the definition as a PL/pgSQL create-or-replace statement for
// engines that install functions from SQL text. The body builds a JSON
// object from the parameters, routes it through the bridge's invoke
// function, extracts the return field and casts it to the declared type;
// any failure inside the body collapses to NULL with a notice.
//
// Every identifier is quote-escaped on top of the validation the
// synthesizer already performed, and the locator and entry point are
// escaped as literals, so metadata can never splice statements of its own
// into the output.
func (d *Definition) SQL() string {
	var b strings.Builder

	b.WriteString("CREATE OR REPLACE FUNCTION ")
	b.WriteString(quoteIdent(d.Name))
	b.WriteString("(")
	for i, p := range d.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(p.Name))
		b.WriteString(" ")
		b.WriteString(p.SQLType)
	}
	b.WriteString(") RETURNS ")
	b.WriteString(d.ReturnSQLType)
	b.WriteString(" AS $$\n")

	b.WriteString("DECLARE\n")
	b.WriteString("    result_json json;\n")
	b.WriteString("    input_param json;\n")
	b.WriteString("BEGIN\n")
	b.WriteString("    input_param := json_build_object(")
	for i, p := range d.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteLiteral(p.Name))
		b.WriteString(", ")
		b.WriteString(quoteIdent(p.Name))
	}
	b.WriteString(");\n")

	fmt.Fprintf(&b, "    SELECT plugsql_invoke(%s, %s, input_param) INTO result_json;\n",
		quoteLiteral(d.Locator), quoteLiteral(d.EntryPoint))
	fmt.Fprintf(&b, "    RETURN (result_json->>%s)::%s;\n",
		quoteLiteral(d.ReturnField), d.ReturnSQLType)

	b.WriteString("EXCEPTION\n")
	b.WriteString("    WHEN OTHERS THEN\n")
	b.WriteString("        RAISE NOTICE 'plugin call failed: %', SQLERRM;\n")
	b.WriteString("        RETURN NULL;\n")
	b.WriteString("END;\n")
	b.WriteString("$$ LANGUAGE plpgsql;")

	return b.String()
}

// quoteIdent double-quotes an identifier, doubling embedded quotes.
// The synthesizer only admits [A-Za-z_][A-Za-z0-9_]* names, so this is a
// second fence, not the first.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral single-quotes a string literal, doubling embedded quotes.
func quoteLiteral(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
