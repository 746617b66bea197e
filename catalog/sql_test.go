package catalog

import (
	"strings"
	"testing"

	"github.com/plugsql/plugsql/contract"
)

func TestSQLRendersTypedSignature(t *testing.T) {
	def := &Definition{
		Name:       "chatgpt",
		Locator:    "/opt/plugins/chatgpt.wasm",
		EntryPoint: "chatgpt",
		Params: []Param{
			{Name: "payload", Type: contract.TypeString, SQLType: "TEXT"},
			{Name: "prompt", Type: contract.TypeString, SQLType: "TEXT"},
		},
		ReturnType:    contract.TypeString,
		ReturnSQLType: "TEXT",
		ReturnField:   "response",
	}

	sql := def.SQL()

	wantFragments := []string{
		`CREATE OR REPLACE FUNCTION "chatgpt"("payload" TEXT, "prompt" TEXT) RETURNS TEXT`,
		`input_param := json_build_object('payload', "payload", 'prompt', "prompt");`,
		`SELECT plugsql_invoke('/opt/plugins/chatgpt.wasm', 'chatgpt', input_param) INTO result_json;`,
		`RETURN (result_json->>'response')::TEXT;`,
		`EXCEPTION`,
		`RETURN NULL;`,
		`$$ LANGUAGE plpgsql;`,
	}
	for _, fragment := range wantFragments {
		if !strings.Contains(sql, fragment) {
			t.Errorf("SQL() missing %q\n%s", fragment, sql)
		}
	}
}

func TestSQLZeroParameterFunction(t *testing.T) {
	def := &Definition{
		Name:          "plugin_now",
		Locator:       "now.wasm",
		EntryPoint:    "now",
		ReturnType:    contract.TypeNumber,
		ReturnSQLType: "NUMERIC",
		ReturnField:   "epoch",
	}

	sql := def.SQL()
	if !strings.Contains(sql, `FUNCTION "plugin_now"() RETURNS NUMERIC`) {
		t.Errorf("SQL() signature wrong:\n%s", sql)
	}
	if !strings.Contains(sql, "json_build_object();") {
		t.Errorf("SQL() envelope wrong:\n%s", sql)
	}
}

func TestSQLEscapesLiterals(t *testing.T) {
	def := &Definition{
		Name:          "f",
		Locator:       "o'brien.wasm",
		EntryPoint:    "run",
		ReturnType:    contract.TypeString,
		ReturnSQLType: "TEXT",
		ReturnField:   "out",
	}

	sql := def.SQL()
	if !strings.Contains(sql, `'o''brien.wasm'`) {
		t.Errorf("SQL() did not escape the locator literal:\n%s", sql)
	}
}

func TestQuoting(t *testing.T) {
	if got := quoteIdent(`a"b`); got != `"a""b"` {
		t.Errorf("quoteIdent() = %s", got)
	}
	if got := quoteLiteral(`a'b`); got != `'a''b'` {
		t.Errorf("quoteLiteral() = %s", got)
	}
}
