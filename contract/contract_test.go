package contract

import (
	"encoding/json"
	"testing"
)

func TestValueTypeMappingIsTotal(t *testing.T) {
	for _, vt := range ValueTypes() {
		sqlType, err := vt.SQLType()
		if err != nil {
			t.Fatalf("SQLType(%s) error = %v", vt, err)
		}
		if sqlType == "" {
			t.Fatalf("SQLType(%s) returned empty type", vt)
		}

		back, err := ValueTypeFromSQL(sqlType)
		if err != nil {
			t.Fatalf("ValueTypeFromSQL(%s) error = %v", sqlType, err)
		}
		if back != vt {
			t.Errorf("round trip %s -> %s -> %s, want %s", vt, sqlType, back, vt)
		}
	}
}

func TestValueTypeMappingRejectsUnknown(t *testing.T) {
	if _, err := ValueType("Binary").SQLType(); err == nil {
		t.Error("SQLType() with unknown tag error = nil, want error")
	}
	if _, err := ValueTypeFromSQL("BLOB"); err == nil {
		t.Error("ValueTypeFromSQL() with unknown column type error = nil, want error")
	}
}

func TestValueTypeUnmarshalRejectsUnknownTag(t *testing.T) {
	var vt ValueType
	if err := json.Unmarshal([]byte(`"Binary"`), &vt); err == nil {
		t.Error("unmarshal of unknown tag error = nil, want error")
	}
	if err := json.Unmarshal([]byte(`42`), &vt); err == nil {
		t.Error("unmarshal of non-string tag error = nil, want error")
	}
	if err := json.Unmarshal([]byte(`"NumberArray"`), &vt); err != nil {
		t.Errorf("unmarshal of valid tag error = %v", err)
	}
	if vt != TypeNumberArray {
		t.Errorf("unmarshal result = %s, want %s", vt, TypeNumberArray)
	}
}

func TestDecodeSortsParametersByName(t *testing.T) {
	raw := []byte(`{
		"entryPoint": "chatgpt",
		"parameters": {"prompt": "String", "payload": "String", "attempts": "Number"},
		"returnType": "String",
		"returnField": "response"
	}`)

	md, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if md.EntryPoint != "chatgpt" {
		t.Errorf("EntryPoint = %q, want %q", md.EntryPoint, "chatgpt")
	}
	if md.ReturnField != "response" {
		t.Errorf("ReturnField = %q, want %q", md.ReturnField, "response")
	}
	if md.ReturnType != TypeString {
		t.Errorf("ReturnType = %s, want %s", md.ReturnType, TypeString)
	}

	wantOrder := []string{"attempts", "payload", "prompt"}
	if len(md.Parameters) != len(wantOrder) {
		t.Fatalf("len(Parameters) = %d, want %d", len(md.Parameters), len(wantOrder))
	}
	for i, name := range wantOrder {
		if md.Parameters[i].Name != name {
			t.Errorf("Parameters[%d].Name = %q, want %q", i, md.Parameters[i].Name, name)
		}
	}
	if md.Parameters[0].Type != TypeNumber {
		t.Errorf("attempts type = %s, want %s", md.Parameters[0].Type, TypeNumber)
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	raw := []byte(`{
		"entryPoint": "run",
		"parameters": {"data": "Blob"},
		"returnType": "String",
		"returnField": "out"
	}`)
	if _, err := Decode(raw); err == nil {
		t.Error("Decode() with unknown parameter tag error = nil, want error")
	}
}

func TestMetadataMarshalRoundTrip(t *testing.T) {
	md := &Metadata{
		EntryPoint: "run",
		Parameters: []Parameter{
			{Name: "a", Type: TypeNumber},
			{Name: "b", Type: TypeJSON},
		},
		ReturnType:  TypeNumberArray,
		ReturnField: "values",
	}

	data, err := json.Marshal(md)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if err := ValidateRaw(data); err != nil {
		t.Fatalf("ValidateRaw() of marshalled metadata error = %v", err)
	}

	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if back.EntryPoint != md.EntryPoint || back.ReturnField != md.ReturnField || back.ReturnType != md.ReturnType {
		t.Errorf("round trip = %+v, want %+v", back, md)
	}
	if len(back.Parameters) != 2 || back.Parameters[0].Name != "a" || back.Parameters[1].Name != "b" {
		t.Errorf("round trip parameters = %+v", back.Parameters)
	}
}

func TestParameterLookup(t *testing.T) {
	md := &Metadata{Parameters: []Parameter{{Name: "x", Type: TypeString}}}

	p, ok := md.Parameter("x")
	if !ok || p.Type != TypeString {
		t.Errorf("Parameter(x) = %+v, %v", p, ok)
	}
	if _, ok := md.Parameter("y"); ok {
		t.Error("Parameter(y) ok = true, want false")
	}
}
