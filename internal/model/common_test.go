package model

import (
	"testing"
)

func TestJSONMapScan(t *testing.T) {
	var jm JSONMap
	if err := jm.Scan(`{"bot_token":"T","nested":{"a":1}}`); err != nil {
		t.Fatalf("Scan() returned error: %v", err)
	}
	if jm.GetString("bot_token") != "T" {
		t.Errorf("GetString(bot_token) = %q, want T", jm.GetString("bot_token"))
	}

	// 非字符串字段返回空串
	if jm.GetString("nested") != "" {
		t.Errorf("GetString(nested) = %q, want empty", jm.GetString("nested"))
	}
	if jm.GetString("missing") != "" {
		t.Errorf("GetString(missing) = %q, want empty", jm.GetString("missing"))
	}
}

func TestJSONMapScanNil(t *testing.T) {
	var jm JSONMap
	if err := jm.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) returned error: %v", err)
	}
	if jm == nil {
		t.Errorf("Scan(nil) left map nil")
	}
}

func TestJSONMapScanInvalid(t *testing.T) {
	var jm JSONMap
	if err := jm.Scan("{broken"); err == nil {
		t.Errorf("Scan(invalid json) = nil error, want error")
	}
	if err := jm.Scan(42); err == nil {
		t.Errorf("Scan(int) = nil error, want error")
	}
}

func TestJSONMapValue(t *testing.T) {
	v, err := JSONMap{}.Value()
	if err != nil {
		t.Fatalf("Value() returned error: %v", err)
	}
	if v != "{}" {
		t.Errorf("empty map Value() = %v, want {}", v)
	}
}
