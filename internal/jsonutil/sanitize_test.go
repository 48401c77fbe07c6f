package jsonutil

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSanitize_ConvertsNonPrimitives(t *testing.T) {
	id := uuid.MustParse("3c2f8f9e-45a1-4bd0-9a3e-1f29a8a1d001")
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	in := map[string]any{
		"claim_id":     id,
		"validated_at": ts,
		"nested": map[string]any{
			"err":  errors.New("boom"),
			"nums": []int{1, 2, 3},
		},
		"note": "plain",
	}
	out := Sanitize(in).(map[string]any)

	if out["claim_id"] != id.String() {
		t.Errorf("claim_id = %v", out["claim_id"])
	}
	if out["validated_at"] != "2024-01-15T10:30:00Z" {
		t.Errorf("validated_at = %v", out["validated_at"])
	}
	nested := out["nested"].(map[string]any)
	if nested["err"] != "boom" {
		t.Errorf("err = %v", nested["err"])
	}

	// the whole tree must survive json.Marshal
	if _, err := json.Marshal(out); err != nil {
		t.Fatalf("sanitized tree not JSON-safe: %v", err)
	}
}

func TestSanitize_NilAndPointers(t *testing.T) {
	if got := Sanitize(nil); got != nil {
		t.Errorf("Sanitize(nil) = %v", got)
	}
	var tp *time.Time
	if got := Sanitize(tp); got != nil {
		t.Errorf("Sanitize(nil *time.Time) = %v", got)
	}
	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if got := Sanitize(&ts); got != "2024-06-01T00:00:00Z" {
		t.Errorf("Sanitize(*time.Time) = %v", got)
	}
}

func TestValidateVerdictPayload(t *testing.T) {
	good := []byte(`{"valid":true,"message":"1 of 1 claim documents valid","files_valid":1,"files_failed":0,"errors":[],"warnings":["w"]}`)
	if err := ValidateVerdictPayload(good); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}

	bad := []byte(`{"valid":"yes","message":1}`)
	if err := ValidateVerdictPayload(bad); err == nil {
		t.Error("malformed payload accepted")
	}
}
