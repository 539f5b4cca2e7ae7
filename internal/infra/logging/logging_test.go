//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestRedactPhone(t *testing.T) {
	cases := map[string]string{
		"255754123456": "255******456",
		"0754":         "***",
		"":             "***",
	}
	for in, want := range cases {
		if got := RedactPhone(in); got != want {
			t.Errorf("RedactPhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithTraceID(context.Background(), "tr-1")
	ctx = WithPaymentID(ctx, "pay-9")
	With(ctx, &base).Info().Msg("x")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if got["trace_id"] != "tr-1" || got["payment_id"] != "pay-9" {
		t.Fatalf("missing context fields: %v", got)
	}
	if _, ok := got["user_id"]; ok {
		t.Fatal("unset fields must be omitted")
	}
	if TraceIDFrom(ctx) != "tr-1" {
		t.Fatal("TraceIDFrom should read back the id")
	}
}
