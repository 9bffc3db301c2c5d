package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFieldsSkipsEmptyEntries(t *testing.T) {
	fields := StringFields(
		StringField{Key: "ai_backend", Value: "gemini-2.0-flash"},
		StringField{Key: "", Value: "ignored"},
		StringField{Key: "pipeline_stage", Value: "   "},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Key != "ai_backend" {
		t.Fatalf("unexpected field key: %q", fields[0].Key)
	}
}

func TestWithStageAttachesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	WithStage(base, "verify", "gemini-flash-latest").Info("vote")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldStage] != "verify" {
		t.Fatalf("unexpected stage field: %v", ctx[FieldStage])
	}
	if ctx[FieldBackend] != "gemini-flash-latest" {
		t.Fatalf("unexpected backend field: %v", ctx[FieldBackend])
	}
}

func TestWithFieldsNilLogger(t *testing.T) {
	if WithFields(nil) == nil {
		t.Fatal("expected non-nil logger")
	}
}
