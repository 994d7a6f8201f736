package app

import (
	"errors"
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	op := NewOperation("GenerateImage", now)

	if op.ID != "20240115T093000Z" {
		t.Errorf("ID = %q, want UTC timestamp", op.ID)
	}
	if op.Name != "GenerateImage" || !op.StartedAt.Equal(now) {
		t.Errorf("op = %+v", op)
	}
	if op.Status != "success" || op.Failed() {
		t.Errorf("new operation Status = %q", op.Status)
	}
}

func TestOperation_Fail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error keeps success", err: nil, want: false},
		{name: "error marks failure", err: errors.New("boom"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("AddFrame", time.Now())
			op.Fail(tt.err)
			if got := op.Failed(); got != tt.want {
				t.Errorf("Failed() = %v, want %v", got, tt.want)
			}
			if !errors.Is(op.Err, tt.err) {
				t.Errorf("Err = %v, want %v", op.Err, tt.err)
			}
		})
	}
}
