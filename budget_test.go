package chatpg

import (
	"testing"
	"time"
)

func TestNewBudget(t *testing.T) {
	b := NewBudget(8000, 10, 3*time.Minute, 5*time.Minute)

	if b.MaxTokens != 80000 {
		t.Errorf("MaxTokens = %d, want 80000", b.MaxTokens)
	}
	if b.FlushInterval != 3*time.Minute {
		t.Errorf("FlushInterval = %v, want 3m", b.FlushInterval)
	}
	if b.IdleSessionInterval != 5*time.Minute {
		t.Errorf("IdleSessionInterval = %v, want 5m", b.IdleSessionInterval)
	}
}

func TestBudgetAllows(t *testing.T) {
	b := Budget{MaxTokens: 100}

	tests := []struct {
		name       string
		tokenTotal int
		want       bool
	}{
		{"zero", 0, true},
		{"under budget", 99, true},
		{"exactly at budget", 100, false},
		{"over budget", 150, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Allows(tt.tokenTotal); got != tt.want {
				t.Errorf("Allows(%d) = %v, want %v", tt.tokenTotal, got, tt.want)
			}
		})
	}
}
