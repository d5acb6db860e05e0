package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusOrdered, true},
		{StatusPending, StatusDeclined, true},
		{StatusOrdered, StatusReceived, true},
		{StatusOrdered, StatusPartiallyReceived, true},
		{StatusPartiallyReceived, StatusReceived, true},
		{StatusReceived, StatusStockUpdated, true},
		{StatusPending, StatusStockUpdated, false},
		{StatusPending, StatusReceived, false},
		{StatusOrdered, StatusDeclined, false},
		{StatusStockUpdated, StatusReceived, false},
		{StatusDeclined, StatusPending, false},
		{StatusReceived, StatusReceived, true},
		{OrderStatus("lost"), OrderStatus("lost"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusStockUpdated.IsTerminal())
	assert.True(t, StatusDeclined.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusReceived.IsTerminal())
}
