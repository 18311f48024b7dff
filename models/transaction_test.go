package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(TransactionStatusSuccess))
	assert.True(t, IsTerminalStatus(TransactionStatusFailed))
	assert.True(t, IsTerminalStatus(TransactionStatusCancelled))

	assert.False(t, IsTerminalStatus(TransactionStatusPending))
	assert.False(t, IsTerminalStatus(""))
	assert.False(t, IsTerminalStatus("settlement"))
}
