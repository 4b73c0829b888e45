package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusIsTerminal(t *testing.T) {
	assert.False(t, RunStatusRunning.IsTerminal())
	assert.True(t, RunStatusComplete.IsTerminal())
	assert.True(t, RunStatusEmpty.IsTerminal())
	assert.True(t, RunStatusFailed.IsTerminal())
}
