package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreadCounterparty(t *testing.T) {
	thread := Thread{User1ID: 3, User2ID: 8}

	assert.Equal(t, 8, thread.Counterparty(3))
	assert.Equal(t, 3, thread.Counterparty(8))
}

func TestThreadHasParticipant(t *testing.T) {
	thread := Thread{User1ID: 3, User2ID: 8}

	assert.True(t, thread.HasParticipant(3))
	assert.True(t, thread.HasParticipant(8))
	assert.False(t, thread.HasParticipant(5))
}

func TestValidThreadStatus(t *testing.T) {
	assert.True(t, ValidThreadStatus(ThreadStatusActive))
	assert.True(t, ValidThreadStatus(ThreadStatusArchived))
	assert.True(t, ValidThreadStatus(ThreadStatusClosed))
	assert.False(t, ValidThreadStatus("deleted"))
	assert.False(t, ValidThreadStatus(""))
}

func TestProfileDisplayName(t *testing.T) {
	company := "Ti64 Powder Co"
	assert.Equal(t, "Ti64 Powder Co", Profile{FullName: "Ana Silva", CompanyName: &company}.DisplayName())
	assert.Equal(t, "Ana Silva", Profile{FullName: "Ana Silva"}.DisplayName())

	empty := ""
	assert.Equal(t, "Ana Silva", Profile{FullName: "Ana Silva", CompanyName: &empty}.DisplayName())
}
