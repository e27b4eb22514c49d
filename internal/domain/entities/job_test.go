package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDedupKey_OrderIndependent(t *testing.T) {
	a := NewDedupKey(map[string]string{
		"owner_id":    "1029384756",
		"clinic_id":   "main",
		"date":        "2026-09-10",
		"time":        "09:30",
		"provider_id": "dr-1",
	})
	b := NewDedupKey(map[string]string{
		"provider_id": "dr-1",
		"time":        "09:30",
		"date":        "2026-09-10",
		"clinic_id":   "main",
		"owner_id":    "1029384756",
	})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestNewDedupKey_DifferentIdentity(t *testing.T) {
	a := NewDedupKey(map[string]string{"owner_id": "1", "date": "2026-09-10"})
	b := NewDedupKey(map[string]string{"owner_id": "2", "date": "2026-09-10"})
	assert.NotEqual(t, a, b)
}
