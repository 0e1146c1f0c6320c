package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessStatus_RoundTrip(t *testing.T) {
	for _, s := range []AccessStatus{
		StatusOK(),
		StatusFixed(),
		StatusAPIError(),
		StatusError(ErrorKindIncompatibleDomain),
		{},
	} {
		assert.Equal(t, s, ParseAccessStatus(s.String()), "status %q", s.String())
	}
}

func TestAccessStatus_NeedsRepair(t *testing.T) {
	assert.True(t, AccessStatus{}.NeedsRepair())
	assert.True(t, StatusAPIError().NeedsRepair())
	assert.True(t, StatusError("x").NeedsRepair())
	assert.False(t, StatusOK().NeedsRepair())
	assert.False(t, StatusFixed().NeedsRepair())
}

func TestParseAccessStatus_UnknownTextIsError(t *testing.T) {
	s := ParseAccessStatus("something odd")
	assert.Equal(t, AccessError, s.State)
	assert.Equal(t, "something odd", s.Kind)
}
