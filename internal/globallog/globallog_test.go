package globallog

import (
	"testing"

	"github.com/ausocean/utils/logging"
	"github.com/stretchr/testify/assert"
)

func TestSetAndGetRoundTrip(t *testing.T) {
	t.Cleanup(func() { logger = nil })

	l := (*logging.TestLogger)(t)
	Set(l)
	assert.Equal(t, logging.Logger(l), Get())
}

func TestGetPanicsBeforeSet(t *testing.T) {
	t.Cleanup(func() { logger = nil })
	logger = nil
	assert.Panics(t, func() { Get() })
}
