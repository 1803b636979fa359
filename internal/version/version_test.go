package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckCompatibility(t *testing.T) {
	assert.NoError(t, CheckCompatibility(""))
	assert.NoError(t, CheckCompatibility("1.0.0"))

	assert.Error(t, CheckCompatibility("2.0.0"))
	assert.Error(t, CheckCompatibility("1.99.0"))
	assert.Error(t, CheckCompatibility("not-a-version"))
}
