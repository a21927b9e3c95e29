package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMCPServerWithoutDepsRegistersNothing(t *testing.T) {
	s := NewMCPServer(ServerConfig{}, ServerDependencies{})
	assert.NotNil(t, s)
	assert.NotNil(t, NewHTTPHandler(s, ServerConfig{}))
}
