package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoflow/auth"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "***", maskSecret("short"))
	assert.Equal(t, "post***/db1", maskSecret("postgres://u:p@host/db1"))
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("TODOFLOW_CONFIG_FILE", "")
	t.Setenv("TODOFLOW_AUTH_JWT_SECRET", "cli-secret")
	configPath = ""

	cmd := tokenCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"alice", "--ttl", "1m"})
	require.NoError(t, cmd.Execute())

	token := strings.SplitN(out.String(), "\n", 2)[0]
	claims, err := auth.NewTokenService("cli-secret", "", time.Minute).Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Owner())
}
