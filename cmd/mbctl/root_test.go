package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestKeywordsCmd(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  []string
	}{
		{
			name: "from args",
			args: []string{"keywords", "database", "database", "schema", "migration", "database"},
			want: []string{"database", "schema", "migration"},
		},
		{
			name:  "from stdin",
			stdin: "cache cache invalidation",
			args:  []string{"keywords"},
			want:  []string{"cache", "invalidation"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.Fields(out))
		})
	}
}

func TestKeywordsCmd_JSON(t *testing.T) {
	out, err := run(t, "", "keywords", "--json", "planning", "planning", "roadmap")
	require.NoError(t, err)
	assert.JSONEq(t, `["planning","roadmap"]`, out)
}

func TestSchemaCmd_Print(t *testing.T) {
	out, err := run(t, "", "schema", "--print", "--prefix", "test_")
	require.NoError(t, err)
	assert.Contains(t, out, "test_boards")
	assert.Contains(t, out, "test_multiblock_changes")
	assert.NotContains(t, out, "{{prefix}}")
}

func TestSchemaCmd_RequiresDatabaseURL(t *testing.T) {
	_, err := run(t, "", "schema", "--database-url", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url is required")
}

func TestComposeCmd_RequiresBlockID(t *testing.T) {
	_, err := run(t, "", "compose")
	assert.Error(t, err)
}
