package integration_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/ganot/oncall-mcp/internal/testserver"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func serverBinary(t *testing.T) string {
	t.Helper()
	for _, path := range []string{"./bin/oncall-mcp", "../../bin/oncall-mcp"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Skip("Server binary not found. Run 'go build -o bin/oncall-mcp ./cmd/server' first.")
	return ""
}

func serverEnv(fake *testserver.FakeJira) []string {
	return append(os.Environ(),
		"ONCALL_ENV_FILE=/nonexistent/.env",
		"ONCALL_TRANSPORT=stdio",
		"JIRA_BASE_URL="+fake.URL(),
		"JIRA_EMAIL="+testserver.FakeEmail,
		"JIRA_TOKEN="+testserver.FakeToken,
	)
}

// TestStdioProtocolCompliance drives the built server over stdio with the SDK client.
func TestStdioProtocolCompliance(t *testing.T) {
	binary := serverBinary(t)
	fake := testserver.NewFakeJira(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary)
	cmd.Env = serverEnv(fake)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, nil)
	require.NoError(t, err, "Failed to connect to server")
	defer session.Close()

	t.Run("ServerInfo", func(t *testing.T) {
		initResult := session.InitializeResult()
		require.NotNil(t, initResult)
		require.NotNil(t, initResult.ServerInfo)
		require.Equal(t, "oncall-mcp", initResult.ServerInfo.Name)
		require.NotEmpty(t, initResult.ServerInfo.Version)
	})

	t.Run("ListTools", func(t *testing.T) {
		result, err := session.ListTools(ctx, nil)
		require.NoError(t, err)
		names := make(map[string]bool)
		for _, tool := range result.Tools {
			names[tool.Name] = true
		}
		require.True(t, names["triage_ticket"])
		require.True(t, names["get_ticket"])
	})

	t.Run("ListPrompts", func(t *testing.T) {
		result, err := session.ListPrompts(ctx, nil)
		require.NoError(t, err)
		require.Len(t, result.Prompts, 4)
	})

	t.Run("FlaggedErrorKeepsSessionOpen", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "get_ticket",
			Arguments: map[string]any{"ticket_id": "NOPE-1"},
		})
		require.NoError(t, err)
		require.True(t, result.IsError)

		_, err = session.ListTools(ctx, nil)
		require.NoError(t, err)
	})
}

// TestStdioProtocol_StdoutHygiene checks that stdout carries only JSON-RPC
// messages; logs belong on stderr.
func TestStdioProtocol_StdoutHygiene(t *testing.T) {
	binary := serverBinary(t)
	fake := testserver.NewFakeJira(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary)
	cmd.Env = append(serverEnv(fake), "ONCALL_LOG_LEVEL=debug")
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	defer func() {
		_ = stdin.Close()
		_ = cmd.Wait()
	}()

	initReq := `{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}},"id":1}`
	_, err = io.WriteString(stdin, initReq+"\n")
	require.NoError(t, err)

	lines := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		if scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	select {
	case line, ok := <-lines:
		require.True(t, ok, "server produced no stdout output")
		var msg struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      int             `json:"id"`
			Result  json.RawMessage `json:"result"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &msg), "stdout line is not JSON: %q", line)
		require.Equal(t, "2.0", msg.JSONRPC)
		require.Equal(t, 1, msg.ID)
		require.NotEmpty(t, msg.Result)
	case <-ctx.Done():
		t.Fatal("timeout waiting for server response")
	}
}
