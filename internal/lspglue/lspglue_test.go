package lspglue

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrlang/attrls/internal/host"
)

func frame(t *testing.T, v any) []byte {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Content-Length: %d\r\n\r\n", len(body))
	buf.Write(body)
	return buf.Bytes()
}

// readFrames decodes every Content-Length-framed message in buf.
func readFrames(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	r := bufio.NewReader(buf)
	var out []map[string]any
	for {
		body, err := readMessage(r)
		if err != nil {
			break
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(body, &m))
		out = append(out, m)
	}
	return out
}

func TestReadMessageFraming(t *testing.T) {
	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Content-Length: %d\r\n\r\n", len(body))
	buf.Write(body)

	r := bufio.NewReader(&buf)
	got, err := readMessage(r)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestServerInitializeDidOpenDefinition(t *testing.T) {
	h := host.New("file://")
	var out bytes.Buffer
	s := NewServer(h, nil, &out)

	s.handleMessage(frame(t, map[string]any{
		"jsonrpc": "2.0", "id": float64(1), "method": "initialize",
		"params": map[string]any{},
	}))

	s.handleMessage(frame(t, map[string]any{
		"jsonrpc": "2.0", "method": "initialized",
	}))

	src := "let x = 1; in x + x"
	s.handleMessage(frame(t, map[string]any{
		"jsonrpc": "2.0", "method": "textDocument/didOpen",
		"params": map[string]any{
			"textDocument": map[string]any{
				"uri": "file:///a.attrl", "text": src,
			},
		},
	}))

	s.handleMessage(frame(t, map[string]any{
		"jsonrpc": "2.0", "id": float64(2), "method": "textDocument/definition",
		"params": map[string]any{
			"textDocument": map[string]any{"uri": "file:///a.attrl"},
			"position":     map[string]any{"line": float64(0), "character": float64(14)},
		},
	}))

	frames := readFrames(t, &out)
	require.Len(t, frames, 3, "initialize response + publishDiagnostics + definition response")

	initResp := frames[0]
	assert.EqualValues(t, 1, initResp["id"])
	result, ok := initResp["result"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, result, "capabilities")

	defResp := frames[2]
	assert.EqualValues(t, 2, defResp["id"])
	locs, ok := defResp["result"].([]any)
	require.True(t, ok)
	require.Len(t, locs, 1)
	loc := locs[0].(map[string]any)
	assert.Equal(t, "file:///a.attrl", loc["uri"])
	rng := loc["range"].(map[string]any)
	start := rng["start"].(map[string]any)
	assert.EqualValues(t, 4, start["character"])
}

func TestServerRejectsMalformedFrame(t *testing.T) {
	h := host.New("file://")
	var out bytes.Buffer
	s := NewServer(h, nil, &out)

	s.handleMessage([]byte("not json"))

	frames := readFrames(t, &out)
	require.Len(t, frames, 1)
	errObj, ok := frames[0]["error"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, codeParseError, errObj["code"])
}

func TestServerNotificationNeverWritesAResponse(t *testing.T) {
	h := host.New("file://")
	var out bytes.Buffer
	s := NewServer(h, nil, &out)

	s.handleMessage(frame(t, map[string]any{
		"jsonrpc": "2.0", "method": "workspace/didChangeConfiguration",
		"params": map[string]any{"settings": map[string]any{"maxDiagnostics": float64(10)}},
	}))

	assert.Equal(t, 0, out.Len(), "a notification must never produce a response frame")
	assert.Equal(t, 10, s.cfg.MaxDiagnostics)
}
