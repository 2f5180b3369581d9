// Package lspglue is the outer JSON-RPC transport (SPEC_FULL.md §4.9, §6):
// Content-Length framed request/response/notification frames over stdio, a
// method-name dispatch table, wire-position <-> core-position conversion,
// and the panic-to-error-response boundary the core itself never needs to
// know about. Nothing here participates in SPEC_FULL.md §8's invariants —
// it is thin glue over internal/host and internal/ide.
//
// Grounded on original_source/crates/nil/src/state.rs's read-dispatch-write
// loop and cmd/agent.go's JSON sidecar-file read/write pattern, adapted from
// a file on disk to framed stdio.
package lspglue

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/attrlang/attrls/internal/host"
	"github.com/attrlang/attrls/internal/ide"
)

// JSON-RPC 2.0's standard error codes (https://www.jsonrpc.org/specification).
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	// codeRequestCancelled is the LSP extension code for a cancelled request.
	codeRequestCancelled = -32800
)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type responseEnvelope struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type notificationEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// Server reads JSON-RPC frames from in, dispatches them against a Host, and
// writes responses/notifications to out. A single goroutine is expected to
// call Run — it is both the database's single-writer thread (SPEC_FULL.md
// §5) and the request dispatcher, so no locking is needed around Host calls
// themselves; Server.mu only guards interleaving of the outbound byte stream
// (a response and an unrelated diagnostics-publish notification must never
// interleave their frames).
type Server struct {
	host *host.Host

	in  *bufio.Reader
	out io.Writer
	mu  sync.Mutex

	cfg Config

	panicHookOnce sync.Once
}

// NewServer builds a Server over h, reading frames from in and writing them
// to out (typically os.Stdin/os.Stdout).
func NewServer(h *host.Host, in io.Reader, out io.Writer) *Server {
	return &Server{
		host: h,
		in:   bufio.NewReader(in),
		out:  out,
		cfg:  Config{MaxDiagnostics: ide.DefaultMaxDiagnostics},
	}
}

// readMessage reads one Content-Length-framed message body from r.
func readMessage(r *bufio.Reader) ([]byte, error) {
	var length int
	haveLength := false
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("lspglue: malformed Content-Length: %w", err)
			}
			length = n
			haveLength = true
		}
	}
	if !haveLength {
		return nil, fmt.Errorf("lspglue: message frame missing Content-Length")
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// writeMessage frames and writes body to s.out, serialized against any
// concurrent write by s.mu.
func (s *Server) writeMessage(body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var header bytes.Buffer
	fmt.Fprintf(&header, "Content-Length: %d\r\n\r\n", len(body))
	if _, err := s.out.Write(header.Bytes()); err != nil {
		return err
	}
	_, err := s.out.Write(body)
	return err
}

func (s *Server) writeEnvelope(v any) {
	body, err := oj.Marshal(v)
	if err != nil {
		log.Printf("lspglue: failed to marshal response: %v", err)
		return
	}
	if err := s.writeMessage(body); err != nil {
		log.Printf("lspglue: failed to write response: %v", err)
	}
}

func (s *Server) writeResult(id any, result any) {
	s.writeEnvelope(responseEnvelope{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) writeError(id any, code int, message string) {
	s.writeEnvelope(responseEnvelope{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}

// Notify sends a server-to-client notification, e.g. publishDiagnostics.
func (s *Server) Notify(method string, params any) {
	s.writeEnvelope(notificationEnvelope{JSONRPC: "2.0", Method: method, Params: params})
}

// Run drives the read-dispatch-write loop until the input channel closes or
// the Host reaches StateTerminated. It returns nil on a clean shutdown/exit
// and a non-nil error if the input channel closed before shutdown was
// requested (SPEC_FULL.md §6's exit-code contract is enforced by the caller
// in cmd/attrls, which maps a non-nil Run error to a non-zero exit code).
func (s *Server) Run() error {
	for {
		body, err := readMessage(s.in)
		if err != nil {
			if err == io.EOF {
				if s.host.State() == host.StateTerminated {
					return nil
				}
				return fmt.Errorf("lspglue: input closed before shutdown: %w", err)
			}
			return err
		}
		s.handleMessage(body)
		if s.host.State() == host.StateTerminated {
			return nil
		}
	}
}

// handleMessage decodes one frame generically (mirroring internal/ingest's
// JsonWalker: decode to an untyped any, then pluck fields with jp selectors)
// and dispatches it by method name. A panic anywhere in the handler is
// recovered here and turned into an internal-error response — the server
// keeps serving subsequent requests. The first panic's location is also
// logged once via the process-wide hook installed by panicHookOnce
// (SPEC_FULL.md §9's "global state" note); every panic, first or not, still
// gets its own per-request recovery.
func (s *Server) handleMessage(body []byte) {
	decoded, err := oj.Unmarshal(body)
	if err != nil {
		s.writeError(nil, codeParseError, err.Error())
		return
	}
	msg, ok := decoded.(map[string]any)
	if !ok {
		s.writeError(nil, codeInvalidRequest, "message is not a JSON object")
		return
	}

	method, _ := msg["method"].(string)
	id, hasID := msg["id"]
	params := msg["params"]

	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			s.panicHookOnce.Do(func() {
				log.Printf("lspglue: panic recovered in %q (subsequent panics won't be logged again):\n%v\n%s", method, r, stack)
			})
			if hasID {
				s.writeError(id, codeInternalError, fmt.Sprintf("internal error in %s: %v", method, r))
			}
		}
	}()

	result, rpcErr := s.dispatch(method, params)
	if !hasID {
		// A notification: no response is ever sent, success or failure: log
		// the failure instead since there is nowhere else for it to go.
		if rpcErr != nil {
			log.Printf("lspglue: notification %q failed: %s", method, rpcErr.Message)
		}
		return
	}
	if rpcErr != nil {
		s.writeError(id, rpcErr.Code, rpcErr.Message)
		return
	}
	s.writeResult(id, result)
}

// jpString extracts the string at selector within root, using
// github.com/ohler55/ojg/jp the same way internal/ingest's JsonWalker
// queries a decoded document: parse a path expression, Get it, inspect the
// first match.
func jpString(root any, selector string) (string, bool) {
	expr, err := jp.ParseString(selector)
	if err != nil {
		return "", false
	}
	res := expr.Get(root)
	if len(res) == 0 {
		return "", false
	}
	s, ok := res[0].(string)
	return s, ok
}

func jpFloat(root any, selector string) (float64, bool) {
	expr, err := jp.ParseString(selector)
	if err != nil {
		return 0, false
	}
	res := expr.Get(root)
	if len(res) == 0 {
		return 0, false
	}
	f, ok := res[0].(float64)
	return f, ok
}

func jpAny(root any, selector string) (any, bool) {
	expr, err := jp.ParseString(selector)
	if err != nil {
		return nil, false
	}
	res := expr.Get(root)
	if len(res) == 0 {
		return nil, false
	}
	return res[0], true
}

func paramsPosition(params any) (Position, bool) {
	line, ok := jpFloat(params, "position.line")
	if !ok {
		return Position{}, false
	}
	char, ok := jpFloat(params, "position.character")
	if !ok {
		return Position{}, false
	}
	return Position{Line: uint32(line), Character: uint32(char)}, true
}

func paramsURI(params any) (string, bool) {
	return jpString(params, "textDocument.uri")
}
