package verify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/ksuid"
	"github.com/sourcegraph/jsonrpc2"
	jsonrpc2ws "github.com/sourcegraph/jsonrpc2/websocket"

	"bmbc/internal/prop"
)

// SolverClient is the narrow interface the gate calls (spec.md §1: "SMT
// solver integration ... given a set of propositions, reports
// Verified | Failed(reason, counterexample) per function"). The solver's
// own reasoning is out of scope; only the transport used to reach it is
// specified here.
type SolverClient interface {
	// Available reports whether the solver can be reached at all.
	Available(ctx context.Context) bool
	// Check asks the solver whether obligations hold for function fn.
	Check(ctx context.Context, fn string, obligations []prop.Proposition) (Outcome, error)
}

// checkParams/checkResult are the JSON-RPC 2.0 request/response bodies
// exchanged with the solver, correlated with a ksuid so that a solver
// log or a persisted trace can line a response back up to the request
// that produced it even across a restarted connection.
type checkParams struct {
	CorrelationID string   `json:"correlation_id"`
	Function      string   `json:"function"`
	Obligations   []string `json:"obligations"`
}

type checkResult struct {
	Verified       bool   `json:"verified"`
	Reason         string `json:"reason"`
	Counterexample string `json:"counterexample"`
}

// RPCSolverClient speaks JSON-RPC 2.0 to an external solver process over
// one of two transports (SPEC_FULL.md §4.1 expansion): a subprocess pipe
// by default, or a WebSocket when SolverEndpoint names a URL.
type RPCSolverClient struct {
	conn   *jsonrpc2.Conn
	cmd    *exec.Cmd
	closer io.Closer
}

// DialStdio launches solverPath as a subprocess and speaks JSON-RPC 2.0
// over its stdin/stdout.
func DialStdio(ctx context.Context, solverPath string, args ...string) (*RPCSolverClient, error) {
	if solverPath == "" {
		return nil, fmt.Errorf("solver path not configured")
	}
	cmd := exec.CommandContext(ctx, solverPath, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	rwc := &pipeReadWriteCloser{ReadCloser: stdout, WriteCloser: stdin}
	stream := jsonrpc2.NewPlainObjectStream(rwc)
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(noopHandler))
	return &RPCSolverClient{conn: conn, cmd: cmd, closer: rwc}, nil
}

// DialWebSocket connects to a solver exposed as a shared WebSocket
// service at endpoint.
func DialWebSocket(ctx context.Context, endpoint string) (*RPCSolverClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	wsConn, _, err := dialer.DialContext(ctx, endpoint, http.Header{})
	if err != nil {
		return nil, err
	}
	stream := jsonrpc2ws.NewObjectStream(wsConn)
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(noopHandler))
	return &RPCSolverClient{conn: conn}, nil
}

func noopHandler(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	return nil, nil
}

// Available reports whether the underlying connection is still open.
func (c *RPCSolverClient) Available(ctx context.Context) bool {
	return c != nil && c.conn != nil && !c.conn.Closed()
}

// Check sends one "solve/check" request per function and interprets the
// reply into the gate's three-way Outcome.
func (c *RPCSolverClient) Check(ctx context.Context, fn string, obligations []prop.Proposition) (Outcome, error) {
	obls := make([]string, len(obligations))
	for i, o := range obligations {
		obls[i] = o.String()
	}
	params := checkParams{CorrelationID: ksuid.New().String(), Function: fn, Obligations: obls}

	var result checkResult
	if err := c.conn.Call(ctx, "solve/check", params, &result); err != nil {
		return Outcome{}, err
	}
	if result.Verified {
		return Outcome{Kind: Verified}, nil
	}
	return Outcome{Kind: Failed, Reason: result.Reason, Counterexample: result.Counterexample}, nil
}

// Close tears down the connection and, for a stdio transport, the
// solver subprocess.
func (c *RPCSolverClient) Close() error {
	if c == nil {
		return nil
	}
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	if c.closer != nil {
		_ = c.closer.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	return err
}

// pipeReadWriteCloser adapts an exec.Cmd's separate stdin/stdout pipes
// into the single io.ReadWriteCloser jsonrpc2's plain object stream
// wants.
type pipeReadWriteCloser struct {
	io.ReadCloser
	io.WriteCloser
}

func (p *pipeReadWriteCloser) Close() error {
	werr := p.WriteCloser.Close()
	rerr := p.ReadCloser.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
