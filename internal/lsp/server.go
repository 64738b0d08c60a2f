package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gamscheck/internal/check"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// Checker starts compiler checks for editor buffers. *check.Manager implements it.
type Checker interface {
	Enabled(path string) bool
	Check(ctx context.Context, buf check.Buffer, fn check.ReportFunc) (*check.Session, error)
	Forget(path string)
}

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Debounce       time.Duration
	Checker        Checker
	MaxDiagnostics int
	Version        string
	// Logf receives one-line notices; stderr with an "lsp: " prefix when nil.
	Logf func(format string, args ...any)
}

const (
	defaultDebounce       = 300 * time.Millisecond
	defaultMaxDiagnostics = 100
)

type document struct {
	text    string
	version int
	seq     uint64 // bumped on every edit, a pending timer fires only for the latest
	timer   *time.Timer
}

func (d *document) stop() {
	if d != nil && d.timer != nil {
		d.timer.Stop()
	}
}

// Server is a diagnostics-only language server: it tracks open documents and
// publishes compiler reports for them.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex
	logFn  func(format string, args ...any)

	checker Checker
	version string

	mu                sync.Mutex // guards everything below
	docs              map[string]*document
	published         map[string]struct{}
	shutdownRequested bool
	debounce          time.Duration
	maxDiagnostics    int
	traceLSP          bool
	baseCtx           context.Context
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	s := &Server{
		in:             bufio.NewReader(in),
		out:            bufio.NewWriter(out),
		logFn:          opts.Logf,
		checker:        opts.Checker,
		version:        opts.Version,
		docs:           make(map[string]*document),
		published:      make(map[string]struct{}),
		debounce:       opts.Debounce,
		maxDiagnostics: opts.MaxDiagnostics,
		baseCtx:        context.Background(),
	}
	if s.debounce <= 0 {
		s.debounce = defaultDebounce
	}
	if s.maxDiagnostics <= 0 {
		s.maxDiagnostics = defaultMaxDiagnostics
	}
	return s
}

// Run serves LSP requests until exit or EOF. Checks started by the server
// use ctx, so cancelling it stops running compilers.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	defer s.stopTimers()
	for {
		payload, err := readMessage(s.in)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("failed to parse message: %v", err)
			continue
		}
		if msg.Method == "" {
			// ответы клиента на наши запросы не ждём
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

type handlerFunc func(*Server, *rpcMessage) error

var handlers = map[string]handlerFunc{
	"initialize":                       (*Server).handleInitialize,
	"initialized":                      func(*Server, *rpcMessage) error { return nil },
	"shutdown":                         (*Server).handleShutdown,
	"exit":                             (*Server).handleExit,
	"workspace/didChangeConfiguration": (*Server).handleDidChangeConfiguration,
	"textDocument/didOpen":             (*Server).handleDidOpen,
	"textDocument/didChange":           (*Server).handleDidChange,
	"textDocument/didSave":             (*Server).handleDidSave,
	"textDocument/didClose":            (*Server).handleDidClose,
}

// handleMessage dispatches one message. A returned error ends Run.
func (s *Server) handleMessage(msg *rpcMessage) error {
	if h, ok := handlers[msg.Method]; ok {
		return h(s, msg)
	}
	if len(msg.ID) > 0 {
		return s.sendError(msg.ID, codeMethodNotFound, "method not found: "+msg.Method)
	}
	return nil
}

func decodeParams[T any](msg *rpcMessage) (T, error) {
	var params T
	if len(msg.Params) == 0 {
		return params, nil
	}
	err := json.Unmarshal(msg.Params, &params)
	return params, err
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	params, err := decodeParams[initializeParams](msg)
	if err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	if root := workspaceRoot(params); root != "" {
		s.logf("workspace %s", root)
	}
	s.applySettings(params.InitializationOptions)

	return s.sendResponse(msg.ID, initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2, // incremental
				Save:      saveOptions{IncludeText: true},
			},
		},
		ServerInfo: &serverInfo{Name: "gamscheck", Version: s.version},
	})
}

func workspaceRoot(p initializeParams) string {
	switch {
	case p.RootURI != "":
		return uriToPath(p.RootURI)
	case p.RootPath != "":
		return p.RootPath
	case len(p.WorkspaceFolders) > 0:
		return uriToPath(p.WorkspaceFolders[0].URI)
	}
	return ""
}

// handleShutdown cancels every pending and running check and clears what
// was published.
func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	uris := make([]string, 0, len(s.docs))
	for uri, doc := range s.docs {
		doc.stop()
		uris = append(uris, uri)
	}
	s.mu.Unlock()
	s.forget(uris...)
	s.clearPublishedDiagnostics()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleExit(*rpcMessage) error {
	if s.isShutdown() {
		return ErrExit
	}
	return ErrExitWithoutShutdown
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	params, err := decodeParams[didOpenTextDocumentParams](msg)
	if err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	s.docs[uri].stop()
	s.docs[uri] = &document{text: params.TextDocument.Text, version: params.TextDocument.Version}
	s.mu.Unlock()
	s.scheduleCheck(uri, 0)
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	params, err := decodeParams[didChangeTextDocumentParams](msg)
	if err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	var delay time.Duration
	known := s.updateDocument(uri, func(doc *document) {
		doc.text = applyChanges(doc.text, params.ContentChanges)
		doc.version = params.TextDocument.Version
		delay = s.debounce
		if s.traceLSP {
			s.logf("didChange: uri=%s version=%d", uri, doc.version)
		}
	})
	if known {
		s.scheduleCheck(uri, delay)
	}
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	params, err := decodeParams[didSaveTextDocumentParams](msg)
	if err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	known := s.updateDocument(uri, func(doc *document) {
		if params.Text != nil {
			doc.text = *params.Text
		}
	})
	if known {
		s.scheduleCheck(uri, 0)
	}
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	params, err := decodeParams[didCloseTextDocumentParams](msg)
	if err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	s.docs[uri].stop()
	delete(s.docs, uri)
	_, hadDiagnostics := s.published[uri]
	delete(s.published, uri)
	s.mu.Unlock()

	s.forget(uri)
	if hadDiagnostics {
		if err := s.sendPublish(uri, nil, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
	return nil
}

// updateDocument runs fn on an open document under the lock and reports
// whether the document was open.
func (s *Server) updateDocument(uri string, fn func(*document)) bool {
	if uri == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if ok {
		fn(doc)
	}
	return ok
}

func (s *Server) forget(uris ...string) {
	if s.checker == nil {
		return
	}
	for _, uri := range uris {
		s.checker.Forget(uriToPath(uri))
	}
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

type errorResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Error   rpcError        `json:"error"`
}

// notification has no id and no result member.
type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	return s.send(response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	return s.send(errorResponse{JSONRPC: "2.0", ID: id, Error: rpcError{Code: code, Message: message}})
}

func (s *Server) sendPublish(uri string, version *int, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	return s.send(notification{
		JSONRPC: "2.0",
		Method:  "textDocument/publishDiagnostics",
		Params:  publishDiagnosticsParams{URI: uri, Version: version, Diagnostics: list},
	})
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdownRequested
}

func (s *Server) stopTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		doc.stop()
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.logFn != nil {
		s.logFn(format, args...)
		return
	}
	fmt.Fprintf(os.Stderr, "lsp: "+format+"\n", args...)
}
