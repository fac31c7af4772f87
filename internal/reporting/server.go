package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"terminal-coder/internal/logging"
)

// Server is the loopback Reporting Channel a worker's assistant tooling
// talks to over HTTP. It never holds a Store open between requests - see
// openRepo - so the engine and a worker can both be touching the database
// concurrently without the server becoming the bottleneck or going stale
// across a project reset.
type Server struct {
	addr   string
	dbPath string
	srv    *http.Server
}

// NewServer builds a Reporting Channel bound to addr (normally a loopback
// address from Config.Reporting.ListenAddr) and the project's database file.
func NewServer(addr, dbPath string) *Server {
	return &Server{addr: addr, dbPath: dbPath}
}

type handlerFunc func(json.RawMessage) (interface{}, error)

func (s *Server) methods() map[string]handlerFunc {
	return map[string]handlerFunc{
		"tc_report_progress":     s.reportProgress,
		"tc_report_completion":   s.reportCompletion,
		"tc_report_failure":      s.reportFailure,
		"tc_report_review":       s.reportReview,
		"tc_get_context":         s.getContext,
		"tc_request_human_input": s.requestHumanInput,
	}
}

// Start begins serving in the background. Call Shutdown to stop it.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRPC)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.srv = &http.Server{Addr: s.addr, Handler: mux}

	ln, err := newListener(s.addr)
	if err != nil {
		return err
	}

	go func() {
		logging.Reporting("reporting channel listening on %s", s.addr)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Get(logging.CategoryReporting).Error("reporting channel stopped: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server, waiting up to 5s for in-flight
// requests (each opens and closes its own Store handle quickly).
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, errResult(0, codeInvalidParams, "invalid request body: "+err.Error()))
		return
	}

	handler, ok := s.methods()[req.Method]
	if !ok {
		writeJSON(w, errResult(req.ID, codeInvalidParams, "unknown method: "+req.Method))
		return
	}

	result, err := handler(req.Params)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			writeJSON(w, okResult(req.ID, map[string]interface{}{"error": toolErr.Error()}))
			return
		}
		logging.Get(logging.CategoryReporting).Error("reporting channel handler %s failed: %v", req.Method, err)
		writeJSON(w, errResult(req.ID, codeInternal, "internal error: "+err.Error()))
		return
	}

	writeJSON(w, okResult(req.ID, result))
}

func writeJSON(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
