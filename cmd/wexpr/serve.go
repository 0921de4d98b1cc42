package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/caffeineduck/wexpr/ast"
	"github.com/caffeineduck/wexpr/compiler"
	"github.com/caffeineduck/wexpr/host"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// maxModuleSize bounds request bodies on /run.
const maxModuleSize = 1 << 20

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for compiling and running expressions",
		Long: `Start an HTTP server that compiles expressions and runs modules.

Endpoints:
  POST /compile   {"expr": "..."} or {"expressions": ["...", ...]}
                  returns base64 modules
  POST /run       raw module bytes; returns {"value", "output", "state"}
  POST /eval      {"expr": "..."}; compile and run in one step
  GET  /health    Health check`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().Duration("timeout", 30*time.Second, "Execution timeout per request")
	return cmd
}

type compileRequest struct {
	Expr        string   `json:"expr,omitempty"`
	Expressions []string `json:"expressions,omitempty"`
}

type compileResponse struct {
	Module  string   `json:"module,omitempty"`
	Modules []string `json:"modules,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type evalRequest struct {
	Expr string `json:"expr"`
}

type runResponse struct {
	Value      int32   `json:"value"`
	Output     []int32 `json:"output"`
	State      string  `json:"state"`
	DurationMs int64   `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	logger := newLogger(cmd)
	defer logger.Sync()

	h, err := newHost(cmd, logger)
	if err != nil {
		return err
	}
	defer h.Close()

	srv := &server{ev: newEvaluator(cmd, h, logger, timeout), logger: logger}

	addr := fmt.Sprintf(":%d", port)
	fmt.Fprintf(cmd.ErrOrStderr(), "wexpr server listening on %s\n", addr)
	return http.ListenAndServe(addr, srv.handler())
}

type server struct {
	ev     *evaluator
	logger *zap.Logger
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/compile", s.handleCompile)
	mux.HandleFunc("/run", s.handleRun)
	mux.HandleFunc("/eval", s.handleEval)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

func (s *server) handleCompile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	switch {
	case req.Expr != "" && len(req.Expressions) > 0:
		writeJSON(w, http.StatusBadRequest, compileResponse{Error: "expr and expressions are mutually exclusive"})
	case req.Expr != "":
		root, err := ast.Parse(req.Expr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, compileResponse{Error: err.Error()})
			return
		}
		mod, err := compiler.Compile(root, s.ev.compileOpts...)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, compileResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, compileResponse{Module: base64.StdEncoding.EncodeToString(mod.Bytes())})
	case len(req.Expressions) > 0:
		roots := make([]ast.Node, len(req.Expressions))
		for i, src := range req.Expressions {
			root, err := ast.Parse(src)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, compileResponse{Error: fmt.Sprintf("expression %d: %v", i, err)})
				return
			}
			roots[i] = root
		}
		mods, err := compiler.CompileAll(r.Context(), roots, s.ev.compileOpts...)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, compileResponse{Error: err.Error()})
			return
		}
		resp := compileResponse{Modules: make([]string, len(mods))}
		for i, mod := range mods {
			resp.Modules[i] = base64.StdEncoding.EncodeToString(mod.Bytes())
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		http.Error(w, "expr or expressions required", http.StatusBadRequest)
	}
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	bin, err := io.ReadAll(io.LimitReader(r.Body, maxModuleSize+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(bin) > maxModuleSize {
		http.Error(w, "module too large", http.StatusRequestEntityTooLarge)
		return
	}

	entry := r.URL.Query().Get("entry")
	if entry == "" {
		entry = "main"
	}

	start := time.Now()
	res, err := s.ev.run(r.Context(), bin, host.WithEntryPoint(entry))
	writeJSON(w, http.StatusOK, s.runResponse(res, err, time.Since(start)))
}

func (s *server) handleEval(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req evalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Expr == "" {
		http.Error(w, "expr required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := s.ev.eval(r.Context(), req.Expr)
	writeJSON(w, http.StatusOK, s.runResponse(res, err, time.Since(start)))
}

func (s *server) runResponse(res evalResult, err error, d time.Duration) runResponse {
	resp := runResponse{
		Value:      res.Value,
		Output:     res.Output,
		State:      res.State.String(),
		DurationMs: d.Milliseconds(),
	}
	if resp.Output == nil {
		resp.Output = []int32{}
	}
	if err != nil {
		resp.Error = err.Error()
		s.logger.Debug("request failed", zap.String("state", resp.State), zap.Error(err))
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
