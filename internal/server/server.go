// Package server exposes the generation pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/varnalabs/apitestgen/internal/diag"
	"github.com/varnalabs/apitestgen/internal/engineerr"
	"github.com/varnalabs/apitestgen/internal/pipeline"
	"github.com/varnalabs/apitestgen/internal/spec"
)

// Routes and request fields.
const (
	ProjectsPath = "/api/v1/projects"
	HealthPath   = "/healthz"
	FileField    = "contractFile"
	TraceHeader  = "X-Trace-Id"
)

// DefaultMaxUploadBytes caps the uploaded document.
const DefaultMaxUploadBytes = spec.DefaultMaxSourceBytes

// multipartOverhead is allowed on top of the file limit for boundaries and headers.
const multipartOverhead = 1 << 20

var allowedExtensions = []string{".yaml", ".yml", ".json"}

// Error codes carried in ErrorResponse.Code.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeInvalidFile     = "INVALID_FILE"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeParse           = "PARSE_ERROR"
	CodeTemplate        = "TEMPLATE_ERROR"
	CodeGeneration      = "GENERATION_ERROR"
	CodeArchive         = "ARCHIVE_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	TraceID   string `json:"traceId"`
	Timestamp string `json:"timestamp"`
}

// Runner is the pipeline the server drives.
type Runner interface {
	Run(ctx context.Context, raw []byte, correlationID string) (*pipeline.Result, error)
}

// Server handles generation requests. It holds no per-request state.
type Server struct {
	runner         Runner
	log            *diag.Logger
	maxUploadBytes int64
	now            func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes sets the largest accepted document.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithClock overrides the timestamp source for error bodies.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// New returns a Server running requests through r.
func New(r Runner, log *diag.Logger, opts ...Option) *Server {
	if log == nil {
		log = diag.Discard()
	}
	s := &Server{runner: r, log: log, maxUploadBytes: DefaultMaxUploadBytes, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with CORS and panic recovery applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+ProjectsPath, s.handleGenerate)
	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	return withCORS(s.recoverer(mux))
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, log *diag.Logger) error {
	if log == nil {
		log = diag.Discard()
	}
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Infof("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.NewString()
	log := s.log.With(traceID)
	w.Header().Set(TraceHeader, traceID)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile(FileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warnf("upload rejected: request exceeds %d bytes", tooLarge.Limit)
			s.writeError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, s.tooLargeMessage(), traceID)
			return
		}
		log.Warnf("invalid multipart request: %v", err)
		s.writeError(w, http.StatusBadRequest, CodeInvalidRequest,
			"Invalid multipart request. Ensure you are sending a file with the field name '"+FileField+"'.", traceID)
		return
	}
	defer file.Close()
	log.Infof("received generation request | uri=%s | filename=%s | size=%d bytes", r.URL.Path, header.Filename, header.Size)

	if header.Size == 0 {
		log.Warnf("validation failed: uploaded file is empty")
		s.writeError(w, http.StatusBadRequest, CodeInvalidFile, "Uploaded file is empty. Please provide a valid OpenAPI spec.", traceID)
		return
	}
	if !hasAllowedExtension(header.Filename) {
		log.Warnf("validation failed: unsupported file type | filename=%s", header.Filename)
		s.writeError(w, http.StatusBadRequest, CodeInvalidFileType,
			"Unsupported file type. Please upload a .yaml, .yml, or .json OpenAPI specification.", traceID)
		return
	}
	if header.Size > s.maxUploadBytes {
		log.Warnf("validation failed: file too large | size=%d bytes | max=%d bytes", header.Size, s.maxUploadBytes)
		s.writeError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, s.tooLargeMessage(), traceID)
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		log.Errorf("read upload: %v", err)
		s.writeError(w, http.StatusBadRequest, CodeInvalidFile, "Uploaded file could not be read.", traceID)
		return
	}

	res, err := s.runner.Run(r.Context(), raw, traceID)
	if err != nil {
		status, code, msg := classify(err)
		if status >= http.StatusInternalServerError {
			log.Errorf("generation failed (%s): %v", code, err)
		} else {
			log.Warnf("generation rejected (%s): %v", code, err)
		}
		s.writeError(w, status, code, msg, traceID)
		return
	}

	log.Infof("generation complete | zip size=%d bytes", len(res.Archive))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+DownloadName(header.Filename)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Archive)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Archive)
}

// classify maps a pipeline error to its HTTP status, code and caller-safe message.
func classify(err error) (int, string, string) {
	var ee *engineerr.Error
	if !errors.As(err, &ee) {
		return http.StatusInternalServerError, CodeInternal, "An unexpected error occurred."
	}
	switch ee.Kind {
	case engineerr.ParseFailure:
		return http.StatusUnprocessableEntity, CodeParse, ee.SafeMessage()
	case engineerr.TemplateFailure:
		return http.StatusInternalServerError, CodeTemplate, ee.SafeMessage()
	case engineerr.GenerationFailure:
		return http.StatusInternalServerError, CodeGeneration, ee.SafeMessage()
	case engineerr.ArchiveFailure:
		return http.StatusInternalServerError, CodeArchive, ee.SafeMessage()
	default:
		return http.StatusInternalServerError, CodeInternal, ee.SafeMessage()
	}
}

func (s *Server) tooLargeMessage() string {
	return fmt.Sprintf("File exceeds maximum allowed size of %s.", humanBytes(s.maxUploadBytes))
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, msg, traceID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Code:      code,
		Message:   msg,
		TraceID:   traceID,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				traceID := w.Header().Get(TraceHeader)
				if traceID == "" {
					traceID = uuid.NewString()
				}
				s.log.With(traceID).Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				s.writeError(w, http.StatusInternalServerError, CodeInternal,
					"An unexpected error occurred. Use the traceId to locate this error in logs.", traceID)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := strings.TrimSpace(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, "+TraceHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hasAllowedExtension(filename string) bool {
	lower := strings.ToLower(strings.TrimSpace(filename))
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// DownloadName is the attachment name for an upload called filename.
func DownloadName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	base = strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, base)
	if base == "" || base == "." || base == "/" {
		base = "generated-project"
	}
	return base + "-automation-tests.zip"
}

func humanBytes(n int64) string {
	const mb = 1 << 20
	if n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
