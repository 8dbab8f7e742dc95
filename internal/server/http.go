package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ticket-wallet/constants"
	"github.com/joseph-ayodele/ticket-wallet/internal/common"
	"github.com/joseph-ayodele/ticket-wallet/internal/core"
)

// Converter is the part of core.Processor the API drives.
type Converter interface {
	ProcessFile(ctx context.Context, path string, opts core.ProcessOptions) (core.Outcome, error)
}

type HTTPConfig struct {
	MaxUploadBytes int64
	Timezone       string // default for requests without one
	Enrich         bool
	UploadDir      string // "" -> os.TempDir()
	ServiceName    string
}

type HTTPServer struct {
	conv    Converter
	limiter *RateLimiter
	cfg     HTTPConfig
	logger  *slog.Logger
}

func NewHTTPServer(conv Converter, limiter *RateLimiter, cfg HTTPConfig, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = constants.MaxUploadBytes
	}
	if cfg.Timezone == "" {
		cfg.Timezone = constants.DefaultTimezoneOffset
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ticket-wallet"
	}
	return &HTTPServer{conv: conv, limiter: limiter, cfg: cfg, logger: logger}
}

func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/process", s.handleProcess)
	return s.withRequestID(mux)
}

func (s *HTTPServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(common.WithRequestID(r.Context(), id)))
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": s.cfg.ServiceName})
}

type errorBody struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	ResetTime int64  `json:"reset_time,omitempty"`
}

func (s *HTTPServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := common.RequestIDFromContext(ctx)
	ip := clientIP(r)
	log := s.logger.With("req_id", reqID, "client", ip)

	if s.limiter != nil {
		if ok, reset := s.limiter.Allow(ip); !ok {
			log.Warn("http.process.rate_limited")
			wait := int64(time.Until(reset).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.FormatInt(max(wait, 1), 10))
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "Too many requests. Please try again later.", ResetTime: reset.Unix()})
			return
		}
	}

	// multipart overhead on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: tooLarge(s.cfg.MaxUploadBytes)})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Expected a multipart form upload"})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	email := strings.TrimSpace(r.FormValue("email"))
	category := strings.TrimSpace(r.FormValue("type"))
	tz := strings.TrimSpace(r.FormValue("timezone"))
	v := common.NewValidator().
		Field("email", email, common.Email, common.MaxLength(254)).
		Field("type", category, common.Category)
	if tz != "" {
		v.Field("timezone", tz, common.TimezoneOffset)
	} else {
		tz = s.cfg.Timezone
	}
	if v.HasErrors() {
		log.Warn("http.process.invalid", "error", v.ErrorMessage())
		writeJSON(w, http.StatusBadRequest, errorBody{Error: v.ErrorMessage()})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "No file provided"})
		return
	}
	defer file.Close()

	if !isPDFUpload(header) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Only PDF files are allowed"})
		return
	}
	if header.Size > s.cfg.MaxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: tooLarge(s.cfg.MaxUploadBytes)})
		return
	}
	if header.Size == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Empty file provided"})
		return
	}

	name := SanitizeFilename(header.Filename)
	log.Info("http.process.start", "file", name, "size", header.Size)

	path, cleanup, err := s.spool(file, name)
	if err != nil {
		log.Error("http.process.spool_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error. Please try again later."})
		return
	}
	defer cleanup()

	opts := core.ProcessOptions{Timezone: tz, Enrich: s.cfg.Enrich}
	if category != "" {
		opts.Category, _ = constants.Canonicalize(category)
	}
	out, err := s.conv.ProcessFile(ctx, path, opts)
	passes := out.Result.Passes
	if err != nil && len(passes) == 0 {
		log.Warn("http.process.failed", "file", name, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "Failed to process PDF. Please ensure it's a valid ticket PDF."})
		return
	}
	if err != nil {
		log.Warn("http.process.partial", "file", name, "error", err)
	}

	log.Info("http.process.ok", "file", name, "passes", len(passes), "enrichment", out.Result.Enrichment.String())
	if len(passes) == 1 {
		writeJSON(w, http.StatusOK, passes[0])
		return
	}
	writeJSON(w, http.StatusOK, passes)
}

// spool copies the upload to a temp file the renderer can open by path.
func (s *HTTPServer) spool(src multipart.File, name string) (string, func(), error) {
	dir := s.cfg.UploadDir
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, err
		}
	}
	f, err := os.CreateTemp(dir, "upload-*-"+name)
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("http.process.cleanup_failed", "path", f.Name(), "error", err)
		}
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}

var reUnsafeName = regexp.MustCompile(`[^\w\-.]`)

// SanitizeFilename keeps word characters, dashes and dots, forces a .pdf
// extension and caps the length at 100.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "upload.pdf"
	}
	safe := reUnsafeName.ReplaceAllString(name, "_")
	if !strings.HasSuffix(strings.ToLower(safe), ".pdf") {
		safe += ".pdf"
	}
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}

func isPDFUpload(h *multipart.FileHeader) bool {
	ct := h.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	if _, ok := constants.AllowedContentTypes[ct]; !ok {
		return false
	}
	ext := filepath.Ext(h.Filename)
	return ext == "" || constants.IsAllowedExt(ext)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func tooLarge(n int64) string {
	return fmt.Sprintf("File size exceeds %dMB limit", n>>20)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
