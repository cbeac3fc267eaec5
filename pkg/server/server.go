// Package server exposes the upgrade pipeline over HTTP: documents are
// uploaded as multipart form files and the upgraded set comes back as one
// ZIP archive.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"projup/pkg/batch"
	"projup/pkg/core"
)

const (
	formField         = "files"
	maxMemory         = 32 << 20
	defaultMaxUpload  = 512 << 20
	shutdownTimeout   = 10 * time.Second
	headerSuccess     = "X-Success-Count"
	headerRunID       = "X-Run-Id"
	headerLifetime    = "X-Lifetime-Total"
	contentTypeHeader = "Content-Type"
)

type Config struct {
	Addr           string
	ArchivePrefix  string
	MaxUploadBytes int64
}

// Service runs one batch per upload request. Runs are serialised so the
// lifetime counter sees a single writer.
type Service struct {
	cfg    Config
	deps   batch.Deps
	logger *slog.Logger

	runMu sync.Mutex
}

// New returns a service. deps.Observer is ignored.
func New(cfg Config, deps batch.Deps) *Service {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = batch.DefaultArchivePrefix
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	deps.Observer = nil
	deps.Logger = logger
	return &Service{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With(slog.String("component", "server")),
	}
}

// Handler returns the HTTP routes of the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/upgrade", s.handleUpgrade)
	mux.HandleFunc("/v1/stats", s.handleStats)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Run serves until doneCtx is cancelled.
func (s *Service) Run(doneCtx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting upgrade service", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	case <-doneCtx.Done():
	}

	s.logger.Info("Shutting down upgrade service")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

type itemReport struct {
	Name            string `json:"name"`
	Status          string `json:"status"`
	DetectedVersion string `json:"detectedVersion,omitempty"`
	Error           string `json:"error,omitempty"`
}

type upgradeFailure struct {
	RunID  string       `json:"runId"`
	Target string       `json:"target"`
	Error  string       `json:"error"`
	Items  []itemReport `json:"items"`
}

func (s *Service) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST method is allowed", http.StatusMethodNotAllowed)
		return
	}

	target := r.URL.Query().Get("target")
	if err := batch.ValidateTarget(target); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[formField]
	if len(headers) == 0 {
		http.Error(w, "no files in form field "+strconv.Quote(formField), http.StatusBadRequest)
		return
	}

	b := batch.New(s.deps)
	for _, fh := range headers {
		name := uploadName(fh.Filename)
		if name == "" {
			http.Error(w, "uploaded file without a name", http.StatusBadRequest)
			return
		}
		data, err := readPart(fh)
		if err != nil {
			http.Error(w, fmt.Sprintf("read %s: %v", fh.Filename, err), http.StatusBadRequest)
			return
		}
		b.Add(batch.InputFile{Name: name, Data: data})
	}

	s.runMu.Lock()
	res, err := b.Run(r.Context(), target)
	s.runMu.Unlock()
	if err != nil {
		s.logger.Warn("Run finished with error", "run", res.RunID, "error", err)
	}

	if res.SuccessCount == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, upgradeFailure{
			RunID:  res.RunID,
			Target: target,
			Error:  "no document could be upgraded",
			Items:  reports(b.Items()),
		})
		return
	}

	archive, err := core.BuildArchive(batch.ZipEntries(res.Outputs))
	if err != nil {
		s.logger.Error("Failed to build archive", "run", res.RunID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	name := batch.ArchiveName(s.cfg.ArchivePrefix, target)
	w.Header().Set(contentTypeHeader, core.ZipContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.Header().Set(headerSuccess, strconv.Itoa(res.SuccessCount))
	w.Header().Set(headerRunID, res.RunID)
	if res.LifetimeTotal > 0 {
		w.Header().Set(headerLifetime, strconv.Itoa(res.LifetimeTotal))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET method is allowed", http.StatusMethodNotAllowed)
		return
	}
	total := 0
	if s.deps.Counter != nil {
		var err error
		total, err = s.deps.Counter.Read(r.Context())
		if err != nil {
			s.logger.Error("Failed to read lifetime total", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"lifetimeUpgrades": total})
}

// uploadName reduces a client supplied file name to its last element,
// accepting both slash and backslash separators. It returns "" when
// nothing usable is left.
func uploadName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	switch name {
	case ".", "..", "/":
		return ""
	}
	return strings.TrimSpace(name)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func reports(items []batch.Item) []itemReport {
	out := make([]itemReport, len(items))
	for i, it := range items {
		out[i] = itemReport{
			Name:            it.Name(),
			Status:          string(it.Status),
			DetectedVersion: it.DetectedVersion,
			Error:           it.ErrorDetail,
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(contentTypeHeader, "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
