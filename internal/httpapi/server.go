package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/MimeLyc/media-subtitle-translator/internal/artifact"
	"github.com/MimeLyc/media-subtitle-translator/internal/persistence"
	"github.com/MimeLyc/media-subtitle-translator/internal/pipeline"
)

const defaultMaxUploadBytes = 32 << 20

type processor interface {
	AcceptAll(ctx context.Context, jobs []pipeline.Job, store pipeline.RecordStore) ([]pipeline.FileResult, error)
}

type sessionOpener interface {
	Session(ctx context.Context) (*persistence.Session, error)
}

type Server struct {
	proc      processor
	store     sessionOpener
	artifacts *artifact.Store

	uiEnabled   bool
	uiStaticDir string
	// in-memory part of a multipart upload; larger files spill to disk
	maxMemory int64

	router *mux.Router
	server *http.Server
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

func WithMaxUploadMemory(bytes int64) Option {
	return func(s *Server) {
		if bytes > 0 {
			s.maxMemory = bytes
		}
	}
}

func NewServer(proc processor, store sessionOpener, artifacts *artifact.Store, opts ...Option) *Server {
	s := &Server{
		proc:      proc,
		store:     store,
		artifacts: artifacts,
		maxMemory: defaultMaxUploadBytes,
		router:    mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/process_video", s.handleProcessVideo).Methods(http.MethodPost)
	s.router.HandleFunc("/translations", s.handleListAll).Methods(http.MethodGet)
	s.router.HandleFunc("/translations/{video_name}", s.handleListByVideo).Methods(http.MethodGet)
	s.router.HandleFunc("/download_srt/{video_name}/{language}", s.handleDownload).Methods(http.MethodGet)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.router.PathPrefix("/").HandlerFunc(s.handleStatic).Methods(http.MethodGet, http.MethodHead)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, filepath.FromSlash(rel))
	if info, err := os.Stat(filePath); err != nil || info.IsDir() {
		// unknown asset paths fall back to the single page app
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}
