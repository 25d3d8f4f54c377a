package api

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"medstore/m/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxUploadBytes = 16 << 20

// RecordStore is the persistence capability the shell needs.
type RecordStore interface {
	Insert(ctx context.Context, name, location, category, expiryDate string) (domain.MedicineRecord, error)
	ListAll(ctx context.Context) ([]domain.MedicineRecord, error)
	ListExpiring(ctx context.Context, onOrBefore string) ([]domain.MedicineRecord, error)
	DeleteByName(ctx context.Context, name string) (int64, error)
	Restore(ctx context.Context, rec domain.MedicineRecord) (domain.MedicineRecord, error)
}

// Scanner recognises a medicine name on an uploaded label photo.
type Scanner interface {
	ScanImage(ctx context.Context, r io.Reader, filename string) (string, bool, error)
}

// Options carries the form choices and file locations of the shell.
type Options struct {
	Locations       []string
	Categories      []string
	ExportDir       string
	ExpiryAlertDays int
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	store   RecordStore
	scanner Scanner
	opts    Options
	pages   map[string]*template.Template
	now     func() time.Time
}

// New constructs a Handler. scanner may be nil, in which case label
// recognition is reported as unavailable.
func New(store RecordStore, scanner Scanner, opts Options) *Handler {
	if len(opts.Locations) == 0 {
		opts.Locations = domain.DefaultLocations
	}
	if len(opts.Categories) == 0 {
		opts.Categories = domain.DefaultCategories
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.ExpiryAlertDays <= 0 {
		opts.ExpiryAlertDays = 30
	}

	pages := make(map[string]*template.Template)
	for _, page := range []string{"store", "query", "takeout", "delete", "export", "import"} {
		pages[page] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html"))
	}
	return &Handler{store: store, scanner: scanner, opts: opts, pages: pages, now: time.Now}
}

// Router wires up the form pages and the JSON API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/store", http.StatusSeeOther)
	})

	r.Route("/store", func(r chi.Router) {
		r.Get("/", h.storeForm)
		r.Post("/", h.storeMedicine)
		r.Post("/scan", h.scanLabel)
	})
	r.Get("/query", h.queryMedicines)
	r.Route("/takeout", func(r chi.Router) {
		r.Get("/", h.takeOutForm)
		r.Post("/", h.takeOut)
	})
	r.Route("/delete", func(r chi.Router) {
		r.Get("/", h.deleteForm)
		r.Post("/", h.deleteMedicine)
	})
	r.Route("/export", func(r chi.Router) {
		r.Get("/", h.exportForm)
		r.Post("/", h.exportData)
		r.Get("/download", h.downloadExport)
	})
	r.Route("/import", func(r chi.Router) {
		r.Get("/", h.importForm)
		r.Post("/", h.importData)
	})

	r.Route("/api/medicines", func(r chi.Router) {
		r.Get("/", h.listMedicines)
		r.Get("/expiring", h.expiringMedicines)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Helpers

type notice struct {
	Kind string
	Text string
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) render(w http.ResponseWriter, status int, page string, data *view) {
	data.Active = page
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		zap.L().Error("render page", zap.String("page", page), zap.Error(err))
	}
}
