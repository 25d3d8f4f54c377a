package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"medstore/m/internal/transfer"
)

var exporters = map[string]func(ctx context.Context, src transfer.Source, path string) (int, error){
	"csv":  transfer.ExportCSV,
	"xlsx": transfer.ExportXLSX,
}

func (h *Handler) exportPath(format string) string {
	return filepath.Join(h.opts.ExportDir, "medicine_backup."+format)
}

func (h *Handler) exportForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "export", h.newView())
}

func (h *Handler) exportData(w http.ResponseWriter, r *http.Request) {
	v := h.newView()
	format := r.FormValue("format")
	if format == "" {
		format = "csv"
	}
	export, ok := exporters[format]
	if !ok {
		v.add("warning", "Unknown export format %q.", format)
		h.render(w, http.StatusBadRequest, "export", v)
		return
	}

	path := h.exportPath(format)
	n, err := export(r.Context(), h.store, path)
	if err != nil {
		zap.L().Error("export medicines", zap.String("path", path), zap.Error(err))
		v.add("error", "Export failed: %v", err)
		h.render(w, http.StatusInternalServerError, "export", v)
		return
	}
	v.ExportFormat = format
	v.add("success", "Data has been successfully exported to %s (%d records).", filepath.Base(path), n)
	h.render(w, http.StatusOK, "export", v)
}

func (h *Handler) downloadExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if _, ok := exporters[format]; !ok {
		http.Error(w, "unknown export format", http.StatusBadRequest)
		return
	}
	path := h.exportPath(format)
	if _, err := os.Stat(path); err != nil {
		http.Error(w, "no export available, export the data first", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}

func (h *Handler) importForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "import", h.newView())
}

func (h *Handler) importData(w http.ResponseWriter, r *http.Request) {
	v := h.newView()
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		v.add("warning", "Please choose a CSV file to upload.")
		h.render(w, http.StatusBadRequest, "import", v)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		v.add("warning", "Please choose a CSV file to upload.")
		h.render(w, http.StatusBadRequest, "import", v)
		return
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		v.add("warning", "Only .csv files can be imported.")
		h.render(w, http.StatusBadRequest, "import", v)
		return
	}

	report, err := transfer.Import(r.Context(), h.store, file)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, transfer.ErrRead) {
			status = http.StatusBadRequest
		}
		v.add("error", "Import failed: %v", err)
		h.render(w, status, "import", v)
		return
	}

	v.Report = &report
	if report.OK() {
		v.add("success", "Data has been successfully imported into the database!")
	} else {
		v.add("warning", "%d row(s) could not be imported.", len(report.Failures))
	}
	h.render(w, http.StatusOK, "import", v)
}
