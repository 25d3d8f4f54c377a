package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"medstore/m/domain"
	"medstore/m/internal/ocr"
	"medstore/m/internal/preprocess"
	"medstore/m/internal/store"
	"medstore/m/internal/transfer"
)

type storeFormValues struct {
	Name       string
	Location   string
	Category   string
	ExpiryDate string
}

type view struct {
	Active     string
	Notices    []notice
	Locations  []string
	Categories []string
	Form       storeFormValues

	Records   []domain.MedicineRecord
	Expiring  map[int64]bool
	AlertDays int
	Selected  *domain.MedicineRecord

	ExportFormat string
	Report       *transfer.Report
}

func (v *view) add(kind, format string, args ...any) {
	v.Notices = append(v.Notices, notice{Kind: kind, Text: fmt.Sprintf(format, args...)})
}

func (h *Handler) newView() *view {
	return &view{Locations: h.opts.Locations, Categories: h.opts.Categories, AlertDays: h.opts.ExpiryAlertDays}
}

// Store

func (h *Handler) storeForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "store", h.newView())
}

func (h *Handler) scanLabel(w http.ResponseWriter, r *http.Request) {
	v := h.newView()
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		v.add("warning", "Please choose a .jpg or .png image to upload.")
		h.render(w, http.StatusBadRequest, "store", v)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		v.add("warning", "Please choose a .jpg or .png image to upload.")
		h.render(w, http.StatusBadRequest, "store", v)
		return
	}
	defer file.Close()

	if h.scanner == nil {
		v.add("warning", "Text recognition is not available. Please enter the name manually.")
		h.render(w, http.StatusOK, "store", v)
		return
	}

	name, ok, err := h.scanner.ScanImage(r.Context(), file, header.Filename)
	switch {
	case errors.Is(err, ocr.ErrUnavailable):
		v.add("warning", "Text recognition is not available (%v). Please enter the name manually.", err)
	case errors.Is(err, preprocess.ErrUnsupportedFormat):
		v.add("warning", "Only .jpg and .png images can be recognised. Please enter the name manually.")
	case errors.Is(err, preprocess.ErrDecode):
		v.add("warning", "The image could not be read. Please enter the name manually.")
	case err != nil:
		zap.L().Error("scan label", zap.Error(err))
		v.add("error", "Recognition failed: %v", err)
	case !ok:
		v.add("warning", "Recognition failed. Please enter manually.")
	default:
		v.Form.Name = name
		v.add("success", "Recognition Result: %s", name)
	}
	h.render(w, http.StatusOK, "store", v)
}

func (h *Handler) storeMedicine(w http.ResponseWriter, r *http.Request) {
	v := h.newView()
	v.Form = storeFormValues{
		Name:       strings.TrimSpace(r.FormValue("name")),
		Location:   strings.TrimSpace(r.FormValue("location")),
		Category:   strings.TrimSpace(r.FormValue("category")),
		ExpiryDate: strings.TrimSpace(r.FormValue("expiry_date")),
	}

	if v.Form.Name == "" {
		v.add("warning", "Medicine name cannot be empty.")
		h.render(w, http.StatusBadRequest, "store", v)
		return
	}
	if !slices.Contains(h.opts.Locations, v.Form.Location) {
		v.add("warning", "Unknown storage location %q.", v.Form.Location)
		h.render(w, http.StatusBadRequest, "store", v)
		return
	}
	if !slices.Contains(h.opts.Categories, v.Form.Category) {
		v.add("warning", "Unknown category %q.", v.Form.Category)
		h.render(w, http.StatusBadRequest, "store", v)
		return
	}
	expiry, err := dateparse.ParseAny(v.Form.ExpiryDate)
	if err != nil {
		v.add("warning", "Expiration date %q is not a valid date.", v.Form.ExpiryDate)
		h.render(w, http.StatusBadRequest, "store", v)
		return
	}
	v.Form.ExpiryDate = expiry.Format(domain.ExpiryLayout)

	rec, err := h.store.Insert(r.Context(), v.Form.Name, v.Form.Location, v.Form.Category, v.Form.ExpiryDate)
	switch {
	case errors.Is(err, store.ErrDuplicateName):
		v.add("warning", "Medicine %s already exists. Storage failed.", v.Form.Name)
		h.render(w, http.StatusConflict, "store", v)
		return
	case errors.Is(err, store.ErrIncompleteRecord):
		v.add("warning", "All fields are required.")
		h.render(w, http.StatusBadRequest, "store", v)
		return
	case err != nil:
		zap.L().Error("store medicine", zap.String("name", v.Form.Name), zap.Error(err))
		v.add("error", "Unable to store medicine: %v", err)
		h.render(w, http.StatusInternalServerError, "store", v)
		return
	}

	v.Form = storeFormValues{}
	v.add("success", "Medicine %s has been stored in %s!", rec.Name, rec.Location)
	h.render(w, http.StatusCreated, "store", v)
}

// Query

func (h *Handler) expiryCutoff() string {
	return h.now().AddDate(0, 0, h.opts.ExpiryAlertDays).Format(domain.ExpiryLayout)
}

func (h *Handler) queryMedicines(w http.ResponseWriter, r *http.Request) {
	v := h.newView()
	records, err := h.store.ListAll(r.Context())
	if err != nil {
		zap.L().Error("list medicines", zap.Error(err))
		v.add("error", "Unable to list medicines: %v", err)
		h.render(w, http.StatusInternalServerError, "query", v)
		return
	}
	if len(records) == 0 {
		v.add("warning", "No medicines stored.")
		h.render(w, http.StatusOK, "query", v)
		return
	}
	v.Records = records

	expiring, err := h.store.ListExpiring(r.Context(), h.expiryCutoff())
	if err != nil {
		zap.L().Warn("list expiring medicines", zap.Error(err))
	}
	v.Expiring = make(map[int64]bool, len(expiring))
	for _, rec := range expiring {
		v.Expiring[rec.ID] = true
	}
	if len(expiring) > 0 {
		v.add("info", "%d medicine(s) expire within %d days.", len(expiring), h.opts.ExpiryAlertDays)
	}
	h.render(w, http.StatusOK, "query", v)
}

// Take out

func (h *Handler) loadRecords(w http.ResponseWriter, r *http.Request, page string, v *view) bool {
	records, err := h.store.ListAll(r.Context())
	if err != nil {
		zap.L().Error("list medicines", zap.Error(err))
		v.add("error", "Unable to list medicines: %v", err)
		h.render(w, http.StatusInternalServerError, page, v)
		return false
	}
	v.Records = records
	return true
}

func findByName(records []domain.MedicineRecord, name string) *domain.MedicineRecord {
	for i := range records {
		if records[i].Name == name {
			return &records[i]
		}
	}
	return nil
}

func (h *Handler) takeOutForm(w http.ResponseWriter, r *http.Request) {
	v := h.newView()
	if !h.loadRecords(w, r, "takeout", v) {
		return
	}
	if len(v.Records) == 0 {
		v.add("warning", "No medicines stored in the database.")
		h.render(w, http.StatusOK, "takeout", v)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = v.Records[0].Name
	}
	v.Selected = findByName(v.Records, name)
	if v.Selected == nil {
		v.add("warning", "Medicine %s is not stored.", name)
		h.render(w, http.StatusNotFound, "takeout", v)
		return
	}
	h.render(w, http.StatusOK, "takeout", v)
}

func (h *Handler) takeOut(w http.ResponseWriter, r *http.Request) {
	v := h.newView()
	if !h.loadRecords(w, r, "takeout", v) {
		return
	}
	name := r.FormValue("name")
	v.Selected = findByName(v.Records, name)
	if v.Selected == nil {
		v.add("warning", "Medicine %s is not stored.", name)
		h.render(w, http.StatusNotFound, "takeout", v)
		return
	}

	switch r.FormValue("mode") {
	case "partial":
		v.add("success", "%s was partially taken out. Information is retained.", name)
		h.render(w, http.StatusOK, "takeout", v)
	case "full":
		if r.FormValue("confirm") != "yes" {
			v.add("warning", "Tick the confirmation to remove %s completely. Nothing was changed.", name)
			h.render(w, http.StatusOK, "takeout", v)
			return
		}
		if _, err := h.store.DeleteByName(r.Context(), name); err != nil {
			zap.L().Error("take out medicine", zap.String("name", name), zap.Error(err))
			v.add("error", "Unable to remove %s: %v", name, err)
			h.render(w, http.StatusInternalServerError, "takeout", v)
			return
		}
		v.Selected = nil
		v.Records = slices.DeleteFunc(v.Records, func(rec domain.MedicineRecord) bool { return rec.Name == name })
		v.add("success", "%s has been completely removed from the database.", name)
		h.render(w, http.StatusOK, "takeout", v)
	default:
		v.add("warning", "Choose whether to take out %s partially or completely.", name)
		h.render(w, http.StatusBadRequest, "takeout", v)
	}
}

// Delete

func (h *Handler) deleteForm(w http.ResponseWriter, r *http.Request) {
	v := h.newView()
	if !h.loadRecords(w, r, "delete", v) {
		return
	}
	if len(v.Records) == 0 {
		v.add("warning", "No medicines stored.")
	}
	h.render(w, http.StatusOK, "delete", v)
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	v := h.newView()
	name := r.FormValue("name")
	if name == "" {
		v.add("warning", "Select a medicine to delete.")
		if h.loadRecords(w, r, "delete", v) {
			h.render(w, http.StatusBadRequest, "delete", v)
		}
		return
	}

	removed, err := h.store.DeleteByName(r.Context(), name)
	if err != nil {
		zap.L().Error("delete medicine", zap.String("name", name), zap.Error(err))
		v.add("error", "Unable to delete %s: %v", name, err)
		h.render(w, http.StatusInternalServerError, "delete", v)
		return
	}
	if removed == 0 {
		v.add("info", "%s was not stored. Nothing was deleted.", name)
	} else {
		v.add("success", "%s has been deleted!", name)
	}
	if !h.loadRecords(w, r, "delete", v) {
		return
	}
	if len(v.Records) == 0 {
		v.add("warning", "No medicines stored.")
	}
	h.render(w, http.StatusOK, "delete", v)
}

// JSON API

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list medicines")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) expiringMedicines(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = h.opts.ExpiryAlertDays
	}
	cutoff := h.now().AddDate(0, 0, days).Format(domain.ExpiryLayout)
	records, err := h.store.ListExpiring(r.Context(), cutoff)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch alerts")
		return
	}
	respondJSON(w, http.StatusOK, records)
}
