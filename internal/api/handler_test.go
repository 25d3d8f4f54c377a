package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstore/m/domain"
	"medstore/m/internal/ocr"
	"medstore/m/internal/preprocess"
	"medstore/m/internal/store"
)

type fakeScanner struct {
	name  string
	ok    bool
	err   error
	calls int
}

func (f *fakeScanner) ScanImage(ctx context.Context, r io.Reader, filename string) (string, bool, error) {
	f.calls++
	return f.name, f.ok, f.err
}

type countingStore struct {
	*store.MemoryStore
	inserts, deletes int
}

func (c *countingStore) Insert(ctx context.Context, name, location, category, expiryDate string) (domain.MedicineRecord, error) {
	c.inserts++
	return c.MemoryStore.Insert(ctx, name, location, category, expiryDate)
}

func (c *countingStore) DeleteByName(ctx context.Context, name string) (int64, error) {
	c.deletes++
	return c.MemoryStore.DeleteByName(ctx, name)
}

func newTestHandler(t *testing.T, scanner Scanner) (*Handler, *countingStore) {
	t.Helper()
	s := &countingStore{MemoryStore: store.NewMemoryStore()}
	h := New(s, scanner, Options{ExportDir: t.TempDir(), ExpiryAlertDays: 30})
	h.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }
	return h, s
}

func do(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func postForm(h *Handler, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(h, req)
}

func postFile(t *testing.T, h *Handler, path, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return do(h, req)
}

func storeValues(name, location, category, expiry string) url.Values {
	return url.Values{"name": {name}, "location": {location}, "category": {category}, "expiry_date": {expiry}}
}

func TestHealthAndRootRedirect(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	res := do(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"status":"ok"}`, res.Body.String())

	res = do(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/store", res.Header().Get("Location"))
}

func TestEveryPageRenders(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	for _, path := range []string{"/store", "/query", "/takeout", "/delete", "/export", "/import"} {
		res := do(h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, res.Code, path)
		assert.Contains(t, res.Body.String(), "Medicine Management System", path)
	}
}

func TestStoreMedicineScenario(t *testing.T) {
	h, s := newTestHandler(t, nil)

	res := postForm(h, "/store", storeValues("  Panadol ", "A1", "Western Medicine", "2025-12-31"))
	assert.Equal(t, http.StatusCreated, res.Code)
	assert.Contains(t, res.Body.String(), "Medicine Panadol has been stored in A1!")

	res = postForm(h, "/store", storeValues("Panadol", "C3", "Health Products", "2030-01-01"))
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Contains(t, res.Body.String(), "already exists. Storage failed.")

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.MedicineRecord{
		{ID: 1, Name: "Panadol", Location: "A1", Category: "Western Medicine", ExpiryDate: "2025-12-31"},
	}, all)
	assert.Equal(t, 2, s.inserts, "one store call per confirmation")
}

func TestStoreMedicineValidation(t *testing.T) {
	h, s := newTestHandler(t, nil)

	cases := []struct {
		values url.Values
		want   string
	}{
		{storeValues("   ", "A1", "Western Medicine", "2025-12-31"), "Medicine name cannot be empty."},
		{storeValues("Panadol", "Z9", "Western Medicine", "2025-12-31"), "Unknown storage location"},
		{storeValues("Panadol", "A1", "Snacks", "2025-12-31"), "Unknown category"},
		{storeValues("Panadol", "A1", "Western Medicine", "someday"), "is not a valid date"},
	}
	for _, tc := range cases {
		res := postForm(h, "/store", tc.values)
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Contains(t, res.Body.String(), tc.want)
	}
	assert.Zero(t, s.inserts)
}

func TestStoreMedicineNormalisesDate(t *testing.T) {
	h, s := newTestHandler(t, nil)
	res := postForm(h, "/store", storeValues("Aspirin", "B2", "Western Medicine", "2026/03/09"))
	require.Equal(t, http.StatusCreated, res.Code)

	all, _ := s.ListAll(context.Background())
	require.Len(t, all, 1)
	assert.Equal(t, "2026-03-09", all[0].ExpiryDate)
}

func TestScanPrefillsName(t *testing.T) {
	scanner := &fakeScanner{name: "Panadol", ok: true}
	h, s := newTestHandler(t, scanner)

	res := postFile(t, h, "/store/scan", "image", "label.jpg", []byte("jpeg bytes"))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Recognition Result: Panadol")
	assert.Contains(t, res.Body.String(), `name="name" value="Panadol"`)
	assert.Equal(t, 1, scanner.calls)
	assert.Zero(t, s.inserts, "scanning never stores")
}

func TestScanNoResultFallsBackToManualEntry(t *testing.T) {
	h, _ := newTestHandler(t, &fakeScanner{ok: false})
	res := postFile(t, h, "/store/scan", "image", "label.png", []byte("png bytes"))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Recognition failed. Please enter manually.")
	assert.Contains(t, res.Body.String(), `name="name" value=""`)
}

func TestScanErrorsAreReportedNotFatal(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"unavailable": {fmt.Errorf("%w: tesseract not found", ocr.ErrUnavailable), "Text recognition is not available"},
		"decode":      {fmt.Errorf("%w: bad jpeg", preprocess.ErrDecode), "The image could not be read."},
		"format":      {preprocess.ErrUnsupportedFormat, "Only .jpg and .png images can be recognised."},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h, _ := newTestHandler(t, &fakeScanner{err: tc.err})
			res := postFile(t, h, "/store/scan", "image", "label.jpg", []byte("x"))
			assert.Equal(t, http.StatusOK, res.Code)
			assert.Contains(t, res.Body.String(), tc.want)
			assert.Contains(t, res.Body.String(), `action="/store"`, "manual form still offered")
		})
	}
}

func pngLabel(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 40, 16))
	for x := 8; x < 32; x++ {
		for y := 4; y < 12; y++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestOCRUnavailableStillAllowsManualStore(t *testing.T) {
	scanner := ocr.NewAdapter(ocr.NewCLIEngine(filepath.Join(t.TempDir(), "missing-tesseract")))
	h, s := newTestHandler(t, scanner)

	res := postFile(t, h, "/store/scan", "image", "label.png", pngLabel(t))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Text recognition is not available")

	res = postForm(h, "/store", storeValues("Panadol", "A1", "Western Medicine", "2025-12-31"))
	assert.Equal(t, http.StatusCreated, res.Code)
	all, _ := s.ListAll(context.Background())
	assert.Len(t, all, 1)
}

func TestScanWithoutFile(t *testing.T) {
	h, _ := newTestHandler(t, &fakeScanner{})
	req := httptest.NewRequest(http.MethodPost, "/store/scan", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := do(h, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func seed(t *testing.T, s *countingStore) {
	t.Helper()
	ctx := context.Background()
	_, err := s.MemoryStore.Insert(ctx, "Panadol", "A1", "Western Medicine", "2025-06-20")
	require.NoError(t, err)
	_, err = s.MemoryStore.Insert(ctx, "Banlangen", "B2", "Traditional Chinese Medicine", "2026-01-01")
	require.NoError(t, err)
}

func TestQueryListsAndFlagsExpiring(t *testing.T) {
	h, s := newTestHandler(t, nil)

	res := do(h, httptest.NewRequest(http.MethodGet, "/query", nil))
	assert.Contains(t, res.Body.String(), "No medicines stored.")

	seed(t, s)
	res = do(h, httptest.NewRequest(http.MethodGet, "/query", nil))
	body := res.Body.String()
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, body, "<td>Panadol</td>")
	assert.Contains(t, body, "<td>Banlangen</td>")
	assert.Contains(t, body, "1 medicine(s) expire within 30 days.")
	assert.Equal(t, 1, strings.Count(body, `class="expiring"`))
}

func TestTakeOutShowsLocation(t *testing.T) {
	h, s := newTestHandler(t, nil)
	seed(t, s)

	res := do(h, httptest.NewRequest(http.MethodGet, "/takeout?name=Banlangen", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Go to B2 to take out Banlangen.")

	res = do(h, httptest.NewRequest(http.MethodGet, "/takeout?name=Ghost", nil))
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestTakeOutPartialNeverMutates(t *testing.T) {
	h, s := newTestHandler(t, nil)
	seed(t, s)

	res := postForm(h, "/takeout", url.Values{"name": {"Panadol"}, "mode": {"partial"}, "confirm": {"yes"}})
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Panadol was partially taken out. Information is retained.")
	assert.Zero(t, s.deletes)

	all, _ := s.ListAll(context.Background())
	assert.Len(t, all, 2)
}

func TestTakeOutFullRequiresConfirmation(t *testing.T) {
	h, s := newTestHandler(t, nil)
	seed(t, s)

	res := postForm(h, "/takeout", url.Values{"name": {"Panadol"}, "mode": {"full"}})
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Nothing was changed.")
	assert.Zero(t, s.deletes)

	res = postForm(h, "/takeout", url.Values{"name": {"Panadol"}, "mode": {"full"}, "confirm": {"yes"}})
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Panadol has been completely removed from the database.")
	assert.Equal(t, 1, s.deletes)

	all, _ := s.ListAll(context.Background())
	require.Len(t, all, 1)
	assert.Equal(t, "Banlangen", all[0].Name)
}

func TestTakeOutUnknownMode(t *testing.T) {
	h, s := newTestHandler(t, nil)
	seed(t, s)
	res := postForm(h, "/takeout", url.Values{"name": {"Panadol"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Zero(t, s.deletes)
}

func TestDeleteMedicine(t *testing.T) {
	h, s := newTestHandler(t, nil)
	seed(t, s)

	res := postForm(h, "/delete", url.Values{"name": {"Panadol"}})
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Panadol has been deleted!")

	res = postForm(h, "/delete", url.Values{"name": {"X"}})
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "X was not stored. Nothing was deleted.")

	all, _ := s.ListAll(context.Background())
	require.Len(t, all, 1)
	assert.Equal(t, 2, s.deletes)
}

func TestDeleteOnEmptyStore(t *testing.T) {
	h, s := newTestHandler(t, nil)
	res := postForm(h, "/delete", url.Values{"name": {"X"}})
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "No medicines stored.")
	all, _ := s.ListAll(context.Background())
	assert.Empty(t, all)
}

func TestExportThenDownload(t *testing.T) {
	h, s := newTestHandler(t, nil)
	seed(t, s)

	res := do(h, httptest.NewRequest(http.MethodGet, "/export/download?format=csv", nil))
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = postForm(h, "/export", url.Values{"format": {"csv"}})
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "medicine_backup.csv (2 records)")

	res = do(h, httptest.NewRequest(http.MethodGet, "/export/download?format=csv", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Header().Get("Content-Disposition"), "medicine_backup.csv")
	assert.True(t, strings.HasPrefix(res.Body.String(), "\xEF\xBB\xBFid,name,location,category,expiry_date"))

	res = postForm(h, "/export", url.Values{"format": {"xlsx"}})
	assert.Equal(t, http.StatusOK, res.Code)
	_, err := os.Stat(filepath.Join(h.opts.ExportDir, "medicine_backup.xlsx"))
	assert.NoError(t, err)

	res = postForm(h, "/export", url.Values{"format": {"pdf"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestExportWriteFailureIsReported(t *testing.T) {
	h, s := newTestHandler(t, nil)
	seed(t, s)
	h.opts.ExportDir = filepath.Join(t.TempDir(), "missing", "dir")

	res := postForm(h, "/export", url.Values{"format": {"csv"}})
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Contains(t, res.Body.String(), "Export failed")
}

func TestImportReportsRows(t *testing.T) {
	h, s := newTestHandler(t, nil)
	seed(t, s)

	csv := "\xEF\xBB\xBFid,name,location,category,expiry_date\n" +
		"10,Aspirin,C3,Western Medicine,2027-01-01\n" +
		"11,Panadol,C3,Western Medicine,2027-01-01\n"
	res := postFile(t, h, "/import", "file", "backup.csv", []byte(csv))
	assert.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "1 row(s) imported, 1 row(s) rejected.")
	assert.Contains(t, body, "<td>3</td><td>Panadol</td>")

	all, _ := s.ListAll(context.Background())
	assert.Len(t, all, 3)
}

func TestImportRejectsBadUploads(t *testing.T) {
	h, s := newTestHandler(t, nil)

	res := postFile(t, h, "/import", "file", "backup.txt", []byte("id,name\n"))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Only .csv files can be imported.")

	res = postFile(t, h, "/import", "file", "backup.csv", []byte("id,name,location,category,expiry_date\nabc,X,A1,Western Medicine,2025-01-01\n"))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Import failed")

	all, _ := s.ListAll(context.Background())
	assert.Empty(t, all)
}

func TestJSONEndpoints(t *testing.T) {
	h, s := newTestHandler(t, nil)
	seed(t, s)

	res := do(h, httptest.NewRequest(http.MethodGet, "/api/medicines", nil))
	require.Equal(t, http.StatusOK, res.Code)
	var all []domain.MedicineRecord
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	res = do(h, httptest.NewRequest(http.MethodGet, "/api/medicines/expiring?days=7", nil))
	require.Equal(t, http.StatusOK, res.Code)
	var soon []domain.MedicineRecord
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &soon))
	assert.Empty(t, soon)

	res = do(h, httptest.NewRequest(http.MethodGet, "/api/medicines/expiring?days=365", nil))
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &soon))
	assert.Len(t, soon, 2)
}
