package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/rollcall/internal/config"
	"github.com/JonMunkholm/rollcall/internal/core"
	"github.com/JonMunkholm/rollcall/internal/logging"
	"github.com/JonMunkholm/rollcall/internal/roster"
	"github.com/JonMunkholm/rollcall/internal/web/templates"
)

const rosterCSV = "Student ID,Name,Email,Section\n" +
	"ST001,Jane Doe,jane@school.edu,A\n" +
	"ST002,John Roe,not-an-email,B\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	return cfg
}

func newTestServer(t *testing.T, opts Options) (*Server, *core.Service) {
	t.Helper()
	cfg := testConfig(t)
	svc := core.NewService(roster.NewMemoryStore(), core.ServiceConfig{MaxAttempts: 3})
	return NewServer(svc, cfg, opts), svc
}

func uploadRequest(t *testing.T, courseID, filename, contentType, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mpw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte(body))
	mpw.WriteField("lastModified", "1725177600000")
	mpw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/courses/"+courseID+"/roster/import", &buf)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	req.Header.Set("X-User-ID", "instructor-1")
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleImport_JSON(t *testing.T) {
	s, svc := newTestServer(t, Options{})

	rec := serve(s, uploadRequest(t, "bio-101", "roster.csv", "text/csv", rosterCSV))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var res core.ImportResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Staged != 1 || len(res.Errors) != 1 {
		t.Errorf("result = %+v", res)
	}
	if got := svc.ListStaged("instructor-1", "bio-101"); len(got) != 1 {
		t.Errorf("staged = %d, want 1", len(got))
	}
}

func TestHandleImport_LogsWithRequestContext(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, "info", "json"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	s, _ := newTestServer(t, Options{})
	rec := serve(s, uploadRequest(t, "bio-101", "roster.csv", "text/csv", rosterCSV))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var res core.ImportResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			continue
		}
		if m["msg"] == "roster import staged" {
			entry = m
		}
	}
	if entry == nil {
		t.Fatalf("no import log line in:\n%s", buf.String())
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Errorf("request_id missing: %v", entry)
	}
	if entry["user_id"] != "instructor-1" || entry["course_id"] != "bio-101" || entry["import_id"] != res.ImportID {
		t.Errorf("log fields = %v", entry)
	}
}

func TestHandleImport_HTMX(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	req := uploadRequest(t, "bio-101", "roster.csv", "text/csv", rosterCSV)
	req.Header.Set("HX-Request", "true")
	rec := serve(s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "1 valid records staged; 1 errors") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestHandleImport_Errors(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantCode   string
	}{
		{
			name: "wrong extension",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "bio-101", "roster.txt", "text/csv", rosterCSV)
			},
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   "FILE002",
		},
		{
			name: "empty file",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "bio-101", "roster.csv", "text/csv", "\n\n")
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE005",
		},
		{
			name: "no file",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/courses/bio-101/roster/import", strings.NewReader("x"))
				req.Header.Set("Content-Type", "text/plain")
				return req
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE007",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, Options{})
			rec := serve(s, tt.req(t))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if !strings.HasPrefix(resp.Error, resp.Message) || !strings.Contains(resp.Error, "(Code: "+tt.wantCode+")") {
				t.Errorf("error = %q, want display form of %q", resp.Error, resp.Message)
			}
		})
	}
}

func TestHandleImport_DuplicateAndRateLimit(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	if rec := serve(s, uploadRequest(t, "bio-101", "a.csv", "text/csv", rosterCSV)); rec.Code != http.StatusOK {
		t.Fatalf("first upload status = %d", rec.Code)
	}
	if rec := serve(s, uploadRequest(t, "bio-101", "a.csv", "text/csv", rosterCSV)); rec.Code != http.StatusConflict {
		t.Errorf("duplicate upload status = %d, want 409", rec.Code)
	}
	// Third attempt for this user in the window: MaxAttempts is 3.
	serve(s, uploadRequest(t, "bio-101", "b.csv", "text/csv", rosterCSV))

	rec := serve(s, uploadRequest(t, "bio-101", "c.csv", "text/csv", rosterCSV))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestStagingAndCommit(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	body := `{"studentId":"ST9","name":"Ann Lee","email":"Ann@School.edu","section":"B"}`
	req := httptest.NewRequest(http.MethodPost, "/api/courses/bio-101/roster/staged", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "instructor-1")
	if rec := serve(s, req); rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/courses/bio-101/roster/staged", nil)
	req.Header.Set("X-User-ID", "instructor-1")
	rec := serve(s, req)
	if !strings.Contains(rec.Body.String(), "ann@school.edu") {
		t.Errorf("staged list = %s", rec.Body)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/courses/bio-101/roster/commit", nil)
	req.Header.Set("X-User-ID", "instructor-1")
	rec = serve(s, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"committed":1`) {
		t.Fatalf("commit = %d %s", rec.Code, rec.Body)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/courses/bio-101/roster/commit", nil)
	req.Header.Set("X-User-ID", "instructor-1")
	if rec := serve(s, req); rec.Code != http.StatusBadRequest {
		t.Errorf("empty commit status = %d, want 400", rec.Code)
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/courses/bio-101/roster", nil))
	if !strings.Contains(rec.Body.String(), "Ann Lee") {
		t.Errorf("roster = %s", rec.Body)
	}
}

func TestHandleAddStaged_Validation(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"blank field", `{"studentId":" ","name":"Ann","email":"a@b.co","section":"A"}`, http.StatusUnprocessableEntity, "studentId"},
		{"bad email", `{"studentId":"ST1","name":"Ann","email":"nope","section":"A"}`, http.StatusUnprocessableEntity, ""},
		{"not json", `{`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/courses/bio-101/roster/staged", strings.NewReader(tt.body))
			rec := serve(s, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if tt.wantField != "" {
				var resp ErrorResponse
				json.NewDecoder(rec.Body).Decode(&resp)
				if resp.Fields[tt.wantField] != "this field cannot be blank" {
					t.Errorf("fields = %v", resp.Fields)
				}
			}
		})
	}
}

func TestHandleRemoveStaged_EscapedEmail(t *testing.T) {
	s, svc := newTestServer(t, Options{})
	_, err := svc.AddStudent(context.Background(), "instructor-1", "bio-101", core.RawRecord{
		StudentID: "ST1", Name: "Ann Lee", Email: "a%b@school.edu", Section: "A",
	})
	if err != nil {
		t.Fatalf("AddStudent: %v", err)
	}

	var page bytes.Buffer
	if err := templates.StagedList("bio-101", svc.ListStaged("instructor-1", "bio-101")).Render(context.Background(), &page); err != nil {
		t.Fatal(err)
	}
	const path = "/api/courses/bio-101/roster/staged/a%25b@school.edu"
	if !strings.Contains(page.String(), path) {
		t.Fatalf("rendered list lacks %s: %s", path, page.String())
	}

	req := httptest.NewRequest(http.MethodDelete, path, nil)
	req.Header.Set("X-User-ID", "instructor-1")
	if rec := serve(s, req); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204 (body %s)", rec.Code, rec.Body)
	}
	if got := svc.ListStaged("instructor-1", "bio-101"); len(got) != 0 {
		t.Errorf("staged = %+v, want empty", got)
	}
}

func TestHandleRemoveStaged_NotFound(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	req := httptest.NewRequest(http.MethodDelete, "/api/courses/bio-101/roster/staged/nobody@school.edu", nil)
	if rec := serve(s, req); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleDownloadTemplate(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/import/template", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "Student ID,Name,Email,Section") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), core.TemplateFileName) {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
}

func TestHealth(t *testing.T) {
	ok := HealthCheck{Name: "store", Check: func(context.Context) error { return nil }}
	bad := HealthCheck{Name: "queue", Check: func(context.Context) error { return errors.New("down") }}

	s, _ := newTestServer(t, Options{Health: []HealthCheck{ok}})
	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("healthy status = %d", rec.Code)
	}

	s, _ = newTestServer(t, Options{Health: []HealthCheck{ok, bad}})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"degraded"`) {
		t.Errorf("degraded = %d %s", rec.Code, rec.Body)
	}
}

func TestIPRateLimit(t *testing.T) {
	limiter := core.NewRateLimiter(2, time.Minute)
	s, _ := newTestServer(t, Options{IPLimiter: limiter})

	for i := 0; i < 2; i++ {
		if rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Errorf("status = %d, Retry-After = %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}

func TestSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("CSP should be on by default")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&core.RateLimitError{RetryAfter: 5}, http.StatusTooManyRequests},
		{&core.FileError{Code: core.CodeFileSize}, http.StatusRequestEntityTooLarge},
		{&core.FileError{Code: core.CodeFileType}, http.StatusUnsupportedMediaType},
		{&core.RecordError{}, http.StatusUnprocessableEntity},
		{core.ErrDuplicateSubmission, http.StatusConflict},
		{core.ErrNotStaged, http.StatusNotFound},
		{core.ErrTooManyImports, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
