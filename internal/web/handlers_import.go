package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/rollcall/internal/core"
	"github.com/JonMunkholm/rollcall/internal/logging"
	"github.com/JonMunkholm/rollcall/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and the other fields.
const multipartOverhead = 1 << 20

// handleImport accepts a multipart roster upload and stages its valid rows.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	// Leave room above the limit so a slightly oversized file still
	// reaches the file guard and gets its precise size message.
	maxBody := 2*s.cfg.Import.MaxFileSize + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, &core.FileError{
				Code:    core.CodeFileSize,
				Message: "File size exceeds maximum allowed size.",
			})
			return
		}
		s.respondError(w, r, core.ErrNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	lastModified, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue("lastModified")), 10, 64)

	res, err := s.service.Import(r.Context(), core.ImportRequest{
		UserID:   userID(r),
		CourseID: courseID,
		File: core.FileMeta{
			Name:         header.Filename,
			Type:         header.Header.Get("Content-Type"),
			Size:         header.Size,
			LastModified: lastModified,
		},
		Data: data,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(),
		"import_id", res.ImportID,
		"course_id", courseID,
	).Info("roster import staged",
		"file", res.FileName,
		"mode", res.Mode,
		"staged", res.Staged,
		"errors", len(res.Errors)+len(res.StructuralErrors),
		"duration_ms", res.Duration.Milliseconds(),
	)

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.ImportSummary(res).Render(r.Context(), w); err != nil {
			s.respondError(w, r, err)
		}
		return
	}
	writeJSON(w, res)
}

// handleDownloadTemplate serves the roster CSV template.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+core.TemplateFileName+`"`)
	w.Write(core.TemplateCSV())
}
