package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/archive"
	"github.com/hyperjump/kubun/internal/config"
	"github.com/hyperjump/kubun/internal/export"
	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.c.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.watch != nil {
		st.WatchDirectories = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset := intParam(q.Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	limit := intParam(q.Get("limit"), defaultPageSize)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	ctx := r.Context()
	list, err := s.c.Storage.ListExtractions(ctx, offset, limit)
	if err != nil {
		s.logger.Error("list extractions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.c.Storage.CountExtractions(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []*models.Extraction{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": list,
		"total":     total,
		"offset":    offset,
		"limit":     limit,
	})
}

func (s *Server) getExtraction(w http.ResponseWriter, r *http.Request) (*models.Extraction, bool) {
	id := chi.URLParam(r, "id")
	e, err := s.c.Storage.GetExtraction(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("get extraction failed", zap.String("doc_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return e, true
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if e, ok := s.getExtraction(w, r); ok {
		s.respondJSON(w, http.StatusOK, e)
	}
}

func (s *Server) handleGetDocumentText(w http.ResponseWriter, r *http.Request) {
	e, ok := s.getExtraction(w, r)
	if !ok {
		return
	}
	if e.Sections == nil {
		s.respondError(w, http.StatusNotFound, "document has no sections")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(archive.RenderText(e.Sections)))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	err := s.c.Indexer.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.search(w, r, &query)
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := models.SearchQuery{
		Query:   q.Get("q"),
		Section: q.Get("section"),
		Limit:   intParam(q.Get("limit"), 0),
		Offset:  intParam(q.Get("offset"), 0),
	}
	switch q.Get("mode") {
	case "keyword":
		query.KeywordEnabled = true
	case "semantic":
		query.SemanticEnabled = true
	}
	if v := q.Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid min_score")
			return
		}
		query.MinScore = f
	}
	s.search(w, r, &query)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, query *models.SearchQuery) {
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.c.Engine.Search(r.Context(), query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var all []*models.Extraction
	for offset := 0; ; offset += maxPageSize {
		page, err := s.c.Storage.ListExtractions(ctx, offset, maxPageSize)
		if err != nil {
			s.logger.Error("export: list extractions failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		all = append(all, page...)
		if len(page) < maxPageSize {
			break
		}
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, all); err != nil {
		s.logger.Error("export failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="kubun-extractions.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

func (s *Server) handleWatchStats(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, s.watch.Stats())
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.c.Config.Watch.Directories = s.watch.Directories()
	if s.configPath == "" {
		return
	}
	if err := config.Save(s.configPath, s.c.Config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func intParam(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
