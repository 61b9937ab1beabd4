package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/indexer"
	"github.com/hyperjump/kubun/internal/loader"
	"github.com/hyperjump/kubun/internal/models"
)

// jsonDocumentName is the upload name given to a raw JSON Document body.
const jsonDocumentName = "document.json"

const multipartMemory = 32 << 20

// MethodsResponse is the body of /api/v1/extract/methods.
type MethodsResponse struct {
	Title   models.TitleSection   `json:"title"`
	Methods models.MethodsSection `json:"methods"`
}

// SectionsResponse is the body of /api/v1/extract/sections.
type SectionsResponse struct {
	Title             models.TitleSection             `json:"title"`
	Abstract          models.AbstractSection          `json:"abstract"`
	ResultsDiscussion models.ResultsDiscussionSection `json:"results_discussion"`
	Errors            []string                        `json:"errors,omitempty"`
}

// readUpload returns the uploaded file from a multipart "input" or "file" field, or
// the raw body as a JSON Document.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	if mb := s.c.Config.Server.MaxUploadMB; mb > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(mb)<<20)
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return "", nil, err
		}
		return jsonDocumentName, data, nil
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return "", nil, err
	}
	for _, field := range []string{"input", "file"} {
		f, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return "", nil, err
		}
		return header.Filename, data, nil
	}
	return "", nil, fmt.Errorf("multipart field \"input\" is required")
}

func (s *Server) uploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		s.respondError(w, http.StatusRequestEntityTooLarge, "upload too large")
	case errors.Is(err, loader.ErrUnsupportedFormat):
		s.respondError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, indexer.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

// handleExtract extracts every section and persists the result.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.readUpload(w, r)
	if err != nil {
		s.uploadError(w, err)
		return
	}
	e, err := s.c.Indexer.ExtractBytes(r.Context(), name, data)
	if err != nil {
		s.logger.Warn("extraction failed", zap.String("file", name), zap.Error(err))
		s.uploadError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, e)
}

// loadDocument parses the upload without persisting anything.
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*models.Document, context.Context, context.CancelFunc, bool) {
	name, data, err := s.readUpload(w, r)
	if err != nil {
		s.uploadError(w, err)
		return nil, nil, nil, false
	}
	doc, err := s.c.Loader.LoadBytes(r.Context(), name, data)
	if err == nil {
		err = doc.Validate()
	}
	if err != nil {
		s.uploadError(w, err)
		return nil, nil, nil, false
	}
	ctx, cancel := r.Context(), context.CancelFunc(func() {})
	if secs := s.c.Config.Extract.TimeoutSeconds; secs > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
	}
	return doc, ctx, cancel, true
}

func (s *Server) handleExtractMethods(w http.ResponseWriter, r *http.Request) {
	doc, ctx, cancel, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	defer cancel()
	methods, err := s.c.Assembler.Methods(ctx, doc)
	if err != nil {
		s.logger.Warn("methods extraction failed", zap.Error(err))
		s.uploadError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, MethodsResponse{Title: s.c.Assembler.Title(doc), Methods: methods})
}

func (s *Server) handleExtractSections(w http.ResponseWriter, r *http.Request) {
	doc, ctx, cancel, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	defer cancel()
	sections, err := s.c.Assembler.AbstractAndResults(ctx, doc)
	if err != nil && ctx.Err() != nil {
		s.uploadError(w, ctx.Err())
		return
	}
	resp := SectionsResponse{
		Title:             sections.Title,
		Abstract:          sections.Abstract,
		ResultsDiscussion: sections.ResultsDiscussion,
	}
	for _, e := range multierr.Errors(err) {
		resp.Errors = append(resp.Errors, e.Error())
	}
	s.respondJSON(w, http.StatusOK, resp)
}
