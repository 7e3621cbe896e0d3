package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/zero-paper-user/constants"
	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/entity"
	"github.com/joseph-ayodele/zero-paper-user/internal/export"
	"github.com/joseph-ayodele/zero-paper-user/internal/middleware"
	"github.com/joseph-ayodele/zero-paper-user/internal/receipts"
	"github.com/joseph-ayodele/zero-paper-user/internal/routes"
	"github.com/joseph-ayodele/zero-paper-user/internal/transport"
	"github.com/joseph-ayodele/zero-paper-user/internal/upstream"
)

// handleListReceipts relays the list for ?uid=. With ?category= or ?sort=
// the list is decoded, filtered and ordered here.
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uid := strings.TrimSpace(q.Get("uid"))
	if uid == "" {
		writeFieldsError(w, "uid is required", []string{"uid"})
		return
	}
	if middleware.BearerToken(r) == "" {
		writeUnauthorized(w)
		return
	}
	category, sortBy := q.Get("category"), q.Get("sort")
	if category == "" && sortBy == "" {
		s.forward(w, r, routes.ListReceipts, map[string]string{"uid": uid}, nil)
		return
	}
	key, err := receipts.ParseSortKey(sortBy)
	if err != nil {
		writeFieldsError(w, err.Error(), []string{"sort"})
		return
	}
	list, ok := s.fetchReceipts(w, r, uid)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, receipts.Sort(receipts.Filter(list, category), key))
}

// fetchReceipts loads and decodes the list of uid. It writes the error
// response itself when ok is false.
func (s *Server) fetchReceipts(w http.ResponseWriter, r *http.Request, uid string) ([]entity.Receipt, bool) {
	req := &transport.Request{Op: routes.ListReceipts, Params: map[string]string{"uid": uid}}
	resp := s.call(w, r, req)
	if resp == nil {
		return nil, false
	}
	if !resp.OK() {
		relay(w, resp)
		return nil, false
	}
	list, err := upstream.NormalizeReceipts(resp.Body)
	if err != nil {
		s.logger.Error("gateway.receipts.decode_error",
			"req_id", common.RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusBadGateway, "could not read the receipt list")
		return nil, false
	}
	return list, true
}

// handleAddReceipt validates a JSON receipt, coerces price and dates and
// forwards it.
func (s *Server) handleAddReceipt(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeObject(w, r, maxReceiptBody)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	if str(doc, "uid") == "" {
		writeFieldsError(w, "uid is required", []string{"uid"})
		return
	}
	if middleware.BearerToken(r) == "" {
		writeUnauthorized(w)
		return
	}
	s.createReceipt(w, r, doc)
}

func (s *Server) createReceipt(w http.ResponseWriter, r *http.Request, doc map[string]any) {
	prepared, err := receipts.PrepareCreate(doc)
	if err != nil {
		var invalid *receipts.InvalidReceiptError
		if errors.As(err, &invalid) {
			writeFieldsError(w, invalid.Message, invalid.Fields)
			return
		}
		s.logger.Error("gateway.receipts.prepare_error", "error", err)
		writeError(w, http.StatusInternalServerError, "could not validate receipt")
		return
	}
	s.forward(w, r, routes.CreateReceipt, nil, prepared)
}

// handleDeleteReceipt needs ?id= (or {"id"} on /api/receipts) and a bearer.
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" && r.URL.Path == routes.PathReceipts && r.ContentLength != 0 {
		if doc, err := decodeObject(w, r, maxJSONBody); err == nil {
			id = str(doc, "id")
		}
	}
	if id == "" {
		writeFieldsError(w, "Receipt ID is required", []string{"id"})
		return
	}
	if middleware.BearerToken(r) == "" {
		writeUnauthorized(w)
		return
	}
	s.forward(w, r, routes.DeleteReceipt, map[string]string{"id": id}, nil)
}

// handleProcessReceipt takes a multipart form (fields plus an optional
// "image" file), converts DD.MM.YYYY HH:MM dates to ISO and forwards it.
func (s *Server) handleProcessReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBody)
	if err := r.ParseMultipartForm(constants.MaxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart form")
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	doc := map[string]any{}
	for key, vals := range r.MultipartForm.Value {
		if len(vals) > 0 {
			doc[key] = vals[0]
		}
	}
	v := common.NewValidator()
	for _, f := range receipts.RequiredFields {
		v.Field(f, doc[f], common.Required)
	}
	if v.HasErrors() {
		writeFieldsError(w, "Missing required fields: "+strings.Join(v.Fields(), ", "), v.Fields())
		return
	}
	if middleware.BearerToken(r) == "" {
		writeUnauthorized(w)
		return
	}

	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		img, err := encodeUpload(files[0])
		if err != nil {
			writeFieldsError(w, err.Error(), []string{"image"})
			return
		}
		doc["image"] = img
	}
	s.createReceipt(w, r, doc)
}

func encodeUpload(fh *multipart.FileHeader) (string, error) {
	ext := constants.NormalizeExt(filepath.Ext(fh.Filename))
	mt, ok := constants.AllowedImageExtensions[ext]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}
	if fh.Size > constants.MaxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", constants.MaxImageBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

// handleReceiptImage answers {image} with the base64 payload.
func (s *Server) handleReceiptImage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("receiptId"))
	if id == "" {
		writeFieldsError(w, "receiptId is required", []string{"receiptId"})
		return
	}
	if middleware.BearerToken(r) == "" {
		writeUnauthorized(w)
		return
	}
	req := &transport.Request{Op: routes.ReceiptImage, Params: map[string]string{"receiptId": id}}
	resp := s.call(w, r, req)
	if resp == nil {
		return
	}
	if !resp.OK() {
		relay(w, resp)
		return
	}
	img := upstream.NormalizeImage(resp.Body)
	if img == "" {
		writeError(w, http.StatusNotFound, "receipt has no image")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"image": img})
}

func (s *Server) listForReport(w http.ResponseWriter, r *http.Request) ([]entity.Receipt, bool) {
	uid := strings.TrimSpace(r.URL.Query().Get("uid"))
	if uid == "" {
		writeFieldsError(w, "uid is required", []string{"uid"})
		return nil, false
	}
	if middleware.BearerToken(r) == "" {
		writeUnauthorized(w)
		return nil, false
	}
	list, ok := s.fetchReceipts(w, r, uid)
	if !ok {
		return nil, false
	}
	return receipts.Filter(list, r.URL.Query().Get("category")), true
}

// handleSummary answers the analytics aggregates for ?uid=.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	list, ok := s.listForReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, receipts.Summarize(list))
}

// handleExport streams an XLSX workbook of the receipts of ?uid=.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	list, ok := s.listForReport(w, r)
	if !ok {
		return
	}
	b, err := export.ReceiptsXLSX(receipts.Sort(list, receipts.SortByDate), s.logger)
	if err != nil {
		s.logger.Error("gateway.export_error", "error", err)
		writeError(w, http.StatusInternalServerError, "could not build the export")
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
