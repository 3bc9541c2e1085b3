package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/patcharin/splitbill/internal/models"
	"github.com/patcharin/splitbill/internal/scanning"
	"github.com/patcharin/splitbill/internal/service"
	"github.com/patcharin/splitbill/internal/storage"
)

// maxUploadSize caps receipt image uploads; phone photos stay well under it.
const maxUploadSize = 20 << 20 // 20MB

// handleParseReceipt accepts a multipart image upload and returns the
// structured receipt the vision gateway extracted. Nothing is persisted;
// the client reviews the parse and then calls the create endpoint.
func (s *Server) handleParseReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestData, "could not parse upload; maximum size is 20MB",
			[]fieldError{{Field: "file", Message: err.Error()}})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestData, "no file provided",
			[]fieldError{{Field: "file", Message: "is required"}})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading upload", "filename", header.Filename, "error", err)
		writeInternalError(w)
		return
	}

	contentType := header.Header.Get("Content-Type")
	parsed, err := s.receipts.Parse(data, contentType)
	if errors.Is(err, scanning.ErrNotReceipt) {
		writeError(w, http.StatusUnprocessableEntity, codeNotAReceipt, "the uploaded image is not a receipt", nil)
		return
	}
	if err != nil {
		slog.Error("Parse failed", "filename", header.Filename, "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"receipt":        parsed,
		"parser_version": s.receipts.ParserVersion(),
	})
}

func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req createReceiptRequest
	if errs := decodeJSON(r, &req); errs != nil {
		writeError(w, http.StatusBadRequest, codeReceiptInvalid, "invalid receipt data", errs)
		return
	}
	if errs := req.validate(); errs != nil {
		writeError(w, http.StatusBadRequest, codeReceiptInvalid, "invalid receipt data", errs)
		return
	}

	items := make([]service.NewItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.NewItem{
			Name:      item.Name,
			NameEN:    item.NameEN,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
		}
	}

	receipt, err := s.receipts.Create(r.Context(), GetUserID(r.Context()), service.NewReceipt{
		MerchantName:     req.MerchantName,
		MerchantNameEN:   req.MerchantNameEN,
		OriginalLanguage: req.OriginalLanguage,
		Currency:         req.Currency,
		TaxPercent:       req.TaxPercent,
		ServicePercent:   req.ServicePercent,
		Rounding:         req.Rounding,
		Subtotal:         req.Subtotal,
		Total:            req.Total,
		RawJSON:          string(req.RawJSON),
		ParserVersion:    req.ParserVersion,
		StorageKey:       req.StorageKey,
		IssuedAt:         req.IssuedAt,
		UserType:         models.UserType(req.UserType),
		Items:            items,
	})
	if err != nil {
		slog.Error("CreateReceipt failed", "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"receipt_id": receipt.ID})
}

// receiptResponse is the fetch payload: the receipt with ordered items, the
// caller's selection when one exists, and the caller's relationship to the
// bill. It carries everything a client needs to reproduce the allocation.
type receiptResponse struct {
	Receipt       *models.Receipt       `json:"receipt"`
	UserSelection *models.UserSelection `json:"user_selection"`
	IsCreator     bool                  `json:"is_creator"`
	IsPayer       bool                  `json:"is_payer"`
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	view, err := s.receipts.Get(r.Context(), GetUserID(r.Context()), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, codeReceiptNotFound, "receipt not found", nil)
		return
	}
	if errors.Is(err, service.ErrAccessDenied) {
		writeError(w, http.StatusForbidden, codeReceiptAccessDenied, "you do not have access to this receipt", nil)
		return
	}
	if err != nil {
		slog.Error("GetReceipt failed", "receipt_id", r.PathValue("id"), "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, receiptResponse{
		Receipt:       view.Receipt,
		UserSelection: view.Selection,
		IsCreator:     view.IsCreator,
		IsPayer:       view.IsPayer,
	})
}

// listResponse wraps a receipts page with its pagination envelope.
type listResponse struct {
	Receipts   []models.Receipt `json:"receipts"`
	Pagination pagination       `json:"pagination"`
}

type pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	offset := queryInt(r, "offset", 0)

	receipts, total, err := s.receipts.List(r.Context(), GetUserID(r.Context()), limit, offset)
	if err != nil {
		slog.Error("ListReceipts failed", "error", err)
		writeInternalError(w)
		return
	}
	if receipts == nil {
		receipts = []models.Receipt{}
	}

	writeJSON(w, http.StatusOK, listResponse{
		Receipts: receipts,
		Pagination: pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+limit < total,
		},
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
