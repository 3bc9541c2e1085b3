package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/patcharin/splitbill/internal/storage"
)

// handleSaveSelection serves both POST and PUT: saving a selection is a
// single idempotent upsert keyed on (user, receipt), so callers never need
// to know whether a prior selection exists.
func (s *Server) handleSaveSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if errs := decodeJSON(r, &req); errs != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestData, "invalid request data", errs)
		return
	}
	if errs := req.validate(); errs != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestData, "invalid request data", errs)
		return
	}

	receiptID := r.PathValue("id")
	sel, err := s.selections.Save(r.Context(), GetUserID(r.Context()), receiptID, req.SelectedItems, req.ItemShares)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, codeReceiptNotFound, "receipt not found", nil)
		return
	}
	if err != nil {
		slog.Error("SaveSelection failed", "receipt_id", receiptID, "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, sel)
}
