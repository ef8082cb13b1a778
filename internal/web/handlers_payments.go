package web

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/rwa/internal/core"
	"github.com/JonMunkholm/rwa/internal/logging"
	"github.com/JonMunkholm/rwa/internal/web/templates"
)

// handleListPayments lists the caller's payments; admins may pass ?flat=
// or leave it blank for every flat.
func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.service.ListPayments(r.Context(), scopeFlat(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if payments == nil {
		payments = []core.Payment{}
	}
	writeJSON(w, payments)
}

// handleCashPayment records cash, cheque or transfer payments received at
// the office.
func (s *Server) handleCashPayment(w http.ResponseWriter, r *http.Request) {
	var req core.CashPayment
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	payments, err := s.service.RecordCashPayment(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, payments)
}

type orderRequest struct {
	FlatNo string       `json:"flat_no" validate:"omitempty,max=20"`
	Months []core.Month `json:"months" validate:"required,min=1,max=24"`
}

// handleCreateOrder starts an online payment for the caller's flat. Admins
// may pay on behalf of another flat.
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	p := principal(r)
	flat := p.FlatNo
	if p.IsAdmin() && req.FlatNo != "" {
		flat = req.FlatNo
	}

	order, err := s.service.CreateOnlineOrder(r.Context(), flat, req.Months)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.WithFields(r.Context(), "order_id", order.OrderID, "order_flat", order.FlatNo).
		Info("online order created", "months", len(order.Months), "amount", core.FormatAmount(order.Amount))
	writeJSONStatus(w, http.StatusCreated, order)
}

// handleVerifyPayment confirms a checkout with the gateway signature.
func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req core.Confirmation
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.service.ConfirmOnlinePayment(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.WithFields(r.Context(), "order_id", res.OrderID).
		Info("online payment confirmed", "rows", len(res.Payments), "already_confirmed", res.AlreadyConfirmed)
	writeJSON(w, res)
}

// handlePendingPayments lists online payments awaiting confirmation.
func (s *Server) handlePendingPayments(w http.ResponseWriter, r *http.Request) {
	pending, err := s.service.PendingOnlinePayments(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if pending == nil {
		pending = []core.Payment{}
	}
	writeJSON(w, pending)
}

// handleReceipt renders a receipt as HTML, or JSON when asked for. The
// first rendering is archived to blob storage.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.Context(), chi.URLParam(r, "receiptNo"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if p := principal(r); !p.IsAdmin() && core.NormalizeFlat(receipt.FlatNo) != core.NormalizeFlat(p.FlatNo) {
		s.respondError(w, r, core.ErrForbidden)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, receipt)
		return
	}

	var buf bytes.Buffer
	if err := templates.Receipt(receipt).Render(r.Context(), &buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.ArchiveReceipt(r.Context(), receipt.ReceiptNo, buf.Bytes()); err != nil {
		logging.FromContext(r.Context()).Warn("receipt archive failed", "receipt_no", receipt.ReceiptNo, "error", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
