package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"kasir/internal/core"
)

const maxBodyBytes = 64 * 1024

type menuItemResponse struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type cartLineResponse struct {
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

type cartResponse struct {
	Lines []cartLineResponse `json:"lines"`
	Total int64              `json:"total"`
}

type receiptResponse struct {
	Description string `json:"description"`
	Total       int64  `json:"total"`
	Weather     string `json:"weather"`
	Timestamp   string `json:"timestamp"`
}

type recordResponse struct {
	Source      string `json:"source,omitempty"`
	Index       int    `json:"index"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Weather     string `json:"weather"`
	Timestamp   string `json:"timestamp"`
}

type summaryResponse struct {
	Date    string           `json:"date"`
	Rows    []recordResponse `json:"rows"`
	Income  int64            `json:"income"`
	Expense int64            `json:"expense"`
	Net     int64            `json:"net"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusForError maps the domain sentinels onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrMenuItemNotFound),
		errors.Is(err, core.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateMenuItem):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnknownSource),
		errors.Is(err, core.ErrInvalidDateKey):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidQuantity),
		errors.Is(err, core.ErrEmptyCart):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleMenu serves the catalog: GET lists it, POST appends an item.
func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items := s.ledger.Menu()
		out := make([]menuItemResponse, 0, len(items))
		for _, m := range items {
			out = append(out, menuItemResponse{Name: m.Name, Price: m.Price.Rupiah})
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req struct {
			Name  string `json:"name"`
			Price string `json:"price"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		item, err := s.ledger.AddMenuItem(r.Context(), req.Name, req.Price)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, menuItemResponse{Name: item.Name, Price: item.Price.Rupiah})

	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// handleCart serves the pending order: GET shows it, DELETE empties it.
func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.cartState())

	case http.MethodDelete:
		s.ledger.ClearCart()
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, "GET, DELETE")
	}
}

// handleCartItems adds a priced line to the cart.
func (s *Server) handleCartItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req struct {
		Name     string `json:"name"`
		Quantity string `json:"quantity"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if _, err := s.ledger.AddToCart(r.Context(), req.Name, req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartState())
}

func (s *Server) cartState() cartResponse {
	lines := s.ledger.CartLines()
	out := cartResponse{Lines: make([]cartLineResponse, 0, len(lines))}
	for _, l := range lines {
		out.Lines = append(out.Lines, cartLineResponse{
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.Rupiah,
			Subtotal:  l.Subtotal.Rupiah,
		})
	}
	out.Total = s.ledger.CartTotal().Rupiah
	return out
}

// handlePayments commits the cart as a sale and returns the receipt.
func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	receipt, err := s.ledger.CommitPayment(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.summaryCache.Purge()
	writeJSON(w, http.StatusCreated, receiptResponse{
		Description: receipt.Description,
		Total:       receipt.Total.Rupiah,
		Weather:     receipt.Weather,
		Timestamp:   string(receipt.Timestamp),
	})
}

// handleExpenses records an operational expense on a chosen date.
func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req struct {
		Date        string `json:"date"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	date, err := core.ParseDateKey(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := s.ledger.AddExpense(r.Context(), date, req.Description, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.summaryCache.Purge()
	index := 0
	if rows := s.ledger.QueryByDate(date).Rows; len(rows) > 0 {
		index = rows[len(rows)-1].Index
	}
	writeJSON(w, http.StatusCreated, recordResponse{
		Source:      string(core.SourceExpense),
		Index:       index,
		Description: rec.Description,
		Amount:      rec.Amount.Rupiah,
		Weather:     rec.Weather,
		Timestamp:   string(rec.Timestamp),
	})
}

// handleSummary reports one day of activity with fresh row indices.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	date, err := core.ParseDateKey(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	summary, found := s.summaryCache.Get(string(date))
	if !found {
		summary = s.ledger.QueryByDate(date)
		s.summaryCache.Set(string(date), summary)
	} else {
		slog.DebugContext(r.Context(), "Summary cache hit", "date", string(date))
	}

	out := summaryResponse{
		Date:    string(summary.Date),
		Rows:    make([]recordResponse, 0, len(summary.Rows)),
		Income:  summary.Income.Rupiah,
		Expense: summary.Expense.Rupiah,
		Net:     summary.Net().Rupiah,
	}
	for _, row := range summary.Rows {
		out.Rows = append(out.Rows, recordResponse{
			Source:      string(row.Source),
			Index:       row.Index,
			Description: row.Record.Description,
			Amount:      row.Record.Amount.Rupiah,
			Weather:     row.Record.Weather,
			Timestamp:   string(row.Record.Timestamp),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRecords edits or deletes one record addressed by source and index.
// Indices come from the most recent summary and go stale after any delete.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	src := core.Source(r.URL.Query().Get("source"))
	if !src.Valid() {
		writeError(w, r, core.ErrUnknownSource)
		return
	}
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid index"})
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req struct {
			Description string `json:"description"`
			Amount      string `json:"amount"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
		updated, err := s.ledger.EditRecord(r.Context(), src, index, req.Description, req.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.summaryCache.Purge()
		writeJSON(w, http.StatusOK, recordResponse{
			Source:      string(src),
			Index:       index,
			Description: updated.Description,
			Amount:      updated.Amount.Rupiah,
			Weather:     updated.Weather,
			Timestamp:   string(updated.Timestamp),
		})

	case http.MethodDelete:
		removed, err := s.ledger.DeleteRecord(r.Context(), src, index)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.summaryCache.Purge()
		writeJSON(w, http.StatusOK, recordResponse{
			Source:      string(src),
			Index:       index,
			Description: removed.Description,
			Amount:      removed.Amount.Rupiah,
			Weather:     removed.Weather,
			Timestamp:   string(removed.Timestamp),
		})

	default:
		methodNotAllowed(w, "PUT, DELETE")
	}
}
