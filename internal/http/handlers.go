package http

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"dompet/internal/core"
	applog "dompet/internal/log"
	"dompet/internal/receipt"
)

const multipartOverhead = 1 << 20

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type registerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type transactionRequest struct {
	Title     string         `json:"title"`
	Amount    flexibleAmount `json:"amount"`
	Type      string         `json:"type"`
	Category  string         `json:"category"`
	Timestamp int64          `json:"timestamp"`
}

type transactionsResponse struct {
	Transactions []core.Transaction `json:"transactions"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

type analyticsResponse struct {
	Year       int                   `json:"year,omitempty"`
	Month      int                   `json:"month,omitempty"`
	Label      string                `json:"label"`
	Categories []core.CategoryAmount `json:"categories"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, applog.OpRegister, err)
		return
	}
	user, err := s.auth.Register(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		s.respondError(w, r, applog.OpRegister, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{ID: user.ID, Email: user.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, applog.OpLogin, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	tok, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, applog.OpLogin, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.txs.List(r.Context(), userID(r))
	if err != nil {
		s.respondError(w, r, applog.OpListTransactions, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionsResponse{Transactions: txs})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, applog.OpCreateTransaction, err)
		return
	}
	tx, err := s.txs.Create(r.Context(), userID(r), core.TransactionInput{
		Title:     req.Title,
		Amount:    string(req.Amount),
		Type:      req.Type,
		Category:  req.Category,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		s.respondError(w, r, applog.OpCreateTransaction, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}
	if err := s.txs.Delete(r.Context(), userID(r), id); err != nil {
		s.respondError(w, r, applog.OpDeleteTransaction, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	year, month, _, err := s.parseYearMonth(r)
	if err != nil {
		s.respondError(w, r, applog.OpLedger, err)
		return
	}
	ledger, err := s.txs.MonthLedger(r.Context(), userID(r), year, month)
	if err != nil {
		s.respondError(w, r, applog.OpLedger, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger)
}

// handleCategoryAnalytics returns the all-time breakdown unless a month is
// given.
func (s *Server) handleCategoryAnalytics(w http.ResponseWriter, r *http.Request) {
	year, month, monthSet, err := s.parseYearMonth(r)
	if err != nil {
		s.respondError(w, r, applog.OpAnalytics, err)
		return
	}
	resp := analyticsResponse{Label: "Semua waktu"}
	if monthSet {
		resp.Year, resp.Month, resp.Label = year, month, core.MonthLabel(year, month)
	} else {
		month = 0
	}

	breakdown, err := s.txs.Breakdown(r.Context(), userID(r), year, month)
	if err != nil {
		s.respondError(w, r, applog.OpAnalytics, err)
		return
	}
	resp.Categories = breakdown
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year, month, _, err := s.parseYearMonth(r)
	if err != nil {
		s.respondError(w, r, applog.OpDashboard, err)
		return
	}
	d, err := s.txs.Dashboard(r.Context(), userID(r), year, month)
	if err != nil {
		s.respondError(w, r, applog.OpDashboard, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.txs.Categories(r.Context(), userID(r))
	if err != nil {
		s.respondError(w, r, applog.OpListCategories, err)
		return
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: cats})
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, applog.OpAddCategory, err)
		return
	}
	cats, err := s.txs.AddCategory(r.Context(), userID(r), req.Name)
	if err != nil {
		s.respondError(w, r, applog.OpAddCategory, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoriesResponse{Categories: cats})
}

func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, "receipt scanning is not configured")
		return
	}
	image, err := readImage(w, r, s.scanner.MaxImageBytes())
	if err != nil {
		s.respondError(w, r, applog.OpScanReceipt, err)
		return
	}
	res, err := s.scanner.Scan(r.Context(), image)
	if err != nil {
		s.respondError(w, r, applog.OpScanReceipt, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// readImage takes the image from a multipart "image" field, or from the raw
// body for any other content type.
func readImage(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return readLimited(r.Body, limit)
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, receipt.ErrImageTooLarge
		}
		return nil, fmt.Errorf("%w: invalid multipart body: %v", errBadRequest, err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, receipt.ErrEmptyImage
		}
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	defer file.Close()

	if header.Size > limit {
		return nil, receipt.ErrImageTooLarge
	}
	return readLimited(file, limit)
}
