// Package handler содержит HTTP-обработчики API сервиса печати книг.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fastprintguys/printbook-system/internal/middleware"
	"github.com/fastprintguys/printbook-system/internal/model"
	"github.com/fastprintguys/printbook-system/internal/paypal"
	"github.com/fastprintguys/printbook-system/internal/pricing"
	"github.com/fastprintguys/printbook-system/internal/repository"
	"github.com/fastprintguys/printbook-system/internal/service"
	"github.com/fastprintguys/printbook-system/internal/stripe"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, email, password string) (*model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)
	Catalog(ctx context.Context) (*model.Catalog, error)
	EligibleBindings(pageCount int) []string
	GetQuote(ctx context.Context, in service.QuoteInput) (*service.Quote, error)
	CreateProject(ctx context.Context, userID int64, in service.ProjectInput) (*model.BookProject, error)
	ProjectsByUser(ctx context.Context, userID int64) ([]model.BookProject, error)
	ProjectByID(ctx context.Context, userID, id int64) (*model.BookProject, error)
	UpdateProject(ctx context.Context, userID, id int64, patch service.ProjectPatch) (*model.BookProject, error)
	DeleteProject(ctx context.Context, userID, id int64) error
	AllProjects(ctx context.Context) ([]repository.AdminProjectRow, error)
	CreateCheckout(ctx context.Context, items []service.CheckoutItem) (*stripe.CheckoutSession, error)
	CreatePayPalPayment(ctx context.Context, in service.PayPalPaymentInput) (*service.CreatedPayment, error)
	ExecutePayPalPayment(ctx context.Context, paymentID, payerID string) (*service.ExecutedPayment, error)
	PayPalPaymentDetails(ctx context.Context, paymentID string) (*paypal.Payment, error)
}

// Handler реализует HTTP-обработчики API сервиса печати книг.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

const maxUploadSize = 32 << 20

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *Handler) writeStatusError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, statusMessage{Status: "error", Message: message})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Register обрабатывает регистрацию нового пользователя и выдаёт токен.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.RegisterUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, tokenResponse{Token: h.authMiddleware.IssueToken(user.ID, user.IsStaff)})
}

// Login выполняет аутентификацию пользователя и выдаёт токен.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, tokenResponse{Token: h.authMiddleware.IssueToken(user.ID, user.IsStaff)})
}

type projectResponse struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Category         string  `json:"category"`
	Language         string  `json:"language"`
	PageCount        int     `json:"page_count"`
	TrimSize         int64   `json:"trim_size"`
	BindingType      int64   `json:"binding_type"`
	CoverFinish      int64   `json:"cover_finish"`
	InteriorColor    int64   `json:"interior_color"`
	PaperType        int64   `json:"paper_type"`
	PDFFile          *string `json:"pdf_file"`
	CoverFile        *string `json:"cover_file"`
	CoverDescription *string `json:"cover_description"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func newProjectResponse(p *model.BookProject) projectResponse {
	return projectResponse{
		ID:               p.ID,
		Title:            p.Title,
		Category:         p.Category,
		Language:         p.Language,
		PageCount:        p.PageCount,
		TrimSize:         p.TrimSizeID,
		BindingType:      p.BindingTypeID,
		CoverFinish:      p.CoverFinishID,
		InteriorColor:    p.InteriorColorID,
		PaperType:        p.PaperTypeID,
		PDFFile:          p.ManuscriptFile,
		CoverFile:        p.CoverFile,
		CoverDescription: p.CoverDescription,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.Format(time.RFC3339),
	}
}

func readFormFile(r *http.Request, field string) (*service.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		return nil, err
	}

	return &service.Upload{Name: header.Filename, Data: data}, nil
}

// UploadBook принимает multipart-форму нового проекта книги.
func (h *Handler) UploadBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.writeStatusError(w, http.StatusBadRequest, "Invalid multipart form data.")
		return
	}

	pageCount, err := strconv.Atoi(r.FormValue("page_count"))
	if err != nil {
		h.writeStatusError(w, http.StatusBadRequest, "page_count must be an integer.")
		return
	}

	ids := map[string]int64{}
	for _, field := range []string{"trim_size", "binding_type", "cover_finish", "interior_color", "paper_type"} {
		id, err := strconv.ParseInt(r.FormValue(field), 10, 64)
		if err != nil {
			h.writeStatusError(w, http.StatusBadRequest, field+" must be an integer.")
			return
		}
		ids[field] = id
	}

	coverFile, err := readFormFile(r, "cover_file")
	if err != nil {
		h.writeStatusError(w, http.StatusBadRequest, "Invalid cover file upload.")
		return
	}
	pdfFile, err := readFormFile(r, "pdf_file")
	if err != nil {
		h.writeStatusError(w, http.StatusBadRequest, "Invalid pdf file upload.")
		return
	}

	in := service.ProjectInput{
		Title:            r.FormValue("title"),
		Category:         r.FormValue("category"),
		Language:         r.FormValue("language"),
		PageCount:        pageCount,
		TrimSizeID:       ids["trim_size"],
		BindingTypeID:    ids["binding_type"],
		CoverFinishID:    ids["cover_finish"],
		InteriorColorID:  ids["interior_color"],
		PaperTypeID:      ids["paper_type"],
		CoverDescription: r.FormValue("cover_description"),
		CoverFile:        coverFile,
		ManuscriptFile:   pdfFile,
	}

	p, err := h.service.CreateProject(r.Context(), userID, in)
	if err != nil {
		h.writeProjectError(w, err, "upload book error")
		return
	}

	h.writeJSON(w, http.StatusCreated, struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Data    projectResponse `json:"data"`
	}{
		Status:  "success",
		Message: "Book project uploaded successfully.",
		Data:    newProjectResponse(p),
	})
}

func (h *Handler) writeProjectError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrCoverRequired):
		h.writeStatusError(w, http.StatusBadRequest, "Please provide either a cover file or a cover description.")
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, pricing.ErrInvalidSelection),
		errors.Is(err, repository.ErrCatalogRefNotFound):
		h.writeStatusError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrProjectNotFound):
		h.writeStatusError(w, http.StatusNotFound, "Book project not found.")
	default:
		h.logger.Error(logMsg, zap.Error(err))
		h.writeStatusError(w, http.StatusInternalServerError, "An error occurred while saving the project.")
	}
}

// UserBooks возвращает все проекты книг текущего пользователя, новые сначала.
func (h *Handler) UserBooks(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	books, err := h.service.ProjectsByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list user books error", zap.Error(err), zap.Int64("userID", userID))
		h.writeStatusError(w, http.StatusInternalServerError, "Failed to fetch your book projects.")
		return
	}

	data := make([]projectResponse, 0, len(books))
	for i := range books {
		data = append(data, newProjectResponse(&books[i]))
	}

	h.writeJSON(w, http.StatusOK, struct {
		Status  string            `json:"status"`
		Results int               `json:"results"`
		Data    []projectResponse `json:"data"`
	}{
		Status:  "success",
		Results: len(data),
		Data:    data,
	})
}

func projectIDFromRequest(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// BookDetail возвращает один проект книги текущего пользователя.
func (h *Handler) BookDetail(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, err := projectIDFromRequest(r)
	if err != nil {
		h.writeStatusError(w, http.StatusNotFound, "Book project not found.")
		return
	}

	p, err := h.service.ProjectByID(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			h.writeStatusError(w, http.StatusNotFound, "Book project not found.")
			return
		}
		h.logger.Error("book detail error", zap.Error(err), zap.Int64("id", id))
		h.writeStatusError(w, http.StatusInternalServerError, "Failed to fetch the book project.")
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		Status string          `json:"status"`
		Data   projectResponse `json:"data"`
	}{
		Status: "success",
		Data:   newProjectResponse(p),
	})
}

// UpdateBook применяет полное или частичное обновление проекта книги.
// Поля, отсутствующие в форме, не меняются.
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, err := projectIDFromRequest(r)
	if err != nil {
		h.writeStatusError(w, http.StatusNotFound, "Book project not found.")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.writeStatusError(w, http.StatusBadRequest, "Invalid multipart form data.")
		return
	}

	patch, err := projectPatchFromForm(r.MultipartForm)
	if err != nil {
		h.writeStatusError(w, http.StatusBadRequest, err.Error())
		return
	}

	coverFile, err := readFormFile(r, "cover_file")
	if err != nil {
		h.writeStatusError(w, http.StatusBadRequest, "Invalid cover file upload.")
		return
	}
	pdfFile, err := readFormFile(r, "pdf_file")
	if err != nil {
		h.writeStatusError(w, http.StatusBadRequest, "Invalid pdf file upload.")
		return
	}
	patch.CoverFile = coverFile
	patch.ManuscriptFile = pdfFile

	p, err := h.service.UpdateProject(r.Context(), userID, id, patch)
	if err != nil {
		h.writeProjectError(w, err, "update book error")
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Data    projectResponse `json:"data"`
	}{
		Status:  "success",
		Message: "Book project updated successfully.",
		Data:    newProjectResponse(p),
	})
}

func projectPatchFromForm(form *multipart.Form) (service.ProjectPatch, error) {
	var patch service.ProjectPatch

	stringField := func(field string) *string {
		values, ok := form.Value[field]
		if !ok || len(values) == 0 {
			return nil
		}
		return &values[0]
	}

	patch.Title = stringField("title")
	patch.Category = stringField("category")
	patch.Language = stringField("language")
	patch.CoverDescription = stringField("cover_description")

	if raw := stringField("page_count"); raw != nil {
		n, err := strconv.Atoi(*raw)
		if err != nil {
			return patch, errors.New("page_count must be an integer")
		}
		patch.PageCount = &n
	}

	intField := func(field string, dst **int64) error {
		raw := stringField(field)
		if raw == nil {
			return nil
		}
		id, err := strconv.ParseInt(*raw, 10, 64)
		if err != nil {
			return errors.New(field + " must be an integer")
		}
		*dst = &id
		return nil
	}

	for field, dst := range map[string]**int64{
		"trim_size":      &patch.TrimSizeID,
		"binding_type":   &patch.BindingTypeID,
		"cover_finish":   &patch.CoverFinishID,
		"interior_color": &patch.InteriorColorID,
		"paper_type":     &patch.PaperTypeID,
	} {
		if err := intField(field, dst); err != nil {
			return patch, err
		}
	}

	return patch, nil
}

// DeleteBook удаляет проект книги текущего пользователя.
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, err := projectIDFromRequest(r)
	if err != nil {
		h.writeStatusError(w, http.StatusNotFound, "Book project not found.")
		return
	}

	if err := h.service.DeleteProject(r.Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			h.writeStatusError(w, http.StatusNotFound, "Book project not found.")
			return
		}
		h.logger.Error("delete book error", zap.Error(err), zap.Int64("id", id))
		h.writeStatusError(w, http.StatusInternalServerError, "An error occurred while deleting the project.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AdminBooks возвращает проекты всех пользователей. Доступно только сотрудникам.
func (h *Handler) AdminBooks(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if !middleware.IsStaffFromContext(r.Context()) {
		h.writeJSON(w, http.StatusForbidden, struct {
			Detail string `json:"detail"`
		}{Detail: "Not authorized."})
		return
	}

	rows, err := h.service.AllProjects(r.Context())
	if err != nil {
		h.logger.Error("admin list books error", zap.Error(err))
		h.writeStatusError(w, http.StatusInternalServerError, "Failed to fetch book projects.")
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		Status  string                       `json:"status"`
		Results int                          `json:"results"`
		Data    []repository.AdminProjectRow `json:"data"`
	}{
		Status:  "success",
		Results: len(rows),
		Data:    rows,
	})
}
