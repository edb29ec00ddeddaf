// Package service реализует бизнес-логику сервиса печати книг.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fastprintguys/printbook-system/internal/binding"
	"github.com/fastprintguys/printbook-system/internal/model"
	"github.com/fastprintguys/printbook-system/internal/paypal"
	"github.com/fastprintguys/printbook-system/internal/pricing"
	"github.com/fastprintguys/printbook-system/internal/repository"
	"github.com/fastprintguys/printbook-system/internal/stripe"
)

// ErrValidation возвращается при некорректных входных данных запроса.
var (
	ErrValidation = errors.New("invalid request data")
	// ErrCoverRequired возвращается, если у проекта нет ни файла обложки,
	// ни её текстового описания.
	ErrCoverRequired = fmt.Errorf("%w: please provide either a cover file or a cover description", ErrValidation)
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrGatewayResponseShape возвращается, когда ответ шлюза не содержит
	// ожидаемых полей (ссылки одобрения или идентификатора продажи).
	ErrGatewayResponseShape = errors.New("unexpected gateway response shape")
)

// allowedCurrencies перечисляет валюты, принимаемые при создании платежа PayPal.
var allowedCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"CAD": true,
	"AUD": true,
	"JPY": true,
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, email string, passwordHash []byte, isStaff bool) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	Catalog(ctx context.Context) (*model.Catalog, error)
	GetCatalogSelection(ctx context.Context, trimSizeID, bindingTypeID, interiorColorID, paperTypeID, coverFinishID int64) (*repository.CatalogSelection, error)
	CreateProject(ctx context.Context, p *model.BookProject) error
	ProjectsByUser(ctx context.Context, userID int64) ([]model.BookProject, error)
	ProjectByID(ctx context.Context, userID, id int64) (*model.BookProject, error)
	UpdateProject(ctx context.Context, p *model.BookProject) error
	DeleteProject(ctx context.Context, userID, id int64) error
	AllProjects(ctx context.Context) ([]repository.AdminProjectRow, error)
}

// FileStore описывает контракт сохранения загруженных файлов.
type FileStore interface {
	Save(originalName string, data []byte) (string, error)
}

// Service содержит бизнес-логику сервиса печати книг.
type Service struct {
	repo            Repository
	files           FileStore
	stripeClient    *stripe.Client
	paypalClient    *paypal.Client
	paypalReturnURL string
	paypalCancelURL string
}

// NewService создаёт новый сервис с указанным репозиторием, файловым хранилищем
// и клиентами платёжных шлюзов.
func NewService(repo Repository, files FileStore, stripeClient *stripe.Client, paypalClient *paypal.Client, paypalReturnURL, paypalCancelURL string) *Service {
	return &Service{
		repo:            repo,
		files:           files,
		stripeClient:    stripeClient,
		paypalClient:    paypalClient,
		paypalReturnURL: paypalReturnURL,
		paypalCancelURL: paypalCancelURL,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (*model.User, error) {
	hashed := hashPassword(email, password)
	id, err := s.repo.CreateUser(ctx, email, hashed, false)
	if err != nil {
		return nil, err
	}
	return &model.User{ID: id, Email: email}, nil
}

// AuthenticateUser проверяет email и пароль пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hashed := hashPassword(email, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

// Catalog возвращает справочные данные каталога.
func (s *Service) Catalog(ctx context.Context) (*model.Catalog, error) {
	return s.repo.Catalog(ctx)
}

// EligibleBindings возвращает названия переплётов, допустимых для указанного
// количества страниц.
func (s *Service) EligibleBindings(pageCount int) []string {
	return binding.EligibleNames(pageCount)
}

// QuoteInput описывает параметры расчёта стоимости заказа.
type QuoteInput struct {
	TrimSizeID      int64
	BindingTypeID   int64
	InteriorColorID int64
	PaperTypeID     int64
	CoverFinishID   int64
	PageCount       int
	Quantity        int
}

// Quote содержит рассчитанную стоимость экземпляра и всего тиража.
type Quote struct {
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	Quantity   int
}

// GetQuote рассчитывает стоимость заказа по выбранным позициям каталога.
func (s *Service) GetQuote(ctx context.Context, in QuoteInput) (*Quote, error) {
	if in.Quantity <= 0 {
		in.Quantity = 1
	}

	sel, err := s.validateSelection(ctx, in.TrimSizeID, in.BindingTypeID, in.InteriorColorID, in.PaperTypeID, in.CoverFinishID, in.PageCount)
	if err != nil {
		return nil, err
	}

	unit, err := pricing.UnitPrice(pricing.Selection{
		TrimSize:  sel.TrimSize,
		Binding:   sel.Binding,
		Color:     sel.Color,
		Paper:     sel.Paper,
		Finish:    sel.Finish,
		PageCount: in.PageCount,
	})
	if err != nil {
		return nil, err
	}

	return &Quote{
		UnitPrice:  unit,
		TotalPrice: unit.Mul(decimal.NewFromInt(int64(in.Quantity))),
		Quantity:   in.Quantity,
	}, nil
}

// validateSelection загружает позиции каталога и проверяет их совместимость
// с количеством страниц, включая правила допустимости переплётов.
func (s *Service) validateSelection(ctx context.Context, trimSizeID, bindingTypeID, interiorColorID, paperTypeID, coverFinishID int64, pageCount int) (*repository.CatalogSelection, error) {
	if pageCount <= 0 {
		return nil, fmt.Errorf("%w: page_count must be positive", ErrValidation)
	}

	sel, err := s.repo.GetCatalogSelection(ctx, trimSizeID, bindingTypeID, interiorColorID, paperTypeID, coverFinishID)
	if err != nil {
		return nil, err
	}

	if !binding.IsEligible(pageCount, sel.Binding.Name) {
		return nil, fmt.Errorf("%w: binding %q is not available for %d pages", ErrValidation, sel.Binding.Name, pageCount)
	}

	if _, err := pricing.UnitPrice(pricing.Selection{
		TrimSize:  sel.TrimSize,
		Binding:   sel.Binding,
		Color:     sel.Color,
		Paper:     sel.Paper,
		Finish:    sel.Finish,
		PageCount: pageCount,
	}); err != nil {
		return nil, err
	}

	return sel, nil
}

// Upload описывает загруженный пользователем файл.
type Upload struct {
	Name string
	Data []byte
}

// ProjectInput описывает данные для создания проекта книги.
type ProjectInput struct {
	Title            string
	Category         string
	Language         string
	PageCount        int
	TrimSizeID       int64
	BindingTypeID    int64
	CoverFinishID    int64
	InteriorColorID  int64
	PaperTypeID      int64
	CoverDescription string
	CoverFile        *Upload
	ManuscriptFile   *Upload
}

// CreateProject проверяет и сохраняет новый проект книги пользователя.
func (s *Service) CreateProject(ctx context.Context, userID int64, in ProjectInput) (*model.BookProject, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.CoverFile == nil && strings.TrimSpace(in.CoverDescription) == "" {
		return nil, ErrCoverRequired
	}

	if _, err := s.validateSelection(ctx, in.TrimSizeID, in.BindingTypeID, in.InteriorColorID, in.PaperTypeID, in.CoverFinishID, in.PageCount); err != nil {
		return nil, err
	}

	p := &model.BookProject{
		UserID:          userID,
		Title:           in.Title,
		Category:        in.Category,
		Language:        in.Language,
		PageCount:       in.PageCount,
		TrimSizeID:      in.TrimSizeID,
		BindingTypeID:   in.BindingTypeID,
		CoverFinishID:   in.CoverFinishID,
		InteriorColorID: in.InteriorColorID,
		PaperTypeID:     in.PaperTypeID,
	}

	if desc := strings.TrimSpace(in.CoverDescription); desc != "" {
		p.CoverDescription = &desc
	}

	if in.CoverFile != nil {
		key, err := s.files.Save(in.CoverFile.Name, in.CoverFile.Data)
		if err != nil {
			return nil, fmt.Errorf("save cover file: %w", err)
		}
		p.CoverFile = &key
	}
	if in.ManuscriptFile != nil {
		key, err := s.files.Save(in.ManuscriptFile.Name, in.ManuscriptFile.Data)
		if err != nil {
			return nil, fmt.Errorf("save manuscript file: %w", err)
		}
		p.ManuscriptFile = &key
	}

	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// ProjectsByUser возвращает проекты пользователя, новые сначала.
func (s *Service) ProjectsByUser(ctx context.Context, userID int64) ([]model.BookProject, error) {
	return s.repo.ProjectsByUser(ctx, userID)
}

// ProjectByID возвращает проект пользователя по идентификатору.
func (s *Service) ProjectByID(ctx context.Context, userID, id int64) (*model.BookProject, error) {
	return s.repo.ProjectByID(ctx, userID, id)
}

// ProjectPatch описывает частичное обновление проекта книги. Нулевые указатели
// означают, что поле не меняется.
type ProjectPatch struct {
	Title            *string
	Category         *string
	Language         *string
	PageCount        *int
	TrimSizeID       *int64
	BindingTypeID    *int64
	CoverFinishID    *int64
	InteriorColorID  *int64
	PaperTypeID      *int64
	CoverDescription *string
	CoverFile        *Upload
	ManuscriptFile   *Upload
}

// UpdateProject применяет частичное обновление к проекту пользователя.
// Требование обложки проверяется по объединённому состоянию: новый файл, иначе
// новое описание, иначе уже сохранённое описание.
func (s *Service) UpdateProject(ctx context.Context, userID, id int64, patch ProjectPatch) (*model.BookProject, error) {
	p, err := s.repo.ProjectByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Language != nil {
		p.Language = *patch.Language
	}
	if patch.PageCount != nil {
		p.PageCount = *patch.PageCount
	}
	if patch.TrimSizeID != nil {
		p.TrimSizeID = *patch.TrimSizeID
	}
	if patch.BindingTypeID != nil {
		p.BindingTypeID = *patch.BindingTypeID
	}
	if patch.CoverFinishID != nil {
		p.CoverFinishID = *patch.CoverFinishID
	}
	if patch.InteriorColorID != nil {
		p.InteriorColorID = *patch.InteriorColorID
	}
	if patch.PaperTypeID != nil {
		p.PaperTypeID = *patch.PaperTypeID
	}
	if patch.CoverDescription != nil {
		desc := strings.TrimSpace(*patch.CoverDescription)
		if desc == "" {
			p.CoverDescription = nil
		} else {
			p.CoverDescription = &desc
		}
	}

	if patch.CoverFile == nil && p.CoverDescription == nil {
		return nil, ErrCoverRequired
	}

	if strings.TrimSpace(p.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	if _, err := s.validateSelection(ctx, p.TrimSizeID, p.BindingTypeID, p.InteriorColorID, p.PaperTypeID, p.CoverFinishID, p.PageCount); err != nil {
		return nil, err
	}

	if patch.CoverFile != nil {
		key, err := s.files.Save(patch.CoverFile.Name, patch.CoverFile.Data)
		if err != nil {
			return nil, fmt.Errorf("save cover file: %w", err)
		}
		p.CoverFile = &key
	}
	if patch.ManuscriptFile != nil {
		key, err := s.files.Save(patch.ManuscriptFile.Name, patch.ManuscriptFile.Data)
		if err != nil {
			return nil, fmt.Errorf("save manuscript file: %w", err)
		}
		p.ManuscriptFile = &key
	}

	if err := s.repo.UpdateProject(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// DeleteProject удаляет проект пользователя.
func (s *Service) DeleteProject(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteProject(ctx, userID, id)
}

// AllProjects возвращает проекты всех пользователей для административного списка.
func (s *Service) AllProjects(ctx context.Context) ([]repository.AdminProjectRow, error) {
	return s.repo.AllProjects(ctx)
}

// CheckoutItem описывает позицию checkout-сессии Stripe.
type CheckoutItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CreateCheckout проверяет позиции и создаёт checkout-сессию Stripe.
// Валидация выполняется до какого-либо обращения к шлюзу.
func (s *Service) CreateCheckout(ctx context.Context, items []CheckoutItem) (*stripe.CheckoutSession, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: items are required", ErrValidation)
	}
	for _, item := range items {
		if item.Name == "" || item.UnitAmount <= 0 || item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: each item must have name, unit_amount, and quantity", ErrValidation)
		}
	}

	lineItems := make([]stripe.LineItem, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, stripe.LineItem{
			Name:       item.Name,
			UnitAmount: item.UnitAmount,
			Quantity:   item.Quantity,
		})
	}

	return s.stripeClient.CreateCheckoutSession(ctx, lineItems)
}

// PayPalPaymentInput описывает параметры создания платежа PayPal.
// Amount передаётся строкой в том виде, в каком пришёл от клиента.
type PayPalPaymentInput struct {
	Amount    string
	Currency  string
	ReturnURL string
	CancelURL string
}

// CreatedPayment содержит нормализованный результат создания платежа PayPal.
type CreatedPayment struct {
	PaymentID   string
	ApprovalURL string
	Status      string
}

// CreatePayPalPayment проверяет параметры и создаёт платёж PayPal.
// Валидация выполняется до какого-либо обращения к шлюзу.
func (s *Service) CreatePayPalPayment(ctx context.Context, in PayPalPaymentInput) (*CreatedPayment, error) {
	if strings.TrimSpace(in.Amount) == "" {
		return nil, fmt.Errorf("%w: amount is required", ErrValidation)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount format", ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrValidation)
	}

	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}
	if !allowedCurrencies[currency] {
		return nil, fmt.Errorf("%w: unsupported currency %q", ErrValidation, currency)
	}

	returnURL := in.ReturnURL
	if returnURL == "" {
		returnURL = s.paypalReturnURL
	}
	cancelURL := in.CancelURL
	if cancelURL == "" {
		cancelURL = s.paypalCancelURL
	}

	total := amount.StringFixed(2)

	created, err := s.paypalClient.CreatePayment(ctx, &paypal.Payment{
		Intent: "sale",
		Payer:  paypal.Payer{PaymentMethod: "paypal"},
		RedirectURLs: &paypal.RedirectURLs{
			ReturnURL: returnURL,
			CancelURL: cancelURL,
		},
		Transactions: []paypal.Transaction{
			{
				Amount:      paypal.Amount{Total: total, Currency: currency},
				Description: "Book purchase transaction",
				ItemList: &paypal.ItemList{
					Items: []paypal.Item{
						{
							Name:     "Book Order",
							SKU:      "book-001",
							Price:    total,
							Currency: currency,
							Quantity: 1,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	approvalURL := created.ApprovalURL()
	if approvalURL == "" {
		return nil, fmt.Errorf("%w: approval url missing", ErrGatewayResponseShape)
	}

	return &CreatedPayment{
		PaymentID:   created.ID,
		ApprovalURL: approvalURL,
		Status:      "created",
	}, nil
}

// ExecutedPayment содержит нормализованный результат проведения платежа PayPal.
type ExecutedPayment struct {
	PaymentID     string
	Status        string
	PayerInfo     json.RawMessage
	TransactionID string
}

// ExecutePayPalPayment проводит одобренный платёж и извлекает идентификатор продажи.
func (s *Service) ExecutePayPalPayment(ctx context.Context, paymentID, payerID string) (*ExecutedPayment, error) {
	if paymentID == "" || payerID == "" {
		return nil, fmt.Errorf("%w: payment ID and payer ID are required", ErrValidation)
	}

	executed, err := s.paypalClient.ExecutePayment(ctx, paymentID, payerID)
	if err != nil {
		return nil, err
	}

	if len(executed.Transactions) == 0 ||
		len(executed.Transactions[0].RelatedResources) == 0 ||
		executed.Transactions[0].RelatedResources[0].Sale == nil {
		return nil, fmt.Errorf("%w: sale id missing", ErrGatewayResponseShape)
	}

	return &ExecutedPayment{
		PaymentID:     executed.ID,
		Status:        "completed",
		PayerInfo:     executed.Payer.PayerInfo,
		TransactionID: executed.Transactions[0].RelatedResources[0].Sale.ID,
	}, nil
}

// PayPalPaymentDetails возвращает полную запись платежа из шлюза.
func (s *Service) PayPalPaymentDetails(ctx context.Context, paymentID string) (*paypal.Payment, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment ID is required", ErrValidation)
	}
	return s.paypalClient.GetPayment(ctx, paymentID)
}
