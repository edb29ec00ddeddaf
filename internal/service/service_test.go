package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fastprintguys/printbook-system/internal/model"
	"github.com/fastprintguys/printbook-system/internal/repository"
)

func testCatalogSelection() *repository.CatalogSelection {
	return &repository.CatalogSelection{
		TrimSize: model.TrimSize{ID: 1, Name: "US Trade (6 x 9 in)"},
		Binding: model.BindingType{
			ID:         10,
			TrimSizeID: 1,
			Name:       "Perfect Bound",
			Price:      decimal.RequireFromString("2.00"),
			MinPages:   32,
			MaxPages:   470,
		},
		Color: model.InteriorColor{
			ID:           20,
			Name:         "Standard Black & White",
			PricePerPage: decimal.RequireFromString("0.01"),
		},
		Paper: model.PaperType{
			ID:           30,
			Name:         "60# Cream-Uncoated",
			PricePerPage: decimal.RequireFromString("0.01"),
		},
		Finish: model.CoverFinish{
			ID:    40,
			Name:  "Gloss",
			Price: decimal.RequireFromString("0.20"),
		},
	}
}

type stubRepo struct {
	createUserID  int64
	createUserErr error

	getUser    *model.User
	getUserErr error

	selection    *repository.CatalogSelection
	selectionErr error

	createdProject *model.BookProject
	createErr      error

	project    *model.BookProject
	projectErr error

	updatedProject *model.BookProject
	updateErr      error

	deleteErr error
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, email string, passwordHash []byte, isStaff bool) (int64, error) {
	return s.createUserID, s.createUserErr
}

func (s *stubRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser, s.getUserErr
}

func (s *stubRepo) Catalog(ctx context.Context) (*model.Catalog, error) {
	return &model.Catalog{}, nil
}

func (s *stubRepo) GetCatalogSelection(ctx context.Context, trimSizeID, bindingTypeID, interiorColorID, paperTypeID, coverFinishID int64) (*repository.CatalogSelection, error) {
	return s.selection, s.selectionErr
}

func (s *stubRepo) CreateProject(ctx context.Context, p *model.BookProject) error {
	s.createdProject = p
	return s.createErr
}

func (s *stubRepo) ProjectsByUser(ctx context.Context, userID int64) ([]model.BookProject, error) {
	return nil, nil
}

func (s *stubRepo) ProjectByID(ctx context.Context, userID, id int64) (*model.BookProject, error) {
	return s.project, s.projectErr
}

func (s *stubRepo) UpdateProject(ctx context.Context, p *model.BookProject) error {
	s.updatedProject = p
	return s.updateErr
}

func (s *stubRepo) DeleteProject(ctx context.Context, userID, id int64) error {
	return s.deleteErr
}

func (s *stubRepo) AllProjects(ctx context.Context) ([]repository.AdminProjectRow, error) {
	return nil, nil
}

type stubFiles struct {
	key string
	err error
}

func (s *stubFiles) Save(originalName string, data []byte) (string, error) {
	return s.key, s.err
}

func validProjectInput() ProjectInput {
	return ProjectInput{
		Title:            "My Book",
		Category:         "Fiction",
		Language:         "English",
		PageCount:        100,
		TrimSizeID:       1,
		BindingTypeID:    10,
		CoverFinishID:    40,
		InteriorColorID:  20,
		PaperTypeID:      30,
		CoverDescription: "blue cover with gold letters",
	}
}

func TestHashPasswordDeterministic(t *testing.T) {
	a := hashPassword("user@example.com", "pass")
	b := hashPassword("user@example.com", "pass")
	c := hashPassword("user@example.com", "other")

	if string(a) != string(b) {
		t.Fatalf("hashPassword must be deterministic, got %x and %x", a, b)
	}
	if string(a) == string(c) {
		t.Fatalf("different passwords must produce different hashes")
	}
}

func TestRegisterUser_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{
		createUserErr: repository.ErrUserExists,
	}
	svc := NewService(repo, nil, nil, nil, "", "")

	_, err := svc.RegisterUser(context.Background(), "user@example.com", "pass")
	if !errors.Is(err, repository.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthenticateUser_InvalidCredentials(t *testing.T) {
	hashed := hashPassword("user@example.com", "correct")
	repo := &stubRepo{
		getUser: &model.User{
			ID:           1,
			Email:        "user@example.com",
			PasswordHash: hashed,
		},
	}
	svc := NewService(repo, nil, nil, nil, "", "")

	_, err := svc.AuthenticateUser(context.Background(), "user@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCreateProject_CoverRequired(t *testing.T) {
	repo := &stubRepo{selection: testCatalogSelection()}
	svc := NewService(repo, &stubFiles{key: "stored"}, nil, nil, "", "")

	in := validProjectInput()
	in.CoverDescription = ""
	in.CoverFile = nil

	_, err := svc.CreateProject(context.Background(), 1, in)
	if !errors.Is(err, ErrCoverRequired) {
		t.Fatalf("expected ErrCoverRequired, got %v", err)
	}
}

func TestCreateProject_CoverDescriptionAlone(t *testing.T) {
	repo := &stubRepo{selection: testCatalogSelection()}
	svc := NewService(repo, &stubFiles{key: "stored"}, nil, nil, "", "")

	p, err := svc.CreateProject(context.Background(), 1, validProjectInput())
	if err != nil {
		t.Fatalf("CreateProject error: %v", err)
	}
	if p.CoverDescription == nil || *p.CoverDescription != "blue cover with gold letters" {
		t.Fatalf("cover description not stored: %+v", p)
	}
	if p.CoverFile != nil {
		t.Fatalf("unexpected cover file: %v", *p.CoverFile)
	}
}

func TestCreateProject_CoverFileAlone(t *testing.T) {
	repo := &stubRepo{selection: testCatalogSelection()}
	svc := NewService(repo, &stubFiles{key: "abc.png"}, nil, nil, "", "")

	in := validProjectInput()
	in.CoverDescription = ""
	in.CoverFile = &Upload{Name: "cover.png", Data: []byte("png")}

	p, err := svc.CreateProject(context.Background(), 1, in)
	if err != nil {
		t.Fatalf("CreateProject error: %v", err)
	}
	if p.CoverFile == nil || *p.CoverFile != "abc.png" {
		t.Fatalf("cover file not stored: %+v", p)
	}
}

func TestCreateProject_UnknownCatalogReference(t *testing.T) {
	repo := &stubRepo{selectionErr: repository.ErrCatalogRefNotFound}
	svc := NewService(repo, &stubFiles{}, nil, nil, "", "")

	_, err := svc.CreateProject(context.Background(), 1, validProjectInput())
	if !errors.Is(err, repository.ErrCatalogRefNotFound) {
		t.Fatalf("expected ErrCatalogRefNotFound, got %v", err)
	}
}

func TestCreateProject_IneligibleBinding(t *testing.T) {
	sel := testCatalogSelection()
	sel.Binding.Name = "Saddle Stitch"
	sel.Binding.MinPages = 4
	sel.Binding.MaxPages = 48
	repo := &stubRepo{selection: sel}
	svc := NewService(repo, &stubFiles{}, nil, nil, "", "")

	in := validProjectInput()
	in.PageCount = 100 // за пределом скрепки

	_, err := svc.CreateProject(context.Background(), 1, in)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateProject_TitleOnlyKeepsExistingCover(t *testing.T) {
	desc := "existing description"
	repo := &stubRepo{
		selection: testCatalogSelection(),
		project: &model.BookProject{
			ID:               5,
			UserID:           1,
			Title:            "Old Title",
			PageCount:        100,
			TrimSizeID:       1,
			BindingTypeID:    10,
			CoverFinishID:    40,
			InteriorColorID:  20,
			PaperTypeID:      30,
			CoverDescription: &desc,
		},
	}
	svc := NewService(repo, &stubFiles{}, nil, nil, "", "")

	newTitle := "New Title"
	p, err := svc.UpdateProject(context.Background(), 1, 5, ProjectPatch{Title: &newTitle})
	if err != nil {
		t.Fatalf("UpdateProject error: %v", err)
	}
	if p.Title != "New Title" {
		t.Fatalf("title = %q, want New Title", p.Title)
	}
	if p.CoverDescription == nil || *p.CoverDescription != desc {
		t.Fatalf("existing cover description must be kept: %+v", p)
	}
}

func TestUpdateProject_ClearingCoverDescriptionFails(t *testing.T) {
	desc := "existing description"
	repo := &stubRepo{
		selection: testCatalogSelection(),
		project: &model.BookProject{
			ID:               5,
			UserID:           1,
			Title:            "Title",
			PageCount:        100,
			TrimSizeID:       1,
			BindingTypeID:    10,
			CoverFinishID:    40,
			InteriorColorID:  20,
			PaperTypeID:      30,
			CoverDescription: &desc,
		},
	}
	svc := NewService(repo, &stubFiles{}, nil, nil, "", "")

	empty := ""
	_, err := svc.UpdateProject(context.Background(), 1, 5, ProjectPatch{CoverDescription: &empty})
	if !errors.Is(err, ErrCoverRequired) {
		t.Fatalf("expected ErrCoverRequired, got %v", err)
	}
}

func TestUpdateProject_NotFoundPassesThrough(t *testing.T) {
	repo := &stubRepo{projectErr: repository.ErrProjectNotFound}
	svc := NewService(repo, &stubFiles{}, nil, nil, "", "")

	_, err := svc.UpdateProject(context.Background(), 1, 99, ProjectPatch{})
	if !errors.Is(err, repository.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestGetQuote_ComputesUnitAndTotal(t *testing.T) {
	repo := &stubRepo{selection: testCatalogSelection()}
	svc := NewService(repo, nil, nil, nil, "", "")

	quote, err := svc.GetQuote(context.Background(), QuoteInput{
		TrimSizeID:      1,
		BindingTypeID:   10,
		InteriorColorID: 20,
		PaperTypeID:     30,
		CoverFinishID:   40,
		PageCount:       100,
		Quantity:        3,
	})
	if err != nil {
		t.Fatalf("GetQuote error: %v", err)
	}

	// 2.00 + 100*(0.01+0.01) + 0.20 = 4.20
	if !quote.UnitPrice.Equal(decimal.RequireFromString("4.20")) {
		t.Fatalf("unit price = %s, want 4.20", quote.UnitPrice)
	}
	if !quote.TotalPrice.Equal(decimal.RequireFromString("12.60")) {
		t.Fatalf("total price = %s, want 12.60", quote.TotalPrice)
	}
}

func TestCreateCheckout_ValidatesBeforeGatewayCall(t *testing.T) {
	// Клиент шлюза намеренно nil: при корректной валидации до него не доходит.
	svc := NewService(&stubRepo{}, nil, nil, nil, "", "")

	tests := []struct {
		name  string
		items []CheckoutItem
	}{
		{name: "no items", items: nil},
		{name: "missing name", items: []CheckoutItem{{UnitAmount: 100, Quantity: 1}}},
		{name: "missing unit amount", items: []CheckoutItem{{Name: "Book Order", Quantity: 1}}},
		{name: "missing quantity", items: []CheckoutItem{{Name: "Book Order", UnitAmount: 100}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCheckout(context.Background(), tt.items)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreatePayPalPayment_ValidatesBeforeGatewayCall(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, nil, nil, "", "")

	tests := []struct {
		name string
		in   PayPalPaymentInput
	}{
		{name: "missing amount", in: PayPalPaymentInput{}},
		{name: "negative amount", in: PayPalPaymentInput{Amount: "-5"}},
		{name: "zero amount", in: PayPalPaymentInput{Amount: "0"}},
		{name: "non numeric amount", in: PayPalPaymentInput{Amount: "abc"}},
		{name: "unsupported currency", in: PayPalPaymentInput{Amount: "10.00", Currency: "XYZ"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePayPalPayment(context.Background(), tt.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestExecutePayPalPayment_RequiresIDs(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, nil, nil, "", "")

	_, err := svc.ExecutePayPalPayment(context.Background(), "", "PAYER-1")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty payment id, got %v", err)
	}

	_, err = svc.ExecutePayPalPayment(context.Background(), "PAY-1", "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty payer id, got %v", err)
	}
}

func TestPayPalPaymentDetails_RequiresID(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, nil, nil, "", "")

	_, err := svc.PayPalPaymentDetails(context.Background(), "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
