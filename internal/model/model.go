// Package model содержит доменные сущности сервиса печати книг.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет зарегистрированного пользователя сервиса.
type User struct {
	ID           int64
	Email        string
	PasswordHash []byte
	IsStaff      bool
	CreatedAt    time.Time
}

// TrimSize описывает формат страницы печатной книги.
type TrimSize struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// InteriorColor описывает вариант печати внутреннего блока с ценой за страницу.
type InteriorColor struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	PricePerPage decimal.Decimal `json:"price_per_page"`
}

// PaperType описывает тип бумаги с ценой за страницу.
type PaperType struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	PricePerPage decimal.Decimal `json:"price_per_page"`
}

// CoverFinish описывает покрытие обложки с фиксированной ценой.
type CoverFinish struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// BindingType описывает способ переплёта для конкретного формата страницы.
// Название переплёта уникально только в пределах одного формата: один и тот же
// переплёт в разных форматах имеет разные цены и диапазоны страниц.
type BindingType struct {
	ID         int64           `json:"id"`
	TrimSizeID int64           `json:"trim_size_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	MinPages   int             `json:"min_pages"`
	MaxPages   int             `json:"max_pages"`
}

// Catalog объединяет справочные данные, из которых собирается заказ книги.
type Catalog struct {
	TrimSizes      []TrimSize      `json:"trim_sizes"`
	BindingTypes   []BindingType   `json:"binding_types"`
	InteriorColors []InteriorColor `json:"interior_colors"`
	PaperTypes     []PaperType     `json:"paper_types"`
	CoverFinishes  []CoverFinish   `json:"cover_finishes"`
}

// BookProject описывает заказ пользователя на печать книги.
// При создании проекта должно быть заполнено хотя бы одно из полей
// CoverFile или CoverDescription.
type BookProject struct {
	ID               int64
	UserID           int64
	Title            string
	Category         string
	Language         string
	PageCount        int
	TrimSizeID       int64
	BindingTypeID    int64
	CoverFinishID    int64
	InteriorColorID  int64
	PaperTypeID      int64
	CoverFile        *string
	CoverDescription *string
	ManuscriptFile   *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
