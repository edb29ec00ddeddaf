// Package pricing вычисляет стоимость экземпляра книги по позициям каталога.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fastprintguys/printbook-system/internal/model"
)

// ErrInvalidSelection возвращается, если выбранные позиции каталога несовместимы
// между собой или с количеством страниц.
var ErrInvalidSelection = errors.New("invalid catalog selection")

// Selection описывает выбранные позиции каталога и количество страниц заказа.
type Selection struct {
	TrimSize  model.TrimSize
	Binding   model.BindingType
	Color     model.InteriorColor
	Paper     model.PaperType
	Finish    model.CoverFinish
	PageCount int
}

// UnitPrice вычисляет стоимость одного экземпляра книги:
// цена переплёта + страницы * (цена печати за страницу + цена бумаги за страницу)
// + цена покрытия обложки.
func UnitPrice(sel Selection) (decimal.Decimal, error) {
	if sel.PageCount <= 0 {
		return decimal.Zero, fmt.Errorf("%w: page count must be positive", ErrInvalidSelection)
	}
	if sel.Binding.TrimSizeID != sel.TrimSize.ID {
		return decimal.Zero, fmt.Errorf("%w: binding %q does not belong to trim size %q",
			ErrInvalidSelection, sel.Binding.Name, sel.TrimSize.Name)
	}
	if sel.PageCount < sel.Binding.MinPages || sel.PageCount > sel.Binding.MaxPages {
		return decimal.Zero, fmt.Errorf("%w: %d pages is outside the %d-%d range for binding %q",
			ErrInvalidSelection, sel.PageCount, sel.Binding.MinPages, sel.Binding.MaxPages, sel.Binding.Name)
	}

	perPage := sel.Color.PricePerPage.Add(sel.Paper.PricePerPage)
	pages := decimal.NewFromInt(int64(sel.PageCount))

	return sel.Binding.Price.Add(perPage.Mul(pages)).Add(sel.Finish.Price), nil
}
