// Package binding содержит правила допустимости переплётов по количеству страниц.
package binding

// Названия переплётов, известные правилам допустимости.
const (
	CoilBound    = "Coil Bound"
	SaddleStitch = "Saddle Stitch"
	CaseWrap     = "Case Wrap"
	PerfectBound = "Perfect Bound"
	LinenWrap    = "Linen Wrap"
)

// EligibleNames возвращает множество названий переплётов, допустимых для
// указанного количества страниц. Результат не зависит от формата страницы.
// Нижние границы включительны; свыше 48 страниц скрепка физически невозможна,
// свыше 470 страниц пружина превышает предел оборудования.
func EligibleNames(pageCount int) []string {
	var names []string
	if pageCount >= 3 {
		names = append(names, CoilBound)
	}
	if pageCount >= 4 {
		names = append(names, SaddleStitch)
	}
	if pageCount >= 24 {
		names = append(names, CaseWrap)
	}
	if pageCount >= 32 {
		names = append(names, PerfectBound, LinenWrap)
	}
	if pageCount > 48 {
		names = exclude(names, SaddleStitch)
	}
	if pageCount > 470 {
		names = exclude(names, CoilBound)
	}
	return names
}

// IsEligible сообщает, допустим ли переплёт с указанным названием для
// заданного количества страниц.
func IsEligible(pageCount int, name string) bool {
	for _, n := range EligibleNames(pageCount) {
		if n == name {
			return true
		}
	}
	return false
}

func exclude(names []string, name string) []string {
	res := names[:0]
	for _, n := range names {
		if n != name {
			res = append(res, n)
		}
	}
	return res
}
