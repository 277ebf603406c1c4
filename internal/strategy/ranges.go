// internal/strategy/ranges.go
package strategy

import (
	"math"
	"strconv"
	"strings"
)

// SynthesizeRange выводит безопасный диапазон поиска [min, max] и шаг
// для числового параметра по его порядку величины. Эвристика держит
// поиск ограниченным и пропорциональным без знания смысла параметра.
//
// Гарантия: min <= value <= max и step > 0 для любого value > 0.
func SynthesizeRange(value float64) (min, max, step float64) {
	decimals := countDecimals(value)

	switch {
	case value < 1:
		min = value * 0.1
		max = value * 5
	case value < 10:
		min = math.Max(0.1, value*0.2)
		max = value * 3
	case value < 100:
		min = math.Max(1, value*0.2)
		max = value * 3
	default:
		min = value * 0.2
		max = value * 3
	}

	// Дробные значения получают шаг своей точности, целые берут шаг полосы
	if decimals > 0 {
		step = math.Pow(10, -float64(decimals))
	} else {
		switch {
		case value < 10:
			step = 0.1
		case value < 100:
			step = 1
		default:
			step = 10
		}
	}

	return min, max, step
}

// countDecimals возвращает число значащих десятичных знаков значения
func countDecimals(value float64) int {
	s := strconv.FormatFloat(value, 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	return len(s) - dot - 1
}
