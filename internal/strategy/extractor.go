// internal/strategy/extractor.go
package strategy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

// Зарезервированные имена языка стратегий: поля цены, объема и счетчик баров.
// Совпадения с ними не являются настраиваемыми параметрами.
var reservedNames = map[string]bool{
	"close":        true,
	"open":         true,
	"high":         true,
	"low":          true,
	"volume":       true,
	"barindex":     true,
	"currentbar":   true,
	"typicalprice": true,
}

// Регулярные выражения известных конструкций языка стратегий.
// Порядок фиксирован: присваивание, инициализация первого бара,
// директивы стоп-лосса и тейк-профита, три индикаторных периода.
var (
	reAssignment = regexp.MustCompile(`(?i)^\s*([a-zA-Z_]\w*)\s*=\s*(-?\d+(?:\.\d+)?)\s*$`)
	reOnceInit   = regexp.MustCompile(`(?i)^\s*once\s+([a-zA-Z_]\w*)\s*=\s*(-?\d+(?:\.\d+)?)`)
	reStopLoss   = regexp.MustCompile(`(?i)set\s+stop\s+p?loss\s+(\d+(?:\.\d+)?)`)
	reTakeProfit = regexp.MustCompile(`(?i)set\s+target\s+p?profit\s+(\d+(?:\.\d+)?)`)
	reAvgPeriod  = regexp.MustCompile(`(?i)\baverage\[(\d+)\]`)
	reEmaPeriod  = regexp.MustCompile(`(?i)\bexponentialaverage\[(\d+)\]`)
	reRsiPeriod  = regexp.MustCompile(`(?i)\brsi\[(\d+)\]`)
)

// ExtractVariables сканирует текст стратегии и возвращает найденные
// числовые параметры. Никогда не возвращает ошибку: неразбираемые
// значения и зарезервированные имена молча пропускаются.
// На каждое уникальное имя приходится не более одной переменной,
// побеждает первое вхождение.
func ExtractVariables(source string) []*models.DetectedVariable {
	var variables []*models.DetectedVariable
	seen := make(map[string]bool)

	curLine := 0
	add := func(name string, value float64, pattern string) {
		if value <= 0 {
			return
		}
		if reservedNames[strings.ToLower(name)] {
			return
		}
		if seen[name] {
			return
		}
		seen[name] = true

		min, max, step := SynthesizeRange(value)
		variables = append(variables, &models.DetectedVariable{
			Name:                  name,
			OriginalValue:         value,
			CurrentValue:          value,
			Min:                   min,
			Max:                   max,
			Step:                  step,
			SourcePattern:         pattern,
			LineIndex:             curLine,
			IncludeInOptimization: true,
		})
	}

	for lineIdx, line := range strings.Split(source, "\n") {
		curLine = lineIdx
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			continue
		}

		// Инициализация первого бара проверяется раньше простого
		// присваивания: строка "once x = 3" подошла бы под оба шаблона
		if m := reOnceInit.FindStringSubmatch(trimmed); m != nil {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				add(m[1], v, m[0])
			}
		} else if m := reAssignment.FindStringSubmatch(trimmed); m != nil {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				add(m[1], v, m[0])
			}
		}

		if m := reStopLoss.FindStringSubmatch(trimmed); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				add("stopLoss", v, m[0])
			}
		}
		if m := reTakeProfit.FindStringSubmatch(trimmed); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				add("takeProfit", v, m[0])
			}
		}

		// Периоды индикаторов именуются с суффиксом строки,
		// чтобы одинаковые конструкции на разных строках не сталкивались
		if m := reEmaPeriod.FindStringSubmatch(trimmed); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				add(fmt.Sprintf("emaPeriod_L%d", lineIdx), v, m[0])
			}
		}
		if m := reAvgPeriod.FindStringSubmatch(trimmed); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				add(fmt.Sprintf("avgPeriod_L%d", lineIdx), v, m[0])
			}
		}
		if m := reRsiPeriod.FindStringSubmatch(trimmed); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				add(fmt.Sprintf("rsiPeriod_L%d", lineIdx), v, m[0])
			}
		}
	}

	return variables
}

// isComment сообщает, является ли строка комментарием языка стратегий
func isComment(line string) bool {
	lower := strings.ToLower(line)
	return strings.HasPrefix(line, "//") || strings.HasPrefix(lower, "rem ")
}
