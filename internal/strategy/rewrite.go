// internal/strategy/rewrite.go
package strategy

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

var reNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Rewrite подставляет значения кандидата обратно в текст стратегии.
// Для каждой переменной в ее исходном фрагменте (SourcePattern)
// заменяется числовой литерал, после чего фрагмент заменяет вхождение
// оригинала только на строке LineIndex. Переменные без совпадения
// пропускаются: исходный текст мог быть отредактирован после извлечения.
func Rewrite(source string, variables []*models.DetectedVariable, values []models.VariableValue) string {
	byName := make(map[string]float64, len(values))
	for _, v := range values {
		byName[v.Name] = v.Value
	}

	lines := strings.Split(source, "\n")
	for _, variable := range variables {
		value, ok := byName[variable.Name]
		if !ok || variable.SourcePattern == "" {
			continue
		}
		if variable.LineIndex < 0 || variable.LineIndex >= len(lines) {
			continue
		}

		// Заменяется только последний литерал: имя переменной само
		// может содержать цифры (myVar2 = 14)
		locs := reNumber.FindAllStringIndex(variable.SourcePattern, -1)
		if len(locs) == 0 {
			continue
		}
		last := locs[len(locs)-1]
		replacement := variable.SourcePattern[:last[0]] + formatValue(value) + variable.SourcePattern[last[1]:]
		if replacement == variable.SourcePattern {
			continue
		}

		lines[variable.LineIndex] = strings.Replace(lines[variable.LineIndex], variable.SourcePattern, replacement, 1)
	}

	return strings.Join(lines, "\n")
}

// formatValue форматирует значение без лишних нулей
func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
