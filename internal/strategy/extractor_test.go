package strategy

import (
	"strings"
	"testing"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

const sampleStrategy = `// Сгенерированная стратегия
REM служебный комментарий
period = 14
once threshold = 2.5
ma = Average[20](close)
ema = ExponentialAverage[9](close)
r = RSI[14](close)
SET STOP pLOSS 50
SET TARGET pPROFIT 120
close = 5
negative = -3
period = 99
`

func TestExtractVariablesPatterns(t *testing.T) {
	vars := ExtractVariables(sampleStrategy)

	byName := make(map[string]float64)
	for _, v := range vars {
		byName[v.Name] = v.OriginalValue
	}

	want := map[string]float64{
		"period":       14,
		"threshold":    2.5,
		"avgPeriod_L4": 20,
		"emaPeriod_L5": 9,
		"rsiPeriod_L6": 14,
		"stopLoss":     50,
		"takeProfit":   120,
	}

	for name, value := range want {
		got, ok := byName[name]
		if !ok {
			t.Errorf("переменная %q не извлечена", name)
			continue
		}
		if got != value {
			t.Errorf("%s: значение %v, ожидалось %v", name, got, value)
		}
	}

	if _, ok := byName["close"]; ok {
		t.Error("зарезервированное имя close не должно извлекаться")
	}
	if _, ok := byName["negative"]; ok {
		t.Error("неположительное значение не должно извлекаться")
	}
}

func TestExtractVariablesFirstWins(t *testing.T) {
	vars := ExtractVariables("period = 14\nperiod = 99\n")
	if len(vars) != 1 {
		t.Fatalf("ожидалась одна переменная, получено %d", len(vars))
	}
	if vars[0].OriginalValue != 14 {
		t.Errorf("первое вхождение должно побеждать: %v", vars[0].OriginalValue)
	}
}

func TestExtractVariablesCommentsSkipped(t *testing.T) {
	vars := ExtractVariables("// period = 14\nREM period = 14\n")
	if len(vars) != 0 {
		t.Errorf("комментарии не должны давать переменных, получено %d", len(vars))
	}
}

func TestExtractVariablesNeverPanics(t *testing.T) {
	for _, src := range []string{"", "== = =", "x = not_a_number", "SET STOP pLOSS abc"} {
		if vars := ExtractVariables(src); len(vars) != 0 {
			t.Errorf("из %q неожиданно извлечены переменные", src)
		}
	}
}

func TestExtractVariablesRangeInvariant(t *testing.T) {
	vars := ExtractVariables(sampleStrategy)
	for _, v := range vars {
		if v.Min > v.CurrentValue || v.CurrentValue > v.Max {
			t.Errorf("%s: нарушен инвариант min <= value <= max (%v, %v, %v)",
				v.Name, v.Min, v.CurrentValue, v.Max)
		}
		if v.Step <= 0 {
			t.Errorf("%s: шаг должен быть положительным, получен %v", v.Name, v.Step)
		}
	}
}

func TestRewriteSubstitutesValues(t *testing.T) {
	source := "period = 14\nSET STOP pLOSS 50\n"
	vars := ExtractVariables(source)

	result := Rewrite(source, vars, []models.VariableValue{
		{Name: "period", Value: 21},
		{Name: "stopLoss", Value: 75},
	})

	if !strings.Contains(result, "period = 21") {
		t.Errorf("значение period не подставлено: %q", result)
	}
	if !strings.Contains(result, "SET STOP pLOSS 75") {
		t.Errorf("значение stopLoss не подставлено: %q", result)
	}
}

func TestRewriteCollidingNames(t *testing.T) {
	// Фрагмент "a = 5" является подстрокой "beta = 50": подстановка
	// обязана работать построчно, иначе чужая строка будет испорчена
	source := "beta = 50\na = 5\n"
	vars := ExtractVariables(source)

	result := Rewrite(source, vars, []models.VariableValue{
		{Name: "beta", Value: 57},
		{Name: "a", Value: 9},
	})

	if result != "beta = 57\na = 9\n" {
		t.Errorf("подстановка задела соседнюю строку: %q", result)
	}
}

func TestRewriteStaleLineIndex(t *testing.T) {
	vars := ExtractVariables("period = 14\n")
	vars[0].LineIndex = 42

	result := Rewrite("period = 14\n", vars, []models.VariableValue{
		{Name: "period", Value: 21},
	})

	if result != "period = 14\n" {
		t.Errorf("переменная вне текста должна пропускаться: %q", result)
	}
}
