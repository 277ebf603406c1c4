// internal/optimize/optimizer.go
package optimize

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/config"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/strategy"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/logger"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

// Evaluator внешний исполнитель бэктеста. Для оптимизатора это
// черный ящик: текст стратегии с подставленными значениями, окно
// свечей и настройки на входе, агрегат прогона на выходе.
type Evaluator interface {
	Run(ctx context.Context, strategyText string, candles []*models.Candle, settings models.TradeSettings) (*models.BacktestResult, error)
}

// Optimizer выполняет рандомизированный поиск по диапазонам
// извлеченных переменных и ранжирует кандидатов по выбранной метрике
type Optimizer struct {
	config    config.OptimizerConfig
	evaluator Evaluator
	rng       *rand.Rand

	// Набор переменных может разделяться с живым циклом;
	// доступ к нему сериализуется
	mu sync.Mutex
}

// NewOptimizer создает оптимизатор с заданным исполнителем бэктестов
func NewOptimizer(cfg config.OptimizerConfig, evaluator Evaluator) *Optimizer {
	return &Optimizer{
		config:    cfg,
		evaluator: evaluator,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run выполняет N итераций поиска. Итерации с ошибкой бэктеста
// логируются и пропускаются без повтора. Возвращает кандидатов,
// отсортированных по убыванию оценки; первый кандидат является рекомендацией.
func (o *Optimizer) Run(ctx context.Context, strategyText string, variables []*models.DetectedVariable, candles []*models.Candle, settings models.TradeSettings) ([]*models.OptimizationCandidate, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var candidates []*models.OptimizationCandidate

	for i := 0; i < o.config.Iterations; i++ {
		select {
		case <-ctx.Done():
			return rank(candidates, o.config.TopN), ctx.Err()
		default:
		}

		values := o.drawCandidate(variables)
		candidateText := strategy.Rewrite(strategyText, variables, values)

		result, err := o.evaluator.Run(ctx, candidateText, candles, settings)
		if err != nil {
			logger.Warn("Итерация оптимизации пропущена",
				zap.Int("iteration", i),
				zap.Error(err))
			continue
		}

		candidates = append(candidates, &models.OptimizationCandidate{
			Variables: values,
			Result:    result,
			Score:     scoreResult(result, o.config.Metric),
		})

		// Пауза между итерациями оставляет хост отзывчивым;
		// к алгоритму она отношения не имеет
		if o.config.DelayMs > 0 && i < o.config.Iterations-1 {
			select {
			case <-time.After(time.Duration(o.config.DelayMs) * time.Millisecond):
			case <-ctx.Done():
				return rank(candidates, o.config.TopN), ctx.Err()
			}
		}
	}

	return rank(candidates, o.config.TopN), nil
}

// drawCandidate выбирает значение каждой включенной переменной
// равномерно из [min, max] с округлением к ближайшему шагу.
// Исключенные переменные сохраняют текущее значение.
func (o *Optimizer) drawCandidate(variables []*models.DetectedVariable) []models.VariableValue {
	values := make([]models.VariableValue, 0, len(variables))
	for _, v := range variables {
		value := v.CurrentValue
		if v.IncludeInOptimization {
			raw := v.Min + o.rng.Float64()*(v.Max-v.Min)
			value = math.Round(raw/v.Step) * v.Step
			if value < v.Min {
				value = v.Min
			}
			if value > v.Max {
				value = v.Max
			}
		}
		values = append(values, models.VariableValue{Name: v.Name, Value: value})
	}
	return values
}

// scoreResult считает оценку кандидата по выбранной метрике
func scoreResult(r *models.BacktestResult, metric string) float64 {
	switch metric {
	case "winRate":
		return r.WinRate
	case "gainLossRatio":
		return r.GainLossRatio
	case "sharpe":
		return r.PnL / math.Max(1, math.Abs(r.MaxDrawdown))
	default: // totalGain
		return r.PnL
	}
}

// rank сортирует кандидатов по убыванию оценки (устойчиво) и
// оставляет верхние topN
func rank(candidates []*models.OptimizationCandidate, topN int) []*models.OptimizationCandidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}

// Best возвращает лучшего кандидата прогона
func Best(candidates []*models.OptimizationCandidate) (*models.OptimizationCandidate, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("нет успешных кандидатов")
	}
	return candidates[0], nil
}
