// internal/engine/backtest.go
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/optimize"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/strategy"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/logger"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

// RunBacktest запускает исполнитель бэктеста на окне свечей с
// текущими значениями переменных стратегии (ручной запуск)
func (e *Engine) RunBacktest(ctx context.Context, evaluator optimize.Evaluator, candles []*models.Candle) (*models.BacktestResult, error) {
	text, vars := e.Strategy()
	if text == "" {
		return nil, fmt.Errorf("стратегия не загружена")
	}

	values := make([]models.VariableValue, 0, len(vars))
	for _, v := range vars {
		values = append(values, models.VariableValue{Name: v.Name, Value: v.CurrentValue})
	}

	return evaluator.Run(ctx, strategy.Rewrite(text, vars, values), candles, e.cfg.Risk)
}

// Optimize запускает рандомизированный поиск параметров на окне
// свечей. Живой цикл и оптимизатор разделяют набор переменных,
// поэтому значения применяются обратно только явным ApplyCandidate.
func (e *Engine) Optimize(ctx context.Context, optimizer *optimize.Optimizer, candles []*models.Candle) ([]*models.OptimizationCandidate, error) {
	text, vars := e.Strategy()
	if text == "" {
		return nil, fmt.Errorf("стратегия не загружена")
	}

	candidates, err := optimizer.Run(ctx, text, vars, candles, e.cfg.Risk)
	if err != nil {
		return candidates, err
	}

	if best, bestErr := optimize.Best(candidates); bestErr == nil {
		logger.Info("Оптимизация завершена",
			zap.Int("candidates", len(candidates)),
			zap.Float64("best_score", best.Score),
			zap.Int("best_trades", best.Result.Trades))
	}

	return candidates, nil
}

// ApplyCandidate применяет значения кандидата к текущим значениям
// переменных стратегии
func (e *Engine) ApplyCandidate(candidate *models.OptimizationCandidate) {
	if candidate == nil {
		return
	}

	e.varsMu.Lock()
	defer e.varsMu.Unlock()

	byName := make(map[string]float64, len(candidate.Variables))
	for _, v := range candidate.Variables {
		byName[v.Name] = v.Value
	}

	for _, variable := range e.variables {
		if value, ok := byName[variable.Name]; ok {
			variable.CurrentValue = value
		}
	}
}
