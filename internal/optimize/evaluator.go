// internal/optimize/evaluator.go
package optimize

import (
	"context"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/backtest"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/strategy"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

// CycleEvaluator локальный исполнитель бэктестов на упрощенном
// правиле. Повторно извлекает параметры из подставленного текста,
// чтобы директивы стоп-лосса, тейк-профита и окна удержания
// действительно влияли на прогон.
type CycleEvaluator struct{}

// NewCycleEvaluator создает локальный исполнитель бэктестов
func NewCycleEvaluator() *CycleEvaluator {
	return &CycleEvaluator{}
}

// Run реализует Evaluator поверх упрощенного правила RunCycle
func (e *CycleEvaluator) Run(ctx context.Context, strategyText string, candles []*models.Candle, settings models.TradeSettings) (*models.BacktestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, v := range strategy.ExtractVariables(strategyText) {
		switch v.Name {
		case "stopLoss":
			settings.StopLoss = v.CurrentValue
		case "takeProfit":
			settings.TakeProfit = v.CurrentValue
		case "holdCandles":
			settings.HoldCandles = int(v.CurrentValue)
		}
	}

	return backtest.RunCycle(candles, settings), nil
}
