// internal/analysis/trend/aggregator.go
package trend

import (
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/config"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

// Порядок таймфреймов от младшего к старшему
var intervalRank = map[string]int{
	"1m":  0,
	"3m":  1,
	"5m":  2,
	"15m": 3,
	"30m": 4,
	"1h":  5,
	"2h":  6,
	"4h":  7,
	"6h":  8,
	"12h": 9,
	"1d":  10,
	"1w":  11,
}

// Blend результат смешивания локального и старшего трендов
type Blend struct {
	Local     float64
	Higher    float64
	Blended   float64
	HasHigher bool
}

// Aggregator смешивает тренд активного таймфрейма со взвешенным
// средним всех строго старших таймфреймов. Старшие таймфреймы
// структурно более предсказуемы, поэтому получают больший вес.
type Aggregator struct {
	config config.DecisionConfig
}

// NewAggregator создает новый агрегатор трендов
func NewAggregator(cfg config.DecisionConfig) *Aggregator {
	return &Aggregator{
		config: cfg,
	}
}

// Aggregate строит смешанный тренд для активного таймфрейма.
// Таймфреймы без данных просто не голосуют. Если старших данных
// нет вовсе, смешанный тренд равен локальному.
func (a *Aggregator) Aggregate(active string, analyses map[string]*models.TimeframeAnalysis) Blend {
	blend := Blend{}

	current, ok := analyses[active]
	if ok && current != nil {
		blend.Local = current.Trend
	}

	activeRank, ok := intervalRank[active]
	if !ok {
		blend.Blended = blend.Local
		return blend
	}

	// Взвешенное среднее строго старших таймфреймов:
	// вес растет с удалением от активного (1 + 0.2 × дистанция)
	var weightedSum, totalWeight float64
	for interval, analysis := range analyses {
		if analysis == nil {
			continue
		}
		rank, ok := intervalRank[interval]
		if !ok || rank <= activeRank {
			continue
		}
		weight := 1 + 0.2*float64(rank-activeRank)
		weightedSum += analysis.Trend * weight
		totalWeight += weight
	}

	if totalWeight > 0 {
		blend.Higher = weightedSum / totalWeight
		blend.HasHigher = true
		blend.Blended = a.config.LocalBlendWeight*blend.Local +
			a.config.HigherBlendWeight*blend.Higher
	} else {
		blend.Blended = blend.Local
	}

	return blend
}

// IntervalRank возвращает позицию таймфрейма в порядке старшинства
// и признак того, что таймфрейм известен
func IntervalRank(interval string) (int, bool) {
	rank, ok := intervalRank[interval]
	return rank, ok
}
