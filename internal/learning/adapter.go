// internal/learning/adapter.go
package learning

import (
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/config"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

// Границы весов сигналов
const (
	weightMin = 0.5
	weightMax = 2.0
)

// Adapter настраивает веса сигналов по исходам закрытых сделок.
// Это эвристика присвоения заслуг, а не градиентный метод: вес
// двигается только у сигналов, фактически процитированных в причинах
// сделки. Непроцитированные сигналы не адаптируются.
type Adapter struct {
	config  config.LearningConfig
	weights models.LearningWeights
	score   float64
}

// NewAdapter создает адаптер обучения с нейтральными весами
func NewAdapter(cfg config.LearningConfig) *Adapter {
	return &Adapter{
		config:  cfg,
		weights: models.DefaultLearningWeights(),
	}
}

// AdjustWeights сдвигает веса процитированных сигналов на
// фиксированный шаг вверх при выигрыше и вниз при проигрыше,
// удерживая каждый вес в [0.5, 2.0]
func (a *Adapter) AdjustWeights(trade *models.Trade) {
	step := a.config.Step
	if !trade.IsWin {
		step = -step
	}

	for _, reason := range trade.Reasons {
		switch reason.Signal {
		case models.SignalTrend:
			a.weights.Trend = clampWeight(a.weights.Trend + step)
		case models.SignalMomentum:
			a.weights.Momentum = clampWeight(a.weights.Momentum + step)
		case models.SignalRSI:
			a.weights.RSI = clampWeight(a.weights.RSI + step)
		case models.SignalMACD:
			a.weights.MACD = clampWeight(a.weights.MACD + step)
		case models.SignalWave:
			a.weights.WavePosition = clampWeight(a.weights.WavePosition + step)
		case models.SignalNews:
			a.weights.News = clampWeight(a.weights.News + step)
		case models.SignalHigherTF:
			a.weights.HigherTF = clampWeight(a.weights.HigherTF + step)
		}
	}

	if trade.IsWin {
		a.score += a.config.WinScore
	} else {
		a.score -= a.config.LossScore
		if a.score < 0 {
			a.score = 0
		}
	}
}

// Weights возвращает текущие веса сигналов
func (a *Adapter) Weights() models.LearningWeights {
	return a.weights
}

// Score возвращает накопленную оценку обучения
func (a *Adapter) Score() float64 {
	return a.score
}

// Restore восстанавливает веса и оценку из сохраненного состояния
func (a *Adapter) Restore(weights models.LearningWeights, score float64) {
	a.weights = weights
	if a.weights == (models.LearningWeights{}) {
		a.weights = models.DefaultLearningWeights()
	}
	a.score = score
	if a.score < 0 {
		a.score = 0
	}
}

// clampWeight удерживает вес в допустимых границах
func clampWeight(w float64) float64 {
	if w < weightMin {
		return weightMin
	}
	if w > weightMax {
		return weightMax
	}
	return w
}
