// internal/decision/scorer.go
package decision

import (
	"math"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/analysis/trend"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/config"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

// MarketSpeed скорость рынка, выведенная из минутной волатильности
type MarketSpeed string

const (
	SpeedVeryFast MarketSpeed = "very-fast"
	SpeedFast     MarketSpeed = "fast"
	SpeedNormal   MarketSpeed = "normal"
	SpeedSlow     MarketSpeed = "slow"
)

// Multiplier возвращает множитель скорости рынка в диапазоне 0.5..1.5.
// Быстрый рынок гасит уверенность и укорачивает цикл опроса.
func (s MarketSpeed) Multiplier() float64 {
	switch s {
	case SpeedVeryFast:
		return 0.5
	case SpeedFast:
		return 0.8
	case SpeedSlow:
		return 1.5
	default:
		return 1.0
	}
}

// ClassifySpeed распределяет минутную волатильность по корзинам скорости
func ClassifySpeed(minuteVolatility float64) MarketSpeed {
	switch {
	case minuteVolatility > 0.010:
		return SpeedVeryFast
	case minuteVolatility > 0.004:
		return SpeedFast
	case minuteVolatility < 0.001:
		return SpeedSlow
	default:
		return SpeedNormal
	}
}

// Input все сигналы одного цикла, участвующие в оценке
type Input struct {
	Price            float64
	Blend            trend.Blend
	Analysis         *models.TimeframeAnalysis
	MinuteVolatility float64
	Sentiment        models.Sentiment
	Weights          models.LearningWeights
	OpenPosition     *models.Position
}

// Decision итог цикла: действие, уверенность и помеченные вклады сигналов
type Decision struct {
	Action        models.Action
	Close         bool
	CloseReason   string
	Confidence    float64
	BullScore     float64
	BearScore     float64
	Speed         MarketSpeed
	Contributions []models.SignalContribution
}

// Scorer двухсостоянийный автомат принятия решений: без позиции
// выбирает buy/sell/hold, с открытой позицией следит за разворотом
// сигнала и падением уверенности
type Scorer struct {
	config    config.DecisionConfig
	tradeType models.TradeType
}

// NewScorer создает новый скорер решений
func NewScorer(cfg config.DecisionConfig, tradeType models.TradeType) *Scorer {
	return &Scorer{
		config:    cfg,
		tradeType: tradeType,
	}
}

// Score сводит сигналы цикла в решение.
// Некорректная цена приводит к hold: конвертации пунктов в валюту
// не должны получать NaN.
func (s *Scorer) Score(in Input) Decision {
	speed := ClassifySpeed(in.MinuteVolatility)
	decision := Decision{
		Action: models.ActionHold,
		Speed:  speed,
	}

	if math.IsNaN(in.Price) || math.IsInf(in.Price, 0) || in.Price <= 0 {
		return decision
	}
	if in.Analysis == nil {
		return decision
	}

	bull, bear, contributions := s.accumulate(in)
	decision.BullScore = bull
	decision.BearScore = bear
	decision.Contributions = contributions

	if bull+bear > 0 {
		decision.Confidence = math.Abs(bull-bear) / (bull + bear) * speed.Multiplier()
		if decision.Confidence > 1 {
			decision.Confidence = 1
		}
	}

	if in.OpenPosition == nil {
		s.decideIdle(&decision, bull, bear)
	} else {
		s.decidePositioned(&decision, in.OpenPosition.Type, bull, bear)
	}

	return decision
}

// accumulate суммирует бычьи и медвежьи очки с множителями весов обучения
func (s *Scorer) accumulate(in Input) (bull, bear float64, contributions []models.SignalContribution) {
	add := func(kind models.SignalKind, magnitude, weight float64) {
		if magnitude == 0 {
			return
		}
		weighted := math.Abs(magnitude) * weight
		if magnitude > 0 {
			bull += weighted
		} else {
			bear += weighted
		}
		contributions = append(contributions, models.SignalContribution{
			Signal:    kind,
			Magnitude: magnitude,
		})
	}

	// Смешанный тренд и отдельный голос старших таймфреймов
	add(models.SignalTrend, in.Blend.Blended, in.Weights.Trend)
	if in.Blend.HasHigher {
		add(models.SignalHigherTF, in.Blend.Higher, in.Weights.HigherTF)
	}

	ind := in.Analysis.Indicators

	// Экстремумы RSI: перепроданность бычья, перекупленность медвежья
	if ind.RSI < 30 {
		add(models.SignalRSI, (30-ind.RSI)/30, in.Weights.RSI)
	} else if ind.RSI > 70 {
		add(models.SignalRSI, -(ind.RSI-70)/30, in.Weights.RSI)
	}

	// Знак MACD
	if ind.MACD > 0 {
		add(models.SignalMACD, 0.3, in.Weights.MACD)
	} else if ind.MACD < 0 {
		add(models.SignalMACD, -0.3, in.Weights.MACD)
	}

	// Порядок быстрых EMA как импульс
	if ind.EMA9 > ind.EMA21 {
		add(models.SignalMomentum, 0.2, in.Weights.Momentum)
	} else if ind.EMA9 < ind.EMA21 {
		add(models.SignalMomentum, -0.2, in.Weights.Momentum)
	}

	// Позиция в волновом цикле: у поддержки бычья, у сопротивления медвежья
	pos := in.Analysis.Waves.PositionInCycle
	if pos < 0.2 {
		add(models.SignalWave, 0.4, in.Weights.WavePosition)
	} else if pos > 0.8 {
		add(models.SignalWave, -0.4, in.Weights.WavePosition)
	}

	// Внешний новостной фон
	switch in.Sentiment {
	case models.SentimentBullish:
		add(models.SignalNews, 0.3, in.Weights.News)
	case models.SentimentBearish:
		add(models.SignalNews, -0.3, in.Weights.News)
	}

	return bull, bear, contributions
}

// decideIdle решение без открытой позиции: вход только при
// доминировании одной стороны и достаточной уверенности
func (s *Scorer) decideIdle(d *Decision, bull, bear float64) {
	if d.Confidence < s.config.ConfidenceFloor {
		return
	}

	if bull >= bear*s.config.DominanceRatio && s.tradeType.AllowsLong() {
		d.Action = models.ActionBuy
	} else if bear >= bull*s.config.DominanceRatio && s.tradeType.AllowsShort() {
		d.Action = models.ActionSell
	}
}

// decidePositioned решение с открытой позицией: разворот при
// доминировании противоположного сигнала, выход при потере уверенности
func (s *Scorer) decidePositioned(d *Decision, posType models.PositionType, bull, bear float64) {
	opposing := bear >= bull*s.config.DominanceRatio
	flip := models.ActionSell
	allowed := s.tradeType.AllowsShort()
	if posType == models.PositionShort {
		opposing = bull >= bear*s.config.DominanceRatio
		flip = models.ActionBuy
		allowed = s.tradeType.AllowsLong()
	}

	if opposing && d.Confidence >= s.config.ConfidenceFloor {
		d.Close = true
		d.CloseReason = "Opposing signal"
		if allowed {
			d.Action = flip
		}
		return
	}

	if d.Confidence < s.config.LowConvictionFloor {
		d.Close = true
		d.CloseReason = "Low conviction"
	}
}
