package decision

import (
	"math"
	"testing"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/analysis/trend"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/config"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

func testConfig() config.DecisionConfig {
	return config.DecisionConfig{
		LocalBlendWeight:   0.3,
		HigherBlendWeight:  0.7,
		DominanceRatio:     1.2,
		ConfidenceFloor:    0.3,
		LowConvictionFloor: 0.15,
	}
}

// bullishInput собирает вход, в котором все сигналы бычьи
func bullishInput() Input {
	return Input{
		Price: 100,
		Blend: trend.Blend{Local: 0.6, Higher: 0.5, Blended: 0.53, HasHigher: true},
		Analysis: &models.TimeframeAnalysis{
			Indicators: models.Indicators{RSI: 25, MACD: 1.5, EMA9: 102, EMA21: 101, EMA50: 100},
			Waves:      models.WaveInfo{PositionInCycle: 0.1},
		},
		MinuteVolatility: 0.002,
		Sentiment:        models.SentimentBullish,
		Weights:          models.DefaultLearningWeights(),
	}
}

// bearishInput зеркальный медвежий вход
func bearishInput() Input {
	in := bullishInput()
	in.Blend = trend.Blend{Local: -0.6, Higher: -0.5, Blended: -0.53, HasHigher: true}
	in.Analysis = &models.TimeframeAnalysis{
		Indicators: models.Indicators{RSI: 78, MACD: -1.5, EMA9: 99, EMA21: 100, EMA50: 101},
		Waves:      models.WaveInfo{PositionInCycle: 0.9},
	}
	in.Sentiment = models.SentimentBearish
	return in
}

func TestScoreBuyOnDominance(t *testing.T) {
	s := NewScorer(testConfig(), models.TradeTypeBoth)
	d := s.Score(bullishInput())

	if d.Action != models.ActionBuy {
		t.Fatalf("ожидалось buy, получено %s", d.Action)
	}
	if d.Confidence < 0.3 {
		t.Errorf("уверенность ниже порога входа: %v", d.Confidence)
	}
	if len(d.Contributions) == 0 {
		t.Error("решение должно перечислять вклады сигналов")
	}
}

func TestScoreSellOnDominance(t *testing.T) {
	s := NewScorer(testConfig(), models.TradeTypeBoth)
	d := s.Score(bearishInput())

	if d.Action != models.ActionSell {
		t.Fatalf("ожидалось sell, получено %s", d.Action)
	}
}

func TestScoreHoldOnNaNPrice(t *testing.T) {
	s := NewScorer(testConfig(), models.TradeTypeBoth)
	in := bullishInput()
	in.Price = math.NaN()

	d := s.Score(in)
	if d.Action != models.ActionHold {
		t.Errorf("некорректная цена должна давать hold, получено %s", d.Action)
	}
	if d.Confidence != 0 {
		t.Errorf("уверенность при некорректной цене должна быть нулевой: %v", d.Confidence)
	}
}

func TestScoreTradeTypeRestriction(t *testing.T) {
	s := NewScorer(testConfig(), models.TradeTypeShort)
	d := s.Score(bullishInput())

	if d.Action != models.ActionHold {
		t.Errorf("long запрещен настройками, ожидалось hold, получено %s", d.Action)
	}
}

func TestScoreCloseAndFlip(t *testing.T) {
	s := NewScorer(testConfig(), models.TradeTypeBoth)
	in := bearishInput()
	in.OpenPosition = &models.Position{Type: models.PositionLong}

	d := s.Score(in)
	if !d.Close {
		t.Fatal("доминирующий встречный сигнал должен закрывать позицию")
	}
	if d.CloseReason != "Opposing signal" {
		t.Errorf("неожиданная причина закрытия %q", d.CloseReason)
	}
	if d.Action != models.ActionSell {
		t.Errorf("после закрытия ожидался разворот в sell, получено %s", d.Action)
	}
}

func TestScoreCloseOnLowConviction(t *testing.T) {
	s := NewScorer(testConfig(), models.TradeTypeBoth)

	// Почти сбалансированные очки дают низкую уверенность
	in := Input{
		Price: 100,
		Blend: trend.Blend{Local: -0.08, Blended: -0.08},
		Analysis: &models.TimeframeAnalysis{
			Indicators: models.Indicators{RSI: 50, MACD: 0.1, EMA9: 100, EMA21: 100.1},
			Waves:      models.WaveInfo{PositionInCycle: 0.5},
		},
		MinuteVolatility: 0.002,
		Sentiment:        models.SentimentNeutral,
		Weights:          models.DefaultLearningWeights(),
		OpenPosition:     &models.Position{Type: models.PositionLong},
	}

	d := s.Score(in)
	if d.Confidence >= 0.15 {
		t.Fatalf("вход должен давать низкую уверенность, получено %v", d.Confidence)
	}
	if !d.Close || d.CloseReason != "Low conviction" {
		t.Errorf("низкая уверенность должна закрывать позицию, получено %+v", d)
	}
}

func TestClassifySpeed(t *testing.T) {
	tests := []struct {
		vol  float64
		want MarketSpeed
	}{
		{0.02, SpeedVeryFast},
		{0.005, SpeedFast},
		{0.002, SpeedNormal},
		{0.0005, SpeedSlow},
	}

	for _, tt := range tests {
		if got := ClassifySpeed(tt.vol); got != tt.want {
			t.Errorf("ClassifySpeed(%v) = %s, ожидалось %s", tt.vol, got, tt.want)
		}
	}
}

func TestSpeedMultiplierRange(t *testing.T) {
	tests := []struct {
		speed MarketSpeed
		want  float64
	}{
		{SpeedVeryFast, 0.5},
		{SpeedFast, 0.8},
		{SpeedNormal, 1.0},
		{SpeedSlow, 1.5},
	}

	for _, tt := range tests {
		if got := tt.speed.Multiplier(); got != tt.want {
			t.Errorf("%s.Multiplier() = %v, ожидалось %v", tt.speed, got, tt.want)
		}
	}
}

func TestSpeedDampensConfidence(t *testing.T) {
	s := NewScorer(testConfig(), models.TradeTypeBoth)

	normal := bullishInput()
	fast := bullishInput()
	fast.MinuteVolatility = 0.02

	dn := s.Score(normal)
	df := s.Score(fast)

	if df.Confidence >= dn.Confidence {
		t.Errorf("быстрый рынок должен гасить уверенность: %v >= %v", df.Confidence, dn.Confidence)
	}
}
