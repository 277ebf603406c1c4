// internal/analysis/timeframe/analyzer.go
package timeframe

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/config"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

// Фиксированные веса вкладов в итоговую оценку тренда
const (
	weightSMA20   = 0.15
	weightSMA50   = 0.15
	weightSMA100  = 0.10
	weightSMA200  = 0.10
	weightEMAFast = 0.15
	weightEMASlow = 0.10
	weightMACD    = 0.10
)

// Analyzer реализует анализатор одного таймфрейма: индикаторы,
// нормированная оценка тренда и волновая структура свингов
type Analyzer struct {
	config config.AnalysisConfig
}

// NewAnalyzer создает новый анализатор таймфреймов
func NewAnalyzer(cfg config.AnalysisConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze выполняет анализ окна свечей одного таймфрейма.
// Окно упорядочено по возрастанию времени. При нехватке данных
// анализ деградирует до нейтрального, а не падает.
func (a *Analyzer) Analyze(interval string, candles []*models.Candle) *models.TimeframeAnalysis {
	analysis := &models.TimeframeAnalysis{
		Interval: interval,
		Indicators: models.Indicators{
			RSI: 50,
		},
		Waves: models.WaveInfo{
			Phase:           "upwave",
			PositionInCycle: 0.5,
		},
	}

	if len(candles) < a.config.MinCandles {
		return analysis
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	price := closes[len(closes)-1]
	if math.IsNaN(price) || price <= 0 {
		return analysis
	}

	ind := a.computeIndicators(closes)
	analysis.Indicators = ind
	analysis.Volatility = computeVolatility(closes, 20)
	analysis.Trend = a.scoreTrend(price, ind)
	analysis.LongTermTrend = clamp((price/ind.SMA200-1)*10, -1, 1)
	analysis.Waves = a.analyzeWaves(candles)

	return analysis
}

// computeIndicators рассчитывает набор индикаторов окна.
// Для скользящих средних длиннее окна берется доступная длина.
func (a *Analyzer) computeIndicators(closes []float64) models.Indicators {
	return models.Indicators{
		SMA20:  lastSMA(closes, 20),
		SMA50:  lastSMA(closes, 50),
		SMA100: lastSMA(closes, 100),
		SMA200: lastSMA(closes, 200),
		EMA9:   lastEMA(closes, 9),
		EMA21:  lastEMA(closes, 21),
		EMA50:  lastEMA(closes, 50),
		RSI:    lastRSI(closes, 14),
		MACD:   lastEMA(closes, 12) - lastEMA(closes, 26),
	}
}

// scoreTrend строит нормированную оценку тренда в [-1, 1] из
// положения цены относительно SMA, порядка EMA, отклонения RSI
// от 50 и знака MACD
func (a *Analyzer) scoreTrend(price float64, ind models.Indicators) float64 {
	var score float64

	score += signWeight(price, ind.SMA20, weightSMA20)
	score += signWeight(price, ind.SMA50, weightSMA50)
	score += signWeight(price, ind.SMA100, weightSMA100)
	score += signWeight(price, ind.SMA200, weightSMA200)

	score += signWeight(ind.EMA9, ind.EMA21, weightEMAFast)
	score += signWeight(ind.EMA21, ind.EMA50, weightEMASlow)

	score += (ind.RSI - 50) / 200

	if ind.MACD > 0 {
		score += weightMACD
	} else if ind.MACD < 0 {
		score -= weightMACD
	}

	return clamp(score, -1, 1)
}

// analyzeWaves детектирует свинги симметричным окном и выводит
// волновую статистику окна
func (a *Analyzer) analyzeWaves(candles []*models.Candle) models.WaveInfo {
	lookback := a.config.SwingLookback
	info := models.WaveInfo{
		Phase:           "upwave",
		PositionInCycle: 0.5,
	}

	type swing struct {
		index  int
		price  float64
		isHigh bool
	}
	var swings []swing

	for i := lookback; i < len(candles)-lookback; i++ {
		isHigh := true
		isLow := true
		for j := i - lookback; j <= i+lookback; j++ {
			if j == i {
				continue
			}
			if candles[j].High > candles[i].High {
				isHigh = false
			}
			if candles[j].Low < candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			swings = append(swings, swing{index: i, price: candles[i].High, isHigh: true})
		} else if isLow {
			swings = append(swings, swing{index: i, price: candles[i].Low, isHigh: false})
		}
	}

	info.Count = len(swings)
	if len(swings) < 2 {
		return info
	}

	// Средняя высота и длина волны между соседними свингами
	var totalHeight, totalLength float64
	for i := 1; i < len(swings); i++ {
		totalHeight += math.Abs(swings[i].price - swings[i-1].price)
		totalLength += float64(swings[i].index - swings[i-1].index)
	}
	info.AvgHeight = totalHeight / float64(len(swings)-1)
	info.AvgLength = totalLength / float64(len(swings)-1)

	// Экстремумы всего окна для позиции цены в цикле
	maxHigh := swings[0].price
	minLow := swings[0].price
	for _, s := range swings {
		if s.price > maxHigh {
			maxHigh = s.price
		}
		if s.price < minLow {
			minLow = s.price
		}
	}

	price := candles[len(candles)-1].Close
	last := swings[len(swings)-1]

	switch {
	case price > maxHigh:
		info.Phase = "breakout"
	case price < minLow:
		info.Phase = "breakdown"
	case last.isHigh:
		info.Phase = "downwave"
	default:
		info.Phase = "upwave"
	}

	if maxHigh > minLow {
		info.PositionInCycle = clamp((price-minLow)/(maxHigh-minLow), 0, 1)
	}

	return info
}

// lastSMA возвращает последнее значение SMA, сокращая период
// до доступной длины окна
func lastSMA(closes []float64, period int) float64 {
	if period > len(closes) {
		period = len(closes)
	}
	if period < 2 {
		return closes[len(closes)-1]
	}
	sma := talib.Sma(closes, period)
	return sma[len(sma)-1]
}

// lastEMA возвращает последнее значение EMA
func lastEMA(closes []float64, period int) float64 {
	if period > len(closes) {
		period = len(closes)
	}
	if period < 2 {
		return closes[len(closes)-1]
	}
	ema := talib.Ema(closes, period)
	return ema[len(ema)-1]
}

// lastRSI возвращает последнее значение RSI Уайлдера,
// нейтральные 50 при нехватке данных
func lastRSI(closes []float64, period int) float64 {
	if len(closes) <= period {
		return 50
	}
	rsi := talib.Rsi(closes, period)
	return rsi[len(rsi)-1]
}

// computeVolatility считает стандартное отклонение доходностей
// последних lookback свечей
func computeVolatility(closes []float64, lookback int) float64 {
	if len(closes) < 3 {
		return 0
	}
	start := len(closes) - lookback
	if start < 1 {
		start = 1
	}

	var returns []float64
	for i := start; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance)
}

// signWeight возвращает +w если a выше b, -w если ниже
func signWeight(a, b, w float64) float64 {
	if a > b {
		return w
	}
	if a < b {
		return -w
	}
	return 0
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
