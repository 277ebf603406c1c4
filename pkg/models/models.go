package models

import (
	"time"
)

// Candle представляет свечу
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// PositionType тип открытой позиции
type PositionType string

const (
	PositionLong  PositionType = "long"
	PositionShort PositionType = "short"
)

// Action решение, принятое по итогам цикла
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Sentiment внешний новостной фон по активу
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// SignalKind перечисление сигналов, участвующих в оценке.
// Используется вместо свободного текста, чтобы адаптер обучения
// мог точно атрибутировать вклад каждого сигнала.
type SignalKind string

const (
	SignalTrend    SignalKind = "trend"
	SignalMomentum SignalKind = "momentum"
	SignalRSI      SignalKind = "rsi"
	SignalMACD     SignalKind = "macd"
	SignalWave     SignalKind = "wave"
	SignalNews     SignalKind = "news"
	SignalHigherTF SignalKind = "higherTF"
)

// SignalContribution вклад одного сигнала в решение.
// Magnitude положительна для бычьего вклада и отрицательна для медвежьего.
type SignalContribution struct {
	Signal    SignalKind
	Magnitude float64
}

// DetectedVariable числовой параметр, извлечённый из текста стратегии.
// LineIndex фиксирует строку извлечения: обратная подстановка значений
// работает только внутри этой строки.
// Инвариант: Min <= CurrentValue <= Max, Step > 0.
type DetectedVariable struct {
	Name                  string
	OriginalValue         float64
	CurrentValue          float64
	Min                   float64
	Max                   float64
	Step                  float64
	SourcePattern         string
	LineIndex             int
	IncludeInOptimization bool
}

// Indicators набор индикаторов одного таймфрейма
type Indicators struct {
	SMA20  float64
	SMA50  float64
	SMA100 float64
	SMA200 float64
	EMA9   float64
	EMA21  float64
	EMA50  float64
	RSI    float64
	MACD   float64
}

// WaveInfo волновая структура таймфрейма
type WaveInfo struct {
	Count           int
	AvgHeight       float64
	AvgLength       float64
	Phase           string
	PositionInCycle float64
}

// TimeframeAnalysis результат анализа одного таймфрейма.
// Пересчитывается заново на каждом цикле и не мутируется.
type TimeframeAnalysis struct {
	Interval      string
	Trend         float64
	LongTermTrend float64
	Volatility    float64
	Indicators    Indicators
	Waves         WaveInfo
}

// LearningWeights веса сигналов, настраиваемые по итогам сделок.
// Каждый вес удерживается в диапазоне [0.5, 2.0].
type LearningWeights struct {
	Trend        float64 `yaml:"trend"`
	Momentum     float64 `yaml:"momentum"`
	RSI          float64 `yaml:"rsi"`
	MACD         float64 `yaml:"macd"`
	WavePosition float64 `yaml:"wave_position"`
	News         float64 `yaml:"news"`
	HigherTF     float64 `yaml:"higher_tf"`
}

// DefaultLearningWeights возвращает нейтральные веса
func DefaultLearningWeights() LearningWeights {
	return LearningWeights{
		Trend:        1.0,
		Momentum:     1.0,
		RSI:          1.0,
		MACD:         1.0,
		WavePosition: 1.0,
		News:         1.0,
		HigherTF:     1.0,
	}
}

// Position открытая позиция. В любой момент существует не более одной.
type Position struct {
	ID         string               `yaml:"id"`
	Type       PositionType         `yaml:"type"`
	Size       float64              `yaml:"size"`
	EntryPrice float64              `yaml:"entry_price"`
	EntryTime  time.Time            `yaml:"entry_time"`
	Confidence float64              `yaml:"confidence"`
	Reasons    []SignalContribution `yaml:"reasons"`
}

// Trade закрытая сделка. Неизменяемая запись, добавляется при закрытии.
type Trade struct {
	ID          string               `yaml:"id"`
	Type        PositionType         `yaml:"type"`
	EntryPrice  float64              `yaml:"entry_price"`
	ExitPrice   float64              `yaml:"exit_price"`
	Size        float64              `yaml:"size"`
	PnL         float64              `yaml:"pnl"`
	IsWin       bool                 `yaml:"is_win"`
	EntryTime   time.Time            `yaml:"entry_time"`
	ExitTime    time.Time            `yaml:"exit_time"`
	Reasons     []SignalContribution `yaml:"reasons"`
	CloseReason string               `yaml:"close_reason"`
}

// VariableValue значение одной переменной в кандидате оптимизации
type VariableValue struct {
	Name  string
	Value float64
}

// BacktestTrade одна сделка, зафиксированная бэктестом
type BacktestTrade struct {
	Type       PositionType
	EntryIndex int
	ExitIndex  int
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	IsWin      bool
}

// BacktestResult агрегат одного прогона бэктеста
type BacktestResult struct {
	Trades        int
	Wins          int
	PnL           float64
	TradeList     []BacktestTrade
	TotalGain     float64
	WinRate       float64
	GainLossRatio float64
	MaxDrawdown   float64
}

// OptimizationCandidate кандидат рандомизированного поиска параметров
type OptimizationCandidate struct {
	Variables []VariableValue
	Result    *BacktestResult
	Score     float64
}

// SignalResult запись решения одного цикла
type SignalResult struct {
	Symbol     string
	Timestamp  time.Time
	Action     Action
	Confidence float64
	BullScore  float64
	BearScore  float64
	Components map[string]float64
}

// TradeType какие направления разрешены стратегии
type TradeType string

const (
	TradeTypeBoth  TradeType = "both"
	TradeTypeLong  TradeType = "long"
	TradeTypeShort TradeType = "short"
)

// AllowsLong сообщает, разрешены ли длинные позиции
func (t TradeType) AllowsLong() bool {
	return t == TradeTypeBoth || t == TradeTypeLong
}

// AllowsShort сообщает, разрешены ли короткие позиции
func (t TradeType) AllowsShort() bool {
	return t == TradeTypeBoth || t == TradeTypeShort
}

// TradeSettings расчётные параметры инструмента и риска
type TradeSettings struct {
	TradeType       TradeType `yaml:"trade_type"`
	Spread          float64   `yaml:"spread"`
	Fee             float64   `yaml:"fee"`
	OnePointMeans   float64   `yaml:"one_point_means"`
	PointValue      float64   `yaml:"point_value"`
	ContractSize    float64   `yaml:"contract_size"`
	ContractMinSize float64   `yaml:"contract_min_size"`
	MaxPositionSize float64   `yaml:"max_position_size"`
	StopLoss        float64   `yaml:"stop_loss"`
	TakeProfit      float64   `yaml:"take_profit"`
	HoldCandles     int       `yaml:"hold_candles"`
}
