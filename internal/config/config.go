package config

import (
	"fmt"
	"os"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
	"gopkg.in/yaml.v2"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	Log       LogConfig            `yaml:"log"`
	Binance   BinanceConfig        `yaml:"binance"`
	Trading   TradingConfig        `yaml:"trading"`
	Analysis  AnalysisConfig       `yaml:"analysis"`
	Decision  DecisionConfig       `yaml:"decision"`
	Risk      models.TradeSettings `yaml:"risk"`
	Learning  LearningConfig       `yaml:"learning"`
	Optimizer OptimizerConfig      `yaml:"optimizer"`
	News      NewsConfig           `yaml:"news"`
	Storage   StorageConfig        `yaml:"storage"`
	Engine    EngineConfig         `yaml:"engine"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Level string `yaml:"level"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// TradingConfig содержит настройки торговли
type TradingConfig struct {
	Symbol          string   `yaml:"symbol"`
	Timeframes      []string `yaml:"timeframes"`
	ActiveTimeframe string   `yaml:"active_timeframe"`
	StartingCapital float64  `yaml:"starting_capital"`
	CandleLimit     int      `yaml:"candle_limit"`
}

// AnalysisConfig содержит настройки анализа таймфреймов
type AnalysisConfig struct {
	MinCandles    int `yaml:"min_candles"`
	SwingLookback int `yaml:"swing_lookback"`
}

// DecisionConfig пороговые значения принятия решений.
// Смесь 30/70 и пороги 0.3/0.15 намеренно оставлены настройками:
// в исходной системе это магические константы без выведенного обоснования.
type DecisionConfig struct {
	LocalBlendWeight   float64 `yaml:"local_blend_weight"`
	HigherBlendWeight  float64 `yaml:"higher_blend_weight"`
	DominanceRatio     float64 `yaml:"dominance_ratio"`
	ConfidenceFloor    float64 `yaml:"confidence_floor"`
	LowConvictionFloor float64 `yaml:"low_conviction_floor"`
}

// LearningConfig настройки адаптера обучения
type LearningConfig struct {
	Step      float64 `yaml:"step"`
	WinScore  float64 `yaml:"win_score"`
	LossScore float64 `yaml:"loss_score"`
}

// OptimizerConfig настройки рандомизированного поиска параметров
type OptimizerConfig struct {
	Iterations int    `yaml:"iterations"`
	TopN       int    `yaml:"top_n"`
	Metric     string `yaml:"metric"`
	DelayMs    int    `yaml:"delay_ms"`
}

// NewsConfig настройки новостного сигнала
type NewsConfig struct {
	URL         string `yaml:"url"`
	EveryCycles int    `yaml:"every_cycles"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// StorageConfig настройки хранения данных
type StorageConfig struct {
	Type         string `yaml:"type"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
	SnapshotPath string `yaml:"snapshot_path"`
}

// EngineConfig настройки цикла движка
type EngineConfig struct {
	MaxCycles int `yaml:"max_cycles"`
}

// Load загружает конфигурацию из файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// applyDefaults заполняет незаданные поля разумными значениями
func (c *Config) applyDefaults() {
	if len(c.Trading.Timeframes) == 0 {
		c.Trading.Timeframes = []string{"1m", "5m", "15m", "1h", "4h", "1d"}
	}
	if c.Trading.ActiveTimeframe == "" {
		c.Trading.ActiveTimeframe = "15m"
	}
	if c.Trading.StartingCapital <= 0 {
		c.Trading.StartingCapital = 10000
	}
	if c.Trading.CandleLimit <= 0 {
		c.Trading.CandleLimit = 200
	}
	if c.Analysis.MinCandles <= 0 {
		c.Analysis.MinCandles = 20
	}
	if c.Analysis.SwingLookback <= 0 {
		c.Analysis.SwingLookback = 5
	}
	if c.Decision.LocalBlendWeight <= 0 {
		c.Decision.LocalBlendWeight = 0.3
	}
	if c.Decision.HigherBlendWeight <= 0 {
		c.Decision.HigherBlendWeight = 0.7
	}
	if c.Decision.DominanceRatio <= 0 {
		c.Decision.DominanceRatio = 1.2
	}
	if c.Decision.ConfidenceFloor <= 0 {
		c.Decision.ConfidenceFloor = 0.3
	}
	if c.Decision.LowConvictionFloor <= 0 {
		c.Decision.LowConvictionFloor = 0.15
	}
	if c.Learning.Step <= 0 {
		c.Learning.Step = 0.05
	}
	if c.Learning.WinScore <= 0 {
		c.Learning.WinScore = 5
	}
	if c.Learning.LossScore <= 0 {
		c.Learning.LossScore = 3
	}
	if c.Optimizer.Iterations <= 0 {
		c.Optimizer.Iterations = 50
	}
	if c.Optimizer.TopN <= 0 {
		c.Optimizer.TopN = 10
	}
	if c.Optimizer.Metric == "" {
		c.Optimizer.Metric = "totalGain"
	}
	if c.News.EveryCycles <= 0 {
		c.News.EveryCycles = 5
	}
	if c.News.TimeoutSec <= 0 {
		c.News.TimeoutSec = 10
	}
	if c.Storage.SnapshotPath == "" {
		c.Storage.SnapshotPath = "state.yaml"
	}
	if c.Risk.TradeType == "" {
		c.Risk.TradeType = models.TradeTypeBoth
	}
	if c.Risk.OnePointMeans <= 0 {
		c.Risk.OnePointMeans = 0.01
	}
	if c.Risk.PointValue <= 0 {
		c.Risk.PointValue = 1
	}
	if c.Risk.ContractSize <= 0 {
		c.Risk.ContractSize = 100
	}
	if c.Risk.ContractMinSize <= 0 {
		c.Risk.ContractMinSize = 0.01
	}
	if c.Risk.MaxPositionSize <= 0 {
		c.Risk.MaxPositionSize = 10
	}
	if c.Risk.HoldCandles <= 0 {
		c.Risk.HoldCandles = 5
	}
}
