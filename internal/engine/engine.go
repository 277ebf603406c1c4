// internal/engine/engine.go
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/analysis/timeframe"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/analysis/trend"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/config"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/decision"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/learning"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/position"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/storage"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/strategy"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/logger"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

// CandleSource поставщик свечей по активу и таймфрейму
type CandleSource interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error)
}

// SentimentSource поставщик новостного фона
type SentimentSource interface {
	Check(ctx context.Context, asset string) (models.Sentiment, error)
}

// Engine связывает источник свечей, анализ таймфреймов, скорер,
// менеджер позиций и адаптер обучения в один торговый цикл.
// Каждый вызов Cycle выполняет ровно один цикл и возвращает
// желаемую задержку до следующего; временем управляет внешний
// планировщик. Циклы никогда не выполняются конкурентно.
type Engine struct {
	cfg *config.Config

	source     CandleSource
	sentiment  SentimentSource
	store      storage.Storage
	analyzer   *timeframe.Analyzer
	aggregator *trend.Aggregator
	scorer     *decision.Scorer
	positions  *position.Manager
	learner    *learning.Adapter

	// Переменные стратегии разделяются с оптимизатором,
	// доступ сериализуется
	varsMu       sync.Mutex
	strategyText string
	variables    []*models.DetectedVariable

	cycleCount    int
	lastSentiment models.Sentiment
	lastPrice     float64
}

// New создает движок. store может быть nil: тогда журнал сделок и
// история сигналов не сохраняются, а торговля продолжает работать.
func New(cfg *config.Config, source CandleSource, sentiment SentimentSource, store storage.Storage) *Engine {
	return &Engine{
		cfg:           cfg,
		source:        source,
		sentiment:     sentiment,
		store:         store,
		analyzer:      timeframe.NewAnalyzer(cfg.Analysis),
		aggregator:    trend.NewAggregator(cfg.Decision),
		scorer:        decision.NewScorer(cfg.Decision, cfg.Risk.TradeType),
		positions:     position.NewManager(cfg.Risk, cfg.Trading.StartingCapital),
		learner:       learning.NewAdapter(cfg.Learning),
		lastSentiment: models.SentimentNeutral,
	}
}

// SetStrategy принимает сгенерированный текст стратегии и извлекает
// из него настраиваемые переменные
func (e *Engine) SetStrategy(text string) {
	e.varsMu.Lock()
	defer e.varsMu.Unlock()
	e.strategyText = text
	e.variables = strategy.ExtractVariables(text)

	logger.Info("Стратегия загружена",
		zap.Int("variables", len(e.variables)))
}

// Strategy возвращает текст стратегии и копию среза переменных
func (e *Engine) Strategy() (string, []*models.DetectedVariable) {
	e.varsMu.Lock()
	defer e.varsMu.Unlock()
	vars := make([]*models.DetectedVariable, len(e.variables))
	copy(vars, e.variables)
	return e.strategyText, vars
}

// Cycle выполняет один торговый цикл: параллельная загрузка свечей
// всех таймфреймов, периодическая проверка новостного фона, анализ,
// агрегация трендов, решение и сопровождение позиции. Возвращает
// задержку до следующего цикла.
func (e *Engine) Cycle(ctx context.Context) (time.Duration, error) {
	e.cycleCount++

	windows := e.fetchAll(ctx)

	// Новостной фон проверяется каждым N-м циклом; отказ сервиса
	// означает нейтральный фон, а не ошибку цикла
	if e.sentiment != nil && e.cfg.News.EveryCycles > 0 && e.cycleCount%e.cfg.News.EveryCycles == 1 {
		sentiment, err := e.sentiment.Check(ctx, e.cfg.Trading.Symbol)
		if err != nil {
			logger.Warn("Новостной фон недоступен, принят нейтральный", zap.Error(err))
			sentiment = models.SentimentNeutral
		}
		e.lastSentiment = sentiment
	}

	analyses := make(map[string]*models.TimeframeAnalysis, len(windows))
	for interval, candles := range windows {
		analyses[interval] = e.analyzer.Analyze(interval, candles)
	}

	active := e.cfg.Trading.ActiveTimeframe
	blend := e.aggregator.Aggregate(active, analyses)

	price := lastClose(windows[active])
	e.lastPrice = price

	var minuteVol float64
	if a, ok := analyses["1m"]; ok {
		minuteVol = a.Volatility
	} else if a, ok := analyses[active]; ok {
		minuteVol = a.Volatility
	}

	// Сначала защитные выходы, затем решение по сигналам
	if trade, err := e.positions.CheckStopLossTakeProfit(price); err != nil {
		logger.Error("Ошибка защитного закрытия позиции", zap.Error(err))
	} else if trade != nil {
		e.afterClose(ctx, trade)
	}

	d := e.scorer.Score(decision.Input{
		Price:            price,
		Blend:            blend,
		Analysis:         analyses[active],
		MinuteVolatility: minuteVol,
		Sentiment:        e.lastSentiment,
		Weights:          e.learner.Weights(),
		OpenPosition:     e.positions.Position(),
	})

	e.applyDecision(ctx, d, price)
	e.recordSignal(ctx, d, price)
	e.snapshot()

	delay := time.Duration(float64(pollInterval(active)) * d.Speed.Multiplier())
	return delay, nil
}

// fetchAll загружает окна свечей всех таймфреймов параллельно.
// Отказ одного таймфрейма лишь лишает его голоса в агрегации.
func (e *Engine) fetchAll(ctx context.Context) map[string][]*models.Candle {
	windows := make(map[string][]*models.Candle)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, interval := range e.cfg.Trading.Timeframes {
		wg.Add(1)
		go func(interval string) {
			defer wg.Done()

			candles, err := e.source.GetKlines(ctx, e.cfg.Trading.Symbol, interval, e.cfg.Trading.CandleLimit)
			if err != nil {
				// Биржа недоступна: пробуем кэш хранилища, иначе
				// таймфрейм теряет голос в агрегации
				candles = e.cachedCandles(ctx, interval)
				if len(candles) == 0 {
					logger.Warn("Таймфрейм пропущен",
						zap.String("interval", interval),
						zap.Error(err))
					return
				}
			} else if e.store != nil {
				if err := e.store.SaveCandles(ctx, candles); err != nil {
					logger.Warn("Не удалось сохранить свечи",
						zap.String("interval", interval),
						zap.Error(err))
				}
			}

			mu.Lock()
			windows[interval] = candles
			mu.Unlock()
		}(interval)
	}

	wg.Wait()
	return windows
}

// cachedCandles достает последнее сохраненное окно свечей таймфрейма
func (e *Engine) cachedCandles(ctx context.Context, interval string) []*models.Candle {
	if e.store == nil {
		return nil
	}

	candles, err := e.store.GetCandles(ctx, e.cfg.Trading.Symbol, interval, e.cfg.Trading.CandleLimit)
	if err != nil {
		logger.Warn("Кэш свечей недоступен",
			zap.String("interval", interval),
			zap.Error(err))
		return nil
	}
	return candles
}

// applyDecision переводит решение скорера в операции над позицией
func (e *Engine) applyDecision(ctx context.Context, d decision.Decision, price float64) {
	if d.Close && e.positions.Position() != nil {
		trade, err := e.positions.Close(price, d.CloseReason)
		if err != nil {
			logger.Error("Ошибка закрытия позиции", zap.Error(err))
			return
		}
		e.afterClose(ctx, trade)
	}

	if d.Action == models.ActionHold || e.positions.Position() != nil {
		return
	}

	posType := models.PositionLong
	if d.Action == models.ActionSell {
		posType = models.PositionShort
	}

	pos, err := e.positions.Open(posType, price, d.Confidence, d.Contributions)
	if err != nil {
		logger.Warn("Позиция не открыта", zap.Error(err))
		return
	}

	logger.Info("Позиция открыта",
		zap.String("type", string(pos.Type)),
		zap.Float64("entry", pos.EntryPrice),
		zap.Float64("size", pos.Size),
		zap.Float64("confidence", pos.Confidence))
}

// afterClose замыкает петлю обучения и сохраняет сделку в журнал
func (e *Engine) afterClose(ctx context.Context, trade *models.Trade) {
	e.learner.AdjustWeights(trade)

	logger.Info("Позиция закрыта",
		zap.String("type", string(trade.Type)),
		zap.Float64("pnl", trade.PnL),
		zap.Bool("is_win", trade.IsWin),
		zap.String("reason", trade.CloseReason),
		zap.Float64("learning_score", e.learner.Score()))

	if e.store != nil {
		if err := e.store.SaveTrade(ctx, e.cfg.Trading.Symbol, trade); err != nil {
			logger.Warn("Не удалось сохранить сделку", zap.Error(err))
		}
	}
}

// recordSignal сохраняет решение цикла в историю сигналов
func (e *Engine) recordSignal(ctx context.Context, d decision.Decision, price float64) {
	if e.store == nil {
		return
	}

	components := make(map[string]float64, len(d.Contributions))
	for _, c := range d.Contributions {
		components[string(c.Signal)] = c.Magnitude
	}

	signal := &models.SignalResult{
		Symbol:     e.cfg.Trading.Symbol,
		Timestamp:  time.Now(),
		Action:     d.Action,
		Confidence: d.Confidence,
		BullScore:  d.BullScore,
		BearScore:  d.BearScore,
		Components: components,
	}

	if err := e.store.SaveSignal(ctx, signal); err != nil {
		logger.Warn("Не удалось сохранить сигнал", zap.Error(err))
	}
}

// Stop останавливает движок: открытая позиция принудительно
// закрывается по последней известной цене с причиной "stopped",
// состояние сохраняется
func (e *Engine) Stop() {
	if e.positions.Position() != nil && e.lastPrice > 0 {
		trade, err := e.positions.Close(e.lastPrice, "stopped")
		if err != nil {
			logger.Error("Ошибка закрытия позиции при остановке", zap.Error(err))
		} else {
			// Внешний контекст уже отменен, на запись в журнал
			// выделяется собственный короткий срок
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			e.afterClose(ctx, trade)
			cancel()
		}
	}
	e.snapshot()
}

// snapshot сохраняет минимальное возобновляемое состояние
func (e *Engine) snapshot() {
	snap := &storage.Snapshot{
		Capital:         e.positions.Capital(),
		StartingCapital: e.positions.StartingCapital(),
		PnL:             e.positions.PnL(),
		Wins:            e.positions.Wins(),
		Losses:          e.positions.Losses(),
		Position:        e.positions.Position(),
		Trades:          e.positions.Trades(),
		Weights:         e.learner.Weights(),
		LearningScore:   e.learner.Score(),
	}

	if err := storage.SaveSnapshot(e.cfg.Storage.SnapshotPath, snap); err != nil {
		logger.Warn("Не удалось сохранить состояние", zap.Error(err))
	}
}

// Resume восстанавливает состояние из снимка, если он есть.
// Это сохраняет непрерывность обучения между перезапусками.
func (e *Engine) Resume() error {
	snap, err := storage.LoadSnapshot(e.cfg.Storage.SnapshotPath)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}

	e.positions.Restore(snap.Capital, snap.StartingCapital, snap.PnL, snap.Wins, snap.Losses, snap.Position, snap.Trades)
	e.learner.Restore(snap.Weights, snap.LearningScore)

	logger.Info("Состояние восстановлено",
		zap.Float64("capital", snap.Capital),
		zap.Int("trades", len(snap.Trades)),
		zap.Float64("learning_score", snap.LearningScore))

	return nil
}

// Positions открывает доступ к менеджеру позиций
func (e *Engine) Positions() *position.Manager {
	return e.positions
}

// Learner открывает доступ к адаптеру обучения
func (e *Engine) Learner() *learning.Adapter {
	return e.learner
}

// lastClose возвращает цену закрытия последней свечи окна
func lastClose(candles []*models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}

// pollInterval базовый период опроса для таймфрейма: от секунд на
// младших таймфреймах до получаса на дневном
func pollInterval(interval string) time.Duration {
	switch interval {
	case "1m":
		return 5 * time.Second
	case "3m", "5m":
		return 15 * time.Second
	case "15m":
		return 30 * time.Second
	case "30m":
		return time.Minute
	case "1h":
		return 2 * time.Minute
	case "2h", "4h":
		return 5 * time.Minute
	case "6h", "12h":
		return 15 * time.Minute
	case "1d", "3d", "1w":
		return 30 * time.Minute
	default:
		return 3 * time.Second
	}
}
