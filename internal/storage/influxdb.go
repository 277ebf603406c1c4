// internal/storage/influxdb.go
package storage

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/config"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

// Storage интерфейс для работы с хранилищем данных
type Storage interface {
	// Методы для свечей
	SaveCandles(ctx context.Context, candles []*models.Candle) error
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error)

	// Методы для сделок
	SaveTrade(ctx context.Context, symbol string, trade *models.Trade) error
	GetTrades(ctx context.Context, symbol string, limit int) ([]*models.Trade, error)

	// Методы для сигналов
	SaveSignal(ctx context.Context, signal *models.SignalResult) error
	GetSignalHistory(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error)

	Close()
}

// InfluxDBStorage реализует интерфейс Storage с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	writeAPI api.WriteAPI
	org      string
	bucket   string
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(cfg config.StorageConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(context.Background())
	if err != nil {
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	queryAPI := client.QueryAPI(cfg.Organization)
	writeAPI := client.WriteAPI(cfg.Organization, cfg.Bucket)

	return &InfluxDBStorage{
		client:   client,
		queryAPI: queryAPI,
		writeAPI: writeAPI,
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
	}, nil
}

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() {
	s.client.Close()
}

// SaveCandles сохраняет множество свечей
func (s *InfluxDBStorage) SaveCandles(ctx context.Context, candles []*models.Candle) error {
	for _, candle := range candles {
		point := influxdb2.NewPoint(
			"candles",
			map[string]string{
				"symbol":   candle.Symbol,
				"interval": candle.Interval,
			},
			map[string]interface{}{
				"open":   candle.Open,
				"high":   candle.High,
				"low":    candle.Low,
				"close":  candle.Close,
				"volume": candle.Volume,
			},
			candle.OpenTime,
		)
		s.writeAPI.WritePoint(point)
	}

	s.writeAPI.Flush()
	return nil
}

// GetCandles получает исторические свечи, упорядоченные по возрастанию времени
func (s *InfluxDBStorage) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	// Формируем Flux-запрос
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: -30d)
			|> filter(fn: (r) => r._measurement == "candles")
			|> filter(fn: (r) => r.symbol == "%s")
			|> filter(fn: (r) => r.interval == "%s")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: %d)
	`, s.bucket, symbol, interval, limit)

	// Выполняем запрос
	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса свечей: %w", err)
	}

	// Обрабатываем результаты
	var candles []*models.Candle
	for result.Next() {
		record := result.Record()

		// Извлекаем поля
		timestamp := record.Time()
		open, _ := record.ValueByKey("open").(float64)
		high, _ := record.ValueByKey("high").(float64)
		low, _ := record.ValueByKey("low").(float64)
		closePrice, _ := record.ValueByKey("close").(float64)
		volume, _ := record.ValueByKey("volume").(float64)

		// Создаем объект свечи
		candle := &models.Candle{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  timestamp,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			CloseTime: timestamp.Add(getIntervalDuration(interval)),
		}

		candles = append(candles, candle)
	}

	// Проверяем на ошибки при обработке результатов
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}

	// Запрос отдает свечи от новых к старым, анализаторы ждут обратный порядок
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

// SaveTrade сохраняет закрытую сделку в журнал
func (s *InfluxDBStorage) SaveTrade(ctx context.Context, symbol string, trade *models.Trade) error {
	point := influxdb2.NewPoint(
		"trades",
		map[string]string{
			"symbol": symbol,
			"type":   string(trade.Type),
		},
		map[string]interface{}{
			"trade_id":     trade.ID,
			"entry_price":  trade.EntryPrice,
			"exit_price":   trade.ExitPrice,
			"size":         trade.Size,
			"pnl":          trade.PnL,
			"is_win":       trade.IsWin,
			"entry_time":   trade.EntryTime.Unix(),
			"close_reason": trade.CloseReason,
		},
		trade.ExitTime,
	)

	s.writeAPI.WritePoint(point)
	s.writeAPI.Flush()

	return nil
}

// GetTrades получает историю закрытых сделок
func (s *InfluxDBStorage) GetTrades(ctx context.Context, symbol string, limit int) ([]*models.Trade, error) {
	// Формируем Flux-запрос
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: -90d)
			|> filter(fn: (r) => r._measurement == "trades")
			|> filter(fn: (r) => r.symbol == "%s")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: %d)
	`, s.bucket, symbol, limit)

	// Выполняем запрос
	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса сделок: %w", err)
	}

	// Обрабатываем результаты
	var trades []*models.Trade
	for result.Next() {
		record := result.Record()

		// Извлекаем поля
		tradeID, _ := record.ValueByKey("trade_id").(string)
		tradeType, _ := record.ValueByKey("type").(string)
		entryPrice, _ := record.ValueByKey("entry_price").(float64)
		exitPrice, _ := record.ValueByKey("exit_price").(float64)
		size, _ := record.ValueByKey("size").(float64)
		pnl, _ := record.ValueByKey("pnl").(float64)
		isWin, _ := record.ValueByKey("is_win").(bool)
		entryUnix, _ := record.ValueByKey("entry_time").(int64)
		closeReason, _ := record.ValueByKey("close_reason").(string)

		trade := &models.Trade{
			ID:          tradeID,
			Type:        models.PositionType(tradeType),
			EntryPrice:  entryPrice,
			ExitPrice:   exitPrice,
			Size:        size,
			PnL:         pnl,
			IsWin:       isWin,
			EntryTime:   time.Unix(entryUnix, 0),
			ExitTime:    record.Time(),
			CloseReason: closeReason,
		}

		trades = append(trades, trade)
	}

	// Проверяем на ошибки
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}

	return trades, nil
}

// SaveSignal сохраняет решение цикла
func (s *InfluxDBStorage) SaveSignal(ctx context.Context, signal *models.SignalResult) error {
	// Создаем точку для записи
	point := influxdb2.NewPoint(
		"signals",
		map[string]string{
			"symbol": signal.Symbol,
		},
		map[string]interface{}{
			"action":     string(signal.Action),
			"confidence": signal.Confidence,
			"bull_score": signal.BullScore,
			"bear_score": signal.BearScore,
			"components": fmt.Sprintf("%v", signal.Components),
		},
		signal.Timestamp,
	)

	s.writeAPI.WritePoint(point)
	s.writeAPI.Flush()

	return nil
}

// GetSignalHistory получает историю сигналов
func (s *InfluxDBStorage) GetSignalHistory(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error) {
	// Формируем Flux-запрос
	query := fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: -30d)
			|> filter(fn: (r) => r._measurement == "signals")
			|> filter(fn: (r) => r.symbol == "%s")
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: %d)
	`, s.bucket, symbol, limit)

	// Выполняем запрос
	result, err := s.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса истории сигналов: %w", err)
	}

	// Обрабатываем результаты
	var signals []*models.SignalResult
	for result.Next() {
		record := result.Record()

		// Извлекаем поля
		timestamp := record.Time()
		action, _ := record.ValueByKey("action").(string)
		confidence, _ := record.ValueByKey("confidence").(float64)
		bull, _ := record.ValueByKey("bull_score").(float64)
		bear, _ := record.ValueByKey("bear_score").(float64)

		// Создаем объект сигнала
		signal := &models.SignalResult{
			Symbol:     symbol,
			Timestamp:  timestamp,
			Action:     models.Action(action),
			Confidence: confidence,
			BullScore:  bull,
			BearScore:  bear,
			Components: make(map[string]float64),
		}

		signals = append(signals, signal)
	}

	// Проверяем на ошибки
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}

	return signals, nil
}

// getIntervalDuration конвертирует строковый интервал в duration
func getIntervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "2h":
		return 2 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "6h":
		return 6 * time.Hour
	case "8h":
		return 8 * time.Hour
	case "12h":
		return 12 * time.Hour
	case "1d":
		return 24 * time.Hour
	case "3d":
		return 72 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}
