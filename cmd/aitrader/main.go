package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/config"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/engine"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/exchange"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/news"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/optimize"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/storage"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/logger"
)

func main() {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	strategyPath := flag.String("strategy", "", "путь к файлу сгенерированной стратегии")
	runOptimizer := flag.Bool("optimize", false, "запустить поиск параметров перед торговлей")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Log.Level)
	defer logger.GetLogger().Sync()

	// Создаем контекст с возможностью отмены через горутину
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Настраиваем обработку сигналов завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nЗавершение работы...")
		cancel()
	}()

	// Инициализируем хранилище; его отказ не мешает торговле,
	// теряется лишь журнал сделок и история сигналов
	var store storage.Storage
	if cfg.Storage.Type == "influxdb" {
		influx, err := storage.NewInfluxDBStorage(cfg.Storage)
		if err != nil {
			logger.Warn("Хранилище недоступно, работа без журнала", zap.Error(err))
		} else {
			store = influx
			defer influx.Close()
		}
	}

	// Инициализируем клиент биржи
	client, err := exchange.NewBinanceClient(cfg.Binance)
	if err != nil {
		logger.Fatal("Ошибка инициализации клиента биржи", zap.Error(err))
	}

	// Клиент новостного фона
	newsClient := news.NewClient(cfg.News)

	// Создаем движок и восстанавливаем состояние предыдущего запуска
	eng := engine.New(cfg, client, newsClient, store)
	if err := eng.Resume(); err != nil {
		logger.Warn("Не удалось восстановить состояние", zap.Error(err))
	}

	// Загружаем сгенерированную стратегию, если она задана
	if *strategyPath != "" {
		text, err := os.ReadFile(*strategyPath)
		if err != nil {
			logger.Fatal("Ошибка чтения файла стратегии", zap.Error(err))
		}
		eng.SetStrategy(string(text))
	}

	// Опциональный прогон оптимизатора перед живой торговлей:
	// окно истории берется вдвое шире живого, чтобы правило успело
	// набрать статистику
	if *runOptimizer {
		span := exchange.IntervalDuration(cfg.Trading.ActiveTimeframe) * time.Duration(2*cfg.Trading.CandleLimit)
		candles, err := client.GetKlinesRange(ctx, cfg.Trading.Symbol, cfg.Trading.ActiveTimeframe,
			time.Now().Add(-span), time.Now(), 2*cfg.Trading.CandleLimit)
		if err != nil {
			logger.Fatal("Ошибка загрузки свечей для оптимизации", zap.Error(err))
		}

		optimizer := optimize.NewOptimizer(cfg.Optimizer, optimize.NewCycleEvaluator())
		candidates, err := eng.Optimize(ctx, optimizer, candles)
		if err != nil {
			logger.Warn("Оптимизация прервана", zap.Error(err))
		}
		if best, err := optimize.Best(candidates); err == nil {
			eng.ApplyCandidate(best)
		}
	}

	// Запускаем торговый цикл (блокирующий вызов)
	scheduler := engine.NewScheduler(eng)
	if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("Планировщик завершился с ошибкой", zap.Error(err))
	}
}
