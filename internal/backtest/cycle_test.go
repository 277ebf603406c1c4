package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

func testSettings() models.TradeSettings {
	return models.TradeSettings{
		TradeType:     models.TradeTypeBoth,
		OnePointMeans: 0.01,
		PointValue:    1,
		ContractSize:  100,
		HoldCandles:   5,
	}
}

// candlesFromCloses строит свечи по ряду цен закрытия
func candlesFromCloses(closes []float64) []*models.Candle {
	candles := make([]*models.Candle, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = &models.Candle{
			Symbol:    "BTCUSDT",
			Interval:  "15m",
			OpenTime:  start.Add(time.Duration(i) * 15 * time.Minute),
			CloseTime: start.Add(time.Duration(i+1) * 15 * time.Minute),
			Open:      c,
			High:      c * 1.001,
			Low:       c * 0.999,
			Close:     c,
			Volume:    100,
		}
	}
	return candles
}

// trendingCloses падение и затем устойчивый рост: падение гонит RSI
// в перепроданность и дает сигналы long
func trendingCloses(n int) []float64 {
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		if i < n/3 {
			price *= 0.997
		} else {
			price *= 1.003
		}
		closes[i] = price
	}
	return closes
}

func TestRunCycleProducesTrades(t *testing.T) {
	candles := candlesFromCloses(trendingCloses(120))
	result := RunCycle(candles, testSettings())

	if result.Trades == 0 {
		t.Fatal("тренд должен давать хотя бы одну сделку")
	}
	if result.Trades != len(result.TradeList) {
		t.Errorf("счетчик сделок %d не совпадает со списком %d", result.Trades, len(result.TradeList))
	}
	if result.TotalGain != result.PnL {
		t.Errorf("TotalGain %v должен совпадать с PnL %v", result.TotalGain, result.PnL)
	}
	if result.WinRate < 0 || result.WinRate > 100 {
		t.Errorf("WinRate вне диапазона: %v", result.WinRate)
	}
}

func TestRunCycleNoOverlap(t *testing.T) {
	candles := candlesFromCloses(trendingCloses(300))
	result := RunCycle(candles, testSettings())

	for i := 1; i < len(result.TradeList); i++ {
		prev := result.TradeList[i-1]
		cur := result.TradeList[i]
		if cur.EntryIndex <= prev.ExitIndex {
			t.Errorf("сделка %d входит на %d до выхода предыдущей на %d",
				i, cur.EntryIndex, prev.ExitIndex)
		}
	}
}

func TestRunCycleHoldWindow(t *testing.T) {
	s := testSettings()
	s.HoldCandles = 7
	candles := candlesFromCloses(trendingCloses(200))
	result := RunCycle(candles, s)

	for _, tr := range result.TradeList {
		if tr.ExitIndex-tr.EntryIndex != 7 {
			t.Errorf("окно удержания %d, ожидалось 7", tr.ExitIndex-tr.EntryIndex)
		}
	}
}

func TestRunCycleTradeTypeFilter(t *testing.T) {
	candles := candlesFromCloses(trendingCloses(200))

	s := testSettings()
	s.TradeType = models.TradeTypeShort
	result := RunCycle(candles, s)

	for _, tr := range result.TradeList {
		if tr.Type != models.PositionShort {
			t.Errorf("при short-only найдена сделка %s", tr.Type)
		}
	}
}

func TestRunCycleInsufficientData(t *testing.T) {
	candles := candlesFromCloses(trendingCloses(10))
	result := RunCycle(candles, testSettings())

	if result.Trades != 0 || len(result.TradeList) != 0 {
		t.Errorf("короткий ряд не должен давать сделок: %+v", result)
	}
}

func TestRunCycleFeeAppliedTwice(t *testing.T) {
	candles := candlesFromCloses(trendingCloses(120))

	free := RunCycle(candles, testSettings())
	if free.Trades == 0 {
		t.Skip("нет сделок на тестовом ряде")
	}

	s := testSettings()
	s.Fee = 1.5
	paid := RunCycle(candles, s)

	// Тот же ряд, те же сигналы, но каждая сделка дешевле на 2 комиссии
	want := free.PnL - float64(paid.Trades)*2*1.5
	if math.Abs(paid.PnL-want) > 1e-6 {
		t.Errorf("PnL с комиссией %v, ожидалось %v", paid.PnL, want)
	}
}

func TestFinalizeMetrics(t *testing.T) {
	r := &models.BacktestResult{
		Trades: 3,
		Wins:   2,
		PnL:    50,
		TradeList: []models.BacktestTrade{
			{PnL: 100, IsWin: true},
			{PnL: -150},
			{PnL: 100, IsWin: true},
		},
	}
	finalize(r)

	if math.Abs(r.WinRate-200.0/3.0) > 1e-9 {
		t.Errorf("WinRate %v", r.WinRate)
	}
	if math.Abs(r.GainLossRatio-200.0/150.0) > 1e-9 {
		t.Errorf("GainLossRatio %v", r.GainLossRatio)
	}
	// Просадка: пик 100, дно после убытка -50
	if math.Abs(r.MaxDrawdown-150) > 1e-9 {
		t.Errorf("MaxDrawdown %v, ожидалось 150", r.MaxDrawdown)
	}
}

func TestFinalizeNoLosses(t *testing.T) {
	r := &models.BacktestResult{
		Trades:    1,
		Wins:      1,
		PnL:       10,
		TradeList: []models.BacktestTrade{{PnL: 10, IsWin: true}},
	}
	finalize(r)

	if !math.IsInf(r.GainLossRatio, 1) {
		t.Errorf("без убытков GainLossRatio должен быть +Inf, получено %v", r.GainLossRatio)
	}
}

func TestApproxRSIBounds(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5}
	if got := approxRSI(rising); got != 100 {
		t.Errorf("RSI чистого роста %v, ожидалось 100", got)
	}

	falling := []float64{5, 4, 3, 2, 1}
	if got := approxRSI(falling); got != 0 {
		t.Errorf("RSI чистого падения %v, ожидалось 0", got)
	}
}
