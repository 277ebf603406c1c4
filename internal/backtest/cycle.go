// internal/backtest/cycle.go
package backtest

import (
	"math"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

// Параметры упрощенного правила
const (
	smaPeriod      = 10
	rsiPeriod      = 14
	momentumWindow = 3
	breakoutRatio  = 1.001
	momentumFloor  = 0.001
	backtestSize   = 1.0
)

// RunCycle прогоняет упрощенное, самодостаточное правило по срезу
// свечей. Правило нарочно проще живого скорера: оно вызывается
// оптимизатором сотни раз за прогон и должно быть быстрым.
//
// Сигнал long: RSI < 35 или (цена выше SMA10 × 1.001 и импульс
// последних свечей > 0.1%). Сигнал short зеркален. После сигнала
// позиция держится фиксированное число свечей и закрывается по
// закрытию; сканирование продолжается за окном удержания, так что
// пересекающихся сделок не бывает.
func RunCycle(candles []*models.Candle, settings models.TradeSettings) *models.BacktestResult {
	result := &models.BacktestResult{}
	hold := settings.HoldCandles
	if hold <= 0 {
		hold = 5
	}
	if len(candles) <= rsiPeriod+hold {
		return result
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	halfSpread := settings.Spread / 2 * settings.OnePointMeans

	for i := rsiPeriod; i < len(candles)-hold; i++ {
		sma := mean(closes[i-smaPeriod : i])
		rsi := approxRSI(closes[i-rsiPeriod : i+1])
		momentum := closes[i]/closes[i-momentumWindow] - 1

		var posType models.PositionType
		switch {
		case (rsi < 35 || (closes[i] > sma*breakoutRatio && momentum > momentumFloor)) && settings.TradeType.AllowsLong():
			posType = models.PositionLong
		case (rsi > 65 || (closes[i] < sma/breakoutRatio && momentum < -momentumFloor)) && settings.TradeType.AllowsShort():
			posType = models.PositionShort
		default:
			continue
		}

		exitIdx := i + hold
		entry := closes[i] + halfSpread
		exit := closes[exitIdx] - halfSpread
		if posType == models.PositionShort {
			entry = closes[i] - halfSpread
			exit = closes[exitIdx] + halfSpread
		}

		points := (exit - entry) / settings.OnePointMeans
		if posType == models.PositionShort {
			points = -points
		}

		// Комиссия списывается дважды: вход и выход
		pnl := points*settings.PointValue*backtestSize*settings.ContractSize - 2*settings.Fee

		trade := models.BacktestTrade{
			Type:       posType,
			EntryIndex: i,
			ExitIndex:  exitIdx,
			EntryPrice: entry,
			ExitPrice:  exit,
			PnL:        pnl,
			IsWin:      pnl > 0,
		}

		result.Trades++
		if trade.IsWin {
			result.Wins++
		}
		result.PnL += pnl
		result.TradeList = append(result.TradeList, trade)

		// Сканирование возобновляется за окном удержания
		i = exitIdx
	}

	finalize(result)
	return result
}

// finalize досчитывает агрегаты прогона для метрик оптимизатора
func finalize(r *models.BacktestResult) {
	r.TotalGain = r.PnL

	if r.Trades > 0 {
		r.WinRate = float64(r.Wins) / float64(r.Trades) * 100
	}

	var grossGain, grossLoss float64
	var equity, peak float64
	for _, t := range r.TradeList {
		if t.PnL > 0 {
			grossGain += t.PnL
		} else {
			grossLoss += -t.PnL
		}
		equity += t.PnL
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > r.MaxDrawdown {
			r.MaxDrawdown = dd
		}
	}

	if grossLoss > 0 {
		r.GainLossRatio = grossGain / grossLoss
	} else if grossGain > 0 {
		r.GainLossRatio = math.Inf(1)
	}
}

// mean среднее арифметическое среза
func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// approxRSI приближенный RSI по простым средним приростам и потерям
// (без сглаживания Уайлдера, достаточно для грубого правила)
func approxRSI(closes []float64) float64 {
	var gains, losses float64
	for i := 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gains += diff
		} else {
			losses += -diff
		}
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}
