// internal/position/manager.go
package position

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

var (
	// ErrPositionOpen возвращается при попытке открыть позицию,
	// когда одна уже открыта. Вызывающий обязан сначала закрыть ее.
	ErrPositionOpen = errors.New("позиция уже открыта")
	// ErrNoPosition возвращается при закрытии без открытой позиции
	ErrNoPosition = errors.New("нет открытой позиции")
)

// Manager владеет единственной открытой позицией и учетом капитала.
// Инвариант: в любой момент открыто не более одной позиции.
type Manager struct {
	settings models.TradeSettings

	capital         float64
	startingCapital float64
	pnl             float64
	wins            int
	losses          int

	position *models.Position
	trades   []*models.Trade
}

// NewManager создает менеджер позиций с начальным капиталом
func NewManager(settings models.TradeSettings, capital float64) *Manager {
	return &Manager{
		settings:        settings,
		capital:         capital,
		startingCapital: capital,
	}
}

// Open открывает позицию по сырой цене. Спред расширяет вход против
// трейдера, комиссия сразу списывается с капитала, размер ограничен
// [ContractMinSize, MaxPositionSize]. Открытие при открытой позиции
// отклоняется с ErrPositionOpen.
func (m *Manager) Open(posType models.PositionType, rawPrice, confidence float64, reasons []models.SignalContribution) (*models.Position, error) {
	if m.position != nil {
		return nil, ErrPositionOpen
	}
	if math.IsNaN(rawPrice) || rawPrice <= 0 {
		return nil, fmt.Errorf("некорректная цена входа: %v", rawPrice)
	}

	halfSpread := m.settings.Spread / 2 * m.settings.OnePointMeans
	entry := rawPrice + halfSpread
	if posType == models.PositionShort {
		entry = rawPrice - halfSpread
	}

	size := confidence * m.settings.MaxPositionSize
	if size < m.settings.ContractMinSize {
		size = m.settings.ContractMinSize
	}
	if size > m.settings.MaxPositionSize {
		size = m.settings.MaxPositionSize
	}

	m.capital -= m.settings.Fee

	m.position = &models.Position{
		ID:         uuid.NewString(),
		Type:       posType,
		Size:       size,
		EntryPrice: entry,
		EntryTime:  time.Now(),
		Confidence: confidence,
		Reasons:    reasons,
	}

	return m.position, nil
}

// Close закрывает позицию по сырой цене: спред против выхода,
// пункты конвертируются в валюту через стоимость пункта и размер
// контракта, комиссия списывается повторно. Возвращает неизменяемую
// запись сделки.
func (m *Manager) Close(rawPrice float64, reason string) (*models.Trade, error) {
	if m.position == nil {
		return nil, ErrNoPosition
	}
	if math.IsNaN(rawPrice) || rawPrice <= 0 {
		return nil, fmt.Errorf("некорректная цена выхода: %v", rawPrice)
	}

	halfSpread := m.settings.Spread / 2 * m.settings.OnePointMeans
	exit := rawPrice - halfSpread
	if m.position.Type == models.PositionShort {
		exit = rawPrice + halfSpread
	}

	points := m.pointsFromEntry(exit)
	pnl := points*m.settings.PointValue*m.position.Size*m.settings.ContractSize - m.settings.Fee

	trade := &models.Trade{
		ID:          m.position.ID,
		Type:        m.position.Type,
		EntryPrice:  m.position.EntryPrice,
		ExitPrice:   exit,
		Size:        m.position.Size,
		PnL:         pnl,
		IsWin:       pnl > 0,
		EntryTime:   m.position.EntryTime,
		ExitTime:    time.Now(),
		Reasons:     m.position.Reasons,
		CloseReason: reason,
	}

	m.capital += pnl
	m.pnl += pnl
	if trade.IsWin {
		m.wins++
	} else {
		m.losses++
	}
	m.trades = append(m.trades, trade)
	m.position = nil

	return trade, nil
}

// CheckStopLossTakeProfit принудительно закрывает позицию, если
// уход в пунктах от входа пробил стоп-лосс или тейк-профит.
// Нулевой порог отключает соответствующую проверку. Без открытой
// позиции вызов является no-op (идемпотентность).
func (m *Manager) CheckStopLossTakeProfit(price float64) (*models.Trade, error) {
	if m.position == nil {
		return nil, nil
	}
	if math.IsNaN(price) || price <= 0 {
		return nil, nil
	}

	points := m.pointsFromEntry(price)

	if m.settings.StopLoss > 0 && points <= -m.settings.StopLoss {
		return m.Close(price, "Stop loss hit")
	}
	if m.settings.TakeProfit > 0 && points >= m.settings.TakeProfit {
		return m.Close(price, "Take profit hit")
	}

	return nil, nil
}

// pointsFromEntry считает уход цены от входа в пунктах со знаком,
// зависящим от типа позиции
func (m *Manager) pointsFromEntry(price float64) float64 {
	diff := price - m.position.EntryPrice
	if m.position.Type == models.PositionShort {
		diff = -diff
	}
	return diff / m.settings.OnePointMeans
}

// Position возвращает открытую позицию или nil
func (m *Manager) Position() *models.Position {
	return m.position
}

// Capital возвращает текущий капитал
func (m *Manager) Capital() float64 {
	return m.capital
}

// StartingCapital возвращает начальный капитал
func (m *Manager) StartingCapital() float64 {
	return m.startingCapital
}

// PnL возвращает накопленный результат
func (m *Manager) PnL() float64 {
	return m.pnl
}

// Wins возвращает число прибыльных сделок
func (m *Manager) Wins() int {
	return m.wins
}

// Losses возвращает число убыточных сделок
func (m *Manager) Losses() int {
	return m.losses
}

// Trades возвращает журнал закрытых сделок
func (m *Manager) Trades() []*models.Trade {
	return m.trades
}

// Restore восстанавливает учет из сохраненного состояния
func (m *Manager) Restore(capital, startingCapital, pnl float64, wins, losses int, pos *models.Position, trades []*models.Trade) {
	m.capital = capital
	m.startingCapital = startingCapital
	m.pnl = pnl
	m.wins = wins
	m.losses = losses
	m.position = pos
	m.trades = trades
}
