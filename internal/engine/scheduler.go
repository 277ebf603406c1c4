// internal/engine/scheduler.go
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/logger"
)

// Scheduler внешний по отношению к движку цикл времени: выполняет
// цикл, ждет возвращенную им задержку и повторяет. Период таким
// образом пересчитывается после каждого цикла, а не фиксирован.
// Отмена контекста снимает ожидающий таймер и останавливает движок.
type Scheduler struct {
	engine *Engine
}

// NewScheduler создает планировщик для движка
func NewScheduler(engine *Engine) *Scheduler {
	return &Scheduler{engine: engine}
}

// Run крутит циклы до отмены контекста или исчерпания лимита циклов
// (нулевой лимит означает бесконечный цикл). Гарантия: следующий
// цикл планируется только после завершения текущего, два цикла
// никогда не выполняются одновременно.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.engine.Stop()

	maxCycles := s.engine.cfg.Engine.MaxCycles
	for cycles := 0; maxCycles == 0 || cycles < maxCycles; cycles++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay, err := s.engine.Cycle(ctx)
		if err != nil {
			logger.Error("Ошибка торгового цикла", zap.Error(err))
			delay = 5 * time.Second
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return nil
}
