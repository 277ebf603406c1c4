// internal/storage/snapshot.go
package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

// Snapshot минимальное состояние, переживающее перезапуск процесса.
// Сюда входит все, что нужно для продолжения торговли и обучения;
// остальное состояние пересчитывается из свежих данных.
type Snapshot struct {
	Capital         float64                `yaml:"capital"`
	StartingCapital float64                `yaml:"starting_capital"`
	PnL             float64                `yaml:"pnl"`
	Wins            int                    `yaml:"wins"`
	Losses          int                    `yaml:"losses"`
	Position        *models.Position       `yaml:"position,omitempty"`
	Trades          []*models.Trade        `yaml:"trades,omitempty"`
	Weights         models.LearningWeights `yaml:"learning_weights"`
	LearningScore   float64                `yaml:"learning_score"`
}

// SaveSnapshot записывает состояние в YAML-файл
func SaveSnapshot(path string, snap *Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("ошибка сериализации состояния: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи состояния: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("ошибка замены файла состояния: %w", err)
	}

	return nil
}

// LoadSnapshot читает состояние из YAML-файла.
// Отсутствующий файл не является ошибкой: возвращается nil.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения состояния: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("ошибка разбора состояния: %w", err)
	}

	return &snap, nil
}
