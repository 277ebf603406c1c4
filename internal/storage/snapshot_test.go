package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

func TestSnapshotRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")

	entry := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := &Snapshot{
		Capital:         10350.5,
		StartingCapital: 10000,
		PnL:             350.5,
		Wins:            3,
		Losses:          1,
		Position: &models.Position{
			ID:         "abc-123",
			Type:       models.PositionLong,
			Size:       0.5,
			EntryPrice: 30.01,
			EntryTime:  entry,
			Confidence: 0.62,
		},
		Weights:       models.LearningWeights{Trend: 1.15, Momentum: 0.95, RSI: 1, MACD: 1, WavePosition: 1, News: 1, HigherTF: 1},
		LearningScore: 12,
	}

	if err := SaveSnapshot(path, snap); err != nil {
		t.Fatalf("сохранение: %v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("загрузка: %v", err)
	}
	if loaded == nil {
		t.Fatal("снимок не загружен")
	}

	if loaded.Capital != snap.Capital || loaded.PnL != snap.PnL {
		t.Errorf("учет капитала не совпал: %+v", loaded)
	}
	if loaded.Wins != 3 || loaded.Losses != 1 {
		t.Errorf("счет побед/поражений не совпал: %d/%d", loaded.Wins, loaded.Losses)
	}
	if loaded.Position == nil || loaded.Position.ID != "abc-123" || loaded.Position.Type != models.PositionLong {
		t.Errorf("позиция не совпала: %+v", loaded.Position)
	}
	if !loaded.Position.EntryTime.Equal(entry) {
		t.Errorf("время входа не совпало: %v", loaded.Position.EntryTime)
	}
	if loaded.Weights != snap.Weights {
		t.Errorf("веса не совпали: %+v", loaded.Weights)
	}
	if loaded.LearningScore != 12 {
		t.Errorf("оценка обучения не совпала: %v", loaded.LearningScore)
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	snap, err := LoadSnapshot(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("отсутствующий файл не должен быть ошибкой: %v", err)
	}
	if snap != nil {
		t.Errorf("для отсутствующего файла ожидался nil, получено %+v", snap)
	}
}

func TestLoadSnapshotCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := os.WriteFile(path, []byte("{не yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadSnapshot(path); err == nil {
		t.Error("битый файл должен давать ошибку разбора")
	}
}

func TestSaveSnapshotAtomicReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")

	first := &Snapshot{Capital: 100}
	second := &Snapshot{Capital: 200}

	if err := SaveSnapshot(path, first); err != nil {
		t.Fatal(err)
	}
	if err := SaveSnapshot(path, second); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Capital != 200 {
		t.Errorf("ожидалась перезапись снимка, капитал %v", loaded.Capital)
	}

	// Временный файл не должен оставаться после записи
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("временный файл не удален после замены")
	}
}
