package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/internal/config"
	"github.com/JoeSzeles/Bot-builder-ProRealTime-sub000/pkg/models"
)

func newTestClient(url string) *Client {
	return NewClient(config.NewsConfig{URL: url, TimeoutSec: 2})
}

func TestCheckParsesSentiment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("asset"); got != "BTCUSDT" {
			t.Errorf("актив в запросе %q", got)
		}
		w.Write([]byte(`{"sentiment": "bullish"}`))
	}))
	defer srv.Close()

	sentiment, err := newTestClient(srv.URL).Check(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("проверка фона: %v", err)
	}
	if sentiment != models.SentimentBullish {
		t.Errorf("фон %q, ожидался bullish", sentiment)
	}
}

func TestCheckUnknownSentimentIsNeutral(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"sentiment": "euphoric"}`))
	}))
	defer srv.Close()

	sentiment, err := newTestClient(srv.URL).Check(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("проверка фона: %v", err)
	}
	if sentiment != models.SentimentNeutral {
		t.Errorf("незнакомый фон должен считаться нейтральным, получено %q", sentiment)
	}
}

func TestCheckEmptyURLNeutral(t *testing.T) {
	sentiment, err := newTestClient("").Check(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("пустой URL не должен быть ошибкой: %v", err)
	}
	if sentiment != models.SentimentNeutral {
		t.Errorf("без сервиса фон нейтрален, получено %q", sentiment)
	}
}

func TestCheckRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"sentiment": "bearish"}`))
	}))
	defer srv.Close()

	sentiment, err := newTestClient(srv.URL).Check(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("повторы должны были спасти запрос: %v", err)
	}
	if sentiment != models.SentimentBearish {
		t.Errorf("фон %q, ожидался bearish", sentiment)
	}
	if calls.Load() != 3 {
		t.Errorf("сделано %d запросов, ожидалось 3", calls.Load())
	}
}

func TestCheckExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sentiment, err := newTestClient(srv.URL).Check(context.Background(), "BTCUSDT")
	if err == nil {
		t.Fatal("исчерпание повторов должно давать ошибку")
	}
	if sentiment != models.SentimentNeutral {
		t.Errorf("при ошибке фон должен быть нейтральным, получено %q", sentiment)
	}
}

func TestCheckCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestClient(srv.URL).Check(ctx, "BTCUSDT"); err == nil {
		t.Error("отмененный контекст должен прерывать повторы")
	}
}
