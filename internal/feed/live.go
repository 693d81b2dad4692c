package feed

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xsa-dev/barter-rs/internal/event"
	"github.com/xsa-dev/barter-rs/internal/infra"
)

// klineMessage is the venue's candle payload. json.Number keeps the raw
// decimal string until conversion so malformed numbers fail per-field.
type klineMessage struct {
	Type   string `json:"type"` // kline
	Symbol string `json:"symbol"`

	Open      json.Number `json:"open"`
	High      json.Number `json:"high"`
	Low       json.Number `json:"low"`
	Close     json.Number `json:"close"`
	Volume    json.Number `json:"volume"`
	Timestamp int64       `json:"timestamp"` // bar close time, unix millis

	Closed bool `json:"closed"` // true when the bar is final
}

// Credentials authenticate the market-data subscription. The zero value
// means the public stream.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// LiveMarketFeed subscribes to a venue kline stream and pushes one
// MarketEvent per closed bar onto the trader's feed. Connection lifecycle
// (reconnect, backoff, ping) is delegated to BaseWSWorker.
type LiveMarketFeed struct {
	base     *infra.BaseWSWorker
	url      string
	exchange string
	symbols  []string
	creds    Credentials
	sink     Sink
}

// NewLiveMarketFeed creates a live feed worker for one exchange.
func NewLiveMarketFeed(url, exchange string, symbols []string, creds Credentials, sink Sink) *LiveMarketFeed {
	f := &LiveMarketFeed{
		url:      url,
		exchange: exchange,
		symbols:  symbols,
		creds:    creds,
		sink:     sink,
	}
	f.base = infra.NewBaseWSWorker(f)
	return f
}

// ID returns the worker identifier.
func (f *LiveMarketFeed) ID() string { return "KLINE_" + f.exchange }

// GetURL returns the WebSocket endpoint.
func (f *LiveMarketFeed) GetURL() string { return f.url }

// Connect starts the WebSocket connection.
func (f *LiveMarketFeed) Connect(ctx context.Context) error {
	f.base.Start(ctx)
	return nil
}

// Disconnect terminates the connection.
func (f *LiveMarketFeed) Disconnect() {
	f.base.Stop()
}

// OnConnect authenticates when credentials are configured, then subscribes
// to the kline channel for every configured symbol.
func (f *LiveMarketFeed) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	if f.creds.AccessKey != "" {
		b, _ := json.Marshal(authRequest(f.creds, time.Now().UnixMilli()))
		if err := f.base.Write(websocket.TextMessage, b); err != nil {
			return fmt.Errorf("auth frame: %w", err)
		}
	}

	msg := map[string]interface{}{
		"op":      "subscribe",
		"channel": "kline",
		"symbols": f.symbols,
		"ticket":  fmt.Sprintf("go-%d", time.Now().UnixNano()),
	}
	b, _ := json.Marshal(msg)
	return f.base.Write(websocket.TextMessage, b)
}

// OnMessage converts closed bars into market events. Partial bars and
// non-kline frames are ignored.
func (f *LiveMarketFeed) OnMessage(ctx context.Context, msg []byte) {
	var kline klineMessage
	if err := json.Unmarshal(msg, &kline); err != nil || kline.Type != "kline" {
		return
	}
	if !kline.Closed {
		return
	}

	bar, err := parseBar(&kline)
	if err != nil {
		slog.Warn("Malformed kline dropped",
			slog.String("symbol", kline.Symbol),
			slog.Any("error", err))
		return
	}

	ev := &event.MarketEvent{
		Trace:     uuid.New(),
		Timestamp: time.UnixMilli(kline.Timestamp).UTC(),
		Exchange:  f.exchange,
		Symbol:    kline.Symbol,
		Bar:       bar,
	}

	if err := f.sink.Push(ev); err != nil {
		slog.Warn("Market event dropped, feed finished",
			slog.String("symbol", kline.Symbol))
	}
}

// authRequest signs the current timestamp with the secret key so the venue
// can verify key ownership without the secret crossing the wire.
func authRequest(creds Credentials, tsMillis int64) map[string]string {
	ts := strconv.FormatInt(tsMillis, 10)
	mac := hmac.New(sha256.New, []byte(creds.SecretKey))
	mac.Write([]byte(ts))

	return map[string]string{
		"op":        "auth",
		"key":       creds.AccessKey,
		"timestamp": ts,
		"sign":      hex.EncodeToString(mac.Sum(nil)),
	}
}

// OnPing sends an application-level ping frame.
func (f *LiveMarketFeed) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return f.base.Write(websocket.TextMessage, []byte(`{"op":"ping"}`))
}

func parseBar(kline *klineMessage) (event.Bar, error) {
	open, err := kline.Open.Float64()
	if err != nil {
		return event.Bar{}, fmt.Errorf("open: %w", err)
	}
	high, err := kline.High.Float64()
	if err != nil {
		return event.Bar{}, fmt.Errorf("high: %w", err)
	}
	low, err := kline.Low.Float64()
	if err != nil {
		return event.Bar{}, fmt.Errorf("low: %w", err)
	}
	closePrice, err := kline.Close.Float64()
	if err != nil {
		return event.Bar{}, fmt.Errorf("close: %w", err)
	}
	volume, err := kline.Volume.Float64()
	if err != nil {
		return event.Bar{}, fmt.Errorf("volume: %w", err)
	}

	return event.Bar{
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
