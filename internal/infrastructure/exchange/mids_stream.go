package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const midsPingInterval = 50 * time.Second

// MidsStream keeps the latest allMids push from the Hyperliquid websocket.
type MidsStream struct {
	url    string
	logger *zap.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	done      chan struct{}
	mids      map[string]float64
	updatedAt time.Time
}

func NewMidsStream(url string, logger *zap.Logger) *MidsStream {
	return &MidsStream{url: url, logger: logger}
}

// Connect dials the feed and subscribes to allMids. Messages are consumed in
// the background until Close is called or the server drops the connection.
func (m *MidsStream) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return fmt.Errorf("dial mids stream: %w", err)
	}
	sub := map[string]interface{}{
		"method":       "subscribe",
		"subscription": map[string]interface{}{"type": "allMids"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe allMids: %w", err)
	}

	m.conn = conn
	m.done = make(chan struct{})
	go m.readLoop(conn, m.done)
	go m.pingLoop(conn, m.done)
	m.logger.Info("Mids stream connected", zap.String("url", m.url))
	return nil
}

// Snapshot returns a copy of the latest mids if they are younger than maxAge.
// A zero maxAge accepts any age.
func (m *MidsStream) Snapshot(maxAge time.Duration) (map[string]float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.mids == nil {
		return nil, false
	}
	if maxAge > 0 && time.Since(m.updatedAt) > maxAge {
		return nil, false
	}
	out := make(map[string]float64, len(m.mids))
	for k, v := range m.mids {
		out[k] = v
	}
	return out, true
}

func (m *MidsStream) Close() error {
	m.mu.Lock()
	conn, done := m.conn, m.done
	m.conn = nil
	m.mu.Unlock()
	if conn == nil {
		return nil
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()
	<-done
	return nil
}

func (m *MidsStream) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			m.logger.Warn("Mids stream read failed", zap.Error(err))
			m.mu.Lock()
			if m.conn == conn {
				m.conn = nil
			}
			m.mu.Unlock()
			return
		}
		if err := m.handleMessage(message); err != nil {
			m.logger.Debug("Skipping mids message", zap.Error(err))
		}
	}
}

func (m *MidsStream) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(midsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(map[string]string{"method": "ping"}); err != nil {
				m.logger.Debug("Mids ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (m *MidsStream) handleMessage(message []byte) error {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return err
	}
	if msg.Channel != "allMids" {
		return nil
	}

	var data allMidsData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return err
	}
	mids, err := parseMids(data.Mids)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.mids = mids
	m.updatedAt = time.Now()
	m.mu.Unlock()
	return nil
}
