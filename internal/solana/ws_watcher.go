package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures WebSocket watcher behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WalletSignature is one signature observed live for a watched wallet.
type WalletSignature struct {
	Wallet    string
	Signature string
	Slot      int64
	Failed    bool
}

// WSWatcher maintains one logsSubscribe subscription per watched wallet and
// fans observed signatures into a single channel. It reconnects with
// exponential backoff and resubscribes every wallet after a drop.
type WSWatcher struct {
	endpoint string
	config   WSConfig
	logger   *log.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subWallets maps subscription ID to wallet address
	subWallets   map[int64]string
	subWalletsMu sync.RWMutex

	// pendingSubs maps request ID to channel waiting for subscription ID
	pendingSubs   map[uint64]chan int64
	pendingSubsMu sync.Mutex

	out chan WalletSignature

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewWSWatcher connects to the endpoint and starts the read and ping loops.
// Observed signatures are delivered on Signatures().
func NewWSWatcher(ctx context.Context, endpoint string, config *WSConfig, logger *log.Logger) (*WSWatcher, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	w := &WSWatcher{
		endpoint:    endpoint,
		config:      cfg,
		logger:      logger,
		subWallets:  make(map[int64]string),
		pendingSubs: make(map[uint64]chan int64),
		out:         make(chan WalletSignature, 1024),
		done:        make(chan struct{}),
	}

	if err := w.connect(ctx); err != nil {
		return nil, err
	}

	w.wg.Add(2)
	go w.readLoop()
	go w.pingLoop()

	return w, nil
}

// Signatures returns the channel of live wallet signatures.
func (w *WSWatcher) Signatures() <-chan WalletSignature {
	return w.out
}

// connect establishes the WebSocket connection.
func (w *WSWatcher) connect(ctx context.Context) error {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	w.conn = conn
	return nil
}

// WatchWallet subscribes to logs mentioning the wallet address.
func (w *WSWatcher) WatchWallet(ctx context.Context, wallet string) error {
	subID, err := w.subscribeLogs(ctx, wallet)
	if err != nil {
		return err
	}

	w.subWalletsMu.Lock()
	w.subWallets[subID] = wallet
	w.subWalletsMu.Unlock()

	return nil
}

// subscribeLogs issues a logsSubscribe for a single wallet mention.
func (w *WSWatcher) subscribeLogs(ctx context.Context, wallet string) (int64, error) {
	if w.closed.Load() {
		return 0, fmt.Errorf("watcher closed")
	}

	reqID := w.requestID.Add(1)

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{wallet}},
			map[string]string{"commitment": "confirmed"},
		},
	}

	confirmCh := make(chan int64, 1)
	w.pendingSubsMu.Lock()
	w.pendingSubs[reqID] = confirmCh
	w.pendingSubsMu.Unlock()

	cleanup := func() {
		w.pendingSubsMu.Lock()
		delete(w.pendingSubs, reqID)
		w.pendingSubsMu.Unlock()
	}

	w.connMu.Lock()
	if w.conn == nil {
		w.connMu.Unlock()
		cleanup()
		return 0, fmt.Errorf("not connected")
	}
	w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
	err := w.conn.WriteJSON(req)
	w.connMu.Unlock()

	if err != nil {
		cleanup()
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case subID := <-confirmCh:
		return subID, nil
	case <-time.After(30 * time.Second):
		cleanup()
		return 0, fmt.Errorf("subscription timeout for wallet %s", wallet)
	case <-w.done:
		return 0, fmt.Errorf("watcher closed")
	case <-ctx.Done():
		cleanup()
		return 0, ctx.Err()
	}
}

// Close closes the connection and stops all loops.
func (w *WSWatcher) Close() error {
	if w.closed.Swap(true) {
		return nil // Already closed
	}

	close(w.done)

	w.connMu.Lock()
	if w.conn != nil {
		w.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		w.conn.Close()
	}
	w.connMu.Unlock()

	w.pendingSubsMu.Lock()
	for id, ch := range w.pendingSubs {
		close(ch)
		delete(w.pendingSubs, id)
	}
	w.pendingSubsMu.Unlock()

	w.wg.Wait()
	close(w.out)
	return nil
}

// readLoop reads messages and dispatches notifications.
func (w *WSWatcher) readLoop() {
	defer w.wg.Done()

	reconnectDelay := w.config.ReconnectDelay

	for !w.closed.Load() {
		w.connMu.Lock()
		conn := w.conn
		w.connMu.Unlock()

		if conn == nil {
			select {
			case <-w.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(w.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if w.closed.Load() {
				return
			}

			if !w.reconnecting.Swap(true) {
				go w.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > w.config.MaxReconnectDelay {
				reconnectDelay = w.config.MaxReconnectDelay
			}

			select {
			case <-w.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = w.config.ReconnectDelay

		w.handleMessage(message)
	}
}

// reconnect re-establishes the connection and resubscribes each wallet.
func (w *WSWatcher) reconnect(delay time.Duration) {
	defer w.reconnecting.Store(false)

	if w.closed.Load() {
		return
	}

	select {
	case <-w.done:
		return
	case <-time.After(delay):
	}

	w.connMu.Lock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := w.connect(ctx); err != nil {
		w.logger.Printf("ws reconnect failed: %v", err)
		return
	}

	w.resubscribeAll()
}

// resubscribeAll renews every wallet subscription after a reconnect.
func (w *WSWatcher) resubscribeAll() {
	w.subWalletsMu.RLock()
	wallets := make(map[int64]string, len(w.subWallets))
	for id, wallet := range w.subWallets {
		wallets[id] = wallet
	}
	w.subWalletsMu.RUnlock()

	for oldSubID, wallet := range wallets {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newSubID, err := w.subscribeLogs(ctx, wallet)
		cancel()

		if err != nil {
			w.logger.Printf("ws resubscribe %s failed: %v", wallet, err)
			continue
		}

		w.subWalletsMu.Lock()
		delete(w.subWallets, oldSubID)
		w.subWallets[newSubID] = wallet
		w.subWalletsMu.Unlock()
	}
}

// handleMessage processes one incoming WebSocket message.
func (w *WSWatcher) handleMessage(message []byte) {
	// Subscription confirmation first
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result > 0 {
		w.pendingSubsMu.Lock()
		ch, ok := w.pendingSubs[resp.ID]
		if ok {
			delete(w.pendingSubs, resp.ID)
		}
		w.pendingSubsMu.Unlock()

		if ok {
			select {
			case ch <- resp.Result:
			default:
			}
		}
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "logsNotification" {
		w.handleLogsNotification(&notif)
	}
}

// handleLogsNotification maps a notification back to its wallet and emits
// the signature.
func (w *WSWatcher) handleLogsNotification(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	w.subWalletsMu.RLock()
	wallet, ok := w.subWallets[notif.Params.Subscription]
	w.subWalletsMu.RUnlock()
	if !ok {
		return
	}

	value := notif.Params.Result.Value
	sig := WalletSignature{
		Wallet:    wallet,
		Signature: value.Signature,
		Failed:    value.Err != nil,
	}
	if notif.Params.Result.Context != nil {
		sig.Slot = notif.Params.Result.Context.Slot
	}

	select {
	case w.out <- sig:
	case <-w.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (w *WSWatcher) pingLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.connMu.Lock()
			if w.conn != nil {
				w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
				// A failed ping surfaces on the next read; reader reconnects.
				_ = w.conn.WriteMessage(websocket.PingMessage, nil)
			}
			w.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
