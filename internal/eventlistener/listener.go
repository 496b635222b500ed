// internal/eventlistener/listener.go
package eventlistener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
)

// EventListener держит подписку logsSubscribe и переподключается при обрыве.
type EventListener struct {
	wsURL      string
	programID  string
	commitment string
	logger     *zap.Logger
	reqID      atomic.Uint64
}

func NewEventListener(wsURL, programID, commitment string, logger *zap.Logger) *EventListener {
	if commitment == "" {
		commitment = "finalized"
	}
	return &EventListener{
		wsURL:      wsURL,
		programID:  programID,
		commitment: commitment,
		logger:     logger.Named("listener"),
	}
}

type session struct {
	conn  net.Conn
	subID uint64
	wmu   sync.Mutex
}

func (s *session) write(op ws.OpCode, p []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return wsutil.WriteClientMessage(s.conn, op, p)
}

// Run подписывается и отдает уведомления в out до отмены ctx.
// Ошибка возвращается только если первое подключение не удалось после maxAttempts попыток.
func (el *EventListener) Run(ctx context.Context, out chan<- Notification) error {
	sess, err := el.dialWithBackoff(ctx, maxAttempts)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe to %s: %w", el.programID, err)
	}

	for {
		err := el.consume(ctx, sess, out)
		if ctx.Err() != nil {
			return nil
		}
		el.logger.Warn("Subscription lost, reconnecting", zap.Error(err))

		sess, err = el.dialWithBackoff(ctx, 0)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("resubscribe to %s: %w", el.programID, err)
		}
	}
}

func (el *EventListener) dialWithBackoff(ctx context.Context, tries uint) (*session, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialBackoff
	policy.MaxInterval = maxBackoff

	notify := func(err error, d time.Duration) {
		el.logger.Warn("Subscribe attempt failed", zap.Error(err), zap.Duration("backoff", d))
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy),
		backoff.WithNotify(notify),
		backoff.WithMaxElapsedTime(0),
	}
	if tries > 0 {
		opts = append(opts, backoff.WithMaxTries(tries))
	}

	return backoff.Retry(ctx, func() (*session, error) {
		return el.subscribe(ctx)
	}, opts...)
}

func (el *EventListener) subscribe(ctx context.Context) (*session, error) {
	dialCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	conn, br, _, err := ws.Dial(dialCtx, el.wsURL)
	if err != nil {
		return nil, err
	}
	if br != nil {
		ws.PutReader(br)
	}

	sess := &session{conn: conn}
	req := newLogsSubscribe(el.reqID.Add(1), el.programID, el.commitment)
	payload, err := json.Marshal(req)
	if err != nil {
		conn.Close()
		return nil, backoff.Permanent(err)
	}
	if err := sess.write(ws.OpText, payload); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send logsSubscribe: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		conn.Close()
		return nil, err
	}
	for {
		data, _, err := wsutil.ReadServerData(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("await subscription: %w", err)
		}
		var msg rpcMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.ID == nil || *msg.ID != req.ID {
			continue
		}
		if msg.Error != nil {
			conn.Close()
			return nil, fmt.Errorf("logsSubscribe rejected: %d %s", msg.Error.Code, msg.Error.Message)
		}
		if err := json.Unmarshal(msg.Result, &sess.subID); err != nil {
			conn.Close()
			return nil, fmt.Errorf("decode subscription id: %w", err)
		}
		break
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, err
	}

	el.logger.Info("📡 Subscribed to program logs",
		zap.String("program", el.programID),
		zap.String("commitment", el.commitment),
		zap.Uint64("subscription", sess.subID))
	return sess, nil
}

// consume читает уведомления до обрыва соединения или отмены ctx.
func (el *EventListener) consume(ctx context.Context, sess *session, out chan<- Notification) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				sess.conn.Close()
				return
			case <-done:
				sess.conn.Close()
				return
			case <-ticker.C:
				if err := sess.write(ws.OpPing, nil); err != nil {
					el.logger.Debug("Ping failed", zap.Error(err))
					sess.conn.Close()
					return
				}
			}
		}
	}()

	for {
		data, op, err := wsutil.ReadServerData(sess.conn)
		if err != nil {
			var closed wsutil.ClosedError
			if errors.As(err, &closed) {
				return fmt.Errorf("server closed connection: %w", err)
			}
			return err
		}
		if op != ws.OpText {
			continue
		}

		var msg rpcMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			el.logger.Debug("Skipping undecodable message", zap.Error(err))
			continue
		}
		if msg.Method != notificationMethod || msg.Params == nil || msg.Params.Subscription != sess.subID {
			continue
		}

		n := Notification{
			Signature: msg.Params.Result.Value.Signature,
			Slot:      msg.Params.Result.Context.Slot,
			Logs:      msg.Params.Result.Value.Logs,
			Err:       msg.Params.Result.Value.Err,
		}
		select {
		case out <- n:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
