package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"jobboard/internal/applications"
	"jobboard/internal/auth"
	"jobboard/internal/feed"
	"jobboard/internal/jobs"
	"jobboard/internal/notify"
	"jobboard/internal/role"
	"jobboard/internal/session"
)

const wsPingInterval = 30 * time.Second

// WsHandler 负责 WebSocket 鉴权、集合订阅与用户通知转发。
type WsHandler struct {
	redisClient    redis.UniversalClient
	authService    *auth.AuthService
	resolver       *role.Resolver
	bus            feed.Bus
	jobs           *jobs.Manager
	applications   *applications.Manager
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewWsHandler 构造 WebSocket 处理器。redisClient 为 nil 时不转发用户通知。
func NewWsHandler(
	redisClient redis.UniversalClient,
	authService *auth.AuthService,
	resolver *role.Resolver,
	bus feed.Bus,
	jobManager *jobs.Manager,
	applicationManager *applications.Manager,
	logger *slog.Logger,
	allowedOrigins []string,
) *WsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &WsHandler{
		redisClient:    redisClient,
		authService:    authService,
		resolver:       resolver,
		bus:            bus,
		jobs:           jobManager,
		applications:   applicationManager,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(h.allowedOrigins) == 0 {
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

type wsClientMessage struct {
	Type       string `json:"type"`
	Token      string `json:"token,omitempty"`
	Collection string `json:"collection,omitempty"`
}

type wsSnapshotMessage struct {
	Type       string `json:"type"`
	Collection string `json:"collection"`
	Seq        uint64 `json:"seq"`
	Items      any    `json:"items,omitempty"`
	Error      string `json:"error,omitempty"`
}

type wsReadyMessage struct {
	Type   string    `json:"type"`
	UserID uint      `json:"user_id"`
	Role   role.Role `json:"role"`
}

// wsConn 串行化写操作，gorilla/websocket 不允许并发写。
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.writeText(data)
}

func (w *wsConn) writeText(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) writeControl(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(messageType, data, time.Now().Add(5*time.Second))
}

func (w *wsConn) close(code int, text string) {
	_ = w.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
}

// HandleConnection 负责升级连接并启动读写循环。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	baseLog := h.logger.With(
		slog.String("client_ip", c.ClientIP()),
	)

	sessionCh := make(chan session.Session, 1)
	errCh := make(chan error, 2)

	go h.readLoop(ctx, conn, sessionCh, errCh, cancel, baseLog)

	var s session.Session
	select {
	case <-ctx.Done():
		return
	case err := <-errCh:
		if err != nil {
			baseLog.Warn("websocket authentication failed", slog.Any("error", err))
		}
		return
	case s = <-sessionCh:
	}

	userLog := baseLog.With(
		slog.Uint64("user_id", uint64(s.PrincipalID())),
		slog.String("role", s.Role.String()),
	)
	go h.notifyLoop(ctx, conn, s.PrincipalID(), errCh, cancel, userLog)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			userLog.Info("websocket connection closed", slog.Any("error", err))
		} else {
			userLog.Info("websocket connection closed")
		}
	}
}

func (h *WsHandler) readLoop(
	ctx context.Context,
	conn *wsConn,
	sessionCh chan<- session.Session,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	var (
		s             session.Session
		authenticated bool
		subscriptions = make(map[feed.Collection]func())
	)
	defer func() {
		for _, stop := range subscriptions {
			stop()
		}
	}()

	fail := func(code int, text string, err error) {
		conn.close(code, text)
		report(errCh, err)
		cancel()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := conn.conn.ReadMessage()
		if err != nil {
			fail(websocket.CloseAbnormalClosure, "read error", fmt.Errorf("read message: %w", err))
			return
		}

		var msg wsClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			fail(websocket.ClosePolicyViolation, "invalid payload", fmt.Errorf("decode payload: %w", err))
			return
		}

		if !authenticated {
			if msg.Type != "auth" || msg.Token == "" {
				fail(websocket.ClosePolicyViolation, "auth required", errors.New("invalid auth message"))
				return
			}
			claims, err := h.authService.ValidateAccessToken(msg.Token)
			if err != nil {
				fail(websocket.ClosePolicyViolation, "unauthorized", fmt.Errorf("validate token: %w", err))
				return
			}
			if claims.MustChangePassword {
				fail(websocket.ClosePolicyViolation, "password change required", errors.New("password change required"))
				return
			}

			p := claims.Principal()
			s = session.New(p, h.resolver.Resolve(ctx, p))
			authenticated = true
			sessionCh <- s
			log.Info("websocket authenticated", slog.Uint64("user_id", uint64(claims.UserID)))
			if err := conn.writeJSON(wsReadyMessage{Type: "ready", UserID: claims.UserID, Role: s.Role}); err != nil {
				fail(websocket.CloseAbnormalClosure, "write error", fmt.Errorf("write ready: %w", err))
				return
			}
			continue
		}

		switch msg.Type {
		case "subscribe":
			collection, ok := feed.ParseCollection(msg.Collection)
			if !ok {
				_ = conn.writeJSON(wsSnapshotMessage{Type: "error", Collection: msg.Collection, Error: "unknown collection"})
				continue
			}
			if _, exists := subscriptions[collection]; exists {
				continue
			}
			stop, err := h.subscribe(ctx, conn, s, collection, errCh, cancel)
			if err != nil {
				log.Error("subscribe failed", slog.String("collection", string(collection)), slog.Any("error", err))
				_ = conn.writeJSON(wsSnapshotMessage{Type: "error", Collection: string(collection), Error: "subscribe failed"})
				continue
			}
			subscriptions[collection] = stop
			log.Info("collection subscribed", slog.String("collection", string(collection)))
		case "unsubscribe":
			collection, ok := feed.ParseCollection(msg.Collection)
			if !ok {
				continue
			}
			if stop, exists := subscriptions[collection]; exists {
				stop()
				delete(subscriptions, collection)
			}
		}
	}
}

// subscribe 为会话建立一个集合订阅，快照范围由角色决定。
func (h *WsHandler) subscribe(ctx context.Context, conn *wsConn, s session.Session, c feed.Collection, errCh chan<- error, cancel context.CancelFunc) (func(), error) {
	switch c {
	case feed.Jobs:
		withRisk := s.Is(role.Admin)
		return forward(ctx, conn, h.bus, c, func(ctx context.Context) ([]jobView, error) {
			list, err := h.jobs.ListForSession(ctx, s)
			if err != nil {
				return nil, err
			}
			return toJobViews(list, withRisk), nil
		}, errCh, cancel)
	case feed.Applications:
		return forward(ctx, conn, h.bus, c, func(ctx context.Context) ([]applicationView, error) {
			list, err := h.applications.ListForSession(ctx, s)
			if err != nil {
				return nil, err
			}
			return toApplicationViews(list), nil
		}, errCh, cancel)
	}
	return nil, fmt.Errorf("collection %q is not subscribable", c)
}

func forward[T any](ctx context.Context, conn *wsConn, bus feed.Bus, c feed.Collection, load feed.Loader[T], errCh chan<- error, cancel context.CancelFunc) (func(), error) {
	snapshots, stop, err := feed.Watch(ctx, bus, c, load)
	if err != nil {
		return nil, err
	}
	go func() {
		for snap := range snapshots {
			msg := wsSnapshotMessage{Type: "snapshot", Collection: string(c), Seq: snap.Seq}
			if snap.Err != nil {
				msg.Type = "error"
				msg.Error = "failed to load " + string(c)
			} else {
				msg.Items = snap.Records
			}
			if err := conn.writeJSON(msg); err != nil {
				report(errCh, fmt.Errorf("write snapshot: %w", err))
				cancel()
				return
			}
		}
	}()
	return stop, nil
}

// notifyLoop 转发用户通知频道的消息并定期发送 ping。
func (h *WsHandler) notifyLoop(
	ctx context.Context,
	conn *wsConn,
	userID uint,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	var messages <-chan *redis.Message
	channel := notify.Channel(userID)
	if h.redisClient != nil {
		pubsub := h.redisClient.Subscribe(ctx, channel)
		defer pubsub.Close()
		messages = pubsub.Channel()
		log.Info("subscribed to redis channel", slog.String("channel", channel))
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				report(errCh, errors.New("pubsub channel closed"))
				cancel()
				return
			}

			log.Info("forwarding message to client", slog.String("channel", channel))
			if err := conn.writeText([]byte(msg.Payload)); err != nil {
				report(errCh, fmt.Errorf("write message: %w", err))
				cancel()
				return
			}
		case <-ticker.C:
			if err := conn.writeControl(websocket.PingMessage, []byte("ping")); err != nil {
				report(errCh, fmt.Errorf("write ping: %w", err))
				cancel()
				return
			}
		}
	}
}

// report 非阻塞地上报连接错误，只保留第一个。
func report(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
}
