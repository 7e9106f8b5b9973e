package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"learnhub_backend/internal/annotation"
	"learnhub_backend/internal/avatar"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// 入站消息类型
const (
	MsgAnnotation = "annotation"
	MsgVideo      = "video"
	MsgTab        = "tab"
)

// 出站消息类型
const (
	MsgAvatar = "avatar"
	MsgError  = "error"
)

type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type videoMessage struct {
	Event       VideoEvent `json:"event"`
	CurrentTime float64    `json:"current_time"`
	Duration    float64    `json:"duration"`
}

type tabMessage struct {
	Tab Tab `json:"tab"`
}

type annotationReply struct {
	Response annotation.Response  `json:"response"`
	Layer    annotation.LayerView `json:"layer"`
}

type WSConfig struct {
	MessagesPerSec int
	Burst          int
	CheckOrigin    func(r *http.Request) bool
}

// Conn 一个浏览器页面与会话之间的长连接
type Conn struct {
	session *Session
	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	log     *zap.Logger
}

// ServeWS 升级连接并推送头像变化，浏览器的批注、视频、标签事件经由此连接进入会话
func ServeWS(s *Session, w http.ResponseWriter, r *http.Request, cfg WSConfig) error {
	if cfg.MessagesPerSec <= 0 {
		cfg.MessagesPerSec = 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.MessagesPerSec * 2
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     cfg.CheckOrigin,
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	c := &Conn{
		session: s,
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(cfg.MessagesPerSec), cfg.Burst),
		log:     s.log,
	}
	if err := s.attach(c); err != nil {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
			time.Now().Add(writeWait))
		ws.Close()
		return err
	}
	unsubscribe := s.Avatar().Subscribe(func(snap avatar.Snapshot) {
		c.push(MsgAvatar, snap)
	})
	c.push(MsgAvatar, s.Avatar().Snapshot())

	go c.writePump()
	go func() {
		defer func() {
			unsubscribe()
			s.detach(c)
		}()
		c.readPump()
	}()
	return nil
}

// attach 登记连接，会话关闭时由 Close 统一断开
func (s *Session) attach(c *Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.conns == nil {
		s.conns = make(map[*Conn]struct{})
	}
	s.conns[c] = struct{}{}
	return nil
}

func (s *Session) detach(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Conns 当前连接数
func (s *Session) Conns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// push 不阻塞调用方，发送队列满时丢弃
func (c *Conn) push(typ string, data any) {
	payload, err := json.Marshal(outMessage{Type: typ, Data: data})
	if err != nil {
		c.log.Error("marshal ws message failed", zap.String("type", typ), zap.Error(err))
		return
	}
	select {
	case <-c.done:
	case c.send <- payload:
	default:
		c.log.Warn("ws send buffer full, message dropped", zap.String("type", typ))
	}
}

func (c *Conn) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Conn) readPump() {
	defer func() {
		c.close()
		c.ws.Close()
	}()
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error("WebSocket unexpected close", zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.push(MsgError, "invalid message")
			continue
		}
		if err := c.dispatch(msg); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return
			}
			c.push(MsgError, err.Error())
		}
	}
}

func (c *Conn) dispatch(msg WSMessage) error {
	switch msg.Type {
	case MsgAnnotation:
		var ev annotation.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return err
		}
		resp, layer, err := c.session.Annotate(ev)
		if err != nil {
			return err
		}
		c.push(MsgAnnotation, annotationReply{Response: resp, Layer: layer})

	case MsgVideo:
		var vm videoMessage
		if err := json.Unmarshal(msg.Data, &vm); err != nil {
			return err
		}
		state, err := c.session.HandleVideo(context.Background(), vm.Event, vm.CurrentTime, vm.Duration)
		if err != nil {
			return err
		}
		c.push(MsgVideo, state)

	case MsgTab:
		var tm tabMessage
		if err := json.Unmarshal(msg.Data, &tm); err != nil {
			return err
		}
		if err := c.session.SelectTab(tm.Tab); err != nil {
			return err
		}
		c.push(MsgTab, tm)

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
