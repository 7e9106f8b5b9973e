package viewer

import (
	"context"
	"sync"
	"time"

	"learnhub_backend/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry 保存进程内的查看器会话，超过 TTL 未访问的会话会被回收
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewRegistry(ttl time.Duration, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// Create 打开课时并登记会话
func (r *Registry) Create(ctx context.Context, api API, lessonID string, opts ...Option) (*Session, error) {
	opts = append([]Option{WithLogger(r.log)}, opts...)
	s, err := Open(ctx, uuid.NewString(), api, lessonID, opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()

	monitoring.ViewerSessions.Set(float64(n))
	r.log.Debug("viewer session opened", zap.String("session", s.ID), zap.String("lessonID", lessonID))
	return s, nil
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	monitoring.ViewerSessions.Set(float64(n))
	return true
}

// Sweep 关闭过期会话，返回关闭数量
func (r *Registry) Sweep() int {
	deadline := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.LastSeen().Before(deadline) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		monitoring.ViewerSessions.Set(float64(n))
		r.log.Info("viewer sessions expired", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run 定期回收过期会话，直到 ctx 结束
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close 关闭全部会话
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	monitoring.ViewerSessions.Set(0)
}
