// core/manager.go
package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/chhz0/polytasks/types"
	"github.com/google/uuid"
)

var ErrDuplicateID = errors.New("generated task id already exists")

// 生成ID冲突时的最大尝试次数
const maxIDAttempts = 3

// Manager 持有内存中的任务列表，每次修改后写回存储。
// 读取操作总是返回副本。
type Manager struct {
	adapter *Adapter
	tasks   []types.Task
	mu      sync.Mutex

	id     string
	nextID IDSource
	logger *slog.Logger
}

type ManagerOption func(*Manager)

func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithIDSource(src IDSource) ManagerOption {
	return func(m *Manager) {
		if src != nil {
			m.nextID = src
		}
	}
}

// WithOrigin 指定本上下文的标识，用于标记和过滤变更信号
func WithOrigin(origin string) ManagerOption {
	return func(m *Manager) {
		if origin != "" {
			m.id = origin
		}
	}
}

// NewManager 从存储加载初始列表
func NewManager(ctx context.Context, adapter *Adapter, opts ...ManagerOption) *Manager {
	m := &Manager{
		adapter: adapter,
		id:      uuid.NewString(),
		nextID:  defaultIDSource(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.tasks = adapter.Load(ctx)
	return m
}

func (m *Manager) ID() string {
	return m.id
}

func (m *Manager) Adapter() *Adapter {
	return m.adapter
}

// GetTasks 返回当前列表的副本
func (m *Manager) GetTasks() []types.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// AddTask 文本去除首尾空白后为空时返回false且不做修改
func (m *Manager) AddTask(ctx context.Context, text string) (types.Task, bool, error) {
	trimmed := types.TrimText(text)
	if trimmed == "" {
		return types.Task{}, false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.generateID()
	if err != nil {
		return types.Task{}, false, err
	}

	task := types.Task{
		ID:        id,
		Text:      trimmed,
		Completed: false,
	}
	m.tasks = append(m.tasks, task)
	if err := m.persist(ctx); err != nil {
		return task, true, err
	}
	return task, true, nil
}

// SetTaskCompletion 未找到对应ID时返回false，不写存储
func (m *Manager) SetTaskCompletion(ctx context.Context, id string, completed bool) (types.Task, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return types.Task{}, false, nil
	}

	m.tasks[i].Completed = completed
	task := m.tasks[i]
	if err := m.persist(ctx); err != nil {
		return task, true, err
	}
	return task, true, nil
}

// RemoveTask 删除所有匹配ID的任务；没有删除任何任务时返回false，不写存储
func (m *Manager) RemoveTask(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]types.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(m.tasks) {
		return false, nil
	}

	m.tasks = kept
	if err := m.persist(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// ReloadTasks 丢弃内存状态，重新从存储加载
func (m *Manager) ReloadTasks(ctx context.Context) []types.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tasks = m.adapter.Load(ctx)
	return m.snapshot()
}

// RemainingCount 未完成任务数
func (m *Manager) RemainingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, t := range m.tasks {
		if !t.Completed {
			count++
		}
	}
	return count
}

func (m *Manager) snapshot() []types.Task {
	out := make([]types.Task, len(m.tasks))
	copy(out, m.tasks)
	return out
}

func (m *Manager) indexOf(id string) int {
	for i, t := range m.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) generateID() (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, degraded := m.nextID()
		if degraded {
			m.logger.Warn("secure random source unavailable, using fallback task id", "id", id)
		}
		if m.indexOf(id) < 0 {
			return id, nil
		}
		m.logger.Warn("generated task id collides with existing task", "id", id, "attempt", attempt+1)
	}
	return "", ErrDuplicateID
}

func (m *Manager) persist(ctx context.Context) error {
	return m.adapter.Save(ctx, m.tasks)
}
