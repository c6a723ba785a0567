package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore 内存账本存储（测试与模拟用）
// Transact 在状态副本上执行，成功后整体替换，失败则丢弃副本
type MemoryStore struct {
	mu sync.RWMutex
	st *memState
}

type memState struct {
	cash        decimal.Decimal
	cashSet     bool
	positions   map[string]Position
	trades      []Trade
	snapshots   []Snapshot
	nextTradeId int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		st: &memState{
			positions:   make(map[string]Position),
			nextTradeId: 1,
		},
	}
}

func (m *MemoryStore) Cash(ctx context.Context) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.st.cashSet {
		return InitialCash, nil
	}
	return m.st.cash, nil
}

func (m *MemoryStore) SetCash(ctx context.Context, value decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.cash = value
	m.st.cashSet = true
	return nil
}

func (m *MemoryStore) Position(ctx context.Context, coin string) (Position, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.st.positions[coin]
	return pos, ok, nil
}

func (m *MemoryStore) Positions(ctx context.Context) ([]Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	positions := make([]Position, 0, len(m.st.positions))
	for _, pos := range m.st.positions {
		positions = append(positions, pos)
	}
	return positions, nil
}

func (m *MemoryStore) SavePosition(ctx context.Context, pos Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.positions[pos.Coin] = pos
	return nil
}

func (m *MemoryStore) RecordTrade(ctx context.Context, trade Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trade.Id = m.st.nextTradeId
	m.st.nextTradeId++
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now()
	}
	m.st.trades = append(m.st.trades, trade)
	return nil
}

func (m *MemoryStore) Trades(ctx context.Context, limit int) ([]Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// 按插入顺序倒序
	trades := make([]Trade, 0, limit)
	for i := len(m.st.trades) - 1; i >= 0 && len(trades) < limit; i-- {
		trades = append(trades, m.st.trades[i])
	}
	return trades, nil
}

func (m *MemoryStore) RecordSnapshot(ctx context.Context, snapshot Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}
	m.st.snapshots = append(m.st.snapshots, snapshot)
	return nil
}

func (m *MemoryStore) Snapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start := len(m.st.snapshots) - limit
	if start < 0 {
		start = 0
	}
	snapshots := make([]Snapshot, len(m.st.snapshots)-start)
	copy(snapshots, m.st.snapshots[start:])
	return snapshots, nil
}

func (m *MemoryStore) Transact(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &MemoryStore{st: m.st.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.st = tx.st
	return nil
}

func (s *memState) clone() *memState {
	cp := &memState{
		cash:        s.cash,
		cashSet:     s.cashSet,
		positions:   make(map[string]Position, len(s.positions)),
		trades:      make([]Trade, len(s.trades)),
		snapshots:   make([]Snapshot, len(s.snapshots)),
		nextTradeId: s.nextTradeId,
	}
	for coin, pos := range s.positions {
		cp.positions[coin] = pos
	}
	copy(cp.trades, s.trades)
	copy(cp.snapshots, s.snapshots)
	return cp
}
