package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is a bounded in-process store: at most size users, each expiring ttl after its last write.
type Memory struct {
	lru *expirable.LRU[int64, State]
}

func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 10000
	}
	return &Memory{lru: expirable.NewLRU[int64, State](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, userID int64) (State, bool, error) {
	st, ok := m.lru.Get(userID)
	return st, ok, nil
}

func (m *Memory) Put(_ context.Context, userID int64, st State) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	m.lru.Add(userID, st)
	return nil
}

func (m *Memory) Delete(_ context.Context, userID int64) error {
	m.lru.Remove(userID)
	return nil
}

func (m *Memory) Len() int {
	return m.lru.Len()
}
