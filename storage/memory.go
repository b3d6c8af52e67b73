/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Comcast/arrow/core"
)

// MemoryStore is a ProcessStore that keeps everything in memory.
//
// The counters record how many reads reached the store.
type MemoryStore struct {
	sync.RWMutex

	processes map[string]*core.Process
	states    map[string]*core.State

	ProcessReads int64
	StateReads   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		processes: make(map[string]*core.Process, 32),
		states:    make(map[string]*core.State, 32),
	}
}

func (s *MemoryStore) WriteProcess(ctx context.Context, group string, p *core.Process) error {
	ref := core.ProcessRef{Group: group, ProcessID: p.ID}
	s.Lock()
	s.processes[ref.String()] = p
	s.Unlock()
	return nil
}

func (s *MemoryStore) ReadProcess(ctx context.Context, ref core.ProcessRef) (*core.Process, error) {
	atomic.AddInt64(&s.ProcessReads, 1)
	s.RLock()
	p := s.processes[ref.String()]
	s.RUnlock()
	return p, nil
}

func (s *MemoryStore) WriteState(ctx context.Context, st *core.State) error {
	st = st.Copy()
	s.Lock()
	s.states[st.NodeRef.String()] = st
	s.Unlock()
	return nil
}

func (s *MemoryStore) ReadState(ctx context.Context, ref core.NodeRef) (*core.State, error) {
	atomic.AddInt64(&s.StateReads, 1)
	s.RLock()
	st, have := s.states[ref.String()]
	s.RUnlock()
	if !have {
		return nil, fmt.Errorf("state %s: %w", ref, core.ErrNotFound)
	}
	return st.Copy(), nil
}
