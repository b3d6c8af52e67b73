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

	"github.com/Comcast/arrow/core"
	"github.com/Comcast/arrow/lru"

	"go.uber.org/zap"
)

// CachingStore is a read-through, write-through cache in front of a
// ProcessStore.
//
// Writes go to the delegate first and then to the cache.  Reads are
// served from the cache when possible.  A miss is delegated, but the
// result is not cached: only what this adapter wrote is cached.
//
// States are copied on the way in and on the way out, so neither
// writers nor readers can change what the cache holds.
//
// Errors from the delegate are returned unchanged.
type CachingStore struct {
	delegate  ProcessStore
	logger    *zap.Logger
	processes *lru.Cache[string, *core.Process]
	states    *lru.Cache[string, *core.State]
}

// NewCachingStore makes a CachingStore with the given cache sizes,
// which must be positive.  The logger can be nil.
func NewCachingStore(delegate ProcessStore, processCacheSize, stateCacheSize int, logger *zap.Logger) (*CachingStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CachingStore{
		delegate: delegate,
		logger:   logger,
	}

	var err error
	s.processes, err = lru.New[string, *core.Process](processCacheSize,
		lru.WithEvict(func(key string, _ *core.Process) {
			s.logger.Debug("process evicted", zap.String("key", key))
		}))
	if err != nil {
		return nil, err
	}

	s.states, err = lru.New[string, *core.State](stateCacheSize,
		lru.WithEvict(func(key string, _ *core.State) {
			s.logger.Debug("state evicted", zap.String("key", key))
		}))
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *CachingStore) WriteProcess(ctx context.Context, group string, p *core.Process) error {
	if err := s.delegate.WriteProcess(ctx, group, p); err != nil {
		return err
	}
	ref := core.ProcessRef{Group: group, ProcessID: p.ID}
	s.processes.Put(ref.String(), p)
	return nil
}

func (s *CachingStore) ReadProcess(ctx context.Context, ref core.ProcessRef) (*core.Process, error) {
	if p, have := s.processes.Get(ref.String()); have {
		return p, nil
	}
	return s.delegate.ReadProcess(ctx, ref)
}

func (s *CachingStore) WriteState(ctx context.Context, st *core.State) error {
	if err := s.delegate.WriteState(ctx, st); err != nil {
		return err
	}
	s.states.Put(st.NodeRef.String(), st.Copy())
	return nil
}

func (s *CachingStore) ReadState(ctx context.Context, ref core.NodeRef) (*core.State, error) {
	if st, have := s.states.Get(ref.String()); have {
		return st.Copy(), nil
	}
	return s.delegate.ReadState(ctx, ref)
}
