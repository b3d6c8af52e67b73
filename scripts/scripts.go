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

// Package scripts compiles scripts through registered Engines and
// memoizes the results.
//
// A Factory maps a language name to an Engine.  When asked for a
// script, the Factory hashes the language and the source and checks
// its LRU cache.  On a miss the Engine parses the source, and the
// compiled Script is cached.  Identical sources (in the same
// language) share one compiled Script.
package scripts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"

	"github.com/Comcast/arrow/core"
	"github.com/Comcast/arrow/lru"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is a reasonable size for a Factory's cache.
var DefaultCacheSize = 128

// Script is a compiled script.
type Script interface {
	Execute(ctx context.Context, st *core.State, env core.Environment) (*core.State, []core.Action, error)
}

// ExecuteFunc is the signature of Script.Execute.
type ExecuteFunc func(ctx context.Context, st *core.State, env core.Environment) (*core.State, []core.Action, error)

// Engine parses source into a Script.
type Engine interface {
	Parse(ctx context.Context, source string) (Script, error)
}

// EngineFunc adapts a function to an Engine.
type EngineFunc func(ctx context.Context, source string) (Script, error)

func (f EngineFunc) Parse(ctx context.Context, source string) (Script, error) {
	return f(ctx, source)
}

// Factory produces (cached) Scripts.
type Factory struct {
	logger *zap.Logger
	cache  *lru.Cache[string, Script]
	group  singleflight.Group

	sync.RWMutex
	engines map[string]Engine
}

// NewFactory makes a Factory whose cache holds at most size scripts.
//
// The size must be positive.  The logger can be nil.
func NewFactory(size int, logger *zap.Logger) (*Factory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Factory{
		logger:  logger,
		engines: make(map[string]Engine, 8),
	}
	cache, err := lru.New[string, Script](size, lru.WithEvict(func(key string, _ Script) {
		f.logger.Debug("script evicted", zap.String("key", key))
	}))
	if err != nil {
		return nil, err
	}
	f.cache = cache
	return f, nil
}

// Register makes the Engine available for the language.  An existing
// registration is replaced.
func (f *Factory) Register(language string, e Engine) {
	f.Lock()
	f.engines[language] = e
	f.Unlock()
}

// Languages lists the registered languages in order.
func (f *Factory) Languages() []string {
	f.RLock()
	acc := make([]string, 0, len(f.engines))
	for lang := range f.engines {
		acc = append(acc, lang)
	}
	f.RUnlock()
	sort.Strings(acc)
	return acc
}

func (f *Factory) engine(language string) (Engine, error) {
	f.RLock()
	e, have := f.engines[language]
	f.RUnlock()
	if !have {
		return nil, &core.UnsupportedLanguageError{Language: language}
	}
	return e, nil
}

// Key computes the cache key for the script.
func Key(language, source string) string {
	h := sha256.Sum256([]byte(language + ":" + source))
	return hex.EncodeToString(h[:])
}

// Script returns the compiled Script for the source, parsing it only
// if it isn't already cached.
//
// Concurrent requests for the same uncached script share one parse.
func (f *Factory) Script(ctx context.Context, language, source string) (Script, error) {
	key := Key(language, source)
	if s, have := f.cache.Get(key); have {
		return s, nil
	}

	e, err := f.engine(language)
	if err != nil {
		return nil, err
	}

	x, err, _ := f.group.Do(key, func() (interface{}, error) {
		// Another caller might have just finished.
		if s, have := f.cache.Peek(key); have {
			return s, nil
		}
		s, err := e.Parse(ctx, source)
		if err != nil {
			return nil, err
		}
		f.cache.Put(key, s)
		f.logger.Debug("script compiled",
			zap.String("language", language),
			zap.String("key", key))
		return s, nil
	})
	if err != nil {
		f.logger.Warn("script compilation failed",
			zap.String("language", language),
			zap.Error(err))
		return nil, err
	}
	return x.(Script), nil
}

// Executable returns the bound Execute method of the Script for the
// source.  The given State is the state of the node that wants the
// script; it's only used for logging.
func (f *Factory) Executable(ctx context.Context, st *core.State, language, source string) (ExecuteFunc, error) {
	s, err := f.Script(ctx, language, source)
	if err != nil {
		if st != nil {
			f.logger.Debug("no executable",
				zap.Stringer("node", st.NodeRef),
				zap.Error(err))
		}
		return nil, err
	}
	return s.Execute, nil
}

// Len is the number of cached scripts.
func (f *Factory) Len() int {
	return f.cache.Len()
}
