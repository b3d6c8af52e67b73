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

// Package bolt provides a storage.ProcessStore backed by BoltDB.
//
// Processes are kept in a bucket per group under "processes", keyed
// by process id.  The value is a JSON record that includes the BPMN
// source, which is decoded with the Store's Decoder when read.
// States are kept in a bucket per group under "states", keyed by
// "processId:nodeId".
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Comcast/arrow/core"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var (
	processesBucket = []byte("processes")
	statesBucket    = []byte("states")
)

// Decoder turns stored BPMN source back into the process with the
// given id.
type Decoder func(source []byte, processID string) (*core.Process, error)

// record is what's stored for a process.
type record struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
	Source  []byte `json:"source"`
}

type Store struct {
	filename string
	decode   Decoder
	logger   *zap.Logger
	db       *bbolt.DB
}

// NewStore makes a Store for the given file.  Call Open before use.
func NewStore(filename string, decode Decoder, logger *zap.Logger) (*Store, error) {
	if decode == nil {
		return nil, errors.New("bolt store needs a decoder")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		filename: filename,
		decode:   decode,
		logger:   logger,
	}, nil
}

func (s *Store) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := &bbolt.Options{
		Timeout: time.Second,
	}
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 && d < opts.Timeout {
			opts.Timeout = d
		}
	}

	db, err := bbolt.Open(s.filename, os.FileMode(0644), opts)
	if err != nil {
		return err
	}
	s.db = db
	s.logger.Info("bolt store opened", zap.String("file", s.filename))
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) WriteProcess(ctx context.Context, group string, p *core.Process) error {
	js, err := json.Marshal(&record{
		ID:      p.ID,
		Version: p.Version,
		Source:  p.Source,
	})
	if err != nil {
		return err
	}
	s.logger.Debug("write process",
		zap.String("group", group),
		zap.String("process", p.ID),
		zap.Int("version", p.Version))

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, processesBucket, group)
		if err != nil {
			return err
		}
		return b.Put([]byte(p.ID), js)
	})
}

func (s *Store) ReadProcess(ctx context.Context, ref core.ProcessRef) (*core.Process, error) {
	var js []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(processesBucket)
		if b == nil {
			return nil
		}
		if b = b.Bucket([]byte(ref.Group)); b == nil {
			return nil
		}
		if v := b.Get([]byte(ref.ProcessID)); v != nil {
			// Only valid during the transaction.
			js = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || js == nil {
		return nil, err
	}

	var r record
	if err = json.Unmarshal(js, &r); err != nil {
		return nil, err
	}
	p, err := s.decode(r.Source, r.ID)
	if err != nil {
		return nil, fmt.Errorf("decoding process %s: %w", ref, err)
	}
	p.Version = r.Version
	return p, nil
}

func stateKey(ref core.NodeRef) []byte {
	return []byte(ref.ProcessID + ":" + ref.NodeID)
}

func (s *Store) WriteState(ctx context.Context, st *core.State) error {
	js, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, statesBucket, st.NodeRef.Group)
		if err != nil {
			return err
		}
		return b.Put(stateKey(st.NodeRef), js)
	})
}

func (s *Store) ReadState(ctx context.Context, ref core.NodeRef) (*core.State, error) {
	var st *core.State
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(statesBucket)
		if b != nil {
			b = b.Bucket([]byte(ref.Group))
		}
		if b == nil {
			return nil
		}
		js := b.Get(stateKey(ref))
		if js == nil {
			return nil
		}
		st = &core.State{}
		return json.Unmarshal(js, st)
	})
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("state %s: %w", ref, core.ErrNotFound)
	}
	return st, nil
}

func bucket(tx *bbolt.Tx, top []byte, group string) (*bbolt.Bucket, error) {
	b, err := tx.CreateBucketIfNotExists(top)
	if err != nil {
		return nil, err
	}
	return b.CreateBucketIfNotExists([]byte(group))
}
