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

// Package storage provides process stores and a caching adapter that
// sits in front of them.
package storage

import (
	"context"

	"github.com/Comcast/arrow/core"
)

// ProcessStore is a durable store for process definitions and node
// states.
type ProcessStore interface {
	// WriteProcess stores the process as the current definition of
	// its id in the group.
	WriteProcess(ctx context.Context, group string, p *core.Process) error

	// ReadProcess returns nil (and no error) if there's no such
	// process.
	ReadProcess(ctx context.Context, ref core.ProcessRef) (*core.Process, error)

	WriteState(ctx context.Context, st *core.State) error

	// ReadState returns an error wrapping core.ErrNotFound if there
	// is no such state.
	ReadState(ctx context.Context, ref core.NodeRef) (*core.State, error)
}
