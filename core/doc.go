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

// Package core provides the data model shared by the process
// execution machinery: references to processes and nodes, per-node
// State, the Events that start and boundary events subscribe to, and
// the Actions that node execution produces.
//
// A Process is a parsed BPMN graph.  Its Nodes are executed by an
// external executor, which gives each node a State and an
// Environment.  Execution never performs IO.  Instead, a Node returns
// an updated State and zero or more Actions, and the executor decides
// what to do with them.
//
// Nodes that need to be known before any instance exists (start
// events) also implement Registrable.  When a Process is deployed,
// these nodes register subscriptions with a Registrar (usually a
// registry.Deployment).
package core
