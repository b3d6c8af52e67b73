// Package arrow provides the core of a BPMN process engine: caches
// for process definitions, node states, and compiled scripts; an
// event registry that maps messages, signals, and errors to the nodes
// that wait for them; and the start and boundary events that use
// that registry.
//
// The data model is in package 'core', BPMN parsing and deployment
// are in 'bpmn', and a command-line engine is in 'cmd/arrow'.
package arrow
