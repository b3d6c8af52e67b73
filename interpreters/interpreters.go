// Package interpreters registers the standard script engines.
package interpreters

import (
	"github.com/Comcast/arrow/interpreters/goja"
	"github.com/Comcast/arrow/interpreters/hypothesis"
	"github.com/Comcast/arrow/interpreters/mustache"
	"github.com/Comcast/arrow/scripts"

	"go.uber.org/zap"
)

// Standard registers the standard engines with the Factory.
func Standard(f *scripts.Factory, logger *zap.Logger) *scripts.Factory {
	js := goja.NewEngine(logger)
	f.Register("javascript", js)
	f.Register("typescript", js)
	f.Register("ecmascript", js)

	f.Register("hypothesis", hypothesis.NewEngine(logger))

	f.Register("mustache", mustache.NewEngine())

	return f
}

// NewFactory makes a Factory with the standard engines.
func NewFactory(size int, logger *zap.Logger) (*scripts.Factory, error) {
	f, err := scripts.NewFactory(size, logger)
	if err != nil {
		return nil, err
	}
	return Standard(f, logger), nil
}
