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

// Package xmlelem provides namespace-aware, read-only navigation of
// parsed XML.  It's used to read BPMN process definitions.
//
// Qualified names use "prefix:local" syntax.  The prefix is resolved
// with the element's Namespaces (DefaultNamespaces unless changed),
// not with the document's own prefixes, so documents can use any
// prefixes they like.
package xmlelem

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Comcast/arrow/core"

	"github.com/beevik/etree"
)

const (
	// BPMN is the BPMN 2.0 model namespace.
	BPMN = "http://www.omg.org/spec/BPMN/20100524/MODEL"

	// Arrow is the vendor extension namespace.
	Arrow = "http://www.x-and-y.ai/schema/bpmn/arrow"
)

// Namespaces maps prefixes to namespace URIs.
type Namespaces map[string]string

// DefaultNamespaces is used unless an Element is given other
// Namespaces.
var DefaultNamespaces = Namespaces{
	"bpmn":  BPMN,
	"arrow": Arrow,
}

// Element wraps an etree.Element.
type Element struct {
	e  *etree.Element
	ns Namespaces
}

// Wrap wraps the etree.Element with DefaultNamespaces.
func Wrap(e *etree.Element) *Element {
	return &Element{
		e:  e,
		ns: DefaultNamespaces,
	}
}

// Parse parses the document and returns its root element.
func Parse(data []byte) (*Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("xml document has no root element")
	}
	return Wrap(root), nil
}

// WithNamespaces returns a copy of the Element that resolves prefixes
// with the given Namespaces.  Elements found through the copy inherit
// them.
func (x *Element) WithNamespaces(ns Namespaces) *Element {
	return &Element{
		e:  x.e,
		ns: ns,
	}
}

func (x *Element) wrap(e *etree.Element) *Element {
	return &Element{
		e:  e,
		ns: x.ns,
	}
}

// Etree returns the wrapped element.
func (x *Element) Etree() *etree.Element {
	return x.e
}

// LocalName is the element's tag without any prefix.
func (x *Element) LocalName() string {
	return x.e.Tag
}

// NamespaceURI is the element's resolved namespace (if any).
func (x *Element) NamespaceURI() string {
	return x.e.NamespaceURI()
}

// resolve splits a qualified name.  An unprefixed name has an empty
// namespace.
func (x *Element) resolve(name string) (space, local string, err error) {
	i := strings.IndexByte(name, ':')
	if i < 0 {
		return "", name, nil
	}
	prefix := name[:i]
	uri, have := x.ns[prefix]
	if !have {
		return "", "", &core.UnresolvedNamespaceError{
			Prefix: prefix,
			Name:   name,
		}
	}
	return uri, name[i+1:], nil
}

func (x *Element) matches(e *etree.Element, space, local string) bool {
	if e.Tag != local {
		return false
	}
	// An unprefixed tag matches in any namespace.
	return space == "" || e.NamespaceURI() == space
}

// Is reports whether the element has the given qualified name.
func (x *Element) Is(tag string) (bool, error) {
	space, local, err := x.resolve(tag)
	if err != nil {
		return false, err
	}
	return x.matches(x.e, space, local), nil
}

// Children returns all direct child elements.
func (x *Element) Children() []*Element {
	es := x.e.ChildElements()
	acc := make([]*Element, len(es))
	for i, e := range es {
		acc[i] = x.wrap(e)
	}
	return acc
}

// Tags returns the direct children with the given qualified name.
func (x *Element) Tags(tag string) ([]*Element, error) {
	space, local, err := x.resolve(tag)
	if err != nil {
		return nil, err
	}
	var acc []*Element
	for _, e := range x.e.ChildElements() {
		if x.matches(e, space, local) {
			acc = append(acc, x.wrap(e))
		}
	}
	return acc, nil
}

// Tag returns the first direct child with the given qualified name.
// Returns nil if there isn't one.
func (x *Element) Tag(tag string) (*Element, error) {
	space, local, err := x.resolve(tag)
	if err != nil {
		return nil, err
	}
	for _, e := range x.e.ChildElements() {
		if x.matches(e, space, local) {
			return x.wrap(e), nil
		}
	}
	return nil, nil
}

// HasTag reports whether there is a direct child with the given
// qualified name.
func (x *Element) HasTag(tag string) (bool, error) {
	e, err := x.Tag(tag)
	return e != nil, err
}

func (x *Element) attr(name string) (*etree.Attr, error) {
	space, local, err := x.resolve(name)
	if err != nil {
		return nil, err
	}
	for i := range x.e.Attr {
		a := &x.e.Attr[i]
		if a.Key != local {
			continue
		}
		if space == "" {
			if a.Space == "" {
				return a, nil
			}
			continue
		}
		if a.NamespaceURI() == space {
			return a, nil
		}
	}
	return nil, nil
}

// HasAttribute reports whether the element has the attribute.
func (x *Element) HasAttribute(name string) (bool, error) {
	a, err := x.attr(name)
	return a != nil, err
}

// Attribute returns the value of the attribute or def if there isn't
// one.
func (x *Element) Attribute(name, def string) (string, error) {
	a, err := x.attr(name)
	if err != nil || a == nil {
		return def, err
	}
	return a.Value, nil
}

// Text returns the element's trimmed text.  If unescape is true, any
// XML entity or character references left in the text (for example,
// from double escaping) are unescaped.  HTML-only entities like
// &nbsp; are left alone.
func (x *Element) Text(unescape bool) string {
	s := strings.TrimSpace(x.e.Text())
	if unescape {
		s = Unescape(s)
	}
	return s
}

var (
	references = regexp.MustCompile(`&(lt|gt|amp|apos|quot|#[0-9]+|#x[0-9a-fA-F]+);`)

	entities = map[string]string{
		"lt":   "<",
		"gt":   ">",
		"amp":  "&",
		"apos": "'",
		"quot": `"`,
	}
)

// Unescape replaces the five predefined XML entities and numeric
// character references.  A reference to an invalid character is left
// as it is.
func Unescape(s string) string {
	return references.ReplaceAllStringFunc(s, func(ref string) string {
		name := ref[1 : len(ref)-1]
		if r, have := entities[name]; have {
			return r
		}
		var (
			n   uint64
			err error
		)
		if strings.HasPrefix(name, "#x") {
			n, err = strconv.ParseUint(name[2:], 16, 32)
		} else {
			n, err = strconv.ParseUint(name[1:], 10, 32)
		}
		if err != nil || !utf8.ValidRune(rune(n)) {
			return ref
		}
		return string(rune(n))
	})
}
