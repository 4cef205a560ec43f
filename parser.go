package edinet

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrMalformedXML is returned when a document is not well-formed XML
var ErrMalformedXML = errors.New("malformed XML")

const (
	// AttributePrefix is prepended to attribute names in parsed trees
	AttributePrefix = "@_"

	// TextKey holds an element's own text when it also has attributes or children
	TextKey = "#text"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// openElement collects one element's content until its end tag is seen
type openElement struct {
	name     string
	attrs    []xml.Attr
	children *Node
	text     strings.Builder
}

// value converts the collected element into its tree shape.
// Children come first, then the element's own text, then its attributes.
func (e *openElement) value() *Node {
	if e.children.Len() == 0 && len(e.attrs) == 0 {
		return NewText(e.text.String())
	}

	obj := e.children
	if e.text.Len() > 0 {
		obj.Set(TextKey, NewText(e.text.String()))
	}
	for _, a := range e.attrs {
		obj.Set(AttributePrefix+qualifiedName(a.Name), NewText(trimText(a.Value)))
	}
	return obj
}

// qualifiedName keeps the literal namespace prefix ("jpdei_cor:CompanyName")
func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// ParseTree parses an XBRL instance (or any XML document) into a Node tree.
// The returned root is an Object keyed by the document element's name.
// Namespace prefixes are kept as written, not resolved to URIs.
func ParseTree(data []byte) (*Node, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Entity = xml.HTMLEntity

	root := NewObject()
	var stack []*openElement

	for {
		tok, err := decoder.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, &openElement{
				name:     qualifiedName(t.Name),
				attrs:    t.Attr,
				children: NewObject(),
			})

		case xml.EndElement:
			name := qualifiedName(t.Name)
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected closing tag </%s>", ErrMalformedXML, name)
			}
			top := stack[len(stack)-1]
			if top.name != name {
				return nil, fmt.Errorf("%w: closing tag </%s> does not match <%s>", ErrMalformedXML, name, top.name)
			}
			stack = stack[:len(stack)-1]

			parent := root
			if len(stack) > 0 {
				parent = stack[len(stack)-1].children
			}
			parent.addChild(top.name, top.value())

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			if s := trimText(string(t)); s != "" {
				stack[len(stack)-1].text.WriteString(s)
			}

		default:
			// declarations, processing instructions, comments and directives
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: unclosed tag <%s>", ErrMalformedXML, stack[len(stack)-1].name)
	}
	if root.Len() == 0 {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedXML)
	}
	return root, nil
}
