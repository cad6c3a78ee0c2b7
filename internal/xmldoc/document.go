// Package xmldoc reads and writes selection settings as flat XML documents:
// one element per field under a named root, all values as text.
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrDocumentRoot = errors.New("invalid document root")

// Element is a generic XML element. Leaf elements carry Text; blocks carry
// Children.
type Element struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Children []Element `xml:",any"`
}

type Document struct {
	Root Element
}

func New(root string) *Document {
	return &Document{Root: Element{XMLName: xml.Name{Local: root}}}
}

func (d *Document) RootName() string {
	return d.Root.XMLName.Local
}

// Set appends a leaf element, or replaces the text of an existing one.
func (d *Document) Set(name, value string) {
	d.Root.Set(name, value)
}

func (d *Document) Lookup(name string) (string, bool) {
	return d.Root.Lookup(name)
}

// Block returns the child block with the given name, creating it if needed.
func (d *Document) Block(name string) *Element {
	for i := range d.Root.Children {
		if d.Root.Children[i].XMLName.Local == name {
			return &d.Root.Children[i]
		}
	}
	d.Root.Children = append(d.Root.Children, Element{XMLName: xml.Name{Local: name}})
	return &d.Root.Children[len(d.Root.Children)-1]
}

// FindBlock returns the child block with the given name without creating it.
func (d *Document) FindBlock(name string) (*Element, bool) {
	for i := range d.Root.Children {
		if d.Root.Children[i].XMLName.Local == name {
			return &d.Root.Children[i], true
		}
	}
	return nil, false
}

func (e *Element) Set(name, value string) {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			e.Children[i].Text = value
			return
		}
	}
	e.Children = append(e.Children, Element{XMLName: xml.Name{Local: name}, Text: value})
}

func (e *Element) Lookup(name string) (string, bool) {
	for _, child := range e.Children {
		if child.XMLName.Local == name {
			return strings.TrimSpace(child.Text), true
		}
	}
	return "", false
}

func (d *Document) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d.Root); err != nil {
		return fmt.Errorf("encode %s: %w", d.RootName(), err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a document and checks that its root element is root.
func Decode(r io.Reader, root string) (*Document, error) {
	var el Element
	if err := xml.NewDecoder(r).Decode(&el); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentRoot, err)
	}
	if el.XMLName.Local != root {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrDocumentRoot, el.XMLName.Local, root)
	}
	return &Document{Root: el}, nil
}

func (d *Document) WriteFile(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func ReadFile(path, root string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentRoot, err)
	}
	defer f.Close()
	return Decode(f, root)
}
