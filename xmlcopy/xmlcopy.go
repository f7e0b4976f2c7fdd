// Package xmlcopy copies the value of one child element between the <type>
// entries of two XML documents, matched by their name attribute.
//
// The target document is patched in place at byte offsets reported by the
// decoder, so everything except the copied values stays byte-identical.
package xmlcopy

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

const typeTag = "type"

var (
	errNoRoot       = errors.New("no root element found")
	errJunkAfterDoc = errors.New("junk after document element")
)

type childElement struct {
	start       int64
	openEnd     int64
	textEnd     int64
	selfClosing bool
}

type typeElement struct {
	name        string
	start       int64
	openEnd     int64
	closeStart  int64
	selfClosing bool
	// lead is the whitespace in front of the first child element.
	lead  []byte
	child *childElement
}

type edit struct {
	start, end int64
	text       []byte
}

// scanTypes records the position of every <type> directly below the root and of
// its first child named element.
func scanTypes(doc []byte, element string) ([]typeElement, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var (
		types []typeElement
		cur   *typeElement
		open  *childElement
		depth int
		roots int
	)
	for {
		before := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if roots == 0 {
				return nil, errNoRoot
			}
			break
		}
		if err != nil {
			return nil, err
		}
		after := dec.InputOffset()

		// The element text ends at the first markup inside it
		if open != nil && open.textEnd < 0 {
			if _, ok := tok.(xml.CharData); !ok {
				open.textEnd = before
			}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				roots++
				if roots > 1 {
					return nil, fmt.Errorf("%w at offset %d", errJunkAfterDoc, before)
				}
			}
			switch {
			case depth == 2 && t.Name.Local == typeTag:
				cur = &typeElement{start: before, openEnd: after, name: attrValue(t, "name")}
			case depth == 3 && cur != nil:
				if cur.lead == nil {
					cur.lead = trailingSpace(doc[cur.openEnd:before])
				}
				if cur.child == nil && t.Name.Local == element {
					cur.child = &childElement{start: before, openEnd: after, textEnd: -1}
					open = cur.child
				}
			}
		case xml.EndElement:
			switch {
			case depth == 3 && open != nil:
				open.selfClosing = after == open.openEnd
				open = nil
			case depth == 2 && cur != nil:
				cur.closeStart = before
				cur.selfClosing = after == cur.openEnd
				types = append(types, *cur)
				cur = nil
			}
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				if roots == 0 {
					return nil, fmt.Errorf("text before root element at offset %d", before)
				}
				return nil, fmt.Errorf("%w at offset %d", errJunkAfterDoc, before)
			}
		}
	}

	return types, nil
}

// CollectValues maps the name of every named <type> in doc to the raw text of
// its element child. Entries without the child are left out.
func CollectValues(doc []byte, element string) (map[string][]byte, error) {
	types, err := scanTypes(doc, element)
	if err != nil {
		return nil, err
	}

	values := make(map[string][]byte)
	for _, t := range types {
		if t.name == "" || t.child == nil {
			continue
		}
		values[t.name] = bytes.Clone(doc[t.child.openEnd:t.child.textEnd])
	}
	return values, nil
}

// Apply sets element in every <type> of doc whose name is in values, creating
// the child where it is missing. It returns the patched document and the number
// of <type> entries that were updated.
func Apply(doc []byte, element string, values map[string][]byte) ([]byte, int, error) {
	types, err := scanTypes(doc, element)
	if err != nil {
		return nil, 0, err
	}

	var edits []edit
	for _, t := range types {
		value, ok := values[t.name]
		if t.name == "" || !ok {
			continue
		}
		edits = append(edits, patchType(doc, t, element, value))
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var out bytes.Buffer
	out.Grow(len(doc))
	var pos int64
	for _, e := range edits {
		out.Write(doc[pos:e.start])
		out.Write(e.text)
		pos = e.end
	}
	out.Write(doc[pos:])

	return out.Bytes(), len(edits), nil
}

func patchType(doc []byte, t typeElement, element string, value []byte) edit {
	switch {
	case t.child != nil && !t.child.selfClosing:
		return edit{start: t.child.openEnd, end: t.child.textEnd, text: value}

	case t.child != nil:
		return edit{
			start: t.child.start,
			end:   t.child.openEnd,
			text:  expandSelfClosing(doc[t.child.start:t.child.openEnd], value),
		}

	case t.selfClosing:
		return edit{
			start: t.start,
			end:   t.openEnd,
			text:  expandSelfClosing(doc[t.start:t.openEnd], newElement(element, value)),
		}

	default:
		// Insert after the last child, keeping the whitespace before </type> last
		at := t.closeStart
		for at > t.openEnd && isSpace(doc[at-1]) {
			at--
		}
		text := append(bytes.Clone(t.lead), newElement(element, value)...)
		return edit{start: at, end: at, text: text}
	}
}

// expandSelfClosing turns <tag attr="x"/> into <tag attr="x">inner</tag>
func expandSelfClosing(tag, inner []byte) []byte {
	open := bytes.TrimSuffix(tag, []byte("/>"))
	open = bytes.TrimRight(open, " \t\r\n")

	name := open[1:]
	if i := bytes.IndexAny(name, " \t\r\n"); i >= 0 {
		name = name[:i]
	}

	var b bytes.Buffer
	b.Write(open)
	b.WriteByte('>')
	b.Write(inner)
	b.WriteString("</")
	b.Write(name)
	b.WriteByte('>')
	return b.Bytes()
}

func newElement(element string, value []byte) []byte {
	return []byte("<" + element + ">" + string(value) + "</" + element + ">")
}

func attrValue(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func trailingSpace(b []byte) []byte {
	i := len(b)
	for i > 0 && isSpace(b[i-1]) {
		i--
	}
	return bytes.Clone(b[i:])
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// CopyFile copies element values from srcPath into targetPath and rewrites
// targetPath in place. It returns the number of updated <type> entries.
func CopyFile(element, srcPath, targetPath string) (int, error) {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return 0, err
	}
	values, err := CollectValues(src, element)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", srcPath, err)
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		return 0, err
	}
	target, err := os.ReadFile(targetPath)
	if err != nil {
		return 0, err
	}

	out, updated, err := Apply(target, element, values)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", targetPath, err)
	}

	if err := os.WriteFile(targetPath, out, info.Mode().Perm()); err != nil {
		return 0, err
	}
	return updated, nil
}
