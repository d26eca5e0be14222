package catalog

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ocmods/internal/domain"

	"golang.org/x/text/encoding/ianaindex"
)

// Document is a parsed catalog response
type Document struct {
	Meta    Meta
	HasMeta bool
	Items   []Item // Non-empty resources/item elements, in document order
	Root    Item   // The root element read as a single mod (lookup responses)
	Raw     []byte
}

type searchRoot struct {
	XMLName xml.Name
	Meta    *struct {
		Total string `xml:"total"`
		Skip  string `xml:"skip"`
	} `xml:"meta"`
	Resources []Item `xml:"resources>item"`
}

// ParseDocument decodes a response body. Malformed XML wraps domain.ErrParse,
// a root element other than <root> wraps domain.ErrProtocolMismatch.
func ParseDocument(data []byte) (*Document, error) {
	var root searchRoot
	if err := decode(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if root.XMLName.Local != RootElement {
		return nil, fmt.Errorf("%w: root element is <%s>", domain.ErrProtocolMismatch, root.XMLName.Local)
	}

	doc := &Document{Raw: data}
	if err := decode(data, &doc.Root); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	if root.Meta != nil {
		doc.HasMeta = true
		doc.Meta.Total = atoiOrZero(root.Meta.Total)
		doc.Meta.Skip = atoiOrZero(root.Meta.Skip)
	}
	for _, item := range root.Resources {
		if item.Empty() {
			continue
		}
		doc.Items = append(doc.Items, item)
	}

	return doc, nil
}

// Records converts all search items
func (d *Document) Records(source domain.Source) []domain.ModRecord {
	records := make([]domain.ModRecord, 0, len(d.Items))
	for _, item := range d.Items {
		records = append(records, item.Record(source))
	}
	return records
}

// ParseRecord reads a single-mod document such as an installed resource.xml
func ParseRecord(data []byte, source domain.Source) (domain.ModRecord, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return domain.ModRecord{}, err
	}
	return doc.Root.Record(source), nil
}

// MarshalRecord produces the resource.xml content for a record
func MarshalRecord(rec domain.ModRecord) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<" + RootElement + ">")
	buf.Write(rec.Metadata)
	buf.WriteString("</" + RootElement + ">\n")
	return buf.Bytes()
}

func decode(data []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	return dec.Decode(v)
}

// charsetReader handles documents that declare a non UTF-8 encoding
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
