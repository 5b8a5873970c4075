package doc

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var reNewlines = regexp.MustCompile(`\n{3,}`)

// docxText accumulates WordprocessingML runs. Deleted revisions are skipped
// and table cells are separated by tabs.
type docxText struct {
	sb       strings.Builder
	inText   bool
	delDepth int
	inTable  bool
	cell     int
}

func (d *docxText) visible() bool {
	return d.delDepth == 0
}

func (d *docxText) newline() {
	if d.sb.Len() > 0 && !strings.HasSuffix(d.sb.String(), "\n") {
		d.sb.WriteByte('\n')
	}
}

func (d *docxText) start(name string) {
	switch name {
	case "del":
		d.delDepth++
	case "t":
		d.inText = true
	case "tab":
		if d.visible() {
			d.sb.WriteByte('\t')
		}
	case "br", "cr":
		if d.visible() {
			d.sb.WriteByte('\n')
		}
	case "noBreakHyphen":
		if d.visible() {
			d.sb.WriteByte('-')
		}
	case "tbl":
		d.inTable = true
		d.cell = 0
		d.newline()
	case "tr":
		d.cell = 0
	case "tc":
		if d.inTable && d.visible() {
			if d.cell > 0 {
				d.sb.WriteByte('\t')
			}
			d.cell++
		}
	}
}

func (d *docxText) end(name string) {
	switch name {
	case "t":
		d.inText = false
	case "p", "tr":
		if d.visible() {
			d.sb.WriteByte('\n')
		}
	case "tbl":
		d.inTable = false
		if d.visible() {
			d.sb.WriteByte('\n')
		}
	case "del":
		if d.delDepth > 0 {
			d.delDepth--
		}
	}
}

func (d *docxText) chars(data []byte) {
	if d.inText && d.visible() {
		d.sb.Write(data)
	}
}

func (d *docxText) String() string {
	text := strings.TrimSpace(d.sb.String())
	text = reNewlines.ReplaceAllString(text, "\n\n")
	if text != "" {
		text += "\n"
	}
	return text
}

func parseDocx(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("document.xml not found in docx")
	}
	if docFile.UncompressedSize64 > docXMLMax {
		return "", fmt.Errorf("document.xml too large: %d bytes", docFile.UncompressedSize64)
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(io.LimitReader(rc, int64(docXMLMax)))
	var out docxText
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			out.start(t.Name.Local)
		case xml.EndElement:
			out.end(t.Name.Local)
		case xml.CharData:
			out.chars(t)
		}
	}

	return out.String(), nil
}
