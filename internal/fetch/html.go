package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"portalharvest/internal/record"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func getText(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getText(child, buffer)
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func cellText(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, node := range sel.Nodes {
		getText(node, &buffer)
	}
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(buffer.String(), " "))
}

// ParseTable extracts the first table of a rendered listing page. Header
// cells come from thead, data cells from tbody.
func ParseTable(r io.Reader) (record.Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return record.Table{}, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return record.Table{}, ErrTableNotFound
	}

	var out record.Table
	table.Find("thead th").Each(func(_ int, th *goquery.Selection) {
		out.Headers = append(out.Headers, cellText(th))
	})
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			row = append(row, cellText(td))
		})
		out.Rows = append(out.Rows, row)
	})
	return out.Clean(), nil
}

// HTMLDriver replays a directory of saved listing pages, in file name order,
// as if they were being paged through live.
type HTMLDriver struct {
	files []string
	index int
}

func NewHTMLDriver(dir string) (*HTMLDriver, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".html" || ext == ".htm" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return &HTMLDriver{files: files}, nil
}

func (d *HTMLDriver) Extract(ctx context.Context) (record.Table, error) {
	if d.index >= len(d.files) {
		return record.Table{}, ErrTableNotFound
	}
	f, err := os.Open(d.files[d.index])
	if err != nil {
		return record.Table{}, err
	}
	defer f.Close()
	return ParseTable(f)
}

func (d *HTMLDriver) Advance(ctx context.Context) (bool, error) {
	if d.index+1 >= len(d.files) {
		return false, nil
	}
	d.index++
	return true, nil
}
