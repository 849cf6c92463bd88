package main

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// table prints aligned columns. Widths are measured on plain text and color
// is applied after padding, so escape codes never shift a column.
type table struct {
	header []string
	rows   [][]cell
}

type cell struct {
	text  string
	color *color.Color
}

func plain(s string) cell { return cell{text: s} }

func colored(s string, c *color.Color) cell { return cell{text: s, color: c} }

func newTable(header ...string) *table {
	return &table{header: header}
}

func (t *table) add(cells ...cell) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) error {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(c.text))
			}
		}
	}

	bold := color.New(color.Bold)
	head := make([]cell, len(t.header))
	for i, h := range t.header {
		head[i] = colored(h, bold)
	}
	var b strings.Builder
	for _, row := range append([][]cell{head}, t.rows...) {
		for i, c := range row {
			if i >= len(widths) {
				break
			}
			text := c.text
			if c.color != nil {
				text = c.color.Sprint(c.text)
			}
			b.WriteString(text)
			if i < len(widths)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c.text)+2))
			}
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
