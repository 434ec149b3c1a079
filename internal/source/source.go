// Package source reads patch text from files, stdin or the clipboard.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/asynkron/blockpatch/pkg/patch"
)

// Stdin is the path that names standard input.
const Stdin = "-"

// Origin names where patch text came from.
type Origin string

const (
	OriginFile      Origin = "file"
	OriginStdin     Origin = "stdin"
	OriginClipboard Origin = "clipboard"
)

// ErrEmptyClipboard is returned when the clipboard holds nothing to apply.
var ErrEmptyClipboard = errors.New("clipboard is empty")

// Provider determines and retrieves patch text.
type Provider struct {
	Stdin     io.Reader
	IsPiped   func() bool
	Clipboard func() (string, error)
}

// New creates a Provider backed by the process stdin and the system clipboard.
func New() *Provider {
	return &Provider{
		Stdin:     os.Stdin,
		IsPiped:   stdinPiped,
		Clipboard: clipboard.ReadAll,
	}
}

// Read returns the content at path. "-" reads stdin. An empty path reads stdin when it is
// piped and the clipboard otherwise.
func (p *Provider) Read(path string) (string, Origin, error) {
	switch {
	case path == Stdin:
		return p.readStdin()
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", OriginFile, fmt.Errorf("failed to read patch %s: %w", path, err)
		}
		return string(data), OriginFile, nil
	case p.IsPiped != nil && p.IsPiped():
		return p.readStdin()
	}

	if p.Clipboard == nil {
		return "", OriginClipboard, fmt.Errorf("no patch source: clipboard unavailable")
	}
	content, err := p.Clipboard()
	if err != nil {
		return "", OriginClipboard, fmt.Errorf("failed to read from clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return "", OriginClipboard, ErrEmptyClipboard
	}
	return content, OriginClipboard, nil
}

func (p *Provider) readStdin() (string, Origin, error) {
	if p.Stdin == nil {
		return "", OriginStdin, fmt.Errorf("stdin unavailable")
	}
	data, err := io.ReadAll(p.Stdin)
	if err != nil {
		return "", OriginStdin, fmt.Errorf("failed to read from stdin: %w", err)
	}
	return string(data), OriginStdin, nil
}

func stdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}

// CodeBlock is a fenced code block found in markdown.
type CodeBlock struct {
	Lang    string
	Content string
}

// ExtractCodeBlocks walks the markdown AST and returns every fenced code block in document order.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		blocks = append(blocks, CodeBlock{
			Lang:    string(fenced.Language(source)),
			Content: content.String(),
		})
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	return blocks, nil
}

// ExtractPatch collects the fenced code blocks of a markdown reply that contain a search marker
// and joins them into a single patch text. Markdown without such blocks is returned unchanged so
// bare patches still parse.
func ExtractPatch(markdown string) (string, error) {
	blocks, err := ExtractCodeBlocks([]byte(markdown))
	if err != nil {
		return "", fmt.Errorf("failed to parse markdown: %w", err)
	}

	var parts []string
	for _, block := range blocks {
		if containsMarkerLine(block.Content, patch.MarkerSearch) {
			parts = append(parts, strings.TrimRight(block.Content, "\n"))
		}
	}
	if len(parts) == 0 {
		return markdown, nil
	}
	return strings.Join(parts, "\n") + "\n", nil
}

func containsMarkerLine(content, marker string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSuffix(line, "\r") == marker {
			return true
		}
	}
	return false
}
