// Package document is the default content parser: a YAML front matter block
// followed by a Markdown or HTML body.
package document

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"blogdex/internal/blog"
)

var (
	frontMatterRe = regexp.MustCompile(`(?s)\A---[ \t]*\r?\n(.*?\n)?---[ \t]*(?:\r?\n|\z)`)
	yamlLineRe    = regexp.MustCompile(`^yaml: line (\d+): `)
)

// Parser implements blog.Parser.
type Parser struct {
	loc *time.Location
	md  goldmark.Markdown
}

// NewParser creates a parser that interprets dates without a zone in loc.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{
		loc: loc,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Parse reads front matter and renders the body of one content file.
func (p *Parser) Parse(src *blog.Source, data []byte) (*blog.Parsed, error) {
	fm, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, err
	}

	parsed := &blog.Parsed{}
	meta, err := p.readFrontMatter(fm, parsed)
	if err != nil {
		return nil, err
	}

	if meta.pageSet {
		parsed.IsPage = meta.page
	} else {
		parsed.IsPage = parsed.PublishedNow
	}

	markdown := isMarkdownFile(src.File)
	if meta.markdownSet {
		markdown = meta.markdown
	}
	if markdown {
		var buf bytes.Buffer
		if err := p.md.Convert(body, &buf); err != nil {
			return nil, &blog.ParseError{Message: fmt.Sprintf("rendering markdown: %v", err)}
		}
		parsed.BodyHTML = strings.TrimSpace(buf.String())
	} else {
		parsed.BodyHTML = strings.TrimSpace(string(body))
	}

	return parsed, nil
}

// splitFrontMatter separates the leading --- block from the body. A file
// without front matter is all body.
func splitFrontMatter(data []byte) (fm, body []byte, err error) {
	if !bytes.HasPrefix(data, []byte("---")) {
		return nil, data, nil
	}
	loc := frontMatterRe.FindSubmatchIndex(data)
	if loc == nil {
		return nil, nil, &blog.ParseError{Message: "front matter is not terminated by ---", Line: 1}
	}
	if loc[2] < 0 {
		return nil, data[loc[1]:], nil
	}
	return data[loc[2]:loc[3]], data[loc[1]:], nil
}

type switches struct {
	page, pageSet         bool
	markdown, markdownSet bool
}

// readFrontMatter decodes fm into parsed. Keys are case-insensitive; unknown
// keys are ignored.
func (p *Parser) readFrontMatter(fm []byte, parsed *blog.Parsed) (switches, error) {
	var sw switches
	if len(bytes.TrimSpace(fm)) == 0 {
		return sw, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(fm, &doc); err != nil {
		return sw, yamlError(err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return sw, nil
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return sw, nodeError(mapping, "front matter must be a mapping of keys to values")
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := strings.ToLower(strings.TrimSpace(mapping.Content[i].Value))
		value := mapping.Content[i+1]

		var err error
		switch key {
		case "title":
			parsed.Title, err = scalar(value, key)
		case "description":
			parsed.Description, err = scalar(value, key)
		case "thumb", "thumbnail":
			parsed.Thumbnail, err = scalar(value, key)
		case "author":
			parsed.Author, err = scalar(value, key)
			parsed.Author = strings.Join(strings.Fields(parsed.Author), " ")
		case "keywords", "tags":
			parsed.Tags, err = list(value, key)
		case "published":
			err = p.published(value, parsed)
		case "featured":
			parsed.Featured, err = boolean(value, key)
		case "page":
			sw.page, err = boolean(value, key)
			sw.pageSet = true
		case "markdown":
			sw.markdown, err = boolean(value, key)
			sw.markdownSet = true
		}
		if err != nil {
			return sw, err
		}
	}
	return sw, nil
}

func (p *Parser) published(node *yaml.Node, parsed *blog.Parsed) error {
	if node.Kind != yaml.ScalarNode {
		return nodeError(node, "published must be true, false or a date")
	}
	if node.Tag == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return nodeError(node, "published must be true, false or a date")
		}
		parsed.PublishedNow = b
		return nil
	}
	if node.Tag == "!!null" || strings.TrimSpace(node.Value) == "" {
		return nil
	}

	t, err := dateparse.ParseIn(strings.TrimSpace(node.Value), p.loc)
	if err != nil {
		return nodeError(node, fmt.Sprintf("published date %q is not recognized", node.Value))
	}
	parsed.PublishedAt = &t
	return nil
}

func scalar(node *yaml.Node, key string) (string, error) {
	if node.Kind != yaml.ScalarNode {
		return "", nodeError(node, key+" must be a single value")
	}
	if node.Tag == "!!null" {
		return "", nil
	}
	return strings.TrimSpace(node.Value), nil
}

// list accepts a comma separated string or a sequence of strings.
func list(node *yaml.Node, key string) ([]string, error) {
	var raw []string
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			raw = strings.Split(node.Value, ",")
		}
	case yaml.SequenceNode:
		for _, child := range node.Content {
			if child.Kind != yaml.ScalarNode {
				return nil, nodeError(child, key+" must be a list of names")
			}
			raw = append(raw, child.Value)
		}
	default:
		return nil, nodeError(node, key+" must be a list of names")
	}

	var out []string
	for _, r := range raw {
		if r = strings.Join(strings.Fields(r), " "); r != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

func boolean(node *yaml.Node, key string) (bool, error) {
	var b bool
	if node.Kind != yaml.ScalarNode || node.Decode(&b) != nil {
		return false, nodeError(node, key+" must be true or false")
	}
	return b, nil
}

// Front matter starts on the second line of the file.
const frontMatterOffset = 1

func nodeError(node *yaml.Node, msg string) error {
	return &blog.ParseError{Message: msg, Line: node.Line + frontMatterOffset}
}

func yamlError(err error) error {
	msg := err.Error()
	if m := yamlLineRe.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return &blog.ParseError{Message: strings.TrimPrefix(msg, m[0]), Line: line + frontMatterOffset}
	}
	return &blog.ParseError{Message: strings.TrimPrefix(msg, "yaml: ")}
}

func isMarkdownFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// Compile-time check that Parser implements blog.Parser interface
var _ blog.Parser = (*Parser)(nil)
