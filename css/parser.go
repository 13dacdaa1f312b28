// Package css parses CSS text into a structured stylesheet the inliner can
// work with. Heavy lifting is done by the tdewolff tokenizer, this package
// only assembles rules, keeps declaration order and the "!important" flag.
package css

import (
	"bytes"
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// SyntaxError is returned when input is malformed beyond what the underlying
// tokenizer can recover from. Partial results are discarded by callers.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return "css syntax error: " + e.Err.Error()
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Parser parses CSS stylesheets into structured rules.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) (*Stylesheet, error) {
	sheet := &Stylesheet{}

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				p.log.Debug("CSS parse error", zap.Error(err))
				return sheet, &SyntaxError{Err: err}
			}
			return sheet, nil

		case css.BeginAtRuleGrammar:
			atRule := string(data)
			switch atRule {
			case "@media":
				query := joinTokens(parser.Values())
				rules, err := p.parseMediaBlockRules(parser)
				if err != nil {
					return sheet, err
				}
				p.log.Debug("Parsed @media block", zap.String("query", query), zap.Int("rules", len(rules)))
				sheet.Items = append(sheet.Items, StylesheetItem{
					MediaBlock: &MediaBlock{Query: query, Rules: rules},
				})
			case "@font-face":
				ff, err := p.parseFontFace(parser)
				if err != nil {
					return sheet, err
				}
				sheet.Items = append(sheet.Items, StylesheetItem{FontFace: &ff})
			default:
				if err := p.skipAtRuleBlock(parser); err != nil {
					return sheet, err
				}
				sheet.Warnings = append(sheet.Warnings, "skipped at-rule: "+atRule)
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.AtRuleGrammar:
			// Simple @-rule without block (e.g. @import)
			atRule := string(data)
			if atRule == "@import" {
				if url := extractImportURL(parser.Values()); url != "" {
					sheet.Items = append(sheet.Items, StylesheetItem{Import: &url})
					p.log.Debug("Parsed @import", zap.String("url", url))
				}
			} else {
				sheet.Warnings = append(sheet.Warnings, "skipped at-rule: "+atRule)
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.BeginRulesetGrammar, css.QualifiedRuleGrammar:
			selectors := p.parseSelectors(data, parser.Values())
			decls, err := p.parseRulesetDeclarations(parser)
			if err != nil {
				return sheet, err
			}
			if len(selectors) > 0 {
				sheet.Items = append(sheet.Items, StylesheetItem{
					Rule: &Rule{Selectors: selectors, Declarations: decls},
				})
			}
		}
	}
}

// ParseDeclarations parses the content of an inline style attribute into an
// ordered declaration list.
func (p *Parser) ParseDeclarations(data []byte) ([]Declaration, error) {
	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, true)

	var decls []Declaration
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				p.log.Debug("Inline style parse error", zap.Error(err))
				return decls, &SyntaxError{Err: err}
			}
			return decls, nil

		case css.DeclarationGrammar:
			decls = append(decls, makeDeclaration(data, parser.Values()))

		case css.CustomPropertyGrammar:
			// CSS custom properties (--var) have no inline-style meaning here
			continue
		}
	}
}

// makeDeclaration builds a Declaration from a property name and value tokens,
// detecting and stripping a trailing "!important".
func makeDeclaration(name []byte, values []css.Token) Declaration {
	d := Declaration{Property: strings.ToLower(string(name))}

	// Drop trailing whitespace tokens first, then a trailing "! important".
	end := len(values)
	for end > 0 && values[end-1].TokenType == css.WhitespaceToken {
		end--
	}
	if end >= 2 &&
		values[end-1].TokenType == css.IdentToken &&
		strings.EqualFold(string(values[end-1].Data), "important") {
		prev := end - 2
		for prev >= 0 && values[prev].TokenType == css.WhitespaceToken {
			prev--
		}
		if prev >= 0 && values[prev].TokenType == css.DelimToken && string(values[prev].Data) == "!" {
			d.Important = true
			end = prev
		}
	}

	d.Value = joinTokens(values[:end])
	return d
}

// joinTokens renders value tokens back to text, collapsing whitespace runs to
// single spaces.
func joinTokens(tokens []css.Token) string {
	var parts []string
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			parts = append(parts, string(t.Data))
		} else if len(parts) > 0 && parts[len(parts)-1] != " " {
			parts = append(parts, " ")
		}
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			// url(something), token data is the full url(...) string
			s := string(t.Data)
			s = strings.TrimPrefix(s, "url(")
			s = strings.TrimSuffix(s, ")")
			return unquote(strings.TrimSpace(s))
		}
	}
	return ""
}

// parseSelectors extracts selector strings from token data, splitting grouped
// selectors on top-level commas only (commas inside :not(...) and friends do
// not split).
func (p *Parser) parseSelectors(data []byte, values []css.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}
	return splitSelectors(sb.String())
}

func splitSelectors(s string) []string {
	var selectors []string
	depth, start := 0, 0
	flush := func(end int) {
		if sel := strings.TrimSpace(s[start:end]); sel != "" {
			selectors = append(selectors, normalizeSelector(sel))
		}
	}
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(s))
	return selectors
}

// normalizeSelector restores the space after commas nested inside functional
// notation (the tokenizer consumes it), so selector text re-serialized by the
// head-purge step reads one canonical way.
func normalizeSelector(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		}
		sb.WriteByte(c)
		if c == ',' && depth > 0 && i+1 < len(s) && s[i+1] != ' ' {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// parseRulesetDeclarations parses property declarations until EndRulesetGrammar.
func (p *Parser) parseRulesetDeclarations(parser *css.Parser) ([]Declaration, error) {
	var decls []Declaration
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return decls, &SyntaxError{Err: err}
			}
			return decls, nil

		case css.EndRulesetGrammar:
			return decls, nil

		case css.DeclarationGrammar:
			decls = append(decls, makeDeclaration(data, parser.Values()))

		case css.CustomPropertyGrammar:
			continue
		}
	}
}

// parseMediaBlockRules parses rules inside an @media block and returns them.
func (p *Parser) parseMediaBlockRules(parser *css.Parser) ([]Rule, error) {
	var rules []Rule
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return rules, &SyntaxError{Err: err}
			}
			return rules, nil

		case css.EndAtRuleGrammar:
			return rules, nil

		case css.BeginRulesetGrammar, css.QualifiedRuleGrammar:
			selectors := p.parseSelectors(data, parser.Values())
			decls, err := p.parseRulesetDeclarations(parser)
			if err != nil {
				return rules, err
			}
			if len(selectors) > 0 {
				rules = append(rules, Rule{Selectors: selectors, Declarations: decls})
			}
		}
	}
}

// parseFontFace parses an @font-face block.
func (p *Parser) parseFontFace(parser *css.Parser) (FontFace, error) {
	var ff FontFace
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return ff, &SyntaxError{Err: err}
			}
			return ff, nil

		case css.EndAtRuleGrammar:
			return ff, nil

		case css.DeclarationGrammar:
			value := joinTokens(parser.Values())
			switch strings.ToLower(string(data)) {
			case "font-family":
				ff.Family = unquote(value)
			case "src":
				ff.Src = value
			case "font-style":
				ff.Style = value
			case "font-weight":
				ff.Weight = value
			}
		}
	}
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) error {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return &SyntaxError{Err: err}
			}
			return nil
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
	return nil
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
