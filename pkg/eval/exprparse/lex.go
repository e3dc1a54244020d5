package exprparse

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInt
	tokIdent
	tokSymbol
	tokKeyword
)

type token struct {
	kind tokenKind
	text string
	ival int64
}

var keywords = map[string]bool{
	"if": true, "then": true, "else": true,
	"true": true, "false": true, "fn": true,
}

var symbols = []string{
	"<-", "=>", "==", "!=", "<=", ">=", "&&", "||",
	"(", ")", "{", "}", ",", "+", "-", "*", "/", "<", ">", "!",
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case unicode.IsDigit(c):
			j := i
			for j < len(src) && unicode.IsDigit(rune(src[j])) {
				j++
			}
			n, err := strconv.ParseInt(src[i:j], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid integer literal %q: %w", src[i:j], err)
			}
			toks = append(toks, token{kind: tokInt, text: src[i:j], ival: n})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(src) && (unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j])) || src[j] == '_') {
				j++
			}
			word := src[i:j]
			if keywords[word] {
				toks = append(toks, token{kind: tokKeyword, text: word})
			} else {
				toks = append(toks, token{kind: tokIdent, text: word})
			}
			i = j
		default:
			matched := ""
			for _, s := range symbols {
				if strings.HasPrefix(src[i:], s) {
					matched = s
					break
				}
			}
			if matched == "" {
				return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
			}
			toks = append(toks, token{kind: tokSymbol, text: matched})
			i += len(matched)
		}
	}
	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}
