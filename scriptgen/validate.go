package scriptgen

import (
	"fmt"

	"github.com/RSanzzzzz/programmatic-tool-calling-ai-sdk/ptcall"
)

var errSyntax = ptcall.ErrSyntaxInvalid

// ValidateSyntax performs a surface-level syntax check on an LLM-generated
// program body before it is spliced into the generated worker script. It
// rejects unbalanced brackets or unterminated strings with an actionable
// hint naming the offending construct, but never rejects a body merely for
// using top-level await (the outer wrapper is itself an async function, so
// any await in body is already valid there).
func ValidateSyntax(body string) error {
	type frame struct {
		open byte
		pos  int
	}
	var stack []frame

	inString := byte(0)
	inLineComment := false
	inBlockComment := false
	escaped := false

	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}

	for i := 0; i < len(body); i++ {
		c := body[i]

		if inLineComment {
			if c == '\n' {
				inLineComment = false
			}
			continue
		}
		if inBlockComment {
			if c == '*' && i+1 < len(body) && body[i+1] == '/' {
				inBlockComment = false
				i++
			}
			continue
		}
		if inString != 0 {
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == inString {
				inString = 0
			}
			continue
		}

		switch c {
		case '/':
			if i+1 < len(body) {
				switch body[i+1] {
				case '/':
					inLineComment = true
					i++
					continue
				case '*':
					inBlockComment = true
					i++
					continue
				}
			}
		case '\'', '"', '`':
			inString = c
		case '(', '[', '{':
			stack = append(stack, frame{open: c, pos: i})
		case ')', ']', '}':
			want := pairs[c]
			if len(stack) == 0 || stack[len(stack)-1].open != want {
				return fmt.Errorf("%w: unmatched %q at offset %d", errSyntax, c, i)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if inString != 0 {
		return fmt.Errorf("%w: unterminated string literal starting with %q", errSyntax, inString)
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return fmt.Errorf("%w: unclosed %q opened at offset %d", errSyntax, top.open, top.pos)
	}

	return nil
}
