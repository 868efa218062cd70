package tags

import (
	"fmt"
	"html/template"
	"text/template/parse"
)

// SyntaxError reports a malformed chunk tag found while parsing a template.
type SyntaxError struct {
	Location string // "name:line:col"
	Tag      string
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template: %s: %s: %s", e.Location, e.Tag, e.Msg)
}

// arity describes the argument rules for one tag. Positions count from 0
// and include the request argument.
type arity struct {
	min, max int
	strings  []int // positions that must be quoted string literals
	bools    []int // positions that must be bool literals when literal
	numbers  []int // positions that must be number literals when literal
}

var rules = map[string]arity{
	TagChunk:        {min: 2, max: 4, strings: []int{1}, bools: []int{2}, numbers: []int{3}},
	TagObjectChunk:  {min: 3, max: 6, strings: []int{2, 5}, bools: []int{3}, numbers: []int{4}},
	TagObjectChunks: {min: 2, max: 2},
	TagChunkFilter:  {min: 2, max: 2},
	TagAllChunks:    {min: 0, max: 0},
	TagOwner:        {min: 2, max: 2},
}

// Validate checks every chunk tag call in t and its associated templates.
func Validate(t *template.Template) error {
	for _, tt := range t.Templates() {
		if tt.Tree == nil || tt.Tree.Root == nil {
			continue
		}
		v := validator{tree: tt.Tree}
		v.walk(tt.Tree.Root)
		if v.err != nil {
			return v.err
		}
	}
	return nil
}

type validator struct {
	tree *parse.Tree
	err  error
}

func (v *validator) walk(n parse.Node) {
	if v.err != nil || n == nil {
		return
	}
	switch n := n.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			v.walk(c)
		}
	case *parse.ActionNode:
		v.pipe(n.Pipe)
	case *parse.IfNode:
		v.branch(&n.BranchNode)
	case *parse.RangeNode:
		v.branch(&n.BranchNode)
	case *parse.WithNode:
		v.branch(&n.BranchNode)
	case *parse.TemplateNode:
		v.pipe(n.Pipe)
	}
}

func (v *validator) branch(b *parse.BranchNode) {
	v.pipe(b.Pipe)
	v.walk(b.List)
	v.walk(b.ElseList)
}

func (v *validator) pipe(p *parse.PipeNode) {
	if p == nil {
		return
	}
	for i, cmd := range p.Cmds {
		v.command(cmd, i > 0)
		if v.err != nil {
			return
		}
	}
}

func (v *validator) command(cmd *parse.CommandNode, piped bool) {
	for _, arg := range cmd.Args {
		if sub, ok := arg.(*parse.PipeNode); ok {
			v.pipe(sub)
		}
	}
	if v.err != nil || len(cmd.Args) == 0 {
		return
	}
	ident, ok := cmd.Args[0].(*parse.IdentifierNode)
	if !ok {
		return
	}
	rule, ok := rules[ident.Ident]
	if !ok {
		return
	}

	args := cmd.Args[1:]
	n := len(args)
	if piped {
		n++
	}
	if n < rule.min || n > rule.max {
		v.fail(cmd, ident.Ident, arityMsg(rule, n))
		return
	}

	for _, pos := range rule.strings {
		if pos >= len(args) {
			continue
		}
		if _, ok := args[pos].(*parse.StringNode); !ok {
			v.fail(cmd, ident.Ident, fmt.Sprintf("argument %d must be a quoted string", pos+1))
			return
		}
	}
	for _, pos := range rule.bools {
		if pos < len(args) && isLiteral(args[pos]) {
			if _, ok := args[pos].(*parse.BoolNode); !ok {
				v.fail(cmd, ident.Ident, fmt.Sprintf("argument %d (wrap) must be true or false", pos+1))
				return
			}
		}
	}
	for _, pos := range rule.numbers {
		if pos < len(args) && isLiteral(args[pos]) {
			num, ok := args[pos].(*parse.NumberNode)
			if !ok || !num.IsInt || num.Int64 < 0 {
				v.fail(cmd, ident.Ident, fmt.Sprintf("argument %d (cache time) must be a non-negative integer", pos+1))
				return
			}
		}
	}
}

func (v *validator) fail(n parse.Node, tag, msg string) {
	loc, _ := v.tree.ErrorContext(n)
	v.err = &SyntaxError{Location: loc, Tag: tag, Msg: msg}
}

func isLiteral(n parse.Node) bool {
	switch n.(type) {
	case *parse.StringNode, *parse.NumberNode, *parse.BoolNode, *parse.NilNode:
		return true
	}
	return false
}

func arityMsg(r arity, got int) string {
	if r.min == r.max {
		return fmt.Sprintf("takes %d arguments, got %d", r.min, got)
	}
	return fmt.Sprintf("takes %d to %d arguments, got %d", r.min, r.max, got)
}
