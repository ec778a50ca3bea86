// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

// Package parser turns a Lua token stream into the flat [ast.Block] tree.
// It is an external collaborator of the interpreter's core per the
// specification: the semantic analyzer in internal/compile is where the
// interesting work (scope resolution, upvalue capture, label checking)
// happens. This parser is a standard recursive-descent/precedence-climbing
// implementation of the Lua 5.4 grammar.
package parser

import (
	"errors"
	"fmt"

	"lumalang.dev/lua/internal/ast"
	"lumalang.dev/lua/internal/token"
)

// Error is a parse-time syntax error.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Pos, e.Msg)
}

// Parse parses a complete Lua chunk.
//
// If the input ends before a construct is syntactically complete (for
// example, an unclosed block), Parse returns an error wrapping
// [token.ErrTruncated]; callers such as a REPL driver should treat this as
// "read another line" rather than a hard failure.
func Parse(src []byte) (*ast.Block, error) {
	p := &parser{lex: *token.New(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	block, err := p.block()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != token.EOF {
		return nil, p.errorf("unexpected %v", p.tok)
	}
	return block, nil
}

type parser struct {
	lex token.Lexer
	tok token.Token
}

func (p *parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &Error{Pos: p.tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(k token.Kind) (token.Token, error) {
	if p.tok.Kind != k {
		if p.tok.Kind == token.EOF {
			return token.Token{}, fmt.Errorf("%v: expected %v, got eof: %w", p.tok.Pos, k, token.ErrTruncated)
		}
		return token.Token{}, p.errorf("expected %v, got %v", k, p.tok)
	}
	tok := p.tok
	return tok, p.advance()
}

func (p *parser) accept(k token.Kind) (bool, error) {
	if p.tok.Kind != k {
		return false, nil
	}
	return true, p.advance()
}

var blockEnd = map[token.Kind]bool{
	token.EOF: true, token.End: true, token.Else: true,
	token.Elseif: true, token.Until: true,
}

func (p *parser) block() (*ast.Block, error) {
	b := new(ast.Block)
	for !blockEnd[p.tok.Kind] {
		if p.tok.Kind == token.Return {
			ret, err := p.returnStat()
			if err != nil {
				return nil, err
			}
			b.Return = ret
			break
		}
		stat, err := p.statement()
		if err != nil {
			return nil, err
		}
		if stat != nil {
			b.Stats = append(b.Stats, stat)
		}
	}
	return b, nil
}

func (p *parser) returnStat() (*ast.ReturnStat, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	ret := &ast.ReturnStat{Pos: pos}
	if !blockEnd[p.tok.Kind] && p.tok.Kind != token.Semi {
		exprs, err := p.exprList()
		if err != nil {
			return nil, err
		}
		ret.Exprs = exprs
	}
	if _, err := p.accept(token.Semi); err != nil {
		return nil, err
	}
	return ret, nil
}

func (p *parser) statement() (ast.Stat, error) {
	pos := p.tok.Pos
	switch p.tok.Kind {
	case token.Semi:
		return nil, p.advance()
	case token.DColon:
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expect(token.Name)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.DColon); err != nil {
			return nil, err
		}
		return &ast.LabelStat{Pos: pos, Name: name.Value}, nil
	case token.Break:
		return &ast.BreakStat{Pos: pos}, p.advance()
	case token.Goto:
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expect(token.Name)
		if err != nil {
			return nil, err
		}
		return &ast.GotoStat{Pos: pos, Label: name.Value}, nil
	case token.Do:
		if err := p.advance(); err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.End); err != nil {
			return nil, err
		}
		return &ast.DoStat{Pos: pos, Body: body}, nil
	case token.While:
		return p.whileStat()
	case token.Repeat:
		return p.repeatStat()
	case token.If:
		return p.ifStat()
	case token.For:
		return p.forStat()
	case token.Function:
		return p.functionDeclStat()
	case token.Local:
		return p.localStat()
	default:
		return p.exprStat()
	}
}

func (p *parser) whileStat() (ast.Stat, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Do); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.End); err != nil {
		return nil, err
	}
	return &ast.WhileStat{Pos: pos, Cond: cond, Body: body}, nil
}

func (p *parser) repeatStat() (ast.Stat, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Until); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.RepeatStat{Pos: pos, Body: body, Cond: cond}, nil
}

func (p *parser) ifStat() (ast.Stat, error) {
	pos := p.tok.Pos
	st := &ast.IfStat{Pos: pos}
	for {
		if err := p.advance(); err != nil { // consumes 'if' or 'elseif'
			return nil, err
		}
		cond, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Then); err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		st.Arms = append(st.Arms, ast.IfArm{Cond: cond, Body: body})
		if p.tok.Kind != token.Elseif {
			break
		}
	}
	if ok, err := p.accept(token.Else); err != nil {
		return nil, err
	} else if ok {
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		st.Else = body
	}
	if _, err := p.expect(token.End); err != nil {
		return nil, err
	}
	return st, nil
}

func (p *parser) forStat() (ast.Stat, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.expect(token.Name)
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == token.Assign {
		if err := p.advance(); err != nil {
			return nil, err
		}
		start, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Comma); err != nil {
			return nil, err
		}
		stop, err := p.expression()
		if err != nil {
			return nil, err
		}
		var step ast.Expr
		if ok, err := p.accept(token.Comma); err != nil {
			return nil, err
		} else if ok {
			step, err = p.expression()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(token.Do); err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.End); err != nil {
			return nil, err
		}
		return &ast.NumericForStat{Pos: pos, Name: name.Value, Start: start, Stop: stop, Step: step, Body: body}, nil
	}

	names := []string{name.Value}
	for {
		ok, err := p.accept(token.Comma)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		n, err := p.expect(token.Name)
		if err != nil {
			return nil, err
		}
		names = append(names, n.Value)
	}
	if _, err := p.expect(token.In); err != nil {
		return nil, err
	}
	exprs, err := p.exprList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Do); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.End); err != nil {
		return nil, err
	}
	return &ast.GenericForStat{Pos: pos, Names: names, Exprs: exprs, Body: body}, nil
}

func (p *parser) functionDeclStat() (ast.Stat, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.expect(token.Name)
	if err != nil {
		return nil, err
	}
	var target ast.Expr = &ast.NameExpr{Pos: name.Pos, Name: name.Value}
	method := false
	for {
		switch p.tok.Kind {
		case token.Dot:
			if err := p.advance(); err != nil {
				return nil, err
			}
			field, err := p.expect(token.Name)
			if err != nil {
				return nil, err
			}
			target = &ast.IndexExpr{Pos: field.Pos, Obj: target, Key: &ast.StringExpr{Pos: field.Pos, Value: field.Value}}
			continue
		case token.Colon:
			if err := p.advance(); err != nil {
				return nil, err
			}
			field, err := p.expect(token.Name)
			if err != nil {
				return nil, err
			}
			target = &ast.IndexExpr{Pos: field.Pos, Obj: target, Key: &ast.StringExpr{Pos: field.Pos, Value: field.Value}}
			method = true
		}
		break
	}
	fn, err := p.functionBody(pos, method)
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDeclStat{Pos: pos, Target: target, Method: method, Func: fn}, nil
}

func (p *parser) localStat() (ast.Stat, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if ok, err := p.accept(token.Function); err != nil {
		return nil, err
	} else if ok {
		name, err := p.expect(token.Name)
		if err != nil {
			return nil, err
		}
		fn, err := p.functionBody(pos, false)
		if err != nil {
			return nil, err
		}
		return &ast.LocalFunctionStat{Pos: pos, Name: name.Value, Func: fn}, nil
	}

	var names []string
	var attribs []string
	for {
		name, err := p.expect(token.Name)
		if err != nil {
			return nil, err
		}
		names = append(names, name.Value)
		attrib := ""
		if ok, err := p.accept(token.Lt); err != nil {
			return nil, err
		} else if ok {
			a, err := p.expect(token.Name)
			if err != nil {
				return nil, err
			}
			if a.Value != "const" && a.Value != "close" {
				return nil, &Error{Pos: a.Pos, Msg: fmt.Sprintf("unknown attribute %q", a.Value)}
			}
			attrib = a.Value
			if _, err := p.expect(token.Gt); err != nil {
				return nil, err
			}
		}
		attribs = append(attribs, attrib)
		ok, err := p.accept(token.Comma)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	var exprs []ast.Expr
	if ok, err := p.accept(token.Assign); err != nil {
		return nil, err
	} else if ok {
		exprs, err = p.exprList()
		if err != nil {
			return nil, err
		}
	}
	return &ast.LocalStat{Pos: pos, Names: names, Attribs: attribs, Exprs: exprs}, nil
}

func (p *parser) exprStat() (ast.Stat, error) {
	pos := p.tok.Pos
	first, err := p.suffixedExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != token.Assign && p.tok.Kind != token.Comma {
		switch first.(type) {
		case *ast.CallExpr, *ast.MethodCallExpr:
		default:
			return nil, &Error{Pos: pos, Msg: "syntax error: expression is not a statement"}
		}
		return &ast.CallStat{Pos: pos, Call: first}, nil
	}
	targets := []ast.Expr{first}
	for {
		ok, err := p.accept(token.Comma)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		e, err := p.suffixedExpr()
		if err != nil {
			return nil, err
		}
		targets = append(targets, e)
	}
	if _, err := p.expect(token.Assign); err != nil {
		return nil, err
	}
	exprs, err := p.exprList()
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		switch t.(type) {
		case *ast.NameExpr, *ast.IndexExpr:
		default:
			return nil, &Error{Pos: pos, Msg: "cannot assign to this expression"}
		}
	}
	return &ast.AssignStat{Pos: pos, Targets: targets, Exprs: exprs}, nil
}

func (p *parser) exprList() ([]ast.Expr, error) {
	e, err := p.expression()
	if err != nil {
		return nil, err
	}
	list := []ast.Expr{e}
	for {
		ok, err := p.accept(token.Comma)
		if err != nil {
			return nil, err
		}
		if !ok {
			return list, nil
		}
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
}

// ---- Expressions: precedence climbing ----
// Mirrors Lua 5.4's own "priority" table (left, right binding power per
// operator; ^ and .. are right-associative).

type opInfo struct {
	op          ast.BinaryOp
	left, right int
}

var binOps = map[token.Kind]opInfo{
	token.Or:      {ast.OpOr, 1, 1},
	token.And:     {ast.OpAnd, 2, 2},
	token.Lt:      {ast.OpLt, 3, 3},
	token.Gt:      {ast.OpGt, 3, 3},
	token.LtEq:    {ast.OpLe, 3, 3},
	token.GtEq:    {ast.OpGe, 3, 3},
	token.NotEq:   {ast.OpNotEq, 3, 3},
	token.Eq:      {ast.OpEq, 3, 3},
	token.Pipe:    {ast.OpBOr, 4, 4},
	token.Tilde:   {ast.OpBXor, 5, 5},
	token.Amp:     {ast.OpBAnd, 6, 6},
	token.LtLt:    {ast.OpShl, 7, 7},
	token.GtGt:    {ast.OpShr, 7, 7},
	token.Concat:  {ast.OpConcat, 9, 8},
	token.Plus:    {ast.OpAdd, 10, 10},
	token.Minus:   {ast.OpSub, 10, 10},
	token.Star:    {ast.OpMul, 11, 11},
	token.Slash:   {ast.OpDiv, 11, 11},
	token.DSlash:  {ast.OpIDiv, 11, 11},
	token.Percent: {ast.OpMod, 11, 11},
	token.Caret:   {ast.OpPow, 14, 13},
}

const unaryPrecedence = 12

func (p *parser) expression() (ast.Expr, error) {
	return p.subExpr(0)
}

func (p *parser) subExpr(limit int) (ast.Expr, error) {
	var left ast.Expr
	pos := p.tok.Pos
	switch p.tok.Kind {
	case token.Not:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.subExpr(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		left = &ast.UnaryExpr{Pos: pos, Op: ast.OpNot, Operand: operand}
	case token.Minus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.subExpr(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		left = &ast.UnaryExpr{Pos: pos, Op: ast.OpNeg, Operand: operand}
	case token.Hash:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.subExpr(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		left = &ast.UnaryExpr{Pos: pos, Op: ast.OpLen, Operand: operand}
	case token.Tilde:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.subExpr(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		left = &ast.UnaryExpr{Pos: pos, Op: ast.OpBNot, Operand: operand}
	default:
		var err error
		left, err = p.simpleExpr()
		if err != nil {
			return nil, err
		}
	}

	for {
		info, ok := binOps[p.tok.Kind]
		if !ok || info.left <= limit {
			return left, nil
		}
		opPos := p.tok.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.subExpr(info.right)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Pos: opPos, Op: info.op, Left: left, Right: right}
	}
}

func (p *parser) simpleExpr() (ast.Expr, error) {
	pos := p.tok.Pos
	switch p.tok.Kind {
	case token.Nil:
		return &ast.NilExpr{Pos: pos}, p.advance()
	case token.True:
		return &ast.TrueExpr{Pos: pos}, p.advance()
	case token.False:
		return &ast.FalseExpr{Pos: pos}, p.advance()
	case token.Ellipsis:
		return &ast.VarargExpr{Pos: pos}, p.advance()
	case token.Number:
		return p.numberExpr()
	case token.String:
		v := p.tok.Value
		return &ast.StringExpr{Pos: pos, Value: v}, p.advance()
	case token.Function:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.functionBody(pos, false)
	case token.LBrace:
		return p.tableExpr()
	default:
		return p.suffixedExpr()
	}
}

func (p *parser) numberExpr() (ast.Expr, error) {
	pos := p.tok.Pos
	s := p.tok.Value
	if err := p.advance(); err != nil {
		return nil, err
	}
	if looksIntegral(s) {
		if i, err := token.ParseInt(s); err == nil {
			return &ast.NumberExpr{Pos: pos, IsInt: true, Int: i}, nil
		}
	}
	f, err := token.ParseFloat(s)
	if err != nil {
		return nil, &Error{Pos: pos, Msg: fmt.Sprintf("malformed number %q", s)}
	}
	return &ast.NumberExpr{Pos: pos, IsInt: false, Float: f}, nil
}

func looksIntegral(s string) bool {
	hasDot, hasExp := false, false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.':
			hasDot = true
		case 'e', 'E':
			if !hasHexPrefix(s) {
				hasExp = true
			}
		case 'p', 'P':
			if hasHexPrefix(s) {
				hasExp = true
			}
		}
	}
	return !hasDot && !hasExp
}

func hasHexPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// primaryExpr parses a name or a parenthesized expression.
func (p *parser) primaryExpr() (ast.Expr, error) {
	pos := p.tok.Pos
	switch p.tok.Kind {
	case token.Name:
		name := p.tok.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NameExpr{Pos: pos, Name: name}, nil
	case token.LParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return &ast.ParenExpr{Pos: pos, Inner: inner}, nil
	default:
		if p.tok.Kind == token.EOF {
			return nil, fmt.Errorf("%v: unexpected eof: %w", pos, token.ErrTruncated)
		}
		return nil, &Error{Pos: pos, Msg: fmt.Sprintf("unexpected %v", p.tok)}
	}
}

// suffixedExpr parses a primary expression followed by any number of
// indexing, call, and method-call suffixes.
func (p *parser) suffixedExpr() (ast.Expr, error) {
	e, err := p.primaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		pos := p.tok.Pos
		switch p.tok.Kind {
		case token.Dot:
			if err := p.advance(); err != nil {
				return nil, err
			}
			name, err := p.expect(token.Name)
			if err != nil {
				return nil, err
			}
			e = &ast.IndexExpr{Pos: pos, Obj: e, Key: &ast.StringExpr{Pos: name.Pos, Value: name.Value}}
		case token.LBracket:
			if err := p.advance(); err != nil {
				return nil, err
			}
			key, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBracket); err != nil {
				return nil, err
			}
			e = &ast.IndexExpr{Pos: pos, Obj: e, Key: key}
		case token.Colon:
			if err := p.advance(); err != nil {
				return nil, err
			}
			name, err := p.expect(token.Name)
			if err != nil {
				return nil, err
			}
			args, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			e = &ast.MethodCallExpr{Pos: pos, Recv: e, Method: name.Value, Args: args}
		case token.LParen, token.String, token.LBrace:
			args, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			e = &ast.CallExpr{Pos: pos, Func: e, Args: args}
		default:
			return e, nil
		}
	}
}

func (p *parser) callArgs() ([]ast.Expr, error) {
	switch p.tok.Kind {
	case token.String:
		pos := p.tok.Pos
		v := p.tok.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		return []ast.Expr{&ast.StringExpr{Pos: pos, Value: v}}, nil
	case token.LBrace:
		t, err := p.tableExpr()
		if err != nil {
			return nil, err
		}
		return []ast.Expr{t}, nil
	case token.LParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if ok, err := p.accept(token.RParen); err != nil {
			return nil, err
		} else if ok {
			return nil, nil
		}
		args, err := p.exprList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return args, nil
	default:
		return nil, &Error{Pos: p.tok.Pos, Msg: "function arguments expected"}
	}
}

func (p *parser) tableExpr() (ast.Expr, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	t := &ast.TableExpr{Pos: pos}
	for p.tok.Kind != token.RBrace {
		var field ast.TableField
		switch {
		case p.tok.Kind == token.LBracket:
			if err := p.advance(); err != nil {
				return nil, err
			}
			key, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBracket); err != nil {
				return nil, err
			}
			if _, err := p.expect(token.Assign); err != nil {
				return nil, err
			}
			value, err := p.expression()
			if err != nil {
				return nil, err
			}
			field = ast.TableField{Key: key, Value: value}
		case p.tok.Kind == token.Name:
			save := *p
			name := p.tok.Value
			namePos := p.tok.Pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Kind == token.Assign {
				if err := p.advance(); err != nil {
					return nil, err
				}
				value, err := p.expression()
				if err != nil {
					return nil, err
				}
				field = ast.TableField{Key: &ast.StringExpr{Pos: namePos, Value: name}, Value: value}
			} else {
				*p = save
				value, err := p.expression()
				if err != nil {
					return nil, err
				}
				field = ast.TableField{Value: value}
			}
		default:
			value, err := p.expression()
			if err != nil {
				return nil, err
			}
			field = ast.TableField{Value: value}
		}
		t.Fields = append(t.Fields, field)
		ok1, err := p.accept(token.Comma)
		if err != nil {
			return nil, err
		}
		if !ok1 {
			ok2, err := p.accept(token.Semi)
			if err != nil {
				return nil, err
			}
			if !ok2 {
				break
			}
		}
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *parser) functionBody(pos token.Position, method bool) (*ast.FunctionExpr, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	fn := &ast.FunctionExpr{Pos: pos}
	if method {
		fn.Params = append(fn.Params, "self")
	}
	if p.tok.Kind != token.RParen {
		for {
			if p.tok.Kind == token.Ellipsis {
				fn.Variadic = true
				if err := p.advance(); err != nil {
					return nil, err
				}
				break
			}
			name, err := p.expect(token.Name)
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, name.Value)
			ok, err := p.accept(token.Comma)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	if _, err := p.expect(token.End); err != nil {
		return nil, err
	}
	return fn, nil
}

// IsTruncated reports whether err indicates the input ended mid-construct
// and more text might complete it (see [token.ErrTruncated]).
func IsTruncated(err error) bool {
	return errors.Is(err, token.ErrTruncated)
}
