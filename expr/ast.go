// Package expr contains the restricted filter language used for predicate pushdown. A predicate is parsed
// into a small typed expression tree; the only callable names are the date, time and duration helpers in
// functions.go, which are folded into literals at parse time.
//
//nolint:govet
package expr

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/alecthomas/participle/v2/lexer/stateful"
)

var (
	lex = stateful.MustSimple([]stateful.Rule{
		{`Ident`, "((?i)[a-zA-Z_][a-zA-Z_0-9]*)|`[^`]*`", nil},
		{`Number`, `[-+]?\d*\.?\d+([eE][-+]?\d+)?`, nil},
		{`String`, `'[^']*'|"[^"]*"`, nil},
		{`Op`, `==|!=|<>|<=|>=|=|<|>`, nil},
		{`Punct`, `[(),]`, nil},
		{`Whitespace`, `\s+`, nil},
	})
	predicateParser = participle.MustBuild(&predicateAST{},
		participle.Lexer(lex),
		participle.CaseInsensitive("Ident"),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
)

type predicateAST struct {
	Or *orAST `@@`
}

type orAST struct {
	And []*andAST `@@ ( "OR" @@ )*`
}

type andAST struct {
	Not []*notAST `@@ ( "AND" @@ )*`
}

type notAST struct {
	Not *notAST `(  "NOT" @@`
	Cmp *cmpAST ` | @@ )`
}

type cmpAST struct {
	Pos lexer.Position

	Left  *operandAST  `@@`
	Op    string       `( @Op`
	Right *operandAST  `  @@`
	Null  *nullTestAST `| @@`
	In    *inListAST   `| @@ )?`
}

type nullTestAST struct {
	Not bool `"IS" @"NOT"? "NULL"`
}

type inListAST struct {
	Not    bool          `@"NOT"? "IN" "("`
	Values []*literalAST `@@ ( "," @@ )* ")"`
}

type operandAST struct {
	Literal *literalAST `  @@`
	Call    *callAST    `| @@`
	Column  *string     `| @Ident`
	Sub     *orAST      `| "(" @@ ")"`
}

type literalAST struct {
	Pos lexer.Position

	Number *string `  @Number`
	String *string `| @String`
	True   bool    `| @"TRUE"`
	False  bool    `| @"FALSE"`
	Null   bool    `| @"NULL"`
}

type callAST struct {
	Pos lexer.Position

	Name string        `@Ident "("`
	Args []*literalAST `( @@ ( "," @@ )* )? ")"`
}
