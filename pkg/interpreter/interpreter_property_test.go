package interpreter

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/tinyscript/pkg/compiler/lexer"
	"github.com/zurustar/tinyscript/pkg/compiler/parser"
	"github.com/zurustar/tinyscript/pkg/value"
)

// evalSource はソースを評価して出力を返す
func evalSource(source string) (string, error) {
	program, err := parser.New(lexer.New(source)).ParseProgram()
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if _, err := New(WithOutput(&out)).Run(program); err != nil {
		return out.String(), err
	}
	return out.String(), nil
}

// プロパティ: 整数同士の四則演算と剰余は Go で計算した値と一致する
func TestProperty_IntegerArithmetic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("a op b の出力は Go の計算結果と一致する", prop.ForAll(
		func(a, b int) (bool, error) {
			if b == 0 {
				b = 1
			}
			source := fmt.Sprintf("a := %d\nb := %d\nprintln a + b\nprintln a - b\nprintln a * b\nprintln a %% b", a, b)
			got, err := evalSource(source)
			if err != nil {
				return false, err
			}
			fa, fb := float64(a), float64(b)
			want := strings.Join([]string{
				value.FormatNumber(fa + fb),
				value.FormatNumber(fa - fb),
				value.FormatNumber(fa * fb),
				value.FormatNumber(value.FlooredMod(fa, fb)),
			}, "\n") + "\n"
			if got != want {
				return false, fmt.Errorf("got %q, want %q", got, want)
			}
			return true, nil
		},
		gen.IntRange(-1000, 1000),
		gen.IntRange(-50, 50),
	))

	properties.TestingRun(t)
}

// プロパティ: 既存の変数への代入は、どれだけ深いブロックの中からでも
// その変数を書き換え、ブロック内で新しく作った変数は外に漏れない
func TestProperty_MutateNearest(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("ネストした if の中の代入は外側の変数を書き換える", prop.ForAll(
		func(depth, v int) (bool, error) {
			var sb strings.Builder
			sb.WriteString("x := -1\n")
			for i := 0; i < depth; i++ {
				sb.WriteString("if true then\n")
			}
			fmt.Fprintf(&sb, "x := %d\nfresh := 1\n", v)
			for i := 0; i < depth; i++ {
				sb.WriteString("end\n")
			}
			sb.WriteString("println x\n")

			got, err := evalSource(sb.String())
			if err != nil {
				return false, err
			}
			if got != fmt.Sprintf("%d\n", v) {
				return false, fmt.Errorf("got %q", got)
			}

			// fresh はトップレベルから見えない（depth 0 ならグローバル）
			_, err = evalSource(sb.String() + "println fresh\n")
			return (depth == 0) == (err == nil), nil
		},
		gen.IntRange(0, 6),
		gen.IntRange(-100, 100),
	))

	properties.TestingRun(t)
}

// プロパティ: for ループの反復回数は半開区間 [start, end) を step で割った回数になる
func TestProperty_ForIterationCount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("for の反復回数は range と同じ", prop.ForAll(
		func(start, end, step int) (bool, error) {
			if step == 0 {
				step = 1
			}
			source := fmt.Sprintf("n := 0\nfor i := %d, %d, %d do n := n + 1 end\nprintln n", start, end, step)
			got, err := evalSource(source)
			if err != nil {
				return false, err
			}

			want := 0
			for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
				want++
			}
			return got == fmt.Sprintf("%d\n", want), nil
		},
		gen.IntRange(-20, 20),
		gen.IntRange(-20, 20),
		gen.IntRange(-5, 5),
	))

	properties.TestingRun(t)
}
