package value

import (
	"math"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// プロパティ: 数値同士の算術は float64 の演算と一致する
func TestProperty_NumericArithmetic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("Number + Number は加算になる", prop.ForAll(
		func(a, b float64) bool {
			v, err := Binary(Add, Number(a), Number(b))
			return err == nil && v.IsNumber() && v.AsNumber() == a+b
		},
		gen.Float64Range(-1e9, 1e9),
		gen.Float64Range(-1e9, 1e9),
	))

	properties.Property("比較演算は常に Bool を返す", prop.ForAll(
		func(a, b float64) bool {
			for _, op := range []Op{Lt, Gt, Le, Ge, Eq, Ne} {
				v, err := Binary(op, Number(a), Number(b))
				if err != nil || !v.IsBool() {
					return false
				}
			}
			return true
		},
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	// 剰余の結果は除数と同じ符号を持ち、絶対値は除数より小さい
	properties.Property("% は床除算の剰余", prop.ForAll(
		func(a, b int) bool {
			if b == 0 {
				return true
			}
			v, err := Binary(Mod, Number(float64(a)), Number(float64(b)))
			if err != nil {
				return false
			}
			m := v.AsNumber()
			if m != 0 && (m < 0) != (b < 0) {
				return false
			}
			if math.Abs(m) >= math.Abs(float64(b)) {
				return false
			}
			// a = b*q + m となる整数 q が存在する
			q := (float64(a) - m) / float64(b)
			return q == math.Trunc(q)
		},
		gen.IntRange(-10000, 10000),
		gen.IntRange(-100, 100),
	))

	properties.TestingRun(t)
}

// プロパティ: 文字列が関わる演算の強制変換
func TestProperty_StringCoercion(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("String + Number は数値の10進表記と連結される", prop.ForAll(
		func(s string, n int) bool {
			v, err := Binary(Add, String(s), Number(float64(n)))
			if err != nil || !v.IsString() {
				return false
			}
			return v.AsString() == s+FormatNumber(float64(n)) && !strings.Contains(FormatNumber(float64(n)), ".")
		},
		gen.AlphaString(),
		gen.IntRange(-100000, 100000),
	))

	properties.Property("String * 整数 は繰り返しになる", prop.ForAll(
		func(s string, n int) bool {
			v, err := Binary(Mul, String(s), Number(float64(n)))
			if err != nil {
				return false
			}
			return v.AsString() == strings.Repeat(s, n)
		},
		gen.AlphaString(),
		gen.IntRange(0, 20),
	))

	properties.Property("型が異なる == は false、~= は true", prop.ForAll(
		func(s string, n float64) bool {
			eq, err1 := Binary(Eq, String(s), Number(n))
			ne, err2 := Binary(Ne, Number(n), String(s))
			return err1 == nil && err2 == nil && !eq.AsBool() && ne.AsBool()
		},
		gen.AlphaString(),
		gen.Float64(),
	))

	properties.Property("バックスラッシュを含まない文字列はエスケープ復号で変化しない", prop.ForAll(
		func(s string) bool {
			return Unescape(s) == s
		},
		gen.AnyString().SuchThat(func(s string) bool { return !strings.Contains(s, `\`) }),
	))

	properties.TestingRun(t)
}
