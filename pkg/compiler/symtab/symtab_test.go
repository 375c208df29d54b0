package symtab

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestGlobalsAndLocals(t *testing.T) {
	tab := New()

	x := tab.Declare("x")
	if !x.Global() || x.Slot != 0 {
		t.Fatalf("x = %v, want global slot 0", x)
	}
	y := tab.Declare("y")
	if y.Slot != 1 {
		t.Errorf("y slot = %d, want 1", y.Slot)
	}

	tab.EnterScope()
	a := tab.Declare("a")
	b := tab.Declare("b")
	if a.Global() || a.Slot != 0 || b.Slot != 1 || a.Depth != 1 {
		t.Errorf("locals = %v, %v", a, b)
	}

	if sym, ok := tab.Resolve("x"); !ok || sym != x {
		t.Errorf("Resolve(x) = %v, %t", sym, ok)
	}

	tab.EnterScope()
	inner := tab.Declare("a")
	if inner.Slot != 2 || inner.Depth != 2 {
		t.Errorf("shadowing a = %v, want slot 2 depth 2", inner)
	}
	if sym, _ := tab.Resolve("a"); sym != inner {
		t.Errorf("Resolve(a) = %v, want innermost", sym)
	}
	tab.ExitScope(nil)

	if sym, _ := tab.Resolve("a"); sym != a {
		t.Errorf("Resolve(a) after exit = %v, want outer", sym)
	}

	var released []string
	tab.ExitScope(func(s *Symbol) { released = append(released, s.Name) })
	if diff := cmp.Diff([]string{"b", "a"}, released); diff != "" {
		t.Errorf("release order mismatch (-want +got):\n%s", diff)
	}
	if _, ok := tab.Resolve("a"); ok {
		t.Error("a still resolvable after its scope closed")
	}
	if tab.Depth() != 0 || tab.Height() != 0 {
		t.Errorf("depth=%d height=%d, want 0/0", tab.Depth(), tab.Height())
	}
}

func TestExitScopeOnlyReleasesItsDepth(t *testing.T) {
	tab := New()
	tab.EnterScope()
	tab.Declare("outer")
	tab.EnterScope()
	// no locals at depth 2
	count := 0
	tab.ExitScope(func(*Symbol) { count++ })
	if count != 0 {
		t.Errorf("released %d locals, want 0", count)
	}
	if _, ok := tab.Resolve("outer"); !ok {
		t.Error("outer released by inner scope exit")
	}
}

func TestFrames(t *testing.T) {
	tab := New()
	tab.Declare("g")
	tab.EnterScope()
	tab.Declare("blockLocal")

	tab.EnterFrame()
	if !tab.InFrame() {
		t.Fatal("InFrame = false inside frame")
	}
	p := tab.Declare("p")
	if p.Slot != 0 {
		t.Errorf("first parameter slot = %d, want 0", p.Slot)
	}
	if _, ok := tab.Resolve("blockLocal"); ok {
		t.Error("enclosing block local visible inside function frame")
	}
	if _, ok := tab.Resolve("g"); !ok {
		t.Error("global not visible inside function frame")
	}
	if sym, ok := tab.Enclosing("blockLocal"); !ok || sym.Slot != 0 {
		t.Errorf("Enclosing(blockLocal) = %v, %t", sym, ok)
	}
	if _, ok := tab.Enclosing("p"); ok {
		t.Error("current frame local reported as enclosing")
	}
	if _, ok := tab.Enclosing("g"); ok {
		t.Error("global reported as enclosing local")
	}
	tab.EnterScope()
	tab.Declare("q")
	tab.ExitFrame()

	if tab.InFrame() || tab.Depth() != 1 || tab.Height() != 1 {
		t.Errorf("after ExitFrame: inFrame=%t depth=%d height=%d", tab.InFrame(), tab.Depth(), tab.Height())
	}
	if _, ok := tab.Resolve("blockLocal"); !ok {
		t.Error("block local lost after ExitFrame")
	}
}

func TestFunctions(t *testing.T) {
	tab := New()
	if _, ok := tab.DeclareFunction("f", 2); !ok {
		t.Fatal("first declaration rejected")
	}
	if _, ok := tab.DeclareFunction("f", 1); ok {
		t.Error("redeclaration accepted")
	}
	sym, ok := tab.Function("f")
	if !ok || sym.Kind != Function || sym.Slot != 2 {
		t.Errorf("Function(f) = %v, %t", sym, ok)
	}
	if _, ok := tab.Resolve("f"); ok {
		t.Error("functions share the variable namespace")
	}
}

// プロパティ: スコープを閉じると宣言したローカルが逆順に解放され、高さが元に戻る
func TestProperty_ScopeLIFO(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("ネストしたスコープのローカルは LIFO で解放される", prop.ForAll(
		func(counts []int) bool {
			tab := New()
			var declared [][]string
			for d, n := range counts {
				tab.EnterScope()
				var names []string
				for i := 0; i < n; i++ {
					name := string(rune('a'+d)) + string(rune('0'+i))
					sym := tab.Declare(name)
					if sym.Slot != tab.Height()-1 {
						return false
					}
					names = append(names, name)
				}
				declared = append(declared, names)
			}

			for d := len(counts) - 1; d >= 0; d-- {
				before := tab.Height()
				var released []string
				tab.ExitScope(func(s *Symbol) { released = append(released, s.Name) })
				names := declared[d]
				if len(released) != len(names) || tab.Height() != before-len(names) {
					return false
				}
				for i := range names {
					if released[i] != names[len(names)-1-i] {
						return false
					}
				}
			}
			return tab.Height() == 0 && tab.Depth() == 0
		},
		gen.SliceOfN(6, gen.IntRange(0, 5)),
	))

	properties.TestingRun(t)
}
