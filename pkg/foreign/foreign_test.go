package foreign_test

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"testing"

	"go.starlark.net/starlark"

	"github.com/haivivi/starside/pkg/foreign"
	"github.com/haivivi/starside/pkg/value"
)

func TestGILReentrant(t *testing.T) {
	var g foreign.GIL
	g.Ensure()
	g.Ensure()
	if !g.Held() {
		t.Fatal("GIL should be held")
	}
	g.Release()
	if !g.Held() {
		t.Fatal("GIL should still be held after one Release")
	}
	g.Release()
	if g.Held() {
		t.Fatal("GIL should be free")
	}
}

func TestGILReleaseByNonOwnerPanics(t *testing.T) {
	var g foreign.GIL
	g.Ensure()
	defer g.Release()

	done := make(chan any)
	go func() {
		defer func() { done <- recover() }()
		g.Release()
	}()
	if r := <-done; r == nil {
		t.Fatal("Release from another goroutine should panic")
	}
}

func TestGILSaveRestore(t *testing.T) {
	var g foreign.GIL
	g.Ensure()
	g.Ensure()

	depth := g.Save()
	if depth != 2 || g.Held() {
		t.Fatalf("Save() = %d, held = %v", depth, g.Held())
	}

	acquired := make(chan struct{})
	go func() {
		g.Do(func() {})
		close(acquired)
	}()
	<-acquired

	g.Restore(depth)
	g.Release()
	g.Release()
	if g.Held() {
		t.Fatal("GIL should be free")
	}
}

func TestGILSerializes(t *testing.T) {
	var g foreign.GIL
	counter := 0
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				g.Do(func() { counter++ })
			}
		}()
	}
	wg.Wait()
	if counter != 8000 {
		t.Fatalf("counter = %d, want 8000", counter)
	}
}

func TestRefCountOnAssign(t *testing.T) {
	rt := foreign.NewRuntime()
	obj1 := starlark.NewList(nil)
	obj2 := starlark.NewDict(0)

	owner1 := rt.NewRef(obj1)
	owner2 := rt.NewRef(obj2)
	t.Cleanup(func() {
		owner1.Release()
		owner2.Release()
	})

	a := owner1.Clone().(*foreign.Ref)
	b := owner2.Clone().(*foreign.Ref)
	if got := rt.RefCount(obj2); got != 2 {
		t.Fatalf("obj2 refs = %d, want 2", got)
	}

	b.Assign(a)
	if got := rt.RefCount(obj1); got != 3 {
		t.Fatalf("obj1 refs = %d, want 3", got)
	}
	if got := rt.RefCount(obj2); got != 1 {
		t.Fatalf("obj2 refs = %d, want 1", got)
	}
	if !b.Same(a) {
		t.Fatal("b should refer to obj1 after Assign")
	}

	a.Release()
	b.Release()
	if got := rt.RefCount(obj1); got != 1 {
		t.Fatalf("obj1 refs after release = %d, want 1", got)
	}

	b.Release()
	if got := rt.RefCount(obj1); got != 1 {
		t.Fatalf("double Release changed count to %d", got)
	}
}

func TestReleasedRefPanics(t *testing.T) {
	rt := foreign.NewRuntime()
	r := rt.NewRef(starlark.NewList(nil))
	r.Release()
	defer func() {
		if recover() == nil {
			t.Fatal("Value on a released Ref should panic")
		}
	}()
	r.Value()
}

func TestRoundTripScalars(t *testing.T) {
	rt := foreign.NewRuntime()
	tests := []value.Value{
		value.Int(math.MaxInt64),
		value.Int(math.MinInt64),
		value.Float(math.Copysign(0, -1)),
		value.Float(1e308),
		value.Bool(true),
		value.Str("ünïcødé ✓"),
		value.DateOf(value.Date{Year: 2024, Month: 2, Day: 29}),
		value.TimeOf(value.Time{Hour: 1, Minute: 2, Second: 3, Millisecond: 4}),
		value.DateTimeOf(value.DateTime{
			Date: value.Date{Year: 1999, Month: 12, Day: 31},
			Time: value.Time{Hour: 23, Minute: 59, Second: 59, Millisecond: 999},
		}),
		value.List(value.Int(3), value.Str("b"), value.List(value.None())),
		value.Dict(map[string]value.Value{"k": value.Float(0.25)}),
	}
	rt.GIL().Ensure()
	defer rt.GIL().Release()
	for _, v := range tests {
		got := rt.ToHost(rt.FromHost(v))
		if !got.Equal(v) {
			t.Errorf("round trip of %v = %v", v, got)
		}
	}
}

func TestClassify(t *testing.T) {
	rt := foreign.NewRuntime()
	conv := rt.Converter()

	set := starlark.NewSet(2)
	_ = set.Insert(starlark.MakeInt(1))
	_ = set.Insert(starlark.MakeInt(2))
	huge := starlark.MakeBigInt(new(big.Int).Lsh(big.NewInt(1), 80))
	fn := starlark.NewBuiltin("f", func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
		return starlark.None, nil
	})

	tests := []struct {
		name string
		v    starlark.Value
		want value.Tag
	}{
		{"none", starlark.None, value.TagNone},
		{"bool", starlark.True, value.TagBoolean},
		{"int", starlark.MakeInt(5), value.TagInteger},
		{"big int", huge, value.TagForeign},
		{"float", starlark.Float(1.5), value.TagFloating},
		{"string", starlark.String("s"), value.TagString},
		{"bytes", starlark.Bytes("b"), value.TagString},
		{"list", starlark.NewList(nil), value.TagList},
		{"tuple", starlark.Tuple{starlark.None}, value.TagList},
		{"set", set, value.TagList},
		{"dict", starlark.NewDict(0), value.TagDict},
		{"builtin", fn, value.TagForeign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := conv.Classify(tt.v); got != tt.want {
				t.Fatalf("Classify(%s) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}

	rt.GIL().Ensure()
	defer rt.GIL().Release()
	got := rt.ToHost(set)
	if !got.Equal(value.List(value.Int(1), value.Int(2))) {
		t.Fatalf("set converts to %v", got)
	}
}

func TestForeignHandleRoundTrip(t *testing.T) {
	rt := foreign.NewRuntime()
	fn := starlark.NewBuiltin("f", func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
		return starlark.None, nil
	})

	rt.GIL().Ensure()
	defer rt.GIL().Release()

	host := rt.ToHost(fn)
	if host.Tag() != value.TagForeign || rt.RefCount(fn) != 1 {
		t.Fatalf("ToHost = %v, refs = %d", host, rt.RefCount(fn))
	}

	back := rt.FromHost(host)
	if back != starlark.Value(fn) {
		t.Fatal("round trip should return the original object")
	}
	if got := rt.RefCount(fn); got != 1 {
		t.Fatalf("refs after FromHost = %d, want 1", got)
	}

	host.Release()
	if got := rt.RefCount(fn); got != 0 || rt.Live() != 0 {
		t.Fatalf("refs after release = %d, live = %d", got, rt.Live())
	}
}

func TestDictKeysStringified(t *testing.T) {
	rt := foreign.NewRuntime()
	d := starlark.NewDict(2)
	_ = d.SetKey(starlark.MakeInt(1), starlark.String("one"))
	_ = d.SetKey(starlark.Tuple{starlark.MakeInt(1), starlark.MakeInt(2)}, starlark.True)

	rt.GIL().Ensure()
	defer rt.GIL().Release()
	got := rt.ToHost(d)
	want := value.Dict(map[string]value.Value{
		"1":      value.Str("one"),
		"(1, 2)": value.Bool(true),
	})
	if !got.Equal(want) {
		t.Fatalf("ToHost = %v, want %v", got, want)
	}
}

func TestCyclicContainersConvertToNone(t *testing.T) {
	rt := foreign.NewRuntime()

	l := starlark.NewList(nil)
	_ = l.Append(l)
	_ = l.Append(l)

	d := starlark.NewDict(2)
	_ = d.SetKey(starlark.String("a"), d)
	_ = d.SetKey(starlark.String("b"), d)

	shared := starlark.NewList([]starlark.Value{starlark.MakeInt(1)})
	twice := starlark.NewList([]starlark.Value{shared, shared})

	tests := []struct {
		name string
		v    starlark.Value
		want value.Value
	}{
		{"list", l, value.List(value.None(), value.None())},
		{"dict", d, value.Dict(map[string]value.Value{"a": value.None(), "b": value.None()})},
		{"shared child", twice, value.List(value.List(value.Int(1)), value.List(value.Int(1)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt.GIL().Ensure()
			defer rt.GIL().Release()
			if got := rt.ToHost(tt.v); !got.Equal(tt.want) {
				t.Fatalf("ToHost = %v, want %v", got, tt.want)
			}
		})
	}
}

func newWindow() *value.Object {
	return value.NewObject("window").
		DefineProperty("title", value.Str("main")).
		DefineProperty("width", value.Int(640)).
		DefineMethod("resize", func(args []value.Value) (value.Value, error) {
			return value.Int(args[0].Int() * args[1].Int()), nil
		})
}

func eval(t *testing.T, rt *foreign.Runtime, src string, env starlark.StringDict) (starlark.Value, error) {
	t.Helper()
	rt.GIL().Ensure()
	defer rt.GIL().Release()
	thread := &starlark.Thread{Name: t.Name()}
	return starlark.Eval(thread, "test.star", src, env)
}

func TestHostObjectInScripts(t *testing.T) {
	rt := foreign.NewRuntime()
	win := newWindow()
	env := starlark.StringDict{
		"win": foreign.NewHostObject(rt, value.NewHostObjectRef(win)),
	}

	got, err := eval(t, rt, `win.title + ":" + str(win.width)`, env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got != starlark.String("main:640") {
		t.Fatalf("got %v", got)
	}

	got, err = eval(t, rt, `win.resize(3, 4)`, env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got.String() != "12" {
		t.Fatalf("resize = %v", got)
	}

	if _, err := eval(t, rt, `win.resize(1, b=2)`, env); err == nil || !strings.Contains(err.Error(), "keyword arguments") {
		t.Fatalf("kwargs err = %v", err)
	}
	if _, err := eval(t, rt, `win.missing`, env); err == nil || !strings.Contains(err.Error(), "not a valid attribute") {
		t.Fatalf("missing attribute err = %v", err)
	}

	win.Destroy()
	if _, err := eval(t, rt, `win.title`, env); err == nil || !strings.Contains(err.Error(), "destroyed") {
		t.Fatalf("destroyed err = %v", err)
	}
}

func TestHostMethodResultReleased(t *testing.T) {
	rt := foreign.NewRuntime()
	obj := value.NewObject("echo").DefineMethod("echo", func(args []value.Value) (value.Value, error) {
		return value.Foreign(args[0].ForeignHandle().Clone()), nil
	})
	env := starlark.StringDict{
		"obj": foreign.NewHostObject(rt, value.NewHostObjectRef(obj)),
		"fn":  starlark.NewBuiltin("fn", func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) { return starlark.None, nil }),
	}

	got, err := eval(t, rt, `obj.echo(fn) == fn`, env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got != starlark.True {
		t.Fatalf("echo(fn) == fn is %v", got)
	}
	if live := rt.Live(); live != 0 {
		t.Fatalf("live refs after call = %d, want 0", live)
	}
}

func TestHostObjectSetField(t *testing.T) {
	rt := foreign.NewRuntime()
	win := newWindow()
	obj := foreign.NewHostObject(rt, value.NewHostObjectRef(win))

	rt.GIL().Ensure()
	defer rt.GIL().Release()
	if err := obj.SetField("title", starlark.String("renamed")); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if v, _ := win.Property("title"); v.Str() != "renamed" {
		t.Fatalf("title = %v", v)
	}
	if err := obj.SetField("nope", starlark.None); err == nil {
		t.Fatal("SetField on an unknown property should fail")
	}
	if rt.Converter().Classify(obj) != value.TagHost {
		t.Fatal("host object should classify as host")
	}
}

func TestDateTimeValues(t *testing.T) {
	rt := foreign.NewRuntime()
	env := starlark.StringDict{
		"a": foreign.Date{Date: value.Date{Year: 2020, Month: 5, Day: 1}},
		"b": foreign.Date{Date: value.Date{Year: 2020, Month: 5, Day: 2}},
		"dt": foreign.DateTime{DateTime: value.DateTime{
			Date: value.Date{Year: 2020, Month: 5, Day: 1},
			Time: value.Time{Hour: 9, Minute: 30},
		}},
	}
	got, err := eval(t, rt, `(a < b, dt.hour, dt.date() == a, dt.isoformat())`, env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	want := "(True, 9, True, \"2020-05-01T09:30:00.000\")"
	if got.String() != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}
