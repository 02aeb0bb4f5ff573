package emuera

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

//
// FunctionRegistry resolves expression calls. A registry that does not
// know a name must fail with an error matching ErrFunctionNotFound so
// the evaluator can go on to #FUNCTION labels and the store
//

type FunctionRegistry interface {
	Call(name string, args []Value, ec *ExecutionContext) (Value, error)
}

// FunctionRegistryFunc adapts a plain function to FunctionRegistry.
type FunctionRegistryFunc func(name string, args []Value, ec *ExecutionContext) (Value, error)

func (f FunctionRegistryFunc) Call(name string, args []Value, ec *ExecutionContext) (Value, error) {
	return f(name, args, ec)
}

// chainFunctions asks each registry in turn.
type chainFunctions []FunctionRegistry

func (c chainFunctions) Call(name string, args []Value, ec *ExecutionContext) (Value, error) {

	for _, r := range c {
		v, err := r.Call(name, args, ec)
		if !errors.Is(err, ErrFunctionNotFound) {
			return v, err
		}
	}
	return Null(), newError(ErrFunctionNotFound, "%s", name)
}

type builtinFunc func(b *Builtins, args []Value) (Value, error)

//
// Builtins is the default registry: math, string and conversion
// helpers plus the random source RANDOMIZE reseeds
//

type Builtins struct {
	rng   *rand.Rand
	now   func() time.Time
	table map[string]builtinFunc
}

func NewBuiltins(seed int64) *Builtins {

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Builtins{
		rng:   rand.New(rand.NewSource(seed)),
		now:   time.Now,
		table: builtinTable,
	}
}

func (b *Builtins) Seed(seed int64) {
	b.rng = rand.New(rand.NewSource(seed))
}

func (b *Builtins) Call(name string, args []Value, _ *ExecutionContext) (Value, error) {

	fn, ok := b.table[strings.ToUpper(name)]
	if !ok {
		return Null(), newError(ErrFunctionNotFound, "%s", name)
	}
	return fn(b, args)
}

// Names lists the built-in function names, sorted.
func (b *Builtins) Names() []string {

	names := make([]string, 0, len(b.table))
	for n := range b.table {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var builtinTable = map[string]builtinFunc{
	"ABS":            fnAbs,
	"SIGN":           fnSign,
	"MAX":            fnMax,
	"MIN":            fnMin,
	"LIMIT":          fnLimit,
	"POWER":          fnPower,
	"SQRT":           fnSqrt,
	"INRANGE":        fnInRange,
	"RAND":           fnRand,
	"STRLENS":        fnStrLen,
	"STRLENSU":       fnStrLen,
	"SUBSTRING":      fnSubstring,
	"STRFIND":        fnStrFind,
	"STRCOUNT":       fnStrCount,
	"REPLACE":        fnReplace,
	"TOUPPER":        fnToUpper,
	"TOLOWER":        fnToLower,
	"TOSTR":          fnToStr,
	"TOINT":          fnToInt,
	"ISNUMERIC":      fnIsNumeric,
	"UNICODE":        fnUnicode,
	"GROUPMATCH":     fnGroupMatch,
	"SPLIT":          fnSplit,
	"JOIN":           fnJoin,
	"ARRAYLEN":       fnArrayLen,
	"CHARAREF":       fnCharaRef,
	"GETTIME":        fnGetTime,
	"GETMILLISECOND": fnGetMillisecond,
}

//
// Argument helpers
//

func argCount(name string, args []Value, min, max int) error {

	if len(args) < min || (max >= 0 && len(args) > max) {
		return invalidOperation("%s takes %s arguments, got %d", name, arity(min, max), len(args))
	}
	return nil
}

func arity(min, max int) string {

	switch {
	case max < 0:
		return strconv.Itoa(min) + " or more"
	case min == max:
		return strconv.Itoa(min)
	}
	return strconv.Itoa(min) + " to " + strconv.Itoa(max)
}

func argInts(name string, args []Value, min, max int) ([]int64, error) {

	if err := argCount(name, args, min, max); err != nil {
		return nil, err
	}
	ns := make([]int64, len(args))
	for i, a := range args {
		if a.Kind() != KindInt {
			return nil, typeMismatch("%s argument %d is %s", name, i+1, a.Kind())
		}
		ns[i] = a.Int64()
	}
	return ns, nil
}

func argStr(name string, args []Value, i int) (string, error) {

	if args[i].Kind() != KindString {
		return "", typeMismatch("%s argument %d is %s", name, i+1, args[i].Kind())
	}
	return args[i].Text(), nil
}

func argInt(name string, args []Value, i int) (int64, error) {

	if args[i].Kind() != KindInt {
		return 0, typeMismatch("%s argument %d is %s", name, i+1, args[i].Kind())
	}
	return args[i].Int64(), nil
}

//
// Math
//

func fnAbs(_ *Builtins, args []Value) (Value, error) {

	ns, err := argInts("ABS", args, 1, 1)
	if err != nil {
		return Null(), err
	}
	if ns[0] < 0 {
		return Int(-ns[0]), nil
	}
	return Int(ns[0]), nil
}

func fnSign(_ *Builtins, args []Value) (Value, error) {

	ns, err := argInts("SIGN", args, 1, 1)
	if err != nil {
		return Null(), err
	}
	switch {
	case ns[0] > 0:
		return Int(1), nil
	case ns[0] < 0:
		return Int(-1), nil
	}
	return Int(0), nil
}

func fnMax(_ *Builtins, args []Value) (Value, error) {

	ns, err := argInts("MAX", args, 1, -1)
	if err != nil {
		return Null(), err
	}
	m := ns[0]
	for _, n := range ns[1:] {
		if n > m {
			m = n
		}
	}
	return Int(m), nil
}

func fnMin(_ *Builtins, args []Value) (Value, error) {

	ns, err := argInts("MIN", args, 1, -1)
	if err != nil {
		return Null(), err
	}
	m := ns[0]
	for _, n := range ns[1:] {
		if n < m {
			m = n
		}
	}
	return Int(m), nil
}

// LIMIT(v, lo, hi) clamps v into [lo, hi].
func fnLimit(_ *Builtins, args []Value) (Value, error) {

	ns, err := argInts("LIMIT", args, 3, 3)
	if err != nil {
		return Null(), err
	}
	v, lo, hi := ns[0], ns[1], ns[2]
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return Int(v), nil
}

func fnPower(_ *Builtins, args []Value) (Value, error) {

	ns, err := argInts("POWER", args, 2, 2)
	if err != nil {
		return Null(), err
	}
	return Int(int64(math.Pow(float64(ns[0]), float64(ns[1])))), nil
}

func fnSqrt(_ *Builtins, args []Value) (Value, error) {

	ns, err := argInts("SQRT", args, 1, 1)
	if err != nil {
		return Null(), err
	}
	if ns[0] < 0 {
		return Null(), invalidOperation("SQRT of negative value %d", ns[0])
	}
	return Int(int64(math.Sqrt(float64(ns[0])))), nil
}

// INRANGE(v, lo, hi) is 1 when lo <= v <= hi.
func fnInRange(_ *Builtins, args []Value) (Value, error) {

	ns, err := argInts("INRANGE", args, 3, 3)
	if err != nil {
		return Null(), err
	}
	return Bool(ns[0] >= ns[1] && ns[0] <= ns[2]), nil
}

//
// RAND(max) yields 0..max-1; RAND(min, max) yields min..max-1
//

func fnRand(b *Builtins, args []Value) (Value, error) {

	ns, err := argInts("RAND", args, 1, 2)
	if err != nil {
		return Null(), err
	}
	lo, hi := int64(0), ns[0]
	if len(ns) == 2 {
		lo, hi = ns[0], ns[1]
	}
	if hi <= lo {
		return Null(), invalidOperation("RAND range %d..%d is empty", lo, hi-1)
	}
	return Int(lo + b.rng.Int63n(hi-lo)), nil
}

//
// Strings. Positions and lengths count characters, not bytes
//

func fnStrLen(_ *Builtins, args []Value) (Value, error) {

	if err := argCount("STRLENS", args, 1, 1); err != nil {
		return Null(), err
	}
	s, err := argStr("STRLENS", args, 0)
	if err != nil {
		return Null(), err
	}
	return Int(int64(utf8.RuneCountInString(s))), nil
}

// SUBSTRING(s, start[, length]); a negative length runs to the end.
func fnSubstring(_ *Builtins, args []Value) (Value, error) {

	if err := argCount("SUBSTRING", args, 2, 3); err != nil {
		return Null(), err
	}
	s, err := argStr("SUBSTRING", args, 0)
	if err != nil {
		return Null(), err
	}
	start, err := argInt("SUBSTRING", args, 1)
	if err != nil {
		return Null(), err
	}
	length := int64(-1)
	if len(args) == 3 {
		if length, err = argInt("SUBSTRING", args, 2); err != nil {
			return Null(), err
		}
	}

	rs := []rune(s)
	if start < 0 {
		start = 0
	}
	if start >= int64(len(rs)) {
		return Str(""), nil
	}
	end := int64(len(rs))
	if length >= 0 && start+length < end {
		end = start + length
	}
	return Str(string(rs[start:end])), nil
}

// STRFIND(s, sub) is the character index of sub in s, or -1.
func fnStrFind(_ *Builtins, args []Value) (Value, error) {

	if err := argCount("STRFIND", args, 2, 2); err != nil {
		return Null(), err
	}
	s, err := argStr("STRFIND", args, 0)
	if err != nil {
		return Null(), err
	}
	sub, err := argStr("STRFIND", args, 1)
	if err != nil {
		return Null(), err
	}
	i := strings.Index(s, sub)
	if i < 0 {
		return Int(-1), nil
	}
	return Int(int64(utf8.RuneCountInString(s[:i]))), nil
}

func fnStrCount(_ *Builtins, args []Value) (Value, error) {

	if err := argCount("STRCOUNT", args, 2, 2); err != nil {
		return Null(), err
	}
	s, err := argStr("STRCOUNT", args, 0)
	if err != nil {
		return Null(), err
	}
	sub, err := argStr("STRCOUNT", args, 1)
	if err != nil {
		return Null(), err
	}
	if sub == "" {
		return Int(0), nil
	}
	return Int(int64(strings.Count(s, sub))), nil
}

func fnReplace(_ *Builtins, args []Value) (Value, error) {

	if err := argCount("REPLACE", args, 3, 3); err != nil {
		return Null(), err
	}
	var parts [3]string
	for i := range parts {
		s, err := argStr("REPLACE", args, i)
		if err != nil {
			return Null(), err
		}
		parts[i] = s
	}
	return Str(strings.ReplaceAll(parts[0], parts[1], parts[2])), nil
}

func fnToUpper(_ *Builtins, args []Value) (Value, error) {

	if err := argCount("TOUPPER", args, 1, 1); err != nil {
		return Null(), err
	}
	s, err := argStr("TOUPPER", args, 0)
	if err != nil {
		return Null(), err
	}
	return Str(strings.ToUpper(s)), nil
}

func fnToLower(_ *Builtins, args []Value) (Value, error) {

	if err := argCount("TOLOWER", args, 1, 1); err != nil {
		return Null(), err
	}
	s, err := argStr("TOLOWER", args, 0)
	if err != nil {
		return Null(), err
	}
	return Str(strings.ToLower(s)), nil
}

//
// TOSTR(n[, width]) renders n in decimal, zero padded to width
//

func fnToStr(_ *Builtins, args []Value) (Value, error) {

	ns, err := argInts("TOSTR", args, 1, 2)
	if err != nil {
		return Null(), err
	}
	s := strconv.FormatInt(ns[0], 10)
	if len(ns) == 2 {
		neg := strings.HasPrefix(s, "-")
		digits := strings.TrimPrefix(s, "-")
		for int64(len(digits)) < ns[1] {
			digits = "0" + digits
		}
		if neg {
			digits = "-" + digits
		}
		s = digits
	}
	return Str(s), nil
}

// TOINT parses a decimal string; anything else yields 0.
func fnToInt(_ *Builtins, args []Value) (Value, error) {

	if err := argCount("TOINT", args, 1, 1); err != nil {
		return Null(), err
	}
	if args[0].Kind() == KindInt {
		return args[0], nil
	}
	s, err := argStr("TOINT", args, 0)
	if err != nil {
		return Null(), err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return Int(0), nil
	}
	return Int(n), nil
}

func fnIsNumeric(_ *Builtins, args []Value) (Value, error) {

	if err := argCount("ISNUMERIC", args, 1, 1); err != nil {
		return Null(), err
	}
	s, err := argStr("ISNUMERIC", args, 0)
	if err != nil {
		return Null(), err
	}
	_, perr := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return Bool(perr == nil), nil
}

func fnUnicode(_ *Builtins, args []Value) (Value, error) {

	ns, err := argInts("UNICODE", args, 1, 1)
	if err != nil {
		return Null(), err
	}
	if ns[0] < 0 || ns[0] > utf8.MaxRune {
		return Null(), invalidOperation("UNICODE code point %d out of range", ns[0])
	}
	return Str(string(rune(ns[0]))), nil
}

//
// GROUPMATCH(v, a, b, ...) counts the candidates equal to v
//

func fnGroupMatch(_ *Builtins, args []Value) (Value, error) {

	if err := argCount("GROUPMATCH", args, 1, -1); err != nil {
		return Null(), err
	}
	n := int64(0)
	for _, a := range args[1:] {
		if a.Kind() != args[0].Kind() {
			continue
		}
		if eq, err := Equal(args[0], a); err == nil && eq {
			n++
		}
	}
	return Int(n), nil
}

//
// Arrays
//

func fnSplit(_ *Builtins, args []Value) (Value, error) {

	if err := argCount("SPLIT", args, 1, 2); err != nil {
		return Null(), err
	}
	s, err := argStr("SPLIT", args, 0)
	if err != nil {
		return Null(), err
	}
	sep := ","
	if len(args) == 2 {
		if sep, err = argStr("SPLIT", args, 1); err != nil {
			return Null(), err
		}
	}
	parts := strings.Split(s, sep)
	items := make([]Value, len(parts))
	for i, p := range parts {
		items[i] = Str(p)
	}
	return Array(items...), nil
}

func fnJoin(_ *Builtins, args []Value) (Value, error) {

	if err := argCount("JOIN", args, 1, 2); err != nil {
		return Null(), err
	}
	if args[0].Kind() != KindArray {
		return Null(), typeMismatch("JOIN argument 1 is %s", args[0].Kind())
	}
	sep := ","
	if len(args) == 2 {
		s, err := argStr("JOIN", args, 1)
		if err != nil {
			return Null(), err
		}
		sep = s
	}
	items := args[0].Items()
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return Str(strings.Join(parts, sep)), nil
}

func fnArrayLen(_ *Builtins, args []Value) (Value, error) {

	if err := argCount("ARRAYLEN", args, 1, 1); err != nil {
		return Null(), err
	}
	if args[0].Kind() != KindArray {
		return Null(), typeMismatch("ARRAYLEN argument 1 is %s", args[0].Kind())
	}
	return Int(int64(args[0].Len())), nil
}

func fnCharaRef(_ *Builtins, args []Value) (Value, error) {

	ns, err := argInts("CHARAREF", args, 1, 1)
	if err != nil {
		return Null(), err
	}
	return Chara(ns[0]), nil
}

//
// Clock. GETTIME is YYYYMMDDhhmmssmmm in local time
//

func fnGetTime(b *Builtins, args []Value) (Value, error) {

	if err := argCount("GETTIME", args, 0, 0); err != nil {
		return Null(), err
	}
	t := b.now()
	n, _ := strconv.ParseInt(t.Format("20060102150405")+leftPad(t.Nanosecond()/int(time.Millisecond), 3), 10, 64)
	return Int(n), nil
}

func fnGetMillisecond(b *Builtins, args []Value) (Value, error) {

	if err := argCount("GETMILLISECOND", args, 0, 0); err != nil {
		return Null(), err
	}
	return Int(b.now().UnixMilli()), nil
}
