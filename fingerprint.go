package testrecorder

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Fingerprinter computes structural hashes of value graphs. Two graphs get the
// same fingerprint when they are equal ignoring identity; cycles are encoded
// relative to the node that opened them.
type Fingerprinter struct {
	mu       sync.RWMutex
	cache    map[Value]string // persistent: value node -> fingerprint hex
	maxDepth int              // guardrail for pathological nesting
}

// NewFingerprinter creates a new fingerprinter
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{
		cache:    make(map[Value]string, 256),
		maxDepth: 1000,
	}
}

// Fingerprint returns a deterministic hex fingerprint for v.
// Captured graphs are read-only so results are cached per node.
func (fp *Fingerprinter) Fingerprint(v Value) string {
	if v == nil {
		return "none"
	}

	fp.mu.RLock()
	if sum, ok := fp.cache[v]; ok {
		fp.mu.RUnlock()
		return sum
	}
	fp.mu.RUnlock()

	sum := sha256.Sum256(fp.Canonical(v))
	hex := fmt.Sprintf("%x", sum[:])

	fp.mu.Lock()
	fp.cache[v] = hex
	fp.mu.Unlock()

	return hex
}

// Canonical returns the canonical byte encoding of v that Fingerprint hashes.
func (fp *Fingerprinter) Canonical(v Value) []byte {
	ctx := newCanonCtx(fp.maxDepth)
	w := newCanonWriter()
	encodeValue(v, ctx, w)
	return w.Bytes()
}

// Reset clears the persistent cache
func (fp *Fingerprinter) Reset() {
	fp.mu.Lock()
	fp.cache = make(map[Value]string, 256)
	fp.mu.Unlock()
}

// canonCtx holds state for a single canonicalization traversal
type canonCtx struct {
	inProgress map[Reference]int    // cycle detection: reference -> cycle ID
	nextID     int                  // next cycle ID to assign
	localMemo  map[Reference][]byte // per-call memoization for shared subgraphs
	depth      int
	maxDepth   int
}

func newCanonCtx(maxDepth int) *canonCtx {
	return &canonCtx{
		inProgress: make(map[Reference]int, 32),
		localMemo:  make(map[Reference][]byte, 64),
		nextID:     1,
		maxDepth:   maxDepth,
	}
}

func encodeValue(v Value, ctx *canonCtx, w *canonWriter) {
	ctx.depth++
	defer func() { ctx.depth-- }()
	if ctx.depth > ctx.maxDepth {
		w.WriteString(`{"$max_depth":true}`)
		return
	}

	switch v := v.(type) {
	case nil:
		w.WriteString(`{"$none":true}`)
	case *Literal:
		w.WriteString(fmt.Sprintf(`{"lit":%q,"type":%q}`, literalText(v.Value()), v.Type().String()))
	case *Null:
		w.WriteString(fmt.Sprintf(`{"null":%q}`, v.Type().String()))
	case *Immutable:
		w.WriteString(fmt.Sprintf(`{"imm":%q,"type":%q}`, immutableText(v.Value()), v.ValueType().String()))
	case *Enum:
		w.WriteString(fmt.Sprintf(`{"enum":%q,"type":%q}`, v.Name(), v.ValueType().String()))
	case Reference:
		encodeReference(v, ctx, w)
	default:
		w.WriteString(fmt.Sprintf(`{"$unknown":%q}`, fmt.Sprintf("%T", v)))
	}
}

func encodeReference(v Reference, ctx *canonCtx, w *canonWriter) {
	if cached, ok := ctx.localMemo[v]; ok {
		w.Write(cached)
		return
	}
	if id, inProgress := ctx.inProgress[v]; inProgress {
		w.WriteString(fmt.Sprintf(`{"$cycle":%d}`, id))
		return
	}

	id := ctx.nextID
	ctx.nextID++
	ctx.inProgress[v] = id

	startPos := w.Len()
	w.WriteString(fmt.Sprintf(`{"%s":%q`, v.Variant(), v.ValueType().String()))

	switch v := v.(type) {
	case *Object:
		w.WriteString(`,"fields":{`)
		for i, f := range v.Fields() {
			if i > 0 {
				w.WriteByte(',')
			}
			w.WriteString(fmt.Sprintf("%q:", f.Name))
			encodeValue(f.Value, ctx, w)
		}
		w.WriteByte('}')
	case *List:
		w.WriteString(`,"elems":`)
		encodeSequence(v.Elements(), ctx, w)
	case *Array:
		w.WriteString(`,"elems":`)
		encodeSequence(v.Elements(), ctx, w)
	case *Set:
		w.WriteString(`,"elems":`)
		encodeUnordered(v.Elements(), ctx, w)
	case *Map:
		w.WriteString(`,"entries":`)
		encodeEntries(v.Entries(), ctx, w)
	}
	w.WriteByte('}')

	delete(ctx.inProgress, v)

	// copy: the writer buffer may be reallocated by later writes
	encoded := append([]byte(nil), w.BytesFrom(startPos)...)
	ctx.localMemo[v] = encoded
}

func encodeSequence(elems []Value, ctx *canonCtx, w *canonWriter) {
	w.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			w.WriteByte(',')
		}
		encodeValue(e, ctx, w)
	}
	w.WriteByte(']')
}

// encodeUnordered canonicalizes each element and sorts lexicographically
func encodeUnordered(elems []Value, ctx *canonCtx, w *canonWriter) {
	encoded := make([]string, 0, len(elems))
	for _, e := range elems {
		ew := newCanonWriter()
		encodeValue(e, ctx, ew)
		encoded = append(encoded, string(ew.Bytes()))
	}
	sort.Strings(encoded)

	w.WriteByte('[')
	for i, e := range encoded {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteString(e)
	}
	w.WriteByte(']')
}

func encodeEntries(entries []Entry, ctx *canonCtx, w *canonWriter) {
	pairs := make([]struct{ key, val string }, 0, len(entries))
	for _, e := range entries {
		kw, vw := newCanonWriter(), newCanonWriter()
		encodeValue(e.Key, ctx, kw)
		encodeValue(e.Value, ctx, vw)
		pairs = append(pairs, struct{ key, val string }{string(kw.Bytes()), string(vw.Bytes())})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	w.WriteByte('[')
	for i, p := range pairs {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('[')
		w.WriteString(p.key)
		w.WriteByte(',')
		w.WriteString(p.val)
		w.WriteByte(']')
	}
	w.WriteByte(']')
}

func literalText(v any) string {
	switch x := v.(type) {
	case string:
		return "s:" + x
	case float64:
		return "f:" + strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}

func immutableText(v any) string {
	switch x := v.(type) {
	case *big.Int:
		return x.String()
	case *big.Float:
		return x.Text('g', -1)
	case *big.Rat:
		return x.RatString()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case time.Duration:
		return strconv.FormatInt(int64(x), 10)
	case *Type:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

// canonWriter is a simple buffer for building canonical representations
type canonWriter struct {
	buf []byte
}

func newCanonWriter() *canonWriter {
	return &canonWriter{buf: make([]byte, 0, 256)}
}

func (w *canonWriter) Write(p []byte)       { w.buf = append(w.buf, p...) }
func (w *canonWriter) WriteByte(b byte)     { w.buf = append(w.buf, b) }
func (w *canonWriter) WriteString(s string) { w.buf = append(w.buf, s...) }
func (w *canonWriter) Bytes() []byte        { return w.buf }
func (w *canonWriter) BytesFrom(start int) []byte {
	return w.buf[start:]
}
func (w *canonWriter) Len() int { return len(w.buf) }

// Package-level default fingerprinter for convenience
var defaultFingerprinter = NewFingerprinter()

// Fingerprint is a convenience function using the default fingerprinter
func Fingerprint(v Value) string {
	return defaultFingerprinter.Fingerprint(v)
}
