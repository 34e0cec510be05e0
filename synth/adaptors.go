package synth

import (
	"errors"
	"slices"

	"github.com/speakeasy-api/testrecorder"
)

// Adaptor turns values of one variant into code. G is the generator driving
// the traversal, handed to the adaptor so it can recurse into children.
type Adaptor[G any] interface {
	// Name identifies the adaptor in configuration and in Parent references.
	Name() string
	// Variant is the value variant the adaptor claims.
	Variant() testrecorder.Variant
	// Parent names the more general adaptor this one specializes, or "".
	Parent() string
	// Matches reports whether the adaptor handles values of dynamic type t.
	Matches(t *testrecorder.Type) bool
	// TryGenerate returns an error wrapping ErrDecline when it cannot handle v
	// after all.
	TryGenerate(v testrecorder.Value, gen G, ctx *Context) (*Computation, error)
}

// Adaptors is a dispatch table of adaptors bucketed by variant. Within a
// bucket adaptors are tried front to back.
//
// Ordering policy: an adaptor without parent is appended, so among defaults
// the first registered wins. An adaptor with a parent is placed directly in
// front of its parent, behind specializations of the same parent registered
// earlier, so the first registered specialization wins. Adaptors whose
// parent is not in the bucket go to the front.
type Adaptors[G any] struct {
	buckets map[testrecorder.Variant][]Adaptor[G]
}

// NewAdaptors creates a table holding list, added in order.
func NewAdaptors[G any](list ...Adaptor[G]) *Adaptors[G] {
	a := &Adaptors[G]{buckets: make(map[testrecorder.Variant][]Adaptor[G])}
	for _, ad := range list {
		a.Add(ad)
	}
	return a
}

// Add inserts ad into the bucket of its variant.
func (a *Adaptors[G]) Add(ad Adaptor[G]) *Adaptors[G] {
	v := ad.Variant()
	bucket := a.buckets[v]
	parent := ad.Parent()

	switch {
	case len(bucket) == 0 || parent == "":
		bucket = append(bucket, ad)
	case len(bucket) == 1:
		if bucket[0].Parent() == ad.Name() {
			bucket = append(bucket, ad)
		} else {
			bucket = slices.Insert(bucket, 0, ad)
		}
	default:
		pos := 0
		for i := len(bucket) - 1; i >= 0; i-- {
			prev := bucket[i]
			if prev.Name() == parent {
				pos = i
				break
			}
			if prev.Parent() == ad.Name() {
				pos = i + 1
				break
			}
		}
		bucket = slices.Insert(bucket, pos, ad)
	}
	a.buckets[v] = bucket
	return a
}

// Remove drops the adaptors with the given names.
func (a *Adaptors[G]) Remove(names ...string) *Adaptors[G] {
	for v, bucket := range a.buckets {
		a.buckets[v] = slices.DeleteFunc(bucket, func(ad Adaptor[G]) bool {
			return slices.Contains(names, ad.Name())
		})
	}
	return a
}

// Bucket returns the adaptors for v in dispatch order.
func (a *Adaptors[G]) Bucket(v testrecorder.Variant) []Adaptor[G] {
	return slices.Clone(a.buckets[v])
}

// Select returns the first adaptor of v's bucket matching t.
func (a *Adaptors[G]) Select(v testrecorder.Variant, t *testrecorder.Type) (Adaptor[G], bool) {
	for _, ad := range a.buckets[v] {
		if ad.Matches(t) {
			return ad, true
		}
	}
	return nil, false
}

// TryGenerate dispatches v to the first matching adaptor that does not
// decline it.
func (a *Adaptors[G]) TryGenerate(v testrecorder.Value, gen G, ctx *Context) (*Computation, error) {
	t := v.ValueType()
	var declined []error
	for _, ad := range a.buckets[v.Variant()] {
		if !ad.Matches(t) {
			continue
		}
		c, err := ad.TryGenerate(v, gen, ctx)
		if errors.Is(err, ErrDecline) {
			declined = append(declined, err)
			continue
		}
		return c, err
	}
	return nil, exhausted(v, declined)
}

// Provider contributes adaptors to a table.
type Provider[G any] func() []Adaptor[G]

// Collect builds a table from providers, skipping the disabled adaptor names.
func Collect[G any](disabled []string, providers ...Provider[G]) *Adaptors[G] {
	a := NewAdaptors[G]()
	for _, p := range providers {
		for _, ad := range p() {
			if slices.Contains(disabled, ad.Name()) {
				continue
			}
			a.Add(ad)
		}
	}
	return a
}
