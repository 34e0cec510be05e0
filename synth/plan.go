package synth

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/speakeasy-api/testrecorder"
)

// Purpose tells where a fragment goes in the generated test.
type Purpose string

const (
	PurposeReceiver      Purpose = "receiver"
	PurposeArgument      Purpose = "argument"
	PurposeGlobal        Purpose = "global"
	PurposeResult        Purpose = "result"
	PurposeError         Purpose = "error"
	PurposeReceiverAfter Purpose = "receiver-after"
	PurposeArgumentAfter Purpose = "argument-after"
	PurposeGlobalAfter   Purpose = "global-after"
)

// Fragment is the code for one part of a test. Arrange fragments evaluate to
// the value, assert fragments to a matcher.
type Fragment struct {
	Purpose    Purpose
	Name       string
	Statements []string
	Expression string
	Type       string
}

// TestPlan is the generated code for one snapshot.
type TestPlan struct {
	Method  testrecorder.MethodID
	RunID   string
	Arrange []Fragment
	Assert  []Fragment
	Imports []Import
	Files   []DataFile
}

var (
	providersMu      sync.Mutex
	setupProviders   = []Provider[*SetupGenerator]{DefaultSetupAdaptors}
	matcherProviders = []Provider[*MatcherGenerator]{DefaultMatcherAdaptors}
)

// RegisterSetupProvider adds construction adaptors to every Synthesizer
// created afterwards.
func RegisterSetupProvider(p Provider[*SetupGenerator]) {
	providersMu.Lock()
	defer providersMu.Unlock()
	setupProviders = append(setupProviders, p)
}

// RegisterMatcherProvider adds matcher adaptors to every Synthesizer created
// afterwards.
func RegisterMatcherProvider(p Provider[*MatcherGenerator]) {
	providersMu.Lock()
	defer providersMu.Unlock()
	matcherProviders = append(matcherProviders, p)
}

// Synthesizer turns snapshots into test plans. The adaptor tables are fixed
// at creation; PlanSnapshot does not modify them.
type Synthesizer struct {
	opts     Options
	log      Logger
	setup    *Adaptors[*SetupGenerator]
	matchers *Adaptors[*MatcherGenerator]
}

// New creates a synthesizer from the registered providers, leaving out the
// adaptors named in opts.Disabled.
func New(opts Options) *Synthesizer {
	providersMu.Lock()
	setup := Collect(opts.Disabled, setupProviders...)
	matchers := Collect(opts.Disabled, matcherProviders...)
	providersMu.Unlock()

	return &Synthesizer{
		opts:     opts,
		log:      opts.logger(),
		setup:    setup,
		matchers: matchers,
	}
}

// SetupAdaptors returns the construction adaptor table.
func (s *Synthesizer) SetupAdaptors() *Adaptors[*SetupGenerator] { return s.setup }

// MatcherAdaptors returns the matcher adaptor table.
func (s *Synthesizer) MatcherAdaptors() *Adaptors[*MatcherGenerator] { return s.matchers }

// PlanSnapshot generates the arrange code for the receiver, arguments and
// globals of snap, and the assertions on its result or error and on the
// state after the call. Both runs share one set of imports.
func (s *Synthesizer) PlanSnapshot(snap *testrecorder.Snapshot) (*TestPlan, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	plan := &TestPlan{Method: snap.Method, RunID: uuid.NewString()}
	log := s.log.With(map[string]any{"run": plan.RunID, "method": snap.Method.String()})
	opts := s.opts
	opts.Logger = log

	types := NewTypeManager(opts.Package)
	if err := s.arrange(plan, snap, NewSetupGenerator(types, s.setup, opts), log); err != nil {
		return nil, err
	}
	if err := s.assert(plan, snap, NewMatcherGenerator(types, s.matchers, opts), log); err != nil {
		return nil, err
	}
	plan.Imports = types.Imports()
	log.Infof("planned %d arrange and %d assert fragments", len(plan.Arrange), len(plan.Assert))
	return plan, nil
}

func (s *Synthesizer) arrange(plan *TestPlan, snap *testrecorder.Snapshot, g *SetupGenerator, log Logger) error {
	ctx := NewContext()
	for _, gl := range snap.Globals {
		ctx.StaticRef(gl.Package, gl.Value)
		ctx.Track(gl.Value)
	}
	if snap.This != nil {
		ctx.Track(snap.This)
	}
	for i, a := range snap.Args {
		ctx.Track(a.Value)
		g.Locals().Claim(argName(i))
	}

	add := func(purpose Purpose, name string, v testrecorder.Value, declared *testrecorder.Type, hints []testrecorder.Hint) error {
		if ref, ok := v.(testrecorder.Reference); ok {
			log.Debugf("%s %s is referenced %d times", purpose, name, ctx.RefCount(ref))
		}
		c, err := g.Generate(v, ctx.WithHints(hints...))
		if err != nil {
			return fmt.Errorf("%s %s: %w", purpose, name, err)
		}
		if declared == nil {
			declared = v.Type()
		}
		expr, t := c.Value, c.Type
		if declared != nil {
			expr, t = g.Adapt(c, declared), declared
		}
		plan.Arrange = append(plan.Arrange, Fragment{
			Purpose:    purpose,
			Name:       name,
			Statements: c.Statements,
			Expression: expr,
			Type:       g.types.VariableTypeName(t),
		})
		return nil
	}

	if snap.This != nil {
		if err := add(PurposeReceiver, "this", snap.This, nil, nil); err != nil {
			return err
		}
	}
	for i, a := range snap.Args {
		if err := add(PurposeArgument, argName(i), a.Value, a.Declared, a.Hints); err != nil {
			return err
		}
	}
	for _, gl := range snap.Globals {
		if err := add(PurposeGlobal, gl.QualifiedName(), gl.Value, gl.Declared, gl.Hints); err != nil {
			return err
		}
	}
	plan.Files = g.DataFiles()
	return nil
}

func (s *Synthesizer) assert(plan *TestPlan, snap *testrecorder.Snapshot, g *MatcherGenerator, log Logger) error {
	ctx := NewContext()

	add := func(purpose Purpose, name string, v testrecorder.Value, hints []testrecorder.Hint) error {
		c, err := g.Generate(v, ctx.WithHints(hints...))
		if err != nil {
			return fmt.Errorf("%s %s: %w", purpose, name, err)
		}
		if c == nil {
			log.Debugf("checks on %s %s are skipped", purpose, name)
			return nil
		}
		plan.Assert = append(plan.Assert, Fragment{
			Purpose:    purpose,
			Name:       name,
			Statements: c.Statements,
			Expression: c.Value,
			Type:       g.types.TypeName(MatcherType),
		})
		return nil
	}

	switch {
	case snap.Err != nil:
		if err := add(PurposeError, "err", snap.Err, nil); err != nil {
			return err
		}
	case snap.Result != nil:
		if err := add(PurposeResult, "result", snap.Result, nil); err != nil {
			return err
		}
	}
	if snap.ThisAfter != nil {
		if err := add(PurposeReceiverAfter, "this", snap.ThisAfter, nil); err != nil {
			return err
		}
	}
	for i, a := range snap.ArgsAfter {
		// arguments without references are copies the call cannot change
		if !ctx.Mutable(a.Value) {
			continue
		}
		if err := add(PurposeArgumentAfter, argName(i), a.Value, a.Hints); err != nil {
			return err
		}
	}
	for _, gl := range snap.GlobalsAfter {
		if err := add(PurposeGlobalAfter, gl.QualifiedName(), gl.Value, gl.Hints); err != nil {
			return err
		}
	}
	return nil
}

func argName(i int) string { return "arg" + strconv.Itoa(i) }
