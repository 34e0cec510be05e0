package testrecorder

// Hint annotates a captured value with instructions for code synthesis.
// Hints attached to a field, argument or global apply to the whole subtree
// below it.
type Hint interface {
	hint()
}

// LoadFromFile moves large literal slices and arrays into an external data
// file. WriteTo is the directory the file is written to, ReadFrom the
// directory generated code loads it from.
type LoadFromFile struct {
	WriteTo  string
	ReadFrom string
}

func (LoadFromFile) hint() {}

// SkipChecks suppresses assertions on the annotated subtree.
type SkipChecks struct{}

func (SkipChecks) hint() {}
