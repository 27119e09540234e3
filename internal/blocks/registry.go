package blocks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/blocksync/internal/ir"
)

// Attribute sources that hold rich text.
const (
	SourceRichText = "rich-text"
	SourceHTML     = "html"
)

// RoleContent marks an attribute as user content. Blocks exposing one stay
// editable inside a contentOnly-locked container.
const RoleContent = "content"

// LockAttribute is the attribute every block type accepts for move/remove/edit
// locking, whether or not its schema declares it.
const LockAttribute = "lock"

// MissingBlockName is the placeholder type used when a template names an
// unregistered type.
const MissingBlockName = "core/missing"

// AttributeSchema describes one attribute of a block type.
type AttributeSchema struct {
	// Type is the value kind: string, integer, boolean, array, object.
	Type string

	// Source is SourceRichText or SourceHTML for text-bearing attributes.
	Source string

	// Role is RoleContent for user content.
	Role string

	// Default is the value a freshly created block gets. Nil means no default.
	Default ir.Value
}

// IsRichText reports whether the attribute holds rich text.
func (a AttributeSchema) IsRichText() bool {
	return a.Source == SourceRichText || a.Source == SourceHTML
}

// Supports holds a block type's capability flags.
type Supports struct {
	// Multiple allows more than one instance per document.
	Multiple bool

	// Inserter shows the type in inserters. Hidden types can still be inserted
	// programmatically.
	Inserter bool

	// Lock allows users to lock instances of this type.
	Lock bool

	// OnMerge opts a type without a merge function into merging its inner
	// blocks with a neighbour.
	OnMerge bool
}

// DefaultSupports is what a type gets when it declares nothing.
func DefaultSupports() Supports {
	return Supports{Multiple: true, Inserter: true, Lock: true}
}

// BlockType is a registered block type.
type BlockType struct {
	Name       string
	Title      string
	Attributes map[string]AttributeSchema

	// Parent lists the only types this block may be a direct child of.
	// Nil means any parent.
	Parent []string

	// Ancestor lists types of which at least one must enclose this block.
	// Nil means no requirement.
	Ancestor []string

	// AllowedBlocks lists the types allowed as direct children when the
	// block's inner block list is mounted. Nil means any.
	AllowedBlocks []string

	// Merge combines two blocks' attributes. Nil means the type cannot merge.
	Merge MergeFunc

	// Transforms convert this type to other types (To) or other types into
	// this one (From).
	Transforms Transforms

	Supports Supports
}

// RichTextAttributeKey returns the first attribute, in sorted key order,
// that holds rich text. It returns "" when there is none.
func (bt *BlockType) RichTextAttributeKey() string {
	keys := make([]string, 0, len(bt.Attributes))
	for k := range bt.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if bt.Attributes[k].IsRichText() {
			return k
		}
	}
	return ""
}

// HasContentRole reports whether any attribute carries the content role.
func (bt *BlockType) HasContentRole() bool {
	for _, attr := range bt.Attributes {
		if attr.Role == RoleContent {
			return true
		}
	}
	return false
}

// Registry holds block types by name plus the default block type.
//
// Thread-safety: Registry is safe for concurrent use. Registration normally
// happens once at startup; lookups happen on every policy check.
type Registry struct {
	mu           sync.RWMutex
	types        map[string]*BlockType
	defaultBlock string
	ids          IDGenerator
	generation   uint64
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIDGenerator sets the client ID source for created blocks.
// Default: UUIDGenerator.
func WithIDGenerator(gen IDGenerator) RegistryOption {
	return func(r *Registry) {
		r.ids = gen
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		types: make(map[string]*BlockType),
		ids:   UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a block type. Registering a name twice is an error.
func (r *Registry) Register(bt *BlockType) error {
	if bt == nil || bt.Name == "" {
		return fmt.Errorf("block type must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[bt.Name]; exists {
		return fmt.Errorf("block type %q is already registered", bt.Name)
	}
	r.types[bt.Name] = bt
	r.generation++
	return nil
}

// Unregister removes a block type and reports whether it was registered.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[name]; !exists {
		return false
	}
	delete(r.types, name)
	if r.defaultBlock == name {
		r.defaultBlock = ""
	}
	r.generation++
	return true
}

// SetDefaultBlockName sets the type inserted as the placeholder block.
// The type must be registered.
func (r *Registry) SetDefaultBlockName(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[name]; !exists {
		return fmt.Errorf("default block type %q is not registered", name)
	}
	r.defaultBlock = name
	r.generation++
	return nil
}

// Generation counts registry changes. Caches of policy answers compare it to
// detect that a type was added or removed.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// DefaultBlockName returns the default block type, or "" if none is set.
func (r *Registry) DefaultBlockName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultBlock
}

// BlockType looks up a type by name.
func (r *Registry) BlockType(name string) (*BlockType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bt, ok := r.types[name]
	return bt, ok
}

// BlockTypes returns all registered types sorted by name.
func (r *Registry) BlockTypes() []*BlockType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*BlockType, 0, len(r.types))
	for _, bt := range r.types {
		out = append(out, bt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HasContentRoleAttribute reports whether the named type has an attribute
// with the content role. Unknown types have none.
func (r *Registry) HasContentRoleAttribute(name string) bool {
	bt, ok := r.BlockType(name)
	return ok && bt.HasContentRole()
}

// HasBlockSupport reports a support flag for the named type. Unknown types
// fall back to def.
func (r *Registry) HasBlockSupport(name string, flag func(Supports) bool, def bool) bool {
	bt, ok := r.BlockType(name)
	if !ok {
		return def
	}
	return flag(bt.Supports)
}
