package symbols

// ScopeID identifies a scope in the table arena.
type ScopeID uint32

const (
	// NoScopeID marks the absence of a scope reference.
	NoScopeID ScopeID = 0
)

// IsValid reports whether the scope ID refers to an allocated scope.
func (id ScopeID) IsValid() bool { return id != NoScopeID }

// SymbolID is the stable handle of a declared name. It is allocated by
// Declare and stays valid for the lifetime of the table.
type SymbolID uint32

const (
	// NoSymbolID marks the absence of a symbol reference.
	NoSymbolID SymbolID = 0
)

// IsValid reports whether the symbol ID refers to an allocated symbol.
func (id SymbolID) IsValid() bool { return id != NoSymbolID }

// GenericID indexes a generic template owned by the compilation module.
type GenericID uint32

const NoGenericID GenericID = 0

func (id GenericID) IsValid() bool { return id != NoGenericID }
