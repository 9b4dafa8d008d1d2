package data

import (
	"strings"
)

// Parameter is a named command argument.
type Parameter struct {
	Value     any
	Name      string
	Type      DbType
	Direction ParameterDirection
}

// Parameters is the ordered argument list of a command. Names are matched
// case-insensitively and without their @, : or $ prefix.
type Parameters struct {
	items []*Parameter
}

// NewParameters returns an empty collection.
func NewParameters() *Parameters {
	return &Parameters{}
}

// Add appends p and returns it.
func (ps *Parameters) Add(p *Parameter) *Parameter {
	ps.items = append(ps.items, p)
	return p
}

// AddWithValue appends an input parameter whose type is inferred from value.
// A nil value is sent as DBNull.
func (ps *Parameters) AddWithValue(name string, value any) *Parameter {
	p := &Parameter{Name: name, Direction: DirectionInput}
	if IsNull(value) {
		p.Value = DBNull
		p.Type = DbTypeObject
	} else {
		p.Value = value
		p.Type = dbTypeOfValue(value)
	}
	return ps.Add(p)
}

// Get returns the parameter with the given name.
func (ps *Parameters) Get(name string) (*Parameter, bool) {
	key := NormalizeParameterName(name)
	for _, p := range ps.items {
		if NormalizeParameterName(p.Name) == key {
			return p, true
		}
	}
	return nil, false
}

// All returns the parameters in insertion order.
func (ps *Parameters) All() []*Parameter {
	out := make([]*Parameter, len(ps.items))
	copy(out, ps.items)
	return out
}

func (ps *Parameters) Len() int {
	return len(ps.items)
}

func (ps *Parameters) Clear() {
	ps.items = nil
}

// NormalizeParameterName strips a leading @, : or $ and lower-cases name.
func NormalizeParameterName(name string) string {
	return strings.ToLower(strings.TrimLeft(name, "@:$"))
}

// CreateParameterWithValue creates a parameter on cmd with its DbType taken
// from T. A nil value, including a nil pointer, is sent as DBNull. The
// direction defaults to DirectionInput. The parameter is returned, not
// added to the command.
func CreateParameterWithValue[T any](cmd Command, name string, value T, direction ...ParameterDirection) *Parameter {
	p := cmd.CreateParameter()
	p.Name = name
	p.Type = DbTypeOf[T]()
	p.Direction = DirectionInput
	if len(direction) > 0 {
		p.Direction = direction[0]
	}

	if IsNull(value) {
		p.Value = DBNull
	} else {
		p.Value = value
	}
	return p
}
