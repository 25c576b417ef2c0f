// Package session tracks which connection holds which auction role.
package session

import (
	"errors"
	"fmt"
)

var ErrOperatorTaken = errors.New("operator role already taken")
var ErrInvalidSeat = errors.New("invalid team seat")
var ErrUnknownConn = errors.New("unknown connection")

// Role is one of Operator, Seat or Observer. A connection that has not
// claimed anything has a nil Role.
type Role interface{ isRole() }

type Operator struct{}

func (Operator) isRole() {}

// Seat is a team device bound to one team slot.
type Seat struct{ Team int }

func (Seat) isRole() {}

type Observer struct{}

func (Observer) isRole() {}

func Name(r Role) string {
	switch r := r.(type) {
	case Operator:
		return "operator"
	case Seat:
		return fmt.Sprintf("team-%d", r.Team)
	case Observer:
		return "observer"
	default:
		return "unbound"
	}
}

// Registry binds connections to roles. Operator is first-come exclusive, each
// team seat holds one connection (a new claim displaces the old one) and
// observers are unlimited.
type Registry struct {
	teams    int
	roles    map[string]Role
	operator string
	seats    map[int]string
}

func NewRegistry(teams int) *Registry {
	return &Registry{
		teams: teams,
		roles: make(map[string]Role),
		seats: make(map[int]string),
	}
}

func (r *Registry) Add(id string) {
	if _, ok := r.roles[id]; !ok {
		r.roles[id] = nil
	}
}

// Remove forgets id and frees whatever it occupied.
func (r *Registry) Remove(id string) (Role, bool) {
	role, ok := r.roles[id]
	if !ok {
		return nil, false
	}
	r.release(id)
	delete(r.roles, id)
	return role, true
}

// Claim binds id to role. For a seat it returns the connection that was
// displaced from it, if any.
func (r *Registry) Claim(id string, role Role) (displaced string, err error) {
	if _, ok := r.roles[id]; !ok {
		return "", ErrUnknownConn
	}
	switch role := role.(type) {
	case Operator:
		if r.operator != "" && r.operator != id {
			return "", ErrOperatorTaken
		}
		r.release(id)
		r.operator = id
	case Seat:
		if role.Team < 1 || role.Team > r.teams {
			return "", fmt.Errorf("%w: %d", ErrInvalidSeat, role.Team)
		}
		prev := r.seats[role.Team]
		r.release(id)
		if prev != "" && prev != id {
			r.roles[prev] = nil
			displaced = prev
		}
		r.seats[role.Team] = id
	case Observer:
		r.release(id)
	default:
		return "", fmt.Errorf("unsupported role %T", role)
	}
	r.roles[id] = role
	return displaced, nil
}

func (r *Registry) release(id string) {
	switch role := r.roles[id].(type) {
	case Operator:
		if r.operator == id {
			r.operator = ""
		}
	case Seat:
		if r.seats[role.Team] == id {
			delete(r.seats, role.Team)
		}
	}
	r.roles[id] = nil
}

func (r *Registry) Role(id string) Role { return r.roles[id] }

func (r *Registry) IsOperator(id string) bool {
	return id != "" && r.operator == id
}

func (r *Registry) HasOperator() bool { return r.operator != "" }

// Online reports which team seats are occupied, indexed by team id.
func (r *Registry) Online() map[int]bool {
	out := make(map[int]bool, r.teams)
	for t := 1; t <= r.teams; t++ {
		_, ok := r.seats[t]
		out[t] = ok
	}
	return out
}

func (r *Registry) Observers() int {
	n := 0
	for _, role := range r.roles {
		if _, ok := role.(Observer); ok {
			n++
		}
	}
	return n
}

// IDs lists every registered connection, bound or not.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.roles))
	for id := range r.roles {
		out = append(out, id)
	}
	return out
}

func (r *Registry) Len() int { return len(r.roles) }
