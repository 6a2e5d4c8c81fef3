// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lpmodel offers an API to build linear and mixed-integer
// optimization models and solve them with an external solver.
//
// The `Builder` struct owns the variable registry and provides helper
// methods for adding constraints and variables to the model. Variables are
// identified by a typed `VarKey` (a role tag plus index tuple); requesting
// the same key twice returns the same variable. The `LinearExpr` struct
// provides helper methods for creating constraints and the objective from
// expressions with many variables and coefficients.
package lpmodel

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
)

// ErrMixedModels holds the error when elements added to a model are different.
var ErrMixedModels = errors.New("elements are not part of the same model")

// ErrNoObjective holds the error when a model is finalized without an objective.
var ErrNoObjective = errors.New("model has no objective")

type (
	// VarIndex is the index of a variable in the model, in creation order.
	VarIndex int32
	// ConstrIndex is the index of a constraint in the model.
	ConstrIndex int32
)

// VarDomain is the value domain of a decision variable.
type VarDomain int

const (
	// Continuous variables are real-valued with a lower bound of zero.
	Continuous VarDomain = iota
	// Binary variables take the value 0 or 1.
	Binary
)

func (d VarDomain) String() string {
	switch d {
	case Continuous:
		return "continuous"
	case Binary:
		return "binary"
	}
	return fmt.Sprintf("VarDomain(%d)", int(d))
}

// VarKey is the typed identity of a decision variable: a role tag plus up
// to three integer indices. Keys are compared by value; the wire name a
// variable gets in a solver file is derived from its position and never
// carries semantics back into the model.
type VarKey struct {
	Role    string
	I, J, K int
}

// Key builds a VarKey from a role tag and up to three indices.
func Key(role string, idx ...int) VarKey {
	if len(idx) > 3 {
		log.Fatalf("Key supports at most 3 indices, got %d for role %q", len(idx), role)
	}
	k := VarKey{Role: role}
	if len(idx) > 0 {
		k.I = idx[0]
	}
	if len(idx) > 1 {
		k.J = idx[1]
	}
	if len(idx) > 2 {
		k.K = idx[2]
	}
	return k
}

func (k VarKey) String() string {
	return fmt.Sprintf("%s(%d,%d,%d)", k.Role, k.I, k.J, k.K)
}

// LinearArgument provides an interface for Var and LinearExpr.
type LinearArgument interface {
	addToLinearExpr(e *LinearExpr, c float64)
	evaluateSolutionValue(s *Solution) float64
}

// LinearExpr is a container for a linear expression: an ordered list of
// (variable, coefficient) terms plus a constant offset. A LinearExpr has
// value semantics and may be freely combined and reused.
type LinearExpr struct {
	varCoeffs []varCoeff
	offset    float64
}

type varCoeff struct {
	ind   VarIndex
	coeff float64
	// owner is the Builder that created the variable. Terms from different
	// builders never merge, and a constraint added to a builder other than
	// the owner is rejected with ErrMixedModels.
	owner *Builder
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant creates and returns a LinearExpr containing the constant `c`.
func NewConstant(c float64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// Add adds the linear argument term to the LinearExpr and returns itself.
func (l *LinearExpr) Add(la LinearArgument) *LinearExpr {
	l.AddTerm(la, 1)
	return l
}

// AddConstant adds the constant to the LinearExpr and returns itself.
func (l *LinearExpr) AddConstant(c float64) *LinearExpr {
	l.offset += c
	return l
}

// AddTerm adds the linear argument term with the given coefficient to the
// LinearExpr and returns itself.
func (l *LinearExpr) AddTerm(la LinearArgument, coeff float64) *LinearExpr {
	la.addToLinearExpr(l, coeff)
	return l
}

// AddSum adds the sum of the linear arguments to the LinearExpr and returns itself.
func (l *LinearExpr) AddSum(las ...LinearArgument) *LinearExpr {
	for _, la := range las {
		l.Add(la)
	}
	return l
}

// AddWeightedSum adds the linear arguments with the corresponding coefficients
// to the LinearExpr and returns itself.
func (l *LinearExpr) AddWeightedSum(las []LinearArgument, coeffs []float64) *LinearExpr {
	if len(coeffs) != len(las) {
		log.Fatalf("las and coeffs must be the same length: %v != %v", len(las), len(coeffs))
	}
	for i, la := range las {
		l.AddTerm(la, coeffs[i])
	}
	return l
}

func (l *LinearExpr) addToLinearExpr(e *LinearExpr, c float64) {
	for _, vc := range l.varCoeffs {
		e.varCoeffs = append(e.varCoeffs, varCoeff{ind: vc.ind, coeff: vc.coeff * c, owner: vc.owner})
	}
	e.offset += l.offset * c
}

func (l *LinearExpr) evaluateSolutionValue(s *Solution) float64 {
	result := l.offset
	for _, vc := range l.varCoeffs {
		result += s.values[vc.ind] * vc.coeff
	}
	return result
}

// canonicalTerms merges repeated variables, drops zero coefficients, and
// returns the terms in first-occurrence order together with the offset.
// Solver text formats reject repeated variables within one row.
func (l *LinearExpr) canonicalTerms() ([]varCoeff, float64) {
	type termKey struct {
		owner *Builder
		ind   VarIndex
	}
	coeffs := make(map[termKey]float64, len(l.varCoeffs))
	var order []termKey
	for _, vc := range l.varCoeffs {
		k := termKey{owner: vc.owner, ind: vc.ind}
		if _, ok := coeffs[k]; !ok {
			order = append(order, k)
		}
		coeffs[k] += vc.coeff
	}
	var terms []varCoeff
	for _, k := range order {
		if c := coeffs[k]; c != 0 {
			terms = append(terms, varCoeff{ind: k.ind, coeff: c, owner: k.owner})
		}
	}
	return terms, l.offset
}

// Var is a reference to a decision variable in the model.
type Var struct {
	ind VarIndex
	b   *Builder
}

// Index returns the index of the variable.
func (v Var) Index() VarIndex {
	return v.ind
}

// Key returns the typed identity of the variable.
func (v Var) Key() VarKey {
	return v.b.keys[v.ind]
}

// Domain returns the domain of the variable.
func (v Var) Domain() VarDomain {
	return v.b.domains[v.ind]
}

func (v Var) addToLinearExpr(e *LinearExpr, c float64) {
	e.varCoeffs = append(e.varCoeffs, varCoeff{ind: v.ind, coeff: c, owner: v.b})
}

func (v Var) evaluateSolutionValue(s *Solution) float64 {
	return s.values[v.ind]
}

// Sense is the relational operator of a constraint.
type Sense int

const (
	// LessOrEqual constrains the expression to be at most the right-hand side.
	LessOrEqual Sense = iota
	// Equal constrains the expression to equal the right-hand side.
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessOrEqual:
		return "<="
	case Equal:
		return "="
	}
	return fmt.Sprintf("Sense(%d)", int(s))
}

type constraintData struct {
	name  string
	terms []varCoeff
	sense Sense
	rhs   float64
}

// Constraint is a reference to a constraint in the model.
type Constraint struct {
	ind ConstrIndex
	b   *Builder
}

// WithName sets the name of the constraint. Names only show up in solver
// files and logs.
func (c Constraint) WithName(s string) Constraint {
	c.b.constraints[c.ind].name = s
	return c
}

// Name returns the name of the constraint.
func (c Constraint) Name() string {
	return c.b.constraints[c.ind].name
}

// Index returns the index of the constraint.
func (c Constraint) Index() ConstrIndex {
	return c.ind
}

// Builder assembles decision variables, constraints, and one minimize
// objective into a solvable model. A Builder is scoped to a single planning
// run; variables created by one Builder must not be used with another.
type Builder struct {
	name        string
	keys        []VarKey
	domains     []VarDomain
	byKey       map[VarKey]VarIndex
	constraints []constraintData
	objTerms    []varCoeff
	objOffset   float64
	hasObj      bool
	// The first and only the first error is reported in Model.
	err error
}

// NewBuilder creates an empty model Builder with the given problem name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name, byKey: make(map[VarKey]VarIndex)}
}

// Name returns the problem name.
func (b *Builder) Name() string {
	return b.name
}

// NewVar returns the continuous variable (lower-bounded at zero) with the
// given key, creating it if it does not exist yet. Creation is idempotent:
// re-requesting an existing key returns the same variable.
func (b *Builder) NewVar(key VarKey) Var {
	return b.newVar(key, Continuous)
}

// NewBinaryVar returns the binary variable with the given key, creating it
// if it does not exist yet.
func (b *Builder) NewBinaryVar(key VarKey) Var {
	return b.newVar(key, Binary)
}

func (b *Builder) newVar(key VarKey, d VarDomain) Var {
	if ind, ok := b.byKey[key]; ok {
		if b.domains[ind] != d {
			b.setErrorf("variable %v requested as %v but created as %v", key, d, b.domains[ind])
		}
		return Var{ind: ind, b: b}
	}
	ind := VarIndex(len(b.keys))
	b.keys = append(b.keys, key)
	b.domains = append(b.domains, d)
	b.byKey[key] = ind
	return Var{ind: ind, b: b}
}

// Var returns the variable registered under the key, if any.
func (b *Builder) Var(key VarKey) (Var, bool) {
	ind, ok := b.byKey[key]
	if !ok {
		return Var{}, false
	}
	return Var{ind: ind, b: b}, true
}

// NumVars returns the number of registered variables.
func (b *Builder) NumVars() int {
	return len(b.keys)
}

// NumConstraints returns the number of constraints added so far.
func (b *Builder) NumConstraints() int {
	return len(b.constraints)
}

// Vars returns all registered variables in creation order.
func (b *Builder) Vars() []Var {
	vars := make([]Var, len(b.keys))
	for i := range b.keys {
		vars[i] = Var{ind: VarIndex(i), b: b}
	}
	return vars
}

// SelectVars returns the variables whose key satisfies `pred`, in creation
// order. Constraint generation built on SelectVars is therefore reproducible
// across runs on identical input.
func (b *Builder) SelectVars(pred func(VarKey) bool) []Var {
	var vars []Var
	for i, key := range b.keys {
		if pred(key) {
			vars = append(vars, Var{ind: VarIndex(i), b: b})
		}
	}
	return vars
}

func (b *Builder) setErrorf(format string, a ...any) {
	err := fmt.Errorf(format, a...)
	log.Errorf("lpmodel: %v", err)
	if b.err == nil {
		b.err = err
	}
}

// checkOwnedTerms records a deferred error when a term references a
// variable this builder did not create. Ownership is checked by builder
// identity, so a foreign variable is caught even when its index happens to
// be in range for this builder.
func (b *Builder) checkOwnedTerms(terms []varCoeff) {
	for _, t := range terms {
		if t.owner != b {
			b.setErrorf("constraint %d references variable index %d of another builder: %w", len(b.constraints), t.ind, ErrMixedModels)
			return
		}
	}
}

func (b *Builder) addConstraint(lhs, rhs LinearArgument, sense Sense) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	terms, offset := diff.canonicalTerms()
	b.checkOwnedTerms(terms)
	b.constraints = append(b.constraints, constraintData{terms: terms, sense: sense, rhs: -offset})
	return Constraint{ind: ConstrIndex(len(b.constraints) - 1), b: b}
}

// AddLessOrEqual adds the linear constraint `lhs <= rhs`.
func (b *Builder) AddLessOrEqual(lhs, rhs LinearArgument) Constraint {
	return b.addConstraint(lhs, rhs, LessOrEqual)
}

// AddEquality adds the linear constraint `lhs == rhs`.
func (b *Builder) AddEquality(lhs, rhs LinearArgument) Constraint {
	return b.addConstraint(lhs, rhs, Equal)
}

// Minimize sets the linear minimization objective. A model has exactly one
// objective; calling Minimize again replaces it.
func (b *Builder) Minimize(obj LinearArgument) {
	o := NewLinearExpr().Add(obj)
	terms, offset := o.canonicalTerms()
	b.checkOwnedTerms(terms)
	b.objTerms = terms
	b.objOffset = offset
	b.hasObj = true
}

// Model finalizes the Builder and returns an immutable model ready to solve.
//
// Model returns an error when invalid parameters have been used during model
// building (e.g. conflicting domains for one key, or terms referencing
// variables from another builder), or when no objective was set.
func (b *Builder) Model() (*Model, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.hasObj {
		return nil, fmt.Errorf("model %q: %w", b.name, ErrNoObjective)
	}
	if len(b.keys) == 0 {
		return nil, fmt.Errorf("model %q has no variables", b.name)
	}
	m := &Model{
		name:        b.name,
		keys:        append([]VarKey(nil), b.keys...),
		domains:     append([]VarDomain(nil), b.domains...),
		constraints: append([]constraintData(nil), b.constraints...),
		objTerms:    append([]varCoeff(nil), b.objTerms...),
		objOffset:   b.objOffset,
	}
	return m, nil
}

// Model is an immutable snapshot of a built optimization problem.
type Model struct {
	name        string
	keys        []VarKey
	domains     []VarDomain
	constraints []constraintData
	objTerms    []varCoeff
	objOffset   float64
}

// Name returns the problem name.
func (m *Model) Name() string {
	return m.name
}

// NumVars returns the number of variables in the model.
func (m *Model) NumVars() int {
	return len(m.keys)
}

// NumConstraints returns the number of constraints in the model.
func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// NumBinaries returns the number of binary variables in the model.
func (m *Model) NumBinaries() int {
	n := 0
	for _, d := range m.domains {
		if d == Binary {
			n++
		}
	}
	return n
}

// CheckSolution verifies that the values held by the solution satisfy every
// constraint of the model within SolutionEps, and that variable domains are
// respected. It returns the first violation found.
func (m *Model) CheckSolution(s *Solution) error {
	if len(s.values) != len(m.keys) {
		return fmt.Errorf("model %q: solution has %d values, want %d", m.name, len(s.values), len(m.keys))
	}
	for i, d := range m.domains {
		v := s.values[i]
		if v < -SolutionEps {
			return fmt.Errorf("model %q: variable %v = %v below lower bound", m.name, m.keys[i], v)
		}
		if d == Binary && math.Abs(v) > SolutionEps && math.Abs(v-1) > SolutionEps {
			return fmt.Errorf("model %q: binary variable %v = %v", m.name, m.keys[i], v)
		}
	}
	for ci, c := range m.constraints {
		lhs := 0.0
		for _, t := range c.terms {
			lhs += s.values[t.ind] * t.coeff
		}
		switch c.sense {
		case LessOrEqual:
			if lhs > c.rhs+SolutionEps {
				return fmt.Errorf("model %q: constraint %s violated: %v <= %v", m.name, m.constraintName(ConstrIndex(ci)), lhs, c.rhs)
			}
		case Equal:
			if math.Abs(lhs-c.rhs) > SolutionEps {
				return fmt.Errorf("model %q: constraint %s violated: %v = %v", m.name, m.constraintName(ConstrIndex(ci)), lhs, c.rhs)
			}
		}
	}
	return nil
}

func (m *Model) constraintName(ind ConstrIndex) string {
	if n := m.constraints[ind].name; n != "" {
		return n
	}
	return fmt.Sprintf("c%d", ind)
}
