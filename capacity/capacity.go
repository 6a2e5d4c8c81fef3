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

// Package capacity formulates aggregate capacity planning as a linear
// program: time-phased demand is assigned to working hours of each resource
// kind (normal time, extra time, ...) at minimum cost, allowing production
// ahead of demand at a per-period holding cost.
package capacity

import (
	"fmt"

	"github.com/factoryops/prodplan/lpmodel"
)

// roleAssign tags the x[i,j,k] variables: hours of resource kind k worked
// in period i and devoted to the demand of period j, for i <= j.
const roleAssign = "assign"

// Input holds the typed numeric tables the planning LP consumes. Kind-major
// tables are indexed [kind][period]; periods are 0-based internally.
type Input struct {
	// Kinds names the resource kinds, e.g. {"normal", "extra"}.
	Kinds []string
	// CostPerHour is the cost of one hour of each kind in each period.
	CostPerHour [][]float64
	// AvailableHours is the hour capacity of each kind in each period.
	AvailableHours [][]float64
	// Demand is the total aggregate demand, in hours, per period.
	Demand []float64
	// HoldingCost is the cost of carrying one hour of production forward
	// by one period.
	HoldingCost float64
}

// Periods returns the planning horizon length.
func (in *Input) Periods() int {
	return len(in.Demand)
}

// Validate reports the first malformed shape in the input. It runs before
// any model is built; an input that passes can still be infeasible, which
// only the solver can decide.
func (in *Input) Validate() error {
	if in.Periods() == 0 {
		return fmt.Errorf("capacity input: no demand periods")
	}
	if len(in.Kinds) == 0 {
		return fmt.Errorf("capacity input: no resource kinds")
	}
	if len(in.CostPerHour) != len(in.Kinds) || len(in.AvailableHours) != len(in.Kinds) {
		return fmt.Errorf("capacity input: cost and availability tables must have one row per kind: got %d and %d rows for %d kinds",
			len(in.CostPerHour), len(in.AvailableHours), len(in.Kinds))
	}
	for k, kind := range in.Kinds {
		if len(in.CostPerHour[k]) != in.Periods() {
			return fmt.Errorf("capacity input: kind %q has %d cost entries, want %d", kind, len(in.CostPerHour[k]), in.Periods())
		}
		if len(in.AvailableHours[k]) != in.Periods() {
			return fmt.Errorf("capacity input: kind %q has %d availability entries, want %d", kind, len(in.AvailableHours[k]), in.Periods())
		}
		for j, h := range in.AvailableHours[k] {
			if h < 0 {
				return fmt.Errorf("capacity input: kind %q has negative available hours %v in period %d", kind, h, j+1)
			}
		}
	}
	for j, d := range in.Demand {
		if d < 0 {
			return fmt.Errorf("capacity input: negative demand %v in period %d", d, j+1)
		}
	}
	if in.HoldingCost < 0 {
		return fmt.Errorf("capacity input: negative holding cost %v", in.HoldingCost)
	}
	return nil
}

// Assignment is one realized x[i,j,k] value of a solved plan.
type Assignment struct {
	// WorkPeriod is the period the hours are worked in.
	WorkPeriod int
	// DemandPeriod is the period whose demand the hours satisfy.
	DemandPeriod int
	// Kind is the resource kind the hours draw on.
	Kind string
	// Hours worked.
	Hours float64
}

// Plan is the solved capacity assignment.
type Plan struct {
	// Status is the normalized solver status; StatusTimeLimit plans carry
	// the best incumbent found.
	Status lpmodel.Status
	// Cost is the objective value: working cost plus holding cost.
	Cost float64
	// HoursWorked[kind][period] is the total hours of each kind consumed in
	// each period, regardless of which period's demand they serve.
	HoursWorked [][]float64
	// Coverage[kind][period] is the total hours of each kind devoted to each
	// period's demand, regardless of when they were worked.
	Coverage [][]float64
	// Assignments is the per-(work period, demand period, kind) detail for
	// downstream disaggregation. Only nonzero entries are listed.
	Assignments []Assignment
}

// BuildModel populates a model Builder with the capacity-assignment LP for
// the input. The caller finalizes it with Model and solves it; Solve wraps
// the whole round trip.
func BuildModel(name string, in *Input) (*lpmodel.Builder, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	periods := in.Periods()
	b := lpmodel.NewBuilder(name)

	for k := range in.Kinds {
		for i := 0; i < periods; i++ {
			for j := i; j < periods; j++ {
				b.NewVar(lpmodel.Key(roleAssign, i, j, k))
			}
		}
	}

	// Hours worked in period i on kind k cannot exceed its availability.
	for k, kind := range in.Kinds {
		for i := 0; i < periods; i++ {
			worked := lpmodel.NewLinearExpr()
			for _, v := range b.SelectVars(func(key lpmodel.VarKey) bool { return key.I == i && key.K == k }) {
				worked.Add(v)
			}
			b.AddLessOrEqual(worked, lpmodel.NewConstant(in.AvailableHours[k][i])).
				WithName(fmt.Sprintf("cap_%s_p%d", kind, i+1))
		}
	}

	// Hours devoted to period j, over all kinds and all work periods i <= j,
	// must exactly meet its demand.
	for j := 0; j < periods; j++ {
		covered := lpmodel.NewLinearExpr()
		for _, v := range b.SelectVars(func(key lpmodel.VarKey) bool { return key.J == j }) {
			covered.Add(v)
		}
		b.AddEquality(covered, lpmodel.NewConstant(in.Demand[j])).
			WithName(fmt.Sprintf("demand_p%d", j+1))
	}

	// Working cost, plus holding cost scaled by how far ahead of demand the
	// hours are worked.
	obj := lpmodel.NewLinearExpr()
	for _, v := range b.Vars() {
		key := v.Key()
		i, j, k := key.I, key.J, key.K
		obj.AddTerm(v, in.CostPerHour[k][i]+float64(j-i)*in.HoldingCost)
	}
	b.Minimize(obj)

	return b, nil
}

// ExtractPlan maps a solved model's variable values back into the planning
// vocabulary. The solution must carry values (optimal or time-limit).
func ExtractPlan(b *lpmodel.Builder, in *Input, sol *lpmodel.Solution) *Plan {
	periods := in.Periods()
	plan := &Plan{
		Status:      sol.Status(),
		Cost:        sol.Objective(),
		HoursWorked: make([][]float64, len(in.Kinds)),
		Coverage:    make([][]float64, len(in.Kinds)),
	}
	for k := range in.Kinds {
		plan.HoursWorked[k] = make([]float64, periods)
		plan.Coverage[k] = make([]float64, periods)
	}
	for _, v := range b.SelectVars(func(key lpmodel.VarKey) bool { return key.Role == roleAssign }) {
		key := v.Key()
		hours := sol.RoundedValue(v)
		plan.HoursWorked[key.K][key.I] += hours
		plan.Coverage[key.K][key.J] += hours
		if hours > lpmodel.SolutionEps {
			plan.Assignments = append(plan.Assignments, Assignment{
				WorkPeriod:   key.I,
				DemandPeriod: key.J,
				Kind:         in.Kinds[key.K],
				Hours:        hours,
			})
		}
	}
	return plan
}

// Solve builds the LP for the input, runs the solver, and extracts the
// plan. An infeasible model is returned as ErrInfeasible wrapped with the
// plan name; it is not retried, since identical inputs cannot become
// feasible.
func Solve(name string, in *Input, params lpmodel.SolveParameters) (*Plan, error) {
	b, err := BuildModel(name, in)
	if err != nil {
		return nil, err
	}
	m, err := b.Model()
	if err != nil {
		return nil, err
	}
	sol, err := lpmodel.Solve(m, params)
	if err != nil {
		return nil, err
	}
	if !sol.HasValues() {
		return nil, fmt.Errorf("capacity plan %q: %w", name, lpmodel.ErrInfeasible)
	}
	return ExtractPlan(b, in, sol), nil
}
