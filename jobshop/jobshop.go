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

// Package jobshop formulates flow-shop scheduling as a disjunctive
// mixed-integer program: a fixed set of orders visits a chain of machines in
// the same order, each machine processes one order at a time, and the model
// minimizes the makespan.
package jobshop

import (
	"fmt"
	"math"
	"sort"

	"github.com/factoryops/prodplan/lpmodel"
)

const (
	// roleStart tags start[order, machine], the start time of an order's
	// operation on a machine.
	roleStart = "start"
	// rolePrecedes tags the binary y[a, b, machine] deciding which of two
	// orders runs first on a shared machine.
	rolePrecedes = "precedes"
	// roleMakespan tags the scalar variable bounding all completion times.
	roleMakespan = "makespan"
)

// Instance is one scheduling problem: an orders x machines matrix of
// processing times, with machine index implying the shared visiting order.
type Instance struct {
	// Orders names the orders, in matrix row order.
	Orders []string
	// ProcTimes[order][machine] is the processing time of an order on a
	// machine. Every entry must be positive.
	ProcTimes [][]float64
	// MachineHoursPerDay optionally holds each machine's daily availability,
	// used to derive calendar finish days from solved start times. Leave nil
	// to skip that derivation.
	MachineHoursPerDay []float64
}

// Machines returns the number of machines in the chain.
func (inst *Instance) Machines() int {
	if len(inst.ProcTimes) == 0 {
		return 0
	}
	return len(inst.ProcTimes[0])
}

// Validate reports the first malformed shape in the instance.
func (inst *Instance) Validate() error {
	if len(inst.Orders) == 0 {
		return fmt.Errorf("scheduling instance: no orders")
	}
	if len(inst.ProcTimes) != len(inst.Orders) {
		return fmt.Errorf("scheduling instance: %d processing-time rows for %d orders", len(inst.ProcTimes), len(inst.Orders))
	}
	machines := inst.Machines()
	if machines == 0 {
		return fmt.Errorf("scheduling instance: no machines")
	}
	for o, row := range inst.ProcTimes {
		if len(row) != machines {
			return fmt.Errorf("scheduling instance: order %q has %d processing times, want %d", inst.Orders[o], len(row), machines)
		}
		for m, p := range row {
			if p <= 0 {
				return fmt.Errorf("scheduling instance: order %q has non-positive processing time %v on machine %d", inst.Orders[o], p, m+1)
			}
		}
	}
	if inst.MachineHoursPerDay != nil {
		if len(inst.MachineHoursPerDay) != machines {
			return fmt.Errorf("scheduling instance: %d machine availabilities for %d machines", len(inst.MachineHoursPerDay), machines)
		}
		for m, h := range inst.MachineHoursPerDay {
			if h <= 0 {
				return fmt.Errorf("scheduling instance: non-positive availability %v for machine %d", h, m+1)
			}
		}
	}
	return nil
}

// BigM returns the disjunction constant for the instance: the sum of all
// processing times. No start or completion time can exceed it in a
// schedule worth considering, so a relaxed disjunction never binds.
func BigM(inst *Instance) float64 {
	sum := 0.0
	for _, row := range inst.ProcTimes {
		for _, p := range row {
			sum += p
		}
	}
	return sum
}

// Schedule is the solved sequencing of an instance.
type Schedule struct {
	// Status is the normalized solver status. StatusTimeLimit schedules
	// carry the best incumbent, which is feasible but possibly suboptimal.
	Status lpmodel.Status
	// Makespan is the completion time of the last-finishing order.
	Makespan float64
	// Orders lists the order names in instance order, matching the rows
	// of Starts and FinishDays.
	Orders []string
	// Starts[order][machine] is the solved start time of each operation.
	Starts [][]float64
	// Sequence lists the order names sorted by their start time on the last
	// machine.
	Sequence []string
	// FinishDays[order][machine] is ceil(completion / availability) per
	// machine, present only when the instance carries availability data.
	FinishDays [][]int
}

// BuildModel populates a model Builder with the disjunctive MILP for the
// instance. A single-machine instance produces no precedence rows, and a
// single-order instance produces no interference rows.
func BuildModel(name string, inst *Instance) (*lpmodel.Builder, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	orders := len(inst.Orders)
	machines := inst.Machines()
	bigM := BigM(inst)
	b := lpmodel.NewBuilder(name)

	starts := make([][]lpmodel.Var, orders)
	for o := 0; o < orders; o++ {
		starts[o] = make([]lpmodel.Var, machines)
		for m := 0; m < machines; m++ {
			starts[o][m] = b.NewVar(lpmodel.Key(roleStart, o, m))
		}
	}
	makespan := b.NewVar(lpmodel.Key(roleMakespan))

	// An order finishes on machine m before it may begin on machine m+1.
	for o := 0; o < orders; o++ {
		for m := 0; m+1 < machines; m++ {
			b.AddLessOrEqual(
				lpmodel.NewLinearExpr().Add(starts[o][m]).AddConstant(inst.ProcTimes[o][m]),
				starts[o][m+1],
			).WithName(fmt.Sprintf("seq_o%d_m%d", o+1, m+1))
		}
	}

	// For every pair of orders sharing a machine, exactly one of the two
	// big-M inequalities binds: either a finishes before b starts or the
	// other way around. y = 1 relaxes the first and enforces the second.
	for m := 0; m < machines; m++ {
		for a := 0; a < orders; a++ {
			for o := a + 1; o < orders; o++ {
				y := b.NewBinaryVar(lpmodel.Key(rolePrecedes, a, o, m))
				b.AddLessOrEqual(
					lpmodel.NewLinearExpr().Add(starts[a][m]).AddConstant(inst.ProcTimes[a][m]),
					lpmodel.NewLinearExpr().Add(starts[o][m]).AddTerm(y, bigM),
				).WithName(fmt.Sprintf("excl_o%d_o%d_m%d_a", a+1, o+1, m+1))
				b.AddLessOrEqual(
					lpmodel.NewLinearExpr().Add(starts[o][m]).AddConstant(inst.ProcTimes[o][m]),
					lpmodel.NewLinearExpr().Add(starts[a][m]).AddTerm(y, -bigM).AddConstant(bigM),
				).WithName(fmt.Sprintf("excl_o%d_o%d_m%d_b", a+1, o+1, m+1))
			}
		}
	}

	// Every order's final completion bounds the makespan.
	last := machines - 1
	for o := 0; o < orders; o++ {
		b.AddLessOrEqual(
			lpmodel.NewLinearExpr().Add(starts[o][last]).AddConstant(inst.ProcTimes[o][last]),
			makespan,
		).WithName(fmt.Sprintf("finish_o%d", o+1))
	}

	b.Minimize(makespan)
	return b, nil
}

// ExtractSchedule maps solved start times back into the scheduling
// vocabulary: the per-operation start matrix, the processing sequence by
// final-stage start, and availability-adjusted finish days.
func ExtractSchedule(b *lpmodel.Builder, inst *Instance, sol *lpmodel.Solution) *Schedule {
	orders := len(inst.Orders)
	machines := inst.Machines()
	sched := &Schedule{
		Status: sol.Status(),
		Orders: append([]string(nil), inst.Orders...),
		Starts: make([][]float64, orders),
	}
	for o := 0; o < orders; o++ {
		sched.Starts[o] = make([]float64, machines)
		for m := 0; m < machines; m++ {
			v, ok := b.Var(lpmodel.Key(roleStart, o, m))
			if !ok {
				continue
			}
			sched.Starts[o][m] = sol.RoundedValue(v)
		}
	}
	if v, ok := b.Var(lpmodel.Key(roleMakespan)); ok {
		sched.Makespan = sol.RoundedValue(v)
	}

	last := machines - 1
	seq := make([]int, orders)
	for o := range seq {
		seq[o] = o
	}
	sort.SliceStable(seq, func(x, y int) bool {
		return sched.Starts[seq[x]][last] < sched.Starts[seq[y]][last]
	})
	sched.Sequence = make([]string, orders)
	for i, o := range seq {
		sched.Sequence[i] = inst.Orders[o]
	}

	if inst.MachineHoursPerDay != nil {
		sched.FinishDays = make([][]int, orders)
		for o := 0; o < orders; o++ {
			sched.FinishDays[o] = make([]int, machines)
			for m := 0; m < machines; m++ {
				finish := sched.Starts[o][m] + inst.ProcTimes[o][m]
				sched.FinishDays[o][m] = int(math.Ceil(finish / inst.MachineHoursPerDay[m]))
			}
		}
	}
	return sched
}

// Solve builds the MILP for the instance, runs the solver under the given
// time limit, and extracts the schedule. The time limit is mandatory: the
// problem is NP-hard, and an unbounded solve on a practical instance may
// never return. A time-limit outcome carries the best incumbent and is
// reported through the schedule status, not as an error.
func Solve(name string, inst *Instance, params lpmodel.SolveParameters) (*Schedule, error) {
	if params.TimeLimit <= 0 {
		return nil, fmt.Errorf("schedule %q: a solve time limit is required", name)
	}
	b, err := BuildModel(name, inst)
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
		return nil, fmt.Errorf("schedule %q: %w", name, lpmodel.ErrInfeasible)
	}
	return ExtractSchedule(b, inst, sol), nil
}
