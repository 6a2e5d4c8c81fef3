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

// Package masterplan disaggregates the capacity plan's hour assignation
// back into per-reference production quantities and costs them.
//
// Each reference receives the share of the assigned hours proportional to
// its contribution to the period's aggregate demand. Hours divided by the
// reference's standard time give production units per hour kind, from
// which deficit and the cost breakdown follow.
package masterplan

import (
	"fmt"

	"github.com/factoryops/prodplan/aggplan"
)

// The hour-kind rows of the assignation and cost tables. The master plan
// is defined on exactly these two kinds.
const (
	KindNormal = 0
	KindExtra  = 1

	numKinds = 2
)

// Input collects everything the disaggregation needs.
type Input struct {
	// Demand is the aggregate plan the capacity model was solved for.
	Demand *aggplan.Plan
	// HoursAssigned[kind][period] is the solved hour assignation grouped by
	// the demand period the hours serve, the capacity plan's Coverage.
	// Hours grouped by work period would misplace produce-ahead hours into
	// periods whose demand they do not serve.
	HoursAssigned [][]float64
	// CostPerHour[kind][period] is the wage table used by the capacity
	// model.
	CostPerHour [][]float64
	// UnitCost maps a reference to its raw material cost per unit.
	UnitCost map[string]float64
	// Stock maps a reference to its current final inventory, used for
	// the deficit computation.
	Stock map[string]float64
	// HoldingCost is the cost of holding one unit-hour of inventory for
	// one period.
	HoldingCost float64
	// DeficitCost is the penalty per unit of unmet forecast.
	DeficitCost float64
}

// Row is the master plan of one reference in one period.
type Row struct {
	Forecast         float64
	InitialInventory float64
	AggregateDemand  float64
	// Share is this reference's fraction of the period's total aggregate
	// demand. Zero when the period has no demand at all.
	Share       float64
	NormalHours float64
	ExtraHours  float64
	// NormalProduction and ExtraProduction are units, hours divided by
	// the reference's standard time.
	NormalProduction float64
	ExtraProduction  float64
	// Deficit is stock plus production minus forecast. Negative means
	// the forecast is not covered.
	Deficit           float64
	LaborCost         float64
	MaterialCost      float64
	ManufacturingCost float64
	InventoryCost     float64
	DeficitCost       float64
	// Overrun is the extra-hour wage premium over the normal rate.
	Overrun       float64
	OperationCost float64
	TotalCost     float64
}

// ReferencePlan is one reference's master plan over the horizon.
type ReferencePlan struct {
	Name   string
	Family string
	Rows   []Row
}

// Plan is the full master production schedule.
type Plan struct {
	References []ReferencePlan
	// TotalProduction is the unit total over all references and periods.
	TotalProduction float64
	// TotalCost sums every reference's per-period total cost.
	TotalCost float64
}

func (in *Input) validate() error {
	if in.Demand == nil || len(in.Demand.References) == 0 {
		return fmt.Errorf("master plan needs an aggregate demand plan")
	}
	periods := in.Demand.Periods
	for name, table := range map[string][][]float64{
		"hour assignation": in.HoursAssigned,
		"cost per hour":    in.CostPerHour,
	} {
		if len(table) != numKinds {
			return fmt.Errorf("%s has %d hour kinds, want %d", name, len(table), numKinds)
		}
		for k, row := range table {
			if len(row) != periods {
				return fmt.Errorf("%s kind %d covers %d periods, want %d", name, k, len(row), periods)
			}
		}
	}
	if in.DeficitCost < 0 {
		return fmt.Errorf("negative deficit cost %v", in.DeficitCost)
	}
	return nil
}

// Compute disaggregates the hour assignation and produces the costed
// master plan. References keep the aggregate plan's order.
func Compute(in *Input) (*Plan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	periods := in.Demand.Periods
	totals := in.Demand.TotalPerPeriod()
	plan := &Plan{References: make([]ReferencePlan, len(in.Demand.References))}

	for r, rd := range in.Demand.References {
		ref := rd.Reference
		rows := make([]Row, periods)
		for i, src := range rd.Rows {
			row := Row{
				Forecast:         src.Forecast,
				InitialInventory: src.InitialInventory,
				AggregateDemand:  src.AggregateDemand,
			}
			if totals[i] != 0 {
				row.Share = src.AggregateDemand / totals[i]
			}
			row.NormalHours = in.HoursAssigned[KindNormal][i] * row.Share
			row.ExtraHours = in.HoursAssigned[KindExtra][i] * row.Share
			if ref.StandardTime != 0 {
				row.NormalProduction = row.NormalHours / ref.StandardTime
				row.ExtraProduction = row.ExtraHours / ref.StandardTime
			}
			production := row.NormalProduction + row.ExtraProduction
			plan.TotalProduction += production

			normalRate := in.CostPerHour[KindNormal][i]
			row.Deficit = in.Stock[ref.Name] + production - row.Forecast
			row.LaborCost = production * normalRate * ref.StandardTime
			row.MaterialCost = production * in.UnitCost[ref.Name]
			row.ManufacturingCost = row.LaborCost + row.MaterialCost
			row.InventoryCost = row.InitialInventory * in.HoldingCost * ref.StandardTime
			row.DeficitCost = row.Deficit * in.DeficitCost
			row.Overrun = row.ExtraProduction * ref.StandardTime * (in.CostPerHour[KindExtra][i] - normalRate)
			row.OperationCost = row.InventoryCost + row.DeficitCost + row.Overrun
			row.TotalCost = row.OperationCost + row.ManufacturingCost
			plan.TotalCost += row.TotalCost
			rows[i] = row
		}
		plan.References[r] = ReferencePlan{Name: ref.Name, Family: ref.Family, Rows: rows}
	}
	return plan, nil
}

// ProductionPerPeriod sums production units per period over all
// references, split by hour kind. Used by the plan exports.
func (p *Plan) ProductionPerPeriod() (normal, extra []float64) {
	if len(p.References) == 0 {
		return nil, nil
	}
	periods := len(p.References[0].Rows)
	normal = make([]float64, periods)
	extra = make([]float64, periods)
	for _, rp := range p.References {
		for i, row := range rp.Rows {
			normal[i] += row.NormalProduction
			extra[i] += row.ExtraProduction
		}
	}
	return normal, extra
}
