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

// Package aggplan turns per-reference forecasts and on-hand inventory into
// the aggregate hour demand that drives the capacity plan.
//
// For every product reference the forecast is netted against inventory
// period by period: stock absorbs demand until it runs out, the shortfall
// becomes net demand, and stock never goes negative. Net demand times the
// reference's standard production time gives aggregate demand in hours,
// and the per-period totals across all references are what the capacity
// model covers.
package aggplan

import (
	"fmt"
	"sort"
)

// Reference is one planned product with its forecast horizon.
type Reference struct {
	Name   string
	Family string
	// OnHand is the inventory available before the first period.
	OnHand float64
	// Forecast holds the demanded units per period.
	Forecast []float64
	// StandardTime is the production hours needed per unit.
	StandardTime float64
}

// Row is the netting result of one reference in one period.
type Row struct {
	Forecast         float64
	InitialInventory float64
	FinalInventory   float64
	NetDemand        float64
	// AggregateDemand is NetDemand expressed in production hours.
	AggregateDemand float64
}

// ReferenceDemand pairs a reference with its per-period netting rows.
type ReferenceDemand struct {
	Reference Reference
	Rows      []Row
}

// Plan is the aggregate demand of a set of references over a common
// horizon. References keep their input order.
type Plan struct {
	Periods    int
	References []ReferenceDemand
}

func validate(refs []Reference) (int, error) {
	if len(refs) == 0 {
		return 0, fmt.Errorf("aggregate plan needs at least one reference")
	}
	periods := len(refs[0].Forecast)
	if periods == 0 {
		return 0, fmt.Errorf("reference %q has an empty forecast", refs[0].Name)
	}
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref.Name == "" {
			return 0, fmt.Errorf("reference with empty name")
		}
		if seen[ref.Name] {
			return 0, fmt.Errorf("duplicate reference %q", ref.Name)
		}
		seen[ref.Name] = true
		if len(ref.Forecast) != periods {
			return 0, fmt.Errorf("reference %q forecasts %d periods, want %d", ref.Name, len(ref.Forecast), periods)
		}
		if ref.OnHand < 0 {
			return 0, fmt.Errorf("reference %q has negative on-hand inventory %v", ref.Name, ref.OnHand)
		}
		if ref.StandardTime < 0 {
			return 0, fmt.Errorf("reference %q has negative standard time %v", ref.Name, ref.StandardTime)
		}
		for i, f := range ref.Forecast {
			if f < 0 {
				return 0, fmt.Errorf("reference %q has negative forecast %v in period %d", ref.Name, f, i+1)
			}
		}
	}
	return periods, nil
}

// Compute nets every reference's forecast against its inventory and
// converts the shortfall to aggregate hours. All references must forecast
// the same number of periods.
func Compute(refs []Reference) (*Plan, error) {
	periods, err := validate(refs)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		Periods:    periods,
		References: make([]ReferenceDemand, len(refs)),
	}
	for r, ref := range refs {
		rows := make([]Row, periods)
		inventory := ref.OnHand
		for i, forecast := range ref.Forecast {
			row := Row{Forecast: forecast, InitialInventory: inventory}
			remaining := inventory - forecast
			if remaining >= 0 {
				row.FinalInventory = remaining
			} else {
				row.NetDemand = -remaining
			}
			row.AggregateDemand = row.NetDemand * ref.StandardTime
			rows[i] = row
			inventory = row.FinalInventory
		}
		plan.References[r] = ReferenceDemand{Reference: ref, Rows: rows}
	}
	return plan, nil
}

// TotalPerPeriod sums the aggregate hour demand over all references. The
// result feeds the capacity model's demand vector.
func (p *Plan) TotalPerPeriod() []float64 {
	totals := make([]float64, p.Periods)
	for _, rd := range p.References {
		for i, row := range rd.Rows {
			totals[i] += row.AggregateDemand
		}
	}
	return totals
}

// FamilyTotals aggregates the netting rows by product family, families
// sorted by name. Used by the plan exports.
func (p *Plan) FamilyTotals() []ReferenceDemand {
	byFamily := make(map[string][]Row)
	for _, rd := range p.References {
		rows := byFamily[rd.Reference.Family]
		if rows == nil {
			rows = make([]Row, p.Periods)
		}
		for i, row := range rd.Rows {
			rows[i].Forecast += row.Forecast
			rows[i].InitialInventory += row.InitialInventory
			rows[i].FinalInventory += row.FinalInventory
			rows[i].NetDemand += row.NetDemand
			rows[i].AggregateDemand += row.AggregateDemand
		}
		byFamily[rd.Reference.Family] = rows
	}
	families := make([]string, 0, len(byFamily))
	for f := range byFamily {
		families = append(families, f)
	}
	sort.Strings(families)
	totals := make([]ReferenceDemand, len(families))
	for i, f := range families {
		totals[i] = ReferenceDemand{Reference: Reference{Name: f, Family: f}, Rows: byFamily[f]}
	}
	return totals
}
