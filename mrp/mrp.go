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

// Package mrp computes lot-sized material requirement plans.
//
// Top-level items take their gross requirements from the master plan's
// production quantities; component requirements are exploded through the
// bill of materials from their parents' order releases. Each item's table
// spans the planning horizon plus a leading period zero that carries the
// initial stock and the release feeding period one's receipt.
package mrp

import (
	"fmt"
	"math"
)

// Item is one material with its inventory and ordering policy.
type Item struct {
	Name string
	// Stock is the inventory at the start of the horizon.
	Stock       float64
	SafetyStock float64
	// LotSize is the order multiple; receipts are rounded up to it.
	LotSize float64
	// OrderCost is charged in every period that releases an order.
	OrderCost float64
	// MaintenanceRate is the holding cost per unit of period-end stock.
	MaintenanceRate float64
	// PlannedReceipt arrives in ReceiptPeriod (1-based); zero period
	// means no scheduled receipt.
	PlannedReceipt float64
	ReceiptPeriod  int
}

// Requirement is one bill-of-materials edge: building one unit of Parent
// consumes Quantity units of Component.
type Requirement struct {
	Parent    string
	Component string
	Quantity  float64
}

// BOM is the item set and its requirement edges.
type BOM struct {
	Items        []Item
	Requirements []Requirement
}

// Row is one period of an item's requirement table. Quantities are kept
// at a tenth of a unit, matching the plan's reporting resolution.
type Row struct {
	Gross          float64
	PlannedReceipt float64
	Stock          float64
	Net            float64
	// Receipt is the lot-sized order arriving this period; Release is
	// the order placed this period, one period ahead of its receipt.
	Receipt float64
	Release float64
	// SetupCost applies when this period releases an order.
	SetupCost       float64
	MaintenanceCost float64
	ManagementCost  float64
}

// Table is one item's plan. Rows[0] is the pre-horizon period.
type Table struct {
	Item Item
	Rows []Row
}

// TotalManagementCost sums setup and maintenance over the horizon.
func (t *Table) TotalManagementCost() float64 {
	var total float64
	for _, row := range t.Rows {
		total += row.ManagementCost
	}
	return round1(total)
}

// Plan holds the item tables in dependency order, parents before their
// components.
type Plan struct {
	Periods int
	Tables  []Table
}

// Table returns the named item's table.
func (p *Plan) Table(name string) (*Table, bool) {
	for i := range p.Tables {
		if p.Tables[i].Item.Name == name {
			return &p.Tables[i], true
		}
	}
	return nil, false
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func (bom *BOM) validate(demand map[string][]float64, periods int) error {
	if periods <= 0 {
		return fmt.Errorf("material plan needs a positive horizon, got %d", periods)
	}
	if len(bom.Items) == 0 {
		return fmt.Errorf("bill of materials has no items")
	}
	byName := make(map[string]bool, len(bom.Items))
	for _, item := range bom.Items {
		if item.Name == "" {
			return fmt.Errorf("item with empty name")
		}
		if byName[item.Name] {
			return fmt.Errorf("duplicate item %q", item.Name)
		}
		byName[item.Name] = true
		if item.LotSize <= 0 {
			return fmt.Errorf("item %q has non-positive lot size %v", item.Name, item.LotSize)
		}
		if item.ReceiptPeriod < 0 || item.ReceiptPeriod > periods {
			return fmt.Errorf("item %q schedules a receipt in period %d, horizon is %d", item.Name, item.ReceiptPeriod, periods)
		}
	}
	for _, req := range bom.Requirements {
		if !byName[req.Parent] {
			return fmt.Errorf("requirement references unknown parent %q", req.Parent)
		}
		if !byName[req.Component] {
			return fmt.Errorf("requirement references unknown component %q", req.Component)
		}
		if req.Quantity <= 0 {
			return fmt.Errorf("requirement %q -> %q has non-positive quantity %v", req.Parent, req.Component, req.Quantity)
		}
	}
	for name, d := range demand {
		if !byName[name] {
			return fmt.Errorf("demand for unknown item %q", name)
		}
		if len(d) != periods {
			return fmt.Errorf("demand for %q covers %d periods, want %d", name, len(d), periods)
		}
	}
	return nil
}

// sortItems orders items so every parent precedes its components,
// preserving the input order among independent items.
func (bom *BOM) sortItems() ([]Item, error) {
	incoming := make(map[string]int, len(bom.Items))
	for _, req := range bom.Requirements {
		incoming[req.Component]++
	}
	sorted := make([]Item, 0, len(bom.Items))
	pending := append([]Item(nil), bom.Items...)
	for len(pending) > 0 {
		progressed := false
		rest := pending[:0]
		for _, item := range pending {
			if incoming[item.Name] > 0 {
				rest = append(rest, item)
				continue
			}
			sorted = append(sorted, item)
			progressed = true
			for _, req := range bom.Requirements {
				if req.Parent == item.Name {
					incoming[req.Component]--
				}
			}
		}
		if !progressed {
			return nil, fmt.Errorf("bill of materials has a requirement cycle involving %q", rest[0].Name)
		}
		pending = rest
	}
	return sorted, nil
}

// Compute runs the lot-sizing recursion over the bill of materials.
// demand gives top-level items their per-period gross requirements in
// units; exploded component requirements are added on top.
func Compute(bom *BOM, demand map[string][]float64, periods int) (*Plan, error) {
	if err := bom.validate(demand, periods); err != nil {
		return nil, err
	}
	items, err := bom.sortItems()
	if err != nil {
		return nil, err
	}

	plan := &Plan{Periods: periods, Tables: make([]Table, 0, len(items))}
	release := make(map[string][]float64, len(items))

	for _, item := range items {
		rows := make([]Row, periods+1)
		rows[0].Stock = round1(item.Stock)
		if item.ReceiptPeriod >= 1 {
			rows[item.ReceiptPeriod].PlannedReceipt = round1(item.PlannedReceipt)
		}
		for m := 1; m <= periods; m++ {
			gross := 0.0
			if d := demand[item.Name]; d != nil {
				gross += d[m-1]
			}
			// Releases in period zero are placed before the horizon;
			// their component demand falls outside the plan.
			for _, req := range bom.Requirements {
				if req.Component == item.Name {
					gross += req.Quantity * release[req.Parent][m]
				}
			}
			rows[m].Gross = round1(gross)
		}

		for m := 1; m <= periods; m++ {
			net := round1(rows[m].Gross + item.SafetyStock - rows[m-1].Stock - rows[m].PlannedReceipt)
			if net < 0 {
				net = 0
			}
			receipt := round1(math.Ceil(net/item.LotSize) * item.LotSize)
			rows[m].Net = net
			rows[m].Receipt = receipt
			rows[m-1].Release = receipt
			rows[m].Stock = round1(rows[m-1].Stock + receipt - rows[m].Gross + rows[m].PlannedReceipt)
		}

		for m := 1; m <= periods; m++ {
			if rows[m].Release > 0 {
				rows[m].SetupCost = round1(item.OrderCost)
			}
			rows[m].MaintenanceCost = round1(rows[m].Stock * item.MaintenanceRate)
			rows[m].ManagementCost = rows[m].SetupCost + rows[m].MaintenanceCost
		}

		releases := make([]float64, periods+1)
		for m := range rows {
			releases[m] = rows[m].Release
		}
		release[item.Name] = releases
		plan.Tables = append(plan.Tables, Table{Item: item, Rows: rows})
	}
	return plan, nil
}

// TotalManagementCost sums the inventory management cost of every item.
func (p *Plan) TotalManagementCost() float64 {
	var total float64
	for i := range p.Tables {
		total += p.Tables[i].TotalManagementCost()
	}
	return round1(total)
}
