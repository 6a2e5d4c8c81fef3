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

package planio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/factoryops/prodplan/aggplan"
	"github.com/factoryops/prodplan/capacity"
	"github.com/factoryops/prodplan/jobshop"
	"github.com/factoryops/prodplan/masterplan"
	"github.com/factoryops/prodplan/mrp"
)

// Sheet names of the result workbook.
const (
	SheetAggregatePlan = "agg_prod_plan"
	SheetAssignation   = "time_assignation"
	SheetMasterPlan    = "prod_master_plan"
	SheetOrderReleases = "order_releases"
	SheetSchedule      = "schedule"

	// ordersSheet and availabilitySheet name the scheduling input
	// workbook's sheets.
	ordersSheet       = "orders"
	availabilitySheet = "availability"
)

// Results collects every stage's output for the workbook export. Master,
// Material and Schedule may be nil; their sheets are then omitted.
type Results struct {
	Aggregate *aggplan.Plan
	// HourKinds labels the capacity plan's hour kind rows.
	HourKinds []string
	Capacity  *capacity.Plan
	Master    *masterplan.Plan
	Material  *mrp.Plan
	Schedule  *jobshop.Schedule
}

// sheetWriter writes rows into one sheet, keeping the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) setRow(row int, values ...interface{}) {
	for col, v := range values {
		if w.err != nil {
			return
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			w.err = err
			return
		}
		w.err = w.f.SetCellValue(w.sheet, cell, v)
	}
}

func newSheet(f *excelize.File, name string) (*sheetWriter, error) {
	if _, err := f.NewSheet(name); err != nil {
		return nil, fmt.Errorf("creating sheet %s: %w", name, err)
	}
	return &sheetWriter{f: f, sheet: name}, nil
}

// WriteResults exports the plan results as a multi-sheet workbook.
func WriteResults(path string, res *Results) error {
	if res.Aggregate == nil || res.Capacity == nil {
		return fmt.Errorf("workbook export needs at least the aggregate and capacity plans")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := writeAggregateSheet(f, res.Aggregate); err != nil {
		return err
	}
	if err := writeAssignationSheet(f, res.HourKinds, res.Capacity); err != nil {
		return err
	}
	if res.Master != nil {
		if err := writeMasterSheet(f, res.Master); err != nil {
			return err
		}
	}
	if res.Material != nil {
		if err := writeReleasesSheet(f, res.Material); err != nil {
			return err
		}
	}
	if res.Schedule != nil {
		if err := writeScheduleSheet(f, res.Schedule); err != nil {
			return err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("dropping default sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func writeAggregateSheet(f *excelize.File, plan *aggplan.Plan) error {
	w, err := newSheet(f, SheetAggregatePlan)
	if err != nil {
		return err
	}
	header := []interface{}{"family"}
	for i := 1; i <= plan.Periods; i++ {
		header = append(header,
			fmt.Sprintf("month_%d_initial_inventory", i),
			fmt.Sprintf("month_%d_forecast", i),
			fmt.Sprintf("month_%d_final_inventory", i),
			fmt.Sprintf("month_%d_agg_demand", i),
		)
	}
	w.setRow(1, header...)

	families := plan.FamilyTotals()
	totals := make([]aggplan.Row, plan.Periods)
	for r, fam := range families {
		row := []interface{}{fam.Reference.Family}
		for i, cell := range fam.Rows {
			row = append(row, cell.InitialInventory, cell.Forecast, cell.FinalInventory, cell.AggregateDemand)
			totals[i].InitialInventory += cell.InitialInventory
			totals[i].Forecast += cell.Forecast
			totals[i].FinalInventory += cell.FinalInventory
			totals[i].AggregateDemand += cell.AggregateDemand
		}
		w.setRow(r+2, row...)
	}
	total := []interface{}{"Total aggregate demand"}
	for _, cell := range totals {
		total = append(total, cell.InitialInventory, cell.Forecast, cell.FinalInventory, cell.AggregateDemand)
	}
	w.setRow(len(families)+2, total...)
	return w.err
}

func writeAssignationSheet(f *excelize.File, kinds []string, plan *capacity.Plan) error {
	w, err := newSheet(f, SheetAssignation)
	if err != nil {
		return err
	}
	periods := 0
	if len(plan.HoursWorked) > 0 {
		periods = len(plan.HoursWorked[0])
	}
	header := []interface{}{"hour_kind"}
	for i := 1; i <= periods; i++ {
		header = append(header, fmt.Sprintf("month_%d", i))
	}
	w.setRow(1, header...)
	for k, hours := range plan.HoursWorked {
		name := fmt.Sprintf("kind_%d", k+1)
		if k < len(kinds) {
			name = kinds[k]
		}
		row := []interface{}{name}
		for _, h := range hours {
			row = append(row, h)
		}
		w.setRow(k+2, row...)
	}
	w.setRow(len(plan.HoursWorked)+2, "total_cost", plan.Cost)
	return w.err
}

func writeMasterSheet(f *excelize.File, plan *masterplan.Plan) error {
	w, err := newSheet(f, SheetMasterPlan)
	if err != nil {
		return err
	}
	periods := 0
	if len(plan.References) > 0 {
		periods = len(plan.References[0].Rows)
	}
	header := []interface{}{"production"}
	for i := 1; i <= periods; i++ {
		header = append(header, fmt.Sprintf("month_%d", i))
	}
	w.setRow(1, header...)

	row := 2
	for _, rp := range plan.References {
		normal := []interface{}{rp.Name + " production normal hours"}
		extra := []interface{}{rp.Name + " production extra hours"}
		for _, r := range rp.Rows {
			normal = append(normal, r.NormalProduction)
			extra = append(extra, r.ExtraProduction)
		}
		w.setRow(row, normal...)
		w.setRow(row+1, extra...)
		row += 2
	}
	normal, extra := plan.ProductionPerPeriod()
	totalNormal := []interface{}{"Total production normal hours"}
	totalExtra := []interface{}{"Total production extra hours"}
	for i := 0; i < periods; i++ {
		totalNormal = append(totalNormal, normal[i])
		totalExtra = append(totalExtra, extra[i])
	}
	w.setRow(row, totalNormal...)
	w.setRow(row+1, totalExtra...)
	w.setRow(row+2, "total_cost", plan.TotalCost)
	return w.err
}

func writeReleasesSheet(f *excelize.File, plan *mrp.Plan) error {
	w, err := newSheet(f, SheetOrderReleases)
	if err != nil {
		return err
	}
	header := []interface{}{"component"}
	for i := 0; i <= plan.Periods; i++ {
		header = append(header, fmt.Sprintf("month_%d", i))
	}
	header = append(header, "total_inventory_management_cost")
	w.setRow(1, header...)
	for i := range plan.Tables {
		table := &plan.Tables[i]
		row := []interface{}{table.Item.Name}
		for _, r := range table.Rows {
			row = append(row, r.Release)
		}
		row = append(row, table.TotalManagementCost())
		w.setRow(i+2, row...)
	}
	return w.err
}

func writeScheduleSheet(f *excelize.File, sched *jobshop.Schedule) error {
	w, err := newSheet(f, SheetSchedule)
	if err != nil {
		return err
	}
	machines := 0
	if len(sched.Starts) > 0 {
		machines = len(sched.Starts[0])
	}
	header := []interface{}{"order"}
	for m := 1; m <= machines; m++ {
		header = append(header, fmt.Sprintf("machine_%d_start", m))
	}
	if sched.FinishDays != nil {
		for m := 1; m <= machines; m++ {
			header = append(header, fmt.Sprintf("machine_%d_finish_day", m))
		}
	}
	w.setRow(1, header...)
	for o, name := range sched.Orders {
		row := []interface{}{name}
		for _, start := range sched.Starts[o] {
			row = append(row, start)
		}
		if sched.FinishDays != nil {
			for _, day := range sched.FinishDays[o] {
				row = append(row, day)
			}
		}
		w.setRow(o+2, row...)
	}
	w.setRow(len(sched.Orders)+2, "sequence", strings.Join(sched.Sequence, ", "))
	w.setRow(len(sched.Orders)+3, "makespan", sched.Makespan)
	return w.err
}

// ReadOrders loads a scheduling instance from a workbook. The orders
// sheet has a header row (order name column, then one column per
// machine) and one row per order with processing times. An optional
// availability sheet lists hours per day, one row per machine in machine
// order.
func ReadOrders(path string) (*jobshop.Instance, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening orders workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(ordersSheet)
	if err != nil {
		return nil, fmt.Errorf("reading %s sheet: %w", ordersSheet, err)
	}
	if len(rows) < 2 || len(rows[0]) < 2 {
		return nil, fmt.Errorf("%s sheet needs a header and at least one order row", ordersSheet)
	}
	machines := len(rows[0]) - 1
	inst := &jobshop.Instance{}
	for i, row := range rows[1:] {
		if len(row) != machines+1 {
			return nil, fmt.Errorf("%s sheet row %d has %d cells, want %d", ordersSheet, i+2, len(row), machines+1)
		}
		inst.Orders = append(inst.Orders, row[0])
		times := make([]float64, machines)
		for m, cell := range row[1:] {
			if times[m], err = strconv.ParseFloat(cell, 64); err != nil {
				return nil, fmt.Errorf("%s sheet row %d: %w", ordersSheet, i+2, err)
			}
		}
		inst.ProcTimes = append(inst.ProcTimes, times)
	}

	if idx, err := f.GetSheetIndex(availabilitySheet); err == nil && idx >= 0 {
		rows, err := f.GetRows(availabilitySheet)
		if err != nil {
			return nil, fmt.Errorf("reading %s sheet: %w", availabilitySheet, err)
		}
		// An empty sheet means no per-machine hours were provided; the
		// first row, when present, is the header.
		for i, row := range rows {
			if i == 0 {
				continue
			}
			if len(row) < 2 {
				return nil, fmt.Errorf("%s sheet row %d has no hours cell", availabilitySheet, i+1)
			}
			hours, err := strconv.ParseFloat(row[1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s sheet row %d: %w", availabilitySheet, i+1, err)
			}
			inst.MachineHoursPerDay = append(inst.MachineHoursPerDay, hours)
		}
	}

	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("orders workbook: %w", err)
	}
	return inst, nil
}
