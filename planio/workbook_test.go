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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/factoryops/prodplan/aggplan"
	"github.com/factoryops/prodplan/capacity"
	"github.com/factoryops/prodplan/jobshop"
	"github.com/factoryops/prodplan/lpmodel"
	"github.com/factoryops/prodplan/masterplan"
	"github.com/factoryops/prodplan/mrp"
)

func testResults(t *testing.T) *Results {
	t.Helper()
	demand, err := aggplan.Compute([]aggplan.Reference{
		{Name: "boot", Family: "leather", Forecast: []float64{10, 0}, StandardTime: 2},
		{Name: "sandal", Family: "pvc", Forecast: []float64{0, 5}, StandardTime: 1},
	})
	require.NoError(t, err)

	capPlan := &capacity.Plan{
		Status:      lpmodel.StatusOptimal,
		Cost:        25,
		HoursWorked: [][]float64{{20, 5}, {0, 0}},
		Coverage:    [][]float64{{20, 5}, {0, 0}},
	}
	master, err := masterplan.Compute(&masterplan.Input{
		Demand:        demand,
		HoursAssigned: capPlan.Coverage,
		CostPerHour:   [][]float64{{1, 1}, {1.5, 1.5}},
	})
	require.NoError(t, err)

	material, err := mrp.Compute(&mrp.BOM{
		Items: []mrp.Item{{Name: "boot", LotSize: 8, Stock: 5, OrderCost: 50}},
	}, map[string][]float64{"boot": {10, 0}}, 2)
	require.NoError(t, err)

	return &Results{
		Aggregate: demand,
		HourKinds: []string{"normal", "extra"},
		Capacity:  capPlan,
		Master:    master,
		Material:  material,
		Schedule: &jobshop.Schedule{
			Status:   lpmodel.StatusOptimal,
			Makespan: 7,
			Orders:   []string{"A", "B"},
			Starts:   [][]float64{{0, 2}, {2, 6}},
			Sequence: []string{"A", "B"},
		},
	}
}

func TestWriteResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, WriteResults(path, testResults(t)))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.ElementsMatch(t,
		[]string{SheetAggregatePlan, SheetAssignation, SheetMasterPlan, SheetOrderReleases, SheetSchedule},
		f.GetSheetList())

	cell := func(sheet, axis string) string {
		v, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return v
	}

	require.Equal(t, "family", cell(SheetAggregatePlan, "A1"))
	require.Equal(t, "leather", cell(SheetAggregatePlan, "A2"))
	// leather aggregate demand in period 1 is 10 net units at 2 hours.
	require.Equal(t, "20", cell(SheetAggregatePlan, "E2"))
	require.Equal(t, "Total aggregate demand", cell(SheetAggregatePlan, "A4"))

	require.Equal(t, "normal", cell(SheetAssignation, "A2"))
	require.Equal(t, "20", cell(SheetAssignation, "B2"))
	require.Equal(t, "total_cost", cell(SheetAssignation, "A4"))
	require.Equal(t, "25", cell(SheetAssignation, "B4"))

	require.Equal(t, "boot production normal hours", cell(SheetMasterPlan, "A2"))
	require.Equal(t, "10", cell(SheetMasterPlan, "B2"))
	require.Equal(t, "Total production normal hours", cell(SheetMasterPlan, "A6"))

	require.Equal(t, "boot", cell(SheetOrderReleases, "A2"))
	// Releases over periods 0..2: one lot of 8 before the horizon.
	require.Equal(t, "8", cell(SheetOrderReleases, "B2"))

	require.Equal(t, "A", cell(SheetSchedule, "A2"))
	require.Equal(t, "2", cell(SheetSchedule, "C2"))
	require.Equal(t, "makespan", cell(SheetSchedule, "A5"))
	require.Equal(t, "7", cell(SheetSchedule, "B5"))
}

func TestWriteResults_RequiresCorePlans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	err := WriteResults(path, &Results{})
	require.Error(t, err)
}

func writeOrdersWorkbook(t *testing.T, withAvailability bool) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "orders"))
	for _, cells := range [][]interface{}{
		{"A1", "order"}, {"B1", "press"}, {"C1", "finishing"},
		{"A2", "A"}, {"B2", 2}, {"C2", 3},
		{"A3", "B"}, {"B3", 4}, {"C3", 1},
	} {
		require.NoError(t, f.SetCellValue("orders", cells[0].(string), cells[1]))
	}
	if withAvailability {
		_, err := f.NewSheet("availability")
		require.NoError(t, err)
		for _, cells := range [][]interface{}{
			{"A1", "machine"}, {"B1", "hours_per_day"},
			{"A2", "press"}, {"B2", 8},
			{"A3", "finishing"}, {"B3", 8},
		} {
			require.NoError(t, f.SetCellValue("availability", cells[0].(string), cells[1]))
		}
	}
	path := filepath.Join(t.TempDir(), "orders.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadOrders(t *testing.T) {
	inst, err := ReadOrders(writeOrdersWorkbook(t, true))
	require.NoError(t, err)
	require.Equal(t, &jobshop.Instance{
		Orders:             []string{"A", "B"},
		ProcTimes:          [][]float64{{2, 3}, {4, 1}},
		MachineHoursPerDay: []float64{8, 8},
	}, inst)
}

func TestReadOrders_EmptyAvailabilitySheet(t *testing.T) {
	path := writeOrdersWorkbook(t, false)
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.NewSheet("availability")
	require.NoError(t, err)
	require.NoError(t, f.SaveAs(path))

	inst, err := ReadOrders(path)
	require.NoError(t, err)
	require.Nil(t, inst.MachineHoursPerDay)
}

func TestReadOrders_WithoutAvailability(t *testing.T) {
	inst, err := ReadOrders(writeOrdersWorkbook(t, false))
	require.NoError(t, err)
	require.Nil(t, inst.MachineHoursPerDay)
	require.Equal(t, [][]float64{{2, 3}, {4, 1}}, inst.ProcTimes)
}

func TestReadOrders_BadWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "nothing here"))
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, f.SaveAs(path))

	_, err := ReadOrders(path)
	require.Error(t, err)
}
