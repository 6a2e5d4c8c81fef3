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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/factoryops/prodplan/aggplan"
	"github.com/factoryops/prodplan/mrp"
)

func TestReadForecasts(t *testing.T) {
	in := strings.NewReader(
		"reference,family,month_1,month_2\n" +
			"boot,leather,10,20\n" +
			"sandal,pvc,4,6\n")
	got, err := ReadForecasts(in)
	if err != nil {
		t.Fatalf("ReadForecasts() returned with unexpected error %v", err)
	}
	want := []ReferenceForecast{
		{Name: "boot", Family: "leather", Values: []float64{10, 20}},
		{Name: "sandal", Family: "pvc", Values: []float64{4, 6}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("forecasts mismatch (-want +got):\n%s", diff)
	}
}

func TestReadForecasts_Errors(t *testing.T) {
	testCases := []struct {
		name string
		in   string
	}{
		{name: "HeaderOnly", in: "reference,family,month_1\n"},
		{name: "NonNumeric", in: "reference,family,month_1\nboot,leather,ten\n"},
		{name: "TooFewColumns", in: "reference,family\nboot,leather\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadForecasts(strings.NewReader(tc.in)); err == nil {
				t.Error("ReadForecasts() = nil error, want error")
			}
		})
	}
}

func TestReadStocks(t *testing.T) {
	in := strings.NewReader("reference,final_inventory\nboot,30\nsandal,0\n")
	got, err := ReadStocks(in)
	if err != nil {
		t.Fatalf("ReadStocks() returned with unexpected error %v", err)
	}
	want := map[string]float64{"boot": 30, "sandal": 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stocks mismatch (-want +got):\n%s", diff)
	}
}

func TestReadStandardTimes(t *testing.T) {
	in := strings.NewReader(
		"reference,standard_time_per_unit,cost_per_unit\n" +
			"boot,2,3.5\n")
	got, err := ReadStandardTimes(in)
	if err != nil {
		t.Fatalf("ReadStandardTimes() returned with unexpected error %v", err)
	}
	want := map[string]StandardTime{"boot": {TimePerUnit: 2, UnitCost: 3.5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("standard times mismatch (-want +got):\n%s", diff)
	}
}

func TestReadHours(t *testing.T) {
	in := strings.NewReader(
		"period,cost_per_hour,cost_per_extra_hour,hours_available,extra_hours_available\n" +
			"1,1,1.5,120,40\n" +
			"2,1,1.5,120,40\n")
	got, err := ReadHours(in)
	if err != nil {
		t.Fatalf("ReadHours() returned with unexpected error %v", err)
	}
	want := &HourTables{
		CostPerHour:    [][]float64{{1, 1}, {1.5, 1.5}},
		AvailableHours: [][]float64{{120, 120}, {40, 40}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hour tables mismatch (-want +got):\n%s", diff)
	}
}

func TestReadItems(t *testing.T) {
	in := strings.NewReader(
		"name,stock,safety_stock,lot_size,order_cost,maintenance_rate,planned_receipt,receipt_period\n" +
			"sole,100,10,50,20,0.1,30,2\n")
	got, err := ReadItems(in)
	if err != nil {
		t.Fatalf("ReadItems() returned with unexpected error %v", err)
	}
	want := []mrp.Item{{
		Name:            "sole",
		Stock:           100,
		SafetyStock:     10,
		LotSize:         50,
		OrderCost:       20,
		MaintenanceRate: 0.1,
		PlannedReceipt:  30,
		ReceiptPeriod:   2,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestReadItems_BadReceiptPeriod(t *testing.T) {
	in := strings.NewReader(
		"name,stock,safety_stock,lot_size,order_cost,maintenance_rate,planned_receipt,receipt_period\n" +
			"sole,100,10,50,20,0.1,30,second\n")
	if _, err := ReadItems(in); err == nil {
		t.Error("ReadItems() = nil error, want error")
	}
}

func TestReadRequirements(t *testing.T) {
	in := strings.NewReader("parent,component,quantity\nboot,sole,2\n")
	got, err := ReadRequirements(in)
	if err != nil {
		t.Fatalf("ReadRequirements() returned with unexpected error %v", err)
	}
	want := []mrp.Requirement{{Parent: "boot", Component: "sole", Quantity: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("requirements mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildReferences(t *testing.T) {
	forecasts := []ReferenceForecast{
		{Name: "boot", Family: "leather", Values: []float64{10, 20}},
		{Name: "sandal", Family: "pvc", Values: []float64{4, 6}},
	}
	stocks := map[string]float64{"boot": 30}
	times := map[string]StandardTime{
		"boot":   {TimePerUnit: 2, UnitCost: 3},
		"sandal": {TimePerUnit: 0.5, UnitCost: 2},
	}
	got, err := BuildReferences(forecasts, stocks, times)
	if err != nil {
		t.Fatalf("BuildReferences() returned with unexpected error %v", err)
	}
	want := []aggplan.Reference{
		{Name: "boot", Family: "leather", OnHand: 30, Forecast: []float64{10, 20}, StandardTime: 2},
		// No stock row means zero on-hand inventory.
		{Name: "sandal", Family: "pvc", Forecast: []float64{4, 6}, StandardTime: 0.5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildReferences_MissingStandardTime(t *testing.T) {
	forecasts := []ReferenceForecast{{Name: "boot", Values: []float64{10}}}
	if _, err := BuildReferences(forecasts, nil, nil); err == nil {
		t.Error("BuildReferences() = nil error, want error")
	}
}
