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

package aggplan

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompute_NetsInventoryForward(t *testing.T) {
	refs := []Reference{
		{
			Name:         "boot",
			Family:       "leather",
			OnHand:       30,
			Forecast:     []float64{20, 25, 10},
			StandardTime: 2,
		},
	}
	plan, err := Compute(refs)
	if err != nil {
		t.Fatalf("Compute() returned with unexpected error %v", err)
	}

	want := []Row{
		// Period 1: stock 30 covers the 20 forecast fully.
		{Forecast: 20, InitialInventory: 30, FinalInventory: 10},
		// Period 2: stock 10 covers part of 25; 15 must be produced.
		{Forecast: 25, InitialInventory: 10, NetDemand: 15, AggregateDemand: 30},
		// Period 3: stock is exhausted, the whole forecast is net.
		{Forecast: 10, NetDemand: 10, AggregateDemand: 20},
	}
	if diff := cmp.Diff(want, plan.References[0].Rows); diff != "" {
		t.Errorf("Rows mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_Validation(t *testing.T) {
	valid := func() []Reference {
		return []Reference{
			{Name: "a", Forecast: []float64{5, 5}, StandardTime: 1},
			{Name: "b", Forecast: []float64{3, 0}, StandardTime: 2},
		}
	}
	testCases := []struct {
		name   string
		mutate func([]Reference) []Reference
	}{
		{name: "NoReferences", mutate: func([]Reference) []Reference { return nil }},
		{name: "EmptyForecast", mutate: func(refs []Reference) []Reference {
			refs[0].Forecast = nil
			return refs
		}},
		{name: "EmptyName", mutate: func(refs []Reference) []Reference {
			refs[1].Name = ""
			return refs
		}},
		{name: "DuplicateName", mutate: func(refs []Reference) []Reference {
			refs[1].Name = "a"
			return refs
		}},
		{name: "HorizonMismatch", mutate: func(refs []Reference) []Reference {
			refs[1].Forecast = []float64{3}
			return refs
		}},
		{name: "NegativeOnHand", mutate: func(refs []Reference) []Reference {
			refs[0].OnHand = -1
			return refs
		}},
		{name: "NegativeStandardTime", mutate: func(refs []Reference) []Reference {
			refs[0].StandardTime = -1
			return refs
		}},
		{name: "NegativeForecast", mutate: func(refs []Reference) []Reference {
			refs[1].Forecast[0] = -3
			return refs
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Compute(tc.mutate(valid())); err == nil {
				t.Error("Compute() = nil error, want error")
			}
		})
	}
}

func TestPlan_TotalPerPeriod(t *testing.T) {
	refs := []Reference{
		{Name: "boot", Family: "leather", OnHand: 5, Forecast: []float64{10, 0}, StandardTime: 2},
		{Name: "sandal", Family: "pvc", Forecast: []float64{4, 6}, StandardTime: 0.5},
	}
	plan, err := Compute(refs)
	if err != nil {
		t.Fatalf("Compute() returned with unexpected error %v", err)
	}
	// boot: net 5 and 0 at 2h each; sandal: net 4 and 6 at 0.5h each.
	want := []float64{12, 3}
	if diff := cmp.Diff(want, plan.TotalPerPeriod()); diff != "" {
		t.Errorf("TotalPerPeriod() mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_FamilyTotals(t *testing.T) {
	refs := []Reference{
		{Name: "boot", Family: "leather", Forecast: []float64{2}, StandardTime: 1},
		{Name: "loafer", Family: "leather", Forecast: []float64{3}, StandardTime: 1},
		{Name: "sandal", Family: "pvc", Forecast: []float64{4}, StandardTime: 1},
	}
	plan, err := Compute(refs)
	if err != nil {
		t.Fatalf("Compute() returned with unexpected error %v", err)
	}
	totals := plan.FamilyTotals()
	if len(totals) != 2 {
		t.Fatalf("len(FamilyTotals()) = %d, want 2", len(totals))
	}
	if got, want := totals[0].Reference.Family, "leather"; got != want {
		t.Errorf("families not sorted: first = %q, want %q", got, want)
	}
	if got, want := totals[0].Rows[0].NetDemand, 5.0; got != want {
		t.Errorf("leather net demand = %v, want %v", got, want)
	}
	if got, want := totals[1].Rows[0].NetDemand, 4.0; got != want {
		t.Errorf("pvc net demand = %v, want %v", got, want)
	}
}
