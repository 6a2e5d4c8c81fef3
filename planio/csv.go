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

// Package planio reads planning input tables and writes plan result
// workbooks.
//
// Inputs are plain CSV: a forecast table (reference, family, one column
// per period), a stock table, a standard time table, and an hour table
// with per-period costs and availability for normal and extra hours.
// Results are exported as multi-sheet xlsx workbooks.
package planio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/factoryops/prodplan/aggplan"
	"github.com/factoryops/prodplan/mrp"
)

// ReferenceForecast is one row of the forecast table.
type ReferenceForecast struct {
	Name   string
	Family string
	Values []float64
}

// StandardTime is one row of the standard time table.
type StandardTime struct {
	TimePerUnit float64
	UnitCost    float64
}

// HourTables holds the per-period wage and availability data for the two
// hour kinds, normal first.
type HourTables struct {
	CostPerHour    [][]float64
	AvailableHours [][]float64
}

func readTable(r io.Reader, what string, minColumns int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s table: %w", what, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s table has no data rows", what)
	}
	for i, row := range rows {
		if len(row) < minColumns {
			return nil, fmt.Errorf("%s table row %d has %d columns, want at least %d", what, i+1, len(row), minColumns)
		}
	}
	return rows[1:], nil
}

func parseFloat(what string, row int, field string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("%s table row %d: %w", what, row, err)
	}
	return v, nil
}

// ReadForecasts parses the forecast table, keeping row order. The header
// is reference, family, then one column per period.
func ReadForecasts(r io.Reader) ([]ReferenceForecast, error) {
	rows, err := readTable(r, "forecast", 3)
	if err != nil {
		return nil, err
	}
	periods := len(rows[0]) - 2
	forecasts := make([]ReferenceForecast, len(rows))
	for i, row := range rows {
		if len(row)-2 != periods {
			return nil, fmt.Errorf("forecast table row %d has %d periods, want %d", i+2, len(row)-2, periods)
		}
		f := ReferenceForecast{Name: row[0], Family: row[1], Values: make([]float64, periods)}
		for j, field := range row[2:] {
			if f.Values[j], err = parseFloat("forecast", i+2, field); err != nil {
				return nil, err
			}
		}
		forecasts[i] = f
	}
	return forecasts, nil
}

// ReadStocks parses the stock table: reference, final inventory.
func ReadStocks(r io.Reader) (map[string]float64, error) {
	rows, err := readTable(r, "stock", 2)
	if err != nil {
		return nil, err
	}
	stocks := make(map[string]float64, len(rows))
	for i, row := range rows {
		if stocks[row[0]], err = parseFloat("stock", i+2, row[1]); err != nil {
			return nil, err
		}
	}
	return stocks, nil
}

// ReadStandardTimes parses the standard time table: reference, standard
// time per unit, cost per unit.
func ReadStandardTimes(r io.Reader) (map[string]StandardTime, error) {
	rows, err := readTable(r, "standard time", 3)
	if err != nil {
		return nil, err
	}
	times := make(map[string]StandardTime, len(rows))
	for i, row := range rows {
		var st StandardTime
		if st.TimePerUnit, err = parseFloat("standard time", i+2, row[1]); err != nil {
			return nil, err
		}
		if st.UnitCost, err = parseFloat("standard time", i+2, row[2]); err != nil {
			return nil, err
		}
		times[row[0]] = st
	}
	return times, nil
}

// ReadHours parses the hour table. Columns: period, cost per hour, cost
// per extra hour, hours available, extra hours available; one row per
// period in order.
func ReadHours(r io.Reader) (*HourTables, error) {
	rows, err := readTable(r, "hour", 5)
	if err != nil {
		return nil, err
	}
	periods := len(rows)
	tables := &HourTables{
		CostPerHour:    [][]float64{make([]float64, periods), make([]float64, periods)},
		AvailableHours: [][]float64{make([]float64, periods), make([]float64, periods)},
	}
	for i, row := range rows {
		for col, dst := range []*float64{
			&tables.CostPerHour[0][i],
			&tables.CostPerHour[1][i],
			&tables.AvailableHours[0][i],
			&tables.AvailableHours[1][i],
		} {
			if *dst, err = parseFloat("hour", i+2, row[col+1]); err != nil {
				return nil, err
			}
		}
	}
	return tables, nil
}

// ReadItems parses the material item table. Columns: name, stock, safety
// stock, lot size, order cost, maintenance rate, planned receipt, receipt
// period.
func ReadItems(r io.Reader) ([]mrp.Item, error) {
	rows, err := readTable(r, "item", 8)
	if err != nil {
		return nil, err
	}
	items := make([]mrp.Item, len(rows))
	for i, row := range rows {
		item := mrp.Item{Name: row[0]}
		for col, dst := range []*float64{
			&item.Stock, &item.SafetyStock, &item.LotSize,
			&item.OrderCost, &item.MaintenanceRate, &item.PlannedReceipt,
		} {
			if *dst, err = parseFloat("item", i+2, row[col+1]); err != nil {
				return nil, err
			}
		}
		if item.ReceiptPeriod, err = strconv.Atoi(row[7]); err != nil {
			return nil, fmt.Errorf("item table row %d: %w", i+2, err)
		}
		items[i] = item
	}
	return items, nil
}

// ReadRequirements parses the bill-of-materials edge table: parent,
// component, quantity.
func ReadRequirements(r io.Reader) ([]mrp.Requirement, error) {
	rows, err := readTable(r, "requirement", 3)
	if err != nil {
		return nil, err
	}
	reqs := make([]mrp.Requirement, len(rows))
	for i, row := range rows {
		req := mrp.Requirement{Parent: row[0], Component: row[1]}
		if req.Quantity, err = parseFloat("requirement", i+2, row[2]); err != nil {
			return nil, err
		}
		reqs[i] = req
	}
	return reqs, nil
}

// BuildReferences joins the three input tables into the aggregate plan's
// reference list. A reference without a stock row starts with zero
// inventory; a missing standard time row is an error.
func BuildReferences(forecasts []ReferenceForecast, stocks map[string]float64, times map[string]StandardTime) ([]aggplan.Reference, error) {
	refs := make([]aggplan.Reference, len(forecasts))
	for i, f := range forecasts {
		st, ok := times[f.Name]
		if !ok {
			return nil, fmt.Errorf("reference %q has no standard time row", f.Name)
		}
		refs[i] = aggplan.Reference{
			Name:         f.Name,
			Family:       f.Family,
			OnHand:       stocks[f.Name],
			Forecast:     f.Values,
			StandardTime: st.TimePerUnit,
		}
	}
	return refs, nil
}
