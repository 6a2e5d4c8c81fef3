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

// The prodplan command runs the production planning pipeline: aggregate
// demand, the capacity LP, the master production schedule, the material
// requirement plan, and optionally a flow-shop schedule, exporting the
// results as a workbook.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/factoryops/prodplan/aggplan"
	"github.com/factoryops/prodplan/capacity"
	"github.com/factoryops/prodplan/jobshop"
	"github.com/factoryops/prodplan/lpmodel"
	"github.com/factoryops/prodplan/masterplan"
	"github.com/factoryops/prodplan/mrp"
	"github.com/factoryops/prodplan/planio"
)

var configPath = flag.String("config", "prodplan.yaml", "path to the run configuration")

// config is the YAML run configuration.
type config struct {
	Inputs struct {
		Forecasts     string `yaml:"forecasts"`
		Stocks        string `yaml:"stocks"`
		StandardTimes string `yaml:"standard_times"`
		Hours         string `yaml:"hours"`
		// Items and Requirements enable the material requirement plan.
		Items        string `yaml:"items"`
		Requirements string `yaml:"requirements"`
		// Orders enables the flow-shop schedule.
		Orders string `yaml:"orders"`
	} `yaml:"inputs"`
	Costs struct {
		Holding float64 `yaml:"holding"`
		Deficit float64 `yaml:"deficit"`
	} `yaml:"costs"`
	Solver struct {
		Path             string  `yaml:"path"`
		TimeLimitSeconds float64 `yaml:"time_limit_seconds"`
		Verbose          bool    `yaml:"verbose"`
	} `yaml:"solver"`
	Output string `yaml:"output"`
}

func loadConfig(path string) (*config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for name, p := range map[string]string{
		"inputs.forecasts":      cfg.Inputs.Forecasts,
		"inputs.stocks":         cfg.Inputs.Stocks,
		"inputs.standard_times": cfg.Inputs.StandardTimes,
		"inputs.hours":          cfg.Inputs.Hours,
		"output":                cfg.Output,
	} {
		if p == "" {
			return nil, fmt.Errorf("%s: missing %s", path, name)
		}
	}
	if (cfg.Inputs.Items == "") != (cfg.Inputs.Requirements == "") {
		return nil, fmt.Errorf("%s: inputs.items and inputs.requirements must be set together", path)
	}
	return cfg, nil
}

func (cfg *config) solveParams() lpmodel.SolveParameters {
	return lpmodel.SolveParameters{
		TimeLimit:  time.Duration(cfg.Solver.TimeLimitSeconds * float64(time.Second)),
		Verbose:    cfg.Solver.Verbose,
		SolverPath: cfg.Solver.Path,
	}
}

func open[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return read(f)
}

func run(cfg *config) error {
	forecasts, err := open(cfg.Inputs.Forecasts, planio.ReadForecasts)
	if err != nil {
		return err
	}
	stocks, err := open(cfg.Inputs.Stocks, planio.ReadStocks)
	if err != nil {
		return err
	}
	times, err := open(cfg.Inputs.StandardTimes, planio.ReadStandardTimes)
	if err != nil {
		return err
	}
	hours, err := open(cfg.Inputs.Hours, planio.ReadHours)
	if err != nil {
		return err
	}

	refs, err := planio.BuildReferences(forecasts, stocks, times)
	if err != nil {
		return err
	}
	log.Infof("Calculating aggregate demand for %d references...", len(refs))
	demand, err := aggplan.Compute(refs)
	if err != nil {
		return err
	}
	log.Infof("Total demand: %v", demand.TotalPerPeriod())

	log.Info("Solving the capacity plan...")
	capPlan, err := capacity.Solve("capacity", &capacity.Input{
		Kinds:          []string{"normal", "extra"},
		CostPerHour:    hours.CostPerHour,
		AvailableHours: hours.AvailableHours,
		Demand:         demand.TotalPerPeriod(),
		HoldingCost:    cfg.Costs.Holding,
	}, cfg.solveParams())
	if err != nil {
		return err
	}
	log.Infof("Capacity plan cost: %v", capPlan.Cost)

	log.Info("Calculating the master production schedule...")
	unitCosts := make(map[string]float64, len(times))
	for name, st := range times {
		unitCosts[name] = st.UnitCost
	}
	master, err := masterplan.Compute(&masterplan.Input{
		Demand:        demand,
		HoursAssigned: capPlan.Coverage,
		CostPerHour:   hours.CostPerHour,
		UnitCost:      unitCosts,
		Stock:         stocks,
		HoldingCost:   cfg.Costs.Holding,
		DeficitCost:   cfg.Costs.Deficit,
	})
	if err != nil {
		return err
	}
	log.Infof("Total production cost: %v", master.TotalCost)

	results := &planio.Results{
		Aggregate: demand,
		HourKinds: []string{"normal", "extra"},
		Capacity:  capPlan,
		Master:    master,
	}

	if cfg.Inputs.Items != "" {
		results.Material, err = runMRP(cfg, demand.Periods, master)
		if err != nil {
			return err
		}
		log.Infof("Inventory management cost: %v", results.Material.TotalManagementCost())
	}
	if cfg.Inputs.Orders != "" {
		results.Schedule, err = runSchedule(cfg)
		if err != nil {
			return err
		}
		log.Infof("Schedule makespan: %v (%v)", results.Schedule.Makespan, results.Schedule.Status)
	}

	log.Infof("Exporting results to %s...", cfg.Output)
	return planio.WriteResults(cfg.Output, results)
}

func runMRP(cfg *config, periods int, master *masterplan.Plan) (*mrp.Plan, error) {
	items, err := open(cfg.Inputs.Items, planio.ReadItems)
	if err != nil {
		return nil, err
	}
	reqs, err := open(cfg.Inputs.Requirements, planio.ReadRequirements)
	if err != nil {
		return nil, err
	}

	// References with a matching material item drive its gross
	// requirements with their planned production.
	byName := make(map[string]bool, len(items))
	for _, item := range items {
		byName[item.Name] = true
	}
	demand := make(map[string][]float64)
	for _, rp := range master.References {
		if !byName[rp.Name] {
			continue
		}
		units := make([]float64, len(rp.Rows))
		for i, row := range rp.Rows {
			units[i] = row.NormalProduction + row.ExtraProduction
		}
		demand[rp.Name] = units
	}
	log.Info("Calculating the material requirement plan...")
	return mrp.Compute(&mrp.BOM{Items: items, Requirements: reqs}, demand, periods)
}

func runSchedule(cfg *config) (*jobshop.Schedule, error) {
	inst, err := planio.ReadOrders(cfg.Inputs.Orders)
	if err != nil {
		return nil, err
	}
	params := cfg.solveParams()
	if params.TimeLimit <= 0 {
		params.TimeLimit = time.Minute
	}
	log.Infof("Scheduling %d orders on %d machines...", len(inst.Orders), inst.Machines())
	return jobshop.Solve("schedule", inst, params)
}

func main() {
	flag.Parse()
	defer log.Flush()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Exitf("Loading configuration: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Exitf("Planning pipeline: %v", err)
	}
	log.Info("Done.")
}
