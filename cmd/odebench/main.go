package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/rollingthunder/multistep/ode"
	"github.com/rollingthunder/multistep/ode/adams"
	"github.com/rollingthunder/multistep/ode/dense"
	"github.com/rollingthunder/multistep/ode/rk"
	"github.com/rollingthunder/multistep/ode/variational"
	"github.com/rollingthunder/multistep/problems"
	"github.com/rollingthunder/multistep/util"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/floats"
)

// Runs integrators on the test problems of a scenario and writes the
// statistics as HTML tables.

const defaultScenario = "~~unset~~"

var (
	scenario string
	verbose  bool
)

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "benchmark scenario TOML file")
	flag.BoolVar(&verbose, "verbose", false, "log every rejected step")
}

type loggable interface {
	SetLogger(kitlog.Logger)
}

func main() {
	flag.Parse()
	logger := ode.NewLogger(os.Stderr, "odebench")
	if !verbose {
		logger = levelFilter{logger}
	}
	if scenario == defaultScenario {
		fatal(logger, "err", "no scenario provided")
	}
	scenario = strings.Replace(scenario, ".toml", "", 1)
	viper.AddConfigPath(".")
	viper.SetConfigName(scenario)
	if err := viper.ReadInConfig(); err != nil {
		fatal(logger, "scenario", scenario+".toml", "err", err)
	}

	viper.SetDefault("run.t0", 0.0)
	viper.SetDefault("run.tEnd", 1.0)
	viper.SetDefault("run.size", 10)
	viper.SetDefault("run.report", "odebench.html")
	viper.SetDefault("run.methods", []string{"DoPri5", "AB4"})
	viper.SetDefault("run.problems", []string{"decay"})
	viper.SetDefault("decay.k", 1.0)

	t0, tEnd := viper.GetFloat64("run.t0"), viper.GetFloat64("run.tEnd")
	size := viper.GetInt("run.size")
	samples := viper.GetInt("run.samples")
	methods := viper.GetStringSlice("run.methods")
	problemNames := viper.GetStringSlice("run.problems")
	config := ode.ConfigFromViper(viper.GetViper(), "integrator")

	datasets := []string{"Steps", "Rejected", "Evaluations", "Time [ms]", "|y(tEnd)|"}
	table := util.Table{
		Title:      fmt.Sprintf("%s: t = %g .. %g", scenario, t0, tEnd),
		RowHeaders: methods,
		ColHeaders: problemNames,
		Data:       make(map[string][][]float64),
	}
	for _, d := range datasets {
		table.Data[d] = util.MakeRectangular(uint(len(methods)), uint(len(problemNames)))
	}

	for i, method := range methods {
		for j, name := range problemNames {
			integrator, err := newIntegrator(method)
			if err != nil {
				fatal(logger, "method", method, "err", err)
			}
			if l, ok := integrator.(loggable); ok {
				l.SetLogger(logger)
			}

			problem, err := newProblem(name, size)
			if err != nil {
				fatal(logger, "problem", name, "err", err)
			}
			eqs, err := ode.NewExpandableODE(problem)
			if err != nil {
				fatal(logger, "problem", name, "err", err)
			}
			eqs.SetTime(t0)
			if err = eqs.SetPrimaryState(problem.Initialize()); err != nil {
				fatal(logger, "problem", name, "err", err)
			}

			jacobians, err := sensitivities(problem, eqs, logger)
			if err != nil {
				fatal(logger, "problem", name, "err", err)
			}

			model := dense.New()
			integrator.AddStepHandler(model)

			c := config
			start := time.Now()
			stat, err := integrator.Integrate(eqs, tEnd, &c)
			elapsed := time.Since(start)
			if err != nil {
				logger.Log("level", "error", "method", method, "problem", name, "err", err)
				continue
			}

			table.Data["Steps"][i][j] = float64(stat.StepCount)
			table.Data["Rejected"][i][j] = float64(stat.RejectedCount)
			table.Data["Evaluations"][i][j] = float64(stat.EvaluationCount)
			table.Data["Time [ms]"][i][j] = elapsed.Seconds() * 1e3
			table.Data["|y(tEnd)|"][i][j] = floats.Norm(eqs.PrimaryState(), 2)

			logger.Log("level", "info", "method", method, "problem", problem.Description(),
				"steps", stat.StepCount, "rejected", stat.RejectedCount, "evaluations", stat.EvaluationCount,
				"elapsed", elapsed)

			if err = sample(model, t0, tEnd, samples, logger); err != nil {
				logger.Log("level", "error", "method", method, "problem", name, "err", err)
			}
			if jacobians != nil {
				reportSensitivities(jacobians, problem.(*problems.Decay), t0, tEnd, eqs, logger)
			}
		}
	}

	report := viper.GetString("run.report")
	if err := util.WriteTablesFile([]util.Table{table}, report); err != nil {
		fatal(logger, "report", report, "err", err)
	}
	logger.Log("level", "info", "report", report)
}

func fatal(logger kitlog.Logger, keyvals ...interface{}) {
	logger.Log(append([]interface{}{"level", "critical"}, keyvals...)...)
	os.Exit(1)
}

// levelFilter drops debug lines.
type levelFilter struct {
	next kitlog.Logger
}

func (l levelFilter) Log(keyvals ...interface{}) error {
	for i := 0; i+1 < len(keyvals); i += 2 {
		if keyvals[i] == "level" && keyvals[i+1] == "debug" {
			return nil
		}
	}
	return l.next.Log(keyvals...)
}

// newIntegrator understands the embedded Runge-Kutta names and ABn, the
// Adams-Bashforth method with n steps started by DoPri5.
func newIntegrator(method string) (ode.Integrator, error) {
	switch method {
	case "RK2":
		return rk.NewRK(rk.RK2)
	case "RKFB4":
		return rk.NewRK(rk.RKFB4)
	case "DoPri5":
		return rk.NewRK(rk.DoPri5)
	}
	if strings.HasPrefix(method, "AB") {
		nSteps, err := strconv.Atoi(strings.TrimPrefix(method, "AB"))
		if err != nil {
			return nil, fmt.Errorf("invalid number of steps: %w", err)
		}
		starter, err := rk.NewRK(rk.DoPri5)
		if err != nil {
			return nil, err
		}
		return adams.NewBashforth(nSteps, starter)
	}
	return nil, fmt.Errorf("unknown method")
}

func newProblem(name string, size int) (problems.Problem, error) {
	switch name {
	case "bruss2d":
		return problems.NewBruss2D(size), nil
	case "mbody":
		return problems.NewMBody(uint(size)), nil
	case "decay":
		return problems.NewDecay(viper.GetFloat64("decay.k"), 1), nil
	}
	return nil, fmt.Errorf("unknown problem")
}

// sensitivities registers the variational equations of the decay
// problem when the scenario asks for them.
func sensitivities(problem problems.Problem, eqs *ode.ExpandableODE, logger kitlog.Logger) (*variational.JacobianMatrices, error) {
	decay, ok := problem.(*problems.Decay)
	if !ok || !viper.GetBool("decay.sensitivities") {
		return nil, nil
	}

	var jacobians *variational.JacobianMatrices
	var err error
	if hP := viper.GetFloat64("decay.parameter_step"); hP > 0 {
		if jacobians, err = variational.New(decay, []float64{hP}, problems.ParameterK); err != nil {
			return nil, err
		}
		jacobians.SetParameterizedODE(decay)
		if err = jacobians.SetParameterStep(problems.ParameterK, hP); err != nil {
			return nil, err
		}
	} else {
		if jacobians, err = variational.NewWithProvider(decay, problems.ParameterK); err != nil {
			return nil, err
		}
		jacobians.AddParameterJacobianProvider(decay)
	}
	jacobians.SetLogger(logger)
	return jacobians, jacobians.RegisterVariationalEquations(eqs)
}

func reportSensitivities(jacobians *variational.JacobianMatrices, decay *problems.Decay, t0, tEnd float64, eqs *ode.ExpandableODE, logger kitlog.Logger) {
	dYdK := make([]float64, 1)
	if err := jacobians.CurrentParameterJacobian(problems.ParameterK, dYdK); err != nil {
		logger.Log("level", "error", "err", err)
		return
	}
	exact := -(tEnd - t0) * decay.Solution(t0, tEnd)
	logger.Log("level", "info", "dy/dk", dYdK[0], "exact", exact, "y", eqs.PrimaryState()[0])
}

// sample logs the dense output at evenly spaced times.
func sample(model *dense.Model, t0, tEnd float64, samples int, logger kitlog.Logger) error {
	for k := 0; k <= samples && samples > 0; k++ {
		t := t0 + float64(k)*(tEnd-t0)/float64(samples)
		if err := model.SetInterpolatedTime(t); err != nil {
			return err
		}
		state := model.InterpolatedState()
		logger.Log("level", "info", "t", t, "|y|", floats.Norm(state.PrimaryState(), 2))
	}
	return nil
}
