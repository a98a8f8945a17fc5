package optimize

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"
)

// WriteSweepCSVFile writes sweep results to a CSV file at the given path.
func WriteSweepCSVFile(path string, results []EvalResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sweep file: %w", err)
	}
	defer f.Close()

	return WriteSweepCSV(f, results)
}

// WriteSweepCSV writes sweep results to any io.Writer as CSV, one row per
// evaluated parameter set, metric columns first and then param_<key> columns
// in sorted order.
func WriteSweepCSV(w io.Writer, results []EvalResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	paramKeys := sweepParamKeys(results)
	header := []string{
		"objective_value",
		"net_pct",
		"max_drawdown_pct",
		"profit_factor",
		"win_rate",
		"total_trades",
	}
	for _, k := range paramKeys {
		header = append(header, "param_"+k)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range results {
		record := []string{
			formatFloat(r.ObjectiveValue),
			formatFloat(r.Summary.NetPct),
			formatFloat(r.Summary.MaxDrawdownPct),
			formatFloat(r.Summary.ProfitFactor),
			formatFloat(r.Summary.WinRate),
			strconv.Itoa(r.Summary.TotalTrades),
		}
		for _, k := range paramKeys {
			record = append(record, fmt.Sprintf("%v", r.Params[k]))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteWindowsCSVFile writes walk-forward windows to a CSV file.
func WriteWindowsCSVFile(path string, windows []Window) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create windows file: %w", err)
	}
	defer f.Close()

	return WriteWindowsCSV(f, windows)
}

// WriteWindowsCSV writes one row per walk-forward window; best params are a
// JSON column since their keys vary per strategy.
func WriteWindowsCSV(w io.Writer, windows []Window) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"window_id",
		"train_start", "train_end", "test_start", "test_end",
		"best_params_json",
		"train_net_pct", "train_max_drawdown_pct", "train_profit_factor", "train_win_rate", "train_total_trades",
		"test_net_pct", "test_max_drawdown_pct", "test_profit_factor", "test_win_rate", "test_total_trades",
		"param_drift", "performance_decay",
		"train_objective_value", "test_objective_value",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, win := range windows {
		params, err := json.Marshal(win.BestParams)
		if err != nil {
			return fmt.Errorf("marshal best params: %w", err)
		}
		record := []string{
			strconv.Itoa(win.ID),
			win.TrainStart.Format(time.RFC3339),
			win.TrainEnd.Format(time.RFC3339),
			win.TestStart.Format(time.RFC3339),
			win.TestEnd.Format(time.RFC3339),
			string(params),
			formatFloat(win.Train.NetPct),
			formatFloat(win.Train.MaxDrawdownPct),
			formatFloat(win.Train.ProfitFactor),
			formatFloat(win.Train.WinRate),
			strconv.Itoa(win.Train.TotalTrades),
			formatFloat(win.Test.NetPct),
			formatFloat(win.Test.MaxDrawdownPct),
			formatFloat(win.Test.ProfitFactor),
			formatFloat(win.Test.WinRate),
			strconv.Itoa(win.Test.TotalTrades),
			formatFloat(win.ParamDrift),
			formatFloat(win.PerformanceDecay),
			formatFloat(win.TrainObjective),
			formatFloat(win.TestObjective),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteOOSEquityCSVFile writes the concatenated out-of-sample equity curve.
func WriteOOSEquityCSVFile(path string, points []EquityPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create oos equity file: %w", err)
	}
	defer f.Close()

	return WriteOOSEquityCSV(f, points)
}

func WriteOOSEquityCSV(w io.Writer, points []EquityPoint) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"window_id", "time", "equity"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range points {
		record := []string{
			strconv.Itoa(p.WindowID),
			p.Time.Format(time.RFC3339),
			p.Equity.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func sweepParamKeys(results []EvalResult) []string {
	seen := make(map[string]bool)
	for _, r := range results {
		for k := range r.Params {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
