package batch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
	"github.com/dnv-opensource/WindFarmer-automation/internal/request"
	"github.com/dnv-opensource/WindFarmer-automation/internal/store"
	"github.com/dnv-opensource/WindFarmer-automation/internal/windfarmer"
)

const withNeighbours = `{
  "turbineModels": [{"id": 1, "hubHeight_m": 100, "rotorDiameter_m": 120}],
  "windFarms": [
    {"name": "Subject", "isNeighbor": false, "turbines": [{"turbineModelId": 1}, {"turbineModelId": 1}]},
    {"name": "Neighbour", "isNeighbor": true, "turbines": [{"turbineModelId": 1}, {"turbineModelId": 1}, {"turbineModelId": 1}]}
  ],
  "energyEfficienciesSettings": {}
}`

const subjectOnly = `{
  "turbineModels": [{"id": 1, "hubHeight_m": 100, "rotorDiameter_m": 120}],
  "windFarms": [
    {"name": "Solo", "isNeighbor": false, "turbines": [{"turbineModelId": 1}]}
  ],
  "energyEfficienciesSettings": {}
}`

func ptr(v float64) *float64 { return &v }

func resultSet(name string, full float64) *model.AepResultSet {
	return &model.AepResultSet{
		WindFarmAepOutputs: []model.WindFarmAepOutput{{
			WindFarmName:              name,
			GrossYield:                1000,
			FullYield:                 full,
			WakesOnYield:              900,
			BlockageOnYield:           950,
			HysteresisAdjustmentYield: 945,
			LargeWindFarmCorrectYield: 940,
			NeighboursWakesOnYield:    900,
		}},
		WeightedBlockageEfficiency: ptr(0.97),
	}
}

// fakeCalc answers by turbine count: 5 is the full scenario, 2 the subject-only copy, 1 the solo farm.
type fakeCalc struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *fakeCalc) Calculate(_ context.Context, payload any, turbines int) (*model.AepResultSet, error) {
	f.mu.Lock()
	f.calls = append(f.calls, turbines)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := payload.(*request.Request); !ok {
		return nil, errors.New("unexpected payload type")
	}
	switch turbines {
	case 5:
		return resultSet("Subject", 840), nil
	case 2:
		return resultSet("Subject", 870), nil
	default:
		return resultSet("Solo", 880), nil
	}
}

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func testOptions(t *testing.T) Options {
	return Options{
		Models: request.ModelSelection{
			Wake:                  model.WakeEddyViscosity,
			Blockage:              model.BlockageBEET,
			Method:                model.OnEnergy,
			CalculateEfficiencies: true,
		},
		OutputDir:   t.TempDir(),
		Concurrency: 2,
	}
}

func TestDiscover(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"b.json":    "{}",
		"a.JSON":    "{}",
		"notes.txt": "x",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	paths, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "a", ScenarioName(paths[0]))
	assert.Equal(t, "b", ScenarioName(paths[1]))

	_, err = Discover(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestRun_IsolatesFailuresAndWritesOutputs(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"north.json":  withNeighbours,
		"solo.json":   subjectOnly,
		"broken.json": `{not json`,
	})
	paths, err := Discover(dir)
	require.NoError(t, err)

	calc := &fakeCalc{}
	opts := testOptions(t)
	report, err := NewRunner(calc, opts).Run(context.Background(), paths)
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())
	assert.False(t, report.OK())

	byName := map[string]Result{}
	for _, r := range report.Results {
		byName[r.Scenario] = r
	}
	assert.Equal(t, StatusFail, byName["broken"].Status)
	assert.Error(t, byName["broken"].Err)

	north := byName["north"]
	require.Equal(t, StatusSuccess, north.Status)
	require.NotNil(t, north.Subject)
	assert.InDelta(t, 0.84*0.97, north.Breakdown.FullYieldGWh(), 1e-12)

	solo := byName["solo"]
	require.Equal(t, StatusSuccess, solo.Status)
	assert.Nil(t, solo.Subject)

	// north runs full+subject, solo only full
	assert.ElementsMatch(t, []int{5, 2, 1}, calc.calls)

	for _, f := range []string{"north.full.json", "north.subject.json", "solo.full.json", "summary.csv", "efficiencies.csv", "report.txt"} {
		assert.FileExists(t, filepath.Join(opts.OutputDir, f))
	}
	assert.NoFileExists(t, filepath.Join(opts.OutputDir, "solo.subject.json"))

	text, err := os.ReadFile(filepath.Join(opts.OutputDir, "report.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(text), "FAIL\n"))
	assert.Contains(t, string(text), "north\tFull yield")
}

func TestRunScenario_AppliesModelSettings(t *testing.T) {
	var got map[string]any
	calc := calcFunc(func(payload any) (*model.AepResultSet, error) {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &got); err != nil {
			return nil, err
		}
		return resultSet("Solo", 880), nil
	})

	req, err := request.Parse([]byte(subjectOnly))
	require.NoError(t, err)

	res := NewRunner(calc, testOptions(t)).RunScenario(context.Background(), "solo", req)
	require.Equal(t, StatusSuccess, res.Status, "%v", res.Err)

	ees := got["energyEfficienciesSettings"].(map[string]any)
	assert.Equal(t, true, ees["calculateEfficiencies"])
	assert.Equal(t, "EddyViscosity", ees["wakeModel"].(map[string]any)["wakeModelType"])
	assert.Equal(t, model.OnEnergy, res.Breakdown.Context().ApplicationMethod())
}

type calcFunc func(payload any) (*model.AepResultSet, error)

func (f calcFunc) Calculate(_ context.Context, payload any, _ int) (*model.AepResultSet, error) {
	return f(payload)
}

func TestRunScenario_RecordsJobsAndSummary(t *testing.T) {
	ctx := context.Background()
	st, err := store.New(ctx, filepath.Join(t.TempDir(), "batch.db"))
	require.NoError(t, err)
	defer st.Close()
	run, err := st.CreateRun(ctx, "batch")
	require.NoError(t, err)

	opts := testOptions(t)
	opts.Recorder = st
	opts.RunID = run.ID

	req, err := request.Parse([]byte(withNeighbours))
	require.NoError(t, err)
	res := NewRunner(&fakeCalc{}, opts).RunScenario(ctx, "north", req)
	require.Equal(t, StatusSuccess, res.Status, "%v", res.Err)

	jobs, err := st.ListJobs(ctx, store.JobFilter{RunID: run.ID})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	roles := []string{jobs[0].Role, jobs[1].Role}
	assert.ElementsMatch(t, []string{RoleFull, RoleSubject}, roles)
	for _, j := range jobs {
		assert.Equal(t, model.JobSucceeded, j.Status)
		assert.NotNil(t, j.FinishedAt)
	}

	sums, err := st.ListSummaries(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, "north", sums[0].Scenario)
	require.NotNil(t, sums[0].Efficiencies)
	assert.Equal(t, 0.97, sums[0].Efficiencies.TotalBlockage)
}

func TestRunScenario_FailedCalculationIsRecorded(t *testing.T) {
	ctx := context.Background()
	st, err := store.New(ctx, filepath.Join(t.TempDir(), "batch.db"))
	require.NoError(t, err)
	defer st.Close()

	opts := testOptions(t)
	opts.Recorder = st
	calc := &fakeCalc{err: &windfarmer.CalculationFailedError{JobID: "remote-7", Message: "solver diverged"}}

	req, err := request.Parse([]byte(subjectOnly))
	require.NoError(t, err)
	res := NewRunner(calc, opts).RunScenario(ctx, "solo", req)
	assert.Equal(t, StatusFail, res.Status)
	var failed *windfarmer.CalculationFailedError
	assert.ErrorAs(t, res.Err, &failed)

	jobs, err := st.ListJobs(ctx, store.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobFailed, jobs[0].Status)
	assert.Equal(t, "remote-7", jobs[0].RemoteJobID)
	assert.Contains(t, jobs[0].Error, "solver diverged")
}

func TestRunScenario_RetriesTransportErrors(t *testing.T) {
	attempts := 0
	calc := calcFunc(func(any) (*model.AepResultSet, error) {
		attempts++
		if attempts < 3 {
			return nil, &windfarmer.TransportError{Op: "POST", Err: errors.New("connection reset")}
		}
		return resultSet("Solo", 880), nil
	})
	opts := testOptions(t)
	opts.Retries = 3
	opts.RetryBackoff = time.Millisecond

	req, err := request.Parse([]byte(subjectOnly))
	require.NoError(t, err)
	res := NewRunner(calc, opts).RunScenario(context.Background(), "solo", req)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 3, attempts)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, model.JobSucceeded, StatusOf(nil))
	assert.Equal(t, model.JobTimedOut, StatusOf(windfarmer.ErrTimedOut))
	assert.Equal(t, model.JobCancelled, StatusOf(context.Canceled))
	assert.Equal(t, model.JobFailed, StatusOf(errors.New("boom")))
}

func TestRun_AgainstSyncEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/AnnualEnergyProduction" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resultSet("Solo", 880))
	}))
	defer srv.Close()

	client, err := windfarmer.New(windfarmer.Options{BaseURL: srv.URL, AccessKey: "k", SyncTurbineLimit: 10})
	require.NoError(t, err)

	dir := writeScenarios(t, map[string]string{"solo.json": subjectOnly})
	paths, err := Discover(dir)
	require.NoError(t, err)

	report, err := NewRunner(client, testOptions(t)).Run(context.Background(), paths)
	require.NoError(t, err)
	require.True(t, report.OK(), report.String())
	assert.InDelta(t, 0.88*0.97, report.Results[0].Breakdown.FullYieldGWh(), 1e-12)
}

func TestRunScenario_RecordsRemoteJobProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/AnnualEnergyProductionAsync" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"jobId":"remote-42"}`))
			return
		}
		assert.Equal(t, "remote-42", r.URL.Query().Get("jobId"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "SUCCESS",
			"progress": 100,
			"results":  resultSet("Solo", 880),
		})
	}))
	defer srv.Close()

	client, err := windfarmer.New(windfarmer.Options{BaseURL: srv.URL, AccessKey: "k",
		Poll: windfarmer.PollPolicy{InitialDelay: time.Millisecond}})
	require.NoError(t, err)

	ctx := context.Background()
	st, err := store.New(ctx, filepath.Join(t.TempDir(), "batch.db"))
	require.NoError(t, err)
	defer st.Close()
	run, err := st.CreateRun(ctx, "batch")
	require.NoError(t, err)

	opts := testOptions(t)
	opts.Recorder = st
	opts.RunID = run.ID

	req, err := request.Parse([]byte(subjectOnly))
	require.NoError(t, err)
	res := NewRunner(client, opts).RunScenario(ctx, "solo", req)
	require.Equal(t, StatusSuccess, res.Status, "%v", res.Err)

	jobs, err := st.ListJobs(ctx, store.JobFilter{RunID: run.ID})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "remote-42", jobs[0].RemoteJobID)
	assert.Equal(t, "100%", jobs[0].Progress)
	assert.Equal(t, model.JobSucceeded, jobs[0].Status)
	assert.NotNil(t, jobs[0].FinishedAt)
}

func TestRunVariants(t *testing.T) {
	req, err := request.Parse([]byte(withNeighbours))
	require.NoError(t, err)
	variants, err := req.TurbineRemovalVariants(2)
	require.NoError(t, err)

	calc := &fakeCalc{}
	out := NewRunner(calc, testOptions(t)).RunVariants(context.Background(), "north", variants)
	require.Len(t, out, 2)
	assert.Equal(t, "without-turbine-0", out[0].Name)
	for _, v := range out {
		assert.NoError(t, v.Err)
		assert.NotNil(t, v.Results)
	}
	assert.Equal(t, []int{4, 4}, calc.calls)
}
