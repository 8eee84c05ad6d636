package procsched_test

import (
	"bytes"
	"context"
	"embed"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/procsched"
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/processor"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

//go:embed testdata/*
var embedFS embed.FS

func testConfig() *procsched.Config {
	config := procsched.DefaultConfig()
	config.Machine.TickInterval = time.Millisecond
	config.Log.Level = ""
	return config
}

func loadWorkload(t *testing.T) *procsched.Workload {
	t.Helper()
	data, err := embedFS.ReadFile("testdata/workload.yaml")
	require.NoError(t, err)
	workload, err := procsched.DecodeWorkload(data)
	require.NoError(t, err)
	return workload
}

func TestService_RunWorkload(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	srv, err := procsched.New(
		procsched.WithConfig(testConfig()),
		procsched.WithLogger(zap.NewNop()),
		procsched.WithTracingExporter("procsched-test", procsched.Version, exporter),
	)
	require.NoError(t, err)
	rt := srv.Runtime()

	var mux sync.Mutex
	seen := map[event.Type]int{}
	require.NoError(t, rt.OnEvent(func(evt *event.Event[event.Lifecycle]) {
		mux.Lock()
		seen[evt.Context.EventType]++
		mux.Unlock()
	}))

	ctx := context.Background()
	require.NoError(t, rt.Start(ctx))
	assert.Error(t, rt.Start(ctx))
	pids, err := rt.Run(ctx, loadWorkload(t))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5}, pids)

	require.NoError(t, rt.WaitIdle(ctx, 10*time.Second))
	stats := rt.Machine().Stats()
	assert.Equal(t, 6, stats.Forks)
	assert.Equal(t, 6, stats.Reaps)
	assert.NoError(t, rt.Machine().Check())
	require.Eventually(t, func() bool {
		mux.Lock()
		defer mux.Unlock()
		return seen[event.Booted] == 1 && seen[event.Forked] == 6 && seen[event.Reaped] == 6
	}, 5*time.Second, time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, rt.Shutdown(shutdownCtx))
	assert.NotEmpty(t, exporter.GetSpans())
}

func TestRuntime_Dump(t *testing.T) {
	config := testConfig()
	config.Machine.TickInterval = 0
	config.Dump = procsched.DumpConfig{URL: "mem://localhost/procsched/dumps", Format: "yaml"}
	srv, err := procsched.New(procsched.WithConfig(config))
	require.NoError(t, err)
	rt := srv.Runtime()
	require.NoError(t, rt.Boot(nil))
	_, err = rt.Machine().Spawn("sleeper", func(p *processor.Proc) {})
	require.NoError(t, err)

	URL, err := rt.Dump(context.Background())
	require.NoError(t, err)
	assert.Contains(t, URL, ".yaml")

	data, err := afs.New().DownloadWithURL(context.Background(), URL)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(data, []byte("name: sleeper")))
	assert.True(t, bytes.Contains(data, []byte("state: runnable")))
}

func TestRuntime_WaitIdle(t *testing.T) {
	testCases := []struct {
		name      string
		timeout   time.Duration
		release   bool
		shutdown  bool
		expectErr string
	}{
		{name: "last child reaped", timeout: 5 * time.Second, release: true},
		{name: "timeout", timeout: 20 * time.Millisecond, expectErr: "timeout waiting for 1 processes"},
		{name: "halted", timeout: 5 * time.Second, shutdown: true, expectErr: "halted"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := testConfig()
			config.Machine.TickInterval = 0
			srv, err := procsched.New(procsched.WithConfig(config))
			require.NoError(t, err)
			rt := srv.Runtime()
			ctx := context.Background()
			require.NoError(t, rt.Start(ctx))
			release := make(chan struct{})
			t.Cleanup(func() {
				if !tc.release {
					close(release)
				}
				shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				_ = rt.Shutdown(shutdownCtx)
			})
			_, err = rt.Machine().Spawn("gated", func(p *processor.Proc) { <-release })
			require.NoError(t, err)

			done := make(chan error, 1)
			go func() { done <- rt.WaitIdle(ctx, tc.timeout) }()
			switch {
			case tc.release:
				close(release)
			case tc.shutdown:
				rt.Machine().Shutdown()
			}
			select {
			case err = <-done:
			case <-time.After(5 * time.Second):
				require.FailNow(t, "WaitIdle did not return")
			}
			if tc.expectErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectErr)
				return
			}
			assert.NoError(t, err)
			infos, err := rt.Processes()
			require.NoError(t, err)
			assert.Len(t, infos, 1)
		})
	}
}

func TestRuntime_DumpNotConfigured(t *testing.T) {
	srv, err := procsched.New(procsched.WithConfig(testConfig()))
	require.NoError(t, err)
	_, err = srv.Runtime().Dump(context.Background())
	assert.ErrorIs(t, err, procsched.ErrNoDumpService)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PROCSCHED_TEST_DUMP_URL", "mem://localhost/procsched/dumps")
	ctx := context.Background()
	fs := afs.New()
	testCases := []struct {
		name    string
		content string
		wantErr bool
		check   func(t *testing.T, c *procsched.Config)
	}{
		{
			name: "override",
			content: `machine:
  cpus: 4
  tickInterval: 5ms
scheduler:
  agingThreshold: 100
  budget:
    roundRobin: 30
    sjf: 20
    fcfs: 10
`,
			check: func(t *testing.T, c *procsched.Config) {
				assert.Equal(t, 4, c.Machine.CPUs)
				assert.Equal(t, 5*time.Millisecond, c.Machine.TickInterval)
				assert.Equal(t, 100, c.Scheduler.AgingThreshold)
				assert.Equal(t, 10, c.Scheduler.Budget.FCFS)
				assert.Equal(t, 1, c.Scheduler.Quantum)
				assert.Equal(t, 64, c.Machine.Procs)
			},
		},
		{
			name:    "env",
			content: "dump:\n  url: ${env.PROCSCHED_TEST_DUMP_URL}\n  format: yaml\n",
			check: func(t *testing.T, c *procsched.Config) {
				assert.Equal(t, "mem://localhost/procsched/dumps", c.Dump.URL)
				assert.Equal(t, "yaml", c.Dump.Format)
			},
		},
		{name: "invalid", content: "machine:\n  cpus: -1\n", wantErr: true},
		{name: "malformed", content: "machine: [", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			URL := "mem://localhost/procsched/config/" + tc.name + ".yaml"
			require.NoError(t, fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader([]byte(tc.content))))
			config, err := procsched.LoadConfig(ctx, URL)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.check(t, config)
		})
	}
	_, err := procsched.LoadConfig(ctx, "mem://localhost/procsched/config/missing.yaml")
	assert.Error(t, err)
}

func TestDecodeWorkload(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "valid", content: "name: a\nprocesses:\n  - name: p\n    steps:\n      - work: 1\n"},
		{name: "empty", content: "name: a\n", wantErr: true},
		{name: "bad queue", content: "processes:\n  - name: p\n    queue: 7\n", wantErr: true},
		{name: "unnamed fork", content: "processes:\n  - name: p\n    steps:\n      - fork:\n          steps: []\n", wantErr: true},
		{name: "bad confidence", content: "processes:\n  - name: p\n    confidence: 101\n", wantErr: true},
		{name: "shorthand", content: "processes:\n  - name: p\n    steps:\n      - yield\n      - wait\n"},
		{name: "unknown shorthand", content: "processes:\n  - name: p\n    steps:\n      - jump\n", wantErr: true},
		{name: "unknown field", content: "processes:\n  - name: p\n    steps:\n      - work: 1\n        speed: 2\n", wantErr: true},
		{name: "two actions", content: "processes:\n  - name: p\n    steps:\n      - work: 1\n        yield: true\n", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := procsched.DecodeWorkload([]byte(tc.content))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
	workload := loadWorkload(t)
	require.Len(t, workload.Processes, 3)
	assert.Equal(t, proc.FCFS, workload.Processes[1].Queue)
	assert.Equal(t, 2, workload.Processes[1].Replicas())
	assert.Equal(t, 2, workload.Processes[2].Steps[1].Fork.Count)
}

func TestConfig_Validate(t *testing.T) {
	config := procsched.DefaultConfig()
	assert.NoError(t, config.Validate())
	config.Dump.Format = "xml"
	assert.Error(t, config.Validate())
	assert.NoError(t, (*procsched.Config)(nil).Validate())
}
