package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/multierr"
)

type syncBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func startBatch(t *testing.T, params Params) (*fxtest.App, *Batch) {
	t.Helper()
	var batch *Batch
	app := fxtest.New(t, Module(params), fx.Populate(&batch))
	app.RequireStart()
	require.NotNil(t, batch)
	return app, batch
}

func TestBatch_Run(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "xtree.yaml", "log:\n  level: debug\nrunner:\n  workers: 2\n  strict: true\n")
	a := writeFile(t, dir, "a.rbs", "insert 3 1 2\ninorder\n")
	b := writeFile(t, dir, "b.rbs", "insert 9 8\ndelete 9\nsearch 8 9\n")

	out, logOut := &bytes.Buffer{}, &syncBuffer{}
	app, batch := startBatch(t, Params{
		ConfigPath: cfgPath,
		Scripts:    []string{a, b},
		Out:        out,
		LogOut:     logOut,
	})
	require.NoError(t, batch.Run(context.TODO()))
	app.RequireStop()

	require.Equal(t, "== "+a+"\ninorder [1 2 3]\n== "+b+"\nsearch 8 true\nsearch 9 false\n", out.String())
	logs := logOut.String()
	require.Contains(t, logs, `"msg":"script done"`)
	require.Contains(t, logs, `"component":"Fx"`)
	require.Contains(t, logs, `"component":"RBTree"`)
}

func TestBatch_TreeConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "xtree.yaml", "log:\n  level: error\n  encoder: plaintext\ntree:\n  desc: true\n  borrow_pred: true\n")
	a := writeFile(t, dir, "a.rbs", "insert 1 2 3 4 5 6\ndelete 4\ninorder\nvalidate\n")

	out := &bytes.Buffer{}
	app, batch := startBatch(t, Params{
		ConfigPath: cfgPath,
		Scripts:    []string{a},
		Out:        out,
		LogOut:     &syncBuffer{},
	})
	require.NoError(t, batch.Run(context.TODO()))
	app.RequireStop()
	require.Equal(t, "inorder [6 5 3 2 1]\nvalidate ok\n", out.String())
}

func TestBatch_Failures(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "xtree.yaml", "log:\n  level: error\n")
	good := writeFile(t, dir, "good.rbs", "insert 1\nlen\n")
	bad := writeFile(t, dir, "bad.rbs", "insert x\n")
	missing := filepath.Join(dir, "missing.rbs")

	out, logOut := &bytes.Buffer{}, &syncBuffer{}
	app, batch := startBatch(t, Params{
		ConfigPath: cfgPath,
		Scripts:    []string{good, bad, missing},
		Out:        out,
		LogOut:     logOut,
	})
	err := batch.Run(context.TODO())
	app.RequireStop()

	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 2)
	require.Contains(t, out.String(), "len 1\n")
	require.Contains(t, logOut.String(), `"msg":"script failed"`)
	require.Contains(t, logOut.String(), `"errorStack":[`)
}

func TestBatch_NoScripts(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "xtree.yaml", "log:\n  level: error\n")
	app, batch := startBatch(t, Params{ConfigPath: cfgPath, LogOut: &syncBuffer{}})
	require.Error(t, batch.Run(context.TODO()))
	app.RequireStop()
}

func TestModule_StdoutMetrics(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "xtree.yaml", "log:\n  level: error\nmetrics:\n  exporter: stdout\n  interval: 1h\n")
	a := writeFile(t, dir, "a.rbs", "insert 1 2 3\n")

	metricsOut := &syncBuffer{}
	app, batch := startBatch(t, Params{
		ConfigPath: cfgPath,
		Scripts:    []string{a},
		Out:        &bytes.Buffer{},
		LogOut:     &syncBuffer{},
		MetricsOut: metricsOut,
	})
	require.NoError(t, batch.Run(context.TODO()))
	app.RequireStop()
	require.Contains(t, metricsOut.String(), "xtree.rbtree.events")
	require.Contains(t, metricsOut.String(), "app.core.goroutines")
}

func TestModule_PrometheusMetrics(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "xtree.yaml", "log:\n  level: info\nmetrics:\n  exporter: prometheus\n  addr: 127.0.0.1:0\n")
	logOut := &syncBuffer{}
	app, _ := startBatch(t, Params{ConfigPath: cfgPath, LogOut: logOut})
	app.RequireStop()
	require.Contains(t, logOut.String(), `"msg":"metrics server started"`)
}

func TestModule_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "xtree.yaml", "runner:\n  workers: -1\n")
	app := fx.New(Module(Params{ConfigPath: cfgPath, LogOut: &syncBuffer{}}))
	require.Error(t, app.Err())
	require.True(t, strings.Contains(app.Err().Error(), "runner.workers must be positive"))
}
