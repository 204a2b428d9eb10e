//go:build integration

package rodexec_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/theRebelliousNerd/selectorcache/internal/executor"
	"github.com/theRebelliousNerd/selectorcache/internal/executor/rodexec"
)

func TestRodExecutorNavigateClickType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
			<button id="add-todo">Add</button>
			<input id="todo-input" />
		</body></html>`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exec, err := rodexec.New(ctx, rodexec.DefaultConfig())
	require.NoError(t, err)
	defer exec.Close()

	_, err = exec.Navigate(ctx, executor.Request{Action: executor.ActionNavigate, URL: srv.URL})
	require.NoError(t, err)

	_, err = exec.Type(ctx, executor.Request{Action: executor.ActionType, Selector: "#todo-input", Value: "buy milk"})
	require.NoError(t, err)

	res, err := exec.Click(ctx, executor.Request{Action: executor.ActionClick, Selector: "#add-todo"})
	require.NoError(t, err)
	require.Equal(t, "#add-todo", res.ResolvedSelector)
}
