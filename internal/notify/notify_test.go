package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

func TestNewNotifierDisabled(t *testing.T) {
	t.Parallel()

	n, err := NewNotifier(nil)
	require.NoError(t, err)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Send(context.Background(), "title", "message"))

	n, err = NewNotifier(&conf.NotificationSettings{Enabled: false, Urls: []string{"discord://token@id"}})
	require.NoError(t, err)
	assert.False(t, n.Enabled())
}

func TestNewNotifierRequiresURLs(t *testing.T) {
	t.Parallel()

	_, err := NewNotifier(&conf.NotificationSettings{Enabled: true})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestNewNotifierRejectsUnknownService(t *testing.T) {
	t.Parallel()

	_, err := NewNotifier(&conf.NotificationSettings{
		Enabled: true,
		Urls:    []string{"notaservice://example.com"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestSendOnNilNotifier(t *testing.T) {
	t.Parallel()

	var n *Notifier
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Send(context.Background(), "title", "message"))
}

func TestSendDeliversSummary(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	url := fmt.Sprintf("generic://%s/hook?disabletls=yes", strings.TrimPrefix(server.URL, "http://"))
	n, err := NewNotifier(&conf.NotificationSettings{Enabled: true, Urls: []string{url}})
	require.NoError(t, err)
	require.True(t, n.Enabled())

	err = n.Send(context.Background(), "vidrename finished", "renamed 3, skipped 1, failed 0")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "renamed 3")
}

func TestSendReportsDeliveryFailure(t *testing.T) {
	t.Parallel()

	// Nothing listens on port 1, the dial fails immediately.
	n, err := NewNotifier(&conf.NotificationSettings{
		Enabled: true,
		Urls:    []string{"generic://127.0.0.1:1/hook?disabletls=yes"},
	})
	require.NoError(t, err)

	err = n.Send(context.Background(), "vidrename finished", "summary")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotification))
}

func TestSendHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	n, err := NewNotifier(&conf.NotificationSettings{
		Enabled: true,
		Urls:    []string{"generic://127.0.0.1:1/hook?disabletls=yes"},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = n.Send(ctx, "title", "message")
	assert.True(t, errors.Is(err, context.Canceled))
}
