package appbuilder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/rabbitmq"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/rest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfigJson struct {
	Port uint16 `json:"port"`
}

type testConfig struct {
	Port uint16
}

func (tcj testConfigJson) ConvertToDomain() testConfig {
	return testConfig{Port: tcj.Port}
}

func (tc testConfig) GetLoggerConfig() logger.LoggerConfig { return logger.LoggerConfig{} }

func (tc testConfig) GetRabbitmqConfig() rabbitmq.RabbitmqConfig { return rabbitmq.RabbitmqConfig{} }

func (tc testConfig) GetRestApiPort() uint16 { return tc.Port }

type countingWorker struct{ started, stopped int }

func (w *countingWorker) GetServiceName() string { return "counting" }
func (w *countingWorker) StartService(ctx context.Context) { w.started++ }
func (w *countingWorker) StopService() { w.stopped++ }

func TestAppBuilderRoutesAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"port": 9100}`), 0o600))

	var optionCalled bool
	worker := &countingWorker{}

	builder := New[testConfigJson, testConfig]().
		InitLogger(logger.GlobalLoggerConfig{}).
		LoadConfig(configPath).
		WithOption(func(a *AppBuilder[testConfigJson, testConfig]) {
			optionCalled = true
			assert.Equal(t, uint16(9100), a.Config.Port)
		}).
		InitRabbitmqConnection().
		InitRabbitmqRegistries().
		AddWorkerServices(worker, nil).
		AddGinMiddleware(
			rest.NewMiddleware(rest.GlobalGroup, func(c *gin.Context) {
				c.Header("X-Global", "1")
				c.Next()
			}),
			rest.NewMiddleware("v1", func(c *gin.Context) {
				c.Header("X-Group", "v1")
				c.Next()
			}),
		).
		AddGinRoutes(
			rest.NewRoute(rest.GET, "v1", "ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") }),
			rest.NewRoute(rest.POST, "internal", "echo", func(c *gin.Context) { c.Status(http.StatusAccepted) }),
		).
		InitGinRouter()

	assert.True(t, optionCalled)

	impl := builder.(*AppBuilder[testConfigJson, testConfig])
	assert.NotNil(t, impl.Publishers)
	assert.Nil(t, impl.Publishers.GetPublisher("missing"))

	rec := httptest.NewRecorder()
	impl.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-Global"))
	assert.Equal(t, "v1", rec.Header().Get("X-Group"))

	rec = httptest.NewRecorder()
	impl.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/internal/echo", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Group"))

	app := builder.Build().(*Application)
	assert.Equal(t, "0.0.0.0:9100", app.Addr)
	assert.Len(t, app.WorkerServices, 1)
}
