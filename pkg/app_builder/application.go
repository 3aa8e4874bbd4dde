package appbuilder

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type Application struct {
	Logger         *logger.Logger
	Addr           string
	WorkerServices []WorkerService
	Engine         *gin.Engine
	Closers        []func() error
}

type ApplicationInterface interface {
	Start()
}

func (a *Application) Start() {
	a.Logger.Info("Starting Application runtime...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, ws := range a.WorkerServices {
		a.Logger.Infof("Starting %s WorkerService", ws.GetServiceName())
		go ws.StartService(ctx)
	}

	server := &http.Server{
		Addr:              a.Addr,
		Handler:           a.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.Logger.Infof("REST API is now listening on: %s", a.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error(err, "REST API stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	a.Logger.Info("Shutting down Application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error(err, "Graceful shutdown failed")
	}

	for _, ws := range a.WorkerServices {
		ws.StopService()
	}
	for i := len(a.Closers) - 1; i >= 0; i-- {
		if err := a.Closers[i](); err != nil {
			a.Logger.Error(err, "Closing resource failed")
		}
	}
}
