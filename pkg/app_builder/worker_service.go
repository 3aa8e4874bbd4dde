package appbuilder

import "context"

// WorkerService is a background job started alongside the REST API.
type WorkerService interface {
	GetServiceName() string
	StartService(ctx context.Context)
	StopService()
}
