package domain

import "context"

type HealthStatus struct {
	Status string `json:"status"`
}

type HealthUsecase interface {
	Check(ctx context.Context) HealthStatus
}
