package usecase

import (
	"context"

	"go-profile-backend/internal/domain"
)

type healthUsecase struct{}

// NewHealthUsecase reports liveness only; it does not touch the database.
func NewHealthUsecase() domain.HealthUsecase {
	return &healthUsecase{}
}

func (u *healthUsecase) Check(_ context.Context) domain.HealthStatus {
	return domain.HealthStatus{Status: "ok"}
}
