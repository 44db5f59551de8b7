package usecase

import "context"

type HealthUsecase interface {
	Check(ctx context.Context) map[string]string
}

// HealthProbe reports the state of one optional dependency.
type HealthProbe func(ctx context.Context) string

type healthUsecase struct {
	probes map[string]HealthProbe
}

func NewHealthUsecase(probes map[string]HealthProbe) HealthUsecase {
	return &healthUsecase{probes: probes}
}

func (u *healthUsecase) Check(ctx context.Context) map[string]string {
	status := map[string]string{
		"status": "ok",
	}
	for name, probe := range u.probes {
		status[name] = probe(ctx)
	}
	return status
}
