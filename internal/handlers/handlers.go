package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/internal/services"
)

type Handlers struct {
	Health  *HealthHandler
	Ranking *RankingHandler
	Entity  *EntityHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(logger, services.Health),
		Ranking: NewRankingHandler(logger, services.Ranking),
		Entity:  NewEntityHandler(logger, services.Entities),
	}
}
