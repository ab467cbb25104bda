package service

import (
	"context"
	"fmt"

	"github.com/ridloal/inventory-pos/internal/forecast/domain"
	ledgerRepo "github.com/ridloal/inventory-pos/internal/ledger/repository"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"go.uber.org/zap"
)

type Advisor interface {
	ReorderSuggestions(ctx context.Context) ([]domain.Suggestion, error)
}

type advisorImpl struct {
	ledger  ledgerRepo.LedgerRepository
	horizon int
}

// NewAdvisor reads sale history and stock through the ledger's reporting
// queries. horizonDays <= 0 uses DefaultHorizonDays.
func NewAdvisor(ledger ledgerRepo.LedgerRepository, horizonDays int) Advisor {
	if horizonDays <= 0 {
		horizonDays = domain.DefaultHorizonDays
	}
	return &advisorImpl{ledger: ledger, horizon: horizonDays}
}

func (a *advisorImpl) ReorderSuggestions(ctx context.Context) ([]domain.Suggestion, error) {
	daily, err := a.ledger.DailySaleTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sale history: %w", err)
	}
	levels, err := a.ledger.ListStockLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stock levels: %w", err)
	}

	history := make(map[int64][]float64)
	for _, d := range daily {
		history[d.ProductID] = append(history[d.ProductID], float64(d.Quantity))
	}

	suggestions := []domain.Suggestion{}
	for _, level := range levels {
		series := history[level.ProductID]
		if len(series) < 2 {
			continue
		}
		predicted := ProjectDemand(series, a.horizon)
		if level.Quantity > predicted {
			continue
		}
		suggestions = append(suggestions, domain.Suggestion{
			ProductID:      level.ProductID,
			Name:           level.Name,
			CurrentStock:   level.Quantity,
			PredictedSales: predicted,
			Suggestion:     domain.SuggestionText(predicted, a.horizon),
		})
	}

	logger.Info("Reorder suggestions computed",
		zap.Int("products", len(levels)),
		zap.Int("flagged", len(suggestions)),
	)
	return suggestions, nil
}
