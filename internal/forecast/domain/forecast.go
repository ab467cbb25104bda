package domain

import "fmt"

// DefaultHorizonDays is how many days past the last sale day are projected.
const DefaultHorizonDays = 7

type Suggestion struct {
	ProductID      int64  `json:"product_id"`
	Name           string `json:"name"`
	CurrentStock   int    `json:"current_stock"`
	PredictedSales int    `json:"predicted_sales"`
	Suggestion     string `json:"suggestion"`
}

func SuggestionText(predicted, horizonDays int) string {
	return fmt.Sprintf("Stock is low. Predicted to sell %d units in the next %d days.", predicted, horizonDays)
}
