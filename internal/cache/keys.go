package cache

import "fmt"

// Snapshot keys are derived from the logical query (function identity
// plus arguments) so repeated queries always land on the same file.

func AllSetsKey() string {
	return "get_all_sets"
}

func SetPricesKey(setID int) string {
	return fmt.Sprintf("get_card_prices_setId=%d", setID)
}

func SetDetailsKey() string {
	return "get_set_details"
}

func PopulationKey(cardID int) string {
	return fmt.Sprintf("get_card_id_psa_pop_card_id=%d", cardID)
}

func TransactionsKey(cardID int) string {
	return fmt.Sprintf("get_volume_of_transactions_card_id=%d", cardID)
}
