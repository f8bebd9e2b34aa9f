package query

import "strings"

// Intent labels form a closed table; matching is lowercased whole-word.
const (
	IntentGreeting     = "greeting"
	IntentFarewell     = "farewell"
	IntentHelpRequest  = "help_request"
	IntentTradeInquiry = "trade_inquiry"
	IntentHostile      = "hostile"
	IntentGeneral      = "general_conversation"
)

var intentTable = []struct {
	intent   string
	keywords []string
}{
	{IntentGreeting, []string{"hello", "hi", "greetings", "hail", "hey", "welcome"}},
	{IntentFarewell, []string{"bye", "goodbye", "farewell", "later"}},
	{IntentHelpRequest, []string{"help", "assist", "aid", "guidance", "lost"}},
	{IntentTradeInquiry, []string{"trade", "buy", "sell", "wares", "goods", "price", "coin"}},
	{IntentHostile, []string{"fight", "attack", "die", "threat", "curse", "enemy"}},
}

// DeriveIntents returns the matched intent tags in table order, falling
// back to general_conversation when nothing matches.
func DeriveIntents(input string) []string {
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	}) {
		words[w] = true
	}

	var intents []string
	for _, row := range intentTable {
		for _, kw := range row.keywords {
			if words[kw] {
				intents = append(intents, row.intent)
				break
			}
		}
	}
	if len(intents) == 0 {
		intents = append(intents, IntentGeneral)
	}
	return intents
}
