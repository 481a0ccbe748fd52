package harvest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Desc  string `json:"desc,omitempty"`
	Coins Effect `json:"coinsDelta"`
	Crops Effect `json:"cropsDelta"`
}

type Scenario struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Choices []Choice `json:"choices"`
}

// Catalog is the ordered list of scenarios played in one game.
type Catalog []Scenario

// Choice looks up a choice of the scenario at index.
func (c Catalog) Choice(index int, choiceID string) (Choice, bool) {
	if index < 0 || index >= len(c) {
		return Choice{}, false
	}
	for _, ch := range c[index].Choices {
		if ch.ID == choiceID {
			return ch, true
		}
	}
	return Choice{}, false
}

func (c Catalog) Validate() error {
	if len(c) == 0 {
		return errors.New("catalog has no scenarios")
	}
	for i, sc := range c {
		if len(sc.Choices) == 0 {
			return fmt.Errorf("scenario %d (%s) has no choices", i, sc.ID)
		}
		seen := make(map[string]bool, len(sc.Choices))
		for _, ch := range sc.Choices {
			if ch.ID == "" || ch.ID == TimePenaltyChoiceID {
				return fmt.Errorf("scenario %d: invalid choice id %q", i, ch.ID)
			}
			if seen[ch.ID] {
				return fmt.Errorf("scenario %d: duplicate choice id %q", i, ch.ID)
			}
			seen[ch.ID] = true
			if err := ch.Coins.Validate(); err != nil {
				return fmt.Errorf("scenario %d choice %s coins: %w", i, ch.ID, err)
			}
			if err := ch.Crops.Validate(); err != nil {
				return fmt.Errorf("scenario %d choice %s crops: %w", i, ch.ID, err)
			}
		}
	}
	return nil
}

func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog is the season played when no catalog file is configured.
func DefaultCatalog() Catalog {
	return Catalog{
		{
			ID:    "scenario-1",
			Title: "Water Management Crisis",
			Body:  "A severe drought has hit the region. Water resources are limited. How will you manage your irrigation?",
			Choices: []Choice{
				{ID: "water-1", Label: "Invest in drip irrigation", Desc: "Costs 200 coins but saves water long-term", Coins: Const(-200), Crops: Const(2)},
				{ID: "water-2", Label: "Continue traditional irrigation", Desc: "No immediate cost but risk crop loss", Coins: Const(0), Crops: Const(-1)},
				{ID: "water-3", Label: "Buy water from neighbors", Desc: "Expensive but ensures crop survival", Coins: Const(-300), Crops: Const(0)},
			},
		},
		{
			ID:    "scenario-2",
			Title: "Market Opportunity",
			Body:  "A large buyer wants to purchase crops immediately at a premium price. Do you sell now or wait for harvest?",
			Choices: []Choice{
				{ID: "market-1", Label: "Sell crops now", Desc: "Get 500 coins but lose 5 crops", Coins: Const(500), Crops: Const(-5)},
				{ID: "market-2", Label: "Wait for full harvest", Desc: "Risk market price drop but keep crops", Coins: Const(100), Crops: Const(3)},
				{ID: "market-3", Label: "Negotiate for better terms", Desc: "Moderate gain with balanced trade-off", Coins: Const(300), Crops: Const(-2)},
			},
		},
		{
			ID:    "scenario-3",
			Title: "Pest Infestation",
			Body:  "Your crops are under attack from pests. Quick action is needed to save the harvest.",
			Choices: []Choice{
				{ID: "pest-1", Label: "Use organic pesticides", Desc: "Costs 150 coins, minimal crop loss", Coins: Const(-150), Crops: Const(-1)},
				{ID: "pest-2", Label: "Use chemical pesticides", Desc: "Costs 100 coins, faster but risky", Coins: Const(-100), Crops: Const(-2)},
				{ID: "pest-3", Label: "Manual pest removal", Desc: "No cost but you lose 4 crops", Coins: Const(0), Crops: Const(-4)},
			},
		},
		{
			ID:    "scenario-4",
			Title: "Technology Investment",
			Body:  "A new farming technology promises to increase yields. Should you invest in innovation?",
			Choices: []Choice{
				{ID: "tech-1", Label: "Invest in new technology", Desc: "High cost but long-term benefits", Coins: Const(-400), Crops: Const(5)},
				{ID: "tech-2", Label: "Stick with traditional methods", Desc: "No cost, steady but slow growth", Coins: Const(0), Crops: Const(1)},
				{ID: "tech-3", Label: "Partner with tech company", Desc: "Share costs and benefits", Coins: Const(-200), Crops: Const(3)},
			},
		},
		{
			ID:    "scenario-5",
			Title: "Final Harvest Decision",
			Body:  "The season is ending. How will you maximize your final harvest and profits?",
			Choices: []Choice{
				{ID: "harvest-1", Label: "Harvest everything now", Desc: "40 coins for every crop you hold", Coins: Per(FieldCrops, 40, 1), Crops: Const(0)},
				{ID: "harvest-2", Label: "Wait for optimal ripeness", Desc: "Risk weather but higher quality", Coins: Const(600), Crops: Const(-3)},
				{ID: "harvest-3", Label: "Sell futures contracts", Desc: "Lock in prices early", Coins: Const(350), Crops: Const(2)},
			},
		},
	}
}
