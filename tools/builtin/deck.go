package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/casualjim/hoot/tool"
	"github.com/goccy/go-json"
)

const (
	DeckBaseURL = "https://deckofcardsapi.com/api/deck/"

	requestTimeout = 15 * time.Second
)

// Deck is a client for the Deck of Cards API.
type Deck struct {
	baseURL string
	client  *http.Client
}

func NewDeck(client *http.Client) *Deck {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &Deck{baseURL: DeckBaseURL, client: client}
}

// WithBaseURL points the client at another API root.
func (d *Deck) WithBaseURL(base string) *Deck {
	cp := *d
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	cp.baseURL = base
	return &cp
}

// CreateShuffledDeck creates a new shuffled deck made of deckCount decks.
func (d *Deck) CreateShuffledDeck(ctx context.Context, deckCount *int) (map[string]any, error) {
	q := url.Values{}
	q.Set("deck_count", strconv.Itoa(orOne(deckCount)))
	return d.get(ctx, "new/shuffle/", q)
}

// DrawCards draws count cards from a deck.
func (d *Deck) DrawCards(ctx context.Context, deckID string, count *int) (map[string]any, error) {
	if err := checkDeckID(deckID); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("count", strconv.Itoa(orOne(count)))
	return d.get(ctx, url.PathEscape(deckID)+"/draw/", q)
}

// DrawRandomCard draws a single card.
func (d *Deck) DrawRandomCard(ctx context.Context, deckID string) (map[string]any, error) {
	one := 1
	return d.DrawCards(ctx, deckID, &one)
}

// CreateDeckAndDrawCards creates a shuffled deck and draws from it in one call.
func (d *Deck) CreateDeckAndDrawCards(ctx context.Context, count, deckCount *int) (map[string]any, error) {
	q := url.Values{}
	q.Set("count", strconv.Itoa(orOne(count)))
	q.Set("deck_count", strconv.Itoa(orOne(deckCount)))
	return d.get(ctx, "new/draw/", q)
}

// ReshuffleDeck shuffles a deck, optionally only the cards left in it.
func (d *Deck) ReshuffleDeck(ctx context.Context, deckID string, remainingOnly *bool) (map[string]any, error) {
	if err := checkDeckID(deckID); err != nil {
		return nil, err
	}
	q := url.Values{}
	if remainingOnly != nil && *remainingOnly {
		q.Set("remaining", "true")
	}
	return d.get(ctx, url.PathEscape(deckID)+"/shuffle/", q)
}

// CreateNewDeck creates an ordered deck.
func (d *Deck) CreateNewDeck(ctx context.Context, shuffled, jokersEnabled *bool) (map[string]any, error) {
	path := "new/"
	if shuffled != nil && *shuffled {
		path += "shuffle/"
	}
	q := url.Values{}
	if jokersEnabled != nil && *jokersEnabled {
		q.Set("jokers_enabled", "true")
	}
	return d.get(ctx, path, q)
}

// CreatePartialDeck creates a deck holding only the given comma separated card
// codes. It is shuffled unless shuffled is false.
func (d *Deck) CreatePartialDeck(ctx context.Context, cardCodes string, shuffled *bool) (map[string]any, error) {
	if strings.TrimSpace(cardCodes) == "" {
		return nil, fmt.Errorf("%w: card_codes cannot be empty", tool.ErrInvalidParams)
	}
	path := "new/"
	if shuffled == nil || *shuffled {
		path += "shuffle/"
	}
	q := url.Values{}
	q.Set("cards", strings.ReplaceAll(cardCodes, " ", ""))
	return d.get(ctx, path, q)
}

// GetDeckInfo reports a deck's state by drawing zero cards.
func (d *Deck) GetDeckInfo(ctx context.Context, deckID string) (map[string]any, error) {
	if err := checkDeckID(deckID); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("count", "0")
	return d.get(ctx, url.PathEscape(deckID)+"/draw/", q)
}

func (d *Deck) get(ctx context.Context, path string, q url.Values) (map[string]any, error) {
	u := d.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deck api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("deck api: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// Definitions returns the deck tools bound to d.
func (d *Deck) Definitions() []tool.Definition {
	return []tool.Definition{
		tool.Must(d.CreateShuffledDeck,
			tool.Name("create_shuffled_deck"),
			tool.Description("Creates a new shuffled deck of cards. deck_count defaults to 1; blackjack typically uses 6."),
			tool.Parameters("deck_count"),
		),
		tool.Must(d.DrawCards,
			tool.Name("draw_cards"),
			tool.Description("Draws count cards (default 1) from the deck with the given deck_id."),
			tool.Parameters("deck_id", "count"),
		),
		tool.Must(d.DrawRandomCard,
			tool.Name("draw_random_card"),
			tool.Description("Draws a single card from the deck with the given deck_id."),
			tool.Parameters("deck_id"),
		),
		tool.Must(d.CreateDeckAndDrawCards,
			tool.Name("create_deck_and_draw_cards"),
			tool.Description("Creates a new shuffled deck and immediately draws count cards from it."),
			tool.Parameters("count", "deck_count"),
		),
		tool.Must(d.ReshuffleDeck,
			tool.Name("reshuffle_deck"),
			tool.Description("Reshuffles a deck. With remaining_only only the cards left in the main stack are shuffled."),
			tool.Parameters("deck_id", "remaining_only"),
		),
		tool.Must(d.CreateNewDeck,
			tool.Name("create_new_deck"),
			tool.Description("Creates a brand new deck in order, optionally shuffled or with two jokers."),
			tool.Parameters("shuffled", "jokers_enabled"),
		),
		tool.Must(d.CreatePartialDeck,
			tool.Name("create_partial_deck"),
			tool.Description("Creates a deck with only the given comma separated card codes, e.g. \"AS,2S,KD\". Codes are A,2-9,0 (ten),J,Q,K followed by S,D,C,H."),
			tool.Parameters("card_codes", "shuffled"),
		),
		tool.Must(d.GetDeckInfo,
			tool.Name("get_deck_info"),
			tool.Description("Reports the status and remaining card count of a deck."),
			tool.Parameters("deck_id"),
		),
	}
}

func checkDeckID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: deck_id cannot be empty", tool.ErrInvalidParams)
	}
	return nil
}

func orOne(v *int) int {
	if v == nil || *v < 1 {
		return 1
	}
	return *v
}
