// Package builtin provides the tools every being can use: weather, current
// time, random numbers and a deck-of-cards client.
package builtin

import (
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/casualjim/hoot/tool"
)

// Weather reports the weather for a location.
func Weather(location string) string {
	return fmt.Sprintf("The current weather in %s is sunny with a temperature of 25°C.", location)
}

// CurrentTime returns the local time.
func CurrentTime() time.Time {
	return now()
}

var now = time.Now

// RandomNumber returns a uniformly distributed integer in [minVal, maxVal].
func RandomNumber(minVal, maxVal int) (int, error) {
	if minVal > maxVal {
		return 0, fmt.Errorf("%w: min_val %d is greater than max_val %d", tool.ErrInvalidParams, minVal, maxVal)
	}
	span := uint64(maxVal) - uint64(minVal)
	if span >= math.MaxInt {
		return 0, fmt.Errorf("%w: range [%d, %d] is too wide", tool.ErrInvalidParams, minVal, maxVal)
	}
	return minVal + rand.IntN(int(span)+1), nil
}

// Definitions returns the local tools.
func Definitions() []tool.Definition {
	return []tool.Definition{
		tool.Must(Weather,
			tool.Name("weather"),
			tool.Description("Fetches the current weather for a given location."),
			tool.Parameters("location"),
		),
		tool.Must(CurrentTime,
			tool.Name("get_current_time"),
			tool.Description("Returns the current time in ISO format."),
		),
		tool.Must(RandomNumber,
			tool.Name("generate_random_number"),
			tool.Description("Generates a random integer between min_val and max_val, inclusive."),
			tool.Parameters("min_val", "max_val"),
		),
	}
}

// Register adds every builtin tool to reg. A nil client uses one with a
// request timeout.
func Register(reg *tool.Registry, client *http.Client) error {
	defs := append(Definitions(), NewDeck(client).Definitions()...)
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}
