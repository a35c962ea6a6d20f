package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casualjim/hoot/tool"
	"github.com/casualjim/hoot/toolcall"
)

type ctxKey struct{}

func newTestRegistry() *tool.Registry {
	reg := tool.NewRegistry()
	reg.MustRegister(
		tool.Must(func(location string) string {
			return fmt.Sprintf("The weather in %s is currently sunny and 25°C.", location)
		}, tool.Name("weather"), tool.Parameters("location")),
		tool.Must(func(minVal, maxVal int) (int, error) {
			if minVal > maxVal {
				return 0, &tool.ParamError{Param: "min_val", Reason: "must not exceed max_val"}
			}
			return maxVal, nil
		}, tool.Name("generate_random_number"), tool.Parameters("min_val", "max_val")),
		tool.Must(func() (string, error) {
			return "", errors.New("upstream unavailable")
		}, tool.Name("broken")),
		tool.Must(func() string {
			panic("kaboom")
		}, tool.Name("panics")),
		tool.Must(func(ctx context.Context, deckID string, count *int) map[string]any {
			n := 1
			if count != nil {
				n = *count
			}
			return map[string]any{"deck_id": deckID, "count": n, "tag": ctx.Value(ctxKey{})}
		}, tool.Name("draw_cards"), tool.Parameters("deck_id", "count")),
		tool.Must(func(d time.Duration) time.Duration {
			time.Sleep(d)
			return d
		}, tool.Name("sleep"), tool.Parameters("d")),
		tool.Must(func() {}, tool.Name("noop")),
	)
	return reg
}

func call(name string, params map[string]any) toolcall.Invocation {
	return toolcall.Invocation{Name: name, Parameters: params}
}
